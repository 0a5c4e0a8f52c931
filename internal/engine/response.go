package engine

// MessageContext is the inbound call contract consumed by channel
// adapters (HTTP, WebSocket; mail/WhatsApp/SMS senders live outside this
// service and call the same surface).
type MessageContext struct {
	TenantID    string         `json:"tenant_id"`
	UserID      string         `json:"user_id"`
	ChannelID   string         `json:"channel_id"`
	ChannelType string         `json:"channel_type"`
	Content     string         `json:"content"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// MenuOption is a presented choice offered to disambiguate intent or
// confirm an action.
type MenuOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Value string `json:"value"`
}

// Response is what the engine hands back to the channel-specific sender.
type Response struct {
	Message              string       `json:"message"`
	RequiresInput        bool         `json:"requires_input,omitempty"`
	MenuOptions          []MenuOption `json:"menu_options,omitempty"`
	ActionExecuted       bool         `json:"action_executed,omitempty"`
	Escalated            bool         `json:"escalated,omitempty"`
	ConversationComplete bool         `json:"conversation_complete,omitempty"`
	ConversationID       string       `json:"conversation_id,omitempty"`
}
