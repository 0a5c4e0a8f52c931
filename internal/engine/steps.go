package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/atendeco/atende/internal/domain/agent"
	"github.com/atendeco/atende/internal/domain/conversation"
	"github.com/atendeco/atende/internal/extract"
	"github.com/atendeco/atende/internal/locale"
	"github.com/atendeco/atende/internal/port/action"
	"github.com/atendeco/atende/internal/port/intent"
)

// dispatch routes the message to the handler for the conversation's
// current step. An unhandled step falls back to re-presenting the menu.
func (e *Engine) dispatch(ctx context.Context, ag *agent.Agent, conv *conversation.Conversation, msg MessageContext) (*Response, error) {
	switch conv.CurrentStep {
	case conversation.StepGreeting:
		return e.handleGreeting(ctx, ag, conv, msg)
	case conversation.StepUnderstandingIntent:
		return e.handleUnderstanding(ctx, ag, conv, msg)
	case conversation.StepCollectingParameters:
		return e.collectParams(ctx, ag, conv, msg, msg.Content, "")
	case conversation.StepConfirmation:
		return e.handleConfirmation(ctx, ag, conv, msg)
	default:
		return e.handleFallback(ag, conv), nil
	}
}

// handleGreeting analyzes the first message. An actionable intent jumps
// straight into parameter collection; anything else presents the menu of
// enabled actions.
func (e *Engine) handleGreeting(ctx context.Context, ag *agent.Agent, conv *conversation.Conversation, msg MessageContext) (*Response, error) {
	res, err := e.analyzer.Analyze(ctx, intent.Request{
		Content:   msg.Content,
		Sender:    msg.UserID,
		Channel:   msg.ChannelType,
		Timestamp: e.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("intent analyze: %w", err)
	}

	if actionType, ok := ag.MatchAction(res.Intent); ok {
		conv.IntendedAction = actionType
		conv.CurrentStep = conversation.StepCollectingParameters
		return e.collectParams(ctx, ag, conv, msg, msg.Content, greeting(ag))
	}

	conv.CurrentStep = conversation.StepUnderstandingIntent
	conv.Status = conversation.StatusWaitingInput
	return e.menuResponse(ag, greeting(ag)+"\n\n"+msgMenuPrompt), nil
}

// handleUnderstanding resolves the intent from a menu selection or a
// re-run of the analyzer. No match re-presents the fallback plus menu.
func (e *Engine) handleUnderstanding(ctx context.Context, ag *agent.Agent, conv *conversation.Conversation, msg MessageContext) (*Response, error) {
	trimmed := strings.TrimSpace(msg.Content)

	if n, convErr := strconv.Atoi(trimmed); convErr == nil {
		if n >= 1 && n <= len(ag.EnabledActions) {
			conv.IntendedAction = ag.EnabledActions[n-1]
			conv.CurrentStep = conversation.StepCollectingParameters
			return e.collectParams(ctx, ag, conv, msg, "", "")
		}
		return e.menuResponse(ag, fallback(ag)+"\n\n"+msgMenuPrompt), nil
	}

	res, err := e.analyzer.Analyze(ctx, intent.Request{
		Content:   msg.Content,
		Sender:    msg.UserID,
		Channel:   msg.ChannelType,
		Timestamp: e.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("intent analyze: %w", err)
	}

	if actionType, ok := ag.MatchAction(res.Intent); ok {
		conv.IntendedAction = actionType
		conv.CurrentStep = conversation.StepCollectingParameters
		return e.collectParams(ctx, ag, conv, msg, msg.Content, "")
	}

	return e.menuResponse(ag, fallback(ag)+"\n\n"+msgMenuPrompt), nil
}

// collectParams merges newly extracted values and either asks for the
// first missing required parameter, moves to confirmation, or executes
// directly when the agent skips confirmation. Re-looping with missing
// parameters counts against the stuck threshold.
func (e *Engine) collectParams(ctx context.Context, ag *agent.Agent, conv *conversation.Conversation, msg MessageContext, text, prefix string) (*Response, error) {
	strategy := extract.Lookup(conv.IntendedAction)

	if text != "" {
		conv.MergeParams(strategy.Extract(text))
	}

	missing := strategy.Missing(conv.ActionParams)
	if len(missing) > 0 {
		attempts := conv.IncrementAttempts()
		if conv.IsStuck(e.cfg.StuckThreshold) {
			slog.Warn("conversation stuck, escalating",
				"conversation_id", conv.ID,
				"action", conv.IntendedAction,
				"attempts", attempts,
			)
			return e.escalate(conv), nil
		}
		conv.CurrentStep = conversation.StepCollectingParameters
		conv.Status = conversation.StatusWaitingInput
		return &Response{
			Message:       joinPrefix(prefix, strategy.Prompt(missing[0])),
			RequiresInput: true,
		}, nil
	}

	conv.ResetAttempts()

	if ag.ConversationConfig.RequireConfirmation {
		conv.CurrentStep = conversation.StepConfirmation
		conv.Status = conversation.StatusWaitingConfirmation
		return &Response{
			Message:       joinPrefix(prefix, paramSummary(conv)+"\n\n"+msgConfirmPrompt),
			RequiresInput: true,
			MenuOptions:   confirmationMenu(),
		}, nil
	}

	return e.executeAction(ctx, ag, conv, msg)
}

// handleConfirmation classifies the reply per the agent's language:
// confirm executes, cancel completes, edit clears everything collected
// and restarts collection, anything else re-asks.
func (e *Engine) handleConfirmation(ctx context.Context, ag *agent.Agent, conv *conversation.Conversation, msg MessageContext) (*Response, error) {
	switch locale.Classify(ag.Personality.Language, msg.Content) {
	case locale.Confirm:
		conv.CurrentStep = conversation.StepExecutingAction
		return e.executeAction(ctx, ag, conv, msg)

	case locale.Cancel:
		conv.Complete()
		return &Response{Message: msgCancelled, ConversationComplete: true}, nil

	case locale.Edit:
		conv.Restart()
		strategy := extract.Lookup(conv.IntendedAction)
		question := "Vamos recomeçar. " + strategy.Prompt(firstRequired(strategy))
		return &Response{Message: question, RequiresInput: true}, nil

	default:
		return &Response{
			Message:       msgConfirmRetry,
			RequiresInput: true,
			MenuOptions:   confirmationMenu(),
		}, nil
	}
}

// executeAction builds the action request and invokes the executor. Both
// success and failure complete the conversation and feed the agent's
// stats; executor errors are business failures here, not infrastructure
// errors, so the user is told and the turn ends normally.
func (e *Engine) executeAction(ctx context.Context, ag *agent.Agent, conv *conversation.Conversation, msg MessageContext) (*Response, error) {
	if conv.IntendedAction == "" {
		return nil, fmt.Errorf("executing conversation %s with no intended action", conv.ID)
	}
	conv.CurrentStep = conversation.StepExecutingAction

	messageData := map[string]any{
		"user_id":         conv.UserID,
		"channel_id":      conv.ChannelID,
		"channel_type":    conv.ChannelType,
		"conversation_id": conv.ID,
		"content":         msg.Content,
	}
	for k, v := range msg.Metadata {
		messageData[k] = v
	}

	req := action.Request{
		ID:       uuid.NewString(),
		Type:     conv.IntendedAction,
		Params:   conv.CleanParams(),
		Config:   ag.AIConfig,
		Priority: ag.Priority,
	}
	execCtx := action.ExecutionContext{
		TenantID:    conv.TenantID,
		MessageData: messageData,
		RuleID:      ag.ID,
		RuleName:    ag.Name,
	}

	start := e.now()
	res, err := e.executor.Execute(ctx, req, execCtx)
	elapsed := e.now().Sub(start)

	success := err == nil && res != nil && res.Success
	if err != nil {
		slog.Warn("action executor failed",
			"conversation_id", conv.ID,
			"action", conv.IntendedAction,
			"error", err,
		)
	} else if res != nil && !res.Success {
		slog.Warn("action execution unsuccessful",
			"conversation_id", conv.ID,
			"action", conv.IntendedAction,
			"executor_error", res.Error,
		)
	}

	// Stats record the attempt either way; a stats failure must not eat
	// the user's turn.
	if serr := e.store.RecordAgentExecution(ctx, conv.TenantID, ag.ID, success, elapsed); serr != nil {
		slog.Error("record agent execution", "agent_id", ag.ID, "error", serr)
	}

	conv.Complete()

	e.emit(ctx, Event{
		Type:           EventActionExecuted,
		TenantID:       conv.TenantID,
		ConversationID: conv.ID,
		AgentID:        ag.ID,
		AgentName:      ag.Name,
		UserID:         conv.UserID,
		ChannelID:      conv.ChannelID,
		ChannelType:    conv.ChannelType,
		ActionType:     conv.IntendedAction,
		Success:        success,
		Elapsed:        elapsed,
		At:             e.now(),
	})

	if success {
		message := res.Message
		if message == "" {
			message = msgExecuted
		}
		return &Response{Message: message, ActionExecuted: true, ConversationComplete: true}, nil
	}
	return &Response{Message: msgExecutionFailed, ConversationComplete: true}, nil
}

// handleFallback covers unhandled steps: fallback text plus the menu,
// back to understanding the intent.
func (e *Engine) handleFallback(ag *agent.Agent, conv *conversation.Conversation) *Response {
	conv.CurrentStep = conversation.StepUnderstandingIntent
	conv.Status = conversation.StatusWaitingInput
	return e.menuResponse(ag, fallback(ag)+"\n\n"+msgMenuPrompt)
}

// menuResponse builds the enabled-actions menu. Options are attached only
// when the agent is configured to use menus; the numeric shortcuts work
// either way.
func (e *Engine) menuResponse(ag *agent.Agent, message string) *Response {
	resp := &Response{Message: message, RequiresInput: true}
	if !ag.ConversationConfig.UseMenus {
		return resp
	}
	for i, t := range ag.EnabledActions {
		resp.MenuOptions = append(resp.MenuOptions, MenuOption{
			ID:    strconv.Itoa(i + 1),
			Text:  extract.Label(t),
			Value: t,
		})
	}
	return resp
}

// paramSummary renders the collected parameters for the confirmation
// prompt, required keys first, extras after, in stable order.
func paramSummary(conv *conversation.Conversation) string {
	strategy := extract.Lookup(conv.IntendedAction)
	params := conv.CleanParams()

	var b strings.Builder
	b.WriteString("Aqui está o que eu anotei:\n")
	seen := map[string]bool{}
	for _, key := range strategy.Required {
		if v, ok := params[key]; ok {
			fmt.Fprintf(&b, "• %s: %v\n", key, v)
			seen[key] = true
		}
	}
	extras := make([]string, 0, len(params))
	for k := range params {
		if !seen[k] {
			extras = append(extras, k)
		}
	}
	sort.Strings(extras)
	for _, k := range extras {
		fmt.Fprintf(&b, "• %s: %v\n", k, params[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

func firstRequired(s extract.Strategy) string {
	if len(s.Required) > 0 {
		return s.Required[0]
	}
	return "informação"
}

func greeting(ag *agent.Agent) string {
	if ag.Personality.Greeting != "" {
		return ag.Personality.Greeting
	}
	return defaultGreeting
}

func fallback(ag *agent.Agent) string {
	if ag.Personality.Fallback != "" {
		return ag.Personality.Fallback
	}
	return defaultFallback
}

func joinPrefix(prefix, message string) string {
	if prefix == "" {
		return message
	}
	return prefix + "\n\n" + message
}
