// Package engine implements the conversational state machine: it selects
// an agent for each inbound message, walks the dialogue steps, collects
// action parameters and triggers execution through the external ports.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atendeco/atende/internal/domain"
	"github.com/atendeco/atende/internal/domain/agent"
	"github.com/atendeco/atende/internal/domain/conversation"
	"github.com/atendeco/atende/internal/port/action"
	"github.com/atendeco/atende/internal/port/intent"
	"github.com/atendeco/atende/internal/port/store"
)

// Config holds engine tunables.
type Config struct {
	// StuckThreshold is the attempt count at which parameter collection
	// gives up and escalates. Zero uses the domain default.
	StuckThreshold int
	// ConversationTTL overrides the default activity window for new
	// conversations. Zero keeps the domain default.
	ConversationTTL time.Duration
}

// Engine orchestrates conversations. All external collaborators are
// constructor-injected ports so the engine is unit-testable with fakes.
type Engine struct {
	store    store.ConversationStore
	analyzer intent.Analyzer
	executor action.Executor
	sink     EventSink
	cfg      Config
	locks    *lockTable
	now      func() time.Time
}

// New creates an Engine. sink may be nil when no event fan-out is wired.
func New(st store.ConversationStore, an intent.Analyzer, ex action.Executor, sink EventSink, cfg Config) *Engine {
	return &Engine{
		store:    st,
		analyzer: an,
		executor: ex,
		sink:     sink,
		cfg:      cfg,
		locks:    newLockTable(),
		now:      time.Now,
	}
}

// ProcessMessage runs one inbound message through the state machine and
// always returns a user-facing response: port and infrastructure failures
// are logged and converted into a generic apology, never re-thrown to the
// channel adapter.
func (e *Engine) ProcessMessage(ctx context.Context, msg MessageContext) *Response {
	start := e.now()

	resp, err := e.process(ctx, msg)
	if err != nil {
		slog.Error("message processing failed",
			"tenant_id", msg.TenantID,
			"user_id", msg.UserID,
			"channel_type", msg.ChannelType,
			"error", err,
		)
		return &Response{Message: msgApology, ConversationComplete: true}
	}

	e.emit(ctx, Event{
		Type:           EventMessageProcessed,
		TenantID:       msg.TenantID,
		ConversationID: resp.ConversationID,
		UserID:         msg.UserID,
		ChannelID:      msg.ChannelID,
		ChannelType:    msg.ChannelType,
		Elapsed:        e.now().Sub(start),
		At:             e.now(),
	})
	return resp
}

func (e *Engine) process(ctx context.Context, msg MessageContext) (resp *Response, err error) {
	// Step handlers may panic only on programmer errors; the boundary
	// converts those into the generic apology like any other failure.
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("panic in step handler: %v", r)
		}
	}()

	// Messages for the same conversation key must be handled in arrival
	// order; each step reads then writes shared conversation state.
	key := msg.TenantID + "/" + msg.UserID + "/" + msg.ChannelID
	if err := e.locks.acquire(ctx, key); err != nil {
		return nil, fmt.Errorf("acquire conversation lock: %w", err)
	}
	defer e.locks.release(key)

	ag, err := e.selectAgent(ctx, msg.TenantID, msg.ChannelType)
	if err != nil {
		return nil, err
	}
	if ag == nil {
		return &Response{Message: msgNoAgent, ConversationComplete: true}, nil
	}

	// Escalation keywords interrupt at any step, before any state-machine
	// work or conversation persistence.
	if ag.ShouldEscalate(msg.Content) {
		e.emit(ctx, Event{
			Type:        EventConversationEscalated,
			TenantID:    msg.TenantID,
			AgentID:     ag.ID,
			AgentName:   ag.Name,
			UserID:      msg.UserID,
			ChannelID:   msg.ChannelID,
			ChannelType: msg.ChannelType,
			At:          e.now(),
		})
		return &Response{Message: msgTransferHuman, Escalated: true, ConversationComplete: true}, nil
	}

	conv, created, err := e.loadOrCreate(ctx, msg, ag)
	if err != nil {
		return nil, err
	}

	conv.AddMessage(conversation.RoleUser, msg.Content, msg.Metadata)

	// A conversation that outgrew the agent's turn budget is handed to a
	// human rather than looping forever.
	if mt := ag.ConversationConfig.MaxTurns; mt > 0 && conv.Turns() > mt {
		resp = e.escalate(conv)
	} else {
		resp, err = e.dispatch(ctx, ag, conv, msg)
		if err != nil {
			return nil, err
		}
	}

	meta := map[string]any{"step": string(conv.CurrentStep)}
	if len(resp.MenuOptions) > 0 {
		meta["menu_options"] = resp.MenuOptions
	}
	conv.AddMessage(conversation.RoleAgent, resp.Message, meta)

	if created {
		err = e.store.CreateConversation(ctx, conv)
	} else {
		err = e.store.UpdateConversation(ctx, conv)
	}
	if err != nil {
		return nil, fmt.Errorf("persist conversation %s: %w", conv.ID, err)
	}

	e.emitLifecycle(ctx, ag, conv, created)

	resp.ConversationID = conv.ID
	return resp, nil
}

// loadOrCreate finds the single ongoing conversation for the message key
// or starts a new one. A loaded conversation past its expiry window is
// lazily expired and replaced.
func (e *Engine) loadOrCreate(ctx context.Context, msg MessageContext, ag *agent.Agent) (*conversation.Conversation, bool, error) {
	conv, err := e.store.FindActiveConversation(ctx, msg.TenantID, msg.UserID, msg.ChannelID)
	switch {
	case err == nil:
		if !conv.IsExpired(e.now()) {
			return conv, false, nil
		}
		conv.Expire()
		if uerr := e.store.UpdateConversation(ctx, conv); uerr != nil {
			return nil, false, fmt.Errorf("expire conversation %s: %w", conv.ID, uerr)
		}
	case errors.Is(err, domain.ErrNotFound):
		// fall through to create
	default:
		return nil, false, fmt.Errorf("find active conversation: %w", err)
	}

	fresh := conversation.New(msg.TenantID, ag.ID, msg.UserID, msg.ChannelID, msg.ChannelType)
	if e.cfg.ConversationTTL > 0 {
		fresh.ExpiresAt = e.now().Add(e.cfg.ConversationTTL)
	}
	return fresh, true, nil
}

// escalate terminalizes the conversation with a human handoff.
func (e *Engine) escalate(conv *conversation.Conversation) *Response {
	conv.Escalate()
	return &Response{Message: msgTransferHuman, Escalated: true, ConversationComplete: true}
}

func (e *Engine) emit(ctx context.Context, evt Event) {
	if e.sink != nil {
		e.sink.ConversationEvent(ctx, evt)
	}
}

// emitLifecycle publishes started/completed/escalated events after the
// turn has been persisted.
func (e *Engine) emitLifecycle(ctx context.Context, ag *agent.Agent, conv *conversation.Conversation, created bool) {
	base := Event{
		TenantID:       conv.TenantID,
		ConversationID: conv.ID,
		AgentID:        ag.ID,
		AgentName:      ag.Name,
		UserID:         conv.UserID,
		ChannelID:      conv.ChannelID,
		ChannelType:    conv.ChannelType,
		ActionType:     conv.IntendedAction,
		At:             e.now(),
	}

	if created {
		base.Type = EventConversationStarted
		e.emit(ctx, base)
	}

	switch conv.Status {
	case conversation.StatusCompleted:
		base.Type = EventConversationCompleted
		e.emit(ctx, base)
	case conversation.StatusEscalated:
		base.Type = EventConversationEscalated
		e.emit(ctx, base)
	}
}
