package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/atendeco/atende/internal/domain/conversation"
	"github.com/atendeco/atende/internal/port/messagequeue"
	"github.com/atendeco/atende/internal/port/store"
)

// ConversationService exposes read access to conversations and runs the
// background sweeper that reaps expired ones.
type ConversationService struct {
	store store.ConversationStore
	queue messagequeue.Queue
	log   *slog.Logger
}

// NewConversationService creates a new ConversationService. queue may be
// nil, in which case sweep results are only logged.
func NewConversationService(st store.ConversationStore, queue messagequeue.Queue, log *slog.Logger) *ConversationService {
	return &ConversationService{store: st, queue: queue, log: log}
}

// Get returns a conversation by ID.
func (s *ConversationService) Get(ctx context.Context, tenantID, id string) (*conversation.Conversation, error) {
	return s.store.GetConversation(ctx, tenantID, id)
}

// FindActive returns the ongoing conversation for the given user and
// channel, or domain.ErrNotFound.
func (s *ConversationService) FindActive(ctx context.Context, tenantID, userID, channelID string) (*conversation.Conversation, error) {
	return s.store.FindActiveConversation(ctx, tenantID, userID, channelID)
}

// CountByStatus returns conversation counts per status for a tenant.
func (s *ConversationService) CountByStatus(ctx context.Context, tenantID string) (map[conversation.Status]int64, error) {
	return s.store.CountConversationsByStatus(ctx, tenantID)
}

// Sweep marks all past-expiry ongoing conversations as expired and
// publishes the reaped count. Returns the number reaped.
func (s *ConversationService) Sweep(ctx context.Context) (int64, error) {
	n, err := s.store.ExpireConversations(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	s.log.Info("expired conversations reaped", "count", n)

	if s.queue != nil {
		payload, _ := json.Marshal(map[string]any{
			"count": n,
			"at":    time.Now().UTC(),
		})
		if err := s.queue.Publish(ctx, messagequeue.SubjectConversationExpired, payload); err != nil {
			s.log.Warn("publish expired event failed", "error", err)
		}
	}
	return n, nil
}

// StartSweeper runs Sweep on the given interval until ctx is cancelled.
// It blocks; run it in its own goroutine.
func (s *ConversationService) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error("conversation sweep failed", "error", err)
			}
		}
	}
}
