package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/shoptalk/shoptalk/internal/model"
	"github.com/shoptalk/shoptalk/internal/store"
)

// ConversationService wraps conversation persistence with the soft-failure
// semantics the webhook needs: a missing record means "start fresh", and a
// failed save never aborts a turn.
type ConversationService struct {
	store store.Store
	log   zerolog.Logger
}

func NewConversationService(s store.Store, log zerolog.Logger) *ConversationService {
	return &ConversationService{
		store: s,
		log:   log.With().Str("component", "conversations").Logger(),
	}
}

// Load returns the persisted conversation, or nil when none exists yet.
// Read failures are logged and reported as "no record": the bot still
// replies, it just starts from a blank context.
func (s *ConversationService) Load(ctx context.Context, tenantID, userID string) *model.Conversation {
	rec, err := s.store.Conversations().Get(ctx, tenantID, userID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			s.log.Error().Err(err).Str("tenant", tenantID).Str("user", userID).Msg("conversation load failed; starting fresh")
		}
		return nil
	}
	return rec
}

// Save persists the conversation best-effort. Errors are logged and
// swallowed: losing a turn of context on restart is an accepted trade-off.
func (s *ConversationService) Save(ctx context.Context, rec *model.Conversation) {
	if err := s.store.Conversations().Put(ctx, rec); err != nil {
		s.log.Error().Err(err).Str("tenant", rec.TenantID).Str("user", rec.UserID).Msg("conversation save failed")
	}
}

// Delete removes a conversation record. This is an administrative
// operation; the dispatcher never calls it.
func (s *ConversationService) Delete(ctx context.Context, tenantID, userID string) error {
	return s.store.Conversations().Delete(ctx, tenantID, userID)
}

// Count returns the number of stored conversations.
func (s *ConversationService) Count(ctx context.Context) (int, error) {
	return s.store.Conversations().Count(ctx)
}

// CountByTenant returns the number of stored conversations for one tenant.
func (s *ConversationService) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	return s.store.Conversations().CountByTenant(ctx, tenantID)
}
