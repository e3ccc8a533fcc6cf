package chat

import (
	"context"
	"fmt"

	"github.com/matheus3301/parley/internal/bus"
)

// MarkRead advances the caller's read mark in a conversation to now. The mark
// never moves backwards.
func (s *Service) MarkRead(ctx context.Context, id *Identity, conversationID string) error {
	me, err := s.caller(ctx, id)
	if err != nil {
		return err
	}
	if _, err := member(ctx, s.db.Queries, conversationID, me.ID); err != nil {
		return err
	}
	now := s.nowMs()
	if err := s.db.AdvanceRead(ctx, me.ID, conversationID, now); err != nil {
		return fmt.Errorf("advance read: %w", err)
	}
	// Only the reader's own unread counts change.
	s.publish(ChangeEvent{Kind: bus.KindReadMarked, ConversationID: conversationID, ActorID: me.ID, OccurredAt: now}, []string{me.ID})
	return nil
}

// UnreadCount returns how many messages from other members the caller has
// not read in a conversation.
func (s *Service) UnreadCount(ctx context.Context, id *Identity, conversationID string) (int, error) {
	me, err := s.caller(ctx, id)
	if err != nil {
		return 0, err
	}
	if _, err := member(ctx, s.db.Queries, conversationID, me.ID); err != nil {
		return 0, err
	}
	n, err := s.db.UnreadCount(ctx, me.ID, conversationID)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}
