package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/store"
)

// TypingTracker stores ephemeral "is typing" records.
type TypingTracker interface {
	Touch(ctx context.Context, userID, conversationID string, at time.Time) error
	Clear(ctx context.Context, userID, conversationID string) error
	// List returns the records of a conversation, newest first.
	List(ctx context.Context, conversationID string) ([]store.Typing, error)
}

// StoreTyping keeps typing records in the SQLite typing table.
type StoreTyping struct {
	db *store.DB
}

// NewStoreTyping creates a TypingTracker backed by db.
func NewStoreTyping(db *store.DB) *StoreTyping {
	return &StoreTyping{db: db}
}

func (t *StoreTyping) Touch(ctx context.Context, userID, conversationID string, at time.Time) error {
	return t.db.TouchTyping(ctx, userID, conversationID, at.UnixMilli())
}

func (t *StoreTyping) Clear(ctx context.Context, userID, conversationID string) error {
	return t.db.DeleteTyping(ctx, userID, conversationID)
}

func (t *StoreTyping) List(ctx context.Context, conversationID string) ([]store.Typing, error) {
	return t.db.ListTyping(ctx, conversationID)
}

// TypingEntry is another member's typing record. Readers decide staleness
// from UpdatedAt.
type TypingEntry struct {
	UserID     string
	ExternalID string
	Name       string
	UpdatedAt  int64
}

// SetTyping records that the caller started or stopped typing.
func (s *Service) SetTyping(ctx context.Context, id *Identity, conversationID string, isTyping bool) error {
	me, err := s.caller(ctx, id)
	if err != nil {
		return err
	}
	conv, err := member(ctx, s.db.Queries, conversationID, me.ID)
	if err != nil {
		return err
	}

	now := s.now()
	if isTyping {
		err = s.typing.Touch(ctx, me.ID, conversationID, now)
	} else {
		err = s.typing.Clear(ctx, me.ID, conversationID)
	}
	if err != nil {
		return fmt.Errorf("set typing: %w", err)
	}

	action := "started"
	if !isTyping {
		action = "stopped"
	}
	s.publish(ChangeEvent{
		Kind:           bus.KindTypingChanged,
		ConversationID: conversationID,
		ActorID:        me.ID,
		Action:         action,
		OccurredAt:     now.UnixMilli(),
	}, conv.MemberIDs)
	return nil
}

// GetTypingStatus returns the typing records of every other member of a
// conversation, stale ones included.
func (s *Service) GetTypingStatus(ctx context.Context, id *Identity, conversationID string) ([]TypingEntry, error) {
	me, err := s.caller(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := member(ctx, s.db.Queries, conversationID, me.ID); err != nil {
		return nil, err
	}
	recs, err := s.typing.List(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list typing: %w", err)
	}

	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		if r.UserID != me.ID {
			ids = append(ids, r.UserID)
		}
	}
	users, err := s.db.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}

	out := make([]TypingEntry, 0, len(ids))
	for _, r := range recs {
		if r.UserID == me.ID {
			continue
		}
		p := profileOf(users[r.UserID])
		out = append(out, TypingEntry{
			UserID:     r.UserID,
			ExternalID: p.ExternalID,
			Name:       p.Name,
			UpdatedAt:  r.UpdatedAt,
		})
	}
	return out, nil
}
