// Package chat implements the conversation, message, read-receipt, reaction
// and typing operations on top of the shared store.
package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/store"
	"go.uber.org/zap"
)

// Display fallbacks.
const (
	UnknownUserName  = "Unknown User"
	UnnamedGroupName = "Unnamed Group"
	DeletedPreview   = "This message was deleted"
)

// Service runs every chat operation for an authenticated caller.
type Service struct {
	db           *store.DB
	typing       TypingTracker
	bus          *bus.Bus
	logger       *zap.Logger
	now          func() time.Time
	recordEvents bool
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithEventOutbox makes mutations queue their change events in the outbox
// table for the relay.
func WithEventOutbox(enabled bool) Option {
	return func(s *Service) { s.recordEvents = enabled }
}

// NewService creates a chat service. A nil typing tracker selects the SQLite
// typing table; a nil bus disables push events.
func NewService(db *store.DB, typing TypingTracker, b *bus.Bus, logger *zap.Logger, opts ...Option) *Service {
	if typing == nil {
		typing = NewStoreTyping(db)
	}
	s := &Service{
		db:     db,
		typing: typing,
		bus:    b,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) nowMs() int64 { return s.now().UnixMilli() }

func newID() string { return uuid.NewString() }

// member loads a conversation and verifies userID belongs to it.
func member(ctx context.Context, q *store.Queries, conversationID, userID string) (*store.Conversation, error) {
	conv, err := q.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, errorf(CodeNotFound, "conversation not found")
	}
	if !isMember(conv, userID) {
		return nil, ErrNotMember
	}
	return conv, nil
}

func isMember(conv *store.Conversation, userID string) bool {
	for _, id := range conv.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// ChangeEvent is the payload of every event published on the bus and
// relayed to the event stream.
type ChangeEvent struct {
	Kind           string `json:"kind"`
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id,omitempty"`
	ActorID        string `json:"actor_id"`
	Emoji          string `json:"emoji,omitempty"`
	Action         string `json:"action,omitempty"`
	OccurredAt     int64  `json:"occurred_at"`
}

// queue writes evt to the outbox inside the mutation's transaction.
func (s *Service) queue(ctx context.Context, tx *store.Tx, evt ChangeEvent) error {
	if !s.recordEvents {
		return nil
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return tx.QueueEvent(ctx, evt.Kind, evt.ConversationID, string(payload))
}

// publish announces a committed change to the conversation's members.
func (s *Service) publish(evt ChangeEvent, audience []string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(bus.Event{
		Kind:      evt.Kind,
		Topic:     evt.ConversationID,
		Audience:  audience,
		Timestamp: time.UnixMilli(evt.OccurredAt),
		Payload:   evt,
	})
}
