package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/store"
	"go.uber.org/zap"
)

// Body is the visible content of a message: Active or Deleted.
type Body interface{ isBody() }

// Active is the body of a message that has not been deleted.
type Active struct {
	Content string
}

// Deleted is the body of a soft-deleted message. Its content is withheld.
type Deleted struct{}

func (Active) isBody()  {}
func (Deleted) isBody() {}

func bodyOf(m *store.Message) Body {
	if m.IsDeleted {
		return Deleted{}
	}
	return Active{Content: m.Content}
}

// EnrichedMessage is a message as displayed to one member.
type EnrichedMessage struct {
	MessageID      string
	ConversationID string
	Body           Body
	CreatedAt      int64
	IsMine         bool
	Sender         Profile
}

// SendMessage appends a message to a conversation. The conversation's last
// activity and the sender's read mark advance in the same transaction.
func (s *Service) SendMessage(ctx context.Context, id *Identity, conversationID, content string) (string, error) {
	me, err := s.caller(ctx, id)
	if err != nil {
		return "", err
	}
	content = strings.TrimSpace(content)

	msg := &store.Message{ID: newID(), ConversationID: conversationID, SenderID: me.ID, Content: content}
	var conv *store.Conversation
	var evt ChangeEvent
	err = s.db.InTx(ctx, func(tx *store.Tx) error {
		conv, err = member(ctx, tx.Queries, conversationID, me.ID)
		if err != nil {
			return err
		}
		if content == "" {
			return errorf(CodeInvalidArgument, "message cannot be empty")
		}

		msg.CreatedAt = s.nowMs()
		if err := tx.InsertMessage(ctx, msg); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		if err := tx.SetLastMessage(ctx, conversationID, msg.ID, msg.CreatedAt); err != nil {
			return fmt.Errorf("set last message: %w", err)
		}
		if err := tx.AdvanceRead(ctx, me.ID, conversationID, msg.CreatedAt); err != nil {
			return fmt.Errorf("advance read: %w", err)
		}
		evt = ChangeEvent{Kind: bus.KindMessageSent, ConversationID: conversationID, MessageID: msg.ID, ActorID: me.ID, OccurredAt: msg.CreatedAt}
		return s.queue(ctx, tx, evt)
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug("message sent",
		zap.String("conversation_id", conversationID), zap.String("message_id", msg.ID))
	s.publish(evt, conv.MemberIDs)
	return msg.ID, nil
}

// ListMessages returns a conversation's messages in ascending time order.
func (s *Service) ListMessages(ctx context.Context, id *Identity, conversationID string) ([]EnrichedMessage, error) {
	me, err := s.caller(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := member(ctx, s.db.Queries, conversationID, me.ID); err != nil {
		return nil, err
	}
	rows, err := s.db.ListMessages(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	out := make([]EnrichedMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, EnrichedMessage{
			MessageID:      r.ID,
			ConversationID: r.ConversationID,
			Body:           bodyOf(&r.Message),
			CreatedAt:      r.CreatedAt,
			IsMine:         r.SenderID == me.ID,
			Sender:         profileOf(r.Sender),
		})
	}
	return out, nil
}

// DeleteMessage soft-deletes one of the caller's own messages. Deleting an
// already deleted message succeeds without changes.
func (s *Service) DeleteMessage(ctx context.Context, id *Identity, messageID string) (string, error) {
	me, err := s.caller(ctx, id)
	if err != nil {
		return "", err
	}

	var conv *store.Conversation
	var evt ChangeEvent
	changed := false
	err = s.db.InTx(ctx, func(tx *store.Tx) error {
		msg, err := tx.GetMessage(ctx, messageID)
		if err != nil {
			return fmt.Errorf("get message: %w", err)
		}
		if msg == nil {
			return errorf(CodeNotFound, "message not found")
		}
		if msg.SenderID != me.ID {
			return errorf(CodeForbidden, "you can only delete your own messages")
		}
		if msg.IsDeleted {
			return nil
		}
		if err := tx.MarkMessageDeleted(ctx, messageID); err != nil {
			return fmt.Errorf("mark deleted: %w", err)
		}
		if conv, err = tx.GetConversation(ctx, msg.ConversationID); err != nil {
			return fmt.Errorf("get conversation: %w", err)
		}
		changed = true
		evt = ChangeEvent{Kind: bus.KindMessageDeleted, ConversationID: msg.ConversationID, MessageID: messageID, ActorID: me.ID, OccurredAt: s.nowMs()}
		return s.queue(ctx, tx, evt)
	})
	if err != nil {
		return "", err
	}

	if changed {
		s.logger.Debug("message deleted", zap.String("message_id", messageID))
		audience := []string{me.ID}
		if conv != nil {
			audience = conv.MemberIDs
		}
		s.publish(evt, audience)
	}
	return messageID, nil
}
