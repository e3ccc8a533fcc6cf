package api

import (
	"context"

	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/chatv1"
)

// MessageService implements chatv1.MessageServiceServer.
type MessageService struct {
	chat *chat.Service
}

// NewMessageService creates a new MessageService.
func NewMessageService(c *chat.Service) *MessageService {
	return &MessageService{chat: c}
}

func (s *MessageService) SendMessage(ctx context.Context, req *chatv1.SendMessageRequest) (*chatv1.SendMessageResponse, error) {
	id, err := s.chat.SendMessage(ctx, auth.IdentityFrom(ctx), req.ConversationID, req.Content)
	if err != nil {
		return nil, toStatus("send message", err)
	}
	return &chatv1.SendMessageResponse{MessageID: id}, nil
}

func (s *MessageService) ListMessages(ctx context.Context, req *chatv1.ListMessagesRequest) (*chatv1.ListMessagesResponse, error) {
	msgs, err := s.chat.ListMessages(ctx, auth.IdentityFrom(ctx), req.ConversationID)
	if notReady(err) {
		return &chatv1.ListMessagesResponse{NotReady: true, Messages: []chatv1.Message{}}, nil
	}
	if err != nil {
		return nil, toStatus("list messages", err)
	}
	out := make([]chatv1.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageToWire(m))
	}
	return &chatv1.ListMessagesResponse{Messages: out}, nil
}

func (s *MessageService) DeleteMessage(ctx context.Context, req *chatv1.DeleteMessageRequest) (*chatv1.DeleteMessageResponse, error) {
	id, err := s.chat.DeleteMessage(ctx, auth.IdentityFrom(ctx), req.MessageID)
	if err != nil {
		return nil, toStatus("delete message", err)
	}
	return &chatv1.DeleteMessageResponse{MessageID: id}, nil
}
