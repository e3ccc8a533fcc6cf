package api

import (
	"context"

	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/chatv1"
)

// TypingService implements chatv1.TypingServiceServer.
type TypingService struct {
	chat *chat.Service
}

// NewTypingService creates a new TypingService.
func NewTypingService(c *chat.Service) *TypingService {
	return &TypingService{chat: c}
}

func (s *TypingService) SetTyping(ctx context.Context, req *chatv1.SetTypingRequest) (*chatv1.SetTypingResponse, error) {
	isTyping := true
	if req.IsTyping != nil {
		isTyping = *req.IsTyping
	}
	if err := s.chat.SetTyping(ctx, auth.IdentityFrom(ctx), req.ConversationID, isTyping); err != nil {
		return nil, toStatus("set typing", err)
	}
	return &chatv1.SetTypingResponse{}, nil
}

func (s *TypingService) GetTypingStatus(ctx context.Context, req *chatv1.GetTypingStatusRequest) (*chatv1.GetTypingStatusResponse, error) {
	entries, err := s.chat.GetTypingStatus(ctx, auth.IdentityFrom(ctx), req.ConversationID)
	if notReady(err) {
		return &chatv1.GetTypingStatusResponse{NotReady: true, Typing: []chatv1.TypingEntry{}}, nil
	}
	if err != nil {
		return nil, toStatus("get typing status", err)
	}
	out := make([]chatv1.TypingEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, typingToWire(e))
	}
	return &chatv1.GetTypingStatusResponse{Typing: out}, nil
}
