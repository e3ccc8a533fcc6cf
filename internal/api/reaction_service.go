package api

import (
	"context"

	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/chatv1"
)

// ReactionService implements chatv1.ReactionServiceServer.
type ReactionService struct {
	chat *chat.Service
}

// NewReactionService creates a new ReactionService.
func NewReactionService(c *chat.Service) *ReactionService {
	return &ReactionService{chat: c}
}

func (s *ReactionService) SetReaction(ctx context.Context, req *chatv1.SetReactionRequest) (*chatv1.SetReactionResponse, error) {
	res, err := s.chat.SetReaction(ctx, auth.IdentityFrom(ctx), req.MessageID, req.Emoji)
	if err != nil {
		return nil, toStatus("set reaction", err)
	}
	return &chatv1.SetReactionResponse{Action: string(res.Action), Emoji: res.Emoji}, nil
}

func (s *ReactionService) ListReactions(ctx context.Context, req *chatv1.ListReactionsRequest) (*chatv1.ListReactionsResponse, error) {
	byMessage, err := s.chat.ListReactions(ctx, auth.IdentityFrom(ctx), req.ConversationID)
	if notReady(err) {
		return &chatv1.ListReactionsResponse{NotReady: true, Reactions: map[string][]chatv1.Reaction{}}, nil
	}
	if err != nil {
		return nil, toStatus("list reactions", err)
	}
	out := make(map[string][]chatv1.Reaction, len(byMessage))
	for msgID, views := range byMessage {
		rs := make([]chatv1.Reaction, 0, len(views))
		for _, v := range views {
			rs = append(rs, reactionToWire(v))
		}
		out[msgID] = rs
	}
	return &chatv1.ListReactionsResponse{Reactions: out}, nil
}
