package api

import (
	"context"

	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/chatv1"
)

// UserService implements chatv1.UserServiceServer.
type UserService struct {
	chat *chat.Service
}

// NewUserService creates a new UserService.
func NewUserService(c *chat.Service) *UserService {
	return &UserService{chat: c}
}

// ResolveUser returns the caller's user record, creating it on first
// contact.
func (s *UserService) ResolveUser(ctx context.Context, _ *chatv1.ResolveUserRequest) (*chatv1.ResolveUserResponse, error) {
	u, err := s.chat.ResolveOrCreateUser(ctx, auth.IdentityFrom(ctx))
	if err != nil {
		return nil, toStatus("resolve user", err)
	}
	out := userToWire(u)
	return &chatv1.ResolveUserResponse{User: &out}, nil
}

func (s *UserService) Heartbeat(ctx context.Context, _ *chatv1.HeartbeatRequest) (*chatv1.HeartbeatResponse, error) {
	at, err := s.chat.Heartbeat(ctx, auth.IdentityFrom(ctx))
	if err != nil {
		return nil, toStatus("heartbeat", err)
	}
	return &chatv1.HeartbeatResponse{LastSeenAt: at}, nil
}

func (s *UserService) ListUsers(ctx context.Context, req *chatv1.ListUsersRequest) (*chatv1.ListUsersResponse, error) {
	users, err := s.chat.ListUsers(ctx, auth.IdentityFrom(ctx), req.Search)
	if notReady(err) {
		return &chatv1.ListUsersResponse{NotReady: true, Users: []chatv1.User{}}, nil
	}
	if err != nil {
		return nil, toStatus("list users", err)
	}
	out := make([]chatv1.User, 0, len(users))
	for _, u := range users {
		out = append(out, userToWire(u))
	}
	return &chatv1.ListUsersResponse{Users: out}, nil
}
