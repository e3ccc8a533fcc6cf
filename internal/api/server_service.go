package api

import (
	"context"
	"time"

	"github.com/matheus3301/parley/internal/chatv1"
	"github.com/matheus3301/parley/internal/status"
	"github.com/matheus3301/parley/internal/store"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// ServerInfo is static information about the running daemon.
type ServerInfo struct {
	Profile       string
	TypingBackend string
	EventsEnabled bool
	StartedAt     time.Time
}

// ServerService implements chatv1.ServerServiceServer.
type ServerService struct {
	info    ServerInfo
	machine *status.Machine
	db      *store.DB
}

// NewServerService creates a new ServerService.
func NewServerService(info ServerInfo, m *status.Machine, db *store.DB) *ServerService {
	return &ServerService{info: info, machine: m, db: db}
}

// GetStatus reports the daemon state and row counts. It needs no identity.
func (s *ServerService) GetStatus(ctx context.Context, _ *chatv1.GetStatusRequest) (*chatv1.GetStatusResponse, error) {
	users, err := s.db.UserCount(ctx)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "count users: %v", err)
	}
	convs, err := s.db.ConversationCount(ctx)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "count conversations: %v", err)
	}
	msgs, err := s.db.MessageCount(ctx)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "count messages: %v", err)
	}

	return &chatv1.GetStatusResponse{
		Profile:       s.info.Profile,
		State:         string(s.machine.Current()),
		UptimeMs:      time.Since(s.info.StartedAt).Milliseconds(),
		Users:         users,
		Conversations: convs,
		Messages:      msgs,
		TypingBackend: s.info.TypingBackend,
		EventsEnabled: s.info.EventsEnabled,
	}, nil
}
