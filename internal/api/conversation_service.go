package api

import (
	"context"
	"strings"

	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/chatv1"
	"github.com/matheus3301/parley/internal/status"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// watchBuffer is the per-stream event buffer. Slow streams drop events and
// catch up on their next query.
const watchBuffer = 64

// ConversationService implements chatv1.ConversationServiceServer.
type ConversationService struct {
	chat   *chat.Service
	bus    *bus.Bus
	logger *zap.Logger
}

// NewConversationService creates a new ConversationService.
func NewConversationService(c *chat.Service, b *bus.Bus, logger *zap.Logger) *ConversationService {
	return &ConversationService{chat: c, bus: b, logger: logger}
}

func (s *ConversationService) CreateOrGetDirect(ctx context.Context, req *chatv1.CreateOrGetDirectRequest) (*chatv1.CreateOrGetDirectResponse, error) {
	res, err := s.chat.CreateOrGetDirect(ctx, auth.IdentityFrom(ctx), req.OtherExternalID)
	if err != nil {
		return nil, toStatus("create direct conversation", err)
	}
	return &chatv1.CreateOrGetDirectResponse{
		ConversationID: res.ConversationID,
		IsNew:          res.IsNew,
		Peer:           profileToWire(res.Peer),
	}, nil
}

func (s *ConversationService) CreateGroup(ctx context.Context, req *chatv1.CreateGroupRequest) (*chatv1.CreateGroupResponse, error) {
	res, err := s.chat.CreateGroup(ctx, auth.IdentityFrom(ctx), req.Name, req.MemberIDs)
	if err != nil {
		return nil, toStatus("create group", err)
	}
	return &chatv1.CreateGroupResponse{ConversationID: res.ConversationID, Name: res.Name}, nil
}

func (s *ConversationService) ListConversations(ctx context.Context, _ *chatv1.ListConversationsRequest) (*chatv1.ListConversationsResponse, error) {
	convs, err := s.chat.ListConversations(ctx, auth.IdentityFrom(ctx))
	if notReady(err) {
		return &chatv1.ListConversationsResponse{NotReady: true, Conversations: []chatv1.ConversationSummary{}}, nil
	}
	if err != nil {
		return nil, toStatus("list conversations", err)
	}
	out := make([]chatv1.ConversationSummary, 0, len(convs))
	for _, c := range convs {
		out = append(out, summaryToWire(c))
	}
	return &chatv1.ListConversationsResponse{Conversations: out}, nil
}

func (s *ConversationService) GetPeerInfo(ctx context.Context, req *chatv1.GetPeerInfoRequest) (*chatv1.GetPeerInfoResponse, error) {
	info, err := s.chat.GetPeerInfo(ctx, auth.IdentityFrom(ctx), req.ConversationID)
	if notReady(err) {
		return &chatv1.GetPeerInfoResponse{NotReady: true}, nil
	}
	if err != nil {
		return nil, toStatus("get peer info", err)
	}
	switch p := info.(type) {
	case chat.DirectPeer:
		return &chatv1.GetPeerInfoResponse{Direct: directPeerToWire(p)}, nil
	case chat.GroupInfo:
		members := make([]chatv1.Profile, 0, len(p.Members))
		for _, m := range p.Members {
			members = append(members, profileToWire(m))
		}
		return &chatv1.GetPeerInfoResponse{Group: &chatv1.GroupInfo{
			Name:        p.Name,
			MemberCount: p.MemberCount,
			Members:     members,
		}}, nil
	}
	return &chatv1.GetPeerInfoResponse{}, nil
}

func (s *ConversationService) MarkRead(ctx context.Context, req *chatv1.MarkReadRequest) (*chatv1.MarkReadResponse, error) {
	if err := s.chat.MarkRead(ctx, auth.IdentityFrom(ctx), req.ConversationID); err != nil {
		return nil, toStatus("mark read", err)
	}
	return &chatv1.MarkReadResponse{Success: true}, nil
}

// Watch streams change notifications visible to the caller until the client
// goes away or the daemon starts draining. Server status changes reach every
// stream.
func (s *ConversationService) Watch(req *chatv1.WatchRequest, stream grpc.ServerStreamingServer[chatv1.Event]) error {
	ctx := stream.Context()
	me, err := s.chat.Caller(ctx, auth.IdentityFrom(ctx))
	if err != nil {
		return toStatus("watch", err)
	}

	ch, unsub := s.bus.SubscribeFor("", me.UserID, watchBuffer)
	defer unsub()
	s.logger.Debug("watch started", zap.String("user_id", me.UserID), zap.String("conversation_id", req.ConversationID))

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			if out, ok := eventToWire(evt); ok && wantEvent(req, evt) {
				if err := stream.Send(out); err != nil {
					return err
				}
			}
			// Draining ends every stream.
			if change, ok := evt.Payload.(status.StatusChange); ok && change.To == status.Draining {
				return nil
			}
		}
	}
}

// wantEvent applies the stream's conversation and kind filters. Kinds match
// by prefix, so "message" selects every message event.
func wantEvent(req *chatv1.WatchRequest, evt bus.Event) bool {
	if req.ConversationID != "" && evt.Topic != "" && evt.Topic != req.ConversationID {
		return false
	}
	if len(req.Kinds) == 0 {
		return true
	}
	for _, k := range req.Kinds {
		if strings.HasPrefix(evt.Kind, k) {
			return true
		}
	}
	return false
}
