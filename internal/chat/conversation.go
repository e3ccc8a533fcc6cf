package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/store"
	"go.uber.org/zap"
)

// DirectResult is the outcome of CreateOrGetDirect.
type DirectResult struct {
	ConversationID string
	IsNew          bool
	Peer           Profile
}

// GroupResult is the outcome of CreateGroup.
type GroupResult struct {
	ConversationID string
	Name           string
}

// ConversationSummary is one entry of a user's conversation list.
type ConversationSummary struct {
	ConversationID string
	Kind           string
	Name           string
	ImageURL       string
	// Peer is set for direct conversations.
	Peer *DirectPeer
	// MemberCount is set for group conversations.
	MemberCount   int
	LastMessageAt int64
	CreatedAt     int64
	// LastMessagePreview is nil when the conversation has no messages.
	LastMessagePreview *string
	UnreadCount        int
}

// PeerInfo is either a DirectPeer or a GroupInfo.
type PeerInfo interface{ isPeerInfo() }

// DirectPeer describes the other member of a direct conversation.
type DirectPeer struct {
	Profile
	LastSeenAt int64
}

// GroupInfo describes a group conversation.
type GroupInfo struct {
	Name        string
	MemberCount int
	Members     []Profile
}

func (DirectPeer) isPeerInfo() {}
func (GroupInfo) isPeerInfo()  {}

// CreateOrGetDirect returns the direct conversation between the caller and
// the user with otherExternalID, creating it if the pair has none.
func (s *Service) CreateOrGetDirect(ctx context.Context, id *Identity, otherExternalID string) (DirectResult, error) {
	me, err := s.caller(ctx, id)
	if err != nil {
		return DirectResult{}, err
	}
	other, err := s.db.GetUserByExternalID(ctx, otherExternalID)
	if err != nil {
		return DirectResult{}, fmt.Errorf("get user: %w", err)
	}
	if other == nil {
		return DirectResult{}, errorf(CodeNotFound, "user not found")
	}
	if other.ID == me.ID {
		return DirectResult{}, errorf(CodeInvalidArgument, "cannot start a conversation with yourself")
	}

	res := DirectResult{Peer: profileOf(other)}
	var evt ChangeEvent
	err = s.db.InTx(ctx, func(tx *store.Tx) error {
		existing, err := tx.GetDirectConversation(ctx, me.ID, other.ID)
		if err != nil {
			return fmt.Errorf("get direct conversation: %w", err)
		}
		if existing != nil {
			res.ConversationID = existing.ID
			return nil
		}

		now := s.nowMs()
		conv := &store.Conversation{
			ID:        newID(),
			Kind:      store.KindDirect,
			CreatedBy: me.ID,
			CreatedAt: now,
			MemberIDs: []string{me.ID, other.ID},
		}
		if _, err := tx.InsertConversation(ctx, conv); err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}
		res.ConversationID, res.IsNew = conv.ID, true
		evt = ChangeEvent{Kind: bus.KindConversationCreated, ConversationID: conv.ID, ActorID: me.ID, OccurredAt: now}
		return s.queue(ctx, tx, evt)
	})
	if err != nil {
		return DirectResult{}, err
	}
	if res.IsNew {
		s.logger.Info("direct conversation created",
			zap.String("conversation_id", res.ConversationID), zap.String("user_id", me.ID))
		s.publish(evt, []string{me.ID, other.ID})
	}
	return res, nil
}

// CreateGroup creates a group conversation of the caller plus memberIDs.
// Duplicate ids and the caller's own id are ignored.
func (s *Service) CreateGroup(ctx context.Context, id *Identity, name string, memberIDs []string) (GroupResult, error) {
	me, err := s.caller(ctx, id)
	if err != nil {
		return GroupResult{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return GroupResult{}, errorf(CodeInvalidArgument, "group name is required")
	}

	seen := map[string]bool{me.ID: true}
	others := make([]string, 0, len(memberIDs))
	for _, mid := range memberIDs {
		if seen[mid] {
			continue
		}
		seen[mid] = true
		others = append(others, mid)
	}
	if len(others) == 0 {
		return GroupResult{}, errorf(CodeInvalidArgument, "a group needs at least one other member")
	}

	conv := &store.Conversation{
		ID:        newID(),
		Kind:      store.KindGroup,
		Name:      name,
		CreatedBy: me.ID,
		MemberIDs: append([]string{me.ID}, others...),
	}
	var evt ChangeEvent
	err = s.db.InTx(ctx, func(tx *store.Tx) error {
		users, err := tx.GetUsers(ctx, others)
		if err != nil {
			return fmt.Errorf("get users: %w", err)
		}
		for _, mid := range others {
			if users[mid] == nil {
				return errorf(CodeNotFound, "user %s not found", mid)
			}
		}

		conv.CreatedAt = s.nowMs()
		if _, err := tx.InsertConversation(ctx, conv); err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}
		evt = ChangeEvent{Kind: bus.KindConversationCreated, ConversationID: conv.ID, ActorID: me.ID, OccurredAt: conv.CreatedAt}
		return s.queue(ctx, tx, evt)
	})
	if err != nil {
		return GroupResult{}, err
	}

	s.logger.Info("group created",
		zap.String("conversation_id", conv.ID), zap.Int("members", len(conv.MemberIDs)))
	s.publish(evt, conv.MemberIDs)
	return GroupResult{ConversationID: conv.ID, Name: name}, nil
}

// ListConversations returns every conversation the caller belongs to, most
// recently active first. Ties go to the conversation with more unread
// messages.
func (s *Service) ListConversations(ctx context.Context, id *Identity) ([]ConversationSummary, error) {
	me, err := s.caller(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.ListConversationsForUser(ctx, me.ID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	out := make([]ConversationSummary, 0, len(rows))
	for _, r := range rows {
		sum := ConversationSummary{
			ConversationID: r.ID,
			Kind:           r.Kind,
			LastMessageAt:  r.LastMessageAt,
			CreatedAt:      r.CreatedAt,
			UnreadCount:    r.UnreadCount,
		}
		if r.Kind == store.KindDirect {
			peer := DirectPeer{Profile: profileOf(r.Peer)}
			if r.Peer != nil {
				peer.LastSeenAt = r.Peer.LastSeenAt
			}
			sum.Name, sum.ImageURL, sum.Peer = peer.Name, peer.ImageURL, &peer
		} else {
			sum.Name = r.Name
			if sum.Name == "" {
				sum.Name = UnnamedGroupName
			}
			sum.MemberCount = r.MemberCount
		}
		if r.HasLastMessage {
			preview := r.LastMessageContent
			if r.LastMessageDeleted {
				preview = DeletedPreview
			}
			sum.LastMessagePreview = &preview
		}
		out = append(out, sum)
	}
	return out, nil
}

// GetPeerInfo describes the other side of a conversation: the peer of a
// direct conversation or the member list of a group.
func (s *Service) GetPeerInfo(ctx context.Context, id *Identity, conversationID string) (PeerInfo, error) {
	me, err := s.caller(ctx, id)
	if err != nil {
		return nil, err
	}
	conv, err := member(ctx, s.db.Queries, conversationID, me.ID)
	if err != nil {
		return nil, err
	}
	users, err := s.db.GetUsers(ctx, conv.MemberIDs)
	if err != nil {
		return nil, fmt.Errorf("get users: %w", err)
	}

	if conv.Kind == store.KindDirect {
		for _, uid := range conv.MemberIDs {
			if uid == me.ID {
				continue
			}
			u := users[uid]
			peer := DirectPeer{Profile: profileOf(u)}
			if u != nil {
				peer.LastSeenAt = u.LastSeenAt
			}
			return peer, nil
		}
		return DirectPeer{Profile: profileOf(nil)}, nil
	}

	info := GroupInfo{Name: conv.Name, MemberCount: len(conv.MemberIDs)}
	if info.Name == "" {
		info.Name = UnnamedGroupName
	}
	for _, uid := range conv.MemberIDs {
		if u := users[uid]; u != nil {
			info.Members = append(info.Members, profileOf(u))
		}
	}
	return info, nil
}
