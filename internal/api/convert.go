package api

import (
	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/chatv1"
	"github.com/matheus3301/parley/internal/status"
)

func profileToWire(p chat.Profile) chatv1.Profile {
	return chatv1.Profile{
		UserID:     p.UserID,
		ExternalID: p.ExternalID,
		Name:       p.Name,
		ImageURL:   p.ImageURL,
	}
}

func userToWire(u chat.User) chatv1.User {
	return chatv1.User{
		Profile:    profileToWire(u.Profile),
		Email:      u.Email,
		LastSeenAt: u.LastSeenAt,
		CreatedAt:  u.CreatedAt,
	}
}

func directPeerToWire(p chat.DirectPeer) *chatv1.DirectPeer {
	return &chatv1.DirectPeer{Profile: profileToWire(p.Profile), LastSeenAt: p.LastSeenAt}
}

func summaryToWire(s chat.ConversationSummary) chatv1.ConversationSummary {
	out := chatv1.ConversationSummary{
		ConversationID:     s.ConversationID,
		Kind:               s.Kind,
		Name:               s.Name,
		ImageURL:           s.ImageURL,
		MemberCount:        s.MemberCount,
		LastMessageAt:      s.LastMessageAt,
		CreatedAt:          s.CreatedAt,
		LastMessagePreview: s.LastMessagePreview,
		UnreadCount:        s.UnreadCount,
	}
	if s.Peer != nil {
		out.Peer = directPeerToWire(*s.Peer)
	}
	return out
}

func messageToWire(m chat.EnrichedMessage) chatv1.Message {
	out := chatv1.Message{
		MessageID:      m.MessageID,
		ConversationID: m.ConversationID,
		CreatedAt:      m.CreatedAt,
		IsMine:         m.IsMine,
		Sender:         profileToWire(m.Sender),
	}
	switch b := m.Body.(type) {
	case chat.Active:
		out.Content = b.Content
	case chat.Deleted:
		out.Deleted = true
	}
	return out
}

func reactionToWire(r chat.ReactionView) chatv1.Reaction {
	return chatv1.Reaction{
		ReactionID: r.ReactionID,
		Emoji:      r.Emoji,
		User:       profileToWire(r.Reactor),
		IsMine:     r.IsMine,
		CreatedAt:  r.CreatedAt,
	}
}

func typingToWire(e chat.TypingEntry) chatv1.TypingEntry {
	return chatv1.TypingEntry{
		UserID:    e.UserID,
		Identity:  e.ExternalID,
		Name:      e.Name,
		UpdatedAt: e.UpdatedAt,
	}
}

// eventToWire converts a bus event into a stream notification. It reports
// false for payloads the stream does not carry.
func eventToWire(evt bus.Event) (*chatv1.Event, bool) {
	switch p := evt.Payload.(type) {
	case chat.ChangeEvent:
		return &chatv1.Event{
			Kind:           p.Kind,
			ConversationID: p.ConversationID,
			MessageID:      p.MessageID,
			ActorID:        p.ActorID,
			Emoji:          p.Emoji,
			Action:         p.Action,
			OccurredAt:     p.OccurredAt,
		}, true
	case status.StatusChange:
		return &chatv1.Event{
			Kind:       evt.Kind,
			Status:     string(p.To),
			OccurredAt: evt.Timestamp.UnixMilli(),
		}, true
	default:
		return nil, false
	}
}
