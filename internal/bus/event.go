package bus

import (
	"slices"
	"time"
)

// Event kinds published by the chat service and the daemon.
const (
	KindMessageSent         = "message.sent"
	KindMessageDeleted      = "message.deleted"
	KindReactionChanged     = "reaction.changed"
	KindTypingChanged       = "typing.changed"
	KindReadMarked          = "read.marked"
	KindConversationCreated = "conversation.created"
	KindServerStatusChanged = "server.status_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind string
	// Topic is the conversation the event concerns, empty for server-wide events.
	Topic string
	// Audience lists the user IDs allowed to observe the event. An empty
	// audience means every subscriber.
	Audience  []string
	Timestamp time.Time
	Payload   any
}

func (e Event) visibleTo(recipient string) bool {
	if recipient == "" || len(e.Audience) == 0 {
		return true
	}
	return slices.Contains(e.Audience, recipient)
}
