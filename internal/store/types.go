package store

// Conversation kinds.
const (
	KindDirect = "direct"
	KindGroup  = "group"
)

// User is an internal user record keyed by the identity provider's subject.
type User struct {
	ID         string
	ExternalID string
	Name       string
	Email      string
	ImageURL   string
	LastSeenAt int64
	CreatedAt  int64
}

// Conversation is a direct or group conversation. LastMessageAt and
// LastMessageID are zero until the first message is sent.
type Conversation struct {
	ID            string
	Kind          string
	Name          string
	CreatedBy     string
	CreatedAt     int64
	LastMessageAt int64
	LastMessageID string
	MemberIDs     []string
}

// ConversationRow is a conversation as seen by one member, with the derived
// fields needed for the conversation list.
type ConversationRow struct {
	Conversation
	MemberCount        int
	UnreadCount        int
	LastMessageContent string
	LastMessageDeleted bool
	HasLastMessage     bool
	Peer               *User // other member of a direct conversation
}

// Message is a stored message. Content is retained after soft delete.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Content        string
	IsDeleted      bool
	CreatedAt      int64
}

// MessageRow is a message joined with its sender.
type MessageRow struct {
	Message
	Sender *User
}

// Reaction is one user's emoji on one message.
type Reaction struct {
	ID        string
	MessageID string
	UserID    string
	Type      string
	CreatedAt int64
}

// ReactionRow is a reaction joined with its reactor.
type ReactionRow struct {
	Reaction
	User *User
}

// Typing is an ephemeral "is typing" record.
type Typing struct {
	UserID         string
	ConversationID string
	UpdatedAt      int64
}

// OutboxEvent is a change event waiting to be relayed to the event stream.
type OutboxEvent struct {
	ID             int64
	Kind           string
	ConversationID string
	Payload        string
	Status         string // queued, sent, failed
	Attempts       int
	ErrorMessage   string
	CreatedAt      int64
}
