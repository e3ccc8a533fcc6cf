package chatv1

// Profile is the public view of a user.
type Profile struct {
	UserID     string `json:"user_id"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	ImageURL   string `json:"image_url,omitempty"`
}

// User is a full user record.
type User struct {
	Profile
	Email      string `json:"email,omitempty"`
	LastSeenAt int64  `json:"last_seen_at"`
	CreatedAt  int64  `json:"created_at"`
}

// Query responses carry NotReady=true and no data when the caller's identity
// is not established yet, so clients can retry quietly.

type ResolveUserRequest struct{}

type ResolveUserResponse struct {
	User *User `json:"user,omitempty"`
}

type HeartbeatRequest struct{}

type HeartbeatResponse struct {
	LastSeenAt int64 `json:"last_seen_at"`
}

type ListUsersRequest struct {
	Search string `json:"search,omitempty" validate:"max=128"`
}

type ListUsersResponse struct {
	NotReady bool   `json:"not_ready,omitempty"`
	Users    []User `json:"users"`
}

type CreateOrGetDirectRequest struct {
	OtherExternalID string `json:"other_external_id" validate:"required,max=256"`
}

type CreateOrGetDirectResponse struct {
	ConversationID string  `json:"conversation_id"`
	IsNew          bool    `json:"is_new"`
	Peer           Profile `json:"peer"`
}

type CreateGroupRequest struct {
	Name      string   `json:"name" validate:"max=128"`
	MemberIDs []string `json:"member_ids" validate:"max=256,dive,required"`
}

type CreateGroupResponse struct {
	ConversationID string `json:"conversation_id"`
	Name           string `json:"name"`
}

type ListConversationsRequest struct{}

// DirectPeer is the other member of a direct conversation.
type DirectPeer struct {
	Profile
	LastSeenAt int64 `json:"last_seen_at"`
}

// ConversationSummary is one entry of the conversation list.
type ConversationSummary struct {
	ConversationID     string      `json:"conversation_id"`
	Kind               string      `json:"kind"`
	Name               string      `json:"name"`
	ImageURL           string      `json:"image_url,omitempty"`
	Peer               *DirectPeer `json:"peer,omitempty"`
	MemberCount        int         `json:"member_count,omitempty"`
	LastMessageAt      int64       `json:"last_message_at,omitempty"`
	CreatedAt          int64       `json:"created_at"`
	LastMessagePreview *string     `json:"last_message_preview"`
	UnreadCount        int         `json:"unread_count"`
}

type ListConversationsResponse struct {
	NotReady      bool                  `json:"not_ready,omitempty"`
	Conversations []ConversationSummary `json:"conversations"`
}

type GetPeerInfoRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
}

// GroupInfo describes a group conversation.
type GroupInfo struct {
	Name        string    `json:"name"`
	MemberCount int       `json:"member_count"`
	Members     []Profile `json:"members"`
}

// GetPeerInfoResponse carries exactly one of Direct or Group.
type GetPeerInfoResponse struct {
	NotReady bool        `json:"not_ready,omitempty"`
	Direct   *DirectPeer `json:"direct,omitempty"`
	Group    *GroupInfo  `json:"group,omitempty"`
}

type MarkReadRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
}

type MarkReadResponse struct {
	Success bool `json:"success"`
}

type SendMessageRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	Content        string `json:"content" validate:"max=8000"`
}

type SendMessageResponse struct {
	MessageID string `json:"message_id"`
}

type ListMessagesRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
}

// Message is a message as seen by one member. Deleted messages carry no
// content.
type Message struct {
	MessageID      string  `json:"message_id"`
	ConversationID string  `json:"conversation_id"`
	Deleted        bool    `json:"deleted,omitempty"`
	Content        string  `json:"content,omitempty"`
	CreatedAt      int64   `json:"created_at"`
	IsMine         bool    `json:"is_mine"`
	Sender         Profile `json:"sender"`
}

type ListMessagesResponse struct {
	NotReady bool      `json:"not_ready,omitempty"`
	Messages []Message `json:"messages"`
}

type DeleteMessageRequest struct {
	MessageID string `json:"message_id" validate:"required"`
}

type DeleteMessageResponse struct {
	MessageID string `json:"message_id"`
}

type SetReactionRequest struct {
	MessageID string `json:"message_id" validate:"required"`
	Emoji     string `json:"emoji" validate:"required"`
}

type SetReactionResponse struct {
	Action string `json:"action"` // added, removed or replaced
	Emoji  string `json:"emoji"`
}

type ListReactionsRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
}

type Reaction struct {
	ReactionID string  `json:"reaction_id"`
	Emoji      string  `json:"emoji"`
	User       Profile `json:"user"`
	IsMine     bool    `json:"is_mine"`
	CreatedAt  int64   `json:"created_at"`
}

type ListReactionsResponse struct {
	NotReady  bool                  `json:"not_ready,omitempty"`
	Reactions map[string][]Reaction `json:"reactions"`
}

type SetTypingRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	// IsTyping defaults to true when absent.
	IsTyping *bool `json:"is_typing,omitempty"`
}

type SetTypingResponse struct{}

type GetTypingStatusRequest struct {
	ConversationID string `json:"conversation_id" validate:"required"`
}

type TypingEntry struct {
	UserID    string `json:"user_id"`
	Identity  string `json:"identity"`
	Name      string `json:"name"`
	UpdatedAt int64  `json:"updated_at"`
}

type GetTypingStatusResponse struct {
	NotReady bool          `json:"not_ready,omitempty"`
	Typing   []TypingEntry `json:"typing"`
}

// WatchRequest subscribes to change events. An empty ConversationID means
// every conversation the caller belongs to.
type WatchRequest struct {
	ConversationID string   `json:"conversation_id,omitempty"`
	Kinds          []string `json:"kinds,omitempty"`
}

// Event is a change notification. Clients re-query on receipt.
type Event struct {
	Kind           string `json:"kind"`
	ConversationID string `json:"conversation_id,omitempty"`
	MessageID      string `json:"message_id,omitempty"`
	ActorID        string `json:"actor_id,omitempty"`
	Emoji          string `json:"emoji,omitempty"`
	Action         string `json:"action,omitempty"`
	Status         string `json:"status,omitempty"`
	OccurredAt     int64  `json:"occurred_at"`
}

type GetStatusRequest struct{}

type GetStatusResponse struct {
	Profile       string `json:"profile"`
	State         string `json:"state"`
	UptimeMs      int64  `json:"uptime_ms"`
	Users         int64  `json:"users"`
	Conversations int64  `json:"conversations"`
	Messages      int64  `json:"messages"`
	TypingBackend string `json:"typing_backend"`
	EventsEnabled bool   `json:"events_enabled"`
}
