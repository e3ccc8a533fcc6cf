package chatv1

import (
	"context"

	"google.golang.org/grpc"
)

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{CallJSON()}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// UserServiceClient calls parley.v1.UserService.
type UserServiceClient struct{ cc grpc.ClientConnInterface }

func NewUserServiceClient(cc grpc.ClientConnInterface) *UserServiceClient {
	return &UserServiceClient{cc: cc}
}

func (c *UserServiceClient) ResolveUser(ctx context.Context, in *ResolveUserRequest, opts ...grpc.CallOption) (*ResolveUserResponse, error) {
	return invoke[ResolveUserResponse](ctx, c.cc, "/"+UserServiceName+"/ResolveUser", in, opts)
}

func (c *UserServiceClient) Heartbeat(ctx context.Context, in *HeartbeatRequest, opts ...grpc.CallOption) (*HeartbeatResponse, error) {
	return invoke[HeartbeatResponse](ctx, c.cc, "/"+UserServiceName+"/Heartbeat", in, opts)
}

func (c *UserServiceClient) ListUsers(ctx context.Context, in *ListUsersRequest, opts ...grpc.CallOption) (*ListUsersResponse, error) {
	return invoke[ListUsersResponse](ctx, c.cc, "/"+UserServiceName+"/ListUsers", in, opts)
}

// ConversationServiceClient calls parley.v1.ConversationService.
type ConversationServiceClient struct{ cc grpc.ClientConnInterface }

func NewConversationServiceClient(cc grpc.ClientConnInterface) *ConversationServiceClient {
	return &ConversationServiceClient{cc: cc}
}

func (c *ConversationServiceClient) CreateOrGetDirect(ctx context.Context, in *CreateOrGetDirectRequest, opts ...grpc.CallOption) (*CreateOrGetDirectResponse, error) {
	return invoke[CreateOrGetDirectResponse](ctx, c.cc, "/"+ConversationServiceName+"/CreateOrGetDirect", in, opts)
}

func (c *ConversationServiceClient) CreateGroup(ctx context.Context, in *CreateGroupRequest, opts ...grpc.CallOption) (*CreateGroupResponse, error) {
	return invoke[CreateGroupResponse](ctx, c.cc, "/"+ConversationServiceName+"/CreateGroup", in, opts)
}

func (c *ConversationServiceClient) ListConversations(ctx context.Context, in *ListConversationsRequest, opts ...grpc.CallOption) (*ListConversationsResponse, error) {
	return invoke[ListConversationsResponse](ctx, c.cc, "/"+ConversationServiceName+"/ListConversations", in, opts)
}

func (c *ConversationServiceClient) GetPeerInfo(ctx context.Context, in *GetPeerInfoRequest, opts ...grpc.CallOption) (*GetPeerInfoResponse, error) {
	return invoke[GetPeerInfoResponse](ctx, c.cc, "/"+ConversationServiceName+"/GetPeerInfo", in, opts)
}

func (c *ConversationServiceClient) MarkRead(ctx context.Context, in *MarkReadRequest, opts ...grpc.CallOption) (*MarkReadResponse, error) {
	return invoke[MarkReadResponse](ctx, c.cc, "/"+ConversationServiceName+"/MarkRead", in, opts)
}

// Watch opens the change event stream.
func (c *ConversationServiceClient) Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[Event], error) {
	opts = append([]grpc.CallOption{CallJSON()}, opts...)
	stream, err := c.cc.NewStream(ctx, &ConversationService_ServiceDesc.Streams[0], "/"+ConversationServiceName+"/Watch", opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[WatchRequest, Event]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// MessageServiceClient calls parley.v1.MessageService.
type MessageServiceClient struct{ cc grpc.ClientConnInterface }

func NewMessageServiceClient(cc grpc.ClientConnInterface) *MessageServiceClient {
	return &MessageServiceClient{cc: cc}
}

func (c *MessageServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return invoke[SendMessageResponse](ctx, c.cc, "/"+MessageServiceName+"/SendMessage", in, opts)
}

func (c *MessageServiceClient) ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error) {
	return invoke[ListMessagesResponse](ctx, c.cc, "/"+MessageServiceName+"/ListMessages", in, opts)
}

func (c *MessageServiceClient) DeleteMessage(ctx context.Context, in *DeleteMessageRequest, opts ...grpc.CallOption) (*DeleteMessageResponse, error) {
	return invoke[DeleteMessageResponse](ctx, c.cc, "/"+MessageServiceName+"/DeleteMessage", in, opts)
}

// ReactionServiceClient calls parley.v1.ReactionService.
type ReactionServiceClient struct{ cc grpc.ClientConnInterface }

func NewReactionServiceClient(cc grpc.ClientConnInterface) *ReactionServiceClient {
	return &ReactionServiceClient{cc: cc}
}

func (c *ReactionServiceClient) SetReaction(ctx context.Context, in *SetReactionRequest, opts ...grpc.CallOption) (*SetReactionResponse, error) {
	return invoke[SetReactionResponse](ctx, c.cc, "/"+ReactionServiceName+"/SetReaction", in, opts)
}

func (c *ReactionServiceClient) ListReactions(ctx context.Context, in *ListReactionsRequest, opts ...grpc.CallOption) (*ListReactionsResponse, error) {
	return invoke[ListReactionsResponse](ctx, c.cc, "/"+ReactionServiceName+"/ListReactions", in, opts)
}

// TypingServiceClient calls parley.v1.TypingService.
type TypingServiceClient struct{ cc grpc.ClientConnInterface }

func NewTypingServiceClient(cc grpc.ClientConnInterface) *TypingServiceClient {
	return &TypingServiceClient{cc: cc}
}

func (c *TypingServiceClient) SetTyping(ctx context.Context, in *SetTypingRequest, opts ...grpc.CallOption) (*SetTypingResponse, error) {
	return invoke[SetTypingResponse](ctx, c.cc, "/"+TypingServiceName+"/SetTyping", in, opts)
}

func (c *TypingServiceClient) GetTypingStatus(ctx context.Context, in *GetTypingStatusRequest, opts ...grpc.CallOption) (*GetTypingStatusResponse, error) {
	return invoke[GetTypingStatusResponse](ctx, c.cc, "/"+TypingServiceName+"/GetTypingStatus", in, opts)
}

// ServerServiceClient calls parley.v1.ServerService.
type ServerServiceClient struct{ cc grpc.ClientConnInterface }

func NewServerServiceClient(cc grpc.ClientConnInterface) *ServerServiceClient {
	return &ServerServiceClient{cc: cc}
}

func (c *ServerServiceClient) GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*GetStatusResponse, error) {
	return invoke[GetStatusResponse](ctx, c.cc, "/"+ServerServiceName+"/GetStatus", in, opts)
}
