package chatv1

import (
	"context"

	"google.golang.org/grpc"
)

// Fully-qualified service names.
const (
	UserServiceName         = "parley.v1.UserService"
	ConversationServiceName = "parley.v1.ConversationService"
	MessageServiceName      = "parley.v1.MessageService"
	ReactionServiceName     = "parley.v1.ReactionService"
	TypingServiceName       = "parley.v1.TypingService"
	ServerServiceName       = "parley.v1.ServerService"
)

type UserServiceServer interface {
	ResolveUser(context.Context, *ResolveUserRequest) (*ResolveUserResponse, error)
	Heartbeat(context.Context, *HeartbeatRequest) (*HeartbeatResponse, error)
	ListUsers(context.Context, *ListUsersRequest) (*ListUsersResponse, error)
}

type ConversationServiceServer interface {
	CreateOrGetDirect(context.Context, *CreateOrGetDirectRequest) (*CreateOrGetDirectResponse, error)
	CreateGroup(context.Context, *CreateGroupRequest) (*CreateGroupResponse, error)
	ListConversations(context.Context, *ListConversationsRequest) (*ListConversationsResponse, error)
	GetPeerInfo(context.Context, *GetPeerInfoRequest) (*GetPeerInfoResponse, error)
	MarkRead(context.Context, *MarkReadRequest) (*MarkReadResponse, error)
	Watch(*WatchRequest, grpc.ServerStreamingServer[Event]) error
}

type MessageServiceServer interface {
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
	DeleteMessage(context.Context, *DeleteMessageRequest) (*DeleteMessageResponse, error)
}

type ReactionServiceServer interface {
	SetReaction(context.Context, *SetReactionRequest) (*SetReactionResponse, error)
	ListReactions(context.Context, *ListReactionsRequest) (*ListReactionsResponse, error)
}

type TypingServiceServer interface {
	SetTyping(context.Context, *SetTypingRequest) (*SetTypingResponse, error)
	GetTypingStatus(context.Context, *GetTypingStatusRequest) (*GetTypingStatusResponse, error)
}

type ServerServiceServer interface {
	GetStatus(context.Context, *GetStatusRequest) (*GetStatusResponse, error)
}

// unary builds the method descriptor for one unary RPC of service.
func unary[S, Req, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + service + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var UserService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: UserServiceName,
	HandlerType: (*UserServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(UserServiceName, "ResolveUser", UserServiceServer.ResolveUser),
		unary(UserServiceName, "Heartbeat", UserServiceServer.Heartbeat),
		unary(UserServiceName, "ListUsers", UserServiceServer.ListUsers),
	},
	Metadata: "parley/v1/chat",
}

var ConversationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ConversationServiceName,
	HandlerType: (*ConversationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ConversationServiceName, "CreateOrGetDirect", ConversationServiceServer.CreateOrGetDirect),
		unary(ConversationServiceName, "CreateGroup", ConversationServiceServer.CreateGroup),
		unary(ConversationServiceName, "ListConversations", ConversationServiceServer.ListConversations),
		unary(ConversationServiceName, "GetPeerInfo", ConversationServiceServer.GetPeerInfo),
		unary(ConversationServiceName, "MarkRead", ConversationServiceServer.MarkRead),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				in := new(WatchRequest)
				if err := stream.RecvMsg(in); err != nil {
					return err
				}
				return srv.(ConversationServiceServer).Watch(in, &grpc.GenericServerStream[WatchRequest, Event]{ServerStream: stream})
			},
		},
	},
	Metadata: "parley/v1/chat",
}

var MessageService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: MessageServiceName,
	HandlerType: (*MessageServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MessageServiceName, "SendMessage", MessageServiceServer.SendMessage),
		unary(MessageServiceName, "ListMessages", MessageServiceServer.ListMessages),
		unary(MessageServiceName, "DeleteMessage", MessageServiceServer.DeleteMessage),
	},
	Metadata: "parley/v1/chat",
}

var ReactionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ReactionServiceName,
	HandlerType: (*ReactionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ReactionServiceName, "SetReaction", ReactionServiceServer.SetReaction),
		unary(ReactionServiceName, "ListReactions", ReactionServiceServer.ListReactions),
	},
	Metadata: "parley/v1/chat",
}

var TypingService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: TypingServiceName,
	HandlerType: (*TypingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(TypingServiceName, "SetTyping", TypingServiceServer.SetTyping),
		unary(TypingServiceName, "GetTypingStatus", TypingServiceServer.GetTypingStatus),
	},
	Metadata: "parley/v1/chat",
}

var ServerService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServerServiceName,
	HandlerType: (*ServerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ServerServiceName, "GetStatus", ServerServiceServer.GetStatus),
	},
	Metadata: "parley/v1/chat",
}

func RegisterUserServiceServer(s grpc.ServiceRegistrar, srv UserServiceServer) {
	s.RegisterService(&UserService_ServiceDesc, srv)
}

func RegisterConversationServiceServer(s grpc.ServiceRegistrar, srv ConversationServiceServer) {
	s.RegisterService(&ConversationService_ServiceDesc, srv)
}

func RegisterMessageServiceServer(s grpc.ServiceRegistrar, srv MessageServiceServer) {
	s.RegisterService(&MessageService_ServiceDesc, srv)
}

func RegisterReactionServiceServer(s grpc.ServiceRegistrar, srv ReactionServiceServer) {
	s.RegisterService(&ReactionService_ServiceDesc, srv)
}

func RegisterTypingServiceServer(s grpc.ServiceRegistrar, srv TypingServiceServer) {
	s.RegisterService(&TypingService_ServiceDesc, srv)
}

func RegisterServerServiceServer(s grpc.ServiceRegistrar, srv ServerServiceServer) {
	s.RegisterService(&ServerService_ServiceDesc, srv)
}
