package api

import (
	"github.com/matheus3301/parley/internal/chat"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// toStatus maps a chat error onto a gRPC status. Unclassified errors are
// storage failures and surface as Internal.
func toStatus(op string, err error) error {
	switch chat.CodeOf(err) {
	case chat.CodeUnauthenticated:
		return grpcstatus.Error(codes.Unauthenticated, err.Error())
	case chat.CodeNotFound:
		return grpcstatus.Error(codes.NotFound, err.Error())
	case chat.CodeForbidden:
		return grpcstatus.Error(codes.PermissionDenied, err.Error())
	case chat.CodeInvalidArgument:
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	default:
		return grpcstatus.Errorf(codes.Internal, "%s: %v", op, err)
	}
}

// notReady reports whether a query failed only because the caller is not
// authenticated yet. Such queries answer with NotReady instead of an error.
func notReady(err error) bool {
	return chat.CodeOf(err) == chat.CodeUnauthenticated
}
