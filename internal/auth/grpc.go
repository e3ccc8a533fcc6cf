package auth

import (
	"context"
	"strings"

	"github.com/matheus3301/parley/internal/chat"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// MetadataKey is the gRPC metadata key carrying "Bearer <token>".
const MetadataKey = "authorization"

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *chat.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller's identity, or nil when the request carried
// no valid token.
func IdentityFrom(ctx context.Context) *chat.Identity {
	id, _ := ctx.Value(identityKey{}).(*chat.Identity)
	return id
}

// authenticate attaches the identity behind the request's bearer token, if
// any. A missing or invalid token leaves the context anonymous; handlers
// decide whether that is fatal.
func (v *Verifier) authenticate(ctx context.Context, logger *zap.Logger, method string) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}
	values := md.Get(MetadataKey)
	if len(values) == 0 {
		return ctx
	}
	token, found := strings.CutPrefix(values[0], "Bearer ")
	if !found {
		logger.Debug("authorization header without bearer scheme", zap.String("method", method))
		return ctx
	}
	id, err := v.Verify(strings.TrimSpace(token))
	if err != nil {
		logger.Debug("rejected token", zap.String("method", method), zap.Error(err))
		return ctx
	}
	return WithIdentity(ctx, id)
}

// UnaryServerInterceptor resolves the bearer token of unary calls.
func (v *Verifier) UnaryServerInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		return handler(v.authenticate(ctx, logger, info.FullMethod), req)
	}
}

// StreamServerInterceptor resolves the bearer token of streaming calls.
func (v *Verifier) StreamServerInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx := v.authenticate(ss.Context(), logger, info.FullMethod)
		return handler(srv, &contextStream{ServerStream: ss, ctx: ctx})
	}
}

type contextStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *contextStream) Context() context.Context { return s.ctx }

// BearerToken sends a token with every call. It does not require transport
// security because the daemon listens on loopback or a Unix socket.
type BearerToken string

func (t BearerToken) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	if t == "" {
		return nil, nil
	}
	return map[string]string{MetadataKey: "Bearer " + string(t)}, nil
}

func (BearerToken) RequireTransportSecurity() bool { return false }
