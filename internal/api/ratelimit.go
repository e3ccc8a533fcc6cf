package api

import (
	"context"
	"sync"

	"github.com/matheus3301/parley/internal/auth"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// mutations are the rate-limited methods.
var mutations = map[string]bool{
	"/parley.v1.ConversationService/CreateOrGetDirect": true,
	"/parley.v1.ConversationService/CreateGroup":       true,
	"/parley.v1.ConversationService/MarkRead":          true,
	"/parley.v1.MessageService/SendMessage":            true,
	"/parley.v1.MessageService/DeleteMessage":          true,
	"/parley.v1.ReactionService/SetReaction":           true,
	"/parley.v1.TypingService/SetTyping":               true,
}

// RateLimiter keeps one token bucket per authenticated subject.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewRateLimiter allows perMinute mutations per subject with the given burst.
// A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
	}
	return &RateLimiter{buckets: make(map[string]*rate.Limiter), limit: limit, burst: burst}
}

func (l *RateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[key]; ok {
		return b
	}
	b := rate.NewLimiter(l.limit, l.burst)
	l.buckets[key] = b
	return b
}

// Allow reports whether subject may perform another mutation now.
func (l *RateLimiter) Allow(subject string) bool {
	return l.get(subject).Allow()
}

// UnaryServerInterceptor rejects mutations beyond the caller's budget with
// ResourceExhausted. Anonymous calls are left to fail authentication.
func (l *RateLimiter) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if mutations[info.FullMethod] {
			if id := auth.IdentityFrom(ctx); id != nil && !l.Allow(id.Subject) {
				return nil, grpcstatus.Errorf(codes.ResourceExhausted, "too many requests, slow down")
			}
		}
		return handler(ctx, req)
	}
}
