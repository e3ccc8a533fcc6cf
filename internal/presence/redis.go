package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/store"
	"github.com/redis/go-redis/v9"
)

var _ chat.TypingTracker = (*RedisTyping)(nil)

// RedisTyping keeps typing records in one sorted set per conversation,
// member = user id, score = update time in unix ms. Entries older than the
// retention window are trimmed on every write.
type RedisTyping struct {
	rdb       redis.Cmdable
	prefix    string
	retention time.Duration
}

// NewRedisTyping creates a Redis-backed typing tracker.
func NewRedisTyping(rdb redis.Cmdable, prefix string, retention time.Duration) *RedisTyping {
	if prefix == "" {
		prefix = "parley:typing:"
	}
	if retention <= 0 {
		retention = time.Minute
	}
	return &RedisTyping{rdb: rdb, prefix: prefix, retention: retention}
}

func (r *RedisTyping) key(conversationID string) string {
	return r.prefix + conversationID
}

// Touch records that userID is typing at the given time.
func (r *RedisTyping) Touch(ctx context.Context, userID, conversationID string, at time.Time) error {
	key := r.key(conversationID)
	ms := at.UnixMilli()
	cutoff := ms - r.retention.Milliseconds()
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, key, redis.Z{Score: float64(ms), Member: userID})
		p.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
		p.Expire(ctx, key, r.retention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis touch typing: %w", err)
	}
	return nil
}

// Clear removes userID's typing record. Missing records are not an error.
func (r *RedisTyping) Clear(ctx context.Context, userID, conversationID string) error {
	if err := r.rdb.ZRem(ctx, r.key(conversationID), userID).Err(); err != nil {
		return fmt.Errorf("redis clear typing: %w", err)
	}
	return nil
}

// List returns the conversation's typing records, newest first.
func (r *RedisTyping) List(ctx context.Context, conversationID string) ([]store.Typing, error) {
	zs, err := r.rdb.ZRevRangeWithScores(ctx, r.key(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list typing: %w", err)
	}
	out := make([]store.Typing, 0, len(zs))
	for _, z := range zs {
		userID, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, store.Typing{
			UserID:         userID,
			ConversationID: conversationID,
			UpdatedAt:      int64(z.Score),
		})
	}
	return out, nil
}
