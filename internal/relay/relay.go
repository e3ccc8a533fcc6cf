// Package relay drains the event outbox to Kafka.
package relay

import (
	"context"
	"time"

	"github.com/matheus3301/parley/internal/metrics"
	"github.com/matheus3301/parley/internal/store"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	// MaxAttempts parks an event as failed after this many write errors.
	MaxAttempts = 5
	batchSize   = 100
	// sentRetention is how long relayed events stay in the outbox.
	sentRetention = 24 * time.Hour
)

// Publisher writes messages to the event stream. *kafka.Writer satisfies it.
type Publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Relay polls the outbox and publishes queued events in id order.
type Relay struct {
	db        *store.DB
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	interval  time.Duration
	cancel    context.CancelFunc
	done      chan struct{}
}

// New creates a relay. m may be nil.
func New(db *store.DB, p Publisher, m *metrics.Metrics, logger *zap.Logger, interval time.Duration) *Relay {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Relay{
		db:        db,
		publisher: p,
		metrics:   m,
		logger:    logger,
		interval:  interval,
	}
}

// NewKafkaWriter returns a writer for topic that hashes keys onto
// partitions, so events of one conversation stay ordered.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

// Start begins polling the outbox.
func (r *Relay) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.done = make(chan struct{})
	go r.loop(ctx)
}

// Stop stops the loop and waits for an in-flight batch to finish.
func (r *Relay) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

func (r *Relay) loop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	prune := time.NewTicker(time.Hour)
	defer prune.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("relay flush failed", zap.Error(err))
			}
		case <-prune.C:
			cutoff := time.Now().Add(-sentRetention).UnixMilli()
			if n, err := r.db.PruneSentEvents(ctx, cutoff); err != nil {
				r.logger.Error("failed to prune relayed events", zap.Error(err))
			} else if n > 0 {
				r.logger.Debug("pruned relayed events", zap.Int64("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Flush publishes one batch of queued events and returns how many were
// relayed. A failed write leaves the batch queued with its attempts bumped.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	pending, err := r.db.PendingEvents(ctx, batchSize)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, 0, len(pending))
	ids := make([]int64, 0, len(pending))
	for _, e := range pending {
		msgs = append(msgs, kafka.Message{
			Key:   []byte(e.ConversationID),
			Value: []byte(e.Payload),
			Headers: []kafka.Header{
				{Key: "kind", Value: []byte(e.Kind)},
			},
			Time: time.UnixMilli(e.CreatedAt),
		})
		ids = append(ids, e.ID)
	}

	if err := r.publisher.WriteMessages(ctx, msgs...); err != nil {
		r.logger.Warn("failed to publish events", zap.Int("count", len(pending)), zap.Error(err))
		for _, e := range pending {
			if ferr := r.db.RecordEventFailure(ctx, e.ID, err.Error(), MaxAttempts); ferr != nil {
				r.logger.Error("failed to record relay failure", zap.Int64("event_id", e.ID), zap.Error(ferr))
			}
			if e.Attempts+1 >= MaxAttempts {
				r.logger.Error("event parked after repeated failures",
					zap.Int64("event_id", e.ID), zap.String("kind", e.Kind))
				r.count("failed", 1)
			}
		}
		r.count("retried", len(pending))
		return 0, nil
	}

	if err := r.db.MarkEventsSent(ctx, ids); err != nil {
		return 0, err
	}
	r.count("sent", len(pending))
	r.logger.Debug("events relayed", zap.Int("count", len(pending)))
	return len(pending), nil
}

func (r *Relay) count(outcome string, n int) {
	if r.metrics != nil {
		r.metrics.RelayOutcomes.WithLabelValues(outcome).Add(float64(n))
	}
}
