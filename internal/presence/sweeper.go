package presence

import (
	"context"
	"time"

	"github.com/matheus3301/parley/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Sweeper periodically deletes SQLite typing records older than the
// retention window.
type Sweeper struct {
	db        *store.DB
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time
	swept     prometheus.Counter
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSweeper creates a typing sweeper.
func NewSweeper(db *store.DB, retention, interval time.Duration, logger *zap.Logger) *Sweeper {
	if retention <= 0 {
		retention = time.Minute
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{
		db:        db,
		retention: retention,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// CountInto adds the number of swept records to c.
func (s *Sweeper) CountInto(c prometheus.Counter) {
	s.swept = c
}

// Start begins sweeping in the background.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
}

// Stop stops the sweep loop and waits for it to exit.
func (s *Sweeper) Stop() {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("typing sweep failed", zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Sweep deletes stale typing records once and reports how many went.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.retention).UnixMilli()
	n, err := s.db.DeleteTypingBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug("swept typing records", zap.Int64("count", n))
		if s.swept != nil {
			s.swept.Add(float64(n))
		}
	}
	return n, nil
}
