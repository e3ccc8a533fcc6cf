package presence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/parley/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestFreshness(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	tests := []struct {
		name  string
		check func(int64, time.Time) bool
		at    int64
		want  bool
	}{
		{"online just now", IsOnline, now.UnixMilli(), true},
		{"online 29s ago", IsOnline, now.Add(-29 * time.Second).UnixMilli(), true},
		{"offline at 30s", IsOnline, now.Add(-30 * time.Second).UnixMilli(), false},
		{"never seen", IsOnline, 0, false},
		{"typing 2s ago", IsTyping, now.Add(-2 * time.Second).UnixMilli(), true},
		{"typing stale at 3s", IsTyping, now.Add(-3 * time.Second).UnixMilli(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.at, now); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.UnixMilli(10_000_000)

	if err := db.TouchTyping(ctx, "old", "c1", now.Add(-2*time.Minute).UnixMilli()); err != nil {
		t.Fatal(err)
	}
	if err := db.TouchTyping(ctx, "recent", "c1", now.Add(-5*time.Second).UnixMilli()); err != nil {
		t.Fatal(err)
	}

	s := NewSweeper(db, time.Minute, time.Hour, zap.NewNop())
	s.now = func() time.Time { return now }
	swept := prometheus.NewCounter(prometheus.CounterOpts{Name: "swept"})
	s.CountInto(swept)

	n, err := s.Sweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("swept %d, want 1", n)
	}
	if got := testutil.ToFloat64(swept); got != 1 {
		t.Errorf("counter = %v, want 1", got)
	}
	recs, _ := db.ListTyping(ctx, "c1")
	if len(recs) != 1 || recs[0].UserID != "recent" {
		t.Errorf("got %+v, want only recent", recs)
	}
}

func TestSweeperLoop(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	if err := db.TouchTyping(ctx, "u", "c1", 1); err != nil {
		t.Fatal(err)
	}

	s := NewSweeper(db, time.Minute, 20*time.Millisecond, zap.NewNop())
	s.Start(ctx)
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		recs, err := db.ListTyping(ctx, "c1")
		if err != nil {
			t.Fatal(err)
		}
		if len(recs) == 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("sweeper did not remove the expired record")
}
