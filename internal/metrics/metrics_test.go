package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matheus3301/parley/internal/bus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

func TestUnaryInterceptorCounts(t *testing.T) {
	m := New()
	intercept := m.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/parley.v1.MessageService/SendMessage"}

	_, _ = intercept(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, nil
	})
	_, _ = intercept(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, grpcstatus.Error(codes.PermissionDenied, "no")
	})

	if got := testutil.ToFloat64(m.Requests.WithLabelValues(info.FullMethod, "OK")); got != 1 {
		t.Errorf("OK count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues(info.FullMethod, "PermissionDenied")); got != 1 {
		t.Errorf("PermissionDenied count = %v, want 1", got)
	}
}

func TestStreamInterceptorTracksOpenStreams(t *testing.T) {
	m := New()
	intercept := m.StreamServerInterceptor()
	info := &grpc.StreamServerInfo{FullMethod: "/parley.v1.ConversationService/Watch", IsServerStream: true}

	err := intercept(nil, nil, info, func(any, grpc.ServerStream) error {
		if got := testutil.ToFloat64(m.WatchStreams); got != 1 {
			t.Errorf("open streams during call = %v, want 1", got)
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("handler error swallowed")
	}
	if got := testutil.ToFloat64(m.WatchStreams); got != 0 {
		t.Errorf("open streams after call = %v, want 0", got)
	}
}

func TestCountEvents(t *testing.T) {
	m := New()
	b := bus.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.CountEvents(ctx, b)

	b.Publish(bus.Event{Kind: bus.KindMessageSent})
	b.Publish(bus.Event{Kind: bus.KindMessageSent})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if testutil.ToFloat64(m.Events.WithLabelValues(bus.KindMessageSent)) == 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("events not counted")
}

func TestAdminRouter(t *testing.T) {
	m := New()
	m.TypingSwept.Add(3)
	serving := false
	srv := httptest.NewServer(NewAdminRouter(m, func() (bool, string) {
		if serving {
			return true, "SERVING"
		}
		return false, "MIGRATING"
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("healthz while migrating = %d, want 503", resp.StatusCode)
	}

	serving = true
	resp, err = http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz while serving = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), "parley_typing_records_swept_total 3") {
		t.Errorf("metrics output missing swept counter:\n%s", body)
	}
}
