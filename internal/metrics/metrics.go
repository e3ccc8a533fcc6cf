// Package metrics holds the daemon's Prometheus collectors and the admin
// HTTP router that exposes them.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/matheus3301/parley/internal/bus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	grpcstatus "google.golang.org/grpc/status"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	Requests      *prometheus.CounterVec
	Latency       *prometheus.HistogramVec
	Events        *prometheus.CounterVec
	WatchStreams  prometheus.Gauge
	RelayOutcomes *prometheus.CounterVec
	TypingSwept   prometheus.Counter
}

// New creates the collectors on a fresh registry, with Go and process
// collectors included.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "grpc_requests_total",
			Help:      "gRPC requests by method and status code.",
		}, []string{"method", "code"}),
		Latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "parley",
			Name:      "grpc_request_duration_seconds",
			Help:      "gRPC unary request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "events_published_total",
			Help:      "Change events published on the in-process bus.",
		}, []string{"kind"}),
		WatchStreams: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "parley",
			Name:      "watch_streams",
			Help:      "Open Watch streams.",
		}),
		RelayOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "relay_events_total",
			Help:      "Outbox events handed to the event stream, by outcome.",
		}, []string{"outcome"}),
		TypingSwept: f.NewCounter(prometheus.CounterOpts{
			Namespace: "parley",
			Name:      "typing_records_swept_total",
			Help:      "Expired typing records deleted by the sweeper.",
		}),
	}
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// UnaryServerInterceptor counts and times unary calls.
func (m *Metrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		m.Latency.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		m.Requests.WithLabelValues(info.FullMethod, grpcstatus.Code(err).String()).Inc()
		return resp, err
	}
}

// StreamServerInterceptor counts streaming calls and tracks open streams.
func (m *Metrics) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		m.WatchStreams.Inc()
		defer m.WatchStreams.Dec()
		err := handler(srv, ss)
		m.Requests.WithLabelValues(info.FullMethod, grpcstatus.Code(err).String()).Inc()
		return err
	}
}

// CountEvents counts every event published on b until ctx is done.
func (m *Metrics) CountEvents(ctx context.Context, b *bus.Bus) {
	ch, unsub := b.Subscribe("", 1024)
	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				m.Events.WithLabelValues(evt.Kind).Inc()
			case <-ctx.Done():
				return
			}
		}
	}()
}
