package daemon

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/matheus3301/parley/internal/api"
	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chatv1"
	"github.com/matheus3301/parley/internal/config"
	"github.com/matheus3301/parley/internal/metrics"
	"github.com/matheus3301/parley/internal/profile"
	"github.com/matheus3301/parley/internal/status"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const unixScheme = "unix://"

// Server manages the gRPC server lifecycle for a profile daemon.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	socketPath string // set when listening on a Unix socket
	logger     *zap.Logger
}

// ServerParams are the dependencies of NewServer.
type ServerParams struct {
	fx.In

	Params        Params
	Config        *config.Config
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
	Verifier      *auth.Verifier
	Limiter       *api.RateLimiter
	Users         *api.UserService
	Conversations *api.ConversationService
	Messages      *api.MessageService
	Reactions     *api.ReactionService
	Typing        *api.TypingService
	Status        *api.ServerService
}

// NewServer creates a gRPC server bound to the configured address: a TCP
// host:port or unix:///path. The default is the profile's Unix socket.
func NewServer(sp ServerParams) (*Server, error) {
	addr := listenAddr(sp.Params, sp.Config)

	var (
		listener   net.Listener
		socketPath string
		err        error
	)
	if path, ok := strings.CutPrefix(addr, unixScheme); ok {
		socketPath = path
		// Clean stale socket if it exists.
		if _, statErr := os.Stat(socketPath); statErr == nil {
			_ = os.Remove(socketPath)
		}
		listener, err = net.Listen("unix", socketPath)
		if err != nil {
			return nil, fmt.Errorf("listen unix socket: %w", err)
		}
		if err := os.Chmod(socketPath, 0600); err != nil {
			_ = listener.Close()
			return nil, fmt.Errorf("chmod socket: %w", err)
		}
	} else {
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("listen tcp: %w", err)
		}
	}

	logger := sp.Logger
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			sp.Metrics.UnaryServerInterceptor(),
			sp.Verifier.UnaryServerInterceptor(logger),
			sp.Limiter.UnaryServerInterceptor(),
			api.ValidationInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			sp.Metrics.StreamServerInterceptor(),
			sp.Verifier.StreamServerInterceptor(logger),
		),
	)
	chatv1.RegisterUserServiceServer(srv, sp.Users)
	chatv1.RegisterConversationServiceServer(srv, sp.Conversations)
	chatv1.RegisterMessageServiceServer(srv, sp.Messages)
	chatv1.RegisterReactionServiceServer(srv, sp.Reactions)
	chatv1.RegisterTypingServiceServer(srv, sp.Typing)
	chatv1.RegisterServerServiceServer(srv, sp.Status)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	return &Server{
		grpcServer: srv,
		health:     hs,
		listener:   listener,
		socketPath: socketPath,
		logger:     logger,
	}, nil
}

func listenAddr(p Params, cfg *config.Config) string {
	switch {
	case p.Listen != "":
		return p.Listen
	case cfg.Server.Listen != "":
		return cfg.Server.Listen
	default:
		return unixScheme + profile.SocketPath(p.Profile)
	}
}

// Addr returns the address clients dial: unix:///path or host:port.
func (s *Server) Addr() string {
	if s.socketPath != "" {
		return unixScheme + s.socketPath
	}
	return s.listener.Addr().String()
}

// WatchHealth mirrors daemon state changes into the gRPC health service
// until ctx is done.
func (s *Server) WatchHealth(ctx context.Context, b *bus.Bus) {
	ch, unsub := b.Subscribe(bus.KindServerStatusChanged, 8)
	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				change, ok := evt.Payload.(status.StatusChange)
				if !ok {
					continue
				}
				st := healthpb.HealthCheckResponse_NOT_SERVING
				if change.To == status.Serving {
					st = healthpb.HealthCheckResponse_SERVING
				}
				s.health.SetServingStatus("", st)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *Server) markServing() {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
}

// Start begins serving gRPC requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("gRPC server starting", zap.String("addr", s.Addr()))
	return s.grpcServer.Serve(s.listener)
}

// Stop performs a graceful shutdown and removes the socket file. Open Watch
// streams are cut when ctx expires.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("gRPC server stopping")
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.grpcServer.Stop()
		<-done
	}
	if s.socketPath != "" {
		_ = os.Remove(s.socketPath)
	}
}
