// Package client dials a parley daemon and keeps time-based views of its
// presence and typing data current.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/chatv1"
	"github.com/matheus3301/parley/internal/lock"
	"github.com/matheus3301/parley/internal/presence"
	"github.com/matheus3301/parley/internal/profile"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client wraps a gRPC connection to the daemon.
type Client struct {
	conn          *grpc.ClientConn
	Users         *chatv1.UserServiceClient
	Conversations *chatv1.ConversationServiceClient
	Messages      *chatv1.MessageServiceClient
	Reactions     *chatv1.ReactionServiceClient
	Typing        *chatv1.TypingServiceClient
	Server        *chatv1.ServerServiceClient
}

// New dials addr (host:port or unix:///path) and returns typed service
// clients. A non-empty token is sent as a bearer token on every call.
func New(addr, token string) (*Client, error) {
	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if token != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(auth.BearerToken(token)))
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}

	return &Client{
		conn:          conn,
		Users:         chatv1.NewUserServiceClient(conn),
		Conversations: chatv1.NewConversationServiceClient(conn),
		Messages:      chatv1.NewMessageServiceClient(conn),
		Reactions:     chatv1.NewReactionServiceClient(conn),
		Typing:        chatv1.NewTypingServiceClient(conn),
		Server:        chatv1.NewServerServiceClient(conn),
	}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Discover returns the address the profile's running daemon recorded in its
// lock file, falling back to the profile's default socket.
func Discover(profileName string) (string, error) {
	info, err := lock.ReadInfo(profile.Dir(profileName))
	if errors.Is(err, lock.ErrNotRunning) {
		return "", fmt.Errorf("no daemon running for profile %q", profileName)
	}
	if err != nil {
		return "", err
	}
	if info.Addr == "" {
		return "unix://" + profile.SocketPath(profileName), nil
	}
	return info.Addr, nil
}

// Probe reports whether a daemon answers at addr.
func Probe(addr string) bool {
	c, err := New(addr, "")
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := c.Server.GetStatus(ctx, &chatv1.GetStatusRequest{})
	return err == nil && resp.State == "SERVING"
}

// WaitReady polls the profile's daemon until it serves or timeout passes,
// and returns its address.
func WaitReady(profileName string, timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if addr, err := Discover(profileName); err == nil && Probe(addr) {
			return addr, true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return "", false
}

// KeepAlive sends a heartbeat every interval until ctx is done, so the
// caller keeps counting as online.
func (c *Client) KeepAlive(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = presence.HeartbeatInterval
	}
	beat := func() {
		if _, err := c.Users.Heartbeat(ctx, &chatv1.HeartbeatRequest{}); err != nil && ctx.Err() == nil {
			logger.Warn("heartbeat failed", zap.Error(err))
		}
	}
	go func() {
		beat()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				beat()
			case <-ctx.Done():
				return
			}
		}
	}()
}
