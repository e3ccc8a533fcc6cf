package daemon

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/chatv1"
	"github.com/matheus3301/parley/internal/config"
	"github.com/matheus3301/parley/internal/lock"
	"github.com/matheus3301/parley/internal/profile"
	"github.com/matheus3301/parley/internal/status"
	"go.uber.org/fx"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const testSecret = "daemon-test-secret"

// testHome points PARLEY_HOME at a short temp dir to stay under the Unix
// socket path limit.
func testHome(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "parley-d-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	t.Setenv("PARLEY_HOME", dir)
	return dir
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Auth.JWTSecret = testSecret
	cfg.Server.AdminListen = ""
	return cfg
}

// TestFxModuleWiring verifies the fx dependency graph resolves without errors.
func TestFxModuleWiring(t *testing.T) {
	testHome(t)
	if err := fx.ValidateApp(Module(Params{Profile: "fxtest", Config: testConfig()})); err != nil {
		t.Fatalf("ValidateApp() error = %v", err)
	}
}

func TestListenAddr(t *testing.T) {
	home := testHome(t)
	cfg := testConfig()

	if got, want := listenAddr(Params{Profile: "p"}, cfg), "unix://"+filepath.Join(home, "profiles", "p", "parleyd.sock"); got != want {
		t.Errorf("default = %q, want %q", got, want)
	}
	cfg.Server.Listen = "127.0.0.1:7420"
	if got := listenAddr(Params{Profile: "p"}, cfg); got != "127.0.0.1:7420" {
		t.Errorf("config = %q, want 127.0.0.1:7420", got)
	}
	if got := listenAddr(Params{Profile: "p", Listen: "127.0.0.1:0"}, cfg); got != "127.0.0.1:0" {
		t.Errorf("override = %q, want 127.0.0.1:0", got)
	}
}

func TestDaemonLifecycle(t *testing.T) {
	testHome(t)
	const profileName = "test"

	app := fx.New(
		Module(Params{Profile: profileName, Config: testConfig(), LogLevel: zapcore.WarnLevel}),
		fx.NopLogger,
	)
	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	stopped := false
	defer func() {
		if !stopped {
			_ = app.Stop(context.Background())
		}
	}()

	// A second daemon on the same profile is refused.
	if _, err := lock.Acquire(profile.Dir(profileName)); err == nil {
		t.Fatal("expected the profile lock to be held")
	}

	info, err := lock.ReadInfo(profile.Dir(profileName))
	if err != nil {
		t.Fatalf("ReadInfo() error = %v", err)
	}
	if info.PID != os.Getpid() {
		t.Errorf("pid = %d, want %d", info.PID, os.Getpid())
	}

	tok, err := auth.Mint(testSecret, "parley", chat.Identity{Subject: "alice", Name: "Alice"}, time.Hour, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	conn, err := grpc.NewClient(info.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(auth.BearerToken(tok)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()
	ctx := context.Background()

	st, err := chatv1.NewServerServiceClient(conn).GetStatus(ctx, &chatv1.GetStatusRequest{})
	if err != nil {
		t.Fatalf("GetStatus error = %v", err)
	}
	if st.State != string(status.Serving) || st.Profile != profileName || st.TypingBackend != "sqlite" {
		t.Errorf("status = %+v, want SERVING sqlite %s", st, profileName)
	}

	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health Check error = %v", err)
	}
	if hc.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("health = %v, want SERVING", hc.Status)
	}

	user, err := chatv1.NewUserServiceClient(conn).ResolveUser(ctx, &chatv1.ResolveUserRequest{})
	if err != nil {
		t.Fatalf("ResolveUser error = %v", err)
	}
	if user.User.ExternalID != "alice" {
		t.Errorf("external id = %q, want alice", user.User.ExternalID)
	}

	stream, err := chatv1.NewConversationServiceClient(conn).Watch(ctx, &chatv1.WatchRequest{Kinds: []string{bus.KindServerStatusChanged}})
	if err != nil {
		t.Fatal(err)
	}
	// Let the stream subscribe before shutting down.
	time.Sleep(100 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	stopped = true

	evt, err := stream.Recv()
	if err != nil {
		t.Fatalf("Recv error = %v", err)
	}
	if evt.Status != string(status.Draining) {
		t.Errorf("status event = %+v, want DRAINING", evt)
	}
	if _, err := stream.Recv(); err != io.EOF {
		t.Errorf("stream end = %v, want EOF", err)
	}

	if _, err := lock.ReadInfo(profile.Dir(profileName)); err != lock.ErrNotRunning {
		t.Errorf("ReadInfo after stop = %v, want ErrNotRunning", err)
	}
}
