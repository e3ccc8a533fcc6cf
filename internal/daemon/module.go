package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/matheus3301/parley/internal/api"
	"github.com/matheus3301/parley/internal/auth"
	"github.com/matheus3301/parley/internal/bus"
	"github.com/matheus3301/parley/internal/chat"
	"github.com/matheus3301/parley/internal/config"
	"github.com/matheus3301/parley/internal/lock"
	"github.com/matheus3301/parley/internal/logging"
	"github.com/matheus3301/parley/internal/metrics"
	"github.com/matheus3301/parley/internal/presence"
	"github.com/matheus3301/parley/internal/profile"
	"github.com/matheus3301/parley/internal/relay"
	"github.com/matheus3301/parley/internal/status"
	"github.com/matheus3301/parley/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile  string
	Config   *config.Config
	LogLevel zapcore.Level
	// Listen overrides Config.Server.Listen. Empty falls back to the config,
	// then to the profile's socket.
	Listen string
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideMetrics,
			provideLock,
			provideStore,
			provideTyping,
			provideChatService,
			provideVerifier,
			provideRateLimiter,
			provideRelay,
			api.NewUserService,
			api.NewConversationService,
			api.NewMessageService,
			api.NewReactionService,
			api.NewTypingService,
			provideServerService,
			NewServer,
			provideAdmin,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) *config.Config {
	if p.Config == nil {
		return config.Default()
	}
	return p.Config
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.Profile), p.Profile, p.LogLevel)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideMetrics() *metrics.Metrics {
	return metrics.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore opens and migrates the database. It depends on the lock so
// two daemons never migrate the same file.
func provideStore(p Params, _ *lock.Lock, machine *status.Machine, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.Profile)
	db, err := store.Open(dbPath)
	if err != nil {
		_ = machine.Transition(status.Failed)
		return nil, err
	}
	_ = machine.Transition(status.Migrating)
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		_ = machine.Transition(status.Failed)
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

// typingBackend is the configured typing tracker plus whatever keeps it
// bounded: the SQLite sweeper or the Redis client to close.
type typingBackend struct {
	name    string
	tracker chat.TypingTracker
	sweeper *presence.Sweeper
	redis   *redis.Client
}

func provideTyping(cfg *config.Config, db *store.DB, m *metrics.Metrics, logger *zap.Logger) (*typingBackend, error) {
	switch cfg.Typing.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Typing.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Typing.RedisAddr, err)
		}
		logger.Info("typing backend ready", zap.String("backend", "redis"), zap.String("addr", cfg.Typing.RedisAddr))
		return &typingBackend{
			name:    "redis",
			tracker: presence.NewRedisTyping(rdb, cfg.Typing.RedisPrefix, cfg.Typing.Retention),
			redis:   rdb,
		}, nil
	case "", "sqlite":
		sw := presence.NewSweeper(db, cfg.Typing.Retention, cfg.Typing.SweepInterval, logger)
		sw.CountInto(m.TypingSwept)
		return &typingBackend{name: "sqlite", tracker: chat.NewStoreTyping(db), sweeper: sw}, nil
	default:
		return nil, fmt.Errorf("unknown typing backend %q", cfg.Typing.Backend)
	}
}

func provideChatService(cfg *config.Config, db *store.DB, tb *typingBackend, b *bus.Bus, logger *zap.Logger) *chat.Service {
	return chat.NewService(db, tb.tracker, b, logger, chat.WithEventOutbox(cfg.Events.Enabled))
}

func provideVerifier(cfg *config.Config) (*auth.Verifier, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is not set")
	}
	return auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer), nil
}

func provideRateLimiter(cfg *config.Config) *api.RateLimiter {
	return api.NewRateLimiter(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)
}

// eventRelay is the Kafka relay, empty when events are disabled.
type eventRelay struct {
	relay  *relay.Relay
	writer *kafka.Writer
}

func provideRelay(cfg *config.Config, db *store.DB, m *metrics.Metrics, logger *zap.Logger) *eventRelay {
	if !cfg.Events.Enabled {
		return &eventRelay{}
	}
	w := relay.NewKafkaWriter(cfg.Events.KafkaBrokers, cfg.Events.Topic)
	logger.Info("event relay enabled",
		zap.Strings("brokers", cfg.Events.KafkaBrokers), zap.String("topic", cfg.Events.Topic))
	return &eventRelay{
		relay:  relay.New(db, w, m, logger.Named("relay"), 0),
		writer: w,
	}
}

func provideServerService(p Params, cfg *config.Config, tb *typingBackend, machine *status.Machine, db *store.DB) *api.ServerService {
	return api.NewServerService(api.ServerInfo{
		Profile:       p.Profile,
		TypingBackend: tb.name,
		EventsEnabled: cfg.Events.Enabled,
		StartedAt:     time.Now(),
	}, machine, db)
}

// provideAdmin builds the admin HTTP server, or nil when no admin address
// is configured.
func provideAdmin(cfg *config.Config, m *metrics.Metrics, machine *status.Machine) *http.Server {
	if cfg.Server.AdminListen == "" {
		return nil
	}
	health := func() (bool, string) {
		return machine.Serving(), string(machine.Current())
	}
	return &http.Server{
		Addr:              cfg.Server.AdminListen,
		Handler:           metrics.NewAdminRouter(m, health),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

type lifecycleParams struct {
	fx.In

	Server  *Server
	Admin   *http.Server
	Lock    *lock.Lock
	DB      *store.DB
	Typing  *typingBackend
	Relay   *eventRelay
	Metrics *metrics.Metrics
	Machine *status.Machine
	Bus     *bus.Bus
	Logger  *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, p lifecycleParams) {
	ctx, cancel := context.WithCancel(context.Background())
	logger := p.Logger

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			p.Metrics.CountEvents(ctx, p.Bus)
			p.Server.WatchHealth(ctx, p.Bus)

			if p.Typing.sweeper != nil {
				p.Typing.sweeper.Start(ctx)
			}
			if p.Relay.relay != nil {
				p.Relay.relay.Start(ctx)
			}

			// Start gRPC server in background.
			go func() {
				if err := p.Server.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
					_ = p.Machine.Transition(status.Failed)
				}
			}()
			if err := p.Lock.SetAddress(p.Server.Addr()); err != nil {
				logger.Warn("failed to record listen address", zap.Error(err))
			}

			if p.Admin != nil {
				go func() {
					logger.Info("admin server starting", zap.String("addr", p.Admin.Addr))
					if err := p.Admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("admin server error", zap.Error(err))
					}
				}()
			}

			if err := p.Machine.Transition(status.Serving); err != nil {
				return err
			}
			p.Server.markServing()
			logger.Info("daemon serving", zap.String("addr", p.Server.Addr()))
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			_ = p.Machine.Transition(status.Draining)
			p.Server.Stop(stopCtx)
			if p.Admin != nil {
				if err := p.Admin.Shutdown(stopCtx); err != nil {
					logger.Warn("admin shutdown", zap.Error(err))
				}
			}

			cancel()
			if p.Relay.relay != nil {
				p.Relay.relay.Stop()
				if err := p.Relay.writer.Close(); err != nil {
					logger.Warn("error closing kafka writer", zap.Error(err))
				}
			}
			if p.Typing.sweeper != nil {
				p.Typing.sweeper.Stop()
			}
			if p.Typing.redis != nil {
				_ = p.Typing.redis.Close()
			}
			if err := p.DB.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}

			_ = p.Machine.Transition(status.Stopped)
			if err := p.Lock.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
