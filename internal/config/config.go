package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the global ~/.parley/config.toml.
type Config struct {
	DefaultProfile string          `toml:"default_profile"`
	Server         ServerConfig    `toml:"server"`
	Auth           AuthConfig      `toml:"auth"`
	Typing         TypingConfig    `toml:"typing"`
	Events         EventsConfig    `toml:"events"`
	RateLimit      RateLimitConfig `toml:"rate_limit"`
}

type ServerConfig struct {
	// Listen is host:port for TCP or unix:///path for a Unix socket. Empty
	// means the profile's socket.
	Listen      string `toml:"listen"`
	AdminListen string `toml:"admin_listen"`
}

type AuthConfig struct {
	JWTSecret string        `toml:"jwt_secret"`
	Issuer    string        `toml:"issuer"`
	TokenTTL  time.Duration `toml:"token_ttl"`
}

type TypingConfig struct {
	Backend       string        `toml:"backend"` // sqlite or redis
	RedisAddr     string        `toml:"redis_addr"`
	RedisPrefix   string        `toml:"redis_prefix"`
	Retention     time.Duration `toml:"retention"`
	SweepInterval time.Duration `toml:"sweep_interval"`
}

type EventsConfig struct {
	Enabled      bool     `toml:"enabled"`
	KafkaBrokers []string `toml:"kafka_brokers"`
	Topic        string   `toml:"topic"`
}

type RateLimitConfig struct {
	PerMinute int `toml:"per_minute"`
	Burst     int `toml:"burst"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{AdminListen: "127.0.0.1:7421"},
		Auth:   AuthConfig{Issuer: "parley", TokenTTL: 24 * time.Hour},
		Typing: TypingConfig{
			Backend:       "sqlite",
			RedisPrefix:   "parley:typing:",
			Retention:     time.Minute,
			SweepInterval: 30 * time.Second,
		},
		Events:    EventsConfig{Topic: "parley.events"},
		RateLimit: RateLimitConfig{PerMinute: 600, Burst: 60},
	}
}

// Load reads config from the given path on top of the defaults. Returns
// error if the file is missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv loads path if it exists, then the optional dotenv file, then applies
// PARLEY_* environment overrides. Variables already set in the environment win
// over the dotenv file.
func LoadEnv(path, envPath string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PARLEY_* variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("PARLEY_DEFAULT_PROFILE", &c.DefaultProfile)
	str("PARLEY_LISTEN", &c.Server.Listen)
	str("PARLEY_ADMIN_LISTEN", &c.Server.AdminListen)
	str("PARLEY_JWT_SECRET", &c.Auth.JWTSecret)
	str("PARLEY_JWT_ISSUER", &c.Auth.Issuer)
	str("PARLEY_TYPING_BACKEND", &c.Typing.Backend)
	str("PARLEY_REDIS_ADDR", &c.Typing.RedisAddr)
	str("PARLEY_KAFKA_TOPIC", &c.Events.Topic)

	if v := getenv("PARLEY_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PARLEY_TOKEN_TTL: %w", err)
		}
		c.Auth.TokenTTL = d
	}
	if v := getenv("PARLEY_KAFKA_BROKERS"); v != "" {
		c.Events.KafkaBrokers = splitList(v)
	}
	if v := getenv("PARLEY_EVENTS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PARLEY_EVENTS_ENABLED: %w", err)
		}
		c.Events.Enabled = b
	}
	for key, dst := range map[string]*int{
		"PARLEY_RATE_PER_MINUTE": &c.RateLimit.PerMinute,
		"PARLEY_RATE_BURST":      &c.RateLimit.Burst,
	} {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}
	return nil
}

// Validate reports settings the daemon cannot run with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required (or PARLEY_JWT_SECRET)")
	}
	switch c.Typing.Backend {
	case "sqlite":
	case "redis":
		if c.Typing.RedisAddr == "" {
			return errors.New("typing.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown typing backend %q", c.Typing.Backend)
	}
	if c.Events.Enabled && len(c.Events.KafkaBrokers) == 0 {
		return errors.New("events.kafka_brokers is required when events are enabled")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
