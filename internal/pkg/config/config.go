package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// IPAllowListPolicy selects how a user's allowed_ips entries are matched:
	// "substring" or "strict".
	IPAllowListPolicy string `env:"IP_ALLOWLIST_POLICY, default=substring"`
	// TrustedProxies lists the CIDRs allowed to set X-Forwarded-For. Empty
	// means the client address is the TCP peer.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
	SentryDSN      string   `env:"SENTRY_DSN"`

	JWT   JWTConfig
	Auth  AuthConfig
	Mongo MongoConfig
	Redis RedisConfig
	Admin AdminConfig
}

type JWTConfig struct {
	Secret           string        `env:"JWT_SECRET, required"`
	ExpiresIn        time.Duration `env:"JWT_EXPIRES_IN, default=24h"`
	RefreshSecret    string        `env:"JWT_REFRESH_SECRET, required"`
	RefreshExpiresIn time.Duration `env:"JWT_REFRESH_EXPIRES_IN, default=168h"`
}

type AuthConfig struct {
	SessionExpirySeconds       int `env:"SESSION_EXPIRY_SECONDS,        default=86400"`
	MaxLoginAttempts           int `env:"MAX_LOGIN_ATTEMPTS,            default=5"`
	AccountLockDurationMinutes int `env:"ACCOUNT_LOCK_DURATION_MINUTES, default=15"`
	MinPasswordLength          int `env:"MIN_PASSWORD_LENGTH,           default=8"`
}

func (a AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionExpirySeconds) * time.Second
}

func (a AuthConfig) LockDuration() time.Duration {
	return time.Duration(a.AccountLockDurationMinutes) * time.Minute
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=hrms"`
}

type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED,  default=true"`
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// AdminConfig seeds the first administrator on an empty user collection.
type AdminConfig struct {
	Username string `env:"ADMIN_USERNAME"`
	Password string `env:"ADMIN_PASSWORD"`
	Email    string `env:"ADMIN_EMAIL"`
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == c.JWT.RefreshSecret {
		return fmt.Errorf("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.JWT.ExpiresIn <= 0 || c.JWT.RefreshExpiresIn <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.Auth.SessionExpirySeconds <= 0 {
		return fmt.Errorf("SESSION_EXPIRY_SECONDS must be positive")
	}
	if c.Auth.MaxLoginAttempts <= 0 {
		return fmt.Errorf("MAX_LOGIN_ATTEMPTS must be positive")
	}
	return nil
}
