package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	JWTSecret   string `env:"JWT_SECRET"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	// Feed lifecycle tunables.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" default:"60s"`
	PostTTL       time.Duration `env:"POST_TTL" default:"24h"`

	MaxFeedClients int `env:"MAX_FEED_CLIENTS" default:"10000"`

	// Per-IP guards on the feed socket.
	MaxConnsPerIP  int     `env:"MAX_CONNS_PER_IP" default:"32"`
	ConnRatePerIP  float64 `env:"CONN_RATE_PER_IP" default:"5"`
	ConnBurstPerIP int     `env:"CONN_BURST_PER_IP" default:"10"`

	// Media storage. Empty bucket disables image upload and cleanup.
	S3Bucket        string `env:"S3_BUCKET"`
	S3Region        string `env:"S3_REGION" default:"us-east-1"`
	S3Endpoint      string `env:"S3_ENDPOINT"`
	S3PublicBaseURL string `env:"S3_PUBLIC_BASE_URL"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DistributedMode reports whether cross-instance broadcasting is configured.
func (c *Config) DistributedMode() bool {
	return c.RedisURL != ""
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"JWT_SECRET":   cfg.JWTSecret,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if cfg.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", cfg.SweepInterval)
	}
	if cfg.PostTTL <= 0 {
		return fmt.Errorf("POST_TTL must be positive, got %s", cfg.PostTTL)
	}
	if cfg.MaxFeedClients <= 0 {
		return fmt.Errorf("MAX_FEED_CLIENTS must be positive, got %d", cfg.MaxFeedClients)
	}
	if cfg.MaxConnsPerIP <= 0 {
		return fmt.Errorf("MAX_CONNS_PER_IP must be positive, got %d", cfg.MaxConnsPerIP)
	}

	if cfg.S3Bucket != "" && cfg.S3PublicBaseURL == "" {
		return fmt.Errorf("S3_PUBLIC_BASE_URL is required when S3_BUCKET is set")
	}

	return nil
}
