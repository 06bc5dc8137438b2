package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

const envPrefix = "profiler"

// Config holds the profiler server configuration, read from PROFILER_* variables.
type Config struct {
	HTTPAddr         string        `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCAddr         string        `envconfig:"GRPC_ADDR" default:":4317"`
	ConnectionString string        `envconfig:"CONNECTION_STRING" default:"memory://"`
	Project          string        `envconfig:"PROJECT"`
	Service          string        `envconfig:"SERVICE" default:"profiler"`
	Host             string        `envconfig:"HOST"`
	CollectorEnabled bool          `envconfig:"COLLECTOR_ENABLED" default:"false"`
	CollectorTarget  string        `envconfig:"COLLECTOR_TARGET" default:"memory://"`
	ShutdownTimeout  time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
	LogDevelopment   bool          `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// NewLogger builds a production logger, or a development one when LOG_DEV is set.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zapConfig := zap.NewProductionConfig()
	if cfg.LogDevelopment {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = level
	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
