// Package config manages environment settings and the persisted jumphost record.
package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

// Env holds process-wide settings read from the environment.
type Env struct {
	// Fallback device credentials used when no jumphost is enabled.
	RouterUsername string `env:"ROUTER_USERNAME"`
	RouterPassword string `env:"ROUTER_PASSWORD"`

	// Jumphost defaults; the persisted record (Source) overrides these.
	JumphostEnabled  bool   `env:"JUMPHOST_ENABLED"`
	JumphostHost     string `env:"JUMPHOST_HOST"`
	JumphostPort     int    `env:"JUMPHOST_PORT,default=22"`
	JumphostUsername string `env:"JUMPHOST_USERNAME"`
	JumphostPassword string `env:"JUMPHOST_PASSWORD"`

	DataDir   string `env:"NETGRID_DATA_DIR,default=data"`
	RedisAddr string `env:"NETGRID_REDIS_ADDR,default=127.0.0.1:6379"`
	LogLevel  string `env:"NETGRID_LOG_LEVEL,default=info"`
}

// LoadEnv reads settings from the process environment.
func LoadEnv(ctx context.Context) (*Env, error) {
	var e Env
	if err := envconfig.Process(ctx, &e); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}
	return &e, nil
}

// ConfigError reports an invalid configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}
