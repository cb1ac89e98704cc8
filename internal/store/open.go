package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

type Config struct {
	Backend string       `mapstructure:"backend"`
	Redis   RedisConfig  `mapstructure:"redis"`
	Badger  BadgerConfig `mapstructure:"badger"`
}

// Open returns the Repository selected by cfg.Backend. An empty backend means memory.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendRedis:
		repo, err := NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case BackendBadger:
		repo, err := NewBadger(cfg.Badger, log)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
