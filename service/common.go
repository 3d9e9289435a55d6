package service

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"quill/app/config"
	"quill/app/repositories"
	"quill/app/sessions"
)

// openRepository opens the configured database
func openRepository(cfg *config.Config) (*repositories.Repository, error) {
	if cfg.Database.InMemory {
		return repositories.NewInMemoryRepository()
	}
	return repositories.NewRepository(cfg.Database.Path)
}

// newSessionStore builds the configured session backend. The returned close
// function releases any connection the store owns.
func newSessionStore(ctx context.Context, cfg *config.Config, repo *repositories.Repository) (sessions.Store, func() error, error) {
	switch cfg.Session.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return sessions.NewRedisStore(client, cfg.Session.TTL), client.Close, nil
	default:
		return sessions.NewBadgerStore(repo.DB(), cfg.Session.TTL), func() error { return nil }, nil
	}
}
