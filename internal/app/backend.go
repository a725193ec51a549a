package app

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/shelf/internal/config"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/gateway/memory"
	redisgw "github.com/MrSnakeDoc/shelf/internal/gateway/redis"
	"github.com/MrSnakeDoc/shelf/internal/gateway/sqlite"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/redis"
	"github.com/MrSnakeDoc/shelf/internal/sources/seed"
)

// Store is what the app needs from a backend.
type Store interface {
	seed.Store
	domain.HealthChecker
}

type backend struct {
	store Store
	close func() error
}

func openBackend(ctx context.Context, cfg *config.Config, log logger.Logger) (*backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		log.Warn("using the memory backend, data is lost on restart")
		return &backend{store: memory.NewStore(), close: func() error { return nil }}, nil

	case config.BackendSQLite:
		log.Info("opening sqlite database", logger.String("path", cfg.SQLitePath))
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &backend{store: s, close: s.Close}, nil

	case config.BackendRedis:
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.Connect(ctx, redis.Options{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, err
		}
		return &backend{store: redisgw.NewStore(client), close: client.Close}, nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
