package idempotency

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/monetization/internal/clock"
	"github.com/smallbiznis/monetization/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Lc    fx.Lifecycle
	Cfg   config.Config
	Clock clock.Clock
	Log   *zap.Logger
}

func NewStore(p Params) Store {
	cfg := p.Cfg.Idempotency
	if cfg.Backend != config.IdempotencyBackendRedis {
		return NewMemoryStore(p.Clock)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     strings.TrimSpace(cfg.RedisAddr),
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	p.Log.Named("idempotency").Info("using redis idempotency store", zap.String("addr", cfg.RedisAddr))
	return NewRedisStore(client, cfg.KeyPrefix)
}

var Module = fx.Module("idempotency",
	fx.Provide(NewStore),
)
