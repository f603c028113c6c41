package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dwikikusuma/tenant-cart/internal/cart/infra/storage"
	"github.com/dwikikusuma/tenant-cart/pkg/config"
)

// backend is the opened key-value store plus whatever must be closed on exit.
type backend struct {
	kv      storage.KV
	redis   *redis.Client
	closers []func()
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg config.Config, log *slog.Logger) (*backend, error) {
	b := &backend{}

	// The relay shares the Redis connection with the redis backend.
	if cfg.Storage.Backend == config.BackendRedis || cfg.Relay.Enabled {
		rc := cfg.Storage.Redis
		b.redis = redis.NewClient(&redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB})
		b.closers = append(b.closers, func() { _ = b.redis.Close() })
		if err := b.redis.Ping(ctx).Err(); err != nil {
			b.Close()
			return nil, fmt.Errorf("redis ping %s: %w", rc.Addr, err)
		}
	}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Warn("memory backend: carts are lost on restart")
		b.kv = storage.NewMemoryKV()

	case config.BackendFile:
		kv, err := storage.NewFileKV(cfg.Storage.File.Dir)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.kv = kv

	case config.BackendRedis:
		b.kv = storage.NewRedisKV(b.redis, cfg.Storage.Redis.TTL)

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.Storage.Postgres.DSN)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("postgres pool: %w", err)
		}
		b.closers = append(b.closers, pool.Close)

		kv := storage.NewPostgresKV(pool, cfg.Storage.Postgres.Table)
		if err := kv.EnsureSchema(ctx); err != nil {
			b.Close()
			return nil, fmt.Errorf("postgres schema: %w", err)
		}
		b.kv = kv

	case config.BackendDynamoDB:
		dc := cfg.Storage.DynamoDB
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(dc.Region))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("aws config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if dc.Endpoint != "" {
				o.BaseEndpoint = aws.String(dc.Endpoint)
			}
		})
		b.kv = storage.NewDynamoKV(client, dc.Table)

	default:
		b.Close()
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	log.Info("storage ready", slog.String("backend", cfg.Storage.Backend), slog.String("key", cfg.Storage.Key))
	return b, nil
}
