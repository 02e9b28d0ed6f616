package redis

import (
	"context"
	"fmt"

	"farmstand-realtime/config"
	pkgRedis "farmstand-realtime/pkg/redis"
)

// Connect opens the Redis client used by the pub/sub transport.
func Connect(_ context.Context, cfg config.RedisConfig) (*pkgRedis.Client, error) {
	client, err := pkgRedis.New(pkgRedis.Config{
		Host:         cfg.Host,
		Port:         cfg.Port,
		Password:     cfg.Password,
		DB:           cfg.DB,
		UseTLS:       cfg.UseTLS,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Disconnect closes the client if it was opened.
func Disconnect(client *pkgRedis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
