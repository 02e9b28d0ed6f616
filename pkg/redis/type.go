package redis

import (
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type Config struct {
	Host         string
	Port         int
	Password     string
	DB           int
	UseTLS       bool
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
}

// Client wraps the go-redis client used for pub/sub.
type Client struct {
	*goredis.Client
	cfg Config
}
