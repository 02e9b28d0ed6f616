package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

type Config struct {
	// Environment Configuration
	Environment EnvironmentConfig

	// Server Configuration
	Server ServerConfig
	Logger LoggerConfig

	// Realtime Configuration
	Realtime  RealtimeConfig
	Transport TransportConfig
	Redis     RedisConfig
	Kafka     KafkaConfig

	// WebSocket Configuration
	WebSocket WebSocketConfig
	Session   SessionConfig

	// Authentication & Security Configuration
	JWT    JWTConfig
	Cookie CookieConfig
	CORS   CORSConfig

	// Role store, optional
	Postgres PostgresConfig

	// Monitoring & Notification Configuration
	Discord DiscordConfig
}

// EnvironmentConfig is the configuration for environment-aware features
type EnvironmentConfig struct {
	Name string `env:"ENV" envDefault:"production"`
}

// ServerConfig is the configuration for the HTTP server
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            int           `env:"PORT" envDefault:"8080"`
	Mode            string        `env:"GIN_MODE" envDefault:"release"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// LoggerConfig is the configuration for the logger
type LoggerConfig struct {
	Level        string `env:"LOGGER_LEVEL" envDefault:"info"`
	Mode         string `env:"LOGGER_MODE" envDefault:"production"`
	Encoding     string `env:"LOGGER_ENCODING" envDefault:"json"`
	ColorEnabled bool   `env:"LOGGER_COLOR_ENABLED" envDefault:"false"`
}

// RealtimeConfig drives channel naming and session coordinators.
// An empty ChannelSecret is allowed here; it is reported at startup and
// blocks every coordinator from starting.
type RealtimeConfig struct {
	ChannelSecret  string        `env:"REALTIME_CHANNEL_SECRET"`
	SecretEpoch    string        `env:"REALTIME_SECRET_EPOCH" envDefault:"1"`
	QueueSize      int           `env:"REALTIME_QUEUE_SIZE" envDefault:"256"`
	ErrorLogSize   int           `env:"REALTIME_ERROR_LOG_SIZE" envDefault:"50"`
	StatusInterval time.Duration `env:"REALTIME_STATUS_INTERVAL" envDefault:"5s"`
	SourceRole     string        `env:"REALTIME_SOURCE_ROLE" envDefault:"server"`
	NameCacheSize  int           `env:"REALTIME_NAME_CACHE_SIZE" envDefault:"4096"`
}

const (
	TransportRedis  = "redis"
	TransportKafka  = "kafka"
	TransportMemory = "memory"
)

type TransportConfig struct {
	Driver string `env:"TRANSPORT_DRIVER" envDefault:"redis"`
	// Buffer is the per-subscriber queue of in-process fan-out.
	Buffer int `env:"TRANSPORT_BUFFER" envDefault:"64"`
}

// RedisConfig is the configuration for Redis
// Note: Only standalone mode is supported
type RedisConfig struct {
	Host         string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port         int           `env:"REDIS_PORT" envDefault:"6379"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB" envDefault:"0"`
	UseTLS       bool          `env:"REDIS_USE_TLS" envDefault:"false"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"10"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"100"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	// HealthCheckInterval is how often each pub/sub subscription pings Redis.
	HealthCheckInterval time.Duration `env:"REDIS_HEALTH_CHECK_INTERVAL" envDefault:"5s"`
}

type KafkaConfig struct {
	Brokers     []string      `env:"KAFKA_BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic       string        `env:"KAFKA_TOPIC" envDefault:"farmstand.realtime"`
	GroupPrefix string        `env:"KAFKA_GROUP_PREFIX" envDefault:"farmstand-realtime"`
	MaxWait     time.Duration `env:"KAFKA_MAX_WAIT" envDefault:"500ms"`
}

// WebSocketConfig is the configuration for WebSocket connections
type WebSocketConfig struct {
	PingInterval    time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
	PongWait        time.Duration `env:"WS_PONG_WAIT" envDefault:"60s"`
	WriteWait       time.Duration `env:"WS_WRITE_WAIT" envDefault:"10s"`
	MaxMessageSize  int64         `env:"WS_MAX_MESSAGE_SIZE" envDefault:"512"`
	ReadBufferSize  int           `env:"WS_READ_BUFFER_SIZE" envDefault:"1024"`
	WriteBufferSize int           `env:"WS_WRITE_BUFFER_SIZE" envDefault:"1024"`
	SendBuffer      int           `env:"WS_SEND_BUFFER" envDefault:"64"`
	MaxConnections  int           `env:"WS_MAX_CONNECTIONS" envDefault:"10000"`
}

// SessionConfig limits realtime sessions per user.
type SessionConfig struct {
	MaxPerUser int           `env:"SESSION_MAX_PER_USER" envDefault:"5"`
	RateLimit  int           `env:"SESSION_RATE_LIMIT" envDefault:"20"`
	RateWindow time.Duration `env:"SESSION_RATE_WINDOW" envDefault:"1m"`
}

// JWTConfig is the configuration for the JWT
type JWTConfig struct {
	SecretKey string        `env:"JWT_SECRET_KEY"`
	Issuer    string        `env:"JWT_ISSUER" envDefault:"farmstand"`
	TTL       time.Duration `env:"JWT_TTL" envDefault:"24h"`
}

// CookieConfig is the configuration for HttpOnly cookie authentication
type CookieConfig struct {
	Name string `env:"COOKIE_NAME" envDefault:"farmstand_auth_token"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// PostgresConfig is optional. An empty Host disables the role store.
type PostgresConfig struct {
	Host     string `env:"POSTGRES_HOST"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD"`
	DBName   string `env:"POSTGRES_DB" envDefault:"farmstand"`
	SSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
}

func (c PostgresConfig) Enabled() bool { return c.Host != "" }

// DiscordConfig is the configuration for Discord webhook notifications
type DiscordConfig struct {
	WebhookURL    string        `env:"DISCORD_WEBHOOK_URL"`
	AlertCooldown time.Duration `env:"DISCORD_ALERT_COOLDOWN" envDefault:"10m"`
}

func (c DiscordConfig) Enabled() bool { return c.WebhookURL != "" }

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Transport.Driver {
	case TransportRedis, TransportKafka, TransportMemory:
	default:
		return fmt.Errorf("config: unknown TRANSPORT_DRIVER %q", c.Transport.Driver)
	}
	if c.JWT.SecretKey == "" {
		return errors.New("config: JWT_SECRET_KEY is required")
	}
	return nil
}
