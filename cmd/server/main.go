package main

import (
	"context"
	"fmt"

	"farmstand-realtime/config"
	"farmstand-realtime/config/postgre"
	configRedis "farmstand-realtime/config/redis"
	"farmstand-realtime/internal/alert"
	alertUsecase "farmstand-realtime/internal/alert/usecase"
	"farmstand-realtime/internal/auth"
	"farmstand-realtime/internal/httpserver"
	"farmstand-realtime/internal/middleware"
	"farmstand-realtime/internal/realtime"
	"farmstand-realtime/internal/realtime/broadcast"
	"farmstand-realtime/internal/realtime/channelname"
	realtimeHTTP "farmstand-realtime/internal/realtime/delivery/http"
	"farmstand-realtime/internal/realtime/registry"
	"farmstand-realtime/internal/realtime/transport/kafka"
	"farmstand-realtime/internal/realtime/transport/memory"
	realtimeRedis "farmstand-realtime/internal/realtime/transport/redis"
	userRepository "farmstand-realtime/internal/user/repository"
	userPostgres "farmstand-realtime/internal/user/repository/postgre"
	userUsecase "farmstand-realtime/internal/user/usecase"
	"farmstand-realtime/pkg/discord"
	"farmstand-realtime/pkg/jwt"
	"farmstand-realtime/pkg/log"
)

// @title       Farmstand Realtime Service
// @description Realtime change notifications for the Farmstand storefront.
// @version     1.0
// @host        localhost:8080
// @schemes     ws http
// @BasePath    /
//
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Bearer token authentication. Format: "Bearer {token}"
func main() {
	// Load configuration
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Println("Failed to load config:", err)
		return
	}

	// Initialize logger
	logger := log.Init(log.ZapConfig{
		Level:        cfg.Logger.Level,
		Mode:         cfg.Logger.Mode,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
	})

	ctx := context.Background()
	logger.Info(ctx, "Starting Farmstand Realtime Service...")

	// Discord webhook (optional)
	var discordClient discord.IDiscord
	if cfg.Discord.Enabled() {
		discordClient, err = discord.New(logger, cfg.Discord.WebhookURL)
		if err != nil {
			logger.Warnf(ctx, "Discord webhook not configured (optional): %v", err)
			discordClient = nil
		} else {
			defer discordClient.Close()
			logger.Info(ctx, "Discord webhook initialized")
		}
	}
	alertUC := alertUsecase.New(logger, discordClient, cfg.Discord.AlertCooldown)

	// JWT validator
	jwtManager, err := jwt.New(jwt.Config{
		SecretKey: cfg.JWT.SecretKey,
		Issuer:    cfg.JWT.Issuer,
		TTL:       cfg.JWT.TTL,
	})
	if err != nil {
		logger.Errorf(ctx, "Failed to initialize JWT manager: %v", err)
		return
	}

	// Transport
	var checks []httpserver.HealthCheck
	transport, closeTransport, err := openTransport(ctx, cfg, logger, &checks)
	if err != nil {
		logger.Errorf(ctx, "Failed to open %s transport: %v", cfg.Transport.Driver, err)
		return
	}
	defer closeTransport()
	logger.Infof(ctx, "Realtime transport %q initialized", cfg.Transport.Driver)

	// Channel names
	generator := channelname.New(channelname.Config{
		Secret:    cfg.Realtime.ChannelSecret,
		Epoch:     cfg.Realtime.SecretEpoch,
		CacheSize: cfg.Realtime.NameCacheSize,
	})
	if err := generator.Ready(); err != nil {
		logger.Errorf(ctx, "Realtime channels disabled: %v", err)
		if aErr := alertUC.DispatchConfigIssue(ctx, alert.ConfigIssueInput{
			Component: "channel-names",
			Problem:   "REALTIME_CHANNEL_SECRET is not set; every realtime session will be refused",
			Err:       err,
		}); aErr != nil {
			logger.Warnf(ctx, "Failed to report configuration issue: %v", aErr)
		}
	}

	reg := registry.New(transport, logger)
	defer reg.Close()

	broadcaster := broadcast.New(generator, reg, logger, broadcast.Options{SourceRole: cfg.Realtime.SourceRole})

	// Role store (optional)
	var userRepo userRepository.Repository
	if cfg.Postgres.Enabled() {
		db, err := postgre.Connect(ctx, cfg.Postgres)
		if err != nil {
			logger.Errorf(ctx, "Failed to connect to PostgreSQL: %v", err)
			return
		}
		defer postgre.Disconnect(db)
		userRepo = userPostgres.New(logger, db)
		checks = append(checks, httpserver.HealthCheck{Name: "postgres", Check: db.PingContext})
		logger.Info(ctx, "PostgreSQL role store initialized")
	}
	userUC := userUsecase.New(logger, userRepo)

	// Session limits
	tracker := auth.NewSessionTracker(auth.RateLimitConfig{
		MaxSessions:        cfg.WebSocket.MaxConnections,
		MaxSessionsPerUser: cfg.Session.MaxPerUser,
		SessionRateLimit:   cfg.Session.RateLimit,
		RateLimitWindow:    cfg.Session.RateWindow,
	}, logger)
	defer tracker.Close()

	realtimeHandler := realtimeHTTP.New(logger, realtimeHTTP.Deps{
		Generator: generator,
		Registry:  reg,
		Broadcast: broadcaster,
		UserUC:    userUC,
		Tracker:   tracker,
		AlertUC:   alertUC,
		Discord:   discordClient,
	}, realtimeHTTP.WSConfig{
		PingInterval:    cfg.WebSocket.PingInterval,
		PongWait:        cfg.WebSocket.PongWait,
		WriteWait:       cfg.WebSocket.WriteWait,
		MaxMessageSize:  cfg.WebSocket.MaxMessageSize,
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		SendBuffer:      cfg.WebSocket.SendBuffer,
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
	}, realtimeHTTP.SessionConfig{
		QueueSize:      cfg.Realtime.QueueSize,
		ErrorLogSize:   cfg.Realtime.ErrorLogSize,
		StatusInterval: cfg.Realtime.StatusInterval,
	})

	srv, err := httpserver.New(logger, httpserver.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		Mode:            cfg.Server.Mode,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.CORS.AllowedOrigins,
		Realtime:        realtimeHandler,
		Middleware:      middleware.New(logger, jwtManager, cfg.Cookie.Name),
		Checks:          checks,
		Discord:         discordClient,
	})
	if err != nil {
		logger.Errorf(ctx, "Failed to initialize HTTP server: %v", err)
		return
	}

	if err := srv.Run(ctx); err != nil {
		logger.Errorf(ctx, "Server stopped with error: %v", err)
		return
	}
	logger.Info(ctx, "Realtime service stopped gracefully")
}

// openTransport builds the transport selected by TRANSPORT_DRIVER and appends
// its health probe to checks.
func openTransport(ctx context.Context, cfg *config.Config, logger log.Logger, checks *[]httpserver.HealthCheck) (realtime.Transport, func(), error) {
	switch cfg.Transport.Driver {
	case config.TransportKafka:
		t, err := kafka.New(kafka.Config{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			GroupPrefix: cfg.Kafka.GroupPrefix,
			MaxWait:     cfg.Kafka.MaxWait,
			Buffer:      cfg.Transport.Buffer,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		*checks = append(*checks, httpserver.HealthCheck{Name: "kafka", Check: t.Ping})
		logger.Infof(ctx, "Kafka consumer group %s", t.GroupID())
		return t, func() { _ = t.Close() }, nil

	case config.TransportMemory:
		t := memory.New(logger, cfg.Transport.Buffer)
		return t, func() { _ = t.Close() }, nil

	default:
		client, err := configRedis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		t := realtimeRedis.New(client.Client, logger, realtimeRedis.WithHealthCheckInterval(cfg.Redis.HealthCheckInterval))
		*checks = append(*checks, httpserver.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
		return t, func() {
			_ = t.Close()
			_ = configRedis.Disconnect(client)
		}, nil
	}
}
