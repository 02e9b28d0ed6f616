package httpserver

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"farmstand-realtime/internal/middleware"
	realtimeHTTP "farmstand-realtime/internal/realtime/delivery/http"
	"farmstand-realtime/pkg/discord"
	"farmstand-realtime/pkg/log"
)

// HealthCheck is a named dependency probe used by /health and /ready.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HTTPServer represents the HTTP server with all dependencies.
// New() only wires dependencies and validates them.
// Run() is responsible for serving and graceful shutdown.
type HTTPServer struct {
	gin             *gin.Engine
	logger          log.Logger
	host            string
	port            int
	shutdownTimeout time.Duration
	corsOrigins     []string

	realtime   *realtimeHTTP.Handler
	middleware middleware.Middleware
	checks     []HealthCheck
	discord    discord.IDiscord
}

// Config is the constructor input for HTTPServer.
type Config struct {
	Host            string
	Port            int
	Mode            string
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	Realtime   *realtimeHTTP.Handler
	Middleware middleware.Middleware
	Checks     []HealthCheck

	// Discord is optional and receives reports of recovered panics.
	Discord discord.IDiscord
}

func New(logger log.Logger, cfg Config) (*HTTPServer, error) {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}

	srv := &HTTPServer{
		gin:             gin.New(),
		logger:          logger,
		host:            cfg.Host,
		port:            cfg.Port,
		shutdownTimeout: cfg.ShutdownTimeout,
		corsOrigins:     cfg.CORSOrigins,
		realtime:        cfg.Realtime,
		middleware:      cfg.Middleware,
		checks:          cfg.Checks,
		discord:         cfg.Discord,
	}

	if err := srv.validate(); err != nil {
		return nil, err
	}

	srv.mapHandlers()
	return srv, nil
}

// validate ensures all required dependencies are provided.
func (srv *HTTPServer) validate() error {
	if srv.logger == nil {
		return errors.New("logger is required")
	}
	if srv.port == 0 {
		return errors.New("port is required")
	}
	if srv.realtime == nil {
		return errors.New("realtime handler is required")
	}
	return nil
}

// Handler exposes the router, mainly for tests.
func (srv *HTTPServer) Handler() *gin.Engine {
	return srv.gin
}
