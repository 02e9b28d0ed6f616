package http

import (
	"sync"

	"github.com/gorilla/websocket"

	"farmstand-realtime/internal/alert"
	"farmstand-realtime/internal/auth"
	"farmstand-realtime/internal/middleware"
	"farmstand-realtime/internal/realtime/broadcast"
	"farmstand-realtime/internal/realtime/channelname"
	"farmstand-realtime/internal/realtime/registry"
	"farmstand-realtime/internal/user"
	"farmstand-realtime/pkg/discord"
	"farmstand-realtime/pkg/log"
)

// Deps are the collaborators of the realtime HTTP handler. AlertUC and
// Discord are optional.
type Deps struct {
	Generator channelname.Generator
	Registry  *registry.Registry
	Broadcast *broadcast.Helper
	UserUC    user.UseCase
	Tracker   *auth.SessionTracker
	AlertUC   alert.UseCase
	Discord   discord.IDiscord
}

type Handler struct {
	l        log.Logger
	gen      channelname.Generator
	reg      *registry.Registry
	bc       *broadcast.Helper
	userUC   user.UseCase
	tracker  *auth.SessionTracker
	alertUC  alert.UseCase
	discord  discord.IDiscord
	security *auth.SecurityLogger

	upgrader   websocket.Upgrader
	wsCfg      WSConfig
	sessionCfg SessionConfig

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

func New(l log.Logger, deps Deps, wsCfg WSConfig, sessionCfg SessionConfig) *Handler {
	wsCfg = wsCfg.withDefaults()
	return &Handler{
		l:        l,
		gen:      deps.Generator,
		reg:      deps.Registry,
		bc:       deps.Broadcast,
		userUC:   deps.UserUC,
		tracker:  deps.Tracker,
		alertUC:  deps.AlertUC,
		discord:  deps.Discord,
		security: auth.NewSecurityLogger(l),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  wsCfg.ReadBufferSize,
			WriteBufferSize: wsCfg.WriteBufferSize,
			CheckOrigin:     middleware.OriginChecker(wsCfg.AllowedOrigins),
		},
		wsCfg:      wsCfg,
		sessionCfg: sessionCfg,
		sessions:   make(map[string]*session),
	}
}
