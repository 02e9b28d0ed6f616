package usecase

import (
	"sync"
	"time"

	"farmstand-realtime/internal/alert"
	"farmstand-realtime/pkg/discord"
	"farmstand-realtime/pkg/log"
)

type implUseCase struct {
	logger   log.Logger
	discord  discord.IDiscord
	cooldown time.Duration
	clock    func() time.Time

	mu        sync.Mutex
	lastSent  map[string]time.Time
	lastPrune time.Time
}

// New builds the alert usecase. A nil discord client disables alerting.
func New(logger log.Logger, discord discord.IDiscord, cooldown time.Duration) alert.UseCase {
	return &implUseCase{
		logger:   logger,
		discord:  discord,
		cooldown: cooldown,
		clock:    time.Now,
		lastSent: make(map[string]time.Time),
	}
}
