package usecase

import (
	"time"

	"farmstand-realtime/pkg/discord"
)

func buildField(name string, value string, inline bool) discord.EmbedField {
	if value == "" {
		value = "N/A"
	}
	return discord.EmbedField{
		Name:   name,
		Value:  truncateText(value, discord.MaxFieldValueLen),
		Inline: inline,
	}
}

func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max < 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

// shouldSend records key and reports whether its cooldown has elapsed.
func (uc *implUseCase) shouldSend(key string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	now := uc.clock()
	uc.pruneLocked(now)
	if last, ok := uc.lastSent[key]; ok && now.Sub(last) < uc.cooldown {
		return false
	}
	uc.lastSent[key] = now
	return true
}

// pruneLocked drops keys whose cooldown has run out, at most once per
// cooldown window.
func (uc *implUseCase) pruneLocked(now time.Time) {
	if now.Sub(uc.lastPrune) < uc.cooldown {
		return
	}
	for key, last := range uc.lastSent {
		if now.Sub(last) >= uc.cooldown {
			delete(uc.lastSent, key)
		}
	}
	uc.lastPrune = now
}
