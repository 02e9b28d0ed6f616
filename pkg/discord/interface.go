package discord

import (
	"context"
	"errors"
	"strings"

	"farmstand-realtime/pkg/log"
)

var (
	errWebhookRequired = errors.New("discord: webhook URL is required")
	errInvalidWebhook  = errors.New("discord: webhook URL must be https://discord.com/api/webhooks/{id}/{token}")
)

type IDiscord interface {
	SendEmbed(ctx context.Context, options MessageOptions) error
	SendWarning(ctx context.Context, title, description string, fields map[string]string) error
	SendError(ctx context.Context, title, description string, err error) error
	ReportBug(ctx context.Context, message string) error
	Close() error
}

// New validates webhookURL and returns a client with default settings.
func New(l log.Logger, webhookURL string) (IDiscord, error) {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return nil, errWebhookRequired
	}
	rest, ok := strings.CutPrefix(webhookURL, webhookPrefix)
	if !ok {
		return nil, errInvalidWebhook
	}
	id, token, ok := strings.Cut(rest, "/")
	if !ok || id == "" || token == "" {
		return nil, errInvalidWebhook
	}
	return newImpl(l, webhookURL, DefaultConfig()), nil
}

// DefaultConfig returns the default Discord config.
func DefaultConfig() Config {
	return Config{
		Timeout:    DefaultTimeout,
		RetryCount: DefaultRetryCount,
		RetryDelay: DefaultRetryDelay,
		Username:   DefaultUsername,
	}
}
