package auth

import (
	"context"

	"farmstand-realtime/pkg/log"
)

// SecurityEventType represents the type of security event
type SecurityEventType string

const (
	SecurityEventAuthenticationFailure SecurityEventType = "authentication_failure"
	SecurityEventAuthorizationFailure  SecurityEventType = "authorization_failure"
	SecurityEventRateLimitExceeded     SecurityEventType = "rate_limit_exceeded"
	SecurityEventInvalidInput          SecurityEventType = "invalid_input"
)

// SecurityLogger logs security-relevant events with a fixed prefix so they
// can be filtered out of the service log.
type SecurityLogger struct {
	logger log.Logger
}

func NewSecurityLogger(logger log.Logger) *SecurityLogger {
	return &SecurityLogger{logger: logger}
}

func (sl *SecurityLogger) LogAuthenticationFailure(ctx context.Context, path, reason string) {
	ctx = sl.logger.With(ctx, "security_event", SecurityEventAuthenticationFailure)
	sl.logger.Warnf(ctx, "SECURITY: Authentication failure - path=%s reason=%s", path, reason)
}

// LogAuthorizationFailure logs a user asking for a role or resource it was not granted.
func (sl *SecurityLogger) LogAuthorizationFailure(ctx context.Context, userID, resource, reason string) {
	ctx = sl.logger.With(ctx, "security_event", SecurityEventAuthorizationFailure, "user_id", userID)
	sl.logger.Warnf(ctx, "SECURITY: Authorization failure - user=%s resource=%s reason=%s", userID, resource, reason)
}

func (sl *SecurityLogger) LogRateLimitExceeded(ctx context.Context, err *RateLimitError) {
	ctx = sl.logger.With(ctx, "security_event", SecurityEventRateLimitExceeded, "user_id", err.UserID)
	sl.logger.Warnf(ctx, "SECURITY: Rate limit exceeded - user=%s limit=%s current=%d max=%d",
		err.UserID, err.Limit, err.Current, err.Max)
}

func (sl *SecurityLogger) LogInvalidInput(ctx context.Context, userID, field, reason string) {
	ctx = sl.logger.With(ctx, "security_event", SecurityEventInvalidInput, "user_id", userID)
	sl.logger.Warnf(ctx, "SECURITY: Invalid input - user=%s field=%s reason=%s", userID, field, reason)
}
