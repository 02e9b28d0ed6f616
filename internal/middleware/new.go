package middleware

import (
	"farmstand-realtime/internal/auth"
	"farmstand-realtime/pkg/jwt"
	"farmstand-realtime/pkg/log"
)

type Middleware struct {
	l          log.Logger
	jwtManager jwt.Validator
	cookieName string
	security   *auth.SecurityLogger
}

func New(l log.Logger, jwtManager jwt.Validator, cookieName string) Middleware {
	return Middleware{
		l:          l,
		jwtManager: jwtManager,
		cookieName: cookieName,
		security:   auth.NewSecurityLogger(l),
	}
}
