package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"farmstand-realtime/pkg/jwt"
	"farmstand-realtime/pkg/response"
)

const (
	bearerPrefix = "Bearer "
	tokenQuery   = "token"
)

// Auth validates the caller's JWT and stores its claims on the request context.
// The token is read from the Authorization header, then the auth cookie, then
// the token query parameter, which browsers need for WebSocket upgrades.
func (m Middleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		tokenString, ok := m.extractToken(c)
		if !ok {
			m.security.LogAuthenticationFailure(ctx, c.Request.URL.Path, "missing or malformed token")
			response.Unauthorized(c)
			return
		}

		claims, err := m.jwtManager.ValidateToken(tokenString)
		if err != nil {
			m.security.LogAuthenticationFailure(ctx, c.Request.URL.Path, err.Error())
			response.Unauthorized(c)
			return
		}

		ctx = jwt.SetClaimsToContext(ctx, claims)
		ctx = m.l.With(ctx, "user_id", claims.UserID())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func (m Middleware) extractToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		if !strings.HasPrefix(header, bearerPrefix) {
			return "", false
		}
		token := strings.TrimSpace(header[len(bearerPrefix):])
		return token, token != ""
	}

	if m.cookieName != "" {
		if cookie, err := c.Cookie(m.cookieName); err == nil && cookie != "" {
			return cookie, true
		}
	}

	if token := c.Query(tokenQuery); token != "" {
		return token, true
	}
	return "", false
}
