package middleware

import (
	"github.com/gin-gonic/gin"

	"farmstand-realtime/pkg/discord"
	"farmstand-realtime/pkg/log"
	"farmstand-realtime/pkg/response"
)

// Recovery turns a handler panic into a 500 and reports it to Discord when
// discordClient is set.
func Recovery(logger log.Logger, discordClient discord.IDiscord) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				ctx := c.Request.Context()
				logger.Errorf(ctx, "Panic recovered: %v | Method: %s | Path: %s",
					err, c.Request.Method, c.Request.URL.Path)

				response.PanicError(c, err, discordClient)
			}
		}()
		c.Next()
	}
}
