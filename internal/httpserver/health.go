package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"farmstand-realtime/pkg/errors"
	"farmstand-realtime/pkg/response"
)

const (
	serviceName    = "farmstand-realtime"
	serviceVersion = "1.0.0"
	checkTimeout   = 2 * time.Second
)

const errCodeUnhealthy = 503

// runChecks probes every dependency and returns the failing ones.
func (srv *HTTPServer) runChecks(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	results := make(map[string]string, len(srv.checks))
	for _, hc := range srv.checks {
		if err := hc.Check(ctx); err != nil {
			srv.logger.Warnf(ctx, "httpserver.healthCheck: %s: %v", hc.Name, err)
			results[hc.Name] = err.Error()
			continue
		}
		results[hc.Name] = "ok"
	}
	return results
}

func healthy(results map[string]string) bool {
	for _, v := range results {
		if v != "ok" {
			return false
		}
	}
	return true
}

// healthCheck handles health check requests
// @Summary Health Check
// @Description Dependency status and realtime counters
// @Tags Health
// @Produce json
// @Success 200 {object} response.Resp "Service is healthy"
// @Failure 503 {object} response.Resp "A dependency is down"
// @Router /health [get]
func (srv *HTTPServer) healthCheck(c *gin.Context) {
	results := srv.runChecks(c.Request.Context())
	data := gin.H{
		"status":       "healthy",
		"service":      serviceName,
		"version":      serviceVersion,
		"dependencies": results,
	}
	if !healthy(results) {
		data["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, response.Resp{
			ErrorCode: errCodeUnhealthy,
			Message:   "Service is degraded",
			Data:      data,
		})
		return
	}
	response.OK(c, data)
}

// readyCheck handles readiness check requests
// @Summary Readiness Check
// @Tags Health
// @Produce json
// @Success 200 {object} response.Resp "Service is ready"
// @Failure 503 {object} response.Resp "Service is not ready"
// @Router /ready [get]
func (srv *HTTPServer) readyCheck(c *gin.Context) {
	if !healthy(srv.runChecks(c.Request.Context())) {
		response.Error(c, errors.NewHTTPError(errCodeUnhealthy, "Service is not ready", http.StatusServiceUnavailable), nil)
		return
	}
	response.OK(c, gin.H{
		"status":  "ready",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// liveCheck handles liveness check requests
// @Summary Liveness Check
// @Tags Health
// @Produce json
// @Success 200 {object} response.Resp "Service is alive"
// @Router /live [get]
func (srv *HTTPServer) liveCheck(c *gin.Context) {
	response.OK(c, gin.H{
		"status":  "alive",
		"service": serviceName,
		"version": serviceVersion,
	})
}
