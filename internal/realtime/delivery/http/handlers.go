package http

import (
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"farmstand-realtime/internal/realtime"
	pkgErrors "farmstand-realtime/pkg/errors"
	"farmstand-realtime/pkg/response"
)

func (h *Handler) fail(c *gin.Context, err error) {
	response.Error(c, h.mapError(err), h.discord)
}

// HandleWebSocket opens a realtime session.
// @Summary Open a realtime session
// @Description Upgrade to a WebSocket that streams refetch and status frames for the channels of a role. The token may be sent as a Bearer header, the auth cookie or the token query parameter.
// @Tags Realtime
// @Param role query string false "Workflow role, defaults to the token role"
// @Param token query string false "JWT Token"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} response.Resp "Unauthorized"
// @Failure 403 {object} response.Resp "Role not granted"
// @Failure 429 {object} response.Resp "Too many sessions"
// @Failure 503 {object} response.Resp "Channels not configured"
// @Router /ws [GET]
func (h *Handler) HandleWebSocket(c *gin.Context) {
	ctx := c.Request.Context()

	var req sessionReq
	if err := c.ShouldBindQuery(&req); err != nil {
		h.fail(c, &realtime.ValidationError{Field: "query", Message: err.Error()})
		return
	}

	claims, role, err := h.resolveRole(c, req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}
	userID := claims.UserID()

	// Refuse before upgrading so the client gets a plain HTTP error.
	if h.isClosed() {
		h.fail(c, errShuttingDown)
		return
	}
	if err := h.gen.Ready(); err != nil {
		h.fail(c, err)
		return
	}
	if h.tracker != nil {
		if err := h.tracker.CheckAndTrack(ctx, userID); err != nil {
			h.fail(c, err)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.l.Warnf(ctx, "realtime.delivery.http.HandleWebSocket.Upgrade: %v", err)
		if h.tracker != nil {
			h.tracker.Untrack(userID)
		}
		return
	}

	s := h.newSession(userID, role, conn)
	if err := h.addSession(s); err != nil {
		if h.tracker != nil {
			h.tracker.Untrack(userID)
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()))
		conn.Close()
		return
	}

	ctx = h.l.With(ctx, "session_id", s.id, "role", string(role))
	go s.writePump()

	if err := s.start(ctx); err != nil {
		h.l.Errorf(ctx, "realtime.delivery.http.HandleWebSocket.start: %v", err)
		s.pushError(err)
		s.close(websocket.CloseInternalServerErr, "session failed to start")
		return
	}
	h.l.Infof(ctx, "realtime session opened for user %s", userID)

	s.readPump(ctx)
	s.close(websocket.CloseNormalClosure, "")
	h.l.Infof(ctx, "realtime session closed for user %s", userID)
}

// ListChannels returns the derived channel names of a role.
// @Summary List realtime channels
// @Description Derived channel names the caller listens on for a role.
// @Tags Realtime
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param role query string false "Workflow role, defaults to the token role"
// @Success 200 {object} response.Resp{data=channelsResp}
// @Failure 403 {object} response.Resp "Role not granted"
// @Failure 503 {object} response.Resp "Channels not configured"
// @Router /api/v1/realtime/channels [GET]
func (h *Handler) ListChannels(c *gin.Context) {
	var req sessionReq
	if err := c.ShouldBindQuery(&req); err != nil {
		h.fail(c, &realtime.ValidationError{Field: "query", Message: err.Error()})
		return
	}

	claims, role, err := h.resolveRole(c, req.Role)
	if err != nil {
		h.fail(c, err)
		return
	}

	descs, err := realtime.DescriptorsForRole(role, claims.UserID())
	if err != nil {
		h.fail(c, err)
		return
	}

	resp := channelsResp{Role: role, Channels: make([]channelResp, 0, len(descs))}
	for _, d := range descs {
		name, err := h.gen.GenerateFor(d)
		if err != nil {
			h.fail(c, err)
			return
		}
		resp.Channels = append(resp.Channels, channelResp{Kind: d.Kind, Scope: d.Scope, SubjectID: d.SubjectID, Name: name})
	}
	response.OK(c, resp)
}

// ValidateChannel checks a name against a descriptor.
// @Summary Validate a channel name
// @Tags Realtime
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param body body validateReq true "Name and descriptor"
// @Success 200 {object} response.Resp{data=validateResp}
// @Failure 400 {object} response.Resp "Bad descriptor"
// @Failure 403 {object} response.Resp "Staff role required"
// @Router /api/v1/realtime/channels/validate [POST]
func (h *Handler) ValidateChannel(c *gin.Context) {
	if _, _, err := h.requireStaff(c); err != nil {
		h.fail(c, err)
		return
	}

	var req validateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, pkgErrors.NewValidationError(ErrCodeValidation, "body", err.Error()), nil)
		return
	}

	kind, err := realtime.ParseKind(req.Kind)
	if err != nil {
		h.fail(c, err)
		return
	}
	scope, err := realtime.ParseScope(req.Scope)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := h.gen.Ready(); err != nil {
		h.fail(c, err)
		return
	}

	response.OK(c, validateResp{Valid: h.gen.Validate(req.Name, kind, scope, req.SubjectID)})
}

// Broadcast publishes a change notification.
// @Summary Broadcast a change
// @Description Customers may broadcast to their own cart. Order, product and dashboard broadcasts need a staff role.
// @Tags Realtime
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Param resource path string true "cart, order, product or dashboard"
// @Param body body broadcastReq true "Event and payload"
// @Success 200 {object} response.Resp{data=broadcastResp}
// @Failure 400 {object} response.Resp "Bad event or payload"
// @Failure 403 {object} response.Resp "Staff role required"
// @Failure 404 {object} response.Resp "Unknown resource"
// @Failure 502 {object} response.Resp "Transport unavailable"
// @Router /api/v1/realtime/broadcast/{resource} [POST]
func (h *Handler) Broadcast(c *gin.Context) {
	var req broadcastReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, pkgErrors.NewValidationError(ErrCodeValidation, "body", err.Error()), nil)
		return
	}

	claims, role, err := h.resolveRole(c, "")
	if err != nil {
		h.fail(c, err)
		return
	}

	resource := c.Param("resource")
	if err := h.sendBroadcast(c.Request.Context(), resource, claims.UserID(), role, req); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, broadcastResp{Resource: resource, Event: req.Event})
}

// Stats reports channel and session counters.
// @Summary Realtime statistics
// @Tags Realtime
// @Produce json
// @Param Authorization header string true "Bearer token"
// @Success 200 {object} response.Resp{data=statsResp}
// @Failure 403 {object} response.Resp "Staff role required"
// @Router /api/v1/realtime/stats [GET]
func (h *Handler) Stats(c *gin.Context) {
	if _, _, err := h.requireStaff(c); err != nil {
		h.fail(c, err)
		return
	}

	sessions := h.activeSessions()
	active := make([]sessionResp, 0, len(sessions))
	for _, s := range sessions {
		active = append(active, s.info())
	}
	sort.Slice(active, func(i, j int) bool { return active[i].StartedAt.Before(active[j].StartedAt) })

	resp := statsResp{Registry: h.reg.Stats(), Active: active}
	if h.tracker != nil {
		resp.Sessions = h.tracker.Stats()
	}
	response.OK(c, resp)
}
