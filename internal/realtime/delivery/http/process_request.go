package http

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	"farmstand-realtime/internal/realtime"
	"farmstand-realtime/pkg/jwt"
)

// resolveRole checks that the caller may act as requested. An empty request
// means the role carried by the token.
func (h *Handler) resolveRole(c *gin.Context, requested string) (*jwt.Claims, realtime.Role, error) {
	ctx := c.Request.Context()

	claims, ok := jwt.GetClaimsFromContext(ctx)
	if !ok {
		return nil, "", errUnauthenticated
	}
	if requested == "" {
		requested = claims.Role
	}

	role, err := realtime.ParseRole(requested)
	if err != nil {
		h.security.LogInvalidInput(ctx, claims.UserID(), "role", err.Error())
		return nil, "", err
	}

	granted, err := h.userUC.CanAssume(ctx, claims.UserID(), realtime.Role(claims.Role), role)
	if err != nil {
		return nil, "", err
	}
	if !granted {
		h.security.LogAuthorizationFailure(ctx, claims.UserID(), "role:"+string(role), "role not granted")
		return nil, "", errRoleNotGranted
	}
	return claims, role, nil
}

// requireStaff resolves the token role and rejects customers.
func (h *Handler) requireStaff(c *gin.Context) (*jwt.Claims, realtime.Role, error) {
	claims, role, err := h.resolveRole(c, "")
	if err != nil {
		return nil, "", err
	}
	if !role.IsStaff() {
		h.security.LogAuthorizationFailure(c.Request.Context(), claims.UserID(), c.FullPath(), "staff role required")
		return nil, "", errStaffOnly
	}
	return claims, role, nil
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &realtime.ValidationError{Field: "payload", Message: err.Error()}
	}
	return nil
}

// sendBroadcast routes a broadcast request to the helper. Customers may only
// touch their own cart.
func (h *Handler) sendBroadcast(ctx context.Context, resource, userID string, role realtime.Role, req broadcastReq) error {
	switch resource {
	case string(realtime.KindCart):
		target := userID
		if req.UserID != "" && req.UserID != userID {
			if !role.IsStaff() {
				return errStaffOnly
			}
			target = req.UserID
		}
		var p realtime.CartPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return err
		}
		p.UserID = target
		return h.bc.SendCartUpdate(ctx, target, req.Event, p)

	case string(realtime.KindOrder):
		if !role.IsStaff() {
			return errStaffOnly
		}
		var p realtime.OrderPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return err
		}
		return h.bc.SendOrderUpdate(ctx, req.Event, p)

	case string(realtime.KindProduct):
		if !role.IsStaff() {
			return errStaffOnly
		}
		var p realtime.ProductPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return err
		}
		return h.bc.SendProductUpdate(ctx, req.Event, p)

	case "dashboard":
		if !role.IsStaff() {
			return errStaffOnly
		}
		kind, err := realtime.ParseKind(req.Kind)
		if err != nil {
			return err
		}
		var p realtime.DashboardPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return err
		}
		return h.bc.SendDashboardUpdate(ctx, kind, req.Event, p)
	}
	return errUnknownResource
}
