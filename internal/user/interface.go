package user

import (
	"context"

	"farmstand-realtime/internal/realtime"
)

//go:generate mockery --name UseCase
type UseCase interface {
	// CanAssume reports whether userID, authenticated with claimed, may open a
	// realtime session as requested.
	CanAssume(ctx context.Context, userID string, claimed, requested realtime.Role) (bool, error)
}
