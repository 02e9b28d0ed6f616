package usecase

import (
	"context"
	"errors"

	"farmstand-realtime/internal/realtime"
	"farmstand-realtime/internal/user"
	"farmstand-realtime/internal/user/repository"
)

func (uc *usecase) CanAssume(ctx context.Context, userID string, claimed, requested realtime.Role) (bool, error) {
	if userID == "" || !requested.IsValid() || !grants(claimed, requested) {
		return false, nil
	}
	if uc.repo == nil {
		return true, nil
	}

	u, err := uc.repo.Detail(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			uc.l.Warnf(ctx, "internal.user.usecase.CanAssume: %s: %v", userID, user.ErrUserNotFound)
			return false, nil
		}
		uc.l.Errorf(ctx, "internal.user.usecase.CanAssume.Detail: %v", err)
		return false, err
	}
	if !u.IsActive {
		uc.l.Warnf(ctx, "internal.user.usecase.CanAssume: %s: %v", userID, user.ErrUserInactive)
		return false, nil
	}

	stored := realtime.Role(u.RoleOrDefault(string(realtime.RoleCustomer)))
	return grants(stored, requested), nil
}

// grants reports whether holding role lets a user open a session as requested.
// Admin grants every role; any other role grants only itself.
func grants(role, requested realtime.Role) bool {
	if role == realtime.RoleAdmin {
		return requested.IsValid()
	}
	return role == requested
}
