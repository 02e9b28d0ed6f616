package postgres

import (
	"context"
	"database/sql"

	"farmstand-realtime/internal/model"
	"farmstand-realtime/internal/sqlboiler"
	"farmstand-realtime/internal/user/repository"
)

func (r *implRepository) Detail(ctx context.Context, id string) (model.User, error) {
	mods, err := r.buildDetailQuery(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	usr, err := sqlboiler.Users(mods...).One(ctx, r.db)
	if err != nil {
		if err == sql.ErrNoRows {
			return model.User{}, repository.ErrNotFound
		}
		r.l.Errorf(ctx, "internal.user.repository.postgres.Detail.One: %v", err)
		return model.User{}, err
	}

	return *model.NewUserFromDB(usr), nil
}
