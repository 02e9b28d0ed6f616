package postgres

import (
	"context"

	"farmstand-realtime/internal/sqlboiler"
	"farmstand-realtime/internal/user/repository"
	postgresPkg "farmstand-realtime/pkg/postgre"

	"github.com/aarondl/sqlboiler/v4/queries/qm"
)

func (r *implRepository) buildDetailQuery(ctx context.Context, id string) ([]qm.QueryMod, error) {
	// users.id is a uuid column; anything else cannot match
	if err := postgresPkg.IsUUID(id); err != nil {
		r.l.Debugf(ctx, "internal.user.repository.postgres.buildDetailQuery.IsUUID: %v", err)
		return nil, repository.ErrNotFound
	}

	return []qm.QueryMod{
		sqlboiler.UserWhere.ID.EQ(id),
		sqlboiler.UserWhere.DeletedAt.IsNull(),
	}, nil
}
