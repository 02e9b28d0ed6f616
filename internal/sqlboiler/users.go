package sqlboiler

import (
	"context"
	"database/sql"

	"github.com/aarondl/null/v8"
	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/aarondl/sqlboiler/v4/queries/qm"
	"github.com/aarondl/sqlboiler/v4/queries/qmhelper"
	"github.com/friendsofgo/errors"
)

// User is the read side of a row in the users table.
type User struct {
	ID        string      `boil:"id" json:"id" toml:"id" yaml:"id"`
	Role      null.String `boil:"role" json:"role,omitempty" toml:"role" yaml:"role,omitempty"`
	IsActive  null.Bool   `boil:"is_active" json:"is_active,omitempty" toml:"is_active" yaml:"is_active,omitempty"`
	UpdatedAt null.Time   `boil:"updated_at" json:"updated_at,omitempty" toml:"updated_at" yaml:"updated_at,omitempty"`
}

var UserColumns = struct {
	ID        string
	Role      string
	IsActive  string
	UpdatedAt string
	DeletedAt string
}{
	ID:        "id",
	Role:      "role",
	IsActive:  "is_active",
	UpdatedAt: "updated_at",
	DeletedAt: "deleted_at",
}

type whereHelperstring struct{ field string }

func (w whereHelperstring) EQ(x string) qm.QueryMod { return qmhelper.Where(w.field, qmhelper.EQ, x) }

type whereHelpernull_Time struct{ field string }

func (w whereHelpernull_Time) IsNull() qm.QueryMod { return qmhelper.WhereIsNull(w.field) }

var UserWhere = struct {
	ID        whereHelperstring
	DeletedAt whereHelpernull_Time
}{
	ID:        whereHelperstring{field: "\"users\".\"id\""},
	DeletedAt: whereHelpernull_Time{field: "\"users\".\"deleted_at\""},
}

// userReadColumns are the columns User can bind. The table carries more, so
// a query must not fall back to users.*.
var userReadColumns = []string{
	"\"users\".\"id\"",
	"\"users\".\"role\"",
	"\"users\".\"is_active\"",
	"\"users\".\"updated_at\"",
}

type userQuery struct {
	*queries.Query
}

// Users retrieves all the records using an executor.
func Users(mods ...qm.QueryMod) userQuery {
	mods = append(mods, qm.From("\"users\""))
	q := NewQuery(mods...)
	if len(queries.GetSelect(q)) == 0 {
		queries.SetSelect(q, userReadColumns)
	}

	return userQuery{q}
}

// One returns a single user record from the query.
func (q userQuery) One(ctx context.Context, exec boil.ContextExecutor) (*User, error) {
	o := &User{}

	queries.SetLimit(q.Query, 1)

	err := q.Bind(ctx, exec, o)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, errors.Wrap(err, "sqlboiler: failed to execute a one query for users")
	}

	return o, nil
}
