package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmstand-realtime/internal/user/repository"
	"farmstand-realtime/pkg/log"
)

const userID = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"

// detailQuery matches the statement the sqlboiler users query renders.
const detailQuery = `(?i)SELECT .*"id".*"role".*"is_active".*"updated_at" FROM "users" WHERE .*"users"\."id" = \$1.*"users"\."deleted_at" is null.*LIMIT 1`

func newMock(t *testing.T) (repository.Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(log.NewNop(), db), mock
}

func TestDetail(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(detailQuery).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "is_active", "updated_at"}).
			AddRow(userID, "staff", true, now))

	u, err := repo.Detail(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, userID, u.ID)
	require.NotNil(t, u.Role)
	assert.Equal(t, "staff", *u.Role)
	assert.True(t, u.IsActive)
	require.NotNil(t, u.UpdatedAt)
	assert.True(t, now.Equal(*u.UpdatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDetailNullColumns(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(detailQuery).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "is_active", "updated_at"}).
			AddRow(userID, nil, nil, nil))

	u, err := repo.Detail(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, u.Role)
	assert.False(t, u.IsActive)
	assert.Nil(t, u.UpdatedAt)
	assert.Equal(t, "customer", u.RoleOrDefault("customer"))
}

func TestDetailNotFound(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectQuery(detailQuery).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "is_active", "updated_at"}))

	_, err := repo.Detail(context.Background(), userID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDetailNonUUIDSkipsQuery(t *testing.T) {
	repo, mock := newMock(t)

	_, err := repo.Detail(context.Background(), "user-42")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDetailQueryError(t *testing.T) {
	repo, mock := newMock(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery(detailQuery).WithArgs(userID).WillReturnError(boom)

	_, err := repo.Detail(context.Background(), userID)
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection reset")
	assert.NotErrorIs(t, err, repository.ErrNotFound)
}
