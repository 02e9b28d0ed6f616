package repository

import (
	"context"
	"errors"

	"farmstand-realtime/internal/model"
)

var ErrNotFound = errors.New("repository: user not found")

//go:generate mockery --name Repository
type Repository interface {
	Detail(ctx context.Context, id string) (model.User, error)
}
