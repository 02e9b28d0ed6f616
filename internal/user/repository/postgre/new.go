package postgres

import (
	"database/sql"

	"farmstand-realtime/internal/user/repository"
	pkgLog "farmstand-realtime/pkg/log"
)

type implRepository struct {
	l  pkgLog.Logger
	db *sql.DB
}

var _ repository.Repository = &implRepository{}

func New(l pkgLog.Logger, db *sql.DB) repository.Repository {
	return &implRepository{l: l, db: db}
}
