package usecase

import (
	"farmstand-realtime/internal/user"
	"farmstand-realtime/internal/user/repository"
	pkgLog "farmstand-realtime/pkg/log"
)

type usecase struct {
	l    pkgLog.Logger
	repo repository.Repository
}

// New builds the role resolver. repo may be nil, in which case only the
// token's role is checked.
func New(l pkgLog.Logger, repo repository.Repository) user.UseCase {
	return &usecase{l: l, repo: repo}
}
