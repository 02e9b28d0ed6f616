package model

import (
	"time"

	"farmstand-realtime/internal/sqlboiler"
)

// User is the part of a storefront account the realtime service reads.
type User struct {
	ID        string     `json:"id"`
	Role      *string    `json:"role,omitempty"`
	IsActive  bool       `json:"is_active"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// NewUserFromDB converts a sqlboiler row. A NULL is_active reads as inactive.
func NewUserFromDB(dbUser *sqlboiler.User) *User {
	user := &User{
		ID:       dbUser.ID,
		IsActive: dbUser.IsActive.Valid && dbUser.IsActive.Bool,
	}

	if dbUser.Role.Valid {
		user.Role = &dbUser.Role.String
	}
	if dbUser.UpdatedAt.Valid {
		user.UpdatedAt = &dbUser.UpdatedAt.Time
	}

	return user
}

// RoleOrDefault returns the stored role, or fallback when none is set.
func (u User) RoleOrDefault(fallback string) string {
	if u.Role == nil || *u.Role == "" {
		return fallback
	}
	return *u.Role
}
