package models

import (
	"time"
)

// UserStatus is the platform status of a user account
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// User represents a platform user with a balance in minor currency units
type User struct {
	ID        int64      `db:"id"`
	Username  string     `db:"username"`
	Balance   int64      `db:"balance"`
	Status    UserStatus `db:"status"`
	Version   int64      `db:"version"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}
