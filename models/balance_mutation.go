package models

import (
	"time"
)

// BalanceMutation records one applied balance delta. The idempotency key is
// unique, so replaying a key returns this record instead of mutating again.
type BalanceMutation struct {
	ID             int64     `db:"id"`
	IdempotencyKey string    `db:"idempotency_key"`
	UserID         int64     `db:"user_id"`
	Delta          int64     `db:"delta"`
	BalanceBefore  int64     `db:"balance_before"`
	BalanceAfter   int64     `db:"balance_after"`
	CreatedAt      time.Time `db:"created_at"`
}
