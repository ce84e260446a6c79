package models

import "time"

// PrizeType describes what a spin prize pays out
type PrizeType string

const (
	PrizeTypeCash  PrizeType = "cash"
	PrizeTypeBonus PrizeType = "bonus"
	PrizeTypeNone  PrizeType = "none"
)

// Valid reports whether t is a known prize type
func (t PrizeType) Valid() bool {
	return t == PrizeTypeCash || t == PrizeTypeBonus || t == PrizeTypeNone
}

// PrizeStatus toggles participation of a prize in draws
type PrizeStatus string

const (
	PrizeStatusActive   PrizeStatus = "active"
	PrizeStatusInactive PrizeStatus = "inactive"
)

// SpinPrize is one slot of the prize wheel
type SpinPrize struct {
	ID               int64       `db:"id"`
	Name             string      `db:"name"`
	Amount           int64       `db:"amount"`
	Type             PrizeType   `db:"type"`
	ChanceWeight     int64       `db:"chance_weight"`
	ChancePercentage float64     `db:"chance_percentage"` // Derived from the active weight set
	Status           PrizeStatus `db:"status"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

// IsActive checks if the prize takes part in draws
func (p *SpinPrize) IsActive() bool {
	return p.Status == PrizeStatusActive
}

// SpinResultStatus represents the lifecycle state of a spin outcome
type SpinResultStatus string

const (
	SpinResultStatusPending   SpinResultStatus = "pending"
	SpinResultStatusClaimed   SpinResultStatus = "claimed"
	SpinResultStatusCancelled SpinResultStatus = "cancelled"
	SpinResultStatusCompleted SpinResultStatus = "completed"
)

// Valid reports whether s is a known spin result status
func (s SpinResultStatus) Valid() bool {
	switch s {
	case SpinResultStatusPending, SpinResultStatusClaimed, SpinResultStatusCancelled, SpinResultStatusCompleted:
		return true
	}
	return false
}

// SpinResult is the outcome of one draw for a user. The prize fields are a
// snapshot taken at draw time so later prize edits do not change payouts.
type SpinResult struct {
	ID            int64            `db:"id"`
	UserID        int64            `db:"user_id"`
	PrizeID       int64            `db:"prize_id"`
	PrizeName     string           `db:"prize_name"`
	PrizeAmount   int64            `db:"prize_amount"`
	PrizeType     PrizeType        `db:"prize_type"`
	Status        SpinResultStatus `db:"status"`
	SpinDate      time.Time        `db:"spin_date"`
	ClaimedDate   *time.Time       `db:"claimed_date"`
	CancelledDate *time.Time       `db:"cancelled_date"`
	CancelReason  *string          `db:"cancel_reason"`
	Version       int64            `db:"version"`
	CreatedAt     time.Time        `db:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at"`
}
