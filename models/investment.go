package models

import (
	"math"
	"time"
)

// InvestmentStatus represents the lifecycle state of an investment
type InvestmentStatus string

const (
	InvestmentStatusPending   InvestmentStatus = "pending"
	InvestmentStatusActive    InvestmentStatus = "active"
	InvestmentStatusCompleted InvestmentStatus = "completed"
	InvestmentStatusSuspended InvestmentStatus = "suspended"
	InvestmentStatusRejected  InvestmentStatus = "rejected"
	InvestmentStatusCancelled InvestmentStatus = "cancelled"
)

// Valid reports whether s is a known investment status
func (s InvestmentStatus) Valid() bool {
	switch s {
	case InvestmentStatusPending, InvestmentStatusActive, InvestmentStatusCompleted,
		InvestmentStatusSuspended, InvestmentStatusRejected, InvestmentStatusCancelled:
		return true
	}
	return false
}

// Investment represents a user's position in an investment product
type Investment struct {
	ID                int64            `db:"id"`
	UserID            int64            `db:"user_id"`
	ProductID         int64            `db:"product_id"`
	Amount            int64            `db:"amount"`
	DurationMonths    int              `db:"duration_months"`
	ExpectedReturnPct float64          `db:"expected_return_pct"`
	Status            InvestmentStatus `db:"status"`
	StartDate         *time.Time       `db:"start_date"`
	EndDate           *time.Time       `db:"end_date"`
	CurrentValue      int64            `db:"current_value"`
	ReasonText        *string          `db:"reason_text"` // Reason for the current rejected/suspended/cancelled status
	Version           int64            `db:"version"`
	CreatedAt         time.Time        `db:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at"`
}

// IsPending checks if the investment awaits review
func (i *Investment) IsPending() bool {
	return i.Status == InvestmentStatusPending
}

// IsActive checks if the investment is running
func (i *Investment) IsActive() bool {
	return i.Status == InvestmentStatusActive
}

// MaturityValue is the amount the investment is worth at its end date
func (i *Investment) MaturityValue() int64 {
	return i.Amount + int64(math.Round(float64(i.Amount)*i.ExpectedReturnPct/100))
}

// ProjectedValue linearly accrues the expected return between start and end
// date. Investments that never started are worth their principal.
func (i *Investment) ProjectedValue(at time.Time) int64 {
	if i.StartDate == nil || i.EndDate == nil || !at.After(*i.StartDate) {
		return i.Amount
	}
	if !at.Before(*i.EndDate) {
		return i.MaturityValue()
	}
	total := i.EndDate.Sub(*i.StartDate).Seconds()
	elapsed := at.Sub(*i.StartDate).Seconds()
	accrued := float64(i.MaturityValue()-i.Amount) * elapsed / total
	return i.Amount + int64(math.Floor(accrued))
}
