package models

import "time"

// WithdrawalStatus represents the lifecycle state of a withdrawal request
type WithdrawalStatus string

const (
	WithdrawalStatusPending  WithdrawalStatus = "pending"
	WithdrawalStatusApproved WithdrawalStatus = "approved"
	WithdrawalStatusRejected WithdrawalStatus = "rejected"
)

// Valid reports whether s is a known withdrawal status
func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalStatusPending, WithdrawalStatusApproved, WithdrawalStatusRejected:
		return true
	}
	return false
}

// Withdrawal represents a user's request to move balance to a bank account
type Withdrawal struct {
	ID              int64            `db:"id"`
	UserID          int64            `db:"user_id"`
	Amount          int64            `db:"amount"`
	Charge          int64            `db:"charge"`
	FinalAmount     int64            `db:"final_amount"` // Always Amount - Charge
	BankAccount     string           `db:"bank_account"`
	Status          WithdrawalStatus `db:"status"`
	RejectionReason *string          `db:"rejection_reason"`
	ProcessedBy     *string          `db:"processed_by"`
	ApprovedAt      *time.Time       `db:"approved_at"`
	RejectedAt      *time.Time       `db:"rejected_at"`
	Version         int64            `db:"version"`
	CreatedAt       time.Time        `db:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at"`
}

// NewWithdrawal builds a pending withdrawal with FinalAmount derived from
// amount and charge
func NewWithdrawal(userID, amount, charge int64, bankAccount string) *Withdrawal {
	return &Withdrawal{
		UserID:      userID,
		Amount:      amount,
		Charge:      charge,
		FinalAmount: amount - charge,
		BankAccount: bankAccount,
		Status:      WithdrawalStatusPending,
	}
}

// IsTerminal checks if the withdrawal can no longer change
func (w *Withdrawal) IsTerminal() bool {
	return w.Status == WithdrawalStatusApproved || w.Status == WithdrawalStatusRejected
}
