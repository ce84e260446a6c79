package models

import "time"

// ReportSummary aggregates one UTC calendar day of withdrawals and
// transactions
type ReportSummary struct {
	Date          time.Time                `json:"date"`
	Count         int                      `json:"count"`
	TotalAmount   int64                    `json:"total_amount"`
	TotalCharges  int64                    `json:"total_charges"`
	CountByStatus map[WithdrawalStatus]int `json:"count_by_status"`
	Transactions  TransactionSummary       `json:"transactions"`
}

// TransactionSummary aggregates audit records of a day by type
type TransactionSummary struct {
	Count       int                       `json:"count"`
	TotalByType map[TransactionType]int64 `json:"total_by_type"`
	CountByType map[TransactionType]int   `json:"count_by_type"`
}
