package models

import (
	"time"
)

// TransactionType represents the business meaning of an audit record
type TransactionType string

const (
	TransactionTypeInitial    TransactionType = "initial"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeInvestment TransactionType = "investment"
	TransactionTypeSpinPrize  TransactionType = "spin_prize"
)

// TransactionFlow is the direction of money relative to the user's balance
type TransactionFlow string

const (
	TransactionFlowDebit  TransactionFlow = "debit"
	TransactionFlowCredit TransactionFlow = "credit"
	TransactionFlowNone   TransactionFlow = "none"
)

// TransactionStatus of an audit record. Records are written once the effect
// is committed, so only success exists today.
type TransactionStatus string

const (
	TransactionStatusSuccess TransactionStatus = "success"
)

// EntityType names the kind of entity a workflow action targets
type EntityType string

const (
	EntityTypeUser       EntityType = "user"
	EntityTypeInvestment EntityType = "investment"
	EntityTypeWithdrawal EntityType = "withdrawal"
	EntityTypeSpinResult EntityType = "spin_result"
)

// Transaction is an append-only audit record of a committed action
type Transaction struct {
	ID                int64             `db:"id"`
	Reference         string            `db:"reference"`
	UserID            int64             `db:"user_id"`
	Type              TransactionType   `db:"type"`
	Flow              TransactionFlow   `db:"flow"`
	Amount            int64             `db:"amount"`
	Charge            int64             `db:"charge"`
	Status            TransactionStatus `db:"status"`
	RelatedEntityType EntityType        `db:"related_entity_type"`
	RelatedEntityID   int64             `db:"related_entity_id"`
	Action            string            `db:"action"`
	ActorID           string            `db:"actor_id"`
	Message           *string           `db:"message"`
	BalanceAfter      *int64            `db:"balance_after"`
	CreatedAt         time.Time         `db:"created_at"`
}
