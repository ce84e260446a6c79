package service

import (
	"context"
	"time"

	"finengine/events"
	"finengine/models"
	"finengine/statemachine"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by id, nil if absent
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByIDForUpdate retrieves a user and locks the row until the
	// transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error)

	// Create inserts a user with a zero balance and fills in ID and timestamps
	Create(ctx context.Context, user *models.User) error

	// UpdateBalance sets the balance and bumps the version
	UpdateBalance(ctx context.Context, id int64, newBalance int64) error
}

// ProductRepository defines the interface for investment product data access
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Product, error)

	// Upsert inserts the product when ID is zero, otherwise updates it
	Upsert(ctx context.Context, product *models.Product) error

	GetAll(ctx context.Context) ([]*models.Product, error)
}

// InvestmentRepository defines the interface for investment data access
type InvestmentRepository interface {
	Create(ctx context.Context, investment *models.Investment) error
	GetByID(ctx context.Context, id int64) (*models.Investment, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Investment, error)

	// Update writes the investment if its stored version still equals
	// expectedVersion and increments the version. A mismatch returns
	// ErrConcurrentModification.
	Update(ctx context.Context, investment *models.Investment, expectedVersion int64) error

	// List returns investments newest first, optionally filtered by status
	List(ctx context.Context, status *models.InvestmentStatus, limit int) ([]*models.Investment, error)
}

// WithdrawalRepository defines the interface for withdrawal data access
type WithdrawalRepository interface {
	Create(ctx context.Context, withdrawal *models.Withdrawal) error
	GetByID(ctx context.Context, id int64) (*models.Withdrawal, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Withdrawal, error)

	// Update writes the withdrawal with the same version contract as
	// InvestmentRepository.Update
	Update(ctx context.Context, withdrawal *models.Withdrawal, expectedVersion int64) error

	List(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.Withdrawal, error)

	// GetByDateRange returns withdrawals created in [from, to)
	GetByDateRange(ctx context.Context, from, to time.Time) ([]*models.Withdrawal, error)
}

// SpinPrizeRepository defines the interface for prize wheel data access
type SpinPrizeRepository interface {
	// LockPrizeSet serializes prize set edits and draws for the rest of the
	// transaction
	LockPrizeSet(ctx context.Context) error

	// GetAll returns every prize ordered by id
	GetAll(ctx context.Context) ([]*models.SpinPrize, error)

	GetByID(ctx context.Context, id int64) (*models.SpinPrize, error)
	Upsert(ctx context.Context, prize *models.SpinPrize) error

	// Delete removes a prize, ErrNotFound if absent
	Delete(ctx context.Context, id int64) error

	// SaveChances persists ChancePercentage of every given prize
	SaveChances(ctx context.Context, prizes []*models.SpinPrize) error
}

// SpinResultRepository defines the interface for spin outcome data access
type SpinResultRepository interface {
	Create(ctx context.Context, result *models.SpinResult) error
	GetByID(ctx context.Context, id int64) (*models.SpinResult, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.SpinResult, error)
	Update(ctx context.Context, result *models.SpinResult, expectedVersion int64) error

	// CountByUserSince counts spins a user made at or after since
	CountByUserSince(ctx context.Context, userID int64, since time.Time) (int, error)

	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.SpinResult, error)
}

// TransactionRepository defines the interface for the append-only audit log
type TransactionRepository interface {
	// Create appends a transaction and fills in ID and CreatedAt
	Create(ctx context.Context, tx *models.Transaction) error

	GetByReference(ctx context.Context, reference string) (*models.Transaction, error)

	// GetByRelatedEntity returns the audit trail of one entity, oldest first
	GetByRelatedEntity(ctx context.Context, entityType models.EntityType, entityID int64) ([]*models.Transaction, error)

	// GetByDateRange returns transactions created in [from, to)
	GetByDateRange(ctx context.Context, from, to time.Time) ([]*models.Transaction, error)
}

// BalanceMutationRepository defines the interface for the balance
// idempotency ledger
type BalanceMutationRepository interface {
	// GetByKey returns the mutation recorded under key, nil if none
	GetByKey(ctx context.Context, key string) (*models.BalanceMutation, error)

	// Record stores an applied mutation
	Record(ctx context.Context, mutation *models.BalanceMutation) error

	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.BalanceMutation, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes pending events
	Commit() error

	// Rollback rolls back the transaction. It is a no-op after Commit.
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	ProductRepository() ProductRepository
	InvestmentRepository() InvestmentRepository
	WithdrawalRepository() WithdrawalRepository
	SpinPrizeRepository() SpinPrizeRepository
	SpinResultRepository() SpinResultRepository
	TransactionRepository() TransactionRepository
	BalanceMutationRepository() BalanceMutationRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}

// MetricsRecorder receives workflow measurements. A nil recorder is valid.
type MetricsRecorder interface {
	RecordWorkflowAction(entityType, action, outcome string)
	RecordBalanceMutation(direction string, replayed bool)
	RecordSpinDraw(prizeType string)
}

// UserService defines the interface for user operations
type UserService interface {
	// CreateUser registers a user and credits the initial balance
	CreateUser(ctx context.Context, username string, initialBalance int64) (*models.User, error)

	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// ProductService manages the investment product catalog
type ProductService interface {
	UpsertProduct(ctx context.Context, product *models.Product) (*models.Product, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)
}

// InvestmentService handles user-side investment requests and queries
type InvestmentService interface {
	CreateInvestment(ctx context.Context, userID, productID, amount int64, durationMonths int) (*models.Investment, error)
	GetInvestment(ctx context.Context, id int64) (*models.Investment, error)
	ListInvestments(ctx context.Context, status *models.InvestmentStatus, limit int) ([]*models.Investment, error)
}

// WithdrawalService handles user-side withdrawal requests and queries
type WithdrawalService interface {
	CreateWithdrawal(ctx context.Context, userID, amount int64, bankAccount string) (*models.Withdrawal, error)
	GetWithdrawal(ctx context.Context, id int64) (*models.Withdrawal, error)
	ListWithdrawals(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.Withdrawal, error)
}

// SpinService manages the prize wheel and draws
type SpinService interface {
	// UpsertPrize inserts or edits a prize and returns the recalculated set
	UpsertPrize(ctx context.Context, prize *models.SpinPrize) ([]*models.SpinPrize, error)

	// DeletePrize removes a prize and returns the recalculated set
	DeletePrize(ctx context.Context, id int64) ([]*models.SpinPrize, error)

	ListPrizes(ctx context.Context) ([]*models.SpinPrize, error)

	// DrawSpin draws a prize for the user and records a pending result
	DrawSpin(ctx context.Context, userID int64) (*models.SpinResult, error)

	GetSpinResult(ctx context.Context, id int64) (*models.SpinResult, error)
}

// ApprovalWorkflow is the single entry point for admin actions. Every call
// is one atomic unit: transition check, balance change, entity write and
// audit record commit together or not at all.
type ApprovalWorkflow interface {
	Execute(ctx context.Context, req ActionRequest) (*Outcome, error)

	ApproveInvestment(ctx context.Context, actorID string, id, version int64) (*Outcome, error)
	RejectInvestment(ctx context.Context, actorID string, id, version int64, reason string) (*Outcome, error)
	SuspendInvestment(ctx context.Context, actorID string, id, version int64, reason string) (*Outcome, error)
	CancelInvestment(ctx context.Context, actorID string, id, version int64, reason string) (*Outcome, error)
	ReactivateInvestment(ctx context.Context, actorID string, id, version int64) (*Outcome, error)

	ApproveWithdrawal(ctx context.Context, actorID string, id, version int64) (*Outcome, error)
	RejectWithdrawal(ctx context.Context, actorID string, id, version int64, reason string) (*Outcome, error)

	ClaimSpin(ctx context.Context, actorID string, id, version int64) (*Outcome, error)
	CancelSpin(ctx context.Context, actorID string, id, version int64, reason string) (*Outcome, error)
}

// ReportService produces read-only aggregates
type ReportService interface {
	DailyReport(ctx context.Context, date time.Time) (*models.ReportSummary, error)
}

// ActionRequest is one admin action against an entity
type ActionRequest struct {
	ActorID    string
	EntityType models.EntityType
	EntityID   int64
	Version    int64
	Action     statemachine.Action
	Reason     string
}

// Outcome carries the audit record of an executed action and the entity in
// its new state. Exactly one of the entity fields is set.
type Outcome struct {
	Transaction *models.Transaction
	Investment  *models.Investment
	Withdrawal  *models.Withdrawal
	SpinResult  *models.SpinResult
}
