package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finengine/models"

	"github.com/jackc/pgx/v5"
)

// WithdrawalRepository implements withdrawal data access
type WithdrawalRepository struct {
	q queryable
}

func newWithdrawalRepositoryWithTx(tx queryable) *WithdrawalRepository {
	return &WithdrawalRepository{q: tx}
}

const withdrawalColumns = `
	id, user_id, amount, charge, final_amount, bank_account, status, rejection_reason,
	processed_by, approved_at, rejected_at, version, created_at, updated_at`

func scanWithdrawal(row pgx.Row) (*models.Withdrawal, error) {
	var w models.Withdrawal
	err := row.Scan(
		&w.ID,
		&w.UserID,
		&w.Amount,
		&w.Charge,
		&w.FinalAmount,
		&w.BankAccount,
		&w.Status,
		&w.RejectionReason,
		&w.ProcessedBy,
		&w.ApprovedAt,
		&w.RejectedAt,
		&w.Version,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts a withdrawal. The table enforces final_amount = amount - charge.
func (r *WithdrawalRepository) Create(ctx context.Context, withdrawal *models.Withdrawal) error {
	if withdrawal.FinalAmount != withdrawal.Amount-withdrawal.Charge {
		return fmt.Errorf("%w: final amount must equal amount minus charge", models.ErrValidation)
	}

	query := `
		INSERT INTO withdrawals (user_id, amount, charge, final_amount, bank_account, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, version, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		withdrawal.UserID,
		withdrawal.Amount,
		withdrawal.Charge,
		withdrawal.FinalAmount,
		withdrawal.BankAccount,
		withdrawal.Status,
	).Scan(&withdrawal.ID, &withdrawal.Version, &withdrawal.CreatedAt, &withdrawal.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}
	return nil
}

func (r *WithdrawalRepository) get(ctx context.Context, id int64, lock bool) (*models.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	w, err := scanWithdrawal(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal %d: %w", id, err)
	}
	return w, nil
}

// GetByID retrieves a withdrawal by id
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*models.Withdrawal, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate retrieves a withdrawal and locks its row
func (r *WithdrawalRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Withdrawal, error) {
	return r.get(ctx, id, true)
}

// Update writes the review fields if the stored version equals expectedVersion
func (r *WithdrawalRepository) Update(ctx context.Context, withdrawal *models.Withdrawal, expectedVersion int64) error {
	if withdrawal.Status == models.WithdrawalStatusRejected && withdrawal.RejectionReason == nil {
		return fmt.Errorf("%w: rejected withdrawal needs a reason", models.ErrValidation)
	}

	query := `
		UPDATE withdrawals
		SET status = $1, rejection_reason = $2, processed_by = $3, approved_at = $4, rejected_at = $5,
			version = version + 1, updated_at = NOW()
		WHERE id = $6 AND version = $7
		RETURNING version, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		withdrawal.Status,
		withdrawal.RejectionReason,
		withdrawal.ProcessedBy,
		withdrawal.ApprovedAt,
		withdrawal.RejectedAt,
		withdrawal.ID,
		expectedVersion,
	).Scan(&withdrawal.Version, &withdrawal.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := r.get(ctx, withdrawal.ID, false)
		if getErr != nil {
			return getErr
		}
		if existing == nil {
			return fmt.Errorf("%w: withdrawal %d", models.ErrNotFound, withdrawal.ID)
		}
		return fmt.Errorf("%w: withdrawal %d is at version %d", models.ErrConcurrentModification, withdrawal.ID, existing.Version)
	}
	if err != nil {
		return fmt.Errorf("failed to update withdrawal %d: %w", withdrawal.ID, err)
	}
	return nil
}

// List returns withdrawals newest first, optionally filtered by status
func (r *WithdrawalRepository) List(ctx context.Context, status *models.WithdrawalStatus, limit int) ([]*models.Withdrawal, error) {
	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY id DESC
	`
	args := []any{status}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return r.query(ctx, query, args...)
}

// GetByDateRange returns withdrawals created in [from, to) oldest first
func (r *WithdrawalRepository) GetByDateRange(ctx context.Context, from, to time.Time) ([]*models.Withdrawal, error) {
	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY id
	`
	return r.query(ctx, query, from, to)
}

func (r *WithdrawalRepository) query(ctx context.Context, query string, args ...any) ([]*models.Withdrawal, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []*models.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating withdrawals: %w", err)
	}
	return withdrawals, nil
}
