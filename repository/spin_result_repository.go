package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finengine/models"

	"github.com/jackc/pgx/v5"
)

// SpinResultRepository implements spin outcome data access
type SpinResultRepository struct {
	q queryable
}

func newSpinResultRepositoryWithTx(tx queryable) *SpinResultRepository {
	return &SpinResultRepository{q: tx}
}

const spinResultColumns = `
	id, user_id, prize_id, prize_name, prize_amount, prize_type, status, spin_date,
	claimed_date, cancelled_date, cancel_reason, version, created_at, updated_at`

func scanSpinResult(row pgx.Row) (*models.SpinResult, error) {
	var sr models.SpinResult
	err := row.Scan(
		&sr.ID,
		&sr.UserID,
		&sr.PrizeID,
		&sr.PrizeName,
		&sr.PrizeAmount,
		&sr.PrizeType,
		&sr.Status,
		&sr.SpinDate,
		&sr.ClaimedDate,
		&sr.CancelledDate,
		&sr.CancelReason,
		&sr.Version,
		&sr.CreatedAt,
		&sr.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sr, nil
}

// Create stores a spin result with its prize snapshot
func (r *SpinResultRepository) Create(ctx context.Context, result *models.SpinResult) error {
	if result.SpinDate.IsZero() {
		result.SpinDate = time.Now().UTC()
	}

	query := `
		INSERT INTO spin_results (user_id, prize_id, prize_name, prize_amount, prize_type, status, spin_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, version, created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		result.UserID,
		result.PrizeID,
		result.PrizeName,
		result.PrizeAmount,
		result.PrizeType,
		result.Status,
		result.SpinDate,
	).Scan(&result.ID, &result.Version, &result.CreatedAt, &result.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create spin result: %w", err)
	}
	return nil
}

func (r *SpinResultRepository) get(ctx context.Context, id int64, lock bool) (*models.SpinResult, error) {
	query := `SELECT ` + spinResultColumns + ` FROM spin_results WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	sr, err := scanSpinResult(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get spin result %d: %w", id, err)
	}
	return sr, nil
}

// GetByID retrieves a spin result by id
func (r *SpinResultRepository) GetByID(ctx context.Context, id int64) (*models.SpinResult, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate retrieves a spin result and locks its row
func (r *SpinResultRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.SpinResult, error) {
	return r.get(ctx, id, true)
}

// Update writes the lifecycle fields if the stored version equals
// expectedVersion
func (r *SpinResultRepository) Update(ctx context.Context, result *models.SpinResult, expectedVersion int64) error {
	query := `
		UPDATE spin_results
		SET status = $1, claimed_date = $2, cancelled_date = $3, cancel_reason = $4,
			version = version + 1, updated_at = NOW()
		WHERE id = $5 AND version = $6
		RETURNING version, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		result.Status,
		result.ClaimedDate,
		result.CancelledDate,
		result.CancelReason,
		result.ID,
		expectedVersion,
	).Scan(&result.Version, &result.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := r.get(ctx, result.ID, false)
		if getErr != nil {
			return getErr
		}
		if existing == nil {
			return fmt.Errorf("%w: spin result %d", models.ErrNotFound, result.ID)
		}
		return fmt.Errorf("%w: spin result %d is at version %d", models.ErrConcurrentModification, result.ID, existing.Version)
	}
	if err != nil {
		return fmt.Errorf("failed to update spin result %d: %w", result.ID, err)
	}
	return nil
}

// CountByUserSince counts spins a user made at or after since
func (r *SpinResultRepository) CountByUserSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	var count int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM spin_results WHERE user_id = $1 AND spin_date >= $2`,
		userID, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count spins for user %d: %w", userID, err)
	}
	return count, nil
}

// GetByUser returns a user's spins newest first
func (r *SpinResultRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.SpinResult, error) {
	query := `
		SELECT ` + spinResultColumns + `
		FROM spin_results
		WHERE user_id = $1
		ORDER BY id DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query spin results: %w", err)
	}
	defer rows.Close()

	var results []*models.SpinResult
	for rows.Next() {
		sr, err := scanSpinResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan spin result: %w", err)
		}
		results = append(results, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating spin results: %w", err)
	}
	return results, nil
}
