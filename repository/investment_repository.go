package repository

import (
	"context"
	"errors"
	"fmt"

	"finengine/models"

	"github.com/jackc/pgx/v5"
)

// InvestmentRepository implements investment data access
type InvestmentRepository struct {
	q queryable
}

func newInvestmentRepositoryWithTx(tx queryable) *InvestmentRepository {
	return &InvestmentRepository{q: tx}
}

const investmentColumns = `
	id, user_id, product_id, amount, duration_months, expected_return_pct, status,
	start_date, end_date, current_value, reason_text, version, created_at, updated_at`

func scanInvestment(row pgx.Row) (*models.Investment, error) {
	var inv models.Investment
	err := row.Scan(
		&inv.ID,
		&inv.UserID,
		&inv.ProductID,
		&inv.Amount,
		&inv.DurationMonths,
		&inv.ExpectedReturnPct,
		&inv.Status,
		&inv.StartDate,
		&inv.EndDate,
		&inv.CurrentValue,
		&inv.ReasonText,
		&inv.Version,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserts an investment and fills in ID, version and timestamps
func (r *InvestmentRepository) Create(ctx context.Context, investment *models.Investment) error {
	query := `
		INSERT INTO investments (
			user_id, product_id, amount, duration_months, expected_return_pct, status,
			start_date, end_date, current_value, reason_text
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, version, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		investment.UserID,
		investment.ProductID,
		investment.Amount,
		investment.DurationMonths,
		investment.ExpectedReturnPct,
		investment.Status,
		investment.StartDate,
		investment.EndDate,
		investment.CurrentValue,
		investment.ReasonText,
	).Scan(&investment.ID, &investment.Version, &investment.CreatedAt, &investment.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create investment: %w", err)
	}
	return nil
}

func (r *InvestmentRepository) get(ctx context.Context, id int64, lock bool) (*models.Investment, error) {
	query := `SELECT ` + investmentColumns + ` FROM investments WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	inv, err := scanInvestment(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get investment %d: %w", id, err)
	}
	return inv, nil
}

// GetByID retrieves an investment by id
func (r *InvestmentRepository) GetByID(ctx context.Context, id int64) (*models.Investment, error) {
	return r.get(ctx, id, false)
}

// GetByIDForUpdate retrieves an investment and locks its row
func (r *InvestmentRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Investment, error) {
	return r.get(ctx, id, true)
}

// Update writes the mutable fields if the stored version equals
// expectedVersion
func (r *InvestmentRepository) Update(ctx context.Context, investment *models.Investment, expectedVersion int64) error {
	query := `
		UPDATE investments
		SET status = $1, start_date = $2, end_date = $3, current_value = $4, reason_text = $5,
			version = version + 1, updated_at = NOW()
		WHERE id = $6 AND version = $7
		RETURNING version, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		investment.Status,
		investment.StartDate,
		investment.EndDate,
		investment.CurrentValue,
		investment.ReasonText,
		investment.ID,
		expectedVersion,
	).Scan(&investment.Version, &investment.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.missingOrStale(ctx, investment.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update investment %d: %w", investment.ID, err)
	}
	return nil
}

func (r *InvestmentRepository) missingOrStale(ctx context.Context, id int64) error {
	existing, err := r.get(ctx, id, false)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: investment %d", models.ErrNotFound, id)
	}
	return fmt.Errorf("%w: investment %d is at version %d", models.ErrConcurrentModification, id, existing.Version)
}

// List returns investments newest first, optionally filtered by status
func (r *InvestmentRepository) List(ctx context.Context, status *models.InvestmentStatus, limit int) ([]*models.Investment, error) {
	query := `
		SELECT ` + investmentColumns + `
		FROM investments
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY id DESC
	`
	args := []any{status}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}
	defer rows.Close()

	var investments []*models.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		investments = append(investments, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investments: %w", err)
	}
	return investments, nil
}
