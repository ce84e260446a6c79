package repository

import (
	"context"
	"errors"
	"fmt"

	"finengine/models"

	"github.com/jackc/pgx/v5"
)

// prizeSetLockKey identifies the advisory lock guarding the prize set
const prizeSetLockKey int64 = 0x5350494e // "SPIN"

// SpinPrizeRepository implements prize wheel data access
type SpinPrizeRepository struct {
	q queryable
}

func newSpinPrizeRepositoryWithTx(tx queryable) *SpinPrizeRepository {
	return &SpinPrizeRepository{q: tx}
}

const spinPrizeColumns = `id, name, amount, type, chance_weight, chance_percentage, status, created_at, updated_at`

func scanSpinPrize(row pgx.Row) (*models.SpinPrize, error) {
	var p models.SpinPrize
	err := row.Scan(&p.ID, &p.Name, &p.Amount, &p.Type, &p.ChanceWeight, &p.ChancePercentage, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// LockPrizeSet takes a transaction scoped advisory lock so edits and draws
// see a consistent set of weights
func (r *SpinPrizeRepository) LockPrizeSet(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, prizeSetLockKey); err != nil {
		return fmt.Errorf("failed to lock prize set: %w", err)
	}
	return nil
}

// GetAll returns every prize ordered by id
func (r *SpinPrizeRepository) GetAll(ctx context.Context) ([]*models.SpinPrize, error) {
	query := `SELECT ` + spinPrizeColumns + ` FROM spin_prizes ORDER BY id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query spin prizes: %w", err)
	}
	defer rows.Close()

	var prizes []*models.SpinPrize
	for rows.Next() {
		p, err := scanSpinPrize(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan spin prize: %w", err)
		}
		prizes = append(prizes, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating spin prizes: %w", err)
	}
	return prizes, nil
}

// GetByID retrieves a prize by id
func (r *SpinPrizeRepository) GetByID(ctx context.Context, id int64) (*models.SpinPrize, error) {
	query := `SELECT ` + spinPrizeColumns + ` FROM spin_prizes WHERE id = $1`

	p, err := scanSpinPrize(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get spin prize %d: %w", id, err)
	}
	return p, nil
}

// Upsert inserts the prize when ID is zero, otherwise updates it
func (r *SpinPrizeRepository) Upsert(ctx context.Context, prize *models.SpinPrize) error {
	if prize.ID == 0 {
		query := `
			INSERT INTO spin_prizes (name, amount, type, chance_weight, chance_percentage, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, updated_at
		`
		err := r.q.QueryRow(ctx, query,
			prize.Name, prize.Amount, prize.Type, prize.ChanceWeight, prize.ChancePercentage, prize.Status,
		).Scan(&prize.ID, &prize.CreatedAt, &prize.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create spin prize: %w", err)
		}
		return nil
	}

	query := `
		UPDATE spin_prizes
		SET name = $2, amount = $3, type = $4, chance_weight = $5, status = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		prize.ID, prize.Name, prize.Amount, prize.Type, prize.ChanceWeight, prize.Status,
	).Scan(&prize.CreatedAt, &prize.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: prize %d", models.ErrNotFound, prize.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update spin prize %d: %w", prize.ID, err)
	}
	return nil
}

// Delete removes a prize. Past spin results keep their snapshot.
func (r *SpinPrizeRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.Exec(ctx, `DELETE FROM spin_prizes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete spin prize %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: prize %d", models.ErrNotFound, id)
	}
	return nil
}

// SaveChances persists the derived percentage of each prize in one batch
func (r *SpinPrizeRepository) SaveChances(ctx context.Context, prizes []*models.SpinPrize) error {
	ids := make([]int64, len(prizes))
	chances := make([]float64, len(prizes))
	for i, p := range prizes {
		ids[i] = p.ID
		chances[i] = p.ChancePercentage
	}

	query := `
		UPDATE spin_prizes AS p
		SET chance_percentage = c.chance
		FROM UNNEST($1::bigint[], $2::double precision[]) AS c(id, chance)
		WHERE p.id = c.id
	`
	result, err := r.q.Exec(ctx, query, ids, chances)
	if err != nil {
		return fmt.Errorf("failed to save prize chances: %w", err)
	}
	if result.RowsAffected() != int64(len(prizes)) {
		return fmt.Errorf("%w: %d of %d prizes updated", models.ErrNotFound, result.RowsAffected(), len(prizes))
	}
	return nil
}
