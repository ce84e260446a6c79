package repository

import (
	"context"
	"errors"
	"fmt"

	"finengine/models"

	"github.com/jackc/pgx/v5"
)

// BalanceMutationRepository implements the balance idempotency ledger
type BalanceMutationRepository struct {
	q queryable
}

func newBalanceMutationRepositoryWithTx(tx queryable) *BalanceMutationRepository {
	return &BalanceMutationRepository{q: tx}
}

const balanceMutationColumns = `id, idempotency_key, user_id, delta, balance_before, balance_after, created_at`

func scanBalanceMutation(row pgx.Row) (*models.BalanceMutation, error) {
	var m models.BalanceMutation
	err := row.Scan(&m.ID, &m.IdempotencyKey, &m.UserID, &m.Delta, &m.BalanceBefore, &m.BalanceAfter, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByKey returns the mutation recorded under key
func (r *BalanceMutationRepository) GetByKey(ctx context.Context, key string) (*models.BalanceMutation, error) {
	query := `SELECT ` + balanceMutationColumns + ` FROM balance_mutations WHERE idempotency_key = $1`

	m, err := scanBalanceMutation(r.q.QueryRow(ctx, query, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance mutation %s: %w", key, err)
	}
	return m, nil
}

// Record stores an applied mutation. The unique key makes a second writer
// racing on the same key fail instead of double applying.
func (r *BalanceMutationRepository) Record(ctx context.Context, mutation *models.BalanceMutation) error {
	query := `
		INSERT INTO balance_mutations (idempotency_key, user_id, delta, balance_before, balance_after)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		mutation.IdempotencyKey,
		mutation.UserID,
		mutation.Delta,
		mutation.BalanceBefore,
		mutation.BalanceAfter,
	).Scan(&mutation.ID, &mutation.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: idempotency key %q already recorded", models.ErrConcurrentModification, mutation.IdempotencyKey)
	}
	if err != nil {
		return fmt.Errorf("failed to record balance mutation: %w", err)
	}
	return nil
}

// GetByUser returns a user's mutations newest first
func (r *BalanceMutationRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.BalanceMutation, error) {
	query := `
		SELECT ` + balanceMutationColumns + `
		FROM balance_mutations
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
		return nil, fmt.Errorf("failed to query balance mutations: %w", err)
	}
	defer rows.Close()

	var mutations []*models.BalanceMutation
	for rows.Next() {
		m, err := scanBalanceMutation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance mutation: %w", err)
		}
		mutations = append(mutations, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance mutations: %w", err)
	}
	return mutations, nil
}
