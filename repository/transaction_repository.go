package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finengine/models"

	"github.com/jackc/pgx/v5"
)

// TransactionRepository implements the append-only audit log. The table
// rejects UPDATE and DELETE with a trigger.
type TransactionRepository struct {
	q queryable
}

func newTransactionRepositoryWithTx(tx queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

const transactionColumns = `
	id, reference, user_id, type, flow, amount, charge, status, related_entity_type,
	related_entity_id, action, actor_id, message, balance_after, created_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(
		&t.ID,
		&t.Reference,
		&t.UserID,
		&t.Type,
		&t.Flow,
		&t.Amount,
		&t.Charge,
		&t.Status,
		&t.RelatedEntityType,
		&t.RelatedEntityID,
		&t.Action,
		&t.ActorID,
		&t.Message,
		&t.BalanceAfter,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create appends a transaction
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (
			reference, user_id, type, flow, amount, charge, status, related_entity_type,
			related_entity_id, action, actor_id, message, balance_after
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at
	`
	err := r.q.QueryRow(ctx, query,
		tx.Reference,
		tx.UserID,
		tx.Type,
		tx.Flow,
		tx.Amount,
		tx.Charge,
		tx.Status,
		tx.RelatedEntityType,
		tx.RelatedEntityID,
		tx.Action,
		tx.ActorID,
		tx.Message,
		tx.BalanceAfter,
	).Scan(&tx.ID, &tx.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("transaction reference %q already exists: %w", tx.Reference, err)
	}
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetByReference retrieves a transaction by its reference
func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`

	t, err := scanTransaction(r.q.QueryRow(ctx, query, reference))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", reference, err)
	}
	return t, nil
}

// GetByRelatedEntity returns the audit trail of one entity oldest first
func (r *TransactionRepository) GetByRelatedEntity(ctx context.Context, entityType models.EntityType, entityID int64) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE related_entity_type = $1 AND related_entity_id = $2
		ORDER BY id
	`
	return r.query(ctx, query, entityType, entityID)
}

// GetByDateRange returns transactions created in [from, to)
func (r *TransactionRepository) GetByDateRange(ctx context.Context, from, to time.Time) ([]*models.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY id
	`
	return r.query(ctx, query, from, to)
}

func (r *TransactionRepository) query(ctx context.Context, query string, args ...any) ([]*models.Transaction, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}
