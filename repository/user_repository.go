package repository

import (
	"context"
	"errors"
	"fmt"

	"finengine/database"
	"finengine/models"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, balance, status, version, created_at, updated_at`

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Balance,
		&user.Status,
		&user.Version,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return user, nil
}

// GetByIDForUpdate retrieves a user and holds a row lock until the
// transaction ends
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock user %d: %w", id, err)
	}
	return user, nil
}

// Create inserts a user with a zero balance. Balance credits go through the
// balance guard so they are audited.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.Status == "" {
		user.Status = models.UserStatusActive
	}

	query := `
		INSERT INTO users (username, balance, status)
		VALUES ($1, 0, $2)
		RETURNING id, version, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query, user.Username, user.Status).Scan(
		&user.ID,
		&user.Version,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username %q already exists", models.ErrValidation, user.Username)
	}
	if err != nil {
		return fmt.Errorf("failed to create user %q: %w", user.Username, err)
	}
	user.Balance = 0
	return nil
}

// UpdateBalance sets a user's balance and bumps the version. The balance
// CHECK constraint rejects negative values.
func (r *UserRepository) UpdateBalance(ctx context.Context, id int64, newBalance int64) error {
	if newBalance < 0 {
		return fmt.Errorf("%w: balance cannot go below zero", models.ErrInsufficientBalance)
	}

	query := `
		UPDATE users
		SET balance = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, newBalance, id)
	if err != nil {
		return fmt.Errorf("failed to update balance for user %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %d", models.ErrNotFound, id)
	}
	return nil
}
