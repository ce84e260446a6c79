package repository

import (
	"context"
	"errors"
	"fmt"

	"finengine/models"

	"github.com/jackc/pgx/v5"
)

// ProductRepository implements product catalog data access
type ProductRepository struct {
	q queryable
}

func newProductRepositoryWithTx(tx queryable) *ProductRepository {
	return &ProductRepository{q: tx}
}

const productColumns = `id, name, min_amount, max_amount, return_pct, status, created_at, updated_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	if err := row.Scan(&p.ID, &p.Name, &p.MinAmount, &p.MaxAmount, &p.ReturnPct, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetByID retrieves a product by id
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return product, nil
}

// Upsert inserts the product when ID is zero, otherwise updates it in place
func (r *ProductRepository) Upsert(ctx context.Context, product *models.Product) error {
	if product.ID == 0 {
		query := `
			INSERT INTO products (name, min_amount, max_amount, return_pct, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`
		err := r.q.QueryRow(ctx, query,
			product.Name,
			product.MinAmount,
			product.MaxAmount,
			product.ReturnPct,
			product.Status,
		).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		return nil
	}

	query := `
		UPDATE products
		SET name = $2, min_amount = $3, max_amount = $4, return_pct = $5, status = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err := r.q.QueryRow(ctx, query,
		product.ID,
		product.Name,
		product.MinAmount,
		product.MaxAmount,
		product.ReturnPct,
		product.Status,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: product %d", models.ErrNotFound, product.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update product %d: %w", product.ID, err)
	}
	return nil
}

// GetAll returns every product ordered by id
func (r *ProductRepository) GetAll(ctx context.Context) ([]*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return products, nil
}
