package models

import "time"

// ProductStatus controls whether new investments can be opened on a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product is an investment product offered to users
type Product struct {
	ID        int64         `db:"id"`
	Name      string        `db:"name"`
	MinAmount int64         `db:"min_amount"`
	MaxAmount int64         `db:"max_amount"` // 0 means no upper bound
	ReturnPct float64       `db:"return_pct"`
	Status    ProductStatus `db:"status"`
	CreatedAt time.Time     `db:"created_at"`
	UpdatedAt time.Time     `db:"updated_at"`
}

// AcceptsAmount reports whether amount is within the product bounds
func (p *Product) AcceptsAmount(amount int64) bool {
	if amount < p.MinAmount {
		return false
	}
	return p.MaxAmount == 0 || amount <= p.MaxAmount
}
