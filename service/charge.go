package service

import (
	"github.com/shopspring/decimal"
)

// ComputeCharge applies rate to amount and rounds half away from zero to
// whole minor units
func ComputeCharge(amount int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(rate).Round(0).IntPart()
}
