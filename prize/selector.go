// Package prize normalizes spin prize weights into win percentages and
// draws weighted winners.
package prize

import (
	"fmt"
	"sort"

	"finengine/models"

	"github.com/shopspring/decimal"
)

// Selector draws prizes using a pluggable randomness source
type Selector struct {
	source Source
}

// NewSelector creates a selector. A nil source uses crypto/rand.
func NewSelector(source Source) *Selector {
	if source == nil {
		source = CryptoSource{}
	}
	return &Selector{source: source}
}

// TotalWeight sums the weights of active prizes
func TotalWeight(prizes []*models.SpinPrize) int64 {
	var total int64
	for _, p := range prizes {
		if p.IsActive() && p.ChanceWeight > 0 {
			total += p.ChanceWeight
		}
	}
	return total
}

// Recalculate sets ChancePercentage on every prize in place: weight over the
// active total times 100, and 0 for inactive prizes. The same slice is
// returned. An empty active set is rejected and leaves prizes untouched.
func Recalculate(prizes []*models.SpinPrize) ([]*models.SpinPrize, error) {
	for _, p := range prizes {
		if p.ChanceWeight <= 0 {
			return nil, fmt.Errorf("%w: prize %q weight must be positive", models.ErrValidation, p.Name)
		}
	}
	total := TotalWeight(prizes)
	if total == 0 {
		return nil, fmt.Errorf("%w: prize set has no active weight", models.ErrValidation)
	}

	for _, p := range prizes {
		if !p.IsActive() {
			p.ChancePercentage = 0
			continue
		}
		p.ChancePercentage = float64(p.ChanceWeight) / float64(total) * 100
	}
	return prizes, nil
}

// Draw picks an active prize with probability weight/total. Active prizes are
// walked in id order over a uniform integer in [0, total).
func (s *Selector) Draw(prizes []*models.SpinPrize) (*models.SpinPrize, error) {
	active := make([]*models.SpinPrize, 0, len(prizes))
	for _, p := range prizes {
		if p.IsActive() && p.ChanceWeight > 0 {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		return nil, fmt.Errorf("%w: no active prizes to draw from", models.ErrConflictingWeightConfiguration)
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })

	total := TotalWeight(active)
	roll, err := s.source.Int64N(total)
	if err != nil {
		return nil, err
	}

	var cumulative int64
	for _, p := range active {
		cumulative += p.ChanceWeight
		if roll < cumulative {
			return p, nil
		}
	}
	// unreachable while roll < total
	return active[len(active)-1], nil
}

// CreditFor is the balance credit a claimed prize yields
func CreditFor(prizeType models.PrizeType, amount int64) int64 {
	switch prizeType {
	case models.PrizeTypeCash, models.PrizeTypeBonus:
		return amount
	default:
		return 0
	}
}

// DisplayPercentage rounds a chance percentage to two decimals for display
func DisplayPercentage(pct float64) string {
	return decimal.NewFromFloat(pct).Round(2).StringFixed(2)
}
