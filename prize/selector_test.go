package prize

import (
	"math"
	"testing"

	"finengine/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prizeSet(weights ...int64) []*models.SpinPrize {
	prizes := make([]*models.SpinPrize, len(weights))
	for i, w := range weights {
		prizes[i] = &models.SpinPrize{
			ID:           int64(i + 1),
			Name:         "prize",
			Amount:       1000 * int64(i+1),
			Type:         models.PrizeTypeCash,
			ChanceWeight: w,
			Status:       models.PrizeStatusActive,
		}
	}
	return prizes
}

type fixedSource struct{ value int64 }

func (f fixedSource) Int64N(n int64) (int64, error) { return f.value % n, nil }

func TestRecalculate_ExampleWeights(t *testing.T) {
	prizes := prizeSet(1, 3, 15, 50, 80, 51)

	result, err := Recalculate(prizes)
	require.NoError(t, err)

	want := []float64{0.5, 1.5, 7.5, 25, 40, 25.5}
	var sum float64
	for i, p := range result {
		assert.InDelta(t, want[i], p.ChancePercentage, 1e-9)
		sum += p.ChancePercentage
	}
	assert.InDelta(t, 100, sum, 1e-6)
}

func TestRecalculate_InactivePrizesGetZero(t *testing.T) {
	prizes := prizeSet(10, 30, 60)
	prizes[2].Status = models.PrizeStatusInactive

	_, err := Recalculate(prizes)
	require.NoError(t, err)

	assert.InDelta(t, 25, prizes[0].ChancePercentage, 1e-9)
	assert.InDelta(t, 75, prizes[1].ChancePercentage, 1e-9)
	assert.Equal(t, 0.0, prizes[2].ChancePercentage)
}

func TestRecalculate_SumsToHundredForAwkwardWeights(t *testing.T) {
	prizes := prizeSet(7, 11, 13, 17, 19, 23, 29)

	_, err := Recalculate(prizes)
	require.NoError(t, err)

	var sum float64
	for _, p := range prizes {
		sum += p.ChancePercentage
	}
	assert.LessOrEqual(t, math.Abs(sum-100)/100, 1e-6)
}

func TestRecalculate_EmptyActiveSet(t *testing.T) {
	_, err := Recalculate(nil)
	assert.ErrorIs(t, err, models.ErrValidation)

	prizes := prizeSet(5, 5)
	for _, p := range prizes {
		p.Status = models.PrizeStatusInactive
	}
	_, err = Recalculate(prizes)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestRecalculate_NonPositiveWeight(t *testing.T) {
	_, err := Recalculate(prizeSet(5, 0))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestDraw_CumulativeWalk(t *testing.T) {
	prizes := prizeSet(1, 3, 6) // cumulative 1, 4, 10

	tests := []struct {
		roll int64
		want int64
	}{
		{0, 1},
		{1, 2},
		{3, 2},
		{4, 3},
		{9, 3},
	}
	for _, tt := range tests {
		p, err := NewSelector(fixedSource{tt.roll}).Draw(prizes)
		require.NoError(t, err)
		assert.Equal(t, tt.want, p.ID, "roll %d", tt.roll)
	}
}

func TestDraw_OrdersByIDAndSkipsInactive(t *testing.T) {
	prizes := prizeSet(5, 5, 5)
	prizes[0], prizes[2] = prizes[2], prizes[0]
	prizes[1].Status = models.PrizeStatusInactive

	p, err := NewSelector(fixedSource{0}).Draw(prizes)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)

	p, err = NewSelector(fixedSource{5}).Draw(prizes)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.ID)
}

func TestDraw_NoActivePrizes(t *testing.T) {
	prizes := prizeSet(5)
	prizes[0].Status = models.PrizeStatusInactive

	_, err := NewSelector(nil).Draw(prizes)
	assert.ErrorIs(t, err, models.ErrConflictingWeightConfiguration)

	_, err = NewSelector(nil).Draw(nil)
	assert.ErrorIs(t, err, models.ErrConflictingWeightConfiguration)
}

func TestDraw_Distribution(t *testing.T) {
	prizes := prizeSet(1, 3, 15, 50, 80, 51)
	_, err := Recalculate(prizes)
	require.NoError(t, err)

	selector := NewSelector(NewSeededSource(42))
	const trials = 100000
	counts := make(map[int64]int)
	for i := 0; i < trials; i++ {
		p, err := selector.Draw(prizes)
		require.NoError(t, err)
		counts[p.ID]++
	}

	for _, p := range prizes {
		observed := float64(counts[p.ID]) / trials * 100
		assert.InDelta(t, p.ChancePercentage, observed, 1.0, "prize %d", p.ID)
	}
}

func TestCryptoSource(t *testing.T) {
	src := CryptoSource{}
	for i := 0; i < 100; i++ {
		v, err := src.Int64N(7)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, int64(0))
		assert.Less(t, v, int64(7))
	}

	_, err := src.Int64N(0)
	assert.Error(t, err)
}

func TestCreditFor(t *testing.T) {
	assert.Equal(t, int64(500), CreditFor(models.PrizeTypeCash, 500))
	assert.Equal(t, int64(200), CreditFor(models.PrizeTypeBonus, 200))
	assert.Equal(t, int64(0), CreditFor(models.PrizeTypeNone, 900))
}

func TestDisplayPercentage(t *testing.T) {
	assert.Equal(t, "7.50", DisplayPercentage(7.5))
	assert.Equal(t, "33.33", DisplayPercentage(100.0/3))
}
