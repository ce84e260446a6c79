// Prize wheel simulation: draws many spins against a weight set and compares
// the empirical win rate of each prize with its configured chance.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"finengine/models"
	"finengine/prize"
)

func main() {
	weights := flag.String("weights", "1,3,15,50,80,51", "comma-separated prize weights")
	trials := flag.Int("trials", 100000, "number of draws")
	seed := flag.Uint64("seed", 0, "seed for a reproducible run, 0 draws from crypto/rand")
	tolerance := flag.Float64("tolerance", 0.5, "allowed deviation in percentage points")
	flag.Parse()

	prizes, err := parseWeights(*weights)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var source prize.Source = prize.CryptoSource{}
	if *seed != 0 {
		source = prize.NewSeededSource(*seed)
	}

	if !simulate(prize.NewSelector(source), prizes, *trials, *tolerance) {
		os.Exit(1)
	}
}

func parseWeights(raw string) ([]*models.SpinPrize, error) {
	var prizes []*models.SpinPrize
	for i, field := range strings.Split(raw, ",") {
		w, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", field, err)
		}
		prizes = append(prizes, &models.SpinPrize{
			ID:           int64(i + 1),
			Name:         fmt.Sprintf("prize-%d", i+1),
			Type:         models.PrizeTypeCash,
			ChanceWeight: w,
			Status:       models.PrizeStatusActive,
		})
	}
	if _, err := prize.Recalculate(prizes); err != nil {
		return nil, err
	}
	return prizes, nil
}

// simulate prints one line per prize and reports whether every empirical
// rate stayed within tolerance
func simulate(selector *prize.Selector, prizes []*models.SpinPrize, trials int, tolerance float64) bool {
	fmt.Printf("=== Prize Wheel Simulation (%d draws) ===\n\n", trials)

	hits := make(map[int64]int, len(prizes))
	for i := 0; i < trials; i++ {
		p, err := selector.Draw(prizes)
		if err != nil {
			fmt.Fprintln(os.Stderr, "draw failed:", err)
			return false
		}
		hits[p.ID]++
	}

	ok := true
	chiSquared := 0.0
	for _, p := range prizes {
		expected := float64(trials) * p.ChancePercentage / 100
		actual := float64(hits[p.ID]) / float64(trials) * 100
		deviation := actual - p.ChancePercentage
		chiSquared += math.Pow(float64(hits[p.ID])-expected, 2) / expected

		status := "PASS"
		if math.Abs(deviation) > tolerance {
			status = "FAIL"
			ok = false
		}
		fmt.Printf("%-8s weight %5d | configured %7s%% | actual %7.3f%% | deviation %+.3f | %s\n",
			p.Name, p.ChanceWeight, prize.DisplayPercentage(p.ChancePercentage), actual, deviation, status)
	}

	fmt.Printf("\nchi-squared: %.2f with %d degrees of freedom\n", chiSquared, len(prizes)-1)
	return ok
}
