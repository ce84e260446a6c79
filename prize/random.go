package prize

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"sync"
)

// Source yields uniform integers in [0, n)
type Source interface {
	Int64N(n int64) (int64, error)
}

// CryptoSource draws from crypto/rand. It is the production default.
type CryptoSource struct{}

func (CryptoSource) Int64N(n int64) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("invalid range %d", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		return 0, fmt.Errorf("failed to generate random number: %w", err)
	}
	return v.Int64(), nil
}

// SeededSource is a reproducible PCG stream for simulations and tests.
// Safe for concurrent use.
type SeededSource struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeededSource creates a PCG source from seed
func NewSeededSource(seed uint64) *SeededSource {
	return &SeededSource{rng: mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SeededSource) Int64N(n int64) (int64, error) {
	if n <= 0 {
		return 0, fmt.Errorf("invalid range %d", n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Int64N(n), nil
}
