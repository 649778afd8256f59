// Package dice provides the random rolls used by the simulation behind an
// injectable Source, so every probabilistic component can be seeded or
// scripted in tests.
package dice

import (
	"math/rand"
	"sync"
	"time"
)

// Source is the random number source consumed by the game components.
type Source interface {
	// Float64 returns a value in [0.0, 1.0).
	Float64() float64
	// Intn returns a value in [0, n). n must be > 0.
	Intn(n int) int
}

// lockedRand guards a *rand.Rand, which is not safe for concurrent use.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// NewRand returns a goroutine-safe Source seeded with seed.
// A zero seed uses the current time.
func NewRand(seed int64) Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

// RangeInt rolls an integer in the inclusive range [min, max].
func RangeInt(src Source, min, max int) int {
	if max <= min {
		return min
	}
	return min + src.Intn(max-min+1)
}

// Chance reports whether a roll lands under probability p.
func Chance(src Source, p float64) bool {
	if p <= 0 {
		return false
	}
	return src.Float64() < p
}

// Pick returns a uniformly random element of items.
func Pick[T any](src Source, items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[src.Intn(len(items))], true
}

// Weighted pairs a value with its probability weight.
type Weighted[T any] struct {
	Value  T
	Weight float64
}

// WeightedPick performs a cumulative roll over entries in order.
//
// Weights are absolute probabilities: a single roll in [0, 1) is compared
// against the running sum, and the first entry whose cumulative weight exceeds
// the roll wins. When the weights sum to less than the roll, no entry is chosen
// and ok is false so the caller can apply its own fallback.
func WeightedPick[T any](entries []Weighted[T], src Source) (value T, ok bool) {
	roll := src.Float64()
	cumulative := 0.0
	for _, e := range entries {
		cumulative += e.Weight
		if roll < cumulative {
			return e.Value, true
		}
	}
	return value, false
}

// Roll rolls n dice with the specified number of sides and returns the total.
func Roll(src Source, n, sides int) int {
	total := 0
	for i := 0; i < n; i++ {
		total += src.Intn(sides) + 1
	}
	return total
}
