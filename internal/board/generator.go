// internal/board/generator.go
//
// Board generation for a single session.
// Responsibilities:
//   - Validate the requested dimension (even, positive).
//   - Pick dimension²/2 distinct symbols from a pool without repetition.
//   - Duplicate picks into pairs and apply an unbiased Fisher–Yates shuffle.
//
// Generation is a pure function over the supplied random source; callers own
// the *rand.Rand (it is not safe for concurrent use).

package board

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

var (
	// ErrInvalidDimension is returned for odd or non-positive dimensions.
	ErrInvalidDimension = errors.New("board: dimension must be an even positive number")

	// ErrInsufficientSymbols is returned when the pool cannot fill every pair.
	ErrInsufficientSymbols = errors.New("board: not enough distinct symbols")
)

// Validate checks dimension against the pool without generating anything.
func Validate(dimension int, pool []string) error {
	if dimension <= 0 || dimension%2 != 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDimension, dimension)
	}
	have := len(distinct(pool))
	// dimension <= 2*have keeps dimension² far from overflow.
	if dimension > 2*have {
		return fmt.Errorf("%w: dimension %d, have %d", ErrInsufficientSymbols, dimension, have)
	}
	if need := dimension * dimension / 2; have < need {
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientSymbols, need, have)
	}
	return nil
}

// Generate builds a shuffled, paired layout for a dimension×dimension grid.
// No partial board is returned on error.
func Generate(dimension int, pool []string, rng *rand.Rand) (Board, error) {
	if err := Validate(dimension, pool); err != nil {
		return Board{}, err
	}
	picks := PickRandom(distinct(pool), dimension*dimension/2, rng)
	items := Shuffle(append(append([]string{}, picks...), picks...), rng)

	cards := make([]Card, len(items))
	for i, sym := range items {
		cards[i] = Card{Position: i, Symbol: sym, Face: Hidden}
	}
	return Board{Dimension: dimension, Cards: cards}, nil
}

// Shuffle returns a permuted copy of items using Fisher–Yates:
// for i from the last index down to 1, swap i with a uniform j in [0, i].
func Shuffle[T any](items []T, rng *rand.Rand) []T {
	out := append([]T(nil), items...)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// PickRandom selects n items from pool without repetition.
// The pool slice is not modified. n is clamped to len(pool).
func PickRandom[T any](pool []T, n int, rng *rand.Rand) []T {
	remaining := append([]T(nil), pool...)
	if n > len(remaining) {
		n = len(remaining)
	}
	picks := make([]T, 0, n)
	for i := 0; i < n; i++ {
		j := rng.IntN(len(remaining))
		picks = append(picks, remaining[j])
		remaining = append(remaining[:j], remaining[j+1:]...)
	}
	return picks
}

// distinct drops duplicate symbols, keeping first occurrence order.
func distinct(pool []string) []string {
	seen := make(map[string]struct{}, len(pool))
	out := make([]string, 0, len(pool))
	for _, s := range pool {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
