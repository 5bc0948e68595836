// internal/board/types.go
//
// Core type definitions for a concentration board.
// Defines:
//   - Face: visible state of a single card (hidden/revealed/matched).
//   - Card: one tile on the board.
//   - Board: the ordered N×N layout of cards.

package board

import "fmt"

// Face is the visible state of a card.
type Face int

const (
	Hidden Face = iota
	Revealed
	Matched
)

// String returns the wire name of the face ("hidden", "revealed", "matched").
func (f Face) String() string {
	switch f {
	case Hidden:
		return "hidden"
	case Revealed:
		return "revealed"
	case Matched:
		return "matched"
	}
	return fmt.Sprintf("face(%d)", int(f))
}

// MarshalText encodes the face as its wire name for JSON payloads.
func (f Face) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// Card is a single tile. Exactly two cards on a board share a Symbol.
type Card struct {
	Position int    // Index in [0, N²).
	Symbol   string // Opaque token (an emoji by default).
	Face     Face   // Mutated by the session state machine.
}

// Board holds the N² cards of one layout. Dimension is even and fixed.
type Board struct {
	Dimension int
	Cards     []Card
}

// Size returns the number of cards (Dimension²).
func (b Board) Size() int { return b.Dimension * b.Dimension }

// Pairs returns the number of distinct symbols on the board.
func (b Board) Pairs() int { return b.Size() / 2 }

// InRange reports whether pos is a valid card position.
func (b Board) InRange(pos int) bool { return pos >= 0 && pos < len(b.Cards) }

// AllMatched reports whether every card is face-up as part of a pair.
func (b Board) AllMatched() bool {
	for _, c := range b.Cards {
		if c.Face != Matched {
			return false
		}
	}
	return len(b.Cards) > 0
}
