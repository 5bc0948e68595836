// internal/game/types.go
//
// Core type definitions for the concentration session state machine.
// Defines:
//   - Phase: session lifecycle stage (idle/active/ended).
//   - Config: inputs for creating a session.
//   - CardView / Snapshot: read-only projections handed to the presentation layer.

package game

import (
	"math/rand/v2"
	"time"

	"github.com/robalobadob/concentration/internal/board"
	"github.com/robalobadob/concentration/internal/clock"
	"github.com/robalobadob/concentration/internal/score"
)

// Phase is the lifecycle stage of a session.
type Phase string

const (
	PhaseIdle   Phase = "idle"   // no cards revealed, clock stopped
	PhaseActive Phase = "active" // clock running
	PhaseEnded  Phase = "ended"  // clock stopped, result available
)

const (
	TickInterval = time.Second // session clock period
	ResolveDelay = time.Second // delay before a mismatched pair flips back
)

// Config holds the inputs for New.
type Config struct {
	ID        string            // Defaults to a random UUID.
	Dimension int               // Even, positive board dimension.
	Symbols   []string          // Pool to pick pairs from.
	Clock     clock.Clock       // Defaults to clock.Real().
	NewRand   func() *rand.Rand // Called once per generated board. Defaults to board.NewRand.
}

// CardView is a card as the player may see it. Symbol is empty while hidden.
type CardView struct {
	Position int        `json:"position"`
	Face     board.Face `json:"face"`
	Symbol   string     `json:"symbol,omitempty"`
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID              string        `json:"gameId"`
	Dimension       int           `json:"dimension"`
	Phase           Phase         `json:"phase"`
	Cards           []CardView    `json:"cards"`
	TotalMoves      int           `json:"totalMoves"`
	ElapsedSeconds  int           `json:"elapsedSeconds"`
	ProgressPercent float64       `json:"progressPercent"`
	Result          *score.Result `json:"result,omitempty"`
}

func viewOf(c board.Card) CardView {
	v := CardView{Position: c.Position, Face: c.Face}
	if c.Face != board.Hidden {
		v.Symbol = c.Symbol
	}
	return v
}
