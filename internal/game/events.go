// internal/game/events.go
//
// Notification surface from a session to its presentation layer.
// Every state mutation emits one Event; payload structs describe what changed.

package game

import (
	"github.com/robalobadob/concentration/internal/board"
	"github.com/robalobadob/concentration/internal/score"
)

// EventType names a notification.
type EventType string

const (
	EventBoardGenerated  EventType = "board_generated"
	EventCardFaceChanged EventType = "card_face_changed"
	EventCountersChanged EventType = "counters_changed"
	EventProgressChanged EventType = "progress_changed"
	EventPhaseChanged    EventType = "phase_changed"
	EventSessionEnded    EventType = "session_ended"

	// EventSnapshot is delivered only by Watch, with a Snapshot payload.
	EventSnapshot EventType = "snapshot"
)

// Event is the envelope delivered to notifiers.
type Event struct {
	Type    EventType `json:"type"`
	GameID  string    `json:"gameId"`
	Payload any       `json:"payload"`
}

// BoardGenerated carries a fresh, fully hidden layout.
type BoardGenerated struct {
	Dimension int        `json:"dimension"`
	Cards     []CardView `json:"cards"`
}

// CardFaceChanged reports a single card turning.
type CardFaceChanged struct {
	Position int        `json:"position"`
	Face     board.Face `json:"face"`
	Symbol   string     `json:"symbol,omitempty"`
}

// CountersChanged reports the moves and time counters.
type CountersChanged struct {
	TotalMoves     int `json:"totalMoves"`
	ElapsedSeconds int `json:"elapsedSeconds"`
}

// ProgressChanged reports the depletion bar.
type ProgressChanged struct {
	Percent float64 `json:"percent"`
}

// PhaseChanged reports a lifecycle transition.
type PhaseChanged struct {
	Phase Phase `json:"phase"`
}

// SessionEnded carries the end-of-game summary.
type SessionEnded struct {
	Result score.Result `json:"result"`
}

// Notifier receives session events in mutation order. Notify is called while
// the session is locked: it must not call back into the session and should
// not block.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

// Notify calls f(e).
func (f NotifierFunc) Notify(e Event) { f(e) }
