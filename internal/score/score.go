// internal/score/score.go
//
// End-of-session scoring.
// Responsibilities:
//   - Map a finished (elapsed, moves) pair to a 0–3 star rating.
//   - Build the immutable Result shown in the end-of-game summary.
//
// Rating bands are checked in order and the first match wins. A win that falls
// outside every band scores 0 stars and gets the "try again" message, even
// though the session counts as won.

package score

import (
	"fmt"
	"strings"
)

// Result is produced once when a session ends.
type Result struct {
	Won            bool   `json:"won"`
	Stars          int    `json:"stars"`
	ElapsedSeconds int    `json:"elapsedSeconds"`
	TotalMoves     int    `json:"totalMoves"`
	Message        string `json:"message"`
}

// Stars returns the star rating for a completed board.
func Stars(elapsedSeconds, totalMoves int) int {
	e, m := elapsedSeconds, totalMoves
	switch {
	case e < 60 && m < 50:
		return 3
	case e >= 60 && e <= 90 && m >= 50 && m <= 70:
		return 2
	case e > 90 && e <= 120 && m > 70 && m <= 80:
		return 1
	}
	return 0
}

// Summarize builds the Result for a session end. Stars are only computed
// for wins.
func Summarize(won bool, elapsedSeconds, totalMoves int) Result {
	r := Result{Won: won, ElapsedSeconds: elapsedSeconds, TotalMoves: totalMoves}
	switch {
	case !won:
		r.Message = fmt.Sprintf("Game Ended! Time: %d seconds. Moves: %d", elapsedSeconds, totalMoves)
	default:
		r.Stars = Stars(elapsedSeconds, totalMoves)
		if r.Stars == 0 {
			r.Message = "Please try again later!"
		} else {
			r.Message = fmt.Sprintf("You won! with %d moves under %d seconds. Rating: %s",
				totalMoves, elapsedSeconds, StarString(r.Stars))
		}
	}
	return r
}

// StarString renders a rating as repeated star glyphs.
func StarString(stars int) string {
	if stars <= 0 {
		return ""
	}
	return strings.Repeat("⭐", stars)
}
