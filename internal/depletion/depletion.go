// internal/depletion/depletion.go
//
// Progress indicator shared by the two depletion signals of a session.
//
//   - Time signal:  100 - 100*elapsed/MaxTimeSeconds  (fed by clock ticks)
//   - Move signal:  100 - 100*moves/MaxMoves          (fed by card selections)
//
// Each signal is clamped to [0, 100] and overwrites the shared percent; the most
// recent update wins. The signals are not merged, so a tick can raise the bar
// again after a move lowered it.

package depletion

const (
	MaxTimeSeconds = 120
	MaxMoves       = 80
	Full           = 100.0
)

// Tracker holds the current progress percent. The zero value is not ready;
// use New.
type Tracker struct {
	percent float64
}

// New returns a tracker at 100%.
func New() *Tracker { return &Tracker{percent: Full} }

// Percent returns the last written progress value.
func (t *Tracker) Percent() float64 { return t.percent }

// Reset restores the tracker to 100%.
func (t *Tracker) Reset() { t.percent = Full }

// ApplyTime overwrites progress from elapsed seconds and returns the new percent.
func (t *Tracker) ApplyTime(elapsedSeconds int) float64 {
	t.percent = TimePercent(elapsedSeconds)
	return t.percent
}

// ApplyMoves overwrites progress from the move count and returns the new percent.
func (t *Tracker) ApplyMoves(totalMoves int) float64 {
	t.percent = MovePercent(totalMoves)
	return t.percent
}

// Exhausted reports whether progress has depleted to zero.
func (t *Tracker) Exhausted() bool { return t.percent <= 0 }

// TimePercent is the time signal for elapsedSeconds.
func TimePercent(elapsedSeconds int) float64 {
	return clamp(Full - float64(elapsedSeconds)*100/MaxTimeSeconds)
}

// MovePercent is the move signal for totalMoves.
func MovePercent(totalMoves int) float64 {
	return clamp(Full - float64(totalMoves)*100/MaxMoves)
}

// Combined is max(0, 100 - max(timePenalty, movePenalty)), i.e. the lower of
// the two signals. Sessions do not use it.
func Combined(elapsedSeconds, totalMoves int) float64 {
	return min(TimePercent(elapsedSeconds), MovePercent(totalMoves))
}

func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > Full {
		return Full
	}
	return p
}
