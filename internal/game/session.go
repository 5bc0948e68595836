// internal/game/session.go
//
// Session state machine for a single concentration play-through.
// Responsibilities:
//   - Own the board and counters; move the session idle → active → ended.
//   - Apply card selections: reveal, match, or schedule a flip-back.
//   - Drive the session clock and feed both depletion signals.
//   - Score the session on win, timeout, move exhaustion, or manual end.
//
// Notes:
//   - Actions, clock ticks and flip-back callbacks are serialized by s.mu, so
//     they apply strictly in arrival order.
//   - Invalid in-session actions are ignored, never errors.
//   - Timers capture the board generation; callbacks from a previous board
//     or an ended session are no-ops.
package game

import (
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/internal/board"
	"github.com/robalobadob/concentration/internal/clock"
	"github.com/robalobadob/concentration/internal/depletion"
	"github.com/robalobadob/concentration/internal/score"
)

// Session is one game instance. All methods are safe for concurrent use.
type Session struct {
	id        string
	dimension int
	symbols   []string
	clk       clock.Clock
	newRand   func() *rand.Rand

	mu       sync.Mutex
	gen      uint64 // board generation; bumped on every reset
	board    board.Board
	phase    Phase
	pending  []int // revealed, unresolved positions (at most 2)
	moves    int
	elapsed  int
	progress *depletion.Tracker
	result   *score.Result
	ticker   *clock.Ticker

	subs   []subscriber
	nextID uint64
}

type subscriber struct {
	id uint64
	n  Notifier
}

// New validates cfg and creates an idle session with a freshly generated board.
// Board errors (board.ErrInvalidDimension, board.ErrInsufficientSymbols) are
// returned unchanged.
func New(cfg Config) (*Session, error) {
	s := &Session{
		id:        cfg.ID,
		dimension: cfg.Dimension,
		symbols:   append([]string(nil), cfg.Symbols...),
		clk:       cfg.Clock,
		newRand:   cfg.NewRand,
		progress:  depletion.New(),
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if s.clk == nil {
		s.clk = clock.Real()
	}
	if s.newRand == nil {
		s.newRand = board.NewRand
	}
	if err := s.resetLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Dimension returns the board dimension.
func (s *Session) Dimension() int { return s.dimension }

// Phase returns the current lifecycle stage.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Result returns the end-of-game summary, or nil while the session is not ended.
func (s *Session) Result() *score.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	r := *s.result
	return &r
}

// Subscribe registers n for every subsequent event. The returned func
// removes the subscription.
func (s *Session) Subscribe(n Notifier) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribeLocked(n)
}

// Watch delivers an EventSnapshot to n and subscribes it, atomically, so no
// event falls between the snapshot and the first notification.
func (s *Session) Watch(n Notifier) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.Notify(Event{Type: EventSnapshot, GameID: s.id, Payload: s.snapshotLocked()})
	return s.subscribeLocked(n)
}

func (s *Session) subscribeLocked(n Notifier) func() {
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, n: n})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Snapshot returns a copy of the visible session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:              s.id,
		Dimension:       s.dimension,
		Phase:           s.phase,
		Cards:           s.cardViews(),
		TotalMoves:      s.moves,
		ElapsedSeconds:  s.elapsed,
		ProgressPercent: s.progress.Percent(),
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	return snap
}

// Reset regenerates the board, clears all counters, stops the clock and
// returns to idle. Valid from any phase.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked()
}

// StartOrRestart resets the session and immediately starts the clock.
func (s *Session) StartOrRestart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.resetLocked(); err != nil {
		return err
	}
	s.start()
	return nil
}

// EndNow ends an active session as a loss. It reports false (and does
// nothing) unless the session is active.
func (s *Session) EndNow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseActive {
		return false
	}
	s.end(false, "manual")
	return true
}

// SelectCard flips the card at pos. It reports whether the selection was
// applied; selections are ignored when pos is out of range, the session has
// ended, the card is already face-up, or two cards await resolution.
func (s *Session) SelectCard(pos int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseEnded || !s.board.InRange(pos) {
		return false
	}
	if s.board.Cards[pos].Face != board.Hidden || len(s.pending) >= 2 {
		return false
	}
	if s.phase == PhaseIdle {
		s.start()
	}

	s.moves++
	s.setFace(pos, board.Revealed)
	s.pending = append(s.pending, pos)

	if len(s.pending) == 2 {
		a, b := s.pending[0], s.pending[1]
		if s.board.Cards[a].Symbol == s.board.Cards[b].Symbol {
			s.setFace(a, board.Matched)
			s.setFace(b, board.Matched)
			s.pending = nil
		} else {
			gen := s.gen
			s.clk.AfterFunc(ResolveDelay, func() { s.resolve(gen, a, b) })
		}
	}

	s.emitCounters()
	s.emit(EventProgressChanged, ProgressChanged{Percent: s.progress.ApplyMoves(s.moves)})

	switch {
	case s.board.AllMatched():
		s.end(true, "matched")
	case s.progress.Exhausted():
		s.end(false, "moves")
	}
	return true
}

// ----------------------------- internals -----------------------------------

// resetLocked installs a new board generation. Caller holds s.mu.
// On a generation error the current state is left untouched.
func (s *Session) resetLocked() error {
	b, err := board.Generate(s.dimension, s.symbols, s.newRand())
	if err != nil {
		return err
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.gen++
	gen := s.gen
	s.ticker = clock.NewTicker(s.clk, TickInterval, func() { s.tick(gen) })

	s.board = b
	s.phase = PhaseIdle
	s.pending = nil
	s.moves, s.elapsed = 0, 0
	s.progress.Reset()
	s.result = nil

	s.emit(EventBoardGenerated, BoardGenerated{Dimension: s.dimension, Cards: s.cardViews()})
	s.emitCounters()
	s.emit(EventProgressChanged, ProgressChanged{Percent: s.progress.Percent()})
	s.emit(EventPhaseChanged, PhaseChanged{Phase: s.phase})
	log.Debug().Str("gameId", s.id).Uint64("gen", gen).Msg("board generated")
	return nil
}

// start moves idle → active and starts the clock. Caller holds s.mu.
func (s *Session) start() {
	s.phase = PhaseActive
	s.ticker.Start()
	s.emit(EventPhaseChanged, PhaseChanged{Phase: s.phase})
	log.Debug().Str("gameId", s.id).Msg("session started")
}

// end freezes the session and publishes the result. Caller holds s.mu.
func (s *Session) end(won bool, reason string) {
	s.ticker.Stop()
	s.phase = PhaseEnded
	r := score.Summarize(won, s.elapsed, s.moves)
	s.result = &r

	s.emit(EventPhaseChanged, PhaseChanged{Phase: s.phase})
	s.emit(EventSessionEnded, SessionEnded{Result: r})
	log.Debug().
		Str("gameId", s.id).
		Str("reason", reason).
		Bool("won", won).
		Int("stars", r.Stars).
		Int("moves", s.moves).
		Int("elapsed", s.elapsed).
		Msg("session ended")
}

// tick handles one second of session time.
func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.phase != PhaseActive {
		return
	}
	s.elapsed++
	s.emitCounters()
	s.emit(EventProgressChanged, ProgressChanged{Percent: s.progress.ApplyTime(s.elapsed)})
	if s.elapsed >= depletion.MaxTimeSeconds {
		s.end(false, "time")
	}
}

// resolve flips a mismatched pair back to hidden.
func (s *Session) resolve(gen uint64, a, b int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.phase == PhaseEnded {
		return
	}
	for _, pos := range []int{a, b} {
		if s.board.Cards[pos].Face == board.Revealed {
			s.setFace(pos, board.Hidden)
		}
	}
	s.pending = nil
}

// setFace mutates a card and emits the change. Caller holds s.mu.
func (s *Session) setFace(pos int, f board.Face) {
	c := &s.board.Cards[pos]
	c.Face = f
	v := viewOf(*c)
	s.emit(EventCardFaceChanged, CardFaceChanged{Position: v.Position, Face: v.Face, Symbol: v.Symbol})
}

func (s *Session) emitCounters() {
	s.emit(EventCountersChanged, CountersChanged{TotalMoves: s.moves, ElapsedSeconds: s.elapsed})
}

// emit delivers an event to every subscriber in registration order.
func (s *Session) emit(t EventType, payload any) {
	ev := Event{Type: t, GameID: s.id, Payload: payload}
	for _, sub := range s.subs {
		sub.n.Notify(ev)
	}
}

func (s *Session) cardViews() []CardView {
	out := make([]CardView, len(s.board.Cards))
	for i, c := range s.board.Cards {
		out[i] = viewOf(c)
	}
	return out
}
