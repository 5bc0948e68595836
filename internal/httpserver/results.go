// internal/httpserver/results.go
//
// Background persistence of finished sessions.
// Session notifiers run under the session lock, so the recorder only queues
// the result; a single writer goroutine does the SQLite work (results row,
// user stats, daily result). A full queue drops the result with a warning.

package httpserver

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/internal/daily"
	"github.com/robalobadob/concentration/internal/db"
	"github.com/robalobadob/concentration/internal/game"
	"github.com/robalobadob/concentration/internal/store"
)

const resultQueue = 256

// resultJob is one finished session waiting to be written.
type resultJob struct {
	owner     db.Owner
	dailyDate string
	row       db.ResultRow
}

type resultWriter struct {
	srv     *Server
	jobs    chan resultJob
	pending sync.WaitGroup // queued but not yet written
	done    chan struct{}

	mu     sync.Mutex // guards closed
	closed bool
}

func newResultWriter(s *Server) *resultWriter {
	w := &resultWriter{
		srv:  s,
		jobs: make(chan resultJob, resultQueue),
		done: make(chan struct{}),
	}
	go w.run()
	return w
}

// enqueue never blocks.
func (w *resultWriter) enqueue(j resultJob) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.pending.Add(1)
	select {
	case w.jobs <- j:
	default:
		w.pending.Done()
		log.Warn().Str("gameId", j.row.GameID).Msg("result queue full, dropping result")
	}
}

// wait blocks until every queued result has been written.
func (w *resultWriter) wait() { w.pending.Wait() }

// close stops accepting results and waits for the queue to drain.
func (w *resultWriter) close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.jobs)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *resultWriter) run() {
	defer close(w.done)
	for j := range w.jobs {
		w.write(j)
		w.pending.Done()
	}
}

func (w *resultWriter) write(j resultJob) {
	s := w.srv
	if s.db == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.RecordResult(ctx, s.db, j.owner, j.row); err != nil {
		log.Warn().Err(err).Str("gameId", j.row.GameID).Msg("record result")
	}
	if j.dailyDate == "" {
		return
	}
	err := s.daily.store.InsertResult(ctx, daily.Result{
		UserID:         j.owner.ID,
		Date:           j.dailyDate,
		Won:            j.row.Won,
		Stars:          j.row.Stars,
		ElapsedSeconds: j.row.ElapsedSeconds,
		Moves:          j.row.Moves,
	})
	if err != nil {
		log.Warn().Err(err).Str("gameId", j.row.GameID).Str("date", j.dailyDate).Msg("record daily result")
	}
}

// recorder queues every end of e's session for writing.
func (s *Server) recorder(e *store.Entry) game.Notifier {
	return game.NotifierFunc(func(ev game.Event) {
		ended, ok := ev.Payload.(game.SessionEnded)
		if ev.Type != game.EventSessionEnded || !ok {
			return
		}
		res := ended.Result
		s.results.enqueue(resultJob{
			owner:     db.Owner{ID: e.OwnerID, IsUser: e.IsUser},
			dailyDate: e.DailyDate,
			row: db.ResultRow{
				GameID:         e.Session.ID(),
				Dimension:      e.Session.Dimension(),
				Won:            res.Won,
				Stars:          res.Stars,
				ElapsedSeconds: res.ElapsedSeconds,
				Moves:          res.TotalMoves,
				FinishedAt:     s.clock.Now().UTC(),
			},
		})
	})
}
