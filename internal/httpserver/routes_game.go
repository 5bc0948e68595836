// internal/httpserver/routes_game.go
//
// HTTP routes for live concentration sessions.
//   - POST /game/new            → create a session {dimension?}
//   - GET  /game/{id}           → snapshot (hidden cards carry no symbol)
//   - POST /game/{id}/select    → flip a card {position}
//   - POST /game/{id}/start     → reset and start the clock
//   - POST /game/{id}/end       → give up an active session
//   - POST /game/{id}/reset     → fresh board, back to idle
//   - GET  /game/{id}/ws        → notification stream (see ws.go)
//
// A session is visible only to the player who created it (user or anon cookie).
// When a session ends its result is queued for recording (see results.go).

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/internal/board"
	"github.com/robalobadob/concentration/internal/db"
	"github.com/robalobadob/concentration/internal/game"
	"github.com/robalobadob/concentration/internal/store"
)

// mountGame registers all /game routes.
func (s *Server) mountGame(r chi.Router) {
	r.Route("/game", func(r chi.Router) {
		r.Post("/new", s.handleNewGame)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetGame)
			r.Post("/select", s.handleSelect)
			r.Post("/start", s.action(func(g *game.Session) error { return g.StartOrRestart() }))
			r.Post("/end", s.action(func(g *game.Session) error { g.EndNow(); return nil }))
			r.Post("/reset", s.action(func(g *game.Session) error { return g.Reset() }))
			r.Get("/ws", s.handleStream)
		})
	})
}

// newGameReq is the payload for POST /game/new.
type newGameReq struct {
	Dimension int `json:"dimension"` // 0 means the configured default
}

// selectReq/Res payloads for POST /game/{id}/select.
type selectReq struct {
	Position *int `json:"position"`
}
type selectRes struct {
	Accepted bool `json:"accepted"`
	game.Snapshot
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if req.Dimension == 0 {
		req.Dimension = s.cfg.BoardDimension
	}
	e, err := s.newSession(r.Context(), s.owner(w, r), req.Dimension, nil, "")
	if err != nil {
		writeBoardError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(e.Session.Snapshot())
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	e, ok := s.entryFor(w, r)
	if !ok {
		return
	}
	_ = json.NewEncoder(w).Encode(e.Session.Snapshot())
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Position == nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	e, ok := s.entryFor(w, r)
	if !ok {
		return
	}
	accepted := e.Session.SelectCard(*req.Position)
	_ = json.NewEncoder(w).Encode(selectRes{Accepted: accepted, Snapshot: e.Session.Snapshot()})
}

// action wraps a session operation that answers with the resulting snapshot.
func (s *Server) action(fn func(*game.Session) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, ok := s.entryFor(w, r)
		if !ok {
			return
		}
		if err := fn(e.Session); err != nil {
			writeBoardError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(e.Session.Snapshot())
	}
}

// ------------------------------- helpers -----------------------------------

// newSession creates a session owned by owner, wires result recording,
// and registers it in the store. newRand nil means a fresh random board.
func (s *Server) newSession(ctx context.Context, owner db.Owner, dimension int, newRand func() *rand.Rand, dailyDate string) (*store.Entry, error) {
	g, err := game.New(game.Config{
		Dimension: dimension,
		Symbols:   s.symbols,
		Clock:     s.clock,
		NewRand:   newRand,
	})
	if err != nil {
		return nil, err
	}
	e := &store.Entry{
		Session:   g,
		OwnerID:   owner.ID,
		IsUser:    owner.IsUser,
		DailyDate: dailyDate,
		CreatedAt: s.clock.Now(),
	}
	g.Subscribe(s.recorder(e))
	if err := s.store.Save(ctx, e); err != nil {
		return nil, err
	}
	log.Info().Str("gameId", g.ID()).Int("dimension", dimension).Bool("user", owner.IsUser).Str("daily", dailyDate).Msg("game created")
	return e, nil
}

// entryFor loads the {id} session and checks the requester owns it.
// It writes the error response itself and reports false on failure.
func (s *Server) entryFor(w http.ResponseWriter, r *http.Request) (*store.Entry, bool) {
	e, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil || !owns(r, e) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return nil, false
	}
	return e, true
}

// owns reports whether the request comes from the player who created e.
func owns(r *http.Request, e *store.Entry) bool {
	if e.IsUser {
		me := userFrom(r)
		return me != nil && me.ID == e.OwnerID
	}
	c, err := r.Cookie(anonCookieName)
	return err == nil && c.Value == e.OwnerID
}

func writeBoardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, board.ErrInvalidDimension):
		http.Error(w, `{"error":"invalid_dimension"}`, http.StatusBadRequest)
	case errors.Is(err, board.ErrInsufficientSymbols):
		http.Error(w, `{"error":"insufficient_symbols"}`, http.StatusBadRequest)
	default:
		log.Error().Err(err).Msg("game operation")
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
	}
}
