package httpserver

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/robalobadob/concentration/internal/board"
	"github.com/robalobadob/concentration/internal/clock"
	"github.com/robalobadob/concentration/internal/config"
	"github.com/robalobadob/concentration/internal/daily"
	"github.com/robalobadob/concentration/internal/db"
	"github.com/robalobadob/concentration/internal/score"
	"github.com/robalobadob/concentration/internal/store"
)

func init() { zerolog.SetGlobalLevel(zerolog.Disabled) }

var testSymbols = []string{"🥔", "🍒", "🥑", "🌽", "🥕", "🍇", "🍉", "🍋‍🟩", "🥭", "🍍"}

type testEnv struct {
	srv  *Server
	http *httptest.Server
	clk  *clock.Manual
	db   *sql.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	sqlDB, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(sqlDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Config{
		ClientOrigin:   "http://localhost:5173",
		JWTSecret:      "test_secret",
		JWTExpiresDays: 1,
		CookieName:     "concentration_token",
		DailySalt:      "test_salt",
		BoardDimension: 4,
	}
	s := New(store.NewMemoryStore(), sqlDB, cfg, testSymbols)
	clk := clock.NewManual(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	s.clock = clk

	hs := httptest.NewServer(s.Router())
	t.Cleanup(func() {
		hs.Close()
		s.Close()
		_ = sqlDB.Close()
	})
	return &testEnv{srv: s, http: hs, clk: clk, db: sqlDB}
}

// player is an HTTP client with its own cookie jar.
type player struct {
	t    *testing.T
	base string
	hc   *http.Client
}

func (e *testEnv) newPlayer(t *testing.T) *player {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &player{t: t, base: e.http.URL, hc: &http.Client{Jar: jar}}
}

func (p *player) do(method, path string, body any) (int, []byte) {
	p.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			p.t.Fatalf("marshal: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, p.base+path, rd)
	if err != nil {
		p.t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.hc.Do(req)
	if err != nil {
		p.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out
}

// call performs a request, requires want, and decodes the body into out.
func (p *player) call(method, path string, body any, want int, out any) {
	p.t.Helper()
	code, raw := p.do(method, path, body)
	if code != want {
		p.t.Fatalf("%s %s: status %d, want %d (body %s)", method, path, code, want, raw)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			p.t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
}

// snapshot performs a request that must succeed and decodes a fresh snapshot.
func (p *player) snapshot(method, path string, body any) snapshotDTO {
	p.t.Helper()
	var out snapshotDTO
	p.call(method, path, body, http.StatusOK, &out)
	return out
}

func (p *player) cookieHeader() http.Header {
	u, _ := url.Parse(p.base)
	var parts []string
	for _, c := range p.hc.Jar.Cookies(u) {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return http.Header{"Cookie": {strings.Join(parts, "; ")}}
}

type cardDTO struct {
	Position int    `json:"position"`
	Face     string `json:"face"`
	Symbol   string `json:"symbol"`
}

type snapshotDTO struct {
	GameID          string        `json:"gameId"`
	Dimension       int           `json:"dimension"`
	Phase           string        `json:"phase"`
	Cards           []cardDTO     `json:"cards"`
	TotalMoves      int           `json:"totalMoves"`
	ElapsedSeconds  int           `json:"elapsedSeconds"`
	ProgressPercent float64       `json:"progressPercent"`
	Result          *score.Result `json:"result"`
	Accepted        bool          `json:"accepted"`
}

// dailyLayout rebuilds today's daily board the way the server shuffles it.
func (e *testEnv) dailyLayout(t *testing.T) board.Board {
	t.Helper()
	b, err := board.Generate(e.srv.cfg.BoardDimension, e.srv.symbols, daily.RandFor(e.clk.Now(), e.srv.cfg.DailySalt)())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return b
}

func pairsOf(b board.Board) [][2]int {
	seen := map[string]int{}
	var out [][2]int
	for _, c := range b.Cards {
		if first, ok := seen[c.Symbol]; ok {
			out = append(out, [2]int{first, c.Position})
			continue
		}
		seen[c.Symbol] = c.Position
	}
	return out
}

func countRows(t *testing.T, sqlDB *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := sqlDB.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	var out map[string]bool
	p.call(http.MethodGet, "/health", nil, http.StatusOK, &out)
	if !out["ok"] {
		t.Fatalf("health = %v", out)
	}
	if code, _ := p.do(http.MethodGet, "/nope", nil); code != http.StatusNotFound {
		t.Fatalf("unknown route status = %d", code)
	}
}

func TestNewGameHidesSymbols(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)

	snap := p.snapshot(http.MethodPost, "/game/new", map[string]int{})
	if snap.GameID == "" || snap.Dimension != 4 || snap.Phase != "idle" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if len(snap.Cards) != 16 {
		t.Fatalf("cards = %d, want 16", len(snap.Cards))
	}
	for _, c := range snap.Cards {
		if c.Face != "hidden" || c.Symbol != "" {
			t.Fatalf("card %+v leaks state", c)
		}
	}
	if snap.ProgressPercent != 100 {
		t.Fatalf("progress = %v, want 100", snap.ProgressPercent)
	}
}

func TestNewGameBoardErrors(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	cases := []struct {
		dimension int
		want      string
	}{
		{3, "invalid_dimension"},
		{-2, "invalid_dimension"},
		{6, "insufficient_symbols"},
		{3037000500, "insufficient_symbols"},
		{1 << 32, "insufficient_symbols"},
	}
	for _, tc := range cases {
		code, body := p.do(http.MethodPost, "/game/new", map[string]int{"dimension": tc.dimension})
		if code != http.StatusBadRequest || !strings.Contains(string(body), tc.want) {
			t.Errorf("dimension %d: %d %s, want 400 %s", tc.dimension, code, body, tc.want)
		}
	}
}

func TestNewGameRejectsMalformedBody(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	req, _ := http.NewRequest(http.MethodPost, p.base+"/game/new", strings.NewReader(`{"dimension":`))
	resp, err := p.hc.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(body), "bad_json") {
		t.Fatalf("malformed body: %d %s, want 400 bad_json", resp.StatusCode, body)
	}

	// An empty body still means the default board.
	if snap := p.snapshot(http.MethodPost, "/game/new", nil); snap.Dimension != 4 {
		t.Fatalf("empty body dimension = %d, want 4", snap.Dimension)
	}
}

func TestGameVisibleOnlyToOwner(t *testing.T) {
	env := newTestEnv(t)
	alice, mallory := env.newPlayer(t), env.newPlayer(t)

	snap := alice.snapshot(http.MethodPost, "/game/new", nil)
	alice.call(http.MethodGet, "/game/"+snap.GameID, nil, http.StatusOK, nil)

	for _, path := range []string{"/game/" + snap.GameID, "/game/missing"} {
		if code, _ := mallory.do(http.MethodGet, path, nil); code != http.StatusNotFound {
			t.Errorf("GET %s as stranger = %d, want 404", path, code)
		}
	}
	if code, _ := mallory.do(http.MethodPost, "/game/"+snap.GameID+"/select", map[string]int{"position": 0}); code != http.StatusNotFound {
		t.Errorf("select as stranger = %d, want 404", code)
	}
}

func TestSelectRejectsBadBody(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	snap := p.snapshot(http.MethodPost, "/game/new", nil)
	if code, _ := p.do(http.MethodPost, "/game/"+snap.GameID+"/select", map[string]string{}); code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}

	res := p.snapshot(http.MethodPost, "/game/"+snap.GameID+"/select", map[string]int{"position": 99})
	if res.Accepted || res.Phase != "idle" || res.TotalMoves != 0 {
		t.Fatalf("out of range select = %+v", res)
	}
}

func TestMismatchFlipsBackAfterDelay(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)

	var nr newRes
	p.call(http.MethodPost, "/daily/new", nil, http.StatusOK, &nr)
	layout := env.dailyLayout(t)

	other := -1
	for _, c := range layout.Cards[1:] {
		if c.Symbol != layout.Cards[0].Symbol {
			other = c.Position
			break
		}
	}
	third := -1
	for _, c := range layout.Cards {
		if c.Position != 0 && c.Position != other {
			third = c.Position
			break
		}
	}

	path := "/game/" + nr.GameID
	res := p.snapshot(http.MethodPost, path+"/select", map[string]int{"position": 0})
	if !res.Accepted || res.Phase != "active" || res.Cards[0].Symbol != layout.Cards[0].Symbol {
		t.Fatalf("first select = %+v", res)
	}
	res = p.snapshot(http.MethodPost, path+"/select", map[string]int{"position": other})
	if !res.Accepted || res.Cards[other].Face != "revealed" {
		t.Fatalf("second select = %+v", res)
	}
	res = p.snapshot(http.MethodPost, path+"/select", map[string]int{"position": third})
	if res.Accepted || res.TotalMoves != 2 {
		t.Fatalf("third select while two pending = %+v", res)
	}

	env.clk.Advance(time.Second)
	res = p.snapshot(http.MethodGet, path, nil)
	for _, pos := range []int{0, other} {
		if res.Cards[pos].Face != "hidden" || res.Cards[pos].Symbol != "" {
			t.Fatalf("card %d after delay = %+v", pos, res.Cards[pos])
		}
	}
	if res.ElapsedSeconds != 1 {
		t.Fatalf("elapsed = %d, want 1", res.ElapsedSeconds)
	}
}

func TestStartEndReset(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)

	path := "/game/" + p.snapshot(http.MethodPost, "/game/new", nil).GameID

	snap := p.snapshot(http.MethodPost, path+"/end", nil)
	if snap.Phase != "idle" || snap.Result != nil {
		t.Fatalf("end while idle = %+v", snap)
	}

	snap = p.snapshot(http.MethodPost, path+"/start", nil)
	if snap.Phase != "active" {
		t.Fatalf("start phase = %s", snap.Phase)
	}
	env.clk.Advance(3 * time.Second)

	snap = p.snapshot(http.MethodPost, path+"/end", nil)
	if snap.Phase != "ended" || snap.Result == nil || snap.Result.Won || snap.Result.ElapsedSeconds != 3 {
		t.Fatalf("end = %+v", snap)
	}
	env.srv.results.wait()
	if n := countRows(t, env.db, `SELECT COUNT(*) FROM results WHERE game_id=? AND anonymous_id IS NOT NULL`, snap.GameID); n != 1 {
		t.Fatalf("recorded rows = %d, want 1", n)
	}

	env.clk.Advance(5 * time.Second)
	snap = p.snapshot(http.MethodGet, path, nil)
	if snap.ElapsedSeconds != 3 {
		t.Fatalf("ended session kept ticking: %d", snap.ElapsedSeconds)
	}

	snap = p.snapshot(http.MethodPost, path+"/reset", nil)
	if snap.Phase != "idle" || snap.ElapsedSeconds != 0 || snap.TotalMoves != 0 || snap.Result != nil {
		t.Fatalf("reset = %+v", snap)
	}
}

func TestDailyWinRecordsAndRanks(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)

	var nr newRes
	p.call(http.MethodPost, "/daily/new", nil, http.StatusOK, &nr)
	if nr.GameID == "" || nr.Date != "2025-03-01" || nr.Played {
		t.Fatalf("daily/new = %+v", nr)
	}
	var again newRes
	p.call(http.MethodPost, "/daily/new", nil, http.StatusOK, &again)
	if again.GameID != nr.GameID {
		t.Fatalf("daily session not reused: %s vs %s", again.GameID, nr.GameID)
	}

	var snap snapshotDTO
	for _, pr := range pairsOf(env.dailyLayout(t)) {
		for _, pos := range pr {
			snap = p.snapshot(http.MethodPost, "/game/"+nr.GameID+"/select", map[string]int{"position": pos})
			if !snap.Accepted {
				t.Fatalf("select %d rejected", pos)
			}
		}
	}
	if snap.Phase != "ended" || snap.Result == nil || !snap.Result.Won || snap.Result.Stars != 3 || snap.TotalMoves != 16 {
		t.Fatalf("final snapshot = %+v", snap)
	}

	env.srv.results.wait()

	var lb lbRes
	p.call(http.MethodGet, "/daily/leaderboard", nil, http.StatusOK, &lb)
	if lb.Date != "2025-03-01" || len(lb.Top) != 1 || lb.Top[0].Stars != 3 || lb.Top[0].Moves != 16 {
		t.Fatalf("leaderboard = %+v", lb)
	}
	var past lbRes
	p.call(http.MethodGet, "/daily/leaderboard?date=2024-01-01", nil, http.StatusOK, &past)
	if len(past.Top) != 0 {
		t.Fatalf("other date leaderboard = %+v", past)
	}

	var done newRes
	p.call(http.MethodPost, "/daily/new", nil, http.StatusOK, &done)
	if !done.Played || done.GameID != "" {
		t.Fatalf("daily/new after finishing = %+v", done)
	}

	// The same board for everyone on the same day.
	other := env.newPlayer(t)
	var theirs newRes
	other.call(http.MethodPost, "/daily/new", nil, http.StatusOK, &theirs)
	card := other.snapshot(http.MethodPost, "/game/"+theirs.GameID+"/select", map[string]int{"position": 5}).Cards[5]
	if want := env.dailyLayout(t).Cards[5].Symbol; card.Symbol != want {
		t.Fatalf("second player's card 5 = %q, want %q", card.Symbol, want)
	}
}

func TestAuthFlowClaimsHistory(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)

	// Finish one game as a guest first.
	guestGame := p.snapshot(http.MethodPost, "/game/new", nil).GameID
	p.call(http.MethodPost, "/game/"+guestGame+"/start", nil, http.StatusOK, nil)
	p.call(http.MethodPost, "/game/"+guestGame+"/end", nil, http.StatusOK, nil)
	env.srv.results.wait()

	creds := map[string]string{"username": "alice_1", "password": "password123"}
	p.call(http.MethodPost, "/auth/signup", creds, http.StatusOK, nil)
	if code, _ := p.do(http.MethodPost, "/auth/signup", creds); code != http.StatusConflict {
		t.Fatalf("duplicate signup = %d, want 409", code)
	}

	var me authUser
	p.call(http.MethodGet, "/auth/me", nil, http.StatusOK, &me)
	if me.Username != "alice_1" || me.ID == "" {
		t.Fatalf("me = %+v", me)
	}

	var mine []db.ResultRow
	p.call(http.MethodGet, "/games/mine", nil, http.StatusOK, &mine)
	if len(mine) != 1 || mine[0].GameID != guestGame {
		t.Fatalf("claimed history = %+v", mine)
	}

	// A signed-in game bumps stats.
	userGame := p.snapshot(http.MethodPost, "/game/new", nil).GameID
	p.call(http.MethodPost, "/game/"+userGame+"/start", nil, http.StatusOK, nil)
	p.call(http.MethodPost, "/game/"+userGame+"/end", nil, http.StatusOK, nil)
	env.srv.results.wait()

	var stats map[string]any
	p.call(http.MethodGet, "/stats/me", nil, http.StatusOK, &stats)
	if stats["gamesPlayed"] != float64(1) || stats["wins"] != float64(0) {
		t.Fatalf("stats = %v", stats)
	}
	var all []db.ResultRow
	p.call(http.MethodGet, "/games/mine", nil, http.StatusOK, &all)
	if len(all) != 2 {
		t.Fatalf("history = %d rows, want 2", len(all))
	}

	p.call(http.MethodPost, "/auth/logout", nil, http.StatusOK, nil)
	if code, _ := p.do(http.MethodGet, "/auth/me", nil); code != http.StatusUnauthorized {
		t.Fatalf("me after logout = %d, want 401", code)
	}
	if code, _ := p.do(http.MethodPost, "/auth/login", map[string]string{"username": "alice_1", "password": "wrong-password"}); code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d, want 401", code)
	}
	p.call(http.MethodPost, "/auth/login", creds, http.StatusOK, nil)
	var again authUser
	p.call(http.MethodGet, "/auth/me", nil, http.StatusOK, &again)
	if again.ID != me.ID {
		t.Fatalf("login identity = %+v, want %+v", again, me)
	}
}

func TestSignupValidation(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	for _, body := range []map[string]string{
		{"username": "ab", "password": "password123"},
		{"username": "bad name", "password": "password123"},
		{"username": "carol", "password": "short"},
	} {
		if code, _ := p.do(http.MethodPost, "/auth/signup", body); code != http.StatusBadRequest {
			t.Errorf("signup %v = %d, want 400", body, code)
		}
	}
}

func TestWebSocketStream(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)

	snap := p.snapshot(http.MethodPost, "/game/new", nil)
	wsURL := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/game/" + snap.GameID + "/ws"

	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, nil); !errors.Is(err, websocket.ErrBadHandshake) || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("stranger dial: err=%v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, p.cookieHeader())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	type frame struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	next := func() frame {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read: %v", err)
		}
		return f
	}
	waitFor := func(typ string) frame {
		t.Helper()
		for {
			if f := next(); f.Type == typ {
				return f
			}
		}
	}

	first := next()
	if first.Type != "snapshot" {
		t.Fatalf("first frame = %s, want snapshot", first.Type)
	}

	if err := conn.WriteJSON(map[string]any{"type": "select", "payload": map[string]int{"position": 2}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var phase struct {
		Phase string `json:"phase"`
	}
	_ = json.Unmarshal(waitFor("phase_changed").Payload, &phase)
	if phase.Phase != "active" {
		t.Fatalf("phase = %s, want active", phase.Phase)
	}
	var face cardDTO
	_ = json.Unmarshal(waitFor("card_face_changed").Payload, &face)
	if face.Position != 2 || face.Face != "revealed" || face.Symbol == "" {
		t.Fatalf("face change = %+v", face)
	}

	// Actions over HTTP reach the socket too.
	p.call(http.MethodPost, "/game/"+snap.GameID+"/end", nil, http.StatusOK, nil)
	var ended struct {
		Result score.Result `json:"result"`
	}
	_ = json.Unmarshal(waitFor("session_ended").Payload, &ended)
	if ended.Result.Won || ended.Result.TotalMoves != 1 {
		t.Fatalf("ended = %+v", ended.Result)
	}
}

func TestEvictLoopDropsStaleSessions(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	snap := p.snapshot(http.MethodPost, "/game/new", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env.clk.Advance(2 * time.Hour)
	go env.srv.EvictLoop(ctx, time.Hour, 5*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := env.srv.store.Get(ctx, snap.GameID); errors.Is(err, store.ErrNotFound) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session not evicted")
}

func TestDailyNewIssuesOneGuestCookie(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Post(env.http.URL+"/daily/new", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var nr newRes
	if err := json.NewDecoder(resp.Body).Decode(&nr); err != nil {
		t.Fatalf("decode: %v", err)
	}

	var anon []string
	for _, c := range resp.Cookies() {
		if c.Name == anonCookieName {
			anon = append(anon, c.Value)
		}
	}
	if len(anon) != 1 {
		t.Fatalf("guest cookies on first /daily/new = %v, want exactly one", anon)
	}
	e, err := env.srv.store.Get(context.Background(), nr.GameID)
	if err != nil || e.OwnerID != anon[0] {
		t.Fatalf("daily session owner = %v (err %v), want cookie %s", e, err, anon[0])
	}
}

func TestResultWriteDoesNotHoldSession(t *testing.T) {
	env := newTestEnv(t)
	p := env.newPlayer(t)
	path := "/game/" + p.snapshot(http.MethodPost, "/game/new", nil).GameID
	p.call(http.MethodPost, path+"/start", nil, http.StatusOK, nil)

	// Occupy the only connection of the in-memory database.
	tx, err := env.db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	released := false
	defer func() {
		if !released {
			_ = tx.Rollback()
		}
	}()

	p.hc.Timeout = 2 * time.Second
	if snap := p.snapshot(http.MethodPost, path+"/end", nil); snap.Phase != "ended" {
		t.Fatalf("end phase = %s", snap.Phase)
	}
	if snap := p.snapshot(http.MethodPost, path+"/reset", nil); snap.Phase != "idle" {
		t.Fatalf("reset phase = %s", snap.Phase)
	}

	_ = tx.Rollback()
	released = true
	env.srv.results.wait()
	if n := countRows(t, env.db, `SELECT COUNT(*) FROM results`); n != 1 {
		t.Fatalf("recorded rows = %d, want 1", n)
	}
}
