package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/slidepuzzle/internal/config"
	"github.com/robalobadob/slidepuzzle/internal/kv"
	"github.com/robalobadob/slidepuzzle/internal/leaderboard"
	"github.com/robalobadob/slidepuzzle/internal/puzzle"
	"github.com/robalobadob/slidepuzzle/internal/realtime"
	"github.com/robalobadob/slidepuzzle/internal/store"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:       "test_secret",
		GameTokenTTL:    time.Hour,
		LeaderboardKey:  leaderboard.DefaultKey,
		LeaderboardSize: leaderboard.DefaultSize,
		DailySalt:       "test_salt",
		SessionTTL:      time.Hour,
		PuzzleSize:      3,
	}
}

type testEnv struct {
	srv *Server
	hub *realtime.Hub
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	hub := realtime.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	scores := leaderboard.New(kv.NewMemory(), cfg.LeaderboardKey, cfg.LeaderboardSize)
	return &testEnv{srv: New(cfg, store.NewMemoryStore(), scores, hub), hub: hub}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

type gameRes struct {
	Token     string       `json:"token"`
	GameID    string       `json:"gameId"`
	Size      int          `json:"size"`
	Board     []int        `json:"board"`
	Empty     int          `json:"empty"`
	State     puzzle.State `json:"state"`
	Moves     int          `json:"moves"`
	Time      string       `json:"time"`
	Daily     string       `json:"daily"`
	Result    string       `json:"result"`
	Submitted bool         `json:"submitted"`
}

type scoresRes struct {
	Date string               `json:"date"`
	Rank int                  `json:"rank"`
	Top  []leaderboard.Record `json:"top"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) newGame(t *testing.T, daily bool) gameRes {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/game/new", "", map[string]bool{"daily": daily})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	g := decode[gameRes](t, rec)
	require.NotEmpty(t, g.Token)
	require.NotEmpty(t, g.GameID)
	return g
}

// solve plays the shortest solution and returns the final move response.
func (e *testEnv) solve(t *testing.T, g gameRes) gameRes {
	t.Helper()
	path, err := puzzle.Solve(context.Background(), g.Board, puzzle.DefaultMaxExpand)
	require.NoError(t, err)
	require.NotEmpty(t, path)

	var last gameRes
	for i, pos := range path {
		rec := e.do(t, http.MethodPost, "/game/move", g.Token, map[string]any{"gameId": g.GameID, "position": pos})
		require.Equal(t, http.StatusOK, rec.Code)
		last = decode[gameRes](t, rec)
		require.Equal(t, "applied", last.Result)
		if i < len(path)-1 {
			require.Equal(t, puzzle.StateInProgress, last.State)
		}
	}
	return last
}

func TestHealthAndIndex(t *testing.T) {
	e := newTestEnv(t, testConfig())

	rec := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Sliding Puzzle")

	rec = e.do(t, http.MethodGet, "/static/app.js", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewGame_StartsShuffled(t *testing.T) {
	e := newTestEnv(t, testConfig())
	g := e.newGame(t, false)

	assert.Equal(t, 3, g.Size)
	assert.Equal(t, puzzle.StateInProgress, g.State)
	assert.Len(t, g.Board, 9)
	assert.True(t, puzzle.IsSolvable(g.Board))
	assert.False(t, puzzle.IsIdentity(g.Board))
	assert.Equal(t, "00:00", g.Time)
	assert.Empty(t, g.Daily)
}

func TestFullGame_SolveSubmitAndList(t *testing.T) {
	e := newTestEnv(t, testConfig())
	g := e.newGame(t, false)

	// Claiming early is refused.
	rec := e.do(t, http.MethodPost, "/leaderboard", g.Token, map[string]string{"gameId": g.GameID, "name": "Ada"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"not_solved"}`, rec.Body.String())

	last := e.solve(t, g)
	assert.Equal(t, puzzle.StateSolved, last.State)
	assert.True(t, puzzle.IsIdentity(last.Board))

	// Solved boards ignore further input.
	rec = e.do(t, http.MethodPost, "/game/move", g.Token, map[string]any{"gameId": g.GameID, "position": last.Empty - 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rejected", decode[gameRes](t, rec).Result)

	rec = e.do(t, http.MethodPost, "/leaderboard", g.Token, map[string]string{"gameId": g.GameID, "name": "Ada"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sub := decode[scoresRes](t, rec)
	assert.Equal(t, 1, sub.Rank)
	require.Len(t, sub.Top, 1)
	assert.Equal(t, "Ada", sub.Top[0].Name)
	assert.Equal(t, last.Time, sub.Top[0].Time)

	rec = e.do(t, http.MethodPost, "/leaderboard", g.Token, map[string]string{"gameId": g.GameID, "name": "Ada"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"already_submitted"}`, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[scoresRes](t, rec)
	require.Len(t, list.Top, 1)
	assert.Equal(t, "Ada", list.Top[0].Name)

	rec = e.do(t, http.MethodGet, "/game/"+g.GameID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[gameRes](t, rec).Submitted)
}

func TestSubmit_BlankNameGetsDefault(t *testing.T) {
	e := newTestEnv(t, testConfig())
	g := e.newGame(t, false)
	e.solve(t, g)

	rec := e.do(t, http.MethodPost, "/leaderboard", g.Token, map[string]string{"gameId": g.GameID, "name": "   "})
	require.Equal(t, http.StatusOK, rec.Code)
	sub := decode[scoresRes](t, rec)
	require.Len(t, sub.Top, 1)
	assert.Equal(t, leaderboard.DefaultName, sub.Top[0].Name)
}

func TestMove_Auth(t *testing.T) {
	e := newTestEnv(t, testConfig())
	a := e.newGame(t, false)
	b := e.newGame(t, false)

	rec := e.do(t, http.MethodPost, "/game/move", "", map[string]any{"gameId": a.GameID, "position": 0})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/game/move", "garbage", map[string]any{"gameId": a.GameID, "position": 0})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodPost, "/game/move", b.Token, map[string]any{"gameId": a.GameID, "position": 0})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, "/game/move", a.Token, map[string]any{"gameId": a.GameID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/game/move", a.Token, map[string]any{"position": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMove_RejectedIsNotAnError(t *testing.T) {
	e := newTestEnv(t, testConfig())
	g := e.newGame(t, false)

	rec := e.do(t, http.MethodPost, "/game/move", g.Token, map[string]any{"gameId": g.GameID, "position": 99})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[gameRes](t, rec)
	assert.Equal(t, "rejected", out.Result)
	assert.Equal(t, g.Board, out.Board)
	assert.Equal(t, 0, out.Moves)
}

func TestMove_Direction(t *testing.T) {
	e := newTestEnv(t, testConfig())
	g := e.newGame(t, false)

	// Some direction always has a tile to slide on a 3x3 board.
	applied := false
	for _, d := range []puzzle.Direction{puzzle.Up, puzzle.Down, puzzle.Left, puzzle.Right} {
		rec := e.do(t, http.MethodPost, "/game/move", g.Token, map[string]any{"gameId": g.GameID, "direction": d})
		require.Equal(t, http.StatusOK, rec.Code)
		if out := decode[gameRes](t, rec); out.Result == "applied" {
			applied = true
			assert.Equal(t, 1, out.Moves)
			break
		}
	}
	assert.True(t, applied)
}

func TestRestart(t *testing.T) {
	e := newTestEnv(t, testConfig())
	g := e.newGame(t, false)
	e.solve(t, g)

	rec := e.do(t, http.MethodPost, "/game/restart", g.Token, map[string]string{"gameId": g.GameID})
	require.Equal(t, http.StatusOK, rec.Code)
	v := decode[gameRes](t, rec)
	assert.Equal(t, puzzle.StateInProgress, v.State)
	assert.Equal(t, 0, v.Moves)
	assert.False(t, puzzle.IsIdentity(v.Board))
}

func TestHint(t *testing.T) {
	e := newTestEnv(t, testConfig())
	g := e.newGame(t, false)

	rec := e.do(t, http.MethodGet, "/game/"+g.GameID+"/hint", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodGet, "/game/"+g.GameID+"/hint", g.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	h := decode[hintRes](t, rec)
	require.True(t, h.OK)

	want, ok := puzzle.Hint(context.Background(), g.Board)
	require.True(t, ok)
	assert.Equal(t, want, h.Position)
}

func TestGetGame_NotFound(t *testing.T) {
	e := newTestEnv(t, testConfig())
	rec := e.do(t, http.MethodGet, "/game/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDaily_SameBoardAndOwnLeaderboard(t *testing.T) {
	e := newTestEnv(t, testConfig())
	fixed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	e.srv.now = func() time.Time { return fixed }

	a := e.newGame(t, true)
	b := e.newGame(t, true)
	assert.Equal(t, "2026-03-14", a.Daily)
	assert.Equal(t, a.Board, b.Board)

	e.solve(t, a)
	rec := e.do(t, http.MethodPost, "/leaderboard", a.Token, map[string]string{"gameId": a.GameID, "name": "Grace"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-03-14", decode[scoresRes](t, rec).Date)

	rec = e.do(t, http.MethodGet, "/leaderboard?date=2026-03-14", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	daily := decode[scoresRes](t, rec)
	require.Len(t, daily.Top, 1)
	assert.Equal(t, "Grace", daily.Top[0].Name)

	rec = e.do(t, http.MethodGet, "/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[scoresRes](t, rec).Top)

	rec = e.do(t, http.MethodGet, "/leaderboard?date=yesterday", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClear_OpenWithoutAdminHash(t *testing.T) {
	e := newTestEnv(t, testConfig())
	g := e.newGame(t, false)
	e.solve(t, g)
	rec := e.do(t, http.MethodPost, "/leaderboard", g.Token, map[string]string{"gameId": g.GameID, "name": "Ada"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodDelete, "/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/leaderboard", "", nil)
	assert.Empty(t, decode[scoresRes](t, rec).Top)
}

func TestClear_RequiresAdminPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := testConfig()
	cfg.AdminPasswordHash = string(hash)
	e := newTestEnv(t, cfg)

	rec := e.do(t, http.MethodDelete, "/leaderboard", "", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req := httptest.NewRequest(http.MethodDelete, "/leaderboard", nil)
	req.Header.Set("X-Admin-Password", "wrong")
	rr := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodDelete, "/leaderboard", nil)
	req.Header.Set("X-Admin-Password", "hunter2")
	rr = httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCORS_Preflight(t *testing.T) {
	cfg := testConfig()
	cfg.ClientOrigin = "http://localhost:5173"
	e := newTestEnv(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/game/move", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestWatch_ReceivesMoves(t *testing.T) {
	e := newTestEnv(t, testConfig())
	ts := httptest.NewServer(e.srv.Router())
	defer ts.Close()

	g := e.newGame(t, false)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/game/" + g.GameID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return e.hub.Clients(g.GameID) == 1 }, 2*time.Second, 10*time.Millisecond)

	pos := g.Empty + 1
	if g.Empty%g.Size == g.Size-1 {
		pos = g.Empty - 1
	}
	rec := e.do(t, http.MethodPost, "/game/move", g.Token, map[string]any{"gameId": g.GameID, "position": pos})
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[gameRes](t, rec)
	require.Equal(t, "applied", out.Result)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg realtime.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, g.GameID, msg.GameID)
	require.NotNil(t, msg.State)
	assert.Equal(t, out.Board, msg.State.Board)
	assert.Equal(t, out.Empty, msg.State.Empty)

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/game/missing/ws", nil)
	assert.Error(t, err)
}
