// internal/httpserver/server.go
//
// HTTP server wiring for the sliding puzzle.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Browser front end: "/" and "/static/*" from the embedded assets.
//   - Game endpoints: POST /game/new, POST /game/move, POST /game/restart,
//     GET /game/{id}, GET /game/{id}/hint, GET /game/{id}/ws.
//   - Leaderboard endpoints: mounted under /leaderboard (see routes_leaderboard.go).
//   - Background pruning of idle sessions.
//
// Notes:
//   - Elapsed time is measured server-side; clients only display it.
//   - Invalid moves are a normal 200 response with result "rejected".

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/slidepuzzle/assets"
	"github.com/robalobadob/slidepuzzle/internal/config"
	"github.com/robalobadob/slidepuzzle/internal/daily"
	"github.com/robalobadob/slidepuzzle/internal/game"
	"github.com/robalobadob/slidepuzzle/internal/leaderboard"
	"github.com/robalobadob/slidepuzzle/internal/puzzle"
	"github.com/robalobadob/slidepuzzle/internal/realtime"
	"github.com/robalobadob/slidepuzzle/internal/store"
)

// Server bundles router, session store, leaderboard and websocket hub.
type Server struct {
	r      *chi.Mux
	cfg    config.Config
	store  store.Store
	scores *leaderboard.Board
	hub    *realtime.Hub
	now    func() time.Time
}

// New constructs a Server, installs middleware, and registers routes.
// The hub must be running (hub.Run) for websocket pushes to be delivered.
func New(cfg config.Config, st store.Store, scores *leaderboard.Board, hub *realtime.Hub) *Server {
	s := &Server{r: chi.NewRouter(), cfg: cfg, store: st, scores: scores, hub: hub, now: time.Now}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(accessLog(log.Logger))
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(cors(cfg.ClientOrigin))

	// --- browser front end ---
	s.mountAssets()

	// --- websocket (no handler timeout) ---
	s.r.Get("/game/{id}/ws", s.handleWatch)

	// --- JSON API ---
	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		r.Post("/game/new", s.handleNewGame)
		r.Post("/game/move", s.handleMove)
		r.Post("/game/restart", s.handleRestart)
		r.Get("/game/{id}", s.handleGetGame)
		r.Get("/game/{id}/hint", s.handleHint)

		s.mountLeaderboard(r)

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			jsonError(w, http.StatusNotFound, "not_found")
		})
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Run serves HTTP on addr until ctx is cancelled, then shuts down gracefully.
// Idle sessions are pruned while the server runs.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}

	go s.pruneLoop(ctx, time.Minute)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// pruneLoop forgets sessions idle longer than the configured TTL.
func (s *Server) pruneLoop(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := s.store.Prune(ctx, s.now().Add(-s.cfg.SessionTTL))
			if err != nil {
				log.Warn().Err(err).Msg("prune sessions")
				continue
			}
			if n > 0 {
				log.Info().Int("pruned", n).Msg("pruned idle sessions")
			}
		}
	}
}

// ----------------------------- front end -----------------------------------

func (s *Server) mountAssets() {
	static, err := assets.Static()
	if err != nil {
		log.Error().Err(err).Msg("embedded assets unavailable")
		return
	}
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		page, err := fs.ReadFile(static, "index.html")
		if err != nil {
			http.Error(w, "index missing", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(page)
	})
	s.r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
}

// ------------------------------ GAME ---------------------------------------

// newGameReq/Res payloads for POST /game/new.
type newGameReq struct {
	Daily bool `json:"daily"` // play today's shared board
}
type newGameRes struct {
	Token string `json:"token"`
	game.View
}

// handleNewGame creates, starts and stores a session, and hands out its token.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, http.StatusBadRequest, "bad_json")
		return
	}

	gc := game.Config{Size: s.cfg.PuzzleSize}
	if req.Daily {
		now := s.now()
		gc.Daily = daily.DateKey(now)
		gc.Seed = daily.Seed(now, s.cfg.DailySalt)
		gc.Seeded = true
	}
	g := game.New(gc)
	g.SetRenderer(s.hub.Renderer(g.ID))
	view := g.Start()

	if err := s.store.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save game")
		jsonError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	tok, exp, err := s.signGameToken(g.ID)
	if err != nil {
		log.Error().Err(err).Msg("sign game token")
		jsonError(w, http.StatusInternalServerError, "sign_failed")
		return
	}
	s.setGameCookie(w, tok, exp)

	log.Info().Str("gameId", g.ID).Str("daily", gc.Daily).Msg("game started")
	writeJSON(w, http.StatusOK, newGameRes{Token: tok, View: view})
}

// moveReq is the payload for POST /game/move. Either Position or Direction is set.
type moveReq struct {
	GameID    string           `json:"gameId"`
	Position  *int             `json:"position,omitempty"`
	Direction puzzle.Direction `json:"direction,omitempty"`
}

// handleMove applies one move. Rejected moves are not errors.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "bad_json")
		return
	}
	g, ok := s.authorizedSession(w, r, req.GameID)
	if !ok {
		return
	}

	var out game.Outcome
	switch {
	case req.Position != nil:
		out = g.Move(*req.Position)
	case req.Direction != "":
		out = g.Slide(req.Direction)
	default:
		jsonError(w, http.StatusBadRequest, "missing_position")
		return
	}
	if out.Result == puzzle.MoveApplied && out.State == puzzle.StateSolved {
		log.Info().Str("gameId", g.ID).Int("moves", out.Moves).Str("time", out.Time).Msg("game solved")
	}
	writeJSON(w, http.StatusOK, out)
}

type gameRef struct {
	GameID string `json:"gameId"`
}

// handleRestart reshuffles an existing game and restarts its clock.
func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	var req gameRef
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "bad_json")
		return
	}
	g, ok := s.authorizedSession(w, r, req.GameID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g.Restart())
}

// handleGetGame returns the current view; reading is public.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, g.View())
}

type hintRes struct {
	Position int  `json:"position"`
	OK       bool `json:"ok"`
}

// handleHint suggests the next tile on a shortest solution.
func (s *Server) handleHint(w http.ResponseWriter, r *http.Request) {
	g, ok := s.authorizedSession(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	pos, found := g.Hint(r.Context())
	writeJSON(w, http.StatusOK, hintRes{Position: pos, OK: found})
}

// handleWatch upgrades to a websocket that receives every board change.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.Get(r.Context(), id); err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	s.hub.ServeWS(w, r, id)
}

// authorizedSession loads a session and checks the caller holds its token.
// On failure it writes the error response and returns ok=false.
func (s *Server) authorizedSession(w http.ResponseWriter, r *http.Request, id string) (*game.Session, bool) {
	if id == "" {
		jsonError(w, http.StatusBadRequest, "missing_game_id")
		return nil, false
	}
	if err := s.authorizeGame(r, id); err != nil {
		writeAuthError(w, err)
		return nil, false
	}
	g, err := s.store.Get(r.Context(), id)
	if err != nil {
		jsonError(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	return g, true
}

// ------------------------------- small util --------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func jsonError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
