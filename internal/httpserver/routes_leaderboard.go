// internal/httpserver/routes_leaderboard.go
//
// HTTP routes for the high-score table.
// Exposes three endpoints under /leaderboard:
//   - GET    /leaderboard  → top records (main board, or ?date=YYYY-MM-DD for a daily board)
//   - POST   /leaderboard  → claim a solved game's time for a player name
//   - DELETE /leaderboard  → clear the main board (or ?date=) — admin gated if configured
//
// A game can be claimed once; daily games land on their date's board.
// The elapsed time always comes from the server-side session timer.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/slidepuzzle/internal/daily"
	"github.com/robalobadob/slidepuzzle/internal/game"
	"github.com/robalobadob/slidepuzzle/internal/leaderboard"
)

// mountLeaderboard registers all /leaderboard routes.
func (s *Server) mountLeaderboard(r chi.Router) {
	r.Route("/leaderboard", func(r chi.Router) {
		r.Get("/", s.handleListScores)
		r.Post("/", s.handleSubmitScore)
		r.Delete("/", s.handleClearScores)
	})
}

// boardFor resolves the leaderboard for an optional date key.
func (s *Server) boardFor(date string) (*leaderboard.Board, error) {
	if date == "" {
		return s.scores, nil
	}
	if _, err := daily.ParseDateKey(date); err != nil {
		return nil, err
	}
	return s.scores.WithKey(daily.LeaderboardKey(s.scores.Key(), date)), nil
}

// lbRes is returned by every leaderboard endpoint.
type lbRes struct {
	Date string               `json:"date,omitempty"`
	Rank int                  `json:"rank,omitempty"` // 1-based rank of a just-submitted record; 0 = not ranked
	Top  []leaderboard.Record `json:"top"`
}

// handleListScores returns the requested leaderboard.
func (s *Server) handleListScores(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	b, err := s.boardFor(date)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad_date")
		return
	}
	top, err := b.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list leaderboard")
		jsonError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: top})
}

// submitReq is the payload for POST /leaderboard.
type submitReq struct {
	GameID string `json:"gameId"`
	Name   string `json:"name"`
}

// handleSubmitScore records a solved game's time.
// - 401/403 without the game's token.
// - 409 when the game is unsolved or already claimed.
func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	var req submitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "bad_json")
		return
	}
	g, ok := s.authorizedSession(w, r, req.GameID)
	if !ok {
		return
	}

	sec, err := g.Claim()
	switch {
	case errors.Is(err, game.ErrNotSolved):
		jsonError(w, http.StatusConflict, "not_solved")
		return
	case errors.Is(err, game.ErrAlreadySubmitted):
		jsonError(w, http.StatusConflict, "already_submitted")
		return
	case err != nil:
		jsonError(w, http.StatusInternalServerError, "server_error")
		return
	}

	b, _ := s.boardFor(g.Daily)
	top, rank, err := b.Submit(r.Context(), req.Name, sec)
	if err != nil {
		log.Error().Err(err).Str("gameId", g.ID).Msg("submit score")
		jsonError(w, http.StatusInternalServerError, "server_error")
		return
	}
	log.Info().Str("gameId", g.ID).Int("seconds", sec).Int("rank", rank).Msg("score submitted")
	writeJSON(w, http.StatusOK, lbRes{Date: g.Daily, Rank: rank, Top: top})
}

// handleClearScores wipes the requested leaderboard.
func (s *Server) handleClearScores(w http.ResponseWriter, r *http.Request) {
	if !s.checkAdmin(r) {
		jsonError(w, http.StatusForbidden, "forbidden")
		return
	}
	date := r.URL.Query().Get("date")
	b, err := s.boardFor(date)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "bad_date")
		return
	}
	if err := b.Clear(r.Context()); err != nil {
		log.Error().Err(err).Msg("clear leaderboard")
		jsonError(w, http.StatusInternalServerError, "server_error")
		return
	}
	log.Info().Str("key", b.Key()).Msg("leaderboard cleared")
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: []leaderboard.Record{}})
}
