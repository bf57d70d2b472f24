// internal/httpserver/auth.go
//
// Game tokens and the admin check.
//
//   - Every new game hands out an HS256 JWT whose "gid" claim names the game.
//     Moves, restarts, hints and score claims must present the token of the
//     game they touch (Authorization: Bearer <token> or the game cookie).
//   - Clearing a leaderboard requires X-Admin-Password to match the bcrypt
//     ADMIN_PASSWORD_HASH when one is configured.

package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const gameCookieName = "puzzle_game"

var (
	errNoToken   = errors.New("missing game token")
	errBadToken  = errors.New("invalid game token")
	errWrongGame = errors.New("token does not match game")
)

// gameClaims binds a token to one game id.
type gameClaims struct {
	GameID string `json:"gid"`
	jwt.RegisteredClaims
}

// signGameToken creates an HS256 JWT for gameID valid for the configured TTL.
func (s *Server) signGameToken(gameID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.cfg.GameTokenTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, gameClaims{
		GameID: gameID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	ss, err := t.SignedString([]byte(s.cfg.JWTSecret))
	return ss, exp, err
}

// parseGameToken verifies tok and returns the game id it grants.
func (s *Server) parseGameToken(tok string) (string, error) {
	var claims gameClaims
	t, err := jwt.ParseWithClaims(tok, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid || claims.GameID == "" {
		return "", errBadToken
	}
	return claims.GameID, nil
}

// authorizeGame checks that the request carries a token for gameID.
func (s *Server) authorizeGame(r *http.Request, gameID string) error {
	tok := bearerOrCookie(r)
	if tok == "" {
		return errNoToken
	}
	gid, err := s.parseGameToken(tok)
	if err != nil {
		return err
	}
	if gid != gameID {
		return errWrongGame
	}
	return nil
}

// writeAuthError maps authorizeGame errors to 401/403.
func writeAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, errWrongGame) {
		jsonError(w, http.StatusForbidden, "forbidden")
		return
	}
	jsonError(w, http.StatusUnauthorized, "unauthorized")
}

// checkAdmin reports whether the request may clear leaderboards.
// Without a configured hash clearing is open.
func (s *Server) checkAdmin(r *http.Request) bool {
	if s.cfg.AdminPasswordHash == "" {
		return true
	}
	pw := r.Header.Get("X-Admin-Password")
	if pw == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(pw)) == nil
}

// setGameCookie stores the latest game token for cookie-only clients.
func (s *Server) setGameCookie(w http.ResponseWriter, token string, exp time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     gameCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	})
}

// bearerOrCookie extracts a token from the Authorization header or game cookie.
func bearerOrCookie(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(gameCookieName); err == nil {
		return c.Value
	}
	return ""
}
