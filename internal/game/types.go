// internal/game/types.go
//
// Type definitions for a played game session.
// Defines:
//   - Config: how a session builds its engine and timer.
//   - View: the serializable state of a session at one instant.
//   - Outcome: result of a single move plus the resulting view.

package game

import (
	"errors"

	"github.com/robalobadob/slidepuzzle/internal/puzzle"
	"github.com/robalobadob/slidepuzzle/internal/timer"
)

var (
	// ErrNotSolved is returned when a score is claimed for an unfinished game.
	ErrNotSolved = errors.New("game not solved")
	// ErrAlreadySubmitted is returned on a second score claim for the same game.
	ErrAlreadySubmitted = errors.New("score already submitted")
)

// Config controls session construction. Zero values pick defaults.
type Config struct {
	Size     int             // side length; puzzle.DefaultSize when 0
	Seed     int64           // shuffle seed; used only when Seeded is true
	Seeded   bool            // true for reproducible boards (daily challenge)
	Daily    string          // YYYY-MM-DD for daily sessions, "" otherwise
	Clock    timer.Clock     // timer.System when nil
	Renderer puzzle.Renderer // notified after every engine state change
}

// View is the state of a session as shown to a player.
type View struct {
	ID             string       `json:"gameId"`
	Size           int          `json:"size"`
	Board          []int        `json:"board"`
	Empty          int          `json:"empty"`
	State          puzzle.State `json:"state"`
	Moves          int          `json:"moves"`
	ElapsedSeconds int          `json:"elapsedSeconds"`
	Time           string       `json:"time"` // MM:SS
	Daily          string       `json:"daily,omitempty"`
	Submitted      bool         `json:"submitted"`
}

// Outcome pairs a move result with the view after the move.
type Outcome struct {
	Result puzzle.MoveResult `json:"result"`
	View
}
