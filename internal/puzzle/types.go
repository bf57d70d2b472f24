// internal/puzzle/types.go
//
// Core type definitions for the sliding puzzle engine.
// Defines:
//   - State: lifecycle of a single game (idle → in_progress → solved).
//   - MoveResult: outcome of a move attempt (applied/rejected).
//   - Direction: keyboard-style input mapped onto positions.
//   - Snapshot / Renderer: what the engine hands to a front end after each change.

package puzzle

// DefaultSize is the side length of the classic 3x3 board.
const DefaultSize = 3

// State represents where a game is in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateInProgress State = "in_progress"
	StateSolved     State = "solved"
)

// MoveResult is the outcome of AttemptMove. A rejected move is an expected
// input, not an error.
type MoveResult string

const (
	MoveApplied  MoveResult = "applied"
	MoveRejected MoveResult = "rejected"
)

// Direction names the way a tile slides into the blank.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Snapshot is an immutable copy of the engine state handed to renderers.
type Snapshot struct {
	Size  int   `json:"size"`
	Board []int `json:"board"` // tile ids in row-major order; Size*Size is the blank
	Empty int   `json:"empty"`
	State State `json:"state"`
}

// Blank returns the tile id that denotes the blank for this snapshot.
func (s Snapshot) Blank() int { return s.Size * s.Size }

// Renderer receives a snapshot after every state change.
type Renderer interface {
	Render(Snapshot)
}

// RenderFunc adapts a plain function to Renderer.
type RenderFunc func(Snapshot)

// Render calls f(s).
func (f RenderFunc) Render(s Snapshot) { f(s) }
