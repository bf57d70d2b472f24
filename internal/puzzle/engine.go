// internal/puzzle/engine.go
//
// Core engine for a single sliding puzzle game.
// Responsibilities:
//   - Hold the board permutation and the tracked blank position.
//   - Produce solvable shuffles (Fisher–Yates over the non-blank cells, retried).
//   - Validate and apply moves (orthogonal adjacency to the blank only).
//   - Track state transitions: idle → in_progress → solved.
//   - Notify an optional Renderer after every state change.
//
// Notes:
//   - The blank is the tile with id Size*Size and is always shuffled into the last cell.
//   - An Engine is not safe for concurrent use; owners serialize access.
package puzzle

import (
	"errors"
	"math/rand"
	"time"
)

// ErrInvalidBoard is returned by Load for anything that is not a permutation of 1..Size².
var ErrInvalidBoard = errors.New("invalid board")

// Engine owns one board and its lifecycle.
type Engine struct {
	size     int
	board    []int
	empty    int
	state    State
	rng      *rand.Rand
	renderer Renderer
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithSize sets the side length. Values below 2 are ignored.
func WithSize(n int) Option {
	return func(e *Engine) {
		if n >= 2 {
			e.size = n
		}
	}
}

// WithRand supplies the random source used by Shuffle (tests, daily seeds).
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithSeed is shorthand for WithRand(rand.New(rand.NewSource(seed))).
func WithSeed(seed int64) Option {
	return WithRand(rand.New(rand.NewSource(seed)))
}

// WithRenderer registers the renderer notified after each state change.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// New constructs an engine holding the identity board in the idle state.
func New(opts ...Option) *Engine {
	e := &Engine{size: DefaultSize}
	for _, o := range opts {
		o(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	e.Initialize()
	return e
}

// SetRenderer replaces the renderer; nil disables notifications.
func (e *Engine) SetRenderer(r Renderer) { e.renderer = r }

// Initialize resets the board to the identity permutation and the state to idle.
func (e *Engine) Initialize() {
	n := e.size * e.size
	e.board = make([]int, n)
	for i := range e.board {
		e.board[i] = i + 1
	}
	e.empty = n - 1
	e.state = StateIdle
	e.notify()
}

// Restart reinitializes the board and returns to the idle state.
func (e *Engine) Restart() { e.Initialize() }

// Start shuffles the board and moves the game into progress.
func (e *Engine) Start() { e.Shuffle() }

// Shuffle replaces the board with a random solvable permutation that is not
// already solved, and puts the game in progress from any state. The blank
// ends in the last cell.
//
// Algorithm:
//   - Put the blank in the last cell, then Fisher–Yates the first Size²-1 cells.
//   - Repeat while the inversion count is odd or the result is the identity.
func (e *Engine) Shuffle() {
	e.shuffle()
	e.state = StateInProgress
	e.notify()
}

func (e *Engine) shuffle() {
	n := e.size * e.size
	for i := range e.board {
		e.board[i] = i + 1
	}
	for {
		for i := n - 2; i > 0; i-- {
			j := e.rng.Intn(i + 1)
			e.board[i], e.board[j] = e.board[j], e.board[i]
		}
		if IsSolvable(e.board) && !IsIdentity(e.board) {
			break
		}
	}
	e.empty = n - 1
}

// AttemptMove slides the tile at pos into the blank if the two cells are
// orthogonal neighbours and the game is in progress. Anything else is a
// rejected move and leaves the board untouched.
//
// State transitions:
//   - Applied and the board becomes the identity → StateSolved.
//   - Otherwise the state is unchanged.
func (e *Engine) AttemptMove(pos int) MoveResult {
	if e.state != StateInProgress || !e.Adjacent(pos) {
		return MoveRejected
	}
	e.board[pos], e.board[e.empty] = e.board[e.empty], e.board[pos]
	e.empty = pos
	if e.IsSolved() {
		e.state = StateSolved
	}
	e.notify()
	return MoveApplied
}

// Slide moves the tile that sits on the given side of the blank into it.
// Up moves the tile below the blank upwards, Left moves the tile right of it, etc.
func (e *Engine) Slide(d Direction) MoveResult {
	pos, ok := e.sourceFor(d)
	if !ok {
		return MoveRejected
	}
	return e.AttemptMove(pos)
}

func (e *Engine) sourceFor(d Direction) (int, bool) {
	row, col := e.empty/e.size, e.empty%e.size
	switch d {
	case Up:
		row++
	case Down:
		row--
	case Left:
		col++
	case Right:
		col--
	default:
		return 0, false
	}
	if row < 0 || row >= e.size || col < 0 || col >= e.size {
		return 0, false
	}
	return row*e.size + col, true
}

// Adjacent reports whether pos is an orthogonal neighbour of the blank:
// index distance 1 within the same row, or index distance exactly Size.
func (e *Engine) Adjacent(pos int) bool {
	return adjacent(pos, e.empty, e.size)
}

func adjacent(pos, empty, size int) bool {
	if pos < 0 || pos >= size*size || pos == empty {
		return false
	}
	diff := pos - empty
	if diff < 0 {
		diff = -diff
	}
	if diff == 1 {
		return pos/size == empty/size
	}
	return diff == size
}

// IsSolved reports whether the board equals the identity permutation.
func (e *Engine) IsSolved() bool { return IsIdentity(e.board) }

// Load replaces the board with a caller-supplied permutation and puts the game
// in progress (or solved, for the identity). Used for replays and tests.
func (e *Engine) Load(board []int) error {
	if len(board) != e.size*e.size || !isPermutation(board) {
		return ErrInvalidBoard
	}
	e.board = append(e.board[:0], board...)
	for i, v := range e.board {
		if v == len(board) {
			e.empty = i
		}
	}
	e.state = StateInProgress
	if e.IsSolved() {
		e.state = StateSolved
	}
	e.notify()
	return nil
}

// Board returns a copy of the current tile order.
func (e *Engine) Board() []int { return append([]int(nil), e.board...) }

// EmptyPosition returns the index of the blank.
func (e *Engine) EmptyPosition() int { return e.empty }

// State returns the current lifecycle state.
func (e *Engine) State() State { return e.state }

// Size returns the side length.
func (e *Engine) Size() int { return e.size }

// Snapshot returns a copy of the state suitable for rendering or encoding.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{Size: e.size, Board: e.Board(), Empty: e.empty, State: e.state}
}

func (e *Engine) notify() {
	if e.renderer != nil {
		e.renderer.Render(e.Snapshot())
	}
}

// Inversions counts pairs i<j of non-blank tiles with board[i] > board[j].
func Inversions(board []int) int {
	blank := len(board)
	inv := 0
	for i := 0; i < len(board); i++ {
		if board[i] == blank {
			continue
		}
		for j := i + 1; j < len(board); j++ {
			if board[j] != blank && board[i] > board[j] {
				inv++
			}
		}
	}
	return inv
}

// IsSolvable applies the 15-puzzle parity law for a bottom-right goal blank.
// Odd widths need an even inversion count. Even widths need
// inversions + (blank row counted from the bottom, 1-based) to be odd,
// which reduces to the odd-width rule when the blank sits in the bottom row.
func IsSolvable(board []int) bool {
	size := sideOf(len(board))
	if size == 0 || !isPermutation(board) {
		return false
	}
	inv := Inversions(board)
	if size%2 == 1 {
		return inv%2 == 0
	}
	blankRow := 0
	for i, v := range board {
		if v == len(board) {
			blankRow = i / size
		}
	}
	return (inv+size-blankRow)%2 == 1
}

// IsIdentity reports whether board is [1, 2, ..., len(board)].
func IsIdentity(board []int) bool {
	for i, v := range board {
		if v != i+1 {
			return false
		}
	}
	return true
}

func isPermutation(board []int) bool {
	seen := make([]bool, len(board)+1)
	for _, v := range board {
		if v < 1 || v > len(board) || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

func sideOf(n int) int {
	for s := 2; s*s <= n; s++ {
		if s*s == n {
			return s
		}
	}
	return 0
}
