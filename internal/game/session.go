// internal/game/session.go
//
// A Session is one player's run: a puzzle engine, the clock that times it,
// and whether the result has been claimed for the leaderboard.
// Responsibilities:
//   - Start/restart: shuffle and start the timer together.
//   - Apply moves and stop the timer exactly once on the solving move.
//   - Guard score claims (solved, once).
//
// Sessions are safe for concurrent use; every method takes the session lock.
package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/slidepuzzle/internal/puzzle"
	"github.com/robalobadob/slidepuzzle/internal/timer"
)

// Session holds the state of a single game.
type Session struct {
	ID        string
	Daily     string
	CreatedAt time.Time

	mu         sync.Mutex
	cfg        Config
	engine     *puzzle.Engine
	timer      *timer.Timer
	moves      int
	submitted  bool
	lastActive time.Time
}

// New constructs an idle session. Call Start to shuffle and begin timing.
func New(cfg Config) *Session {
	if cfg.Size == 0 {
		cfg.Size = puzzle.DefaultSize
	}
	if cfg.Clock == nil {
		cfg.Clock = timer.System
	}
	now := cfg.Clock.Now()
	s := &Session{
		ID:         uuid.NewString(),
		Daily:      cfg.Daily,
		CreatedAt:  now,
		cfg:        cfg,
		timer:      timer.New(cfg.Clock),
		lastActive: now,
	}
	s.engine = s.newEngine()
	return s
}

func (s *Session) newEngine() *puzzle.Engine {
	opts := []puzzle.Option{puzzle.WithSize(s.cfg.Size), puzzle.WithRenderer(s.cfg.Renderer)}
	if s.cfg.Seeded {
		opts = append(opts, puzzle.WithSeed(s.cfg.Seed))
	}
	return puzzle.New(opts...)
}

// SetRenderer swaps the renderer of the running engine (e.g. once a
// websocket hub is known for this session id).
func (s *Session) SetRenderer(r puzzle.Renderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Renderer = r
	s.engine.SetRenderer(r)
}

// Start shuffles the board and starts the clock.
func (s *Session) Start() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start()
	return s.view()
}

func (s *Session) start() {
	s.engine.Start()
	s.timer.Start()
	s.moves = 0
	s.submitted = false
	s.lastActive = s.cfg.Clock.Now()
}

// Restart abandons the current run and starts a new one. Seeded sessions
// rebuild their engine so the same board comes back.
func (s *Session) Restart() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.Seeded {
		s.engine = s.newEngine()
	} else {
		s.engine.Restart()
	}
	s.start()
	return s.view()
}

// Move activates the tile at pos.
func (s *Session) Move(pos int) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(s.engine.AttemptMove(pos))
}

// Slide moves the tile on the given side of the blank.
func (s *Session) Slide(d puzzle.Direction) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(s.engine.Slide(d))
}

func (s *Session) apply(res puzzle.MoveResult) Outcome {
	s.lastActive = s.cfg.Clock.Now()
	if res == puzzle.MoveApplied {
		s.moves++
		if s.engine.State() == puzzle.StateSolved {
			s.timer.Stop()
		}
	}
	return Outcome{Result: res, View: s.view()}
}

// Hint returns the next position on a shortest route to the goal.
func (s *Session) Hint(ctx context.Context) (int, bool) {
	s.mu.Lock()
	board := s.engine.Board()
	inProgress := s.engine.State() == puzzle.StateInProgress
	s.mu.Unlock()
	if !inProgress {
		return 0, false
	}
	return puzzle.Hint(ctx, board)
}

// Claim marks a solved game as submitted and returns its elapsed seconds.
func (s *Session) Claim() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine.State() != puzzle.StateSolved {
		return 0, ErrNotSolved
	}
	if s.submitted {
		return 0, ErrAlreadySubmitted
	}
	s.submitted = true
	return s.timer.Seconds(), nil
}

// View returns the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// LastActive reports when the session last started or received a move.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) view() View {
	snap := s.engine.Snapshot()
	return View{
		ID:             s.ID,
		Size:           snap.Size,
		Board:          snap.Board,
		Empty:          snap.Empty,
		State:          snap.State,
		Moves:          s.moves,
		ElapsedSeconds: s.timer.Seconds(),
		Time:           s.timer.Display(),
		Daily:          s.Daily,
		Submitted:      s.submitted,
	}
}
