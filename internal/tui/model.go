// Package tui is the terminal front end: a bubbletea program that drives a
// game.Session and a leaderboard.Board directly, without the HTTP server.
//
// Keys:
//
//	arrows   slide a tile into the blank
//	1-9      move the tile at that cell (row-major)
//	s        start a new shuffle when idle or solved
//	r        restart
//	h        highlight a hint
//	c        clear the leaderboard
//	q        quit
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robalobadob/slidepuzzle/internal/game"
	"github.com/robalobadob/slidepuzzle/internal/leaderboard"
	"github.com/robalobadob/slidepuzzle/internal/puzzle"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	tileStyle   = lipgloss.NewStyle().Width(5).Height(1).Align(lipgloss.Center).Padding(1, 0).Background(lipgloss.Color("63")).Foreground(lipgloss.Color("230"))
	blankStyle  = tileStyle.Background(lipgloss.NoColor{})
	winStyle    = tileStyle.Background(lipgloss.Color("35"))
	hintStyle   = tileStyle.Background(lipgloss.Color("214"))
	timerStyle  = lipgloss.NewStyle().Bold(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type tickMsg time.Time

type scoresMsg struct {
	top  []leaderboard.Record
	rank int
	err  error
	note string
}

// Model is the bubbletea model for one terminal session.
type Model struct {
	ctx     context.Context
	session *game.Session
	scores  *leaderboard.Board

	view   game.View
	top    []leaderboard.Record
	hint   int
	status string

	naming bool
	input  textinput.Model
}

// New builds a model around a fresh idle session.
func New(ctx context.Context, scores *leaderboard.Board, cfg game.Config) Model {
	ti := textinput.New()
	ti.Placeholder = leaderboard.DefaultName
	ti.CharLimit = leaderboard.MaxNameLen
	ti.Prompt = "Name: "

	s := game.New(cfg)
	return Model{
		ctx:     ctx,
		session: s,
		scores:  scores,
		view:    s.View(),
		hint:    -1,
		status:  "press s to start",
		input:   ti,
	}
}

// Run starts the program and blocks until the player quits or ctx ends.
func Run(ctx context.Context, scores *leaderboard.Board, cfg game.Config) error {
	_, err := tea.NewProgram(New(ctx, scores, cfg), tea.WithContext(ctx), tea.WithAltScreen()).Run()
	return err
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) loadScores() tea.Msg {
	top, err := m.scores.List(m.ctx)
	return scoresMsg{top: top, err: err}
}

// Init loads the leaderboard and starts the display clock.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadScores, tick())
}

// Update handles key presses, ticks and leaderboard results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.view = m.session.View()
		return m, tick()

	case scoresMsg:
		if msg.err != nil {
			m.status = "leaderboard: " + msg.err.Error()
			return m, nil
		}
		m.top = msg.top
		if msg.note != "" {
			m.status = msg.note
		}
		return m, nil

	case tea.KeyMsg:
		if m.naming {
			return m.updateNaming(msg)
		}
		return m.updateBoard(msg)
	}
	return m, nil
}

func (m Model) updateNaming(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.naming = false
		m.input.Blur()
		m.status = "score not saved"
		return m, nil
	case tea.KeyEnter:
		m.naming = false
		m.input.Blur()
		return m, m.submit(m.input.Value())
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(name string) tea.Cmd {
	s, scores, ctx := m.session, m.scores, m.ctx
	return func() tea.Msg {
		sec, err := s.Claim()
		if err != nil {
			return scoresMsg{err: err}
		}
		top, rank, err := scores.Submit(ctx, name, sec)
		if err != nil {
			return scoresMsg{err: err}
		}
		note := "not fast enough for the board this time"
		if rank > 0 {
			note = fmt.Sprintf("you placed #%d", rank)
		}
		return scoresMsg{top: top, rank: rank, note: note}
	}
}

func (m Model) updateBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.hint = -1
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyUp:
		return m.apply(m.session.Slide(puzzle.Up))
	case tea.KeyDown:
		return m.apply(m.session.Slide(puzzle.Down))
	case tea.KeyLeft:
		return m.apply(m.session.Slide(puzzle.Left))
	case tea.KeyRight:
		return m.apply(m.session.Slide(puzzle.Right))
	}

	key := msg.String()
	switch key {
	case "q":
		return m, tea.Quit
	case "s":
		if m.view.State == puzzle.StateInProgress {
			return m, nil
		}
		m.view = m.session.Restart()
		m.status = "go!"
	case "r":
		m.view = m.session.Restart()
		m.status = "restarted"
	case "h":
		if pos, ok := m.session.Hint(m.ctx); ok {
			m.hint = pos
		}
	case "c":
		scores := m.scores
		return m, func() tea.Msg {
			if err := scores.Clear(m.ctx); err != nil {
				return scoresMsg{err: err}
			}
			return scoresMsg{top: []leaderboard.Record{}, note: "leaderboard cleared"}
		}
	default:
		if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= m.view.Size*m.view.Size {
			return m.apply(m.session.Move(n - 1))
		}
	}
	return m, nil
}

func (m Model) apply(out game.Outcome) (tea.Model, tea.Cmd) {
	m.view = out.View
	if out.Result != puzzle.MoveApplied || out.State != puzzle.StateSolved {
		return m, nil
	}
	m.status = "solved in " + out.Time
	m.naming = true
	m.input.SetValue("")
	return m, m.input.Focus()
}

// View renders the board, clock, leaderboard and key help.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Sliding Puzzle"))
	b.WriteString("  ")
	b.WriteString(timerStyle.Render(m.view.Time))
	fmt.Fprintf(&b, "  %d moves\n\n", m.view.Moves)

	n := m.view.Size
	rows := make([]string, 0, n)
	for r := 0; r < n; r++ {
		cells := make([]string, 0, n)
		for c := 0; c < n; c++ {
			pos := r*n + c
			cells = append(cells, m.tile(pos))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, rows...))
	b.WriteString("\n\n")

	if m.naming {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n\n")
	}

	b.WriteString(titleStyle.Render("Leaderboard"))
	b.WriteString("\n")
	if len(m.top) == 0 {
		b.WriteString(statusStyle.Render("  no scores yet"))
		b.WriteString("\n")
	}
	for i, r := range m.top {
		fmt.Fprintf(&b, "%2d. %-24s %s\n", i+1, r.Name, r.Time)
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("arrows/1-9 move • s start • r restart • h hint • c clear • q quit"))
	return b.String()
}

func (m Model) tile(pos int) string {
	style := tileStyle
	label := strconv.Itoa(m.view.Board[pos])
	switch {
	case pos == m.view.Empty && m.view.State == puzzle.StateSolved:
		style = winStyle
	case pos == m.view.Empty:
		style, label = blankStyle, ""
	case pos == m.hint:
		style = hintStyle
	}
	return style.Render(label)
}
