// Package tui provides the Bubble Tea typing interface.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/stopwatch"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuipesync/internal/model"
	"github.com/verte-zerg/tuipesync/internal/session"
)

// Recorder persists finished scores and reports the personal best.
type Recorder interface {
	OnSessionCompleted(ctx context.Context, score model.Score) (model.Score, error)
	PersonalBest(ctx context.Context) (model.Score, bool, error)
}

// Model implements the Bubble Tea typing UI.
type Model struct {
	ctx      context.Context
	engine   *session.Engine
	recorder Recorder
	logger   *slog.Logger
	watch    stopwatch.Model

	width  int
	height int

	last    model.Score
	hasLast bool
	best    model.Score
	hasBest bool
	saveErr error
}

type bestMsg struct {
	score model.Score
	ok    bool
}

type savedMsg struct {
	score model.Score
	err   error
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cursorStyle      = currentWordStyle.Copy().Underline(true)
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// NewModel constructs a typing TUI model.
func NewModel(ctx context.Context, engine *session.Engine, recorder Recorder, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{
		ctx:      ctx,
		engine:   engine,
		recorder: recorder,
		logger:   logger,
		watch:    stopwatch.NewWithInterval(100 * time.Millisecond),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.loadBest
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case bestMsg:
		m.best, m.hasBest = msg.score, msg.ok
		return m, nil
	case savedMsg:
		m.saveErr = msg.err
		if msg.err == nil {
			m.last, m.hasLast = msg.score, true
			if !m.hasBest || msg.score.WPM > m.best.WPM {
				m.best, m.hasBest = msg.score, true
			}
		}
		return m, nil
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	default:
		var cmd tea.Cmd
		m.watch, cmd = m.watch.Update(msg)
		return m, cmd
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	s := m.engine.Session()
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return tea.Quit
	case tea.KeyTab:
		return m.restart()
	case tea.KeyBackspace, tea.KeyDelete:
		input := []rune(s.CurrentInput())
		if len(input) > 0 {
			m.engine.Input(string(input[:len(input)-1]))
		}
		return nil
	case tea.KeySpace, tea.KeyEnter:
		score, done := m.engine.Boundary()
		if !done {
			return nil
		}
		return tea.Batch(m.save(score), m.restart())
	case tea.KeyRunes:
		wasIdle := s.State() == session.StateIdle
		m.engine.Input(s.CurrentInput() + string(msg.Runes))
		if wasIdle && m.engine.Session().State() == session.StateTyping {
			return m.watch.Start()
		}
		return nil
	default:
		return nil
	}
}

func (m *Model) restart() tea.Cmd {
	m.engine.Reset()
	return tea.Sequence(m.watch.Stop(), m.watch.Reset())
}

func (m *Model) save(score model.Score) tea.Cmd {
	return func() tea.Msg {
		saved, err := m.recorder.OnSessionCompleted(m.ctx, score)
		if err != nil {
			m.logger.Error("failed to save score", "err", err)
		}
		return savedMsg{score: saved, err: err}
	}
}

func (m *Model) loadBest() tea.Msg {
	best, ok, err := m.recorder.PersonalBest(m.ctx)
	if err != nil {
		m.logger.Warn("failed to load personal best", "err", err)
	}
	return bestMsg{score: best, ok: ok}
}

// View implements tea.Model.
func (m *Model) View() string {
	s := m.engine.Session()
	if len(s.Words()) == 0 {
		return "No words to practice."
	}
	styledRunes := buildStyledRunes(s.Words(), s.Index(), s.CurrentInput(), s.IncorrectPositions())
	if m.width == 0 || m.height == 0 {
		return renderStyledRunes(styledRunes)
	}
	contentWidth := int(float64(m.width) * 0.70)
	if contentWidth < 1 {
		contentWidth = 1
	}
	wrapped := wrapStyledRunes(styledRunes, contentWidth)
	content := lipgloss.NewStyle().Width(contentWidth).Render(wrapped)
	footer := m.renderFooter()
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderFooter() string {
	s := m.engine.Session()
	segments := []string{
		fmt.Sprintf("Word %d/%d", s.Index(), len(s.Words())),
		fmt.Sprintf("%.0f WPM", s.WPM()),
		m.watch.View(),
	}
	if m.hasLast {
		state := "saved offline"
		if m.last.Synced {
			state = "synced"
		}
		segments = append(segments, fmt.Sprintf("Last %.0f WPM · %.1f%% (%s)", m.last.WPM, m.last.Accuracy, state))
	}
	if m.hasBest {
		segments = append(segments, fmt.Sprintf("Best %.0f WPM", m.best.WPM))
	}
	footer := footerStyle.Render(strings.Join(segments, "  "))
	if m.saveErr != nil {
		footer += "  " + errorStyle.Render("not saved: "+m.saveErr.Error())
	}
	return footer
}
