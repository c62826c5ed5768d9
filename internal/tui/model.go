// Package tui draws the live sonar map in a terminal.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultInterval is the redraw period when none is configured.
const DefaultInterval = 100 * time.Millisecond

// TickMsg triggers a frame fetch.
type TickMsg time.Time

// FrameMsg carries a freshly fetched frame.
type FrameMsg Frame

// FetchErrMsg reports a failed fetch. The model keeps the last good frame.
type FetchErrMsg struct {
	Err error
}

// Model is the root Bubble Tea model for the terminal map.
type Model struct {
	ctx      context.Context
	src      FrameSource
	interval time.Duration

	width  int
	height int

	paused bool
	frame  Frame
	frames int
	err    error
}

// New creates a Model that redraws from src every interval.
func New(ctx context.Context, src FrameSource, interval time.Duration) Model {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return Model{ctx: ctx, src: src, interval: interval}
}

func (m Model) Init() tea.Cmd {
	return m.fetchCmd()
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) fetchCmd() tea.Cmd {
	ctx, src := m.ctx, m.src
	return func() tea.Msg {
		f, err := src.Frame(ctx)
		if err != nil {
			return FetchErrMsg{Err: err}
		}
		return FrameMsg(f)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c", "esc":
			return m, tea.Quit
		case "p", "P", " ":
			m.paused = !m.paused
		}
		return m, nil

	case TickMsg:
		if m.paused {
			return m, m.tickCmd()
		}
		return m, m.fetchCmd()

	case FrameMsg:
		m.frame = Frame(msg)
		m.frames++
		m.err = nil
		return m, m.tickCmd()

	case FetchErrMsg:
		m.err = msg.Err
		return m, m.tickCmd()
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing sonar map..."
	}

	bodyH := max(m.height-2, 3)
	rangeM := float64(m.frame.Config.MaxSensorRangeMM) / 1000.0

	return styleTitle.Render(Title(m.frame)) + "\n" +
		RenderMap(m.frame.Points, m.width, bodyH, rangeM) + "\n" +
		RenderStatusBar(m.width, m.frame, m.src.Name(), m.paused, m.err)
}

// Frames reports how many frames the model has received.
func (m Model) Frames() int { return m.frames }

// Paused reports whether redraws are suspended.
func (m Model) Paused() bool { return m.paused }

// Err returns the most recent fetch error, cleared by the next good frame.
func (m Model) Err() error { return m.err }
