package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F1F1F")).
			Foreground(lipgloss.Color("#CCCCCC"))

	styleStatusLive = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#35B779")).
			Bold(true)

	styleStatusPaused = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFAA00")).
				Bold(true)

	styleStatusError = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FF3300")).
				Bold(true)

	styleTitle = lipgloss.NewStyle().Bold(true)
)

// Title is the heading line above the map.
func Title(f Frame) string {
	return fmt.Sprintf("2D Sonar Map (Range: %.1fm, Filter: %dpts)",
		float64(f.Config.MaxSensorRangeMM)/1000.0, f.Config.FilterWindowSize)
}

// StatusText is the unstyled counters part of the status bar.
func StatusText(f Frame, source string) string {
	s := f.Stats
	return fmt.Sprintf(" %s  pts %d/%d  lines %d  ok %d  bad %d  range %d",
		source, len(f.Points), f.Config.MaxDisplayPoints,
		s.Lines, s.Accepted, s.Malformed, s.OutOfRange)
}

// RenderStatusBar renders the bottom bar, padded to width.
func RenderStatusBar(width int, f Frame, source string, paused bool, err error) string {
	var badge string
	switch {
	case err != nil:
		badge = styleStatusError.Render("[ERROR]")
	case paused:
		badge = styleStatusPaused.Render("[PAUSED]")
	default:
		badge = styleStatusLive.Render("[LIVE]")
	}

	content := badge + StatusText(f, source)
	if err != nil {
		content += "  " + err.Error()
	}

	gap := width - lipgloss.Width(content)
	if gap > 0 {
		content += strings.Repeat(" ", gap)
	}
	return styleStatusBar.Render(content)
}
