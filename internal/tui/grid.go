package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/banshee-data/sonarmap/internal/sonar"
)

// Cell glyphs, highest priority first.
const (
	glyphPoint  = '*'
	glyphOrigin = '+'
	glyphRing   = '.'
	glyphEmpty  = ' '
)

// RingCount is the number of evenly spaced range rings drawn out to the
// maximum range.
const RingCount = 4

var (
	colorPoint  = lipgloss.Color("#FF5252")
	colorOrigin = lipgloss.Color("#FFFFFF")
	colorRing   = lipgloss.Color("#3E4989")

	stylePoint  = lipgloss.NewStyle().Foreground(colorPoint).Bold(true)
	styleOrigin = lipgloss.NewStyle().Foreground(colorOrigin).Bold(true)
	styleRing   = lipgloss.NewStyle().Foreground(colorRing)
)

// Bounds are the map extents in metres. They match the saved PNG snapshots.
type Bounds struct {
	XMin, XMax, YMin, YMax float64
}

// BoundsFor returns the map extents for a maximum range of rangeM metres.
func BoundsFor(rangeM float64) Bounds {
	return Bounds{XMin: -rangeM - 0.5, XMax: rangeM + 0.5, YMin: -1, YMax: rangeM + 0.5}
}

// cell maps a position in metres to a grid cell. ok is false outside b.
func (b Bounds) cell(x, y float64, width, height int) (col, row int, ok bool) {
	if x < b.XMin || x > b.XMax || y < b.YMin || y > b.YMax {
		return 0, 0, false
	}
	col = int(math.Floor((x - b.XMin) * float64(width) / (b.XMax - b.XMin)))
	row = int(math.Floor((b.YMax - y) * float64(height) / (b.YMax - b.YMin)))
	return min(col, width-1), min(row, height-1), true
}

// center returns the position in metres of the middle of a cell.
func (b Bounds) center(col, row, width, height int) (x, y float64) {
	x = b.XMin + (float64(col)+0.5)*(b.XMax-b.XMin)/float64(width)
	y = b.YMax - (float64(row)+0.5)*(b.YMax-b.YMin)/float64(height)
	return x, y
}

// Grid lays points out on a width x height character grid with the sensor
// origin and range rings. Points outside the map bounds are skipped.
func Grid(points []sonar.Point, width, height int, rangeM float64) [][]rune {
	if width < 1 || height < 1 {
		return nil
	}
	b := BoundsFor(rangeM)

	cellW := (b.XMax - b.XMin) / float64(width)
	cellH := (b.YMax - b.YMin) / float64(height)
	tol := math.Max(cellW, cellH) / 2

	grid := make([][]rune, height)
	for row := range grid {
		grid[row] = make([]rune, width)
		for col := range grid[row] {
			grid[row][col] = glyphEmpty
			x, y := b.center(col, row, width, height)
			r := math.Hypot(x, y)
			for k := 1; k <= RingCount; k++ {
				if math.Abs(r-rangeM*float64(k)/RingCount) < tol {
					grid[row][col] = glyphRing
					break
				}
			}
		}
	}

	if col, row, ok := b.cell(0, 0, width, height); ok {
		grid[row][col] = glyphOrigin
	}
	for _, p := range points {
		if col, row, ok := b.cell(p.X, p.Y, width, height); ok {
			grid[row][col] = glyphPoint
		}
	}
	return grid
}

// RenderMap renders Grid as a styled multi-line string.
func RenderMap(points []sonar.Point, width, height int, rangeM float64) string {
	grid := Grid(points, width, height, rangeM)

	var sb strings.Builder
	for i, line := range grid {
		for _, ch := range line {
			switch ch {
			case glyphPoint:
				sb.WriteString(stylePoint.Render(string(ch)))
			case glyphOrigin:
				sb.WriteString(styleOrigin.Render(string(ch)))
			case glyphRing:
				sb.WriteString(styleRing.Render(string(ch)))
			default:
				sb.WriteRune(ch)
			}
		}
		if i < len(grid)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
