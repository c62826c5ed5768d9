package sonar

import "slices"

// MedianWindow is a running per-axis median filter over the most recent raw
// points. It is not safe for concurrent use; Pipeline serialises access.
type MedianWindow struct {
	points ring[Point]
	xs, ys []float64
}

// NewMedianWindow returns a window holding at most size points. Sizes below
// one are treated as one.
func NewMedianWindow(size int) *MedianWindow {
	r := newRing[Point](size)
	return &MedianWindow{
		points: r,
		xs:     make([]float64, 0, r.cap()),
		ys:     make([]float64, 0, r.cap()),
	}
}

// Push appends p, evicting the oldest point when the window is full, and
// returns the smoothed point: the median of the buffered x values paired with
// the median of the buffered y values. The two medians need not come from the
// same raw point.
func (w *MedianWindow) Push(p Point) Point {
	w.points.push(p)

	w.xs, w.ys = w.xs[:0], w.ys[:0]
	for _, q := range w.points.unordered() {
		w.xs = append(w.xs, q.X)
		w.ys = append(w.ys, q.Y)
	}

	return Point{X: median(w.xs), Y: median(w.ys)}
}

// Len returns the number of buffered raw points.
func (w *MedianWindow) Len() int { return w.points.len() }

// Cap returns the window size.
func (w *MedianWindow) Cap() int { return w.points.cap() }

// Points returns a copy of the buffered raw points, oldest first.
func (w *MedianWindow) Points() []Point {
	return w.points.appendTo(make([]Point, 0, w.points.len()))
}

// median sorts vs in place and returns the element at index len/2. For an
// even count that is the upper of the two middle values; the two are never
// averaged, so output during the fill phase is always an observed value.
func median(vs []float64) float64 {
	slices.Sort(vs)
	return vs[len(vs)/2]
}
