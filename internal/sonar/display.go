package sonar

import "sync"

// DisplayBuffer holds the most recent smoothed points for renderers. Push and
// Snapshot may be called from different goroutines.
type DisplayBuffer struct {
	mu     sync.Mutex
	points ring[Point]
}

// NewDisplayBuffer returns a buffer holding at most capacity points.
func NewDisplayBuffer(capacity int) *DisplayBuffer {
	return &DisplayBuffer{points: newRing[Point](capacity)}
}

// Push appends p, evicting the oldest point when the buffer is full.
func (b *DisplayBuffer) Push(p Point) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.points.push(p)
}

// Snapshot returns a copy of the buffered points in insertion order, oldest
// first. The copy reflects a single instant; no push is ever half applied.
func (b *DisplayBuffer) Snapshot() []Point {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.points.appendTo(make([]Point, 0, b.points.len()))
}

// Len returns the number of buffered points.
func (b *DisplayBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.points.len()
}

// Cap returns the maximum number of points the buffer holds.
func (b *DisplayBuffer) Cap() int {
	return b.points.cap()
}
