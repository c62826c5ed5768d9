package sonar

// ring is a fixed-capacity FIFO. Pushing onto a full ring overwrites the
// oldest element.
type ring[T any] struct {
	buf  []T
	head int // next write position
	n    int
}

func newRing[T any](capacity int) ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return ring[T]{buf: make([]T, capacity)}
}

func (r *ring[T]) push(v T) {
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}

func (r *ring[T]) len() int { return r.n }

func (r *ring[T]) cap() int { return len(r.buf) }

// unordered returns the live elements in storage order. Until the ring first
// fills they occupy buf[:n]; after that every slot is live.
func (r *ring[T]) unordered() []T {
	return r.buf[:r.n]
}

// appendTo appends the live elements to dst oldest first.
func (r *ring[T]) appendTo(dst []T) []T {
	if r.n < len(r.buf) {
		return append(dst, r.buf[:r.n]...)
	}
	dst = append(dst, r.buf[r.head:]...)
	return append(dst, r.buf[:r.head]...)
}
