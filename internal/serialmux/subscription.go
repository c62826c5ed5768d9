package serialmux

import "sync"

// Subscription adapts a mux subscriber channel into a polled line source:
// Poll never blocks and returns whatever has arrived since the last call.
type Subscription struct {
	mux  SerialMuxInterface
	id   string
	ch   chan string
	once sync.Once
}

// NewSubscription subscribes to m.
func NewSubscription(m SerialMuxInterface) *Subscription {
	id, ch := m.Subscribe()
	return &Subscription{mux: m, id: id, ch: ch}
}

// Poll returns the lines currently buffered, oldest first, or nil when none
// are waiting. Lines arriving during the call are left for the next Poll.
func (s *Subscription) Poll() []string {
	n := len(s.ch)
	if n == 0 {
		return nil
	}
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		line, ok := <-s.ch
		if !ok {
			break
		}
		lines = append(lines, line)
	}
	return lines
}

// Close unsubscribes from the mux. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.mux.Unsubscribe(s.id) })
}
