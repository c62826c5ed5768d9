package sonar

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Default configuration constants.
const (
	DefaultMaxSensorRangeMM = 6000
	DefaultFilterWindowSize = 5
	DefaultMaxDisplayPoints = 500
)

// Config holds the constants fixed at pipeline construction.
type Config struct {
	MaxSensorRangeMM int `json:"max_sensor_range_mm"`
	FilterWindowSize int `json:"filter_window_size"`
	MaxDisplayPoints int `json:"max_display_points"`
}

// DefaultConfig returns the stock sensor constants.
func DefaultConfig() Config {
	return Config{
		MaxSensorRangeMM: DefaultMaxSensorRangeMM,
		FilterWindowSize: DefaultFilterWindowSize,
		MaxDisplayPoints: DefaultMaxDisplayPoints,
	}
}

// Validate checks the constants are usable.
func (c Config) Validate() error {
	if c.MaxSensorRangeMM <= 0 {
		return fmt.Errorf("max sensor range must be positive, got %d", c.MaxSensorRangeMM)
	}
	if c.FilterWindowSize <= 0 || c.FilterWindowSize%2 == 0 {
		return fmt.Errorf("filter window size must be a positive odd integer, got %d", c.FilterWindowSize)
	}
	if c.MaxDisplayPoints <= 0 {
		return fmt.Errorf("max display points must be positive, got %d", c.MaxDisplayPoints)
	}
	return nil
}

// Outcome classifies what happened to one input line.
type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeMalformed
	OutcomeOutOfRange
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeOutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

// Event describes the processing of a single line. Reading is set unless the
// line was malformed; Raw, Smoothed and DisplayLen only for accepted lines.
type Event struct {
	Line       string
	Outcome    Outcome
	Err        error
	Reading    Reading
	Raw        Point
	Smoothed   Point
	DisplayLen int
}

// Observer receives one Event per processed line. Observers run on the
// producer goroutine and must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }

// LineSource is a non-blocking pull source of text lines. Poll returns every
// line currently buffered, possibly none.
type LineSource interface {
	Poll() []string
}

// Stats are the pipeline's running line counters.
type Stats struct {
	Lines      uint64 `json:"lines"`
	Accepted   uint64 `json:"accepted"`
	Malformed  uint64 `json:"malformed"`
	OutOfRange uint64 `json:"out_of_range"`
}

// Pipeline drives lines through parse, gate, convert, median window and the
// display buffer.
type Pipeline struct {
	cfg       Config
	gate      Gate
	observers []Observer

	mu      sync.Mutex // guards window
	window  *MedianWindow
	display *DisplayBuffer

	lines      atomic.Uint64
	accepted   atomic.Uint64
	malformed  atomic.Uint64
	outOfRange atomic.Uint64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver registers o to receive an Event for every processed line.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.observers = append(p.observers, o)
		}
	}
}

// New creates an independent pipeline for cfg.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	p := &Pipeline{
		cfg:     cfg,
		gate:    Gate{MaxRangeMM: cfg.MaxSensorRangeMM},
		window:  NewMedianWindow(cfg.FilterWindowSize),
		display: NewDisplayBuffer(cfg.MaxDisplayPoints),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// ProcessLine runs one line through the pipeline and returns the smoothed
// point pushed to the display buffer. Rejected lines return an error wrapping
// ErrMalformedLine or ErrOutOfRange and leave both buffers untouched.
func (p *Pipeline) ProcessLine(line string) (Point, error) {
	p.lines.Add(1)
	ev := Event{Line: line}

	reading, err := ParseLine(line)
	if err != nil {
		p.malformed.Add(1)
		ev.Outcome, ev.Err = OutcomeMalformed, err
		p.notify(ev)
		return Point{}, err
	}
	ev.Reading = reading

	if err := p.gate.Check(reading); err != nil {
		p.outOfRange.Add(1)
		ev.Outcome, ev.Err = OutcomeOutOfRange, err
		p.notify(ev)
		return Point{}, err
	}

	raw := reading.Point()
	p.mu.Lock()
	smoothed := p.window.Push(raw)
	p.display.Push(smoothed)
	p.mu.Unlock()
	p.accepted.Add(1)

	ev.Outcome, ev.Raw, ev.Smoothed = OutcomeAccepted, raw, smoothed
	ev.DisplayLen = p.display.Len()
	p.notify(ev)
	return smoothed, nil
}

// Drain processes every line src has buffered at the moment of the call and
// returns how many lines were consumed. It polls once and never waits for
// more input, so an empty poll returns zero immediately. Per-line rejections
// are counted, not returned.
func (p *Pipeline) Drain(src LineSource) int {
	lines := src.Poll()
	for _, line := range lines {
		_, _ = p.ProcessLine(line)
	}
	return len(lines)
}

// Snapshot returns the display buffer contents, oldest first.
func (p *Pipeline) Snapshot() []Point {
	return p.display.Snapshot()
}

// Stats returns the current line counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Lines:      p.lines.Load(),
		Accepted:   p.accepted.Load(),
		Malformed:  p.malformed.Load(),
		OutOfRange: p.outOfRange.Load(),
	}
}

// Config returns the constants the pipeline was built with.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// WindowLen returns the number of raw points in the median window.
func (p *Pipeline) WindowLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.window.Len()
}

func (p *Pipeline) notify(ev Event) {
	for _, o := range p.observers {
		o.Observe(ev)
	}
}

// IsRejection reports whether err is one of the per-line rejection errors.
func IsRejection(err error) bool {
	return errors.Is(err, ErrMalformedLine) || errors.Is(err, ErrOutOfRange)
}
