// Package ingest drives the sonar pipeline on a fixed tick: drain the line
// source, advance the frame counter, and hand the frame to the snapshot saver.
package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/sonarmap/internal/monitoring"
	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/banshee-data/sonarmap/internal/timeutil"
)

// ErrInvalidInterval is returned by Run when the tick interval is not positive.
var ErrInvalidInterval = errors.New("ingest interval must be positive")

// Pipeline is the part of *sonar.Pipeline the loop drives.
type Pipeline interface {
	Drain(src sonar.LineSource) int
	Snapshot() []sonar.Point
}

// FrameSaver persists frames on a schedule. *snapshot.Saver satisfies it.
type FrameSaver interface {
	Tick(frame int, points []sonar.Point) bool
	Final(lastFrame int, points []sonar.Point) bool
}

// FrameCounter is told about each completed frame.
// *monitoring.PipelineMetrics satisfies it.
type FrameCounter interface {
	FrameRendered()
}

// Config contains configuration for Loop.
type Config struct {
	// Pipeline receives drained lines.
	Pipeline Pipeline
	// Source supplies lines; an empty poll is a normal frame.
	Source sonar.LineSource
	// Interval is the tick period (e.g. 100*time.Millisecond).
	Interval time.Duration
	// Saver is optional.
	Saver FrameSaver
	// Metrics is optional.
	Metrics FrameCounter
	// Clock is optional; if nil, uses the real clock.
	Clock timeutil.Clock
	// AfterFrame is optional and runs at the end of every frame.
	AfterFrame func(frame int, drained int)
}

// Loop runs the ingest tick until its context ends.
type Loop struct {
	cfg    Config
	clock  timeutil.Clock
	frames atomic.Int64

	mu      sync.Mutex
	running bool
}

// NewLoop creates a Loop.
func NewLoop(cfg Config) *Loop {
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Loop{cfg: cfg, clock: clock}
}

// Frames returns the number of frames run so far.
func (l *Loop) Frames() int {
	return int(l.frames.Load())
}

// Run blocks until ctx is cancelled. On the way out it writes the closing
// snapshot if at least one frame ran. Returns nil on clean shutdown.
func (l *Loop) Run(ctx context.Context) error {
	if l.cfg.Interval <= 0 {
		return ErrInvalidInterval
	}

	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	ticker := l.clock.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	monitoring.Logf("ingest loop started: interval=%v", l.cfg.Interval)

	for {
		select {
		case <-ctx.Done():
			frames := l.Frames()
			monitoring.Logf("ingest loop stopping after %d frames", frames)
			if l.cfg.Saver != nil {
				l.cfg.Saver.Final(frames, l.cfg.Pipeline.Snapshot())
			}
			return nil
		case <-ticker.C():
			l.step()
		}
	}
}

// step runs one frame.
func (l *Loop) step() {
	drained := l.cfg.Pipeline.Drain(l.cfg.Source)
	frame := int(l.frames.Add(1))

	if l.cfg.Metrics != nil {
		l.cfg.Metrics.FrameRendered()
	}
	if l.cfg.Saver != nil {
		l.cfg.Saver.Tick(frame, l.cfg.Pipeline.Snapshot())
	}
	if l.cfg.AfterFrame != nil {
		l.cfg.AfterFrame(frame, drained)
	}
}
