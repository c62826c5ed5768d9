package ingest

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sonarmap/internal/fsutil"
	"github.com/banshee-data/sonarmap/internal/monitoring"
	"github.com/banshee-data/sonarmap/internal/snapshot"
	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/banshee-data/sonarmap/internal/testutil"
	"github.com/banshee-data/sonarmap/internal/timeutil"
)

// queueSource hands out one batch of lines per poll.
type queueSource struct {
	mu      sync.Mutex
	batches [][]string
}

func (q *queueSource) Poll() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.batches) == 0 {
		return nil
	}
	b := q.batches[0]
	q.batches = q.batches[1:]
	return b
}

type frameResult struct {
	frame   int
	drained int
}

func TestLoop_InvalidInterval(t *testing.T) {
	l := NewLoop(Config{Interval: 0})
	assert.ErrorIs(t, l.Run(context.Background()), ErrInvalidInterval)
}

func TestLoop_FramesAndSnapshots(t *testing.T) {
	testutil.MuteLogs(t)

	p, err := sonar.New(sonar.Config{MaxSensorRangeMM: 6000, FilterWindowSize: 3, MaxDisplayPoints: 5})
	require.NoError(t, err)

	src := &queueSource{batches: [][]string{
		{"0,1000", "0,2000"},
		{},
		{"0,3000", "junk", "0,9000"},
		{"0,4000"},
	}}

	fsys := fsutil.NewMemoryFileSystem()
	var (
		resultsMu sync.Mutex
		results   []snapshot.Result
	)
	saver := snapshot.NewSaver(snapshot.NewRenderer(p.Config()), "plots", 2,
		snapshot.WithFileSystem(fsys),
		snapshot.WithResultHook(func(r snapshot.Result) {
			resultsMu.Lock()
			results = append(results, r)
			resultsMu.Unlock()
		}))

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewPipelineMetrics(reg)
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	frames := make(chan frameResult, 16)

	l := NewLoop(Config{
		Pipeline: p,
		Source:   src,
		Interval: 100 * time.Millisecond,
		Saver:    saver,
		Metrics:  metrics,
		Clock:    clock,
		AfterFrame: func(frame, drained int) {
			frames <- frameResult{frame, drained}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	select {
	case <-clock.TickerCreated():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not start its ticker")
	}

	var got []frameResult
	for i := 0; i < 5; i++ {
		clock.Advance(100 * time.Millisecond)
		select {
		case fr := <-frames:
			got = append(got, fr)
		case <-time.After(2 * time.Second):
			t.Fatalf("frame %d did not run", i+1)
		}
	}

	assert.Equal(t, []frameResult{{1, 2}, {2, 0}, {3, 3}, {4, 1}, {5, 0}}, got)
	assert.Equal(t, 5, l.Frames())
	require.NoError(t, promtestutil.GatherAndCompare(reg, strings.NewReader(`
# HELP sonarmap_render_frames_total Total number of render frames driven by the ingest loop.
# TYPE sonarmap_render_frames_total counter
sonarmap_render_frames_total 5
`), "sonarmap_render_frames_total"))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop")
	}

	// Periodic saves at frames 2 and 4, closing save one past the last frame.
	assert.Equal(t, []string{
		"plots/sonar_map_frame_0002.png",
		"plots/sonar_map_frame_0004.png",
		"plots/sonar_map_frame_0006.png",
	}, fsys.Files())

	resultsMu.Lock()
	defer resultsMu.Unlock()
	require.Len(t, results, 3)
	assert.Equal(t, 2, results[0].Points)
	assert.Equal(t, 4, results[2].Points)
	for _, r := range results {
		assert.NoError(t, r.Err)
	}

	xs := make([]float64, 0, 4)
	for _, pt := range p.Snapshot() {
		xs = append(xs, pt.X)
	}
	assert.InDeltaSlice(t, []float64{1, 2, 2, 3}, xs, 1e-9)
}

func TestLoop_NoFramesNoFinalSnapshot(t *testing.T) {
	testutil.MuteLogs(t)

	p, err := sonar.New(sonar.DefaultConfig())
	require.NoError(t, err)
	fsys := fsutil.NewMemoryFileSystem()
	saver := snapshot.NewSaver(snapshot.NewRenderer(p.Config()), "plots", 20, snapshot.WithFileSystem(fsys))
	clock := timeutil.NewMockClock(time.Unix(0, 0))

	l := NewLoop(Config{Pipeline: p, Source: &queueSource{}, Interval: time.Second, Saver: saver, Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, l.Run(ctx))

	assert.Equal(t, 0, l.Frames())
	assert.Empty(t, fsys.Files())
}

func TestLoop_OptionalCollaborators(t *testing.T) {
	testutil.MuteLogs(t)

	p, err := sonar.New(sonar.DefaultConfig())
	require.NoError(t, err)
	clock := timeutil.NewMockClock(time.Unix(0, 0))
	frames := make(chan int, 4)

	l := NewLoop(Config{
		Pipeline:   p,
		Source:     &queueSource{batches: [][]string{{"45,1000"}}},
		Interval:   time.Second,
		Clock:      clock,
		AfterFrame: func(frame, _ int) { frames <- frame },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	<-clock.TickerCreated()
	clock.Advance(time.Second)
	assert.Equal(t, 1, <-frames)

	cancel()
	require.NoError(t, <-done)
	assert.Len(t, p.Snapshot(), 1)
}
