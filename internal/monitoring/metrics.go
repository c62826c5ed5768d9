package monitoring

import (
	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sonarmap"

// PipelineMetrics exports pipeline and snapshot activity to Prometheus. It
// implements sonar.Observer.
type PipelineMetrics struct {
	lines         *prometheus.CounterVec
	displayPoints prometheus.Gauge
	frames        prometheus.Counter
	snapshots     *prometheus.CounterVec
}

// NewPipelineMetrics creates the collectors and registers them with reg. A nil
// reg leaves them unregistered, which is convenient in tests.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		lines: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "lines_total",
				Help:      "Total number of sensor lines processed, by outcome.",
			}, []string{"outcome"}),
		displayPoints: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "display_points",
				Help:      "Number of smoothed points currently held for display.",
			}),
		frames: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "render",
				Name:      "frames_total",
				Help:      "Total number of render frames driven by the ingest loop.",
			}),
		snapshots: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "snapshot",
				Name:      "saved_total",
				Help:      "Total number of map snapshot images written, by result.",
			}, []string{"result"}),
	}

	// pre-create label values so they export as zero before the first event
	for _, o := range []sonar.Outcome{sonar.OutcomeAccepted, sonar.OutcomeMalformed, sonar.OutcomeOutOfRange} {
		m.lines.WithLabelValues(o.String())
	}
	m.snapshots.WithLabelValues("ok")
	m.snapshots.WithLabelValues("error")

	if reg != nil {
		reg.MustRegister(m.lines, m.displayPoints, m.frames, m.snapshots)
	}
	return m
}

// Observe implements sonar.Observer.
func (m *PipelineMetrics) Observe(e sonar.Event) {
	m.lines.WithLabelValues(e.Outcome.String()).Inc()
	if e.Outcome == sonar.OutcomeAccepted {
		m.displayPoints.Set(float64(e.DisplayLen))
	}
}

// FrameRendered counts one ingest/render frame.
func (m *PipelineMetrics) FrameRendered() {
	m.frames.Inc()
}

// SnapshotSaved counts a snapshot write attempt.
func (m *PipelineMetrics) SnapshotSaved(err error) {
	if err != nil {
		m.snapshots.WithLabelValues("error").Inc()
		return
	}
	m.snapshots.WithLabelValues("ok").Inc()
}
