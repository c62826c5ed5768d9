package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/banshee-data/sonarmap/internal/httputil"
	"github.com/banshee-data/sonarmap/internal/sonar"
)

// Frame is everything one redraw needs.
type Frame struct {
	Points []sonar.Point
	Stats  sonar.Stats
	Config sonar.Config
}

// FrameSource supplies frames to the model.
type FrameSource interface {
	Frame(ctx context.Context) (Frame, error)
	// Name labels the source in the status bar.
	Name() string
}

// PipelineView is the read side of a pipeline. *sonar.Pipeline satisfies it.
type PipelineView interface {
	Snapshot() []sonar.Point
	Stats() sonar.Stats
	Config() sonar.Config
}

// LocalSource reads frames from an in-process pipeline.
type LocalSource struct {
	view  PipelineView
	label string
}

// NewLocalSource wraps view. label names the line source, e.g. the serial
// port or replay file.
func NewLocalSource(view PipelineView, label string) *LocalSource {
	return &LocalSource{view: view, label: label}
}

func (s *LocalSource) Frame(context.Context) (Frame, error) {
	return Frame{Points: s.view.Snapshot(), Stats: s.view.Stats(), Config: s.view.Config()}, nil
}

func (s *LocalSource) Name() string { return s.label }

// RemoteSource reads frames from another instance's HTTP API.
type RemoteSource struct {
	client  httputil.HTTPClient
	baseURL string
}

// NewRemoteSource reads from the API served at baseURL.
func NewRemoteSource(client httputil.HTTPClient, baseURL string) *RemoteSource {
	return &RemoteSource{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *RemoteSource) Name() string { return s.baseURL }

func (s *RemoteSource) Frame(ctx context.Context) (Frame, error) {
	var (
		points struct {
			Points []sonar.Point `json:"points"`
		}
		stats struct {
			Stats sonar.Stats `json:"stats"`
		}
		cfg sonar.Config
	)

	if err := httputil.GetJSON(ctx, s.client, s.baseURL+"/api/points?units=m", &points); err != nil {
		return Frame{}, fmt.Errorf("fetch points: %w", err)
	}
	if err := httputil.GetJSON(ctx, s.client, s.baseURL+"/api/stats", &stats); err != nil {
		return Frame{}, fmt.Errorf("fetch stats: %w", err)
	}
	if err := httputil.GetJSON(ctx, s.client, s.baseURL+"/api/config", &cfg); err != nil {
		return Frame{}, fmt.Errorf("fetch config: %w", err)
	}
	return Frame{Points: points.Points, Stats: stats.Stats, Config: cfg}, nil
}
