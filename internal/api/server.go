package api

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/banshee-data/sonarmap/internal/db"
	"github.com/banshee-data/sonarmap/internal/httputil"
	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/banshee-data/sonarmap/internal/units"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

const (
	defaultSnapshotLimit = 50
	maxSnapshotLimit     = 1000
)

// Source is the read side of a running pipeline. *sonar.Pipeline satisfies it.
type Source interface {
	Snapshot() []sonar.Point
	Stats() sonar.Stats
	Config() sonar.Config
}

// Catalog lists saved snapshots. *db.DB satisfies it.
type Catalog interface {
	Snapshots(sessionID string, limit int) ([]db.SnapshotRecord, error)
}

type Server struct {
	src       Source
	catalog   Catalog
	gatherer  prometheus.Gatherer
	units     string
	sessionID string
	refresh   time.Duration
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithCatalog enables /api/snapshots.
func WithCatalog(c Catalog) ServerOption {
	return func(s *Server) { s.catalog = c }
}

// WithGatherer serves /metrics from g. Without it /metrics uses the default
// prometheus registry.
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(s *Server) { s.gatherer = g }
}

// WithUnits sets the default units for /api/points when the request does not
// name any.
func WithUnits(u string) ServerOption {
	return func(s *Server) { s.units = u }
}

// WithSessionID scopes /api/snapshots to a session unless the request
// overrides it.
func WithSessionID(id string) ServerOption {
	return func(s *Server) { s.sessionID = id }
}

// WithRefresh sets how often the /map page reloads itself.
func WithRefresh(d time.Duration) ServerOption {
	return func(s *Server) { s.refresh = d }
}

func NewServer(src Source, opts ...ServerOption) *Server {
	s := &Server{
		src:      src,
		gatherer: prometheus.DefaultGatherer,
		units:    units.Metres,
		refresh:  time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/points", s.listPoints)
	mux.HandleFunc("/api/stats", s.showStats)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/snapshots", s.listSnapshots)
	mux.HandleFunc("/map", s.showMap)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// PointsResponse is the body of GET /api/points.
type PointsResponse struct {
	Units  string        `json:"units"`
	Count  int           `json:"count"`
	Points []sonar.Point `json:"points"`
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	Stats   sonar.Stats   `json:"stats"`
	Summary sonar.Summary `json:"summary"`
}

// ConfigResponse is the body of GET /api/config.
type ConfigResponse struct {
	sonar.Config
	Units      string   `json:"units"`
	ValidUnits []string `json:"valid_units"`
}

func (s *Server) requestUnits(r *http.Request) (string, error) {
	u := r.URL.Query().Get("units")
	if u == "" {
		return s.units, nil
	}
	if !units.IsValid(u) {
		return "", fmt.Errorf("invalid 'units' parameter %q; valid units: %s", u, units.GetValidUnitsString())
	}
	return u, nil
}

func (s *Server) listPoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	u, err := s.requestUnits(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	snap := s.src.Snapshot()
	pts := make([]sonar.Point, len(snap))
	for i, p := range snap {
		pts[i] = sonar.Point{X: units.ConvertLength(p.X, u), Y: units.ConvertLength(p.Y, u)}
	}

	httputil.WriteJSONOK(w, PointsResponse{Units: u, Count: len(pts), Points: pts})
}

func (s *Server) showStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, StatsResponse{
		Stats:   s.src.Stats(),
		Summary: sonar.Summarize(s.src.Snapshot()),
	})
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	httputil.WriteJSONOK(w, ConfigResponse{
		Config:     s.src.Config(),
		Units:      s.units,
		ValidUnits: units.ValidUnits,
	})
}

func (s *Server) listSnapshots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if s.catalog == nil {
		httputil.NotFound(w, "snapshot catalog disabled")
		return
	}

	limit, err := httputil.QueryLimit(r, "limit", defaultSnapshotLimit, maxSnapshotLimit)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	session := s.sessionID
	if q := r.URL.Query().Get("session"); q != "" {
		session = q
	}

	records, err := s.catalog.Snapshots(session, limit)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to retrieve snapshots: %v", err))
		return
	}
	if records == nil {
		records = []db.SnapshotRecord{}
	}
	httputil.WriteJSONOK(w, records)
}
