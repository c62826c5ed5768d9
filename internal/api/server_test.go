package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sonarmap/internal/db"
	"github.com/banshee-data/sonarmap/internal/monitoring"
	"github.com/banshee-data/sonarmap/internal/sonar"
)

type fakeSource struct {
	points []sonar.Point
	stats  sonar.Stats
	cfg    sonar.Config
}

func (f *fakeSource) Snapshot() []sonar.Point { return append([]sonar.Point(nil), f.points...) }
func (f *fakeSource) Stats() sonar.Stats      { return f.stats }
func (f *fakeSource) Config() sonar.Config    { return f.cfg }

type fakeCatalog struct {
	records   []db.SnapshotRecord
	err       error
	gotID     string
	gotLimit  int
	callCount int
}

func (f *fakeCatalog) Snapshots(sessionID string, limit int) ([]db.SnapshotRecord, error) {
	f.callCount++
	f.gotID = sessionID
	f.gotLimit = limit
	return f.records, f.err
}

func newTestSource() *fakeSource {
	return &fakeSource{
		points: []sonar.Point{{X: 1, Y: 0}, {X: 0, Y: 2}},
		stats:  sonar.Stats{Lines: 5, Accepted: 2, Malformed: 2, OutOfRange: 1},
		cfg:    sonar.DefaultConfig(),
	}
}

func doGet(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListPoints(t *testing.T) {
	s := NewServer(newTestSource())
	mux := s.ServeMux()

	tests := []struct {
		name   string
		target string
		units  string
		first  sonar.Point
	}{
		{"default metres", "/api/points", "m", sonar.Point{X: 1, Y: 0}},
		{"centimetres", "/api/points?units=cm", "cm", sonar.Point{X: 100, Y: 0}},
		{"millimetres", "/api/points?units=mm", "mm", sonar.Point{X: 1000, Y: 0}},
		{"feet", "/api/points?units=ft", "ft", sonar.Point{X: 3.280839895, Y: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(t, mux, tt.target)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp PointsResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.units, resp.Units)
			assert.Equal(t, 2, resp.Count)
			require.Len(t, resp.Points, 2)
			assert.InDelta(t, tt.first.X, resp.Points[0].X, 1e-9)
			assert.InDelta(t, tt.first.Y, resp.Points[0].Y, 1e-9)
		})
	}
}

func TestListPoints_InvalidUnits(t *testing.T) {
	s := NewServer(newTestSource())
	rec := doGet(t, s.ServeMux(), "/api/points?units=furlong")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Contains(t, resp["error"], "furlong")
	assert.Contains(t, resp["error"], "m, cm, mm, ft")
}

func TestListPoints_DefaultUnitsOption(t *testing.T) {
	s := NewServer(newTestSource(), WithUnits("mm"))
	rec := doGet(t, s.ServeMux(), "/api/points")

	var resp PointsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "mm", resp.Units)
	assert.InDelta(t, 2000, resp.Points[1].Y, 1e-9)
}

func TestListPoints_EmptySnapshot(t *testing.T) {
	s := NewServer(&fakeSource{cfg: sonar.DefaultConfig()})
	rec := doGet(t, s.ServeMux(), "/api/points")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"points":[]`)
}

func TestMethodNotAllowed(t *testing.T) {
	s := NewServer(newTestSource(), WithCatalog(&fakeCatalog{}))
	mux := s.ServeMux()

	for _, path := range []string{"/api/points", "/api/stats", "/api/config", "/api/snapshots", "/map"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, nil)
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		})
	}
}

func TestShowStats(t *testing.T) {
	s := NewServer(newTestSource())
	rec := doGet(t, s.ServeMux(), "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, sonar.Stats{Lines: 5, Accepted: 2, Malformed: 2, OutOfRange: 1}, resp.Stats)
	assert.Equal(t, 2, resp.Summary.Count)
	assert.InDelta(t, 0.5, resp.Summary.CentroidX, 1e-9)
	assert.InDelta(t, 1.0, resp.Summary.CentroidY, 1e-9)
	assert.InDelta(t, 2.0, resp.Summary.MaxRange, 1e-9)
}

func TestShowConfig(t *testing.T) {
	s := NewServer(newTestSource(), WithUnits("cm"))
	rec := doGet(t, s.ServeMux(), "/api/config")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.EqualValues(t, 6000, resp["max_sensor_range_mm"])
	assert.EqualValues(t, 5, resp["filter_window_size"])
	assert.EqualValues(t, 500, resp["max_display_points"])
	assert.Equal(t, "cm", resp["units"])
	assert.Len(t, resp["valid_units"], 4)
}

func TestListSnapshots(t *testing.T) {
	saved := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cat := &fakeCatalog{records: []db.SnapshotRecord{
		{ID: 2, SessionID: "abc", Frame: 40, Path: "plots/sonar_map_frame_0040.png", PointCount: 12, SavedAt: saved},
	}}
	s := NewServer(newTestSource(), WithCatalog(cat), WithSessionID("abc"))
	mux := s.ServeMux()

	t.Run("defaults", func(t *testing.T) {
		rec := doGet(t, mux, "/api/snapshots")
		require.Equal(t, http.StatusOK, rec.Code)

		var got []db.SnapshotRecord
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		require.Len(t, got, 1)
		assert.Equal(t, 40, got[0].Frame)
		assert.Equal(t, "abc", cat.gotID)
		assert.Equal(t, defaultSnapshotLimit, cat.gotLimit)
	})

	t.Run("overrides", func(t *testing.T) {
		rec := doGet(t, mux, "/api/snapshots?limit=5000&session=other")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "other", cat.gotID)
		assert.Equal(t, maxSnapshotLimit, cat.gotLimit)
	})

	t.Run("bad limit", func(t *testing.T) {
		before := cat.callCount
		for _, l := range []string{"0", "-1", "ten"} {
			rec := doGet(t, mux, "/api/snapshots?limit="+l)
			assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", l)
		}
		assert.Equal(t, before, cat.callCount)
	})
}

func TestListSnapshots_Empty(t *testing.T) {
	s := NewServer(newTestSource(), WithCatalog(&fakeCatalog{}))
	rec := doGet(t, s.ServeMux(), "/api/snapshots")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListSnapshots_Errors(t *testing.T) {
	t.Run("catalog disabled", func(t *testing.T) {
		s := NewServer(newTestSource())
		rec := doGet(t, s.ServeMux(), "/api/snapshots")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("query failure", func(t *testing.T) {
		s := NewServer(newTestSource(), WithCatalog(&fakeCatalog{err: errors.New("disk gone")}))
		rec := doGet(t, s.ServeMux(), "/api/snapshots")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "disk gone")
	})
}

func TestListSnapshots_RealCatalog(t *testing.T) {
	database, err := db.NewDB(t.TempDir() + "/sonar.db")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	sess, err := database.StartSession("replay", sonar.DefaultConfig(), time.Unix(100, 0))
	require.NoError(t, err)
	require.NoError(t, sess.RecordSnapshot(20, "plots/sonar_map_frame_0020.png", 7, time.Unix(102, 0)))

	s := NewServer(newTestSource(), WithCatalog(database), WithSessionID(sess.ID()))
	rec := doGet(t, s.ServeMux(), "/api/snapshots")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []db.SnapshotRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, sess.ID(), got[0].SessionID)
	assert.Equal(t, 7, got[0].PointCount)
}

func TestShowMap(t *testing.T) {
	s := NewServer(newTestSource(), WithRefresh(2*time.Second))
	rec := doGet(t, s.ServeMux(), "/map")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "2D Sonar Map (Range: 6.0m, Filter: 5pts)")
	assert.Contains(t, body, `<meta http-equiv="refresh" content="2">`)
	assert.Contains(t, body, "points=2")
}

func TestShowMap_SubSecondRefreshRoundsUp(t *testing.T) {
	s := NewServer(newTestSource(), WithRefresh(100*time.Millisecond))
	rec := doGet(t, s.ServeMux(), "/map")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<meta http-equiv="refresh" content="1">`)
}

func TestShowMap_NoRefresh(t *testing.T) {
	s := NewServer(newTestSource(), WithRefresh(0))
	rec := doGet(t, s.ServeMux(), "/map")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "http-equiv=\"refresh\"")
}

func TestMapBounds(t *testing.T) {
	xMin, xMax, yMin, yMax := mapBounds(sonar.Config{MaxSensorRangeMM: 6000})
	assert.Equal(t, -6.5, xMin)
	assert.Equal(t, 6.5, xMax)
	assert.Equal(t, -1.0, yMin)
	assert.Equal(t, 6.5, yMax)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewPipelineMetrics(reg)

	p, err := sonar.New(sonar.DefaultConfig(), sonar.WithObserver(metrics))
	require.NoError(t, err)
	_, _ = p.ProcessLine("0,1000")
	_, _ = p.ProcessLine("junk")

	srv := httptest.NewServer(NewServer(p, WithGatherer(reg)).ServeMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `sonarmap_pipeline_lines_total{outcome="accepted"} 1`)
	assert.Contains(t, string(body), `sonarmap_pipeline_lines_total{outcome="malformed"} 1`)
}

func TestLoggingMiddleware(t *testing.T) {
	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := doGet(t, h, "/anything")
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestStatusCodeColor(t *testing.T) {
	assert.Equal(t, colorBoldGreen+"200"+colorReset, statusCodeColor(200))
	assert.Equal(t, colorYellow+"304"+colorReset, statusCodeColor(304))
	assert.Equal(t, colorBoldRed+"404"+colorReset, statusCodeColor(404))
	assert.Equal(t, colorBoldRed+"500"+colorReset, statusCodeColor(500))
	assert.Equal(t, "100", statusCodeColor(100))
}

func TestLoggingResponseWriter_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	lrw := &loggingResponseWriter{rec, http.StatusOK}
	lrw.Flush()
	assert.True(t, rec.Flushed)
}
