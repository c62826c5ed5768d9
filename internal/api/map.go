package api

import (
	"bytes"
	"fmt"
	"math"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/sonarmap/internal/httputil"
	"github.com/banshee-data/sonarmap/internal/sonar"
)

// showMap renders the current snapshot as an echarts scatter with the same
// bounds as the saved PNGs. The page reloads itself every s.refresh, rounded
// up to whole seconds.
func (s *Server) showMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	cfg := s.src.Config()
	snap := s.src.Snapshot()
	rangeM := float64(cfg.MaxSensorRangeMM) / 1000.0
	xMin, xMax, yMin, yMax := mapBounds(cfg)

	data := make([]opts.ScatterData, 0, len(snap))
	for _, p := range snap {
		data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Y}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Sonar Map", Width: "800px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("2D Sonar Map (Range: %.1fm, Filter: %dpts)", rangeM, cfg.FilterWindowSize),
			Subtitle: fmt.Sprintf("points=%d", len(data)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: xMin, Max: xMax, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: yMin, Max: yMax, Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("smoothed", data,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "red"}),
	)
	scatter.AddSeries("sensor", []opts.ScatterData{{Value: []interface{}{0, 0}}},
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "black"}),
	)

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	page := buf.Bytes()
	// meta refresh counts whole seconds, so sub-second intervals round up
	if s.refresh > 0 {
		secs := int(math.Ceil(s.refresh.Seconds()))
		meta := fmt.Sprintf("<head>\n<meta http-equiv=\"refresh\" content=\"%d\">", secs)
		page = bytes.Replace(page, []byte("<head>"), []byte(meta), 1)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// mapBounds returns the axis limits used by showMap.
func mapBounds(cfg sonar.Config) (xMin, xMax, yMin, yMax float64) {
	r := float64(cfg.MaxSensorRangeMM) / 1000.0
	return -r - 0.5, r + 0.5, -1, r + 0.5
}
