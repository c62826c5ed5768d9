package sonar

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the spatial extent of a point set, in metres.
type Summary struct {
	Count     int     `json:"count"`
	CentroidX float64 `json:"centroid_x"`
	CentroidY float64 `json:"centroid_y"`
	SpreadX   float64 `json:"spread_x"`
	SpreadY   float64 `json:"spread_y"`
	MinRange  float64 `json:"min_range"`
	MaxRange  float64 `json:"max_range"`
	MeanRange float64 `json:"mean_range"`
}

// Summarize computes centroid, per-axis standard deviation and range
// statistics for points. Spread is zero for fewer than two points.
func Summarize(points []Point) Summary {
	s := Summary{Count: len(points)}
	if len(points) == 0 {
		return s
	}

	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	rs := make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i] = p.X, p.Y
		rs[i] = math.Hypot(p.X, p.Y)
	}

	s.CentroidX = stat.Mean(xs, nil)
	s.CentroidY = stat.Mean(ys, nil)
	if len(points) > 1 {
		s.SpreadX = stat.StdDev(xs, nil)
		s.SpreadY = stat.StdDev(ys, nil)
	}
	s.MinRange = floats.Min(rs)
	s.MaxRange = floats.Max(rs)
	s.MeanRange = stat.Mean(rs, nil)
	return s
}
