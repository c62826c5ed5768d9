package sonar

import (
	"math"
	"testing"
)

func TestSummarize_Empty(t *testing.T) {
	if got := Summarize(nil); got != (Summary{}) {
		t.Errorf("Summarize(nil) = %+v, want zero value", got)
	}
}

func TestSummarize_SinglePoint(t *testing.T) {
	got := Summarize([]Point{{X: 3, Y: 4}})
	want := Summary{Count: 1, CentroidX: 3, CentroidY: 4, MinRange: 5, MaxRange: 5, MeanRange: 5}
	if got != want {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}
}

func TestSummarize_Square(t *testing.T) {
	pts := []Point{{X: 1, Y: 1}, {X: -1, Y: 1}, {X: -1, Y: -1}, {X: 1, Y: -1}}
	got := Summarize(pts)

	if got.Count != 4 {
		t.Errorf("Count = %d, want 4", got.Count)
	}
	if math.Abs(got.CentroidX) > eps || math.Abs(got.CentroidY) > eps {
		t.Errorf("centroid = (%f, %f), want origin", got.CentroidX, got.CentroidY)
	}
	// sample standard deviation of [1 -1 -1 1] is sqrt(4/3)
	wantSpread := math.Sqrt(4.0 / 3.0)
	if math.Abs(got.SpreadX-wantSpread) > eps || math.Abs(got.SpreadY-wantSpread) > eps {
		t.Errorf("spread = (%f, %f), want %f", got.SpreadX, got.SpreadY, wantSpread)
	}
	if math.Abs(got.MinRange-math.Sqrt2) > eps || math.Abs(got.MaxRange-math.Sqrt2) > eps {
		t.Errorf("range = [%f, %f], want sqrt2", got.MinRange, got.MaxRange)
	}
}

func TestSummarize_RangeExtremes(t *testing.T) {
	got := Summarize([]Point{ToCartesian(0, 500), ToCartesian(90, 6000), ToCartesian(200, 2500)})
	if math.Abs(got.MinRange-0.5) > eps {
		t.Errorf("MinRange = %f, want 0.5", got.MinRange)
	}
	if math.Abs(got.MaxRange-6.0) > eps {
		t.Errorf("MaxRange = %f, want 6", got.MaxRange)
	}
	if math.Abs(got.MeanRange-3.0) > eps {
		t.Errorf("MeanRange = %f, want 3", got.MeanRange)
	}
}
