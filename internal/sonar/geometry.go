package sonar

import (
	"math"

	"github.com/banshee-data/sonarmap/internal/units"
)

// Point is a planar position in metres with the sensor at the origin.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToCartesian converts a polar sensor reading to a point in metres.
func ToCartesian(angleDeg, distanceMM int) Point {
	d := units.MillimetresToMetres(distanceMM)
	theta := units.DegreesToRadians(angleDeg)
	return Point{
		X: d * math.Cos(theta),
		Y: d * math.Sin(theta),
	}
}

// Point converts the reading with ToCartesian.
func (r Reading) Point() Point {
	return ToCartesian(r.Angle, r.Distance)
}
