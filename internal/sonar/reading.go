package sonar

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

var (
	// ErrMalformedLine reports a line that is not exactly two integer fields.
	ErrMalformedLine = errors.New("malformed line")
	// ErrOutOfRange reports a reading whose distance is outside the sensor limits.
	ErrOutOfRange = errors.New("reading out of range")
)

// Reading is one angle/distance pair reported by the sensor.
type Reading struct {
	Angle    int `json:"angle_deg"`
	Distance int `json:"distance_mm"`
}

// ParseLine converts one line of sensor output into a Reading. The line is
// trimmed and must contain exactly two comma separated base-10 integers.
// Every other shape is rejected with an error wrapping ErrMalformedLine.
//
// Integers too large for int are still integers: an oversized angle is folded
// into [0, 360) and an oversized distance saturates at math.MaxInt or
// math.MinInt, so the gate rejects it as out of range.
func ParseLine(line string) (Reading, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Reading{}, fmt.Errorf("%w: empty line", ErrMalformedLine)
	}

	fields := strings.Split(line, ",")
	if len(fields) != 2 {
		return Reading{}, fmt.Errorf("%w: expected 2 fields, got %d", ErrMalformedLine, len(fields))
	}

	angle, overflowed, err := parseInt(fields[0])
	if err != nil {
		return Reading{}, fmt.Errorf("%w: angle %q is not an integer", ErrMalformedLine, fields[0])
	}
	if overflowed {
		angle = foldAngle(fields[0])
	}
	distance, _, err := parseInt(fields[1])
	if err != nil {
		return Reading{}, fmt.Errorf("%w: distance %q is not an integer", ErrMalformedLine, fields[1])
	}

	return Reading{Angle: angle, Distance: distance}, nil
}

// parseInt parses one trimmed field. Values beyond the int range come back
// saturated with overflowed set.
func parseInt(field string) (n int, overflowed bool, err error) {
	n, err = strconv.Atoi(strings.TrimSpace(field))
	if errors.Is(err, strconv.ErrRange) {
		return n, true, nil
	}
	return n, false, err
}

// foldAngle reduces an integer field too large for int to degrees in [0, 360).
func foldAngle(field string) int {
	b, ok := new(big.Int).SetString(strings.TrimSpace(field), 10)
	if !ok {
		return 0
	}
	return int(b.Mod(b, big.NewInt(360)).Int64())
}

// Gate range-checks readings before they enter geometry.
type Gate struct {
	MaxRangeMM int
}

// Check accepts r iff 0 <= r.Distance <= MaxRangeMM. The angle is not checked.
func (g Gate) Check(r Reading) error {
	if r.Distance < 0 || r.Distance > g.MaxRangeMM {
		return fmt.Errorf("%w: distance %d mm outside [0, %d]", ErrOutOfRange, r.Distance, g.MaxRangeMM)
	}
	return nil
}
