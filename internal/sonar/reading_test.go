package sonar

import (
	"errors"
	"math"
	"testing"
)

func TestParseLine_Valid(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Reading
	}{
		{"plain", "45,1200", Reading{Angle: 45, Distance: 1200}},
		{"zero", "0,0", Reading{}},
		{"trailing newline", "90,1000\r\n", Reading{Angle: 90, Distance: 1000}},
		{"surrounding whitespace", "  120,350  ", Reading{Angle: 120, Distance: 350}},
		{"whitespace inside fields", "10 , 20", Reading{Angle: 10, Distance: 20}},
		{"negative angle", "-30,500", Reading{Angle: -30, Distance: 500}},
		{"negative distance parses", "30,-1", Reading{Angle: 30, Distance: -1}},
		{"explicit plus sign", "+15,+250", Reading{Angle: 15, Distance: 250}},
		{"angle beyond a turn", "400,100", Reading{Angle: 400, Distance: 100}},
		{"angle beyond int folds into a turn", "99999999999999999999,100", Reading{Angle: 279, Distance: 100}},
		{"negative angle beyond int folds into a turn", "-99999999999999999999,100", Reading{Angle: 81, Distance: 100}},
		{"distance beyond int saturates", "0,99999999999999999999", Reading{Angle: 0, Distance: math.MaxInt}},
		{"negative distance beyond int saturates", "0,-99999999999999999999", Reading{Angle: 0, Distance: math.MinInt}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if err != nil {
				t.Fatalf("ParseLine(%q) returned error: %v", tt.line, err)
			}
			if got != tt.want {
				t.Errorf("ParseLine(%q) = %+v, want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseLine_Rejections(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"whitespace only", "   \t "},
		{"no comma", "abc"},
		{"single integer", "42"},
		{"three fields", "1,2,3"},
		{"float angle", "1.5,2"},
		{"float distance", "1,2.0"},
		{"empty angle", ",100"},
		{"empty distance", "100,"},
		{"text distance", "10,far"},
		{"boot banner", "Sonar ready"},
		{"trailing comma", "1,2,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLine(tt.line)
			if err == nil {
				t.Fatalf("ParseLine(%q) = %+v, want rejection", tt.line, got)
			}
			if !errors.Is(err, ErrMalformedLine) {
				t.Errorf("ParseLine(%q) error = %v, want ErrMalformedLine", tt.line, err)
			}
			if got != (Reading{}) {
				t.Errorf("ParseLine(%q) produced partial reading %+v", tt.line, got)
			}
		})
	}
}

func TestGate_Check(t *testing.T) {
	g := Gate{MaxRangeMM: 6000}

	tests := []struct {
		name     string
		distance int
		wantErr  bool
	}{
		{"zero is accepted", 0, false},
		{"mid range", 2500, false},
		{"inclusive upper bound", 6000, false},
		{"one past upper bound", 6001, true},
		{"negative", -1, true},
		{"far beyond range", 100000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Check(Reading{Angle: 10, Distance: tt.distance})
			if tt.wantErr {
				if !errors.Is(err, ErrOutOfRange) {
					t.Errorf("Check(%d) error = %v, want ErrOutOfRange", tt.distance, err)
				}
				return
			}
			if err != nil {
				t.Errorf("Check(%d) returned unexpected error: %v", tt.distance, err)
			}
		})
	}
}

func TestGate_IgnoresAngle(t *testing.T) {
	g := Gate{MaxRangeMM: 1000}
	for _, angle := range []int{-720, -1, 0, 359, 360, 100000} {
		if err := g.Check(Reading{Angle: angle, Distance: 500}); err != nil {
			t.Errorf("Check with angle %d returned error: %v", angle, err)
		}
	}
}

func TestIsRejection(t *testing.T) {
	_, malformed := ParseLine("x")
	outOfRange := Gate{MaxRangeMM: 1}.Check(Reading{Distance: 2})

	if !IsRejection(malformed) {
		t.Error("malformed line error should be a rejection")
	}
	if !IsRejection(outOfRange) {
		t.Error("out of range error should be a rejection")
	}
	if IsRejection(errors.New("serial port closed")) {
		t.Error("unrelated error should not be a rejection")
	}
	if IsRejection(nil) {
		t.Error("nil should not be a rejection")
	}
}
