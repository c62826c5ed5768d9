package monitoring

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sonarmap/internal/sonar"
)

func TestRejectionLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	p, err := sonar.New(sonar.DefaultConfig(), sonar.WithObserver(RejectionLogger()))
	require.NoError(t, err)

	for _, line := range []string{"90,1000", "abc", "0,9000"} {
		_, _ = p.ProcessLine(line)
	}

	require.Len(t, lines, 2, "accepted lines are not logged")
	assert.Contains(t, lines[0], `dropped line "abc" (malformed)`)
	assert.Contains(t, lines[1], `dropped line "0,9000" (out_of_range)`)
}
