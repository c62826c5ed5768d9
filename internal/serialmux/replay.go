package serialmux

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/banshee-data/sonarmap/internal/fsutil"
	"github.com/banshee-data/sonarmap/internal/monitoring"
)

// ReplayPort is a SerialPorter that plays back recorded sensor lines, one per
// interval, looping at the end. Commands written to it are captured.
type ReplayPort struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu      sync.Mutex
	written bytes.Buffer

	done      chan struct{}
	closeOnce sync.Once
}

func (p *ReplayPort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *ReplayPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

// Written returns everything written to the port so far.
func (p *ReplayPort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func (p *ReplayPort) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.r.Close()
	})
	return nil
}

// NewReplaySerialMux creates a SerialMux whose port cycles through lines,
// emitting one every interval. An empty lines slice produces a silent port.
func NewReplaySerialMux(lines []string, interval time.Duration, opts ...Option) *SerialMux[*ReplayPort] {
	o := resolveOptions(opts)
	r, w := io.Pipe()
	port := &ReplayPort{r: r, w: w, done: make(chan struct{})}

	if len(lines) > 0 && interval > 0 {
		go func() {
			defer w.Close()
			ticker := o.clock.NewTicker(interval)
			defer ticker.Stop()
			for i := 0; ; i = (i + 1) % len(lines) {
				select {
				case <-port.done:
					return
				case <-ticker.C():
				}
				if _, err := io.WriteString(w, lines[i]+"\n"); err != nil {
					return
				}
			}
		}()
	}

	return NewSerialMux(port, opts...)
}

// LoadReplayLines reads a capture file of sensor lines. Blank lines and lines
// starting with '#' are skipped; every other line is kept verbatim, including
// ones the parser will reject.
func LoadReplayLines(fsys fsutil.FileSystem, path string) ([]string, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay file: %w", err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines = append(lines, strings.TrimRight(line, "\r"))
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("replay file %s contains no lines", path)
	}
	monitoring.Logf("loaded %d replay lines from %s", len(lines), path)
	return lines, nil
}
