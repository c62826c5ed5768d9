package snapshot

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/banshee-data/sonarmap/internal/fsutil"
	"github.com/banshee-data/sonarmap/internal/monitoring"
	"github.com/banshee-data/sonarmap/internal/security"
	"github.com/banshee-data/sonarmap/internal/sonar"
	"github.com/banshee-data/sonarmap/internal/timeutil"
)

// FileNameFormat names snapshot images by frame number.
const FileNameFormat = "sonar_map_frame_%04d.png"

// Recorder is told about every snapshot that was written successfully.
type Recorder interface {
	RecordSnapshot(frame int, path string, points int, savedAt time.Time) error
}

// Result describes one save attempt.
type Result struct {
	Frame  int
	Path   string
	Points int
	Err    error
}

// Saver writes PNG snapshots of the map on a frame schedule. Failures are
// logged and reported through the result hook; they never stop the caller.
type Saver struct {
	renderer *Renderer
	dir      string
	every    int

	fs       fsutil.FileSystem
	validate func(path, dir string) error
	clock    timeutil.Clock
	recorder Recorder
	onResult func(Result)

	mu       sync.Mutex
	dirReady bool
}

// SaverOption configures a Saver.
type SaverOption func(*Saver)

// WithFileSystem writes snapshots to fsys. Paths are then validated
// lexically, since fsys need not be backed by disk.
func WithFileSystem(fsys fsutil.FileSystem) SaverOption {
	return func(s *Saver) {
		s.fs = fsys
		s.validate = security.ValidatePathLexically
	}
}

// WithRecorder records each written snapshot, e.g. in the catalog database.
func WithRecorder(r Recorder) SaverOption {
	return func(s *Saver) { s.recorder = r }
}

// WithResultHook calls fn after every save attempt.
func WithResultHook(fn func(Result)) SaverOption {
	return func(s *Saver) { s.onResult = fn }
}

// WithSaverClock sets the clock used for catalog timestamps.
func WithSaverClock(c timeutil.Clock) SaverOption {
	return func(s *Saver) { s.clock = c }
}

// NewSaver returns a Saver writing into dir every `every` frames. every <= 0
// disables periodic saves; Final still writes.
func NewSaver(r *Renderer, dir string, every int, opts ...SaverOption) *Saver {
	s := &Saver{
		renderer: r,
		dir:      dir,
		every:    every,
		fs:       fsutil.OSFileSystem{},
		validate: security.ValidatePathWithinDirectory,
		clock:    timeutil.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns where the snapshot for frame is written.
func (s *Saver) Path(frame int) string {
	return filepath.Join(s.dir, fmt.Sprintf(FileNameFormat, frame))
}

// Due reports whether frame is on the periodic save schedule.
func (s *Saver) Due(frame int) bool {
	return s.every > 0 && frame > 0 && frame%s.every == 0
}

// Tick saves a snapshot when frame is due. It returns true if a save was
// attempted.
func (s *Saver) Tick(frame int, points []sonar.Point) bool {
	if !s.Due(frame) {
		return false
	}
	s.save(frame, points)
	return true
}

// Final writes the closing snapshot after the last frame, numbered one past
// it. Nothing is written if no frame ran.
func (s *Saver) Final(lastFrame int, points []sonar.Point) bool {
	if lastFrame <= 0 {
		return false
	}
	s.save(lastFrame+1, points)
	return true
}

func (s *Saver) save(frame int, points []sonar.Point) {
	path, err := s.Save(frame, points)
	if err != nil {
		monitoring.Logf("Error saving plot %s: %v", path, err)
	}
	if s.onResult != nil {
		s.onResult(Result{Frame: frame, Path: path, Points: len(points), Err: err})
	}
}

// Save renders points and writes them as the snapshot for frame, returning the
// file path.
func (s *Saver) Save(frame int, points []sonar.Point) (string, error) {
	path := s.Path(frame)

	if err := s.ensureDir(); err != nil {
		return path, err
	}
	if err := s.validate(path, s.dir); err != nil {
		return path, err
	}

	f, err := s.fs.Create(path)
	if err != nil {
		return path, fmt.Errorf("failed to create snapshot file: %w", err)
	}
	renderErr := s.renderer.Render(f, points)
	closeErr := f.Close()
	if err := errors.Join(renderErr, closeErr); err != nil {
		return path, err
	}

	if s.recorder != nil {
		if err := s.recorder.RecordSnapshot(frame, path, len(points), s.clock.Now()); err != nil {
			// the image is on disk; only the catalog entry is missing
			monitoring.Logf("failed to record snapshot %s: %v", path, err)
		}
	}
	return path, nil
}

func (s *Saver) ensureDir() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirReady {
		return nil
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	s.dirReady = true
	return nil
}
