package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/sonarmap/internal/sonar"
)

// SessionRecord is one sonarmap run.
type SessionRecord struct {
	ID        string       `json:"session_id"`
	Source    string       `json:"source"`
	Config    sonar.Config `json:"config"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   *time.Time   `json:"ended_at,omitempty"`
	Stats     sonar.Stats  `json:"stats"`
}

// SnapshotRecord is one saved map image.
type SnapshotRecord struct {
	ID         int64     `json:"snapshot_id"`
	SessionID  string    `json:"session_id"`
	Frame      int       `json:"frame"`
	Path       string    `json:"path"`
	PointCount int       `json:"point_count"`
	SavedAt    time.Time `json:"saved_at"`
}

// Session writes catalog rows for a single run.
type Session struct {
	db *DB
	id string
}

// StartSession records the start of a run reading from source (a device path
// or replay file) with the given pipeline constants.
func (db *DB) StartSession(source string, cfg sonar.Config, startedAt time.Time) (*Session, error) {
	id := uuid.NewString()
	_, err := db.Exec(`
		INSERT INTO sessions (
			session_id, source, max_sensor_range_mm, filter_window_size,
			max_display_points, started_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?)`,
		id, source, cfg.MaxSensorRangeMM, cfg.FilterWindowSize, cfg.MaxDisplayPoints, startedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return &Session{db: db, id: id}, nil
}

// ID returns the session's uuid.
func (s *Session) ID() string {
	return s.id
}

// RecordSnapshot adds a saved image to the session.
func (s *Session) RecordSnapshot(frame int, path string, points int, savedAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO snapshots (session_id, frame, path, point_count, saved_unix_nanos)
		VALUES (?, ?, ?, ?, ?)`,
		s.id, frame, path, points, savedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record snapshot: %w", err)
	}
	return nil
}

// End stores the final line counters and end time.
func (s *Session) End(stats sonar.Stats, endedAt time.Time) error {
	_, err := s.db.Exec(`
		UPDATE sessions SET
			ended_unix_nanos = ?, lines_total = ?, accepted_total = ?,
			malformed_total = ?, out_of_range_total = ?
		WHERE session_id = ?`,
		endedAt.UnixNano(), stats.Lines, stats.Accepted, stats.Malformed, stats.OutOfRange, s.id,
	)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// Sessions returns up to limit sessions, newest first.
func (db *DB) Sessions(limit int) ([]SessionRecord, error) {
	rows, err := db.Query(`
		SELECT session_id, source, max_sensor_range_mm, filter_window_size,
			max_display_points, started_unix_nanos, ended_unix_nanos,
			lines_total, accepted_total, malformed_total, out_of_range_total
		FROM sessions
		ORDER BY started_unix_nanos DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []SessionRecord
	for rows.Next() {
		var (
			rec     SessionRecord
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(
			&rec.ID, &rec.Source, &rec.Config.MaxSensorRangeMM, &rec.Config.FilterWindowSize,
			&rec.Config.MaxDisplayPoints, &started, &ended,
			&rec.Stats.Lines, &rec.Stats.Accepted, &rec.Stats.Malformed, &rec.Stats.OutOfRange,
		); err != nil {
			return nil, err
		}
		rec.StartedAt = time.Unix(0, started).UTC()
		if ended.Valid {
			t := time.Unix(0, ended.Int64).UTC()
			rec.EndedAt = &t
		}
		sessions = append(sessions, rec)
	}
	return sessions, rows.Err()
}

// Snapshots returns up to limit snapshots across all sessions, newest first.
// An empty sessionID matches every session.
func (db *DB) Snapshots(sessionID string, limit int) ([]SnapshotRecord, error) {
	rows, err := db.Query(`
		SELECT snapshot_id, session_id, frame, path, point_count, saved_unix_nanos
		FROM snapshots
		WHERE ? = '' OR session_id = ?
		ORDER BY saved_unix_nanos DESC, snapshot_id DESC
		LIMIT ?`, sessionID, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []SnapshotRecord
	for rows.Next() {
		var (
			rec   SnapshotRecord
			saved int64
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Frame, &rec.Path, &rec.PointCount, &saved); err != nil {
			return nil, err
		}
		rec.SavedAt = time.Unix(0, saved).UTC()
		snapshots = append(snapshots, rec)
	}
	return snapshots, rows.Err()
}
