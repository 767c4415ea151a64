package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sadopc/preptrack/internal/model"
	"github.com/sadopc/preptrack/internal/timespan"
)

// StartTracking opens a session for the task. At most one session per task
// may be open.
func (s *Store) StartTracking(taskID string) (*model.TrackingStatus, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin start: %w", err)
	}
	defer tx.Rollback()

	if err := taskExists(tx, taskID); err != nil {
		return nil, err
	}
	var active int
	if err := tx.QueryRow(
		`SELECT COUNT(*) FROM time_sessions WHERE task_id = ? AND ended_at IS NULL`, taskID,
	).Scan(&active); err != nil {
		return nil, fmt.Errorf("count active sessions: %w", err)
	}
	if active > 0 {
		return nil, ErrAlreadyActive
	}

	if _, err := tx.Exec(
		`INSERT INTO time_sessions (task_id, started_at) VALUES (?, ?)`,
		taskID, formatTime(s.timestamp()),
	); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit start: %w", err)
	}
	return s.TrackingStatus(taskID)
}

// PauseTracking closes the open session and folds its whole seconds into
// the task's total.
func (s *Store) PauseTracking(taskID string) (*model.TrackingStatus, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin pause: %w", err)
	}
	defer tx.Rollback()

	if err := taskExists(tx, taskID); err != nil {
		return nil, err
	}
	var sessionID int64
	var startedAt string
	err = tx.QueryRow(
		`SELECT id, started_at FROM time_sessions WHERE task_id = ? AND ended_at IS NULL`, taskID,
	).Scan(&sessionID, &startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotActive
	}
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}

	now := s.timestamp()
	duration := timespan.Seconds(now.Sub(parseTime(startedAt)))
	if _, err := tx.Exec(
		`UPDATE time_sessions SET ended_at = ?, duration = ? WHERE id = ?`,
		formatTime(now), duration, sessionID,
	); err != nil {
		return nil, fmt.Errorf("close session: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE tasks SET total_time_seconds = total_time_seconds + ?, total_sessions = total_sessions + 1,
			updated_at = ? WHERE id = ?`,
		duration, formatTime(now), taskID,
	); err != nil {
		return nil, fmt.Errorf("accumulate session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit pause: %w", err)
	}
	return s.TrackingStatus(taskID)
}

// ResetTracking discards every session of the task, including an open one,
// and zeroes its totals.
func (s *Store) ResetTracking(taskID string) (*model.TrackingStatus, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin reset: %w", err)
	}
	defer tx.Rollback()

	if err := taskExists(tx, taskID); err != nil {
		return nil, err
	}
	now := formatTime(s.timestamp())
	if _, err := tx.Exec(
		`UPDATE time_sessions SET ended_at = ? WHERE task_id = ? AND ended_at IS NULL`, now, taskID,
	); err != nil {
		return nil, fmt.Errorf("close active session: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM time_sessions WHERE task_id = ?`, taskID); err != nil {
		return nil, fmt.Errorf("clear sessions: %w", err)
	}
	if _, err := tx.Exec(
		`UPDATE tasks SET total_time_seconds = 0, total_sessions = 0, updated_at = ? WHERE id = ?`,
		now, taskID,
	); err != nil {
		return nil, fmt.Errorf("zero totals: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reset: %w", err)
	}
	return s.TrackingStatus(taskID)
}

func (s *Store) TrackingStatus(taskID string) (*model.TrackingStatus, error) {
	st := &model.TrackingStatus{TaskID: taskID}
	err := s.db.QueryRow(
		`SELECT total_time_seconds, total_sessions FROM tasks WHERE id = ?`, taskID,
	).Scan(&st.TotalTimeSeconds, &st.TotalSessions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tracking status %s: %w", taskID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("tracking status %s: %w", taskID, err)
	}

	var startedAt string
	err = s.db.QueryRow(
		`SELECT started_at FROM time_sessions WHERE task_id = ? AND ended_at IS NULL`, taskID,
	).Scan(&startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active session %s: %w", taskID, err)
	}
	started := parseTime(startedAt)
	st.IsTrackingActive = true
	st.ActiveSessionStartedAt = &started
	return st, nil
}

// ListSessions returns the task's sessions, newest first.
func (s *Store) ListSessions(taskID string) ([]model.Session, error) {
	rows, err := s.db.Query(
		`SELECT id, task_id, started_at, ended_at, duration FROM time_sessions
		 WHERE task_id = ? ORDER BY id DESC`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var ss model.Session
		var startedAt string
		var endedAt sql.NullString
		if err := rows.Scan(&ss.ID, &ss.TaskID, &startedAt, &endedAt, &ss.DurationSeconds); err != nil {
			return nil, err
		}
		ss.StartedAt = parseTime(startedAt)
		if endedAt.Valid {
			t := parseTime(endedAt.String)
			ss.EndedAt = &t
		}
		sessions = append(sessions, ss)
	}
	return sessions, rows.Err()
}

func taskExists(tx *sql.Tx, taskID string) error {
	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM tasks WHERE id = ?`, taskID).Scan(&n); err != nil {
		return fmt.Errorf("lookup task %s: %w", taskID, err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	return nil
}
