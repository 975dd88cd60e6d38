package storage

import (
	"errors"
	"fmt"
	"time"
)

// timeLayout is how timestamps are stored. It sorts lexically and is
// understood by SQLite's date functions.
const timeLayout = "2006-01-02 15:04:05.000"

// ErrNotFound is returned when a session does not exist
var ErrNotFound = errors.New("session not found")

// Session is a finished capture session with its command counts
type Session struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"startedAt"`
	EndedAt      time.Time `json:"endedAt"`
	DurationMs   int64     `json:"durationMs"`
	CancelCount  int64     `json:"cancelCount"`
	SubmitCount  int64     `json:"submitCount"`
	DeleteCount  int64     `json:"deleteCount"`
	LiteralCount int64     `json:"literalCount"`
	DroppedCount int64     `json:"droppedCount"`
}

// SaveSession stores a finished session
func (db *DB) SaveSession(s *Session) error {
	query := `
		INSERT INTO sessions (
			id, started_at, ended_at, duration_ms,
			cancel_count, submit_count, delete_count, literal_count, dropped_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.conn.Exec(query,
		s.ID, formatTime(s.StartedAt), formatTime(s.EndedAt), s.DurationMs,
		s.CancelCount, s.SubmitCount, s.DeleteCount, s.LiteralCount, s.DroppedCount,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// GetSessions retrieves sessions with pagination, newest first
func (db *DB) GetSessions(limit, offset int) ([]Session, error) {
	query := `
		SELECT
			id, started_at, ended_at, duration_ms,
			cancel_count, submit_count, delete_count, literal_count, dropped_count
		FROM sessions
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.conn.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var startedAt, endedAt string

		err := rows.Scan(
			&s.ID, &startedAt, &endedAt, &s.DurationMs,
			&s.CancelCount, &s.SubmitCount, &s.DeleteCount, &s.LiteralCount, &s.DroppedCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		if s.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if s.EndedAt, err = parseTime(endedAt); err != nil {
			return nil, err
		}

		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// DeleteSession deletes a session by ID
func (db *DB) DeleteSession(id string) error {
	result, err := db.conn.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetSessionCount returns the total number of sessions
func (db *DB) GetSessionCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&count)
	return count, err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
