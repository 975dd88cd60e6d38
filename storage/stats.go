package storage

import (
	"fmt"
)

// DailyStats represents statistics for a single day
type DailyStats struct {
	Date          string `json:"date"`
	Sessions      int    `json:"sessions"`
	TotalCommands int64  `json:"totalCommands"`
	LiteralCount  int64  `json:"literalCount"`
	DroppedCount  int64  `json:"droppedCount"`
}

// OverallStats represents overall statistics
type OverallStats struct {
	Sessions        int     `json:"sessions"`
	TotalCommands   int64   `json:"totalCommands"`
	CancelCount     int64   `json:"cancelCount"`
	SubmitCount     int64   `json:"submitCount"`
	DeleteCount     int64   `json:"deleteCount"`
	LiteralCount    int64   `json:"literalCount"`
	DroppedCount    int64   `json:"droppedCount"`
	AvgDurationMs   float64 `json:"avgDurationMs"`
	TotalDurationMs int64   `json:"totalDurationMs"`
}

// GetDailyStats retrieves statistics grouped by date for the last N days
func (db *DB) GetDailyStats(days int) ([]DailyStats, error) {
	query := `
		SELECT
			DATE(started_at) as date,
			COUNT(*) as sessions,
			SUM(cancel_count + submit_count + delete_count + literal_count) as total_commands,
			SUM(literal_count) as literal_count,
			SUM(dropped_count) as dropped_count
		FROM sessions
		WHERE started_at >= strftime('%Y-%m-%d %H:%M:%f', 'now', '-' || ? || ' days')
		GROUP BY DATE(started_at)
		ORDER BY date DESC
	`

	rows, err := db.conn.Query(query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []DailyStats
	for rows.Next() {
		var s DailyStats
		err := rows.Scan(&s.Date, &s.Sessions, &s.TotalCommands, &s.LiteralCount, &s.DroppedCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetOverallStats retrieves overall statistics for the last N days
func (db *DB) GetOverallStats(days int) (*OverallStats, error) {
	query := `
		SELECT
			COUNT(*) as sessions,
			COALESCE(SUM(cancel_count + submit_count + delete_count + literal_count), 0) as total_commands,
			COALESCE(SUM(cancel_count), 0) as cancel_count,
			COALESCE(SUM(submit_count), 0) as submit_count,
			COALESCE(SUM(delete_count), 0) as delete_count,
			COALESCE(SUM(literal_count), 0) as literal_count,
			COALESCE(SUM(dropped_count), 0) as dropped_count,
			COALESCE(AVG(duration_ms), 0) as avg_duration_ms,
			COALESCE(SUM(duration_ms), 0) as total_duration_ms
		FROM sessions
		WHERE started_at >= strftime('%Y-%m-%d %H:%M:%f', 'now', '-' || ? || ' days')
	`

	var stats OverallStats
	err := db.conn.QueryRow(query, days).Scan(
		&stats.Sessions,
		&stats.TotalCommands,
		&stats.CancelCount,
		&stats.SubmitCount,
		&stats.DeleteCount,
		&stats.LiteralCount,
		&stats.DroppedCount,
		&stats.AvgDurationMs,
		&stats.TotalDurationMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query overall stats: %w", err)
	}

	return &stats, nil
}
