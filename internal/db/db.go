// Package db persists engine output — alerts and per-tick score
// samples — to sqlite. The schema lives in migrations/; NewDB also
// applies it inline so fresh databases work without a migrations
// directory on disk.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	*sql.DB
}

// NewDB opens (creating if needed) the sqlite database at path and
// ensures the schema exists.
func NewDB(path string) (*DB, error) {
	sqldb, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = sqldb.Exec(`
		CREATE TABLE IF NOT EXISTS alerts (
			alert_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			track_id INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			level TEXT NOT NULL,
			score INTEGER NOT NULL,
			factors TEXT NOT NULL DEFAULT '[]',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_alerts_session_tick ON alerts(session_id, tick);
		CREATE TABLE IF NOT EXISTS score_samples (
			session_id TEXT NOT NULL,
			tick INTEGER NOT NULL,
			track_id INTEGER NOT NULL,
			score INTEGER NOT NULL,
			level TEXT NOT NULL,
			stay_seconds DOUBLE NOT NULL,
			PRIMARY KEY (session_id, tick, track_id)
		);
		CREATE INDEX IF NOT EXISTS idx_score_samples_track ON score_samples(session_id, track_id, tick);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{sqldb}, nil
}

// Alert is one persisted alert row. Factors round-trips through a JSON
// column so the audit trail keeps the scorer's reason strings intact.
type Alert struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	TrackID   int       `json:"track_id"`
	Tick      int       `json:"tick"`
	Level     string    `json:"level"`
	Score     int       `json:"score"`
	Factors   []string  `json:"factors"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *Alert) String() string {
	return fmt.Sprintf("Session: %s, Track: %d, Tick: %d, Level: %s, Score: %d",
		a.SessionID, a.TrackID, a.Tick, a.Level, a.Score)
}

// RecordAlert inserts one alert row.
func (db *DB) RecordAlert(a Alert) error {
	factors, err := json.Marshal(a.Factors)
	if err != nil {
		return fmt.Errorf("failed to marshal factors: %w", err)
	}
	_, err = db.Exec(
		"INSERT INTO alerts (alert_id, session_id, track_id, tick, level, score, factors) VALUES (?, ?, ?, ?, ?, ?, ?)",
		a.ID, a.SessionID, a.TrackID, a.Tick, a.Level, a.Score, string(factors),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// RecentAlerts returns the newest alerts, highest tick first, capped
// at limit.
func (db *DB) RecentAlerts(limit int) ([]Alert, error) {
	rows, err := db.Query(
		"SELECT alert_id, session_id, track_id, tick, level, score, factors, created_at FROM alerts ORDER BY tick DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		var factors string
		if err := rows.Scan(&a.ID, &a.SessionID, &a.TrackID, &a.Tick, &a.Level, &a.Score, &factors, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(factors), &a.Factors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal factors for alert %s: %w", a.ID, err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return alerts, nil
}

// ScoreSample is one persisted per-tick score row.
type ScoreSample struct {
	SessionID   string  `json:"session_id"`
	Tick        int     `json:"tick"`
	TrackID     int     `json:"track_id"`
	Score       int     `json:"score"`
	Level       string  `json:"level"`
	StaySeconds float64 `json:"stay_seconds"`
}

// RecordScoreSample inserts one score sample row. Re-ingesting the
// same (session, tick, track) replaces the previous row.
func (db *DB) RecordScoreSample(s ScoreSample) error {
	_, err := db.Exec(
		"INSERT OR REPLACE INTO score_samples (session_id, tick, track_id, score, level, stay_seconds) VALUES (?, ?, ?, ?, ?, ?)",
		s.SessionID, s.Tick, s.TrackID, s.Score, s.Level, s.StaySeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to insert score sample: %w", err)
	}
	return nil
}

// ScoreSeries returns every score sample for a session in (track, tick)
// order, for report generation.
func (db *DB) ScoreSeries(sessionID string) ([]ScoreSample, error) {
	rows, err := db.Query(
		"SELECT session_id, tick, track_id, score, level, stay_seconds FROM score_samples WHERE session_id = ? ORDER BY track_id, tick",
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []ScoreSample
	for rows.Next() {
		var s ScoreSample
		if err := rows.Scan(&s.SessionID, &s.Tick, &s.TrackID, &s.Score, &s.Level, &s.StaySeconds); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return samples, nil
}
