package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event SessionEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO session_events (id, session_id, timestamp, event_type, subject_id, payload, level)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.SessionID, event.Timestamp, event.EventType,
		event.SubjectID, string(payloadBytes), event.Level,
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]SessionEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []SessionEvent
	for rows.Next() {
		var e SessionEvent
		var payloadStr string
		err := rows.Scan(
			&e.ID, &e.SessionID, &e.Timestamp, &e.EventType,
			&e.SubjectID, &payloadStr, &e.Level,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteEventRepository) GetBySessionID(ctx context.Context, sessionID string) ([]SessionEvent, error) {
	query := `SELECT id, session_id, timestamp, event_type, subject_id, payload, level FROM session_events WHERE session_id = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, sessionID)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, sessionID string, eventType string) ([]SessionEvent, error) {
	query := `SELECT id, session_id, timestamp, event_type, subject_id, payload, level FROM session_events WHERE session_id = ? AND event_type = ? ORDER BY timestamp ASC`
	return r.getMany(ctx, query, sessionID, eventType)
}

// ---------------------------------------------------------
// SQLiteSessionRepository
// ---------------------------------------------------------

type SQLiteSessionRepository struct {
	db *sql.DB
}

func NewSQLiteSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

func (r *SQLiteSessionRepository) Create(ctx context.Context, sessionID string, startedAt time.Time) error {
	query := `INSERT INTO sessions (session_id, started_at) VALUES (?, ?)`
	_, err := r.db.ExecContext(ctx, query, sessionID, startedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepository) Finish(ctx context.Context, result SessionResult) error {
	query := `
		UPDATE sessions
		SET finished_at = ?, final_score = ?, patients_served = ?, final_level = ?, finished = 1
		WHERE session_id = ?
	`
	_, err := r.db.ExecContext(ctx, query,
		result.FinishedAt, result.FinalScore, result.PatientsServed,
		result.FinalLevel, result.SessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	return nil
}

func (r *SQLiteSessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*SessionResult, error) {
	query := `SELECT session_id, started_at, COALESCE(finished_at, started_at), final_score, patients_served, final_level, finished FROM sessions WHERE session_id = ?`
	var s SessionResult
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&s.SessionID, &s.StartedAt, &s.FinishedAt, &s.FinalScore,
		&s.PatientsServed, &s.FinalLevel, &s.Finished,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteSessionRepository) ListRecent(ctx context.Context, limit int) ([]SessionResult, error) {
	query := `SELECT session_id, started_at, COALESCE(finished_at, started_at), final_score, patients_served, final_level, finished FROM sessions ORDER BY started_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SessionResult
	for rows.Next() {
		var s SessionResult
		if err := rows.Scan(&s.SessionID, &s.StartedAt, &s.FinishedAt, &s.FinalScore, &s.PatientsServed, &s.FinalLevel, &s.Finished); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}
