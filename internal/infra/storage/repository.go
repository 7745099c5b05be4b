// Package storage provides the persistence layer for the clinic server.
// This package implements the repository pattern to keep the domain pure.
package storage

import (
	"context"
	"time"
)

// SessionEvent mirrors the engine event structure for persistence.
// The engine package should NOT import this; use interfaces instead.
type SessionEvent struct {
	ID        string                 `json:"id" db:"id"`
	SessionID string                 `json:"session_id" db:"session_id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	EventType string                 `json:"event_type" db:"event_type"`
	SubjectID string                 `json:"subject_id" db:"subject_id"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
	Level     int                    `json:"level" db:"level"`
}

// EventRepository defines the interface for session event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable journal.
	Append(ctx context.Context, event SessionEvent) error

	// GetBySessionID retrieves all events for a session (for replay).
	GetBySessionID(ctx context.Context, sessionID string) ([]SessionEvent, error)

	// GetByEventType retrieves all events of a specific type.
	GetByEventType(ctx context.Context, sessionID string, eventType string) ([]SessionEvent, error)
}

// SessionResult is the per-session summary row.
type SessionResult struct {
	SessionID      string    `json:"session_id" db:"session_id"`
	StartedAt      time.Time `json:"started_at" db:"started_at"`
	FinishedAt     time.Time `json:"finished_at" db:"finished_at"`
	FinalScore     int       `json:"final_score" db:"final_score"`
	PatientsServed int       `json:"patients_served" db:"patients_served"`
	FinalLevel     int       `json:"final_level" db:"final_level"`
	Finished       bool      `json:"finished" db:"finished"`
}

// SessionRepository defines the interface for session summaries.
type SessionRepository interface {
	// Create registers a new session at start time.
	Create(ctx context.Context, sessionID string, startedAt time.Time) error

	// Finish records the final result of a session.
	Finish(ctx context.Context, result SessionResult) error

	// GetBySessionID retrieves one session summary.
	GetBySessionID(ctx context.Context, sessionID string) (*SessionResult, error)

	// ListRecent retrieves the most recent sessions, newest first.
	ListRecent(ctx context.Context, limit int) ([]SessionResult, error)
}
