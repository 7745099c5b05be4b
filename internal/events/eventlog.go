// Package events provides the append-only event stream of the clinic
// simulation. The engine is the only writer; the presentation layer and
// the session journal are read-only consumers.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypePatientSpawned      EventType = "PATIENT_SPAWNED"
	EventTypePatienceChanged     EventType = "PATIENCE_CHANGED"
	EventTypePatientAssigned     EventType = "PATIENT_ASSIGNED"
	EventTypeTreatmentCompleted  EventType = "TREATMENT_COMPLETED"
	EventTypePatientAbandoned    EventType = "PATIENT_ABANDONED"
	EventTypeLevelChanged        EventType = "LEVEL_CHANGED"
	EventTypeSessionStateChanged EventType = "SESSION_STATE_CHANGED"
	EventTypeTimeTick            EventType = "TIME_TICK"
	EventTypeGameOver            EventType = "GAME_OVER"
)

// PatientSpawnedPayload announces a new patient in the waiting room.
type PatientSpawnedPayload struct {
	PatientID  string `json:"patient_id"`
	Name       string `json:"name"`
	Station    string `json:"station"`
	BasePoints int    `json:"base_points"`
	PatienceMs int64  `json:"patience_ms"`
}

// PatienceChangedPayload feeds the patience bars. Presentation only;
// it never drives an abandonment.
type PatienceChangedPayload struct {
	PatientID string `json:"patient_id"`
	Percent   int    `json:"percent"`
}

// PatientAssignedPayload records a successful assignment.
type PatientAssignedPayload struct {
	PatientID string `json:"patient_id"`
	Station   string `json:"station"`
}

// TreatmentCompletedPayload carries the points for a finished treatment.
type TreatmentCompletedPayload struct {
	Station   string `json:"station"`
	PatientID string `json:"patient_id"`
	Points    int    `json:"points"`
}

// PatientAbandonedPayload records a patient who left untreated.
type PatientAbandonedPayload struct {
	PatientID string `json:"patient_id"`
	Penalty   int    `json:"penalty"`
}

// LevelChangedPayload announces a difficulty step.
type LevelChangedPayload struct {
	Level           int   `json:"level"`
	SpawnIntervalMs int64 `json:"spawn_interval_ms"`
}

// SessionStateChangedPayload announces a run-state transition.
type SessionStateChangedPayload struct {
	State string `json:"state"`
}

// TimeTickPayload is emitted once per second of play for the HUD.
type TimeTickPayload struct {
	TimeLeftSeconds int `json:"time_left_seconds"`
	Score           int `json:"score"`
	Level           int `json:"level"`
	PatientsServed  int `json:"patients_served"`
}

// GameOverPayload carries the final tallies.
type GameOverPayload struct {
	FinalScore  int `json:"final_score"`
	FinalServed int `json:"final_served"`
	FinalLevel  int `json:"final_level"`
}

// GameEvent represents an immutable record of something the simulation
// did.
type GameEvent struct {
	ID        string      `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id,omitempty"` // patient or station the event is about
	Payload   interface{} `json:"payload,omitempty"`
	Level     int         `json:"level"`
}

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is the in-memory append-only log of game events.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	persister EventPersister
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	return &EventLog{
		events:    make([]GameEvent, 0),
		persister: persister,
	}
}

// Append adds a new event to the log. Events are immutable once
// appended. The write-through to the persister is synchronous so the
// journal sees events in emission order.
func (el *EventLog) Append(event GameEvent) {
	el.mu.Lock()
	el.events = append(el.events, event)
	el.mu.Unlock()

	if el.persister != nil {
		_ = el.persister.Append(event)
	}
}

// Len returns the number of events appended so far.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// Since returns a copy of every event from index n onwards. Pollers
// track their own cursor and call Since(cursor).
func (el *EventLog) Since(n int) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	if n < 0 {
		n = 0
	}
	if n >= len(el.events) {
		return nil
	}
	out := make([]GameEvent, len(el.events)-n)
	copy(out, el.events[n:])
	return out
}

// Replay returns a copy of the full history of events.
func (el *EventLog) Replay() []GameEvent {
	return el.Since(0)
}

// GetByType returns all events of a specific type.
func (el *EventLog) GetByType(t EventType) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// NewEventID creates a unique event identifier.
func NewEventID() string {
	return uuid.NewString()
}
