package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicrush/server/internal/events"
	"github.com/clinicrush/server/internal/platform/logger"
	"github.com/clinicrush/server/internal/platform/metrics"
)

// Journal persists the durable subset of the event stream and tracks
// session boundaries. It implements events.EventPersister and is called
// synchronously from the simulation thread, so it sees events in order.
type Journal struct {
	eventRepo   EventRepository
	sessionRepo SessionRepository
	logger      *logger.Logger

	sessionID string // empty between sessions
}

// High-frequency presentation noise that never reaches the database.
var skippedEventTypes = map[events.EventType]bool{
	events.EventTypePatienceChanged: true,
	events.EventTypeTimeTick:        true,
}

func NewJournal(eventRepo EventRepository, sessionRepo SessionRepository, log *logger.Logger) *Journal {
	return &Journal{
		eventRepo:   eventRepo,
		sessionRepo: sessionRepo,
		logger:      log,
	}
}

// Append routes one engine event into the journal. Write failures are
// logged and counted but never propagate back into the simulation.
func (j *Journal) Append(event events.GameEvent) error {
	if skippedEventTypes[event.Type] {
		return nil
	}
	ctx := context.Background()

	if event.Type == events.EventTypeSessionStateChanged {
		j.openOnPlaying(ctx, event)
	}
	if j.sessionID == "" {
		// Stopped-state chatter outside any session.
		return nil
	}

	started := time.Now()
	err := j.eventRepo.Append(ctx, SessionEvent{
		ID:        event.ID,
		SessionID: j.sessionID,
		Timestamp: event.Timestamp,
		EventType: string(event.Type),
		SubjectID: event.SubjectID,
		Payload:   payloadToMap(event.Payload),
		Level:     event.Level,
	})
	metrics.Get().RecordJournalWrite(time.Since(started), err)
	if err != nil {
		j.logger.Error("journal write failed: " + err.Error())
		return err
	}

	if event.Type == events.EventTypeGameOver {
		j.finishSession(ctx, event)
	}
	// The STOPPED state change is the session's last journaled row.
	if event.Type == events.EventTypeSessionStateChanged {
		j.closeOnStopped(event)
	}
	return nil
}

// SessionID returns the journal's current session, empty when stopped.
func (j *Journal) SessionID() string {
	return j.sessionID
}

func (j *Journal) openOnPlaying(ctx context.Context, event events.GameEvent) {
	payload, ok := event.Payload.(events.SessionStateChangedPayload)
	if !ok || payload.State != "PLAYING" {
		return
	}
	if j.sessionID != "" {
		return // pause/resume inside the same session
	}
	j.sessionID = uuid.NewString()
	if err := j.sessionRepo.Create(ctx, j.sessionID, event.Timestamp); err != nil {
		j.logger.Error("failed to create session row: " + err.Error())
	}
	j.logger.Event("JOURNAL_SESSION", j.sessionID, "session opened")
}

func (j *Journal) closeOnStopped(event events.GameEvent) {
	payload, ok := event.Payload.(events.SessionStateChangedPayload)
	if !ok || payload.State != "STOPPED" {
		return
	}
	if j.sessionID == "" {
		return
	}
	j.logger.Event("JOURNAL_SESSION", j.sessionID, "session closed")
	j.sessionID = ""
}

// finishSession records the final result. The GAME_OVER event arrives
// before the STOPPED state change, so the session is still open here.
func (j *Journal) finishSession(ctx context.Context, event events.GameEvent) {
	payload, ok := event.Payload.(events.GameOverPayload)
	if !ok {
		return
	}
	err := j.sessionRepo.Finish(ctx, SessionResult{
		SessionID:      j.sessionID,
		FinishedAt:     event.Timestamp,
		FinalScore:     payload.FinalScore,
		PatientsServed: payload.FinalServed,
		FinalLevel:     payload.FinalLevel,
		Finished:       true,
	})
	if err != nil {
		j.logger.Error("failed to finish session row: " + err.Error())
		return
	}
	metrics.Get().RecordSessionFinished()
}

// payloadToMap flattens a typed payload into the generic shape the
// repository stores. Falls back to a raw dump when marshalling fails.
func payloadToMap(payload interface{}) map[string]interface{} {
	if payload == nil {
		return map[string]interface{}{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return map[string]interface{}{"raw": fmt.Sprintf("%v", payload)}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{"raw": string(raw)}
	}
	return out
}
