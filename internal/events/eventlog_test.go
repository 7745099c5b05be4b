package events

import (
	"testing"
	"time"
)

type recordingPersister struct {
	seen []GameEvent
}

func (p *recordingPersister) Append(event GameEvent) error {
	p.seen = append(p.seen, event)
	return nil
}

func TestAppendWritesThroughInOrder(t *testing.T) {
	persister := &recordingPersister{}
	el := NewEventLog(persister)

	for _, typ := range []EventType{EventTypePatientSpawned, EventTypePatientAssigned, EventTypeTreatmentCompleted} {
		el.Append(GameEvent{ID: NewEventID(), Timestamp: time.Now(), Type: typ})
	}

	if el.Len() != 3 {
		t.Fatalf("Expected 3 events in the log, got %d", el.Len())
	}
	if len(persister.seen) != 3 {
		t.Fatalf("Expected 3 events persisted, got %d", len(persister.seen))
	}
	for i, typ := range []EventType{EventTypePatientSpawned, EventTypePatientAssigned, EventTypeTreatmentCompleted} {
		if persister.seen[i].Type != typ {
			t.Errorf("Expected persisted event %d to be %s, got %s", i, typ, persister.seen[i].Type)
		}
	}
}

func TestSinceReturnsOnlyNewEvents(t *testing.T) {
	el := NewEventLog(nil)
	el.Append(GameEvent{ID: "1", Type: EventTypePatientSpawned})
	el.Append(GameEvent{ID: "2", Type: EventTypeTimeTick})

	cursor := el.Len()
	if got := el.Since(cursor); got != nil {
		t.Errorf("Expected no new events at the cursor, got %d", len(got))
	}

	el.Append(GameEvent{ID: "3", Type: EventTypeGameOver})
	newEvents := el.Since(cursor)
	if len(newEvents) != 1 || newEvents[0].ID != "3" {
		t.Errorf("Expected exactly the event appended after the cursor, got %v", newEvents)
	}
}

func TestGetByType(t *testing.T) {
	el := NewEventLog(nil)
	el.Append(GameEvent{ID: "1", Type: EventTypePatientSpawned})
	el.Append(GameEvent{ID: "2", Type: EventTypePatientAbandoned})
	el.Append(GameEvent{ID: "3", Type: EventTypePatientSpawned})

	spawned := el.GetByType(EventTypePatientSpawned)
	if len(spawned) != 2 {
		t.Errorf("Expected 2 PATIENT_SPAWNED events, got %d", len(spawned))
	}
}
