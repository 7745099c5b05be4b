package storage

import (
	"context"
	"testing"
)

// fakeEventRepo serves a canned journal from memory.
type fakeEventRepo struct {
	events []SessionEvent
}

func (f *fakeEventRepo) Append(ctx context.Context, event SessionEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventRepo) GetBySessionID(ctx context.Context, sessionID string) ([]SessionEvent, error) {
	var out []SessionEvent
	for _, e := range f.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) GetByEventType(ctx context.Context, sessionID string, eventType string) ([]SessionEvent, error) {
	var out []SessionEvent
	for _, e := range f.events {
		if e.SessionID == sessionID && e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestRebuildResultFoldsJournal(t *testing.T) {
	repo := &fakeEventRepo{events: []SessionEvent{
		{SessionID: "S1", EventType: "PATIENT_SPAWNED"},
		{SessionID: "S1", EventType: "TREATMENT_COMPLETED", Payload: map[string]interface{}{"points": 60.0}},
		{SessionID: "S1", EventType: "PATIENT_SPAWNED"},
		{SessionID: "S1", EventType: "PATIENT_ABANDONED", Payload: map[string]interface{}{"penalty": 20.0}},
		{SessionID: "S1", EventType: "LEVEL_CHANGED", Payload: map[string]interface{}{"level": 2.0}},
		{SessionID: "S1", EventType: "GAME_OVER"},
		{SessionID: "S2", EventType: "PATIENT_SPAWNED"},
	}}

	summarizer := NewSummarizer(repo)
	result, err := summarizer.RebuildResult(context.Background(), "S1")
	if err != nil {
		t.Fatalf("RebuildResult failed: %v", err)
	}

	if result.Score != 40 {
		t.Errorf("Expected rebuilt score 40, got %d", result.Score)
	}
	if result.PatientsServed != 1 {
		t.Errorf("Expected 1 served, got %d", result.PatientsServed)
	}
	if result.Abandoned != 1 {
		t.Errorf("Expected 1 abandoned, got %d", result.Abandoned)
	}
	if result.Spawned != 2 {
		t.Errorf("Expected 2 spawned, got %d", result.Spawned)
	}
	if result.FinalLevel != 2 {
		t.Errorf("Expected final level 2, got %d", result.FinalLevel)
	}
	if !result.GameOverSeen {
		t.Errorf("Expected the game over marker to be set")
	}
}

func TestRebuildResultClampsScoreAtZero(t *testing.T) {
	repo := &fakeEventRepo{events: []SessionEvent{
		{SessionID: "S1", EventType: "PATIENT_ABANDONED", Payload: map[string]interface{}{"penalty": 20.0}},
	}}

	summarizer := NewSummarizer(repo)
	result, err := summarizer.RebuildResult(context.Background(), "S1")
	if err != nil {
		t.Fatalf("RebuildResult failed: %v", err)
	}
	if result.Score != 0 {
		t.Errorf("Expected score clamped at 0, got %d", result.Score)
	}
}
