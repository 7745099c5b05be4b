// Package storage - summary.go
// Rebuilds a session outcome from the journal.
// This is the event-sourcing check: result = f(events).
package storage

import (
	"context"
	"fmt"
)

// Summarizer folds a session's journal back into an outcome. Used for:
// 1. Replay endpoints that show how a score was earned
// 2. Auditing a stored result against its own event trail
type Summarizer struct {
	eventRepo EventRepository
}

// NewSummarizer creates a new session summarizer.
func NewSummarizer(eventRepo EventRepository) *Summarizer {
	return &Summarizer{eventRepo: eventRepo}
}

// RebuiltResult holds a session outcome recomputed from events alone.
type RebuiltResult struct {
	SessionID      string `json:"session_id"`
	Score          int    `json:"score"`
	PatientsServed int    `json:"patients_served"`
	Abandoned      int    `json:"abandoned"`
	Spawned        int    `json:"spawned"`
	FinalLevel     int    `json:"final_level"`
	GameOverSeen   bool   `json:"game_over_seen"`
}

// RebuildResult replays a session's journal in order and recomputes the
// score, counters and final level.
func (s *Summarizer) RebuildResult(ctx context.Context, sessionID string) (*RebuiltResult, error) {
	events, err := s.eventRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session events: %w", err)
	}

	result := &RebuiltResult{SessionID: sessionID, FinalLevel: 1}
	for _, e := range events {
		s.applyEvent(result, e)
	}
	return result, nil
}

// applyEvent folds one journal row into the running result.
func (s *Summarizer) applyEvent(result *RebuiltResult, event SessionEvent) {
	switch event.EventType {
	case "PATIENT_SPAWNED":
		result.Spawned++
	case "TREATMENT_COMPLETED":
		if points, ok := payloadInt(event.Payload, "points"); ok {
			result.Score += points
		}
		result.PatientsServed++
	case "PATIENT_ABANDONED":
		result.Abandoned++
		if penalty, ok := payloadInt(event.Payload, "penalty"); ok {
			result.Score -= penalty
			if result.Score < 0 {
				result.Score = 0
			}
		}
	case "LEVEL_CHANGED":
		if level, ok := payloadInt(event.Payload, "level"); ok {
			result.FinalLevel = level
		}
	case "GAME_OVER":
		result.GameOverSeen = true
	}
}

// payloadInt reads a numeric payload field. JSON numbers decode as
// float64, so the journal always hands us floats.
func payloadInt(payload map[string]interface{}, key string) (int, bool) {
	v, ok := payload[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}
