package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/clinicrush/server/internal/domain/station"
	"github.com/clinicrush/server/internal/events"
	"github.com/clinicrush/server/internal/platform/logger"
)

// testConfig keeps the simulation deterministic: one station kind, a
// seeded RNG and a spawn interval long enough to stay out of the way.
func testConfig() *Config {
	return &Config{
		GameDuration:             60 * time.Second,
		MaxWaitingPatients:       4,
		InitialSpawnInterval:     30 * time.Second,
		SpawnIntervalFloor:       1500 * time.Millisecond,
		SpawnIntervalStep:        200 * time.Millisecond,
		LevelUpPatientMultiplier: 5,
		LevelUpTimeBonus:         20 * time.Second,
		AbandonPenalty:           20,
		Stations: map[station.Kind]StationConfig{
			station.KindConsultation: {
				TreatmentDuration: 2 * time.Second,
				Patience:          10 * time.Second,
				BasePoints:        10,
				SpawnWeight:       1,
			},
		},
		PatientNames: []string{"Emily Smith"},
		Seed:         42,
	}
}

func newTestController(t *testing.T, cfg *Config) (*SimulationController, *Clock, *events.EventLog) {
	t.Helper()
	clock := NewManualClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	eventLog := events.NewEventLog(nil)
	controller, err := NewSimulationController(cfg, clock, eventLog, logger.NewLogger())
	if err != nil {
		t.Fatalf("Failed to build controller: %v", err)
	}
	return controller, clock, eventLog
}

func TestStartSpawnsFirstPatient(t *testing.T) {
	controller, _, _ := newTestController(t, testConfig())

	if err := controller.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	snap := controller.Snapshot()
	if snap.RunState != RunStatePlaying {
		t.Errorf("Expected PLAYING after start, got %s", snap.RunState)
	}
	if len(snap.Patients) != 1 {
		t.Fatalf("Expected one patient in the waiting room at start, got %d", len(snap.Patients))
	}
	if snap.TimeRemaining != 60 {
		t.Errorf("Expected 60s on the clock, got %d", snap.TimeRemaining)
	}
	if snap.Score != 0 || snap.Level != 1 || snap.PatientsServed != 0 {
		t.Errorf("Expected a fresh scoreboard, got score=%d level=%d served=%d", snap.Score, snap.Level, snap.PatientsServed)
	}
}

func TestAssignAndCompleteTreatment(t *testing.T) {
	controller, clock, _ := newTestController(t, testConfig())
	controller.Start()

	snap := controller.Snapshot()
	patientID := snap.Patients[0].ID

	// Assigned at full patience: reward is base 10 plus the full bonus.
	if err := controller.AssignPatient(patientID, station.KindConsultation); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}

	snap = controller.Snapshot()
	if len(snap.Patients) != 0 {
		t.Errorf("Expected waiting room empty after assignment, got %d", len(snap.Patients))
	}
	if !snap.Stations[0].IsOccupied() {
		t.Errorf("Expected station occupied during treatment")
	}

	clock.Advance(2 * time.Second)

	snap = controller.Snapshot()
	if snap.Score != 60 {
		t.Errorf("Expected score 60 for a full-patience treatment, got %d", snap.Score)
	}
	if snap.PatientsServed != 1 {
		t.Errorf("Expected one served patient, got %d", snap.PatientsServed)
	}
	if snap.Stations[0].IsOccupied() {
		t.Errorf("Expected station freed after treatment completed")
	}
}

func TestRewardShrinksAsPatienceDecays(t *testing.T) {
	controller, clock, _ := newTestController(t, testConfig())
	controller.Start()
	patientID := controller.Snapshot().Patients[0].ID

	// Wait out half the patience before assigning.
	clock.Advance(5 * time.Second)
	if err := controller.AssignPatient(patientID, station.KindConsultation); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	clock.Advance(2 * time.Second)

	// 10 base + floor(0.5 * 50) bonus.
	if got := controller.Snapshot().Score; got != 35 {
		t.Errorf("Expected score 35 at half patience, got %d", got)
	}
}

func TestAbandonmentAppliesPenalty(t *testing.T) {
	controller, clock, eventLog := newTestController(t, testConfig())
	controller.Start()
	patientID := controller.Snapshot().Patients[0].ID

	// Bank 60 points first so the penalty is visible.
	controller.AssignPatient(patientID, station.KindConsultation)
	clock.Advance(2 * time.Second)

	// The next patient arrives at t=30s and abandons 10s later.
	clock.Advance(38 * time.Second)

	snap := controller.Snapshot()
	if snap.Score != 40 {
		t.Errorf("Expected 60 - 20 = 40 after an abandonment, got %d", snap.Score)
	}
	if len(snap.Patients) != 0 {
		t.Errorf("Expected abandoned patient removed from the waiting room")
	}
	if got := len(eventLog.GetByType(events.EventTypePatientAbandoned)); got != 1 {
		t.Errorf("Expected one PATIENT_ABANDONED event, got %d", got)
	}
}

func TestScoreNeverGoesNegative(t *testing.T) {
	controller, clock, _ := newTestController(t, testConfig())
	controller.Start()

	// Nobody gets treated; the first patient abandons at 10s.
	clock.Advance(10 * time.Second)

	if got := controller.Snapshot().Score; got != 0 {
		t.Errorf("Expected score clamped at 0, got %d", got)
	}
}

func TestAssignmentFailuresAreDistinctAndMutationFree(t *testing.T) {
	cfg := testConfig()
	cfg.Stations[station.KindSurgery] = StationConfig{
		TreatmentDuration: 4 * time.Second,
		Patience:          20 * time.Second,
		BasePoints:        25,
		SpawnWeight:       0, // configured but never spawned
	}
	cfg.InitialSpawnInterval = 1 * time.Second
	controller, clock, _ := newTestController(t, cfg)

	if err := controller.AssignPatient("nobody", station.KindConsultation); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected ErrInvalidTransition while stopped, got %v", err)
	}

	controller.Start()
	first := controller.Snapshot().Patients[0].ID

	if err := controller.AssignPatient("nobody", station.KindConsultation); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("Expected ErrPatientNotFound, got %v", err)
	}
	if err := controller.AssignPatient(first, station.KindSurgery); !errors.Is(err, ErrWrongStation) {
		t.Errorf("Expected ErrWrongStation, got %v", err)
	}

	// First patient under treatment, second spawns a second later.
	if err := controller.AssignPatient(first, station.KindConsultation); err != nil {
		t.Fatalf("Assign failed: %v", err)
	}
	clock.Advance(1 * time.Second)

	snap := controller.Snapshot()
	if len(snap.Patients) != 1 {
		t.Fatalf("Expected a second waiting patient, got %d", len(snap.Patients))
	}
	second := snap.Patients[0].ID

	if err := controller.AssignPatient(second, station.KindConsultation); !errors.Is(err, ErrStationOccupied) {
		t.Errorf("Expected ErrStationOccupied, got %v", err)
	}

	// The rejected patient must still be waiting, untouched.
	snap = controller.Snapshot()
	if len(snap.Patients) != 1 || snap.Patients[0].ID != second {
		t.Errorf("Expected rejected patient to remain waiting")
	}
}

func TestPauseFreezesTimeAndTreatment(t *testing.T) {
	controller, clock, _ := newTestController(t, testConfig())
	controller.Start()
	patientID := controller.Snapshot().Patients[0].ID
	controller.AssignPatient(patientID, station.KindConsultation)

	clock.Advance(1 * time.Second)
	if err := controller.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}

	// A long paused stretch must not advance anything.
	clock.Advance(30 * time.Second)

	snap := controller.Snapshot()
	if snap.RunState != RunStatePaused {
		t.Errorf("Expected PAUSED, got %s", snap.RunState)
	}
	if snap.TimeRemaining != 59 {
		t.Errorf("Expected session clock frozen at 59, got %d", snap.TimeRemaining)
	}
	if !snap.Stations[0].IsOccupied() {
		t.Errorf("Expected treatment still in progress while paused")
	}

	if err := controller.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}

	// The treatment had 1s left when paused.
	clock.Advance(1 * time.Second)
	snap = controller.Snapshot()
	if snap.PatientsServed != 1 {
		t.Errorf("Expected treatment to finish after its remaining second, served=%d", snap.PatientsServed)
	}
	if snap.TimeRemaining != 58 {
		t.Errorf("Expected 58s remaining, got %d", snap.TimeRemaining)
	}
}

func TestRunStateTransitionGuards(t *testing.T) {
	controller, _, _ := newTestController(t, testConfig())

	if err := controller.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected pause to fail while stopped, got %v", err)
	}
	if err := controller.Resume(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected resume to fail while stopped, got %v", err)
	}
	if err := controller.Restart(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected restart to fail while stopped, got %v", err)
	}

	controller.Start()
	if err := controller.Start(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected start to fail while playing, got %v", err)
	}
	if err := controller.Resume(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected resume to fail while playing, got %v", err)
	}
}

func TestRestartStopsEverything(t *testing.T) {
	controller, clock, _ := newTestController(t, testConfig())
	controller.Start()
	clock.Advance(1 * time.Second)

	if err := controller.Restart(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}

	snap := controller.Snapshot()
	if snap.RunState != RunStateStopped {
		t.Errorf("Expected STOPPED after restart, got %s", snap.RunState)
	}
	if len(snap.Patients) != 0 {
		t.Errorf("Expected waiting room emptied on restart")
	}
	if clock.PendingTimers() != 0 {
		t.Errorf("Expected every timer cancelled on restart, %d pending", clock.PendingTimers())
	}

	// A stopped session stays inert no matter how much time passes.
	clock.Advance(60 * time.Second)
	if got := controller.Snapshot().TimeRemaining; got != 59 {
		t.Errorf("Expected session clock untouched while stopped, got %d", got)
	}

	// And a fresh start works.
	if err := controller.Start(); err != nil {
		t.Fatalf("Start after restart failed: %v", err)
	}
	snap = controller.Snapshot()
	if snap.TimeRemaining != 60 || snap.Score != 0 || len(snap.Patients) != 1 {
		t.Errorf("Expected a clean new session, got time=%d score=%d patients=%d", snap.TimeRemaining, snap.Score, len(snap.Patients))
	}
}

func TestGameOverOnTimeExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.GameDuration = 3 * time.Second
	controller, clock, eventLog := newTestController(t, cfg)
	controller.Start()

	clock.Advance(3 * time.Second)

	snap := controller.Snapshot()
	if snap.RunState != RunStateStopped {
		t.Errorf("Expected STOPPED at game over, got %s", snap.RunState)
	}
	if clock.PendingTimers() != 0 {
		t.Errorf("Expected zero background activity after game over, %d timers pending", clock.PendingTimers())
	}
	if got := len(eventLog.GetByType(events.EventTypeGameOver)); got != 1 {
		t.Errorf("Expected exactly one GAME_OVER event, got %d", got)
	}
	if err := controller.AssignPatient("anyone", station.KindConsultation); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Expected assignments rejected after game over, got %v", err)
	}
}

func TestLevelUpGrantsBonusAndFasterSpawns(t *testing.T) {
	cfg := testConfig()
	cfg.LevelUpPatientMultiplier = 1 // level up after each level's single patient
	cfg.InitialSpawnInterval = 2 * time.Second
	controller, clock, eventLog := newTestController(t, cfg)
	controller.Start()

	patientID := controller.Snapshot().Patients[0].ID
	controller.AssignPatient(patientID, station.KindConsultation)
	clock.Advance(2 * time.Second)

	snap := controller.Snapshot()
	if snap.Level != 2 {
		t.Errorf("Expected level 2 after the first served patient, got %d", snap.Level)
	}
	// 60 - 2 elapsed + 20 bonus.
	if snap.TimeRemaining != 78 {
		t.Errorf("Expected 78s after the time bonus, got %d", snap.TimeRemaining)
	}
	if snap.SpawnIntervalMs != 1800 {
		t.Errorf("Expected spawn interval tightened to 1800ms, got %d", snap.SpawnIntervalMs)
	}
	if got := len(eventLog.GetByType(events.EventTypeLevelChanged)); got != 1 {
		t.Errorf("Expected one LEVEL_CHANGED event, got %d", got)
	}
}

func TestWaitingRoomCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.MaxWaitingPatients = 2
	cfg.InitialSpawnInterval = 1 * time.Second
	controller, clock, _ := newTestController(t, cfg)
	controller.Start()

	// Spawns at 0s, 1s; every further attempt hits the cap.
	clock.Advance(5 * time.Second)

	if got := len(controller.Snapshot().Patients); got != 2 {
		t.Errorf("Expected waiting room capped at 2, got %d", got)
	}
}
