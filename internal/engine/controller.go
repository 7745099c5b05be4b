package engine

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/clinicrush/server/internal/domain/patient"
	"github.com/clinicrush/server/internal/domain/station"
	"github.com/clinicrush/server/internal/events"
	"github.com/clinicrush/server/internal/platform/logger"
	"github.com/clinicrush/server/internal/platform/metrics"
)

// SimulationController is the single authority for session state
// transitions. It wires the clock ticks into the registry, board and
// ledger, and emits every outward event.
type SimulationController struct {
	clock    *Clock
	cfg      *Config
	logger   *logger.Logger
	eventLog *events.EventLog

	session  *GameSession
	registry *PatientRegistry
	board    *StationBoard
	ledger   *ScoringLedger

	macroTick TimerHandle
	spawnTick TimerHandle
	decayTick TimerHandle
}

// Snapshot is a read-only copy of the full display state.
type Snapshot struct {
	RunState        RunState          `json:"run_state"`
	Score           int               `json:"score"`
	Level           int               `json:"level"`
	PatientsServed  int               `json:"patients_served"`
	TimeRemaining   int               `json:"time_remaining_seconds"`
	SpawnIntervalMs int64             `json:"spawn_interval_ms"`
	Patients        []patient.Patient `json:"patients"`
	Stations        []station.Station `json:"stations"`
}

// NewSimulationController validates the config and wires up the engine.
// The session starts Stopped; call Start to play.
func NewSimulationController(cfg *Config, clock *Clock, eventLog *events.EventLog, log *logger.Logger) (*SimulationController, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	session := newGameSession(cfg)
	registry := newPatientRegistry(clock, cfg, session, eventLog, log, rng)
	board := newStationBoard(clock, cfg, session, eventLog, log)
	registry.board = board
	board.registry = registry

	c := &SimulationController{
		clock:    clock,
		cfg:      cfg,
		logger:   log,
		eventLog: eventLog,
		session:  session,
		registry: registry,
		board:    board,
		ledger:   newScoringLedger(session, cfg),
	}
	registry.onAbandoned = c.onPatientAbandoned
	board.onCompleted = c.onTreatmentCompleted
	return c, nil
}

// Run drives the wall-clock simulation thread. It blocks until ctx is
// cancelled and is not needed with a manual clock.
func (c *SimulationController) Run(ctx context.Context) {
	c.clock.Run(ctx)
}

// --- public API (presentation layer entry points) ---

// Start begins a new session. Valid from Stopped only.
func (c *SimulationController) Start() error { return c.call(c.start) }

// Pause suspends every outstanding timer. Valid from Playing only.
func (c *SimulationController) Pause() error { return c.call(c.pause) }

// Resume re-arms the suspended timers. Valid from Paused only.
func (c *SimulationController) Resume() error { return c.call(c.resume) }

// Restart stops the current session. Valid from Playing or Paused.
func (c *SimulationController) Restart() error { return c.call(c.restart) }

// AssignPatient routes a waiting patient to a station. Failures are
// distinct, mutation-free errors for the presentation layer.
func (c *SimulationController) AssignPatient(patientID string, kind station.Kind) error {
	var err error
	c.clock.Call(func() { err = c.assignPatient(patientID, kind) })
	return err
}

// Snapshot returns a copy of the full display state.
func (c *SimulationController) Snapshot() Snapshot {
	var snap Snapshot
	c.clock.Call(func() { snap = c.snapshot() })
	return snap
}

func (c *SimulationController) call(fn func() error) error {
	var err error
	c.clock.Call(func() { err = fn() })
	return err
}

// --- simulation-thread internals ---

func (c *SimulationController) start() error {
	if c.session.RunState != RunStateStopped {
		return ErrInvalidTransition
	}
	c.session.reset(c.cfg)
	c.registry.Clear()
	c.board.CancelAll()
	c.setRunState(RunStatePlaying)

	c.macroTick = c.clock.ScheduleRepeating(time.Second, c.onMacroTick)
	c.spawnTick = c.clock.ScheduleRepeating(c.session.SpawnInterval, c.onSpawnTick)
	c.decayTick = c.clock.ScheduleRepeating(decayStep, c.registry.DecayTick)

	// The waiting room opens with one patient already there.
	c.registry.Spawn()
	c.logger.Info("Session started")
	return nil
}

func (c *SimulationController) pause() error {
	if c.session.RunState != RunStatePlaying {
		return ErrInvalidTransition
	}
	// Suspend, not cancel: wall time spent paused must not count
	// against patience or treatment progress.
	c.clock.SuspendAll()
	c.setRunState(RunStatePaused)
	return nil
}

func (c *SimulationController) resume() error {
	if c.session.RunState != RunStatePaused {
		return ErrInvalidTransition
	}
	c.setRunState(RunStatePlaying)
	c.clock.ResumeAll()
	return nil
}

func (c *SimulationController) restart() error {
	if c.session.RunState == RunStateStopped {
		return ErrInvalidTransition
	}
	c.stopSession()
	c.setRunState(RunStateStopped)
	c.logger.Info("Session restarted to stopped state")
	return nil
}

func (c *SimulationController) assignPatient(patientID string, kind station.Kind) error {
	if c.session.RunState != RunStatePlaying {
		return ErrInvalidTransition
	}
	p, err := c.registry.AssignToStation(patientID, kind)
	if err != nil {
		return err
	}
	return c.board.BeginTreatment(p, kind)
}

// onMacroTick drives the session clock, one real second at a time.
func (c *SimulationController) onMacroTick() {
	started := time.Now()
	c.session.TimeRemaining--

	c.eventLog.Append(events.GameEvent{
		ID:        events.NewEventID(),
		Timestamp: c.clock.Now(),
		Type:      events.EventTypeTimeTick,
		Payload: events.TimeTickPayload{
			TimeLeftSeconds: c.session.TimeRemaining,
			Score:           c.session.Score,
			Level:           c.session.Level,
			PatientsServed:  c.session.PatientsServed,
		},
		Level: c.session.Level,
	})

	if c.session.TimeRemaining <= 0 {
		c.gameOver()
		return
	}
	metrics.Get().RecordTick(time.Since(started))
}

func (c *SimulationController) onSpawnTick() {
	c.registry.Spawn()
}

func (c *SimulationController) onTreatmentCompleted(kind station.Kind, points int) {
	c.ledger.AwardTreatment(points)

	up, newInterval := c.ledger.EvaluateLevelUp()
	if !up {
		return
	}
	c.eventLog.Append(events.GameEvent{
		ID:        events.NewEventID(),
		Timestamp: c.clock.Now(),
		Type:      events.EventTypeLevelChanged,
		Payload: events.LevelChangedPayload{
			Level:           c.session.Level,
			SpawnIntervalMs: newInterval.Milliseconds(),
		},
		Level: c.session.Level,
	})
	c.logger.Event("LEVEL_UP", "", "Level "+strconv.Itoa(c.session.Level)+" reached, spawn interval "+newInterval.String())

	// Patients arrive faster from now on.
	c.clock.Cancel(c.spawnTick)
	c.spawnTick = c.clock.ScheduleRepeating(newInterval, c.onSpawnTick)
}

func (c *SimulationController) onPatientAbandoned(p *patient.Patient, penalty int) {
	c.ledger.Penalize(penalty)
}

// gameOver ends the session. Every timer dies before the state flips,
// so a stopped session has zero background activity.
func (c *SimulationController) gameOver() {
	final := events.GameOverPayload{
		FinalScore:  c.session.Score,
		FinalServed: c.session.PatientsServed,
		FinalLevel:  c.session.Level,
	}
	c.stopSession()
	c.eventLog.Append(events.GameEvent{
		ID:        events.NewEventID(),
		Timestamp: c.clock.Now(),
		Type:      events.EventTypeGameOver,
		Payload:   final,
		Level:     c.session.Level,
	})
	c.setRunState(RunStateStopped)
	c.logger.Warn("GAME OVER. Final score " + strconv.Itoa(final.FinalScore) +
		", served " + strconv.Itoa(final.FinalServed) +
		", level " + strconv.Itoa(final.FinalLevel))
}

func (c *SimulationController) stopSession() {
	c.clock.CancelAll()
	c.macroTick, c.spawnTick, c.decayTick = 0, 0, 0
	c.registry.Clear()
	c.board.CancelAll()
}

func (c *SimulationController) setRunState(rs RunState) {
	c.session.RunState = rs
	c.eventLog.Append(events.GameEvent{
		ID:        events.NewEventID(),
		Timestamp: c.clock.Now(),
		Type:      events.EventTypeSessionStateChanged,
		Payload:   events.SessionStateChangedPayload{State: string(rs)},
		Level:     c.session.Level,
	})
	c.logger.Event("SESSION_STATE", "", string(rs))
}

func (c *SimulationController) snapshot() Snapshot {
	return Snapshot{
		RunState:        c.session.RunState,
		Score:           c.session.Score,
		Level:           c.session.Level,
		PatientsServed:  c.session.PatientsServed,
		TimeRemaining:   c.session.TimeRemaining,
		SpawnIntervalMs: c.session.SpawnInterval.Milliseconds(),
		Patients:        c.registry.WaitingPatients(),
		Stations:        c.board.Stations(),
	}
}
