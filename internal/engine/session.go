package engine

import "time"

// RunState is the lifecycle state of a game session.
// Stopped -> Playing <-> Paused; Playing/Paused -> Stopped.
type RunState string

const (
	RunStateStopped RunState = "STOPPED"
	RunStatePlaying RunState = "PLAYING"
	RunStatePaused  RunState = "PAUSED"
)

// GameSession holds the per-session counters. It is created once and
// reset in place at the start of every run. While the state is Stopped
// no timer of any kind may be pending.
type GameSession struct {
	RunState       RunState
	Score          int
	Level          int
	PatientsServed int
	TimeRemaining  int // seconds
	SpawnInterval  time.Duration
}

func newGameSession(cfg *Config) *GameSession {
	s := &GameSession{RunState: RunStateStopped}
	s.reset(cfg)
	return s
}

// reset restores start-of-session values without touching RunState.
func (s *GameSession) reset(cfg *Config) {
	s.Score = 0
	s.Level = 1
	s.PatientsServed = 0
	s.TimeRemaining = int(cfg.GameDuration / time.Second)
	s.SpawnInterval = cfg.InitialSpawnInterval
}
