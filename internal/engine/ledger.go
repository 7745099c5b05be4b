package engine

import (
	"time"

	"github.com/clinicrush/server/internal/domain/rules"
)

// ScoringLedger owns the score, the served counter and the level
// progression of the active session.
type ScoringLedger struct {
	session *GameSession
	cfg     *Config
}

func newScoringLedger(session *GameSession, cfg *Config) *ScoringLedger {
	return &ScoringLedger{session: session, cfg: cfg}
}

// Award adds points without counting a served patient (corrective
// calls).
func (l *ScoringLedger) Award(points int) {
	l.session.Score += points
}

// AwardTreatment adds points for a completed treatment and counts the
// patient as served.
func (l *ScoringLedger) AwardTreatment(points int) {
	l.session.Score += points
	l.session.PatientsServed++
}

// Penalize subtracts |points|. The score never goes negative.
func (l *ScoringLedger) Penalize(points int) {
	l.session.Score = rules.ApplyPenalty(l.session.Score, points)
}

// EvaluateLevelUp checks the served-patient threshold. On a level-up it
// grants the time bonus, tightens the spawn interval and reports the
// new interval so the controller can reschedule the spawn tick.
func (l *ScoringLedger) EvaluateLevelUp() (bool, time.Duration) {
	threshold := rules.LevelThreshold(l.session.Level, l.cfg.LevelUpPatientMultiplier)
	if l.session.PatientsServed < threshold {
		return false, l.session.SpawnInterval
	}

	l.session.Level++
	l.session.TimeRemaining += int(l.cfg.LevelUpTimeBonus / time.Second)
	l.session.SpawnInterval = rules.NextSpawnInterval(
		l.session.SpawnInterval, l.cfg.SpawnIntervalStep, l.cfg.SpawnIntervalFloor)
	return true, l.session.SpawnInterval
}
