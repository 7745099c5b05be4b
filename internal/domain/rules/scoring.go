// Package rules contains the pure calculation logic for game mechanics.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import "time"

// PatienceBonusMax is the extra reward for treating a patient the
// instant they walk in. The bonus scales linearly with the patience
// they had left when assigned.
const PatienceBonusMax = 50

// TreatmentReward computes the points for a completed treatment:
// basePoints + floor(patienceFraction * PatienceBonusMax). The fraction
// is sampled at assignment time, not decayed further during treatment.
func TreatmentReward(basePoints int, patienceFraction float64) int {
	if patienceFraction < 0 {
		patienceFraction = 0
	}
	if patienceFraction > 1 {
		patienceFraction = 1
	}
	return basePoints + int(patienceFraction*PatienceBonusMax)
}

// LevelThreshold is the cumulative served-patient count required to
// move past the given level.
func LevelThreshold(level, multiplier int) int {
	return level * multiplier
}

// ApplyPenalty subtracts |penalty| from score. The score never goes
// negative.
func ApplyPenalty(score, penalty int) int {
	if penalty < 0 {
		penalty = -penalty
	}
	score -= penalty
	if score < 0 {
		score = 0
	}
	return score
}

// NextSpawnInterval tightens the spawn cadence by step, floored so the
// game stays playable at high levels.
func NextSpawnInterval(current, step, floor time.Duration) time.Duration {
	next := current - step
	if next < floor {
		next = floor
	}
	return next
}
