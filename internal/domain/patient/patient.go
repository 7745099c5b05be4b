// Package patient defines the core domain entity for clinic visitors.
// This package is PURE and must NOT import any infrastructure packages
// (network, events, platform).
package patient

import (
	"time"

	"github.com/clinicrush/server/internal/domain/station"
)

// LifecycleState tracks where a patient is in their visit.
// Waiting -> {InTreatment, Abandoned}; InTreatment -> Served.
// Served and Abandoned are terminal; nothing leads back to Waiting.
type LifecycleState string

const (
	StateWaiting     LifecycleState = "WAITING"
	StateInTreatment LifecycleState = "IN_TREATMENT"
	StateServed      LifecycleState = "SERVED"
	StateAbandoned   LifecycleState = "ABANDONED"
)

// Patient represents one clinic visitor. The registry owns the record
// for the patient's whole lifetime; everything else refers to it by ID.
type Patient struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Station           station.Kind   `json:"station"`
	BasePoints        int            `json:"base_points"`
	MaxPatience       time.Duration  `json:"max_patience_ms"`
	RemainingPatience time.Duration  `json:"remaining_patience_ms"`
	State             LifecycleState `json:"state"`
}

// New creates a waiting patient with a full patience reserve.
func New(id, name string, kind station.Kind, basePoints int, patience time.Duration) *Patient {
	return &Patient{
		ID:                id,
		Name:              name,
		Station:           kind,
		BasePoints:        basePoints,
		MaxPatience:       patience,
		RemainingPatience: patience,
		State:             StateWaiting,
	}
}

// DecayPatience lowers the remaining patience by step, clamped at zero.
func (p *Patient) DecayPatience(step time.Duration) {
	p.RemainingPatience -= step
	if p.RemainingPatience < 0 {
		p.RemainingPatience = 0
	}
}

// PatienceFraction is remaining/max in [0, 1].
func (p *Patient) PatienceFraction() float64 {
	if p.MaxPatience <= 0 {
		return 0
	}
	f := float64(p.RemainingPatience) / float64(p.MaxPatience)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// PatiencePercent is the patience bar value shown to the player.
func (p *Patient) PatiencePercent() int {
	return int(p.PatienceFraction() * 100)
}
