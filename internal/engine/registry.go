package engine

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/clinicrush/server/internal/domain/patient"
	"github.com/clinicrush/server/internal/domain/station"
	"github.com/clinicrush/server/internal/events"
	"github.com/clinicrush/server/internal/platform/logger"
)

// decayStep is the patience decay granularity. The decay tick only
// feeds the patience bars; the one-shot abandonment timer is the sole
// authority for the Waiting -> Abandoned transition, so decay reaching
// zero and the timer firing can never double-process a patient.
const decayStep = 100 * time.Millisecond

// PatientRegistry owns every active patient and their abandonment
// timers. Patients in treatment are tracked by ID jointly with the
// StationBoard; the records themselves never leave this registry until
// they reach a terminal state.
type PatientRegistry struct {
	clock    *Clock
	cfg      *Config
	session  *GameSession
	eventLog *events.EventLog
	logger   *logger.Logger
	rng      *rand.Rand

	kinds       []station.Kind // stable order for the weighted draw
	totalWeight int

	waiting       map[string]*patient.Patient
	order         []string // waiting IDs in spawn order
	inTreatment   map[string]*patient.Patient
	abandonTimers map[string]TimerHandle

	// board is queried for occupancy during assignment; wired by the
	// controller after both sides exist.
	board *StationBoard

	onAbandoned func(p *patient.Patient, penalty int)
}

func newPatientRegistry(clock *Clock, cfg *Config, session *GameSession, eventLog *events.EventLog, log *logger.Logger, rng *rand.Rand) *PatientRegistry {
	r := &PatientRegistry{
		clock:         clock,
		cfg:           cfg,
		session:       session,
		eventLog:      eventLog,
		logger:        log,
		rng:           rng,
		kinds:         cfg.Kinds(),
		waiting:       make(map[string]*patient.Patient),
		inTreatment:   make(map[string]*patient.Patient),
		abandonTimers: make(map[string]TimerHandle),
	}
	for _, k := range r.kinds {
		r.totalWeight += cfg.Stations[k].SpawnWeight
	}
	return r
}

// Spawn creates a new waiting patient with a full patience reserve and
// arms its abandonment timer. It is a silent no-op when the waiting
// room is full or the session is not playing.
func (r *PatientRegistry) Spawn() *patient.Patient {
	if r.session.RunState != RunStatePlaying {
		return nil
	}
	if len(r.waiting) >= r.cfg.MaxWaitingPatients {
		return nil
	}

	kind := r.randomKind()
	sc := r.cfg.Stations[kind]
	name := r.cfg.PatientNames[r.rng.Intn(len(r.cfg.PatientNames))]
	p := patient.New(uuid.NewString(), name, kind, sc.BasePoints, sc.Patience)

	r.waiting[p.ID] = p
	r.order = append(r.order, p.ID)

	id := p.ID
	r.abandonTimers[id] = r.clock.ScheduleOnce(sc.Patience, func() {
		r.abandonExpired(id)
	})

	r.eventLog.Append(events.GameEvent{
		ID:        events.NewEventID(),
		Timestamp: r.clock.Now(),
		Type:      events.EventTypePatientSpawned,
		SubjectID: p.ID,
		Payload: events.PatientSpawnedPayload{
			PatientID:  p.ID,
			Name:       p.Name,
			Station:    string(kind),
			BasePoints: sc.BasePoints,
			PatienceMs: sc.Patience.Milliseconds(),
		},
		Level: r.session.Level,
	})
	r.logger.Event("PATIENT_SPAWNED", p.ID, p.Name+" needs "+string(kind))
	return p
}

// randomKind draws a station kind using the configured spawn weights.
func (r *PatientRegistry) randomKind() station.Kind {
	roll := r.rng.Intn(r.totalWeight)
	for _, k := range r.kinds {
		roll -= r.cfg.Stations[k].SpawnWeight
		if roll < 0 {
			return k
		}
	}
	return r.kinds[len(r.kinds)-1]
}

// DecayTick lowers every waiting patient's patience by one step and
// emits the refreshed percentage. It never removes a patient; that is
// the abandonment timer's job.
func (r *PatientRegistry) DecayTick() {
	if r.session.RunState != RunStatePlaying {
		return
	}
	for _, id := range r.order {
		p := r.waiting[id]
		p.DecayPatience(decayStep)
		r.eventLog.Append(events.GameEvent{
			ID:        events.NewEventID(),
			Timestamp: r.clock.Now(),
			Type:      events.EventTypePatienceChanged,
			SubjectID: id,
			Payload: events.PatienceChangedPayload{
				PatientID: id,
				Percent:   p.PatiencePercent(),
			},
			Level: r.session.Level,
		})
	}
}

// AssignToStation moves a waiting patient into treatment, cancelling
// the abandonment timer so it can never fire for an assigned patient.
// Nothing is mutated on any of the three failure paths.
func (r *PatientRegistry) AssignToStation(patientID string, kind station.Kind) (*patient.Patient, error) {
	p, ok := r.waiting[patientID]
	if !ok || p.State != patient.StateWaiting {
		return nil, ErrPatientNotFound
	}
	if p.Station != kind {
		return nil, ErrWrongStation
	}
	if r.board != nil && r.board.IsOccupied(kind) {
		return nil, ErrStationOccupied
	}

	r.cancelAbandonTimer(patientID)
	r.removeFromWaiting(patientID)
	p.State = patient.StateInTreatment
	r.inTreatment[patientID] = p

	r.eventLog.Append(events.GameEvent{
		ID:        events.NewEventID(),
		Timestamp: r.clock.Now(),
		Type:      events.EventTypePatientAssigned,
		SubjectID: p.ID,
		Payload: events.PatientAssignedPayload{
			PatientID: p.ID,
			Station:   string(kind),
		},
		Level: r.session.Level,
	})
	r.logger.Event("PATIENT_ASSIGNED", p.ID, p.Name+" to "+string(kind))
	return p, nil
}

// abandonExpired is the abandonment timer callback. The lifecycle guard
// in Abandon makes a stale fire after assignment a benign no-op.
func (r *PatientRegistry) abandonExpired(patientID string) {
	p, penalty, ok := r.Abandon(patientID)
	if ok && r.onAbandoned != nil {
		r.onAbandoned(p, penalty)
	}
}

// Abandon transitions a waiting patient to Abandoned and reports the
// score penalty. Calling it for a patient in any other lifecycle state
// is a no-op.
func (r *PatientRegistry) Abandon(patientID string) (*patient.Patient, int, bool) {
	p, ok := r.waiting[patientID]
	if !ok || p.State != patient.StateWaiting {
		return nil, 0, false
	}

	r.cancelAbandonTimer(patientID)
	r.removeFromWaiting(patientID)
	p.State = patient.StateAbandoned
	p.RemainingPatience = 0

	r.eventLog.Append(events.GameEvent{
		ID:        events.NewEventID(),
		Timestamp: r.clock.Now(),
		Type:      events.EventTypePatientAbandoned,
		SubjectID: p.ID,
		Payload: events.PatientAbandonedPayload{
			PatientID: p.ID,
			Penalty:   r.cfg.AbandonPenalty,
		},
		Level: r.session.Level,
	})
	r.logger.Event("PATIENT_ABANDONED", p.ID, p.Name+" left angry, -"+strconv.Itoa(r.cfg.AbandonPenalty)+" pts")
	return p, r.cfg.AbandonPenalty, true
}

// Complete transitions an in-treatment patient to Served and removes it
// from the registry, returning the record for points calculation.
func (r *PatientRegistry) Complete(patientID string) (*patient.Patient, error) {
	p, ok := r.inTreatment[patientID]
	if !ok {
		return nil, ErrPatientNotFound
	}
	p.State = patient.StateServed
	delete(r.inTreatment, patientID)
	return p, nil
}

// Clear cancels every abandonment timer and drops all patients. Used on
// start, restart and game over.
func (r *PatientRegistry) Clear() {
	for _, h := range r.abandonTimers {
		r.clock.Cancel(h)
	}
	r.abandonTimers = make(map[string]TimerHandle)
	r.waiting = make(map[string]*patient.Patient)
	r.order = nil
	r.inTreatment = make(map[string]*patient.Patient)
}

// WaitingCount returns the number of patients in the waiting room.
func (r *PatientRegistry) WaitingCount() int {
	return len(r.waiting)
}

// WaitingPatients returns copies of the waiting patients in spawn order.
func (r *PatientRegistry) WaitingPatients() []patient.Patient {
	out := make([]patient.Patient, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.waiting[id])
	}
	return out
}

func (r *PatientRegistry) cancelAbandonTimer(patientID string) {
	if h, ok := r.abandonTimers[patientID]; ok {
		r.clock.Cancel(h)
		delete(r.abandonTimers, patientID)
	}
}

func (r *PatientRegistry) removeFromWaiting(patientID string) {
	delete(r.waiting, patientID)
	for i, id := range r.order {
		if id == patientID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
