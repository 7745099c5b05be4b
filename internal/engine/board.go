package engine

import (
	"strconv"

	"github.com/clinicrush/server/internal/domain/patient"
	"github.com/clinicrush/server/internal/domain/rules"
	"github.com/clinicrush/server/internal/domain/station"
	"github.com/clinicrush/server/internal/events"
	"github.com/clinicrush/server/internal/platform/logger"
)

type stationSlot struct {
	station  *station.Station
	timer    TimerHandle
	hasTimer bool

	// Reward inputs sampled at assignment time; patience does not decay
	// during treatment.
	patienceFraction float64
	basePoints       int
}

// StationBoard owns the fixed set of treatment stations and their
// completion timers. One station exists per configured kind for the
// whole process lifetime; the board holds occupant IDs only, never the
// patient records.
type StationBoard struct {
	clock    *Clock
	cfg      *Config
	session  *GameSession
	eventLog *events.EventLog
	logger   *logger.Logger
	registry *PatientRegistry

	slots map[station.Kind]*stationSlot

	onCompleted func(kind station.Kind, points int)
}

func newStationBoard(clock *Clock, cfg *Config, session *GameSession, eventLog *events.EventLog, log *logger.Logger) *StationBoard {
	b := &StationBoard{
		clock:    clock,
		cfg:      cfg,
		session:  session,
		eventLog: eventLog,
		logger:   log,
		slots:    make(map[station.Kind]*stationSlot),
	}
	for kind := range cfg.Stations {
		b.slots[kind] = &stationSlot{station: station.New(kind)}
	}
	return b
}

// BeginTreatment marks the station occupied and schedules its
// completion timer. The occupancy check here is a second guard behind
// the registry's assignment path.
func (b *StationBoard) BeginTreatment(p *patient.Patient, kind station.Kind) error {
	slot := b.slots[kind]
	if slot == nil {
		return ErrWrongStation
	}
	if slot.station.IsOccupied() {
		return ErrStationOccupied
	}

	slot.station.Occupy(p.ID)
	slot.patienceFraction = p.PatienceFraction()
	slot.basePoints = p.BasePoints
	slot.timer = b.clock.ScheduleOnce(b.cfg.Stations[kind].TreatmentDuration, func() {
		b.finishTreatment(kind)
	})
	slot.hasTimer = true

	b.logger.Event("TREATMENT_STARTED", p.ID, p.Name+" at "+string(kind))
	return nil
}

// finishTreatment is the completion timer callback. It completes the
// occupant in the registry, computes the reward and frees the station.
func (b *StationBoard) finishTreatment(kind station.Kind) {
	slot := b.slots[kind]
	if slot == nil || !slot.station.IsOccupied() {
		return // stale fire, station already cleared
	}
	occupantID := slot.station.OccupantID
	slot.hasTimer = false
	slot.station.Clear()

	p, err := b.registry.Complete(occupantID)
	if err != nil {
		// Occupant already left the registry; nothing to score.
		return
	}

	points := rules.TreatmentReward(slot.basePoints, slot.patienceFraction)
	b.eventLog.Append(events.GameEvent{
		ID:        events.NewEventID(),
		Timestamp: b.clock.Now(),
		Type:      events.EventTypeTreatmentCompleted,
		SubjectID: string(kind),
		Payload: events.TreatmentCompletedPayload{
			Station:   string(kind),
			PatientID: p.ID,
			Points:    points,
		},
		Level: b.session.Level,
	})
	b.logger.Event("TREATMENT_COMPLETED", p.ID, p.Name+" treated, +"+strconv.Itoa(points)+" pts")

	if b.onCompleted != nil {
		b.onCompleted(kind, points)
	}
}

// CancelAll clears every pending treatment timer and frees the
// stations. Used on stop, restart and game over.
func (b *StationBoard) CancelAll() {
	for _, slot := range b.slots {
		if slot.hasTimer {
			b.clock.Cancel(slot.timer)
			slot.hasTimer = false
		}
		slot.station.Clear()
	}
}

// IsOccupied reports whether the station for kind is busy.
func (b *StationBoard) IsOccupied(kind station.Kind) bool {
	slot := b.slots[kind]
	return slot != nil && slot.station.IsOccupied()
}

// Stations returns copies of all stations in a stable kind order.
func (b *StationBoard) Stations() []station.Station {
	out := make([]station.Station, 0, len(b.slots))
	for _, kind := range b.cfg.Kinds() {
		out = append(out, *b.slots[kind].station)
	}
	return out
}
