// Package station defines the treatment station entities for the clinic.
// This package is PURE and must NOT import any infrastructure packages.
package station

// Kind identifies the category of treatment a station provides. Exactly
// one station exists per configured kind.
type Kind string

const (
	KindConsultation Kind = "consultation"
	KindSurgery      Kind = "surgery"
	KindRadiology    Kind = "radiology"
	KindEmergency    Kind = "emergency"
)

// State is the occupancy state of a station.
type State string

const (
	StateAvailable State = "AVAILABLE"
	StateOccupied  State = "OCCUPIED"
)

// Station represents one treatment post. OccupantID is set iff the
// station is occupied.
type Station struct {
	Kind       Kind   `json:"kind"`
	State      State  `json:"state"`
	OccupantID string `json:"occupant_id,omitempty"`
}

// New creates an available station of the given kind.
func New(kind Kind) *Station {
	return &Station{Kind: kind, State: StateAvailable}
}

func (s *Station) IsOccupied() bool {
	return s.State == StateOccupied
}

// Occupy assigns a patient to the station.
func (s *Station) Occupy(patientID string) {
	s.State = StateOccupied
	s.OccupantID = patientID
}

// Clear frees the station.
func (s *Station) Clear() {
	s.State = StateAvailable
	s.OccupantID = ""
}
