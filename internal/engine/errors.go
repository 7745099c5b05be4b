package engine

import "errors"

// Error kinds surfaced to the presentation layer. None of them leave
// the simulation in a mutated state, and none are fatal: the engine has
// no unrecoverable states reachable through its public contract.
var (
	ErrInvalidTransition = errors.New("invalid session state transition")
	ErrPatientNotFound   = errors.New("patient not found in waiting room")
	ErrWrongStation      = errors.New("patient requires a different station")
	ErrStationOccupied   = errors.New("station is already occupied")
)
