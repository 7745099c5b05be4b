// Package engine contains the clinic simulation: the patient lifecycle
// state machine, station scheduling, scoring and the timer-driven
// session progression.
//
// ARCHITECTURAL RULE: all mutation happens on the Clock's single
// simulation thread. The presentation layer enters through the
// SimulationController's public methods, which hop onto that thread;
// it reads Snapshots and the event log, never the live state.
package engine
