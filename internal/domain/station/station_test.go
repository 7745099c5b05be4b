package station

import "testing"

func TestOccupyAndClear(t *testing.T) {
	s := New(KindSurgery)

	if s.IsOccupied() {
		t.Errorf("Expected a new station to be available")
	}

	s.Occupy("P1")
	if !s.IsOccupied() {
		t.Errorf("Expected station to be occupied after Occupy")
	}
	if s.OccupantID != "P1" {
		t.Errorf("Expected occupant P1, got %s", s.OccupantID)
	}

	s.Clear()
	if s.IsOccupied() || s.OccupantID != "" {
		t.Errorf("Expected station cleared, got state %s occupant %q", s.State, s.OccupantID)
	}
}
