package rules

import (
	"testing"
	"time"
)

func TestTreatmentReward(t *testing.T) {
	cases := []struct {
		name       string
		basePoints int
		fraction   float64
		want       int
	}{
		{"full patience", 10, 1.0, 60},
		{"half patience", 10, 0.5, 35},
		{"no patience left", 10, 0.0, 10},
		{"fraction above one clamps", 25, 1.7, 75},
		{"negative fraction clamps", 25, -0.3, 25},
	}

	for _, tc := range cases {
		got := TreatmentReward(tc.basePoints, tc.fraction)
		if got != tc.want {
			t.Errorf("%s: TreatmentReward(%d, %v) = %d, want %d", tc.name, tc.basePoints, tc.fraction, got, tc.want)
		}
	}
}

func TestLevelThreshold(t *testing.T) {
	if got := LevelThreshold(1, 5); got != 5 {
		t.Errorf("Expected level 1 threshold of 5, got %d", got)
	}
	if got := LevelThreshold(3, 5); got != 15 {
		t.Errorf("Expected level 3 threshold of 15, got %d", got)
	}
}

func TestApplyPenaltyNeverNegative(t *testing.T) {
	if got := ApplyPenalty(50, 20); got != 30 {
		t.Errorf("Expected 30 after penalty, got %d", got)
	}
	if got := ApplyPenalty(10, 20); got != 0 {
		t.Errorf("Expected score clamped at 0, got %d", got)
	}
	if got := ApplyPenalty(10, -20); got != 0 {
		t.Errorf("Expected negative penalty treated as magnitude, got %d", got)
	}
}

func TestNextSpawnInterval(t *testing.T) {
	got := NextSpawnInterval(2000*time.Millisecond, 200*time.Millisecond, 1500*time.Millisecond)
	if got != 1800*time.Millisecond {
		t.Errorf("Expected 1.8s interval, got %v", got)
	}

	got = NextSpawnInterval(1600*time.Millisecond, 200*time.Millisecond, 1500*time.Millisecond)
	if got != 1500*time.Millisecond {
		t.Errorf("Expected interval clamped to the floor, got %v", got)
	}

	got = NextSpawnInterval(1500*time.Millisecond, 200*time.Millisecond, 1500*time.Millisecond)
	if got != 1500*time.Millisecond {
		t.Errorf("Expected interval to stay at the floor, got %v", got)
	}
}
