package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/clinicrush/server/internal/domain/station"
)

// StationConfig describes one treatment station kind.
type StationConfig struct {
	TreatmentDuration time.Duration
	Patience          time.Duration
	BasePoints        int
	SpawnWeight       int
}

// Config holds every tunable of the simulation. All values are fixed at
// construction; Validate rejects configurations that would produce
// undefined runtime behavior.
type Config struct {
	GameDuration             time.Duration
	MaxWaitingPatients       int
	InitialSpawnInterval     time.Duration
	SpawnIntervalFloor       time.Duration
	SpawnIntervalStep        time.Duration
	LevelUpPatientMultiplier int
	LevelUpTimeBonus         time.Duration
	AbandonPenalty           int

	Stations     map[station.Kind]StationConfig
	PatientNames []string

	// Seed for the spawn RNG; 0 seeds from the wall clock.
	Seed int64
}

// DefaultConfig mirrors the original arcade tuning.
func DefaultConfig() *Config {
	return &Config{
		GameDuration:             60 * time.Second,
		MaxWaitingPatients:       4,
		InitialSpawnInterval:     2000 * time.Millisecond,
		SpawnIntervalFloor:       1500 * time.Millisecond,
		SpawnIntervalStep:        200 * time.Millisecond,
		LevelUpPatientMultiplier: 5,
		LevelUpTimeBonus:         20 * time.Second,
		AbandonPenalty:           20,
		Stations: map[station.Kind]StationConfig{
			station.KindConsultation: {TreatmentDuration: 2000 * time.Millisecond, Patience: 15 * time.Second, BasePoints: 10, SpawnWeight: 50},
			station.KindSurgery:      {TreatmentDuration: 4000 * time.Millisecond, Patience: 20 * time.Second, BasePoints: 25, SpawnWeight: 30},
			station.KindRadiology:    {TreatmentDuration: 3000 * time.Millisecond, Patience: 18 * time.Second, BasePoints: 20, SpawnWeight: 15},
			station.KindEmergency:    {TreatmentDuration: 1500 * time.Millisecond, Patience: 3 * time.Second, BasePoints: 50, SpawnWeight: 5},
		},
		PatientNames: []string{
			"Emily Smith", "James Johnson", "Olivia Brown", "Michael Davis", "Sophia Wilson",
			"Daniel Miller", "Emma Taylor", "William Anderson", "Ava Thomas", "John Moore",
			"Lily Jackson", "David White", "Chloe Harris", "Jhon Martin", "Grace Lewis",
		},
	}
}

// Validate checks basic sanity. Construction fails fast on a bad config
// instead of producing undefined runtime behavior.
func (c *Config) Validate() error {
	if c.GameDuration <= 0 {
		return fmt.Errorf("game duration must be positive, got %v", c.GameDuration)
	}
	if c.MaxWaitingPatients <= 0 {
		return fmt.Errorf("max waiting patients must be positive, got %d", c.MaxWaitingPatients)
	}
	if c.InitialSpawnInterval <= 0 {
		return fmt.Errorf("initial spawn interval must be positive, got %v", c.InitialSpawnInterval)
	}
	if c.SpawnIntervalFloor <= 0 || c.SpawnIntervalFloor > c.InitialSpawnInterval {
		return fmt.Errorf("spawn interval floor %v must be positive and at most the initial interval %v", c.SpawnIntervalFloor, c.InitialSpawnInterval)
	}
	if c.SpawnIntervalStep < 0 {
		return fmt.Errorf("spawn interval step must not be negative, got %v", c.SpawnIntervalStep)
	}
	if c.LevelUpPatientMultiplier <= 0 {
		return fmt.Errorf("level-up patient multiplier must be positive, got %d", c.LevelUpPatientMultiplier)
	}
	if c.LevelUpTimeBonus < 0 {
		return fmt.Errorf("level-up time bonus must not be negative, got %v", c.LevelUpTimeBonus)
	}
	if c.AbandonPenalty < 0 {
		return fmt.Errorf("abandon penalty must not be negative, got %d", c.AbandonPenalty)
	}
	if len(c.Stations) == 0 {
		return fmt.Errorf("at least one station kind must be configured")
	}
	totalWeight := 0
	for kind, sc := range c.Stations {
		if sc.TreatmentDuration <= 0 {
			return fmt.Errorf("station %s: treatment duration must be positive, got %v", kind, sc.TreatmentDuration)
		}
		if sc.Patience <= 0 {
			return fmt.Errorf("station %s: patience must be positive, got %v", kind, sc.Patience)
		}
		if sc.BasePoints < 0 {
			return fmt.Errorf("station %s: base points must not be negative, got %d", kind, sc.BasePoints)
		}
		if sc.SpawnWeight < 0 {
			return fmt.Errorf("station %s: spawn weight must not be negative, got %d", kind, sc.SpawnWeight)
		}
		totalWeight += sc.SpawnWeight
	}
	if totalWeight <= 0 {
		return fmt.Errorf("total spawn weight must be positive")
	}
	if len(c.PatientNames) == 0 {
		return fmt.Errorf("patient name pool must not be empty")
	}
	for i, name := range c.PatientNames {
		if name == "" {
			return fmt.Errorf("patient name %d is empty", i)
		}
	}
	return nil
}

// Kinds returns the configured station kinds in a stable order. The
// weighted spawn draw iterates this so a seeded RNG stays reproducible.
func (c *Config) Kinds() []station.Kind {
	kinds := make([]station.Kind, 0, len(c.Stations))
	for k := range c.Stations {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
