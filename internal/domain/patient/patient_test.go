package patient

import (
	"testing"
	"time"

	"github.com/clinicrush/server/internal/domain/station"
)

func TestNewPatientStartsWaitingWithFullPatience(t *testing.T) {
	p := New("P1", "Emily Smith", station.KindConsultation, 10, 15*time.Second)

	if p.State != StateWaiting {
		t.Errorf("Expected new patient to be waiting, got %s", p.State)
	}
	if p.RemainingPatience != p.MaxPatience {
		t.Errorf("Expected full patience reserve, got %v of %v", p.RemainingPatience, p.MaxPatience)
	}
	if p.PatiencePercent() != 100 {
		t.Errorf("Expected 100%% patience, got %d", p.PatiencePercent())
	}
}

func TestDecayPatienceClampsAtZero(t *testing.T) {
	p := New("P1", "James Johnson", station.KindEmergency, 50, 300*time.Millisecond)

	p.DecayPatience(100 * time.Millisecond)
	if p.PatienceFraction() < 0.66 || p.PatienceFraction() > 0.67 {
		t.Errorf("Expected fraction near 2/3 after one step, got %v", p.PatienceFraction())
	}

	p.DecayPatience(time.Second)
	if p.RemainingPatience != 0 {
		t.Errorf("Expected patience clamped at zero, got %v", p.RemainingPatience)
	}
	if p.PatienceFraction() != 0 {
		t.Errorf("Expected zero fraction, got %v", p.PatienceFraction())
	}
}
