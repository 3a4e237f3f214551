package service

import (
	"testing"

	"github.com/cardea-access/cardea/internal/cardea/types"
)

func proximityDoor(minRSSI int) types.Door {
	return types.Door{
		Proximity: types.ProximityConfig{Enabled: true, MinimumRSSI: minRSSI},
	}
}

func TestCheckProximity_DisabledAlwaysPasses(t *testing.T) {
	door := types.Door{}

	if pass, _ := checkProximity(door, nil); !pass {
		t.Error("disabled proximity must pass without a reading")
	}
	if pass, _ := checkProximity(door, &types.ProximityReading{SignalDbm: -120}); !pass {
		t.Error("disabled proximity must pass regardless of reading")
	}
}

func TestCheckProximity_NoReading(t *testing.T) {
	pass, reason := checkProximity(proximityDoor(-70), nil)
	if pass {
		t.Error("expected failure without a reading")
	}
	if reason != "no signal" {
		t.Errorf("expected reason %q, got %q", "no signal", reason)
	}
}

func TestCheckProximity_Boundary(t *testing.T) {
	door := proximityDoor(-70)

	for dbm, want := range map[int]bool{-70: true, -71: false, -69: true} {
		pass, reason := checkProximity(door, &types.ProximityReading{SignalDbm: dbm})
		if pass != want {
			t.Errorf("reading %d dBm against -70 minimum: pass=%v, want %v", dbm, pass, want)
		}
		if !pass && reason != "insufficient signal" {
			t.Errorf("reading %d dBm: expected reason %q, got %q", dbm, "insufficient signal", reason)
		}
	}
}
