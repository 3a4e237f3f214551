package service

import "github.com/cardea-access/cardea/internal/cardea/types"

const (
	reasonNoSignal           = "no signal"
	reasonInsufficientSignal = "insufficient signal"
)

// checkProximity is the beacon pre-check that runs before any rule
// evaluation. Doors without proximity enabled always pass. RSSI values are
// negative dBm; "stronger" is the numerically larger value, so a -60 reading
// passes a -70 minimum.
func checkProximity(door types.Door, reading *types.ProximityReading) (bool, string) {
	if !door.Proximity.Enabled {
		return true, ""
	}
	if reading == nil {
		return false, reasonNoSignal
	}
	if reading.SignalDbm < door.Proximity.MinimumRSSI {
		return false, reasonInsufficientSignal
	}
	return true, ""
}
