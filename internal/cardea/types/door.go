package types

import "time"

// DoorStatus is the operational state of a door. Only ACTIVE doors are
// eligible for rule evaluation; everything else fails closed.
type DoorStatus string

const (
	DoorActive      DoorStatus = "ACTIVE"
	DoorInactive    DoorStatus = "INACTIVE"
	DoorMaintenance DoorStatus = "MAINTENANCE"
)

// ProximityConfig configures the beacon pre-check for a door.
// MinimumRSSI is a dBm value (negative); a reading passes when it is
// numerically >= the threshold, i.e. -60 passes a -70 minimum.
type ProximityConfig struct {
	Enabled     bool   `json:"enabled"`
	BeaconID    string `json:"beacon_id,omitempty"`
	MinimumRSSI int    `json:"minimum_rssi,omitempty"`
}

// Door is a physical access point. A door belongs to exactly one tenant;
// rules always reference a door within the same tenant.
type Door struct {
	ID                  string          `json:"id"`
	TenantID            string          `json:"tenant_id"`
	Name                string          `json:"name"`
	Location            string          `json:"location,omitempty"`
	Status              DoorStatus      `json:"status"`
	Online              bool            `json:"online"`
	RequiresCredential  bool            `json:"requires_credential"`
	AllowManualOverride bool            `json:"allow_manual_override"`
	MainEntrance        bool            `json:"main_entrance"`
	UnlockHold          time.Duration   `json:"unlock_hold"`
	Timezone            string          `json:"timezone"` // tenant business timezone, IANA name
	Proximity           ProximityConfig `json:"proximity"`
}

// ProximityReading is a beacon signal-strength sample supplied by the caller.
type ProximityReading struct {
	BeaconID  string `json:"beacon_id,omitempty"`
	SignalDbm int    `json:"signal_dbm"`
}
