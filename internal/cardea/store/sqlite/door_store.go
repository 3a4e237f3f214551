// Package sqlite implements the store interfaces on modernc.org/sqlite.
// All writes go through the single-writer db.Worker; reads hit the
// connection directly.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/cardea-access/cardea/internal/db"

	"github.com/cardea-access/cardea/internal/cardea/store"
	"github.com/cardea-access/cardea/internal/cardea/types"
)

type DoorStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewDoorStore(db *sql.DB, writer *dbpkg.Worker) *DoorStore {
	return &DoorStore{db: db, writer: writer}
}

func (s *DoorStore) GetDoor(ctx context.Context, tenantID, doorID string) (types.Door, error) {
	var (
		d        types.Door
		online   int
		reqCred  int
		override int
		mainEnt  int
		holdMs   int64
		proxOn   int
		beaconID sql.NullString
		minRSSI  sql.NullInt64
	)

	err := s.db.QueryRowContext(ctx, `
SELECT door_id, tenant_id, name, location, status, online,
       requires_credential, allow_manual_override, main_entrance,
       unlock_hold_ms, timezone, proximity_enabled, beacon_id, minimum_rssi
FROM doors
WHERE tenant_id = ? AND door_id = ?;
`, tenantID, doorID).Scan(
		&d.ID, &d.TenantID, &d.Name, &d.Location, &d.Status, &online,
		&reqCred, &override, &mainEnt,
		&holdMs, &d.Timezone, &proxOn, &beaconID, &minRSSI,
	)
	if err == sql.ErrNoRows {
		return types.Door{}, store.ErrDoorNotFound
	}
	if err != nil {
		return types.Door{}, fmt.Errorf("GetDoor query: %w", err)
	}

	d.Online = online == 1
	d.RequiresCredential = reqCred == 1
	d.AllowManualOverride = override == 1
	d.MainEntrance = mainEnt == 1
	d.UnlockHold = time.Duration(holdMs) * time.Millisecond
	d.Proximity.Enabled = proxOn == 1
	if beaconID.Valid {
		d.Proximity.BeaconID = beaconID.String
	}
	if minRSSI.Valid {
		d.Proximity.MinimumRSSI = int(minRSSI.Int64)
	}

	return d, nil
}

func (s *DoorStore) PutDoor(ctx context.Context, door types.Door) error {
	now := time.Now().UTC().UnixMilli()

	var beaconID any
	if door.Proximity.BeaconID != "" {
		beaconID = door.Proximity.BeaconID
	}
	var minRSSI any
	if door.Proximity.Enabled {
		minRSSI = door.Proximity.MinimumRSSI
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO doors(
  tenant_id, door_id, name, location, status, online,
  requires_credential, allow_manual_override, main_entrance,
  unlock_hold_ms, timezone, proximity_enabled, beacon_id, minimum_rssi,
  created_at_ms, updated_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(tenant_id, door_id) DO UPDATE SET
  name = excluded.name,
  location = excluded.location,
  status = excluded.status,
  requires_credential = excluded.requires_credential,
  allow_manual_override = excluded.allow_manual_override,
  main_entrance = excluded.main_entrance,
  unlock_hold_ms = excluded.unlock_hold_ms,
  timezone = excluded.timezone,
  proximity_enabled = excluded.proximity_enabled,
  beacon_id = excluded.beacon_id,
  minimum_rssi = excluded.minimum_rssi,
  updated_at_ms = excluded.updated_at_ms;
`,
			door.TenantID, door.ID, door.Name, door.Location, string(door.Status), b2i(door.Online),
			b2i(door.RequiresCredential), b2i(door.AllowManualOverride), b2i(door.MainEntrance),
			door.UnlockHold.Milliseconds(), door.Timezone, b2i(door.Proximity.Enabled), beaconID, minRSSI,
			now, now,
		); err != nil {
			return fmt.Errorf("PutDoor upsert: %w", err)
		}
		return nil
	})
}

func (s *DoorStore) SetOnline(ctx context.Context, tenantID, doorID string, online bool, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	ms := at.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE doors
SET online = ?, last_seen_at_ms = ?, updated_at_ms = ?
WHERE tenant_id = ? AND door_id = ?;
`, b2i(online), ms, ms, tenantID, doorID)
		if err != nil {
			return fmt.Errorf("SetOnline update: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrDoorNotFound
		}
		return nil
	})
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
