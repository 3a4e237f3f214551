package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/cardea-access/cardea/internal/db"

	"github.com/cardea-access/cardea/internal/cardea/store"
)

type HeartbeatStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewHeartbeatStore(db *sql.DB, writer *dbpkg.Worker) *HeartbeatStore {
	return &HeartbeatStore{db: db, writer: writer}
}

func (s *HeartbeatStore) Insert(ctx context.Context, rec store.HeartbeatRecord) error {
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	recvMs := rec.ReceivedAt.UTC().UnixMilli()

	var rssi any
	if rec.RSSIDbm != nil {
		rssi = *rec.RSSIDbm
	}

	var uptimeMs any
	if rec.UptimeSeconds != 0 {
		uptimeMs = int64(rec.UptimeSeconds) * 1000
	}

	var fw any
	if rec.FirmwareVersion != "" {
		fw = rec.FirmwareVersion
	}
	var ip any
	if rec.IP != "" {
		ip = rec.IP
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO door_heartbeats(
  tenant_id, door_id, received_at_ms, fw_version, uptime_ms, rssi_dbm, ip
) VALUES (?, ?, ?, ?, ?, ?, ?);
`, rec.TenantID, rec.DoorID, recvMs, fw, uptimeMs, rssi, ip); err != nil {
			return fmt.Errorf("Insert heartbeat: %w", err)
		}
		return nil
	})
}

// PruneOlderThan deletes heartbeat rows with received_at_ms before the given
// cutoff time. Returns the number of rows deleted.
//
// Uses the idx_heartbeats_time index for an efficient range scan.
func (s *HeartbeatStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM door_heartbeats
WHERE received_at_ms < ?;
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}
