package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/cardea-access/cardea/internal/cardea/store"
	"github.com/cardea-access/cardea/internal/cardea/store/sqlite"
)

func TestHeartbeatStore_InsertAndPrune(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	hb := sqlite.NewHeartbeatStore(conn, writer)
	ctx := context.Background()

	now := time.Now().UTC()
	rssi := -55
	recs := []store.HeartbeatRecord{
		{TenantID: "t1", DoorID: "d1", ReceivedAt: now.Add(-48 * time.Hour), FirmwareVersion: "1.0.0"},
		{TenantID: "t1", DoorID: "d1", ReceivedAt: now.Add(-1 * time.Hour), RSSIDbm: &rssi, UptimeSeconds: 300},
		{TenantID: "t1", DoorID: "d1", ReceivedAt: now, IP: "10.0.0.5"},
	}
	for i, r := range recs {
		if err := hb.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	deleted, err := hb.PruneOlderThan(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 row pruned, got %d", deleted)
	}

	var remaining int
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM door_heartbeats;").Scan(&remaining); err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 2 {
		t.Errorf("expected 2 rows remaining, got %d", remaining)
	}
}

func TestHeartbeatStore_PruneNothingToDo(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	hb := sqlite.NewHeartbeatStore(conn, writer)

	deleted, err := hb.PruneOlderThan(context.Background(), time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("PruneOlderThan: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 rows pruned, got %d", deleted)
	}
}
