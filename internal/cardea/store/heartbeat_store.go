package store

import (
	"context"
	"time"
)

// HeartbeatRecord is one liveness report from a door controller.
type HeartbeatRecord struct {
	TenantID        string
	DoorID          string
	ReceivedAt      time.Time
	FirmwareVersion string
	UptimeSeconds   uint64
	RSSIDbm         *int
	IP              string
}

// HeartbeatStore keeps a bounded history of controller heartbeats.
// History is prunable; the access log is not.
type HeartbeatStore interface {
	Insert(ctx context.Context, rec HeartbeatRecord) error
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
