package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cardea-access/cardea/internal/cardea/store"
)

// HeartbeatRequest is a liveness report from a door controller.
type HeartbeatRequest struct {
	TenantID        string `json:"tenant_id"`
	DoorID          string `json:"door_id"`
	FirmwareVersion string `json:"firmware_version,omitempty"`
	UptimeSeconds   uint64 `json:"uptime_s,omitempty"`
	RSSIDbm         *int   `json:"rssi_dbm,omitempty"`
	IP              string `json:"ip,omitempty"`
}

type HeartbeatResponse struct {
	OK         bool   `json:"ok"`
	Known      bool   `json:"known"`
	DoorID     string `json:"door_id"`
	ServerTime string `json:"server_time"`
}

// HeartbeatService records controller heartbeats and keeps the door's online
// flag current. Heartbeats from unknown doors are accepted and stored (they
// are useful when commissioning hardware) but do not flip any online flag.
type HeartbeatService struct {
	heartbeats store.HeartbeatStore
	doors      store.DoorStore
	logger     *slog.Logger
}

func NewHeartbeatService(hs store.HeartbeatStore, doors store.DoorStore, logger *slog.Logger) *HeartbeatService {
	return &HeartbeatService{heartbeats: hs, doors: doors, logger: logger}
}

func (s *HeartbeatService) Record(ctx context.Context, req HeartbeatRequest) (HeartbeatResponse, error) {
	tenantID := strings.TrimSpace(req.TenantID)
	doorID := strings.TrimSpace(req.DoorID)
	if tenantID == "" {
		return HeartbeatResponse{}, ErrInvalidTenantID
	}
	if doorID == "" {
		return HeartbeatResponse{}, ErrInvalidDoorID
	}

	now := time.Now().UTC()

	known := true
	_, err := s.doors.GetDoor(ctx, tenantID, doorID)
	switch {
	case errors.Is(err, store.ErrDoorNotFound):
		known = false
	case err != nil:
		return HeartbeatResponse{}, err
	}

	rec := store.HeartbeatRecord{
		TenantID:        tenantID,
		DoorID:          doorID,
		ReceivedAt:      now,
		FirmwareVersion: strings.TrimSpace(req.FirmwareVersion),
		UptimeSeconds:   req.UptimeSeconds,
		RSSIDbm:         req.RSSIDbm,
		IP:              strings.TrimSpace(req.IP),
	}
	if err := s.heartbeats.Insert(ctx, rec); err != nil {
		return HeartbeatResponse{}, err
	}

	if known {
		// Heartbeat history is already recorded; a stuck online flag is an
		// operator problem, not the controller's.
		if err := s.doors.SetOnline(ctx, tenantID, doorID, true, now); err != nil {
			s.logger.Warn("heartbeat: online flag update failed",
				"tenant", tenantID, "door", doorID, "error", err)
		}
	}

	return HeartbeatResponse{
		OK:         true,
		Known:      known,
		DoorID:     doorID,
		ServerTime: now.Format(time.RFC3339Nano),
	}, nil
}
