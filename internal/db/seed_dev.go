package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev inserts a demo tenant with one proximity-gated door, a couple of
// rules, and two directory users. Idempotent; safe to run on every dev boot.
func SeedDev(ctx context.Context, db *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO doors(
  tenant_id, door_id, name, location, status, requires_credential,
  main_entrance, timezone, proximity_enabled, beacon_id, minimum_rssi,
  created_at_ms, updated_at_ms
) VALUES ('tenant_demo', 'door_main', 'Main Entrance', 'Lobby', 'ACTIVE', 1,
  1, 'Europe/Berlin', 1, 'beacon-01', -70, ?, ?);`, now, now); err != nil {
		return fmt.Errorf("seed doors: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO access_rules(
  rule_id, tenant_id, door_id, name, rule_type, priority, active,
  allowed_roles, allowed_statuses, allowed_user_ids, time_slots,
  created_at_ms, updated_at_ms
) VALUES
  ('rule_staff', 'tenant_demo', 'door_main', 'Staff all hours', 'ROLE', 100, 1,
   '["ADMIN","TRAINER"]', NULL, NULL, NULL, ?, ?),
  ('rule_members', 'tenant_demo', 'door_main', 'Members opening hours', 'MEMBERSHIP', 50, 1,
   NULL, '["ACTIVE"]', NULL,
   '[{"day":1,"start":"06:00","end":"22:00"},{"day":2,"start":"06:00","end":"22:00"},{"day":3,"start":"06:00","end":"22:00"},{"day":4,"start":"06:00","end":"22:00"},{"day":5,"start":"06:00","end":"22:00"},{"day":6,"start":"08:00","end":"20:00"},{"day":0,"start":"08:00","end":"20:00"}]',
   ?, ?);`, now, now, now, now); err != nil {
		return fmt.Errorf("seed rules: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO users(tenant_id, user_id, role, membership_status, created_at_ms, updated_at_ms)
VALUES
  ('tenant_demo', 'user_admin', 'ADMIN', '', ?, ?),
  ('tenant_demo', 'user_member', 'CUSTOMER', 'ACTIVE', ?, ?);`,
		now, now, now, now); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	return nil
}
