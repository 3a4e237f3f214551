package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cardea-access/cardea/internal/cardea/store"
	"github.com/cardea-access/cardea/internal/cardea/store/sqlite"
	"github.com/cardea-access/cardea/internal/cardea/types"
)

func seedDoor(t *testing.T, doors *sqlite.DoorStore, tenantID, doorID string) {
	t.Helper()
	err := doors.PutDoor(context.Background(), types.Door{
		ID:       doorID,
		TenantID: tenantID,
		Name:     "Test Door",
		Status:   types.DoorActive,
	})
	if err != nil {
		t.Fatalf("seedDoor: %v", err)
	}
}

func TestRuleStore_PutAndGetActiveRules(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	doors := sqlite.NewDoorStore(conn, writer)
	rules := sqlite.NewRuleStore(conn, writer)
	ctx := context.Background()

	seedDoor(t, doors, "t1", "d1")

	rule := types.AccessRule{
		ID:       "r1",
		TenantID: "t1",
		DoorID:   "d1",
		Name:     "Members",
		Type:     types.RuleMembership,
		Priority: 50,
		Active:   true,

		AllowedMembershipStatuses: []string{"ACTIVE"},
		AllowedRoles:              []string{"CUSTOMER"},
		TimeSlots: []types.TimeSlot{
			{Day: time.Monday, Start: "06:00", End: "22:00"},
		},
		CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := rules.PutRule(ctx, rule); err != nil {
		t.Fatalf("PutRule: %v", err)
	}

	got, err := rules.GetActiveRules(ctx, "t1", "d1")
	if err != nil {
		t.Fatalf("GetActiveRules: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(got))
	}

	r := got[0]
	if r.Type != types.RuleMembership || r.Priority != 50 || !r.Active {
		t.Errorf("rule fields mismatch: %+v", r)
	}
	if len(r.AllowedMembershipStatuses) != 1 || r.AllowedMembershipStatuses[0] != "ACTIVE" {
		t.Errorf("allowed statuses mismatch: %v", r.AllowedMembershipStatuses)
	}
	if len(r.TimeSlots) != 1 || r.TimeSlots[0].Day != time.Monday || r.TimeSlots[0].Start != "06:00" {
		t.Errorf("time slots mismatch: %v", r.TimeSlots)
	}
	if !r.CreatedAt.Equal(rule.CreatedAt) {
		t.Errorf("created_at mismatch: %v vs %v", r.CreatedAt, rule.CreatedAt)
	}
}

func TestRuleStore_GetActiveRulesExcludesInactive(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	doors := sqlite.NewDoorStore(conn, writer)
	rules := sqlite.NewRuleStore(conn, writer)
	ctx := context.Background()

	seedDoor(t, doors, "t1", "d1")

	active := types.AccessRule{
		ID: "r_on", TenantID: "t1", DoorID: "d1", Name: "on",
		Type: types.RuleRole, Active: true, AllowedRoles: []string{"ADMIN"},
	}
	inactive := active
	inactive.ID = "r_off"
	inactive.Active = false

	for _, r := range []types.AccessRule{active, inactive} {
		if err := rules.PutRule(ctx, r); err != nil {
			t.Fatalf("PutRule %s: %v", r.ID, err)
		}
	}

	got, err := rules.GetActiveRules(ctx, "t1", "d1")
	if err != nil {
		t.Fatalf("GetActiveRules: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r_on" {
		t.Errorf("expected only r_on, got %v", got)
	}

	all, err := rules.ListRules(ctx, "t1", "d1")
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 rules from ListRules, got %d", len(all))
	}
}

func TestRuleStore_ActiveRulesOrdering(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	doors := sqlite.NewDoorStore(conn, writer)
	rules := sqlite.NewRuleStore(conn, writer)
	ctx := context.Background()

	seedDoor(t, doors, "t1", "d1")

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	put := func(id string, priority int, created time.Time) {
		t.Helper()
		err := rules.PutRule(ctx, types.AccessRule{
			ID: id, TenantID: "t1", DoorID: "d1", Name: id,
			Type: types.RuleRole, Priority: priority, Active: true,
			AllowedRoles: []string{"ADMIN"}, CreatedAt: created,
		})
		if err != nil {
			t.Fatalf("PutRule %s: %v", id, err)
		}
	}

	put("low", 10, base)
	put("high", 100, base)
	put("high_newer", 100, base.Add(time.Hour))

	got, err := rules.GetActiveRules(ctx, "t1", "d1")
	if err != nil {
		t.Fatalf("GetActiveRules: %v", err)
	}

	want := []string{"high", "high_newer", "low"}
	if len(got) != len(want) {
		t.Fatalf("expected %d rules, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

// Rule ids are scoped to (tenant, door): a second tenant reusing an id must
// get its own row without touching the first tenant's rule.
func TestRuleStore_PutRuleSameIDAcrossTenants(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	doors := sqlite.NewDoorStore(conn, writer)
	rules := sqlite.NewRuleStore(conn, writer)
	ctx := context.Background()

	seedDoor(t, doors, "tenant_a", "door_a")
	seedDoor(t, doors, "tenant_b", "door_b")

	if err := rules.PutRule(ctx, types.AccessRule{
		ID: "r1", TenantID: "tenant_a", DoorID: "door_a", Name: "Members",
		Type: types.RuleMembership, Priority: 50, Active: true,
		AllowedMembershipStatuses: []string{"ACTIVE"},
	}); err != nil {
		t.Fatalf("PutRule tenant_a: %v", err)
	}

	if err := rules.PutRule(ctx, types.AccessRule{
		ID: "r1", TenantID: "tenant_b", DoorID: "door_b", Name: "Everyone",
		Type: types.RuleRole, Priority: 9999, Active: true,
		AllowedRoles: []string{"ANYONE"},
	}); err != nil {
		t.Fatalf("PutRule tenant_b: %v", err)
	}

	got, err := rules.ListRules(ctx, "tenant_a", "door_a")
	if err != nil {
		t.Fatalf("ListRules tenant_a: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("tenant_a: expected 1 rule, got %d", len(got))
	}
	if got[0].Name != "Members" || got[0].Priority != 50 || got[0].Type != types.RuleMembership {
		t.Errorf("tenant_a rule was modified by tenant_b's put: %+v", got[0])
	}
	if len(got[0].AllowedRoles) != 0 {
		t.Errorf("tenant_a rule gained roles from tenant_b's put: %v", got[0].AllowedRoles)
	}

	got, err = rules.ListRules(ctx, "tenant_b", "door_b")
	if err != nil {
		t.Fatalf("ListRules tenant_b: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Everyone" {
		t.Errorf("tenant_b: expected its own rule r1, got %v", got)
	}
}

func TestRuleStore_DeleteRule(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	doors := sqlite.NewDoorStore(conn, writer)
	rules := sqlite.NewRuleStore(conn, writer)
	ctx := context.Background()

	seedDoor(t, doors, "t1", "d1")

	if err := rules.PutRule(ctx, types.AccessRule{
		ID: "r1", TenantID: "t1", DoorID: "d1", Name: "r1",
		Type: types.RuleRole, Active: true, AllowedRoles: []string{"ADMIN"},
	}); err != nil {
		t.Fatalf("PutRule: %v", err)
	}

	if err := rules.DeleteRule(ctx, "t1", "d1", "r1"); err != nil {
		t.Fatalf("DeleteRule: %v", err)
	}
	if err := rules.DeleteRule(ctx, "t1", "d1", "r1"); !errors.Is(err, store.ErrRuleNotFound) {
		t.Errorf("expected ErrRuleNotFound on second delete, got %v", err)
	}
}
