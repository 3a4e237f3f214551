package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cardea-access/cardea/internal/cardea/service"
	"github.com/cardea-access/cardea/internal/cardea/store"
	"github.com/cardea-access/cardea/internal/cardea/store/memory"
	"github.com/cardea-access/cardea/internal/cardea/types"
)

const (
	testTenant = "tenant_1"
	testDoor   = "door_main"
	testUser   = "user_1"
)

type fixture struct {
	doors  *memory.DoorStore
	rules  *memory.RuleStore
	users  *memory.UserDirectory
	audit  *memory.AccessLogStore
	engine *service.Engine
}

// newFixture wires an engine against in-memory stores with one active door
// and one user. Tests adjust the stores before calling Evaluate.
func newFixture(t *testing.T, cfg service.EngineConfig, door types.Door, rules ...types.AccessRule) *fixture {
	t.Helper()

	f := &fixture{
		doors: memory.NewDoorStore(door),
		rules: memory.NewRuleStore(rules...),
		users: memory.NewUserDirectory(),
		audit: memory.NewAccessLogStore(),
	}
	f.users.SetUser(testTenant, testUser, types.UserContext{Role: "CUSTOMER", MembershipStatus: "ACTIVE"})
	f.engine = service.NewEngine(f.doors, f.rules, f.users, f.audit, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)), cfg)
	return f
}

func activeDoor() types.Door {
	return types.Door{ID: testDoor, TenantID: testTenant, Name: "Main", Status: types.DoorActive}
}

func proximityDoor(minRSSI int) types.Door {
	d := activeDoor()
	d.Proximity = types.ProximityConfig{Enabled: true, BeaconID: "b1", MinimumRSSI: minRSSI}
	return d
}

func membershipRule(priority int) types.AccessRule {
	return types.AccessRule{
		ID:                        "rule_members",
		TenantID:                  testTenant,
		DoorID:                    testDoor,
		Name:                      "Members",
		Type:                      types.RuleMembership,
		Priority:                  priority,
		Active:                    true,
		AllowedMembershipStatuses: []string{"ACTIVE"},
		CreatedAt:                 time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func evaluate(t *testing.T, f *fixture, req types.EvaluateRequest) types.Decision {
	t.Helper()
	d, err := f.engine.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	return d
}

func baseRequest() types.EvaluateRequest {
	return types.EvaluateRequest{TenantID: testTenant, DoorID: testDoor, UserID: testUser}
}

// ── End-to-end scenarios ─────────────────────────────────────────────────────

func TestEvaluate_ProximityPassAndMembershipRule_Granted(t *testing.T) {
	f := newFixture(t, service.EngineConfig{}, proximityDoor(-65), membershipRule(50))

	req := baseRequest()
	req.Proximity = &types.ProximityReading{SignalDbm: -60}
	d := evaluate(t, f, req)

	if d.Result != types.Granted {
		t.Fatalf("expected GRANTED, got %s (%s)", d.Result, d.Reason)
	}
	if d.MatchedRuleID != "rule_members" {
		t.Errorf("expected matched rule rule_members, got %q", d.MatchedRuleID)
	}

	entries := f.audit.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].Result != types.Granted || entries[0].MatchedRuleID != "rule_members" {
		t.Errorf("audit entry mismatch: %+v", entries[0])
	}
	if entries[0].ProximityDbm == nil || *entries[0].ProximityDbm != -60 {
		t.Error("expected proximity reading in audit snapshot")
	}
}

func TestEvaluate_WeakSignal_DeniedWithoutRuleEvaluation(t *testing.T) {
	f := newFixture(t, service.EngineConfig{}, proximityDoor(-65), membershipRule(50))

	req := baseRequest()
	req.Proximity = &types.ProximityReading{SignalDbm: -80}
	d := evaluate(t, f, req)

	if d.Result != types.DeniedProximity {
		t.Fatalf("expected DENIED_PROXIMITY, got %s", d.Result)
	}
	if d.MatchedRuleID != "" {
		t.Error("no rule should be evaluated after a proximity failure")
	}

	entries := f.audit.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected the attempt to be logged, got %d entries", len(entries))
	}
	if entries[0].Reason != "insufficient signal" {
		t.Errorf("expected reason %q, got %q", "insufficient signal", entries[0].Reason)
	}
}

func TestEvaluate_NoProximityReading_Denied(t *testing.T) {
	f := newFixture(t, service.EngineConfig{}, proximityDoor(-65), membershipRule(50))

	d := evaluate(t, f, baseRequest())
	if d.Result != types.DeniedProximity {
		t.Fatalf("expected DENIED_PROXIMITY, got %s", d.Result)
	}
	if d.Reason != "no signal" {
		t.Errorf("expected reason %q, got %q", "no signal", d.Reason)
	}
}

func TestEvaluate_CancelledMembership_Denied(t *testing.T) {
	f := newFixture(t, service.EngineConfig{}, activeDoor(), membershipRule(50))
	f.users.SetUser(testTenant, testUser, types.UserContext{Role: "CUSTOMER", MembershipStatus: "CANCELLED"})

	d := evaluate(t, f, baseRequest())
	if d.Result != types.DeniedNoPermission {
		t.Fatalf("expected DENIED_NO_PERMISSION, got %s", d.Result)
	}
	if d.Reason != "no matching rule" {
		t.Errorf("expected reason %q, got %q", "no matching rule", d.Reason)
	}
}

func TestEvaluate_HigherPriorityRoleRuleWins(t *testing.T) {
	adminRule := types.AccessRule{
		ID: "rule_admins", TenantID: testTenant, DoorID: testDoor, Name: "Admins",
		Type: types.RuleRole, Priority: 100, Active: true,
		AllowedRoles: []string{"ADMIN"},
	}
	f := newFixture(t, service.EngineConfig{}, activeDoor(), adminRule, membershipRule(50))
	f.users.SetUser(testTenant, testUser, types.UserContext{Role: "ADMIN", MembershipStatus: "ACTIVE"})

	d := evaluate(t, f, baseRequest())
	if d.Result != types.Granted {
		t.Fatalf("expected GRANTED, got %s", d.Result)
	}
	if d.MatchedRuleID != "rule_admins" {
		t.Errorf("expected the priority-100 ROLE rule to win, got %q", d.MatchedRuleID)
	}
}

// ── Gates and failure modes ──────────────────────────────────────────────────

func TestEvaluate_InactiveDoor_ShortCircuits(t *testing.T) {
	door := activeDoor()
	door.Status = types.DoorMaintenance
	f := newFixture(t, service.EngineConfig{}, door, membershipRule(100))

	d := evaluate(t, f, baseRequest())
	if d.Result != types.DeniedDoorInactive {
		t.Fatalf("expected DENIED_DOOR_INACTIVE, got %s", d.Result)
	}
	if d.MatchedRuleID != "" {
		t.Error("rules must not be consulted for an inactive door")
	}
	if len(f.audit.Entries()) != 1 {
		t.Error("expected the attempt to be audit-logged")
	}
}

func TestEvaluate_DoorNotFound(t *testing.T) {
	f := newFixture(t, service.EngineConfig{}, activeDoor())

	req := baseRequest()
	req.DoorID = "no_such_door"
	d := evaluate(t, f, req)

	if d.Result != types.DoorNotFound {
		t.Fatalf("expected DOOR_NOT_FOUND, got %s", d.Result)
	}
	if len(f.audit.Entries()) != 1 {
		t.Error("expected the attempt to be audit-logged")
	}
}

func TestEvaluate_UnknownUser_Denied(t *testing.T) {
	f := newFixture(t, service.EngineConfig{}, activeDoor(), membershipRule(50))

	req := baseRequest()
	req.UserID = "ghost"
	d := evaluate(t, f, req)

	if d.Result != types.DeniedNoPermission {
		t.Fatalf("expected DENIED_NO_PERMISSION, got %s", d.Result)
	}
}

func TestEvaluate_RuleStoreFailure_FailsClosed(t *testing.T) {
	f := newFixture(t, service.EngineConfig{}, activeDoor(), membershipRule(50))

	failing := &failingRuleStore{err: errors.New("store down")}
	engine := service.NewEngine(f.doors, failing, f.users, f.audit, nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)), service.EngineConfig{})

	d, err := engine.Evaluate(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Result != types.DeniedSystemError {
		t.Fatalf("expected DENIED_SYSTEM_ERROR, got %s", d.Result)
	}
	if len(f.audit.Entries()) != 1 {
		t.Error("expected the failure to be audit-logged")
	}
}

func TestEvaluate_MalformedRuleSkipped_OthersStillEvaluated(t *testing.T) {
	malformed := types.AccessRule{
		ID: "rule_broken", TenantID: testTenant, DoorID: testDoor,
		Type: types.RuleUserSpecific, Priority: 200, Active: true,
		// no AllowedUserIDs: malformed for its type
	}
	f := newFixture(t, service.EngineConfig{}, activeDoor(), malformed, membershipRule(50))

	d := evaluate(t, f, baseRequest())
	if d.Result != types.Granted {
		t.Fatalf("expected GRANTED via the valid rule, got %s (%s)", d.Result, d.Reason)
	}
	if d.MatchedRuleID != "rule_members" {
		t.Errorf("expected rule_members to win, got %q", d.MatchedRuleID)
	}
}

func TestEvaluate_InactiveRuleFlipsGrantToDeny(t *testing.T) {
	rule := membershipRule(50)
	f := newFixture(t, service.EngineConfig{}, activeDoor(), rule)

	if d := evaluate(t, f, baseRequest()); d.Result != types.Granted {
		t.Fatalf("precondition: expected GRANTED, got %s", d.Result)
	}

	rule.Active = false
	if err := f.rules.PutRule(context.Background(), rule); err != nil {
		t.Fatalf("PutRule: %v", err)
	}

	if d := evaluate(t, f, baseRequest()); d.Result != types.DeniedNoPermission {
		t.Fatalf("expected DENIED_NO_PERMISSION after deactivation, got %s", d.Result)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	f := newFixture(t, service.EngineConfig{}, activeDoor(), membershipRule(50))

	req := baseRequest()
	req.Timestamp = time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)

	first := evaluate(t, f, req)
	for i := 0; i < 5; i++ {
		d := evaluate(t, f, req)
		if d.Result != first.Result || d.MatchedRuleID != first.MatchedRuleID {
			t.Fatalf("run %d differed: %+v vs %+v", i, d, first)
		}
	}
}

// ── Audit failure policy ─────────────────────────────────────────────────────

func TestEvaluate_AuditFailure_WarnsButKeepsDecision(t *testing.T) {
	f := newFixture(t, service.EngineConfig{}, activeDoor(), membershipRule(50))
	f.audit.FailWith = errors.New("disk full")

	d := evaluate(t, f, baseRequest())
	if d.Result != types.Granted {
		t.Fatalf("expected decision to stand, got %s", d.Result)
	}
	if d.AuditWarning == "" {
		t.Error("expected an audit warning on the decision")
	}
}

func TestEvaluate_AuditFailure_StrictModeDenies(t *testing.T) {
	f := newFixture(t, service.EngineConfig{StrictAudit: true}, activeDoor(), membershipRule(50))
	f.audit.FailWith = errors.New("disk full")

	d := evaluate(t, f, baseRequest())
	if d.Result != types.DeniedSystemError {
		t.Fatalf("expected DENIED_SYSTEM_ERROR under strict audit, got %s", d.Result)
	}
}

// A controller dropping the connection mid-decision must not leave the
// attempt unaudited: the log append runs on a context detached from the
// caller's, so even an already-cancelled caller gets its entry written.
func TestEvaluate_CallerCancellation_StillAudited(t *testing.T) {
	f := newFixture(t, service.EngineConfig{}, activeDoor(), membershipRule(50))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := f.engine.Evaluate(ctx, baseRequest())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Result != types.Granted {
		t.Fatalf("expected GRANTED, got %s (%s)", d.Result, d.Reason)
	}
	if d.AuditWarning != "" {
		t.Errorf("cancellation must not degrade the audit write: %q", d.AuditWarning)
	}

	entries := f.audit.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry despite cancellation, got %d", len(entries))
	}
	if entries[0].Result != types.Granted {
		t.Errorf("audit entry mismatch: %+v", entries[0])
	}
}

// ── Input validation ─────────────────────────────────────────────────────────

func TestEvaluate_MissingFields(t *testing.T) {
	f := newFixture(t, service.EngineConfig{}, activeDoor())

	cases := []struct {
		req  types.EvaluateRequest
		want error
	}{
		{types.EvaluateRequest{DoorID: testDoor, UserID: testUser}, service.ErrInvalidTenantID},
		{types.EvaluateRequest{TenantID: testTenant, UserID: testUser}, service.ErrInvalidDoorID},
		{types.EvaluateRequest{TenantID: testTenant, DoorID: testDoor}, service.ErrInvalidUserID},
	}

	for _, tc := range cases {
		_, err := f.engine.Evaluate(context.Background(), tc.req)
		if !errors.Is(err, tc.want) {
			t.Errorf("expected %v, got %v", tc.want, err)
		}
	}
	if len(f.audit.Entries()) != 0 {
		t.Error("validation failures must not produce audit entries")
	}
}

// failingRuleStore simulates a rule store outage.
type failingRuleStore struct{ err error }

func (s *failingRuleStore) GetActiveRules(context.Context, string, string) ([]types.AccessRule, error) {
	return nil, s.err
}

func (s *failingRuleStore) ListRules(context.Context, string, string) ([]types.AccessRule, error) {
	return nil, s.err
}

func (s *failingRuleStore) PutRule(context.Context, types.AccessRule) error { return s.err }

func (s *failingRuleStore) DeleteRule(context.Context, string, string, string) error { return s.err }

var _ store.RuleStore = (*failingRuleStore)(nil)
