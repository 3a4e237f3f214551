package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cardea-access/cardea/internal/cardea/notify"
	"github.com/cardea-access/cardea/internal/cardea/store"
	"github.com/cardea-access/cardea/internal/cardea/types"
)

var (
	ErrInvalidTenantID = errors.New("tenant_id is required")
	ErrInvalidDoorID   = errors.New("door_id is required")
	ErrInvalidUserID   = errors.New("user_id is required")
)

const defaultCollaboratorTimeout = 3 * time.Second

// EngineConfig tunes the evaluation pipeline.
type EngineConfig struct {
	// CollaboratorTimeout bounds each store call (rule fetch, directory
	// lookup, audit write). On expiry the evaluation fails closed.
	CollaboratorTimeout time.Duration

	// StrictAudit turns a failed audit write into a denial. Without it a
	// failed write is surfaced as a warning next to the already-computed
	// decision.
	StrictAudit bool
}

// Engine evaluates door access requests. Each evaluation is a stateless
// read-then-decide over a point-in-time view of the rule set plus one
// append-only audit write; the engine holds no mutable state of its own and
// is safe for concurrent use.
type Engine struct {
	doors  store.DoorStore
	rules  store.RuleStore
	users  store.UserDirectory
	audit  store.AccessLogStore
	events notify.Publisher
	logger *slog.Logger
	cfg    EngineConfig
}

func NewEngine(
	doors store.DoorStore,
	rules store.RuleStore,
	users store.UserDirectory,
	audit store.AccessLogStore,
	events notify.Publisher,
	logger *slog.Logger,
	cfg EngineConfig,
) *Engine {
	if cfg.CollaboratorTimeout <= 0 {
		cfg.CollaboratorTimeout = defaultCollaboratorTimeout
	}
	if events == nil {
		events = notify.Nop{}
	}
	return &Engine{
		doors:  doors,
		rules:  rules,
		users:  users,
		audit:  audit,
		events: events,
		logger: logger,
		cfg:    cfg,
	}
}

// Evaluate decides whether to unlock a door for a user. Every call that
// passes input validation produces exactly one audit log entry, success or
// failure. The returned error is reserved for invalid input; all system
// failures fail closed into the decision itself.
func (e *Engine) Evaluate(ctx context.Context, req types.EvaluateRequest) (types.Decision, error) {
	tenantID := strings.TrimSpace(req.TenantID)
	doorID := strings.TrimSpace(req.DoorID)
	userID := strings.TrimSpace(req.UserID)

	if tenantID == "" {
		return types.Decision{}, ErrInvalidTenantID
	}
	if doorID == "" {
		return types.Decision{}, ErrInvalidDoorID
	}
	if userID == "" {
		return types.Decision{}, ErrInvalidUserID
	}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	dctx := types.DecisionContext{
		UserID:    userID,
		Timestamp: ts,
		Proximity: req.Proximity,
	}

	// Door status gate.
	door, err := e.getDoor(ctx, tenantID, doorID)
	switch {
	case errors.Is(err, store.ErrDoorNotFound):
		return e.finish(ctx, tenantID, doorID, dctx, types.Decision{
			Result: types.DoorNotFound,
			Reason: "door not found",
		}), nil
	case err != nil:
		e.logger.Error("evaluate: door lookup failed", "tenant", tenantID, "door", doorID, "error", err)
		return e.finish(ctx, tenantID, doorID, dctx, types.Decision{
			Result: types.DeniedSystemError,
			Reason: "door lookup failed",
		}), nil
	}

	if door.Status != types.DoorActive {
		return e.finish(ctx, tenantID, doorID, dctx, types.Decision{
			Result: types.DeniedDoorInactive,
			Reason: "door is " + strings.ToLower(string(door.Status)),
		}), nil
	}

	// Proximity gate. A failure short-circuits rule matching entirely but
	// the attempt is still logged.
	if pass, reason := checkProximity(door, req.Proximity); !pass {
		return e.finish(ctx, tenantID, doorID, dctx, types.Decision{
			Result: types.DeniedProximity,
			Reason: reason,
		}), nil
	}

	// Context resolution.
	uc, err := e.getUserContext(ctx, tenantID, userID)
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		return e.finish(ctx, tenantID, doorID, dctx, types.Decision{
			Result: types.DeniedNoPermission,
			Reason: "user not found",
		}), nil
	case err != nil:
		e.logger.Error("evaluate: user lookup failed", "tenant", tenantID, "user", userID, "error", err)
		return e.finish(ctx, tenantID, doorID, dctx, types.Decision{
			Result: types.DeniedSystemError,
			Reason: "user lookup failed",
		}), nil
	}
	dctx.Role = uc.Role
	dctx.MembershipStatus = uc.MembershipStatus

	// Rule matching.
	rules, err := e.getActiveRules(ctx, tenantID, doorID)
	if err != nil {
		e.logger.Error("evaluate: rule fetch failed", "tenant", tenantID, "door", doorID, "error", err)
		return e.finish(ctx, tenantID, doorID, dctx, types.Decision{
			Result: types.DeniedSystemError,
			Reason: "rule fetch failed",
		}), nil
	}

	loc := e.tenantLocation(door)

	var matches []types.AccessRule
	for _, rule := range rules {
		ok, err := matchRule(rule, dctx, loc)
		if err != nil {
			// Malformed rule: skip it, keep evaluating the rest. Recorded
			// for admin visibility, distinct from a normal deny.
			e.logger.Warn("evaluate: skipping malformed rule",
				"tenant", tenantID, "door", doorID, "rule", rule.ID, "error", err)
			continue
		}
		if ok {
			matches = append(matches, rule)
		}
	}

	// Decision resolution.
	decision := types.Decision{
		Result: types.DeniedNoPermission,
		Reason: "no matching rule",
	}
	if winner, ok := resolveWinner(matches); ok {
		decision = types.Decision{
			Result:          types.Granted,
			MatchedRuleID:   winner.ID,
			MatchedRuleName: winner.Name,
			Reason:          "matched rule " + winner.Name,
		}
	}

	return e.finish(ctx, tenantID, doorID, dctx, decision), nil
}

// finish writes the audit entry and publishes the decision event. It runs on
// a context detached from the caller's so that a cancellation mid-evaluation
// cannot produce a silent unaudited decision.
func (e *Engine) finish(ctx context.Context, tenantID, doorID string, dctx types.DecisionContext, decision types.Decision) types.Decision {
	entry := store.AccessLogEntry{
		ID:               uuid.NewString(),
		TenantID:         tenantID,
		DoorID:           doorID,
		UserID:           dctx.UserID,
		Timestamp:        dctx.Timestamp,
		Result:           decision.Result,
		MatchedRuleID:    decision.MatchedRuleID,
		MatchedRuleName:  decision.MatchedRuleName,
		Reason:           decision.Reason,
		Role:             dctx.Role,
		MembershipStatus: dctx.MembershipStatus,
	}
	if dctx.Proximity != nil {
		dbm := dctx.Proximity.SignalDbm
		entry.ProximityDbm = &dbm
	}

	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.CollaboratorTimeout)
	defer cancel()

	if err := e.audit.Append(logCtx, entry); err != nil {
		e.logger.Error("evaluate: audit append failed",
			"tenant", tenantID, "door", doorID, "result", decision.Result, "error", err)
		e.events.PublishAuditAlert(logCtx, entry, err)

		if e.cfg.StrictAudit {
			decision = types.Decision{
				Result: types.DeniedSystemError,
				Reason: "audit log unavailable",
			}
		} else {
			decision.AuditWarning = "audit log write failed"
		}
		return decision
	}

	e.events.PublishDecision(logCtx, entry)
	return decision
}

// tenantLocation resolves the door's tenant business timezone. An empty or
// unknown zone falls back to UTC rather than failing the evaluation; the
// fallback is logged since it changes time-slot semantics.
func (e *Engine) tenantLocation(door types.Door) *time.Location {
	if door.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(door.Timezone)
	if err != nil {
		e.logger.Warn("evaluate: unknown tenant timezone, using UTC",
			"tenant", door.TenantID, "door", door.ID, "timezone", door.Timezone)
		return time.UTC
	}
	return loc
}

func (e *Engine) getDoor(ctx context.Context, tenantID, doorID string) (types.Door, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CollaboratorTimeout)
	defer cancel()
	return e.doors.GetDoor(ctx, tenantID, doorID)
}

func (e *Engine) getUserContext(ctx context.Context, tenantID, userID string) (types.UserContext, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CollaboratorTimeout)
	defer cancel()
	return e.users.GetUserContext(ctx, tenantID, userID)
}

func (e *Engine) getActiveRules(ctx context.Context, tenantID, doorID string) ([]types.AccessRule, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CollaboratorTimeout)
	defer cancel()
	return e.rules.GetActiveRules(ctx, tenantID, doorID)
}
