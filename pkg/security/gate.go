package security

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harun/toolgate/internal/metrics"
	"github.com/harun/toolgate/internal/tracing"
)

// attempt stages, in order. Every validation walks this machine and
// lands on allowed or denied.
type stage string

const (
	stageRequested         stage = "requested"
	stagePermissionChecked stage = "permission_checked"
	stageResourceChecked   stage = "resource_checked"
	stageAllowed           stage = "allowed"
	stageDenied            stage = "denied"
)

// Request describes one tool invocation attempt to validate
type Request struct {
	Tool     string
	Required PermissionSet
	Estimate UsageSample
}

// ValidationGate enforces per-tool permissions and resource ceilings
// before every tool invocation and appends one audit event per call.
// If the audit append fails, the whole call fails: it is better to
// block a legitimate tool use than to proceed without a trail.
type ValidationGate struct {
	perms   *PermissionStore
	tracker *ResourceTracker
	audit   *AuditLog

	strict        bool
	requireLimits bool
	metrics       *metrics.Metrics
}

// GateOption configures a ValidationGate
type GateOption func(*ValidationGate)

// WithStrictMode toggles strict mode. This is a deployment-wide
// setting, not per-call: strict treats ambiguous or missing limit
// configuration as denial.
func WithStrictMode(strict bool) GateOption {
	return func(vg *ValidationGate) {
		vg.strict = strict
	}
}

// WithRequireLimits denies tools that have no limits entry at all when
// a usage estimate is supplied in strict mode
func WithRequireLimits(require bool) GateOption {
	return func(vg *ValidationGate) {
		vg.requireLimits = require
	}
}

// WithMetrics attaches Prometheus metrics to the gate
func WithMetrics(m *metrics.Metrics) GateOption {
	return func(vg *ValidationGate) {
		vg.metrics = m
	}
}

// NewValidationGate creates a gate over the given stores. Strict mode
// defaults to on.
func NewValidationGate(perms *PermissionStore, tracker *ResourceTracker, audit *AuditLog, opts ...GateOption) *ValidationGate {
	vg := &ValidationGate{
		perms:   perms,
		tracker: tracker,
		audit:   audit,
		strict:  true,
	}
	for _, opt := range opts {
		opt(vg)
	}
	return vg
}

// Strict reports whether the gate runs in strict mode
func (vg *ValidationGate) Strict() bool {
	return vg.strict
}

// Validate decides whether a tool invocation may proceed. Denials are
// returned as a Decision, not an error; the only error paths are a
// failed audit append (fail-closed) and context cancellation.
func (vg *ValidationGate) Validate(ctx context.Context, req Request) (Decision, error) {
	start := time.Now()

	attemptID, err := gonanoid.New()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to generate attempt id: %w", err)
	}

	ctx, span := tracing.StartSpan(ctx, "toolgate", "gate.validate",
		attribute.String("tool", req.Tool),
	)
	defer span.End()
	ctx = tracing.WithAttemptID(ctx, attemptID)

	current := stageRequested

	granted := vg.perms.Get(req.Tool)
	current = stagePermissionChecked

	var (
		decision  Decision
		eventType EventType
	)

	if !granted.Contains(req.Required) {
		decision = denied(ReasonInsufficientPermission, "")
		eventType = EventPermissionCheck
	} else {
		decision = vg.tracker.Check(req.Tool, req.Estimate, vg.checkOptions())
		current = stageResourceChecked
		eventType = EventResourceCheck
	}
	decision.AttemptID = attemptID

	if decision.Allowed {
		current = stageAllowed
	} else {
		current = stageDenied
	}

	event := SecurityEvent{
		ToolName: req.Tool,
		Type:     eventType,
		Outcome:  outcomeOf(decision),
		Details: map[string]interface{}{
			"attempt_id":           attemptID,
			"required_permissions": req.Required.Strings(),
			"granted_permissions":  granted.Strings(),
			"usage_estimate":       req.Estimate,
			"stage":                string(current),
		},
	}
	if !decision.Allowed {
		event.Details["reason"] = decision.Reason
		if decision.Dimension != "" {
			event.Details["dimension"] = decision.Dimension
		}
	}

	// The audit append must complete before Validate returns. A
	// failed append invalidates the decision entirely.
	if err := vg.audit.Append(ctx, event); err != nil {
		if vg.metrics != nil {
			vg.metrics.AuditAppendFailures.Inc()
		}
		return Decision{}, err
	}

	vg.observe(req.Tool, decision, time.Since(start))

	if decision.Allowed {
		log.Debug().
			Str("tool", req.Tool).
			Str("attempt_id", attemptID).
			Msg("Tool invocation allowed")
	} else {
		log.Warn().
			Str("tool", req.Tool).
			Str("attempt_id", attemptID).
			Str("reason", decision.Reason).
			Msg("Tool invocation denied")
	}

	return decision, nil
}

// RecordActualUsage re-runs the resource check post-hoc with measured
// usage. A breach is recorded as a violation event; the invocation
// itself already happened, so the decision is informational.
func (vg *ValidationGate) RecordActualUsage(ctx context.Context, tool string, actual UsageSample) (Decision, error) {
	decision := vg.tracker.Check(tool, actual, vg.checkOptions())

	event := SecurityEvent{
		ToolName: tool,
		Type:     EventResourceCheck,
		Outcome:  outcomeOf(decision),
		Details: map[string]interface{}{
			"actual_usage": actual,
			"post_hoc":     true,
		},
	}
	if !decision.Allowed {
		event.Type = EventViolation
		event.Details["reason"] = decision.Reason
		if decision.Dimension != "" {
			event.Details["dimension"] = decision.Dimension
		}
	}

	if err := vg.audit.Append(ctx, event); err != nil {
		if vg.metrics != nil {
			vg.metrics.AuditAppendFailures.Inc()
		}
		return Decision{}, err
	}

	if !decision.Allowed {
		log.Warn().
			Str("tool", tool).
			Str("reason", decision.Reason).
			Msg("Actual usage exceeded configured limits")
	}

	return decision, nil
}

// SetPermissions replaces a tool's granted set and audits the change
func (vg *ValidationGate) SetPermissions(ctx context.Context, tool string, set PermissionSet) error {
	if err := vg.perms.Set(tool, set); err != nil {
		return err
	}

	return vg.audit.Append(ctx, SecurityEvent{
		ToolName: tool,
		Type:     EventConfigChange,
		Outcome:  OutcomeAllow,
		Details: map[string]interface{}{
			"action":      "set_permissions",
			"permissions": set.Strings(),
		},
	})
}

// SetLimits replaces a tool's resource ceilings and audits the change
func (vg *ValidationGate) SetLimits(ctx context.Context, tool string, limits ResourceLimit) error {
	if err := vg.tracker.SetLimits(tool, limits); err != nil {
		return err
	}

	return vg.audit.Append(ctx, SecurityEvent{
		ToolName: tool,
		Type:     EventConfigChange,
		Outcome:  OutcomeAllow,
		Details: map[string]interface{}{
			"action": "set_limits",
			"limits": limits,
		},
	})
}

// ClearTool removes a tool's permission and limit entries. The audit
// trail referencing the tool is retained for history.
func (vg *ValidationGate) ClearTool(ctx context.Context, tool string) error {
	if err := vg.perms.Clear(tool); err != nil {
		return err
	}
	if err := vg.tracker.Clear(tool); err != nil {
		return err
	}

	return vg.audit.Append(ctx, SecurityEvent{
		ToolName: tool,
		Type:     EventConfigChange,
		Outcome:  OutcomeAllow,
		Details: map[string]interface{}{
			"action": "clear_tool",
		},
	})
}

// Permissions exposes the underlying store for read-only collaborators
func (vg *ValidationGate) Permissions() *PermissionStore {
	return vg.perms
}

// Tracker exposes the resource tracker for read-only collaborators
func (vg *ValidationGate) Tracker() *ResourceTracker {
	return vg.tracker
}

// Audit exposes the audit log for queries
func (vg *ValidationGate) Audit() *AuditLog {
	return vg.audit
}

func (vg *ValidationGate) checkOptions() CheckOptions {
	return CheckOptions{
		Strict:        vg.strict,
		RequireLimits: vg.requireLimits,
	}
}

func (vg *ValidationGate) observe(tool string, decision Decision, elapsed time.Duration) {
	if vg.metrics == nil {
		return
	}
	vg.metrics.ValidationsTotal.WithLabelValues(tool, string(outcomeOf(decision)), decision.Reason).Inc()
	vg.metrics.ValidationDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

func outcomeOf(decision Decision) Outcome {
	if decision.Allowed {
		return OutcomeAllow
	}
	return OutcomeDeny
}
