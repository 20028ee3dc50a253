package reconcile

import (
	"context"
	"fmt"
	"slices"

	"envdiff/core/diff"
	"envdiff/core/parallel"
	"envdiff/core/snapshot"

	"go.uber.org/zap"
)

// Phase names, in execution order.
const (
	PhaseTables              = "tables"
	PhaseColumns             = "columns"
	PhaseRoles               = "roles"
	PhaseRolePermissions     = "role_permissions"
	PhaseTablePermissions    = "table_permissions"
	PhaseEndpointPermissions = "endpoint_permissions"
)

// PhaseResult is the plan and outcome of one sync phase.
type PhaseResult struct {
	Phase  string           `json:"phase"`
	Plan   Plan             `json:"plan"`
	Report *ExecutionReport `json:"report"`
}

// SyncReport aggregates every phase of a sync run.
type SyncReport struct {
	Phases []PhaseResult    `json:"phases"`
	Total  *ExecutionReport `json:"total"`
}

// Syncer drives the sync phases in their fixed order:
// tables, columns, roles, role permissions, table permissions and endpoint
// permissions. Target snapshots are refreshed between phases that depend on
// fresh ids.
type Syncer struct {
	// Client mutates the remote environments.
	Client Client

	// Refresher re-fetches targets between phases. Optional.
	Refresher Refresher

	// Confirmer approves destructive operations.
	Confirmer Confirmer

	// Checks selects the phases: schema enables tables and columns,
	// role-perms enables roles and role permissions, table-perms and
	// api-perms enable their permission phase. Empty selects all.
	Checks []diff.Kind

	// Options controls dry-run and concurrency.
	Options Options

	// Logger receives phase progress and operation failures.
	Logger *zap.Logger
}

// Sync reconciles targets against source. It returns an error only for a
// fatal condition (duplicate snapshot names, a failed refresh, a malformed
// plan); per-operation failures are reported in the SyncReport.
func (s *Syncer) Sync(ctx context.Context, source *snapshot.Snapshot, targets []*snapshot.Snapshot) (*SyncReport, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if source == nil {
		return nil, fmt.Errorf("sync: no source snapshot")
	}
	if err := uniqueNames(source, targets); err != nil {
		return nil, err
	}

	report := &SyncReport{Total: &ExecutionReport{}}

	writableTargets := writable(targets)
	for _, target := range targets {
		if target.ReadOnly {
			logger.Info("Skipping read-only target", zap.String("target", target.Name))
		}
	}
	if len(writableTargets) == 0 {
		return report, nil
	}

	checks := s.Checks
	if len(checks) == 0 {
		checks = diff.AllKinds
	}
	enabled := func(kind diff.Kind) bool { return slices.Contains(checks, kind) }

	concurrency := s.Options.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	engine := &Engine{
		Applier:   NewClientApplier(s.Client),
		Confirmer: s.Confirmer,
		Limit:     concurrency,
		Logger:    logger,
	}

	run := func(phase string, planner func(*snapshot.Snapshot, []*snapshot.Snapshot) Plan) error {
		plan := planner(source, writableTargets)
		logger.Info("Sync phase", zap.String("phase", phase), zap.Int("operations", plan.Len()))

		var phaseReport *ExecutionReport
		if s.Options.DryRun {
			phaseReport = dryRunReport(plan)
		} else {
			var err error
			if phaseReport, err = engine.Execute(ctx, plan); err != nil {
				return fmt.Errorf("sync phase %s: %w", phase, err)
			}
		}

		report.Phases = append(report.Phases, PhaseResult{Phase: phase, Plan: plan, Report: phaseReport})
		report.Total.Merge(phaseReport)
		return nil
	}

	refresh := func(what string, fn func(context.Context, *snapshot.Snapshot) error) error {
		if s.Options.DryRun || s.Refresher == nil {
			return nil
		}
		return s.refresh(ctx, what, writableTargets, concurrency, fn)
	}

	if enabled(diff.KindSchema) {
		if err := run(PhaseTables, PlanTables); err != nil {
			return report, err
		}
		if err := refresh("tables", s.refresher().RefreshTables); err != nil {
			return report, err
		}
		if err := run(PhaseColumns, PlanColumns); err != nil {
			return report, err
		}
	}

	if enabled(diff.KindRolePerms) {
		if err := run(PhaseRoles, PlanRoles); err != nil {
			return report, err
		}
		if err := refresh("roles", s.refresher().RefreshRoles); err != nil {
			return report, err
		}
		if err := run(PhaseRolePermissions, PlanRolePermissions); err != nil {
			return report, err
		}
	}

	if enabled(diff.KindTablePerms) {
		if enabled(diff.KindRolePerms) || enabled(diff.KindSchema) {
			if err := refresh("table permissions", s.refresher().RefreshTablePermissions); err != nil {
				return report, err
			}
		}
		if err := run(PhaseTablePermissions, PlanTablePermissions); err != nil {
			return report, err
		}
	}

	if enabled(diff.KindEndpointPerms) {
		if err := run(PhaseEndpointPermissions, PlanEndpointPermissions); err != nil {
			return report, err
		}
	}

	summary := report.Total.Summary()
	logger.Info("Sync complete",
		zap.Int("applied", summary.Applied),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)

	return report, nil
}

// refresher returns a Refresher that is safe to reference even when none
// is configured; refresh skips the call in that case.
func (s *Syncer) refresher() Refresher {
	if s.Refresher == nil {
		return nopRefresher{}
	}
	return s.Refresher
}

// refresh runs fn for every target concurrently. Any failure is fatal since
// the next phase would plan against stale ids.
func (s *Syncer) refresh(ctx context.Context, what string, targets []*snapshot.Snapshot, limit int, fn func(context.Context, *snapshot.Snapshot) error) error {
	tasks := make([]parallel.Task[struct{}], len(targets))
	for i, target := range targets {
		tasks[i] = func(ctx context.Context) (struct{}, error) {
			return struct{}{}, fn(ctx, target)
		}
	}

	outcomes, err := parallel.RunInParallel(ctx, tasks, limit)
	if err != nil {
		return err
	}
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			return fmt.Errorf("failed to refresh %s of %s: %w", what, targets[i].Name, outcome.Err)
		}
	}
	return nil
}

type nopRefresher struct{}

func (nopRefresher) RefreshTables(context.Context, *snapshot.Snapshot) error           { return nil }
func (nopRefresher) RefreshRoles(context.Context, *snapshot.Snapshot) error            { return nil }
func (nopRefresher) RefreshTablePermissions(context.Context, *snapshot.Snapshot) error { return nil }

func dryRunReport(plan Plan) *ExecutionReport {
	report := &ExecutionReport{}
	for _, op := range plan {
		report.Skipped = append(report.Skipped, Skip{Operation: op, Reason: ReasonDryRun})
	}
	return report
}

func uniqueNames(source *snapshot.Snapshot, targets []*snapshot.Snapshot) error {
	seen := map[string]bool{source.Name: true}
	for _, target := range targets {
		if target == nil {
			return fmt.Errorf("sync: nil target snapshot")
		}
		if seen[target.Name] {
			return fmt.Errorf("sync: duplicate snapshot name %q", target.Name)
		}
		seen[target.Name] = true
	}
	return nil
}
