package reconcile

import (
	"context"
	"errors"
	"fmt"

	"envdiff/core/parallel"

	"go.uber.org/zap"
)

var (
	// ErrMalformedPlan is returned when a plan cannot be executed safely.
	ErrMalformedPlan = errors.New("malformed plan")

	// ErrPrerequisiteFailed wraps the error of a failed prerequisite in the
	// failure of the operation it guarded.
	ErrPrerequisiteFailed = errors.New("prerequisite failed")
)

// Engine executes plans against a remote environment.
type Engine struct {
	// Applier applies single operations.
	Applier Applier

	// Confirmer is asked before destructive operations. A nil confirmer
	// declines every destructive operation.
	Confirmer Confirmer

	// Limit is the maximum number of operations in flight.
	Limit int

	// Logger receives one entry per failed or skipped operation.
	Logger *zap.Logger
}

// Execute runs plan through applier with at most limit operations in flight.
func Execute(ctx context.Context, plan Plan, applier Applier, confirmer Confirmer, limit int) (*ExecutionReport, error) {
	engine := &Engine{Applier: applier, Confirmer: confirmer, Limit: limit, Logger: zap.NewNop()}
	return engine.Execute(ctx, plan)
}

// Execute validates the plan, asks for confirmation of destructive
// operations one at a time, then dispatches the approved operations.
// Operations sharing a lane run in plan order, other operations run
// concurrently. A failing operation never stops its siblings.
//
// Every prompt is answered before the first operation is dispatched, so a
// slow answer delays the whole plan rather than a single lane. In exchange
// prompts never interleave with running operations and a prerequisite is
// never applied before its guarded operation has been approved.
//
// The returned error is only set for a malformed plan or an invalid limit,
// in which case nothing was dispatched.
func (e *Engine) Execute(ctx context.Context, plan Plan) (*ExecutionReport, error) {
	if err := Validate(plan); err != nil {
		return nil, err
	}
	if e.Applier == nil {
		return nil, fmt.Errorf("%w: no applier", ErrMalformedPlan)
	}
	if e.Limit < 1 {
		return nil, parallel.ErrInvalidLimit
	}

	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	skips := e.confirm(ctx, plan, logger)
	lanes := groupLanes(plan, skips)

	tasks := make([]parallel.Task[[]laneResult], len(lanes))
	for i, lane := range lanes {
		tasks[i] = func(ctx context.Context) ([]laneResult, error) {
			return e.runLane(ctx, plan, lane, logger), nil
		}
	}

	outcomes, err := parallel.RunInParallel(ctx, tasks, e.Limit)
	if err != nil {
		return nil, err
	}

	errs := make([]error, len(plan))
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			for _, index := range lanes[i] {
				errs[index] = outcome.Err
			}
			continue
		}
		for _, result := range outcome.Value {
			errs[result.index] = result.err
		}
	}

	report := &ExecutionReport{}
	for i, op := range plan {
		switch {
		case skips[i] != "":
			report.Skipped = append(report.Skipped, Skip{Operation: op, Reason: skips[i]})
		case errs[i] != nil:
			report.Failed = append(report.Failed, Failure{Operation: op, Err: errs[i], Message: errs[i].Error()})
		default:
			report.Applied = append(report.Applied, op)
		}
	}

	return report, nil
}

// confirm asks about destructive operations in plan order and returns the
// skip reason of every operation ("" when approved). A prerequisite and the
// operation it guards are approved or skipped together.
func (e *Engine) confirm(ctx context.Context, plan Plan, logger *zap.Logger) []string {
	skips := make([]string, len(plan))

	for i := 0; i < len(plan); i++ {
		if !plan[i].Prerequisite {
			skips[i] = e.ask(ctx, plan[i], logger)
			continue
		}

		guarded := i + 1
		skips[i] = e.ask(ctx, plan[i], logger)
		if skips[i] != "" {
			skips[guarded] = ReasonPrerequisiteDeclined
		} else if skips[guarded] = e.ask(ctx, plan[guarded], logger); skips[guarded] != "" {
			skips[i] = ReasonGuardedDeclined
		}
		i = guarded
	}

	for i, reason := range skips {
		if reason != "" {
			logger.Info("Operation skipped",
				zap.String("target", plan[i].TargetName()),
				zap.String("operation", plan[i].String()),
				zap.String("reason", reason),
			)
		}
	}

	return skips
}

func (e *Engine) ask(ctx context.Context, op Operation, logger *zap.Logger) string {
	if !op.Destructive {
		return ""
	}
	if e.Confirmer == nil {
		return ReasonDeclined
	}

	ok, err := e.Confirmer.Confirm(ctx, op.Prompt)
	if err != nil {
		logger.Warn("Confirmation failed",
			zap.String("operation", op.String()),
			zap.Error(err),
		)
		return ReasonConfirmerError
	}
	if !ok {
		return ReasonDeclined
	}
	return ""
}

type laneResult struct {
	index int
	err   error
}

// runLane applies the operations of one lane in order.
func (e *Engine) runLane(ctx context.Context, plan Plan, lane []int, logger *zap.Logger) []laneResult {
	results := make([]laneResult, 0, len(lane))
	var prerequisiteErr error

	for _, index := range lane {
		op := plan[index]

		var err error
		if prerequisiteErr != nil {
			err = fmt.Errorf("%w: %w", ErrPrerequisiteFailed, prerequisiteErr)
		} else {
			err = e.apply(ctx, op)
		}

		prerequisiteErr = nil
		if err != nil && op.Prerequisite {
			prerequisiteErr = err
		}

		if err != nil {
			logger.Error("Operation failed",
				zap.String("target", op.TargetName()),
				zap.String("operation", op.String()),
				zap.Error(err),
			)
		} else {
			logger.Debug("Operation applied",
				zap.String("target", op.TargetName()),
				zap.String("operation", op.String()),
			)
		}

		results = append(results, laneResult{index: index, err: err})
	}

	return results
}

// apply calls the applier, turning a panic into an error.
func (e *Engine) apply(ctx context.Context, op Operation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return e.Applier.Apply(ctx, op)
}

// groupLanes groups approved operation indexes by lane, in order of first
// appearance. Operations without a lane form their own group.
func groupLanes(plan Plan, skips []string) [][]int {
	var lanes [][]int
	byName := make(map[string]int)

	for i, op := range plan {
		if skips[i] != "" {
			continue
		}
		if op.Lane == "" {
			lanes = append(lanes, []int{i})
			continue
		}
		if pos, ok := byName[op.Lane]; ok {
			lanes[pos] = append(lanes[pos], i)
			continue
		}
		byName[op.Lane] = len(lanes)
		lanes = append(lanes, []int{i})
	}

	return lanes
}

// Validate checks that every operation carries the identity its kind needs
// and that prerequisites are directly followed by the operation they guard.
func Validate(plan Plan) error {
	for i, op := range plan {
		if err := validateOperation(op); err != nil {
			return fmt.Errorf("%w: operation %d (%s): %v", ErrMalformedPlan, i, op.Kind, err)
		}
		if !op.Prerequisite {
			continue
		}
		if op.Lane == "" {
			return fmt.Errorf("%w: operation %d (%s): prerequisite without lane", ErrMalformedPlan, i, op.Kind)
		}
		if i+1 >= len(plan) || plan[i+1].Lane != op.Lane || plan[i+1].Prerequisite {
			return fmt.Errorf("%w: operation %d (%s): prerequisite not followed by its guarded operation", ErrMalformedPlan, i, op.Kind)
		}
	}
	return nil
}

func validateOperation(op Operation) error {
	if op.Target == nil {
		return errors.New("missing target")
	}
	if op.Target.ReadOnly {
		return fmt.Errorf("target %s is read-only", op.Target.Name)
	}
	if op.Target.ID == "" {
		return fmt.Errorf("target %s has no environment id", op.Target.Name)
	}
	if op.Destructive && op.Prompt == "" {
		return errors.New("destructive operation without prompt")
	}

	require := func(ok bool, field string) error {
		if !ok {
			return fmt.Errorf("missing %s", field)
		}
		return nil
	}

	switch op.Kind {
	case OpAddTable, OpRemoveTable:
		return require(op.Table != "", "table")
	case OpAddColumn, OpUpdateColumn, OpRemoveColumn:
		return errors.Join(
			require(op.Table != "", "table"),
			require(op.Column != nil && op.Column.Name != "", "column"),
		)
	case OpAddRelation, OpUpdateRelation, OpRemoveRelation:
		return errors.Join(
			require(op.Table != "", "table"),
			require(op.Relation != nil && op.Relation.ColumnName != "", "relation"),
		)
	case OpBackfill:
		return errors.Join(
			require(op.Table != "", "table"),
			require(op.Where != "", "where clause"),
			require(len(op.Patch) > 0, "patch"),
		)
	case OpAddRole:
		return require(op.Role != "", "role")
	case OpRemoveRole:
		return require(op.RoleID != "", "role id")
	case OpUpdateRolePermission:
		return errors.Join(
			require(op.RoleID != "", "role id"),
			require(op.Permission.Operation != "", "permission operation"),
		)
	case OpUpdateTablePermission, OpResetTablePermission:
		return errors.Join(
			require(op.TableID != "", "table id"),
			require(op.RoleID != "", "role id"),
			require(op.Permission.Operation != "", "permission operation"),
		)
	case OpUpdateEndpointPermission, OpResetEndpointPermission:
		return errors.Join(
			require(op.ServiceID != "", "service id"),
			require(op.MethodID != "", "method id"),
			require(op.RoleID != "", "role id"),
		)
	default:
		return fmt.Errorf("unknown kind %q", op.Kind)
	}
}
