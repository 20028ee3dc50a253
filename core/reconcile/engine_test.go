package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"envdiff/core/reconcile/mocks"
	"envdiff/core/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Scenario: the target has an extra table and the user declines its removal.
func TestExecute_DeclinedRemovalIsSkipped(t *testing.T) {
	source := env("prod", table("Orders"))
	target := env("dev", table("Orders"), table("Temp"))
	plan := PlanTables(source, []*snapshot.Snapshot{target})
	require.Len(t, plan, 1)

	client := new(mocks.Client)
	confirmer := NewScriptedConfirmer(false)

	report, err := Execute(context.Background(), plan, NewClientApplier(client), confirmer, 10)
	require.NoError(t, err)

	assert.Empty(t, report.Applied)
	assert.Empty(t, report.Failed)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, "Temp", report.Skipped[0].Operation.Table)
	assert.Equal(t, ReasonDeclined, report.Skipped[0].Reason)
	assert.Equal(t, []string{"Orders", "Temp"}, target.TableNames())
	assert.Len(t, confirmer.Prompts(), 1)
	client.AssertNotCalled(t, "RemoveTable", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_ApprovedRemovalMutatesTarget(t *testing.T) {
	source := env("prod", table("Orders"), table("Users"))
	target := env("dev", table("Orders"), table("Temp"))
	plan := PlanTables(source, []*snapshot.Snapshot{target})

	client := new(mocks.Client)
	client.On("RemoveTable", mock.Anything, "dev-id", "Temp").Return(nil).Once()
	client.On("AddTable", mock.Anything, "dev-id", "Users").Return(nil).Once()

	report, err := Execute(context.Background(), plan, NewClientApplier(client), AutoConfirmer{Answer: true}, 2)
	require.NoError(t, err)

	assert.Equal(t, Summary{Applied: 2}, report.Summary())
	assert.Equal(t, []string{"Orders", "Users"}, target.TableNames())
	client.AssertExpectations(t)
}

func TestExecute_FailuresAreIsolated(t *testing.T) {
	source := env("prod", table("A"), table("B"), table("C"))
	dev, qa := env("dev"), env("qa")
	plan := PlanTables(source, []*snapshot.Snapshot{dev, qa})
	require.Len(t, plan, 6)

	client := new(mocks.Client)
	client.On("AddTable", mock.Anything, "dev-id", "B").Return(errors.New("409: table exists")).Once()
	client.On("AddTable", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	report, err := Execute(context.Background(), plan, NewClientApplier(client), nil, 3)
	require.NoError(t, err)

	assert.Equal(t, Summary{Applied: 5, Failed: 1}, report.Summary())
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "B", report.Failed[0].Operation.Table)
	assert.Equal(t, "409: table exists", report.Failed[0].Message)
	assert.Equal(t, []string{"A", "C"}, dev.TableNames())
	assert.Equal(t, []string{"A", "B", "C"}, qa.TableNames())
}

func backfillPlan() (Plan, *snapshot.Snapshot) {
	source := env("prod", table("Orders", snapshot.Column{Name: "status", DataType: "STRING", Required: true, DefaultValue: "NEW"}))
	target := env("dev", table("Orders", snapshot.Column{Name: "status", ColumnID: "dev-col", DataType: "STRING"}))
	return PlanColumns(source, []*snapshot.Snapshot{target}), target
}

func TestExecute_BackfillRunsBeforeUpdate(t *testing.T) {
	plan, target := backfillPlan()

	var mu sync.Mutex
	var calls []string
	record := func(name string) func(mock.Arguments) {
		return func(mock.Arguments) {
			mu.Lock()
			calls = append(calls, name)
			mu.Unlock()
		}
	}

	client := new(mocks.Client)
	client.On("BulkUpdateRecords", mock.Anything, "dev-id", "Orders", "status is null", map[string]any{"status": "NEW"}).
		Run(record("backfill")).Return(nil).Once()
	client.On("UpdateColumn", mock.Anything, "dev-id", "Orders", mock.MatchedBy(func(c snapshot.Column) bool {
		return c.Name == "status" && c.Required && c.ColumnID == "dev-col"
	})).Run(record("update")).Return(nil).Once()

	report, err := Execute(context.Background(), plan, NewClientApplier(client), AutoConfirmer{Answer: true}, 10)
	require.NoError(t, err)

	assert.Equal(t, []string{"backfill", "update"}, calls)
	assert.Equal(t, Summary{Applied: 2}, report.Summary())

	orders, _ := target.Table("Orders")
	status, _ := orders.Column("status")
	assert.True(t, status.Required)
	client.AssertExpectations(t)
}

func TestExecute_FailedBackfillBlocksUpdate(t *testing.T) {
	plan, target := backfillPlan()

	client := new(mocks.Client)
	client.On("BulkUpdateRecords", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("500: bulk update failed")).Once()

	report, err := Execute(context.Background(), plan, NewClientApplier(client), AutoConfirmer{Answer: true}, 10)
	require.NoError(t, err)

	require.Len(t, report.Failed, 2)
	assert.Equal(t, OpBackfill, report.Failed[0].Operation.Kind)
	assert.Equal(t, OpUpdateColumn, report.Failed[1].Operation.Kind)
	assert.ErrorIs(t, report.Failed[1].Err, ErrPrerequisiteFailed)
	client.AssertNotCalled(t, "UpdateColumn", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	orders, _ := target.Table("Orders")
	status, _ := orders.Column("status")
	assert.False(t, status.Required)
}

func TestExecute_DeclinedUpdateSkipsBackfill(t *testing.T) {
	plan, _ := backfillPlan()
	client := new(mocks.Client)

	report, err := Execute(context.Background(), plan, NewClientApplier(client), NewScriptedConfirmer(false), 10)
	require.NoError(t, err)

	require.Len(t, report.Skipped, 2)
	assert.Equal(t, ReasonGuardedDeclined, report.Skipped[0].Reason)
	assert.Equal(t, ReasonDeclined, report.Skipped[1].Reason)
	client.AssertNotCalled(t, "BulkUpdateRecords", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

type failingConfirmer struct{}

func (failingConfirmer) Confirm(context.Context, string) (bool, error) {
	return false, errors.New("stdin closed")
}

func TestExecute_ConfirmerErrorSkips(t *testing.T) {
	source := env("prod")
	target := env("dev", table("Temp"))
	plan := PlanTables(source, []*snapshot.Snapshot{target})

	report, err := Execute(context.Background(), plan, NewClientApplier(new(mocks.Client)), failingConfirmer{}, 1)
	require.NoError(t, err)

	require.Len(t, report.Skipped, 1)
	assert.Equal(t, ReasonConfirmerError, report.Skipped[0].Reason)
}

func TestExecute_LanesRunSequentially(t *testing.T) {
	target := env("dev")
	var plan Plan
	for _, lane := range []string{"a", "b"} {
		for i := 0; i < 3; i++ {
			plan = append(plan, Operation{Kind: OpAddTable, Target: target, Table: lane, Lane: lane})
		}
	}

	var mu sync.Mutex
	active := map[string]int{}
	var overlap atomic.Bool
	var order []string

	applier := ApplierFunc(func(ctx context.Context, op Operation) error {
		mu.Lock()
		active[op.Lane]++
		if active[op.Lane] > 1 {
			overlap.Store(true)
		}
		order = append(order, op.Lane)
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active[op.Lane]--
		mu.Unlock()
		return nil
	})

	report, err := Execute(context.Background(), plan, applier, nil, 4)
	require.NoError(t, err)

	assert.False(t, overlap.Load())
	assert.Len(t, report.Applied, 6)
	assert.Len(t, order, 6)
}

type recordingConfirmer struct {
	record func(string)
}

func (c recordingConfirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	c.record("confirm")
	return true, nil
}

func TestExecute_PromptsAnsweredBeforeDispatch(t *testing.T) {
	source := env("prod", table("Users"))
	target := env("dev", table("Temp"), table("Scratch"))
	plan := PlanTables(source, []*snapshot.Snapshot{target})
	require.Len(t, plan, 3)

	var mu sync.Mutex
	var events []string
	record := func(event string) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
	}

	applier := ApplierFunc(func(ctx context.Context, op Operation) error {
		record("apply")
		return nil
	})

	report, err := Execute(context.Background(), plan, applier, recordingConfirmer{record: record}, 4)
	require.NoError(t, err)

	assert.Len(t, report.Applied, 3)
	assert.Equal(t, []string{"confirm", "confirm", "apply", "apply", "apply"}, events)
}

func TestExecute_Malformed(t *testing.T) {
	dump := env("dump.json")
	dump.ReadOnly = true

	tests := []struct {
		name string
		plan Plan
	}{
		{name: "missing target", plan: Plan{{Kind: OpAddTable, Table: "A"}}},
		{name: "read-only target", plan: Plan{{Kind: OpAddTable, Target: dump, Table: "A"}}},
		{name: "unknown kind", plan: Plan{{Kind: "drop_database", Target: env("dev")}}},
		{name: "missing role id", plan: Plan{{Kind: OpUpdateRolePermission, Target: env("dev"), Permission: snapshot.Permission{Operation: "FIND"}}}},
		{name: "destructive without prompt", plan: Plan{{Kind: OpRemoveTable, Target: env("dev"), Table: "A", Destructive: true}}},
		{name: "dangling prerequisite", plan: Plan{{
			Kind: OpBackfill, Target: env("dev"), Table: "A", Where: "x is null",
			Patch: map[string]any{"x": 1}, Prerequisite: true, Lane: "l",
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mocks.Client)
			report, err := Execute(context.Background(), tt.plan, NewClientApplier(client), nil, 1)
			assert.ErrorIs(t, err, ErrMalformedPlan)
			assert.Nil(t, report)
			client.AssertExpectations(t)
		})
	}
}

func TestExecute_InvalidLimit(t *testing.T) {
	_, err := Execute(context.Background(), nil, NewClientApplier(new(mocks.Client)), nil, 0)
	assert.Error(t, err)
}

func TestExecute_EmptyPlan(t *testing.T) {
	report, err := Execute(context.Background(), nil, NewClientApplier(new(mocks.Client)), nil, 1)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, report.Summary())
}
