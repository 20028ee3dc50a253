package parallel

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidLimit is returned when the concurrency limit is below one.
var ErrInvalidLimit = errors.New("parallel: limit must be at least 1")

// Task is a unit of work producing a value.
type Task[T any] func(ctx context.Context) (T, error)

// Outcome is the result of one task, stored at the task's input index.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Failed reports whether the task returned an error.
func (o Outcome[T]) Failed() bool {
	return o.Err != nil
}

// RunInParallel runs tasks with at most limit of them in flight. Tasks start
// in list order as slots free up. The outcomes keep the input order and a
// failing task never stops its siblings. The only errors returned are for an
// invalid limit or a nil task, in which case nothing runs.
func RunInParallel[T any](ctx context.Context, tasks []Task[T], limit int) ([]Outcome[T], error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	for i, task := range tasks {
		if task == nil {
			return nil, fmt.Errorf("parallel: task %d is nil", i)
		}
	}

	outcomes := make([]Outcome[T], len(tasks))

	g := new(errgroup.Group)
	g.SetLimit(limit)

	for i, task := range tasks {
		g.Go(func() error {
			outcomes[i] = run(ctx, task)
			return nil
		})
	}

	_ = g.Wait()
	return outcomes, nil
}

// run executes one task, turning a panic into a failed outcome.
func run[T any](ctx context.Context, task Task[T]) (outcome Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome[T]{Err: fmt.Errorf("parallel: task panicked: %v", r)}
		}
	}()

	value, err := task(ctx)
	return Outcome[T]{Value: value, Err: err}
}

// Errors collects the failures of a run, keyed by task index.
func Errors[T any](outcomes []Outcome[T]) map[int]error {
	failed := make(map[int]error)
	for i, outcome := range outcomes {
		if outcome.Err != nil {
			failed[i] = outcome.Err
		}
	}
	return failed
}
