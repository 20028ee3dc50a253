// Package parallel runs task lists with a capped degree of parallelism.
//
// RunInParallel is shared by the read side (permission fetches against the
// remote console) and the write side (plan execution). Both need a cap on
// the number of in-flight calls to a rate-limited service and a guarantee
// that one failing call is recorded without affecting its siblings.
//
// Example:
//
//	tasks := []parallel.Task[string]{fetchA, fetchB, fetchC}
//	outcomes, err := parallel.RunInParallel(ctx, tasks, 2)
//	if err != nil {
//		return err // invalid limit or nil task
//	}
//	for i, o := range outcomes {
//		if o.Failed() {
//			log.Warn("fetch failed", zap.Int("task", i), zap.Error(o.Err))
//		}
//	}
package parallel
