// Package reconcile turns snapshot differences into operations and applies
// them to target environments.
//
// Reconciliation always runs from one source snapshot (the reference) to a
// set of targets. Targets loaded from dumps or databases are read-only and
// are never planned against.
//
// # Architecture
//
// The package consists of three parts:
//
// 1. Planners: PlanTables, PlanColumns, PlanRoles, PlanRolePermissions,
// PlanTablePermissions and PlanEndpointPermissions build a Plan per entity
// kind from the diff engine's entity maps. Every operation is addressed with
// the target's own ids.
//
// 2. Engine: Execute validates a plan, confirms destructive operations one at
// a time, then dispatches the approved ones through the bounded parallel
// runner. Operations sharing a lane run in order; a failure is recorded
// against its operation and never stops the others.
//
// 3. Syncer: runs the phases in their fixed order and refreshes the targets
// where a phase depends on ids created by the previous one.
//
//	tables -> refresh tables -> columns
//	roles -> refresh roles -> role permissions
//	refresh table permissions -> table permissions
//	endpoint permissions
//
// # Backfills
//
// Updating a column to required with a default value is preceded by a
// backfill writing the default into existing null values. The backfill is a
// prerequisite of the update: both share a lane, the update does not run if
// the backfill fails, and the backfill does not run if the update is
// declined.
//
// # Usage Example
//
//	syncer := &reconcile.Syncer{
//	    Client:    consoleClient,
//	    Refresher: consoleClient,
//	    Confirmer: reconcile.NewPromptConfirmer(os.Stdin, os.Stdout),
//	    Options:   reconcile.Options{Concurrency: 10},
//	    Logger:    logger,
//	}
//	report, err := syncer.Sync(ctx, source, targets)
package reconcile
