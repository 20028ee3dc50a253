// Package console is the HTTP client of the remote management console.
//
// It logs in with developer credentials, lists environments, captures a
// full snapshot of one environment (schema, roles, table and API
// permissions) and performs every mutation the reconcile engine plans.
//
// # Usage
//
//	client, err := console.NewClient(cfg.Console, logger)
//	if err != nil {
//	    return err
//	}
//	if err := client.Login(ctx); err != nil {
//	    return err
//	}
//	env, err := client.FetchByName(ctx, "staging")
//
// Client implements reconcile.Client and reconcile.Refresher. Non-2xx
// replies surface as *APIError.
package console
