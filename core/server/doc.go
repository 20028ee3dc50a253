// Package server holds the HTTP server configuration.
//
// The serve command exposes comparisons over HTTP. This package defines the
// port, the API key protecting every route and how long fetched snapshots
// are cached between requests.
//
// # Usage
//
// This package is embedded by core/config and read by the serve command.
package server
