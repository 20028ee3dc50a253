// Package source resolves snapshot references.
//
// A reference is one of:
//
//   - an environment name, captured live through the console
//   - a path to a JSON or YAML dump
//   - an s3://bucket/key url pointing at a dump in object storage
//   - db:<name>, a database whose schema is inspected
//
// Only live environments can be reconciled; every other kind resolves to a
// read-only snapshot. ResolveAll loads references concurrently and Dump
// writes a snapshot, stripped of ids and credentials, to a file or bucket.
// Cache keeps resolved snapshots for the HTTP server, collapsing concurrent
// loads of the same reference.
package source
