// Package middleware contains HTTP middleware for the Fiber application.
//
// # Components
//
//   - Auth: validates the API key sent in the X-API-Key header.
//   - RayID: assigns every request a unique id, stored in the context and
//     echoed in the response headers for tracing.
//
// Both are registered globally by the serve command.
package middleware
