// Package server provides the read-only HTTP status API for rsspoll.
//
// This package is internal to rsspoll and handles all HTTP concerns:
//
//   - GET /api/feeds: JSON snapshot of every feed's state
//   - GET /api/feeds/{name}: JSON state of one feed
//   - GET /api/sse: Server-Sent Events stream of state updates
//   - GET /healthz: liveness check
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the rsspoll library should not need to interact with this package
// directly. The server is started by [rsspoll.Poller.Start] when a status
// port is configured.
package server
