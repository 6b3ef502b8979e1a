// Package api implements the resolver's HTTP status server.
//
// This package provides:
//   - A health endpoint aggregating component health checks
//   - The inventory snapshot, executed on the resolver's reactor
//   - Prometheus metrics
//   - A WebSocket hub relaying bus events to connected clients
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// The server is read-only. Administration happens over the bus.
package api
