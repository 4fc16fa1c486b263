// Package http implements the REST surface of the daemon.
//
// The server exposes endpoints for:
//   - Profile, posting, and application management
//   - Pipeline runs and the deferred task queue
//   - Screening question answers and digests
//   - Health checks and Prometheus metrics
package http
