// Package records groups durable store implementations.
//
// Implementations:
//   - memory: in-process maps, for tests and single-node development
//   - redis: JSON documents with owner/status index sets
package records
