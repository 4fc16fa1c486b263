// Package state groups persisters for the shared state tree.
//
// Implementations:
//   - file: JSON file on disk, written via temp file + rename
//   - redis: single JSON value under a prefixed key
//   - memory: in-process, for tests
package state
