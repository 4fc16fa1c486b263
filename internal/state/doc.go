// Package state implements the shared in-process state store.
//
// The store is a tree of string-keyed maps addressed by dotted paths
// ("profiles.u1.name"), with a FIFO task queue, a bounded activity log, and a
// per-unit scratch area layered on the same tree. One mutex guards every
// operation, so reads and writes are linearizable across goroutines.
//
// Every mutation synchronously writes the whole tree through a Persister
// before returning. Persistence failures propagate to the caller; there are
// no retries and no write-behind.
package state
