// Package orchestrator coordinates unit execution.
//
// It offers three execution strategies with deliberately different failure
// policies:
//
//   - Invoke runs one unit; unexpected failures propagate to the caller.
//   - RunChain follows successor links up to a step ceiling; any failure
//     stops the chain and the results gathered so far are returned.
//   - RunPipeline runs a fixed sequence of independent steps with the owner
//     id injected into each; any failure aborts the run and propagates.
//
// A FIFO task queue rides on the shared state store: DrainQueue pops items
// in arrival order and keeps going past failing items. Every invocation is
// audited to the state log and the durable action log, and published on the
// event bus.
package orchestrator
