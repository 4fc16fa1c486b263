// Package events defines the invocation event bus.
//
// The orchestrator publishes one event per unit invocation; the websocket
// handler subscribes and streams them to clients.
//
// Implementations:
//   - memory: in-process fan-out
//   - redis: Redis Streams with consumer groups
package events
