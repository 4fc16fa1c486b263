// Package websocket streams unit invocation events to connected clients.
//
// Clients connect to /ws and receive one JSON event per invocation. The
// unit query parameter narrows the stream to a single unit.
package websocket
