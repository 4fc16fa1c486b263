// Package records defines the durable store port and its record types:
// profiles, postings, applications, and the action audit log.
//
// Saves are upserts keyed by record id. Lookups for absent ids return
// ErrNotFound. Implementations live under pkg/adapters/records.
package records
