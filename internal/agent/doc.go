// Package agent defines the work-unit contract shared by every unit in the
// system.
//
// A unit receives a free-form Task whose "op" key names the requested
// operation, and answers with a Result describing what it did, what state it
// wants written, and optionally which unit should run next. Domain-level
// failures (bad input, unknown op) are reported as error Results; the error
// return of Perform is reserved for unexpected failures such as a broken
// store connection.
//
// The Registry maps unit ids to lazily constructed singletons. Registration
// happens once at startup from a static table; duplicate ids are rejected.
package agent
