// Package bridge defines the session-level connection to a traffic engine.
//
// Ownership boundary:
// - the Bridge interface both backends implement
// - engine versions and version negotiation
// - command capabilities, their catalog and per-session registry
// - status and error taxonomy
// - domain facades composed from commands
//
// Backends live in subpackages (traci, native) and register their command
// factories into a Catalog under their own namespace.
package bridge
