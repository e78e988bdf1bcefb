// Package protocol owns the TraCI wire contract.
//
// Ownership boundary:
// - datatype tags, command and variable identifiers
// - status codes
// - frame/length primitives (frame)
// - typed parameter encoding (tlv)
// - typed result decoding (reader)
// - subscription variable catalog (schema)
//
// All multi-byte values on the wire are big-endian.
package protocol
