// Package traci is the socket backend. A Client speaks the TraCI wire
// protocol to an engine listening on TCP; the command implementations in this
// package work against any bridge.Bridge that exposes its streams.
package traci
