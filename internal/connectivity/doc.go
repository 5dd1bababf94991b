// Package connectivity keeps the device network-reachable.
//
// Manager drives the station interface through bounded association attempts.
// When they are exhausted it hosts an open access point and runs a
// configuration portal session, then either restarts the lifecycle (a new
// configuration was saved) or goes back to associating. Link loss during
// steady state returns the manager to Idle.
//
// Faults from the interfaces or the portal never escape: each becomes a state
// transition, a status line on the display, a log entry, and a telemetry event.
// The only error Connect returns is context cancellation.
package connectivity
