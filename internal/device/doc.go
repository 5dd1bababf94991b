// Package device runs the top-level control loop.
//
// Each boot loads the persisted configuration and builds a fresh
// connectivity manager. Once associated, the steady-state loop keeps the
// clock and the schedule fresh and shows the countdown to the next entry.
// Link loss hands control back to the manager; a saved portal submission
// starts a new boot. Nothing in the loop is fatal except cancellation.
package device
