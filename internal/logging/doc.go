// Package logging provides structured logging for the vakit device daemon.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the daemon: connectivity state transitions, the
// configuration portal's raw HTTP traffic, and collaborator faults.
//
// # Log Levels
//
//   - Debug: Raw request bytes, parsed query parameters, poll ticks
//   - Info: State transitions, portal connections, schedule refreshes
//   - Warn: Association timeouts, low storage, NTP or feed failures
//   - Error: Interface faults, storage write failures, listener bind failures
//
// # Configuration
//
// Initialize logging once at startup:
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When the level is empty the VAKIT_LOG_LEVEL environment variable is
// consulted. When both are empty logging is silent.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use. The underlying zap logger
// handles synchronization automatically.
package logging
