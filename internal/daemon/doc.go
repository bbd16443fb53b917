// Package daemon coordinates the long-running clipmato process.
//
// It wires configuration, the record and progress stores, the background job
// runner, the HTTP API, and the optional auto-schedule cron into a single
// lifecycle with flock-based locking to prevent multiple instances. Shutdown
// is driven by context cancellation: the API drains, the cron stops, and
// in-flight jobs finish before the lock is released.
//
// Keep orchestration logic here: processing steps live in their own packages
// while the daemon focuses on startup, shutdown, and status reporting.
package daemon
