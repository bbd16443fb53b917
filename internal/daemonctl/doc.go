// Package daemonctl talks to a running clipmato daemon over its HTTP API.
//
// The CLI uses it to submit uploads, poll progress, and read daemon status.
// Callers distinguish "daemon not running" from request failures with
// IsUnavailable so commands can fall back to reading the stores directly.
package daemonctl
