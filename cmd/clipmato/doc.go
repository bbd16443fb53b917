// Command clipmato runs the media enrichment daemon and the CLI used to
// inspect and manage its records.
//
// `clipmato serve` starts the long-running daemon (HTTP API, job runner,
// optional auto-schedule cron). The remaining commands work directly against
// the record and progress files, which are safe to share with a running
// daemon, or talk to the daemon API when one is needed (`upload`, `status`).
package main
