// Package processing runs one uploaded file through the stage pipeline and
// commits the outcome.
//
// Processor.Process builds the stage list for a job, runs it, and writes
// either the full success record or a minimal failure record to the
// metadata store before the terminal progress update. It never returns an
// error: every failure is isolated to its own job. Runner submits jobs in the
// background with a bound on how many run at once.
package processing
