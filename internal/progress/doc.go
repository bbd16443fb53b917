// Package progress persists one status snapshot per job as
// <job-id>.status.json and maps stage names to completion percentages.
//
// Writes replace the whole file atomically. Reads never fail: a missing file
// means the job is pending, and a file that cannot be parsed or has the wrong
// shape yields a synthesized error status with the invalid_progress_file code.
package progress
