// Package services defines shared utilities consumed by the pipeline stages and
// external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so collaborator failures,
//     store I/O failures, and validation problems can be told apart with
//     errors.Is.
//
// Stages fail fast: nothing in this package retries.
package services
