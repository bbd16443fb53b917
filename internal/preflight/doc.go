// Package preflight provides readiness checks for the external services,
// binaries, and directories clipmato depends on.
//
// These checks run in two contexts:
//   - The daemon runs RunAll at start-up and logs every failed check.
//   - The API status endpoint and "clipmato status" report the local checks
//     (system dependencies, directories, StageHealth) without network calls.
//
// Network checks are only run when the corresponding credential is set.
package preflight
