// Package metadata stores job records in a single JSON array file shared by
// every job and reader in the process (and by other processes on the host).
//
// Mutations take an exclusive advisory lock on a sidecar lock file, re-read
// the array, apply the change, and atomically replace the file. Readers never
// lock; they rely on the rename to observe whole files only.
package metadata
