// Package pipeline runs an ordered list of named steps over a per-job State.
//
// Each Step declares the State keys it reads and the keys it writes. Before a
// step runs, the job's progress is moved to the step's name; afterwards its
// result is stored under the declared output keys (a Tuple result is unpacked
// across several keys in order). Steps marked Offload run under a bounded
// WorkerPool so blocking media work cannot starve other jobs. Steps are never
// retried: the first error stops the run and is returned as-is.
package pipeline
