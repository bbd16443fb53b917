// Package stage names the enrichment stages, declares the collaborator
// contracts each stage calls, and builds the ordered step list for a job from a
// static registry assembled once at start-up.
package stage
