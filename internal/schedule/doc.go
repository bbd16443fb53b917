// Package schedule assigns posting times to finished episodes.
//
// Compute is the deterministic cadence-based calculation. Planner asks a
// Proposer (usually an LLM agent) first and falls back to Compute when the
// proposal fails or is unusable. Auto applies a plan to every record that has
// no schedule yet and can run on a cron expression inside the daemon.
package schedule
