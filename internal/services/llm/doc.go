// Package llm provides the OpenAI-compatible chat client shared by the
// enrichment agents and the schedule proposer.
//
// # Entry Points
//
// NewClient: construct a client from Config. The client is an explicit handle;
// callers receive it through their constructors.
// Client.Complete: send system/user prompts, receive free-form text.
// Client.CompleteJSON: same, asking the model for a JSON object.
// Client.HealthCheck: verify API key and model availability.
// DecodeOr: decode model output into a typed value, substituting a declared
// default when the payload is malformed.
//
// # Failure Behaviour
//
// Requests are sent once. HTTP errors, empty completions, and transport
// failures are returned to the caller; the pipeline treats them as stage
// failures. Malformed payloads are the caller's decision: DecodeOr reports the
// decode error alongside the default so the caller can log it.
package llm
