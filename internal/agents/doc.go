// Package agents implements the language-model collaborators of the
// enrichment pipeline: descriptions, entity extraction, title suggestions,
// script writing, and schedule proposals.
//
// Every agent takes a Completer, normally an *llm.Client, through its
// constructor. Transport failures are returned as stage failures. Malformed
// JSON from the model decodes to the agent's declared default and is logged
// as a warning.
package agents
