// Package agent wraps the external reasoning agent. The agent is opaque:
// it takes a query and produces a final answer plus whatever it printed
// to its console along the way. The transcript is the only structured
// signal downstream code gets.
package agent

import "context"

// Result is one completed agent invocation.
type Result struct {
	// Answer is the agent's final answer text.
	Answer string
	// Transcript is the combined stdout/stderr captured for the run.
	Transcript string
}

// Agent runs one query to completion. Run blocks until the agent
// finishes or ctx expires; implementations do not retry.
type Agent interface {
	Run(ctx context.Context, query string) (Result, error)
	// Available reports whether the agent can be invoked at all.
	// Used by the health handler.
	Available() error
}
