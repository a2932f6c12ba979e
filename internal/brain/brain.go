// Package brain selects the next destination category for an agent. Two
// strategies exist: an LLM oracle and a deterministic rule used as both
// the baseline policy and the oracle's fallback.
package brain

import (
	"context"
	"errors"

	"github.com/abhinav24jha/blank-slate/internal/agents"
)

// ErrOracle wraps any oracle failure: timeout, transport error, malformed
// output, or a category outside the known set.
var ErrOracle = errors.New("oracle decision failed")

// Context is the per-tick situation handed to a decider. Deciders read it
// and the agent; they never mutate either.
type Context struct {
	TimeS     float64            // simulated seconds since scenario start
	TimeOfDay string             // "morning", "midday", "afternoon", "evening"
	Biases    map[string]float64 // scenario category biases
	Scenario  string             // scenario title for prompt color
	Meeting   bool               // social-meeting context flag
}

// Decision is one destination choice. Memory is a new line for the agent's
// memory stream; the simulation loop appends it, not the decider.
type Decision struct {
	Category string `json:"category"`
	Thought  string `json:"thought"`
	Memory   string `json:"memory"`
	Fallback bool   `json:"-"` // true when the oracle failed and the rule decided
}

// Decider picks a destination category for one agent.
type Decider interface {
	Decide(ctx context.Context, a *agents.Agent, dc *Context) (Decision, error)
}

// TimeOfDay buckets a simulated clock-seconds value into a coarse label
// for oracle prompts. The simulated day starts at 08:00.
func TimeOfDay(simS float64) string {
	h := 8 + int(simS/3600)%24
	switch {
	case h < 11:
		return "morning"
	case h < 14:
		return "midday"
	case h < 18:
		return "afternoon"
	default:
		return "evening"
	}
}
