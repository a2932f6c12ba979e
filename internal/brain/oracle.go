// Oracle strategy — delegates category selection to an LLM provider with
// a strict JSON contract and an unconditional deterministic fallback.
package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abhinav24jha/blank-slate/internal/agents"
	"github.com/abhinav24jha/blank-slate/internal/grid"
)

// DefaultOracleTimeout bounds one provider call.
const DefaultOracleTimeout = 30 * time.Second

// Oracle decides via an LLM provider. Any failure (timeout, transport,
// malformed output, unknown category) falls back to the deterministic rule
// so the simulation never blocks on the network.
type Oracle struct {
	provider Provider
	fallback Deterministic
	timeout  time.Duration
}

// NewOracle creates an oracle decider around a provider. timeout <= 0
// selects the default.
func NewOracle(p Provider, timeout time.Duration) *Oracle {
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	return &Oracle{provider: p, timeout: timeout}
}

// Decide queries the provider and validates its answer. The returned
// Decision carries Fallback=true when the deterministic rule decided
// instead. The error is always nil.
func (o *Oracle) Decide(ctx context.Context, a *agents.Agent, dc *Context) (Decision, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	raw, err := o.provider.Complete(callCtx, oracleSystemPrompt, buildOraclePrompt(a, dc))
	if err == nil {
		var d Decision
		if d, err = parseOracleDecision(raw); err == nil {
			return d, nil
		}
	}

	slog.Debug("oracle fallback", "agent", a.ID, "provider", o.provider.Name(), "err", err)
	d, _ := o.fallback.Decide(ctx, a, dc)
	d.Fallback = true
	return d, nil
}

var oracleSystemPrompt = fmt.Sprintf(
	`You decide where one pedestrian goes next in a small city. Respond ONLY with a single JSON object:
{"category": "...", "thought": "...", "memory": "..."}
- "category" MUST be one of: %s
- "thought" is one short sentence of inner monologue
- "memory" is one short line the person would remember about this choice
No prose outside the JSON object.`,
	strings.Join(grid.Categories, ", "),
)

func buildOraclePrompt(a *agents.Agent, dc *Context) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Person: %s\n", a.Persona.Compact())
	fmt.Fprintf(&b, "Time of day: %s\n", dc.TimeOfDay)
	if dc.Scenario != "" {
		fmt.Fprintf(&b, "Neighborhood context: %s\n", dc.Scenario)
	}

	b.WriteString("Current needs (strongest first):\n")
	for _, nl := range a.Needs.Top(3) {
		fmt.Fprintf(&b, "- %s: %.2f\n", nl.Name, nl.Level)
	}

	if len(dc.Biases) > 0 {
		b.WriteString("The neighborhood recently gained:\n")
		for _, cat := range grid.Categories {
			if w, ok := dc.Biases[cat]; ok {
				fmt.Fprintf(&b, "- %s (interest %.2f)\n", cat, w)
			}
		}
	}

	if lines := agents.RecentMemoryLines(a, 5); len(lines) > 0 {
		b.WriteString("Recent memories:\n")
		for _, m := range lines {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}

	if dc.Meeting {
		b.WriteString("You are meeting someone; pick somewhere to sit together.\n")
	}

	b.WriteString("Where do you go next? Respond with a single JSON object.")
	return b.String()
}

// parseOracleDecision salvages the first JSON object from the response and
// validates its category against the closed set.
func parseOracleDecision(raw string) (Decision, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end <= start {
		return Decision{}, fmt.Errorf("%w: no JSON object in response", ErrOracle)
	}

	var d Decision
	if err := json.Unmarshal([]byte(raw[start:end+1]), &d); err != nil {
		return Decision{}, fmt.Errorf("%w: parse: %v", ErrOracle, err)
	}
	d.Category = strings.ToLower(strings.TrimSpace(d.Category))
	if !grid.KnownCategory(d.Category) {
		return Decision{}, fmt.Errorf("%w: unknown category %q", ErrOracle, d.Category)
	}
	if d.Memory == "" {
		d.Memory = "decided to visit a " + d.Category
	}
	return d, nil
}
