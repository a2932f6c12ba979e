// Agent memory stream — a bounded append-only log of decisions and events
// feeding the oracle's prompt context.
package agents

// MaxMemories bounds in-process memory per agent; older entries roll off.
const MaxMemories = 16

// MemoryEvent records one notable experience.
type MemoryEvent struct {
	TS   string   `json:"ts"`
	Kind string   `json:"kind"` // "decision", "arrival", "purchase", "chat"
	Text string   `json:"text"`
	Tags []string `json:"tags,omitempty"`
}

// AppendMemory adds an event to the agent's stream, dropping the oldest
// entry once the bound is reached.
func AppendMemory(a *Agent, ev MemoryEvent) {
	a.Memory = append(a.Memory, ev)
	if len(a.Memory) > MaxMemories {
		a.Memory = a.Memory[len(a.Memory)-MaxMemories:]
	}
}

// RecentMemoryLines returns up to k most recent memory texts, newest last.
func RecentMemoryLines(a *Agent, k int) []string {
	start := len(a.Memory) - k
	if start < 0 {
		start = 0
	}
	out := make([]string, 0, len(a.Memory)-start)
	for _, m := range a.Memory[start:] {
		out = append(out, m.Text)
	}
	return out
}
