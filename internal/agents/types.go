// Package agents provides the agent data model: roles, needs, personas,
// and the bounded memory stream used for oracle context.
package agents

// Role is an agent's daily-life archetype; it seeds need floors and shows
// up in oracle prompts.
type Role string

const (
	RoleStudent  Role = "student"
	RoleResident Role = "resident"
	RoleWorker   Role = "worker"
)

// Roles lists the spawnable roles in sampling order.
var Roles = []Role{RoleStudent, RoleResident, RoleWorker}

// Needs maps a need or category name to urgency in [0, 1]. Keys mix bare
// needs (hunger, caffeine, social) with POI categories injected by
// scenario biases; the decider maps both onto destination categories.
type Needs map[string]float64

// Clone returns an independent copy.
func (n Needs) Clone() Needs {
	out := make(Needs, len(n))
	for k, v := range n {
		out[k] = v
	}
	return out
}

// Top returns the k highest-urgency entries, ordered high to low. Ties
// break on key order so output is deterministic.
func (n Needs) Top(k int) []NeedLevel {
	out := make([]NeedLevel, 0, len(n))
	for name, v := range n {
		out = append(out, NeedLevel{Name: name, Level: v})
	}
	sortNeedLevels(out)
	if k < len(out) {
		out = out[:k]
	}
	return out
}

// NeedLevel is one named need with its current urgency.
type NeedLevel struct {
	Name  string
	Level float64
}

func sortNeedLevels(s []NeedLevel) {
	// Insertion sort; need maps are tiny.
	for i := 1; i < len(s); i++ {
		for j := i; j > 0; j-- {
			a, b := s[j-1], s[j]
			if a.Level > b.Level || (a.Level == b.Level && a.Name < b.Name) {
				break
			}
			s[j-1], s[j] = b, a
		}
	}
}

// Agent is one simulated pedestrian. Position is continuous in grid-cell
// units; travel interpolates along A* paths. The sim runner owns its
// agents exclusively; the decider only reads snapshots.
type Agent struct {
	ID      string        `json:"id"`
	Role    Role          `json:"role"`
	X       float64       `json:"x"` // grid-cell coordinates
	Y       float64       `json:"y"`
	Needs   Needs         `json:"needs"`
	Persona Persona       `json:"persona"`
	Memory  []MemoryEvent `json:"memory,omitempty"`
}
