// Deterministic persona sampling — stable traits and preferences per
// agent seed, consumed only by the oracle decider's prompt.
package agents

import (
	"fmt"
	"math/rand"
	"strings"
)

// Persona is a compact character sketch. It never changes after sampling.
type Persona struct {
	ID     string            `json:"id"`
	Role   Role              `json:"role"`
	Name   string            `json:"name"`
	Traits []string          `json:"traits"`
	Prefs  map[string]string `json:"prefs"`
}

var firstNames = []string{
	"Alex", "Sam", "Taylor", "Jordan", "Riley",
	"Casey", "Jamie", "Avery", "Morgan", "Drew",
}

var lastNames = []string{
	"Lee", "Patel", "Nguyen", "Kim", "Singh",
	"Brown", "Garcia", "Martin", "Hernandez", "Wilson",
}

var coreTraits = []string{
	"punctual", "social", "frugal", "curious", "optimistic",
	"introvert", "extrovert", "planner", "impulsive", "health-conscious",
	"night-owl", "early-riser", "tech-savvy", "bookish", "foodie", "gym-goer",
}

// SamplePersona draws a persona from a per-agent seed. Identical seeds
// always produce identical personas.
func SamplePersona(id string, role Role, seed int64) Persona {
	rng := rand.New(rand.NewSource(seed))

	name := firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))]

	traits := make([]string, 0, 4)
	perm := rng.Perm(len(coreTraits))
	for _, i := range perm[:4] {
		traits = append(traits, coreTraits[i])
	}

	pick := func(opts ...string) string { return opts[rng.Intn(len(opts))] }
	prefs := map[string]string{
		"coffee":   pick("low", "med", "high"),
		"budget":   pick("low", "med", "high"),
		"diet":     pick("omnivorous", "vegetarian", "vegan", "halal", "kosher", "pescatarian"),
		"mobility": pick("walk", "bus", "bike"),
		"favorite": pick("cafe", "park", "grocery", "library", "gym", "restaurant"),
	}
	if role == RoleStudent {
		prefs["study_spot"] = pick("quiet", "lively", "outdoors")
	}

	return Persona{ID: id, Role: role, Name: name, Traits: traits, Prefs: prefs}
}

// Compact renders the persona as a one-line prompt fragment.
func (p *Persona) Compact() string {
	traits := strings.Join(p.Traits, ", ")
	if traits == "" {
		traits = "none"
	}
	prefs := make([]string, 0, len(p.Prefs))
	for _, k := range []string{"coffee", "budget", "diet", "mobility", "study_spot", "favorite"} {
		if v, ok := p.Prefs[k]; ok {
			prefs = append(prefs, k+":"+v)
		}
	}
	pstr := strings.Join(prefs, ", ")
	if pstr == "" {
		pstr = "none"
	}
	return fmt.Sprintf("%s (%s); traits: %s; prefs: %s", p.Name, p.Role, traits, pstr)
}
