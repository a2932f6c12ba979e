// Deterministic category selection — the baseline policy and the fallback
// for every oracle failure.
package brain

import (
	"context"
	"fmt"

	"github.com/abhinav24jha/blank-slate/internal/agents"
	"github.com/abhinav24jha/blank-slate/internal/grid"
)

// needCategory maps bare need names onto destination categories. Need maps
// also carry category keys directly (from scenario biases); those pass
// through untranslated.
var needCategory = map[string]string{
	"hunger":    grid.CatRestaurant,
	"caffeine":  grid.CatCafe,
	"groceries": grid.CatGrocery,
	"health":    grid.CatPharmacy,
	"education": grid.CatEducation,
	"leisure":   grid.CatRetail,
	"social":    grid.CatCafe,
}

// Deterministic decides from the highest-urgency need via a fixed table.
// It never errors and never blocks.
type Deterministic struct{}

// Decide maps the top resolvable need to a category. A meeting context
// overrides toward cafe, or restaurant when hunger leads.
func (Deterministic) Decide(_ context.Context, a *agents.Agent, dc *Context) (Decision, error) {
	if dc != nil && dc.Meeting {
		cat := grid.CatCafe
		if a.Needs["hunger"] >= a.Needs["caffeine"] && a.Needs["hunger"] > 0 {
			cat = grid.CatRestaurant
		}
		return Decision{
			Category: cat,
			Thought:  "meeting someone, picking a spot to sit down",
			Memory:   fmt.Sprintf("met up at a %s", cat),
		}, nil
	}

	need, cat := "", ""
	for _, nl := range a.Needs.Top(len(a.Needs)) {
		if c, ok := needCategory[nl.Name]; ok {
			need, cat = nl.Name, c
			break
		}
		if grid.KnownCategory(nl.Name) {
			need, cat = nl.Name, nl.Name
			break
		}
	}
	if cat == "" {
		need, cat = "social", grid.CatCafe
	}

	return Decision{
		Category: cat,
		Thought:  fmt.Sprintf("%s is pressing, heading to a %s", need, cat),
		Memory:   fmt.Sprintf("went to a %s for %s", cat, need),
	}, nil
}
