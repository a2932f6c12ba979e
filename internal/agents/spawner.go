// Agent spawning — creates a scenario's population with deterministic
// role sampling and seeded personas.
package agents

import (
	"fmt"
	"math/rand"

	"github.com/abhinav24jha/blank-slate/internal/grid"
)

// baseNeeds are the urgencies every agent starts from before role floors
// and scenario biases apply.
var baseNeeds = Needs{"caffeine": 0.4, "social": 0.4, "hunger": 0.4}

// Spawner creates agents for one scenario run. Two spawners with the same
// seed emit identical populations.
type Spawner struct {
	seed int64
	rng  *rand.Rand
}

// NewSpawner creates a spawner with its own RNG stream.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{seed: seed, rng: rand.New(rand.NewSource(seed + 300))}
}

// SpawnAt creates count agents at the given cell, roles drawn uniformly,
// needs seeded from role floors and scenario biases.
func (s *Spawner) SpawnAt(count int, cy, cx int, biases map[string]float64) []*Agent {
	cells := make([]grid.Cell, count)
	for i := range cells {
		cells[i] = grid.Cell{IY: cy, IX: cx}
	}
	return s.SpawnAtCells(cells, biases)
}

// SpawnAtCells creates one agent per cell. Role, needs, and persona draws
// depend only on the spawner seed and agent index, never on position, so
// every spawn mode yields the same population.
func (s *Spawner) SpawnAtCells(cells []grid.Cell, biases map[string]float64) []*Agent {
	out := make([]*Agent, 0, len(cells))
	for i, c := range cells {
		id := fmt.Sprintf("E%d", i)
		role := Roles[s.rng.Intn(len(Roles))]
		out = append(out, &Agent{
			ID:      id,
			Role:    role,
			X:       float64(c.IX),
			Y:       float64(c.IY),
			Needs:   SeedNeeds(baseNeeds, biases, role),
			Persona: SamplePersona(id, role, s.seed+int64(i)),
		})
	}
	return out
}
