// Need seeding, decay, and scenario-derived category biases.
package agents

import (
	"github.com/abhinav24jha/blank-slate/internal/scenario"
)

// Per-tick dynamics. Decay pulls every need toward zero; reinforcement
// keeps biased categories from decaying below their scenario weight.
const (
	decayRate      = 0.02
	reinforceDecay = 0.1
	biasSeedBoost  = 0.2
	biasAddStep    = 0.2
)

// roleFloors gives each role its baseline urgencies.
var roleFloors = map[Role]Needs{
	RoleStudent:  {"education": 0.5, "cafe": 0.4},
	RoleResident: {"grocery": 0.4},
	RoleWorker:   {"cafe": 0.3},
}

// BuildNeedBiases derives category→weight biases for a scenario. A
// declared tags.bias wins; otherwise each distinct added category starts
// at 0.2 and gains 0.2 per further add, clamped to [0,1].
func BuildNeedBiases(s *scenario.Scenario) map[string]float64 {
	bias := s.Biases()
	if bias == nil {
		bias = make(map[string]float64)
		for _, pd := range s.POIAdd {
			bias[pd.Type] = bias[pd.Type] + biasAddStep
		}
	}
	for cat, w := range bias {
		bias[cat] = clamp01(w)
	}
	return bias
}

// SeedNeeds applies role floors over the base needs, then lifts every
// biased category to at least weight+0.2. The input map is not mutated.
func SeedNeeds(base Needs, biases map[string]float64, role Role) Needs {
	out := base.Clone()
	for name, floor := range roleFloors[role] {
		if out[name] < floor {
			out[name] = floor
		}
	}
	for cat, w := range biases {
		boosted := clamp01(w + biasSeedBoost)
		if out[cat] < boosted {
			out[cat] = boosted
		}
	}
	return out
}

// DecayAndReinforce advances needs by dt seconds: everything decays at
// 0.02/s, while biased categories are held up near their weight so
// scenario interest persists through a run. Mutates and returns needs.
func DecayAndReinforce(needs Needs, dt float64, biases map[string]float64) Needs {
	for k, v := range needs {
		v -= decayRate * dt
		if v < 0 {
			v = 0
		}
		needs[k] = v
	}
	for cat, w := range biases {
		floor := w - reinforceDecay*dt
		if needs[cat] < floor {
			needs[cat] = floor
		}
		needs[cat] = clamp01(needs[cat])
	}
	return needs
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
