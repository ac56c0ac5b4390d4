package combat

import (
	"cmp"
	"slices"
)

// Outcome is one possible state of the round with its probability.
//
// Invariant: AtkHP >= 0 and DefHP >= 0.
type Outcome struct {
	Prob  float64 `json:"prob" yaml:"prob"`
	AtkHP int     `json:"atk_hp" yaml:"atk_hp"`
	DefHP int     `json:"def_hp" yaml:"def_hp"`
}

// Swap exchanges the attacker and defender HP, keeping the probability.
func (o Outcome) Swap() Outcome {
	return Outcome{Prob: o.Prob, AtkHP: o.DefHP, DefHP: o.AtkHP}
}

type hpKey struct {
	atk, def int
}

// Canonicalize merges outcomes that share the same (AtkHP, DefHP) by summing
// their probabilities and drops outcomes whose probability is exactly zero.
// The mass is never renormalized.
//
// Postcondition: Returned outcomes have pairwise-distinct HP pairs, are sorted
// by AtkHP then DefHP (both descending), and their total probability equals
// the input total up to floating-point rounding.
func Canonicalize(outcomes []Outcome) []Outcome {
	index := make(map[hpKey]int, len(outcomes))
	merged := make([]Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Prob == 0 {
			continue
		}
		k := hpKey{o.AtkHP, o.DefHP}
		if i, ok := index[k]; ok {
			merged[i].Prob += o.Prob
			continue
		}
		index[k] = len(merged)
		merged = append(merged, o)
	}
	slices.SortFunc(merged, compareOutcomes)
	return merged
}

func compareOutcomes(a, b Outcome) int {
	if c := cmp.Compare(b.AtkHP, a.AtkHP); c != 0 {
		return c
	}
	return cmp.Compare(b.DefHP, a.DefHP)
}

func swapAll(outcomes []Outcome) []Outcome {
	out := make([]Outcome, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Swap()
	}
	return out
}

// TotalProb returns the summed probability of outcomes.
func TotalProb(outcomes []Outcome) float64 {
	total := 0.0
	for _, o := range outcomes {
		total += o.Prob
	}
	return total
}

// ProbOf returns the probability of the state (atkHP, defHP) in a canonical
// outcome set, or 0 if the state is unreachable.
func ProbOf(outcomes []Outcome, atkHP, defHP int) float64 {
	for _, o := range outcomes {
		if o.AtkHP == atkHP && o.DefHP == defHP {
			return o.Prob
		}
	}
	return 0
}
