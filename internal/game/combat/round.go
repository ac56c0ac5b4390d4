package combat

import "github.com/cory-johannsen/feforecast/internal/game/rng"

// EvaluateRound returns every possible end state of one round of combat
// between atk and def, starting from atkHP and defHP, with the strike order
// given by pattern and hit rates converted by sys.
//
// The attacker strikes, then the defender; AtkDoubles adds a final attacker
// strike and DefDoubles a final defender strike.
//
// Precondition: atk and def must satisfy Validate; atkHP >= 0; defHP >= 0.
// Postcondition: Returns a canonical outcome set whose probabilities sum to 1.
func EvaluateRound(sys rng.System, atk Stats, atkHP int, def Stats, defHP int, pattern Pattern) []Outcome {
	states := []Outcome{{Prob: 1.0, AtkHP: atkHP, DefHP: defHP}}
	for _, side := range pattern.Order() {
		striker := atk
		if side == Defender {
			striker = def
		}
		states = ApplyStrike(sys, striker, states, side)
	}
	return states
}
