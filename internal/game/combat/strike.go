package combat

import "github.com/cory-johannsen/feforecast/internal/game/rng"

// critMultiplier is applied to Damage on a critical hit. FE4 and FE5 use
// 2*Atk - Def instead, which needs stats this package does not have.
const critMultiplier = 3

// ApplyStrike folds one turn of strikes by side into states. A Brave striker
// strikes twice, the second strike starting from the HP left by the first.
//
// A striker at 0 HP cannot act, so its states are carried forward unchanged.
// Every other state splits into miss, normal hit and critical hit branches
// weighted by the striker's true hit and crit rates, and the target's HP
// floors at 0.
//
// Precondition: striker must satisfy Validate; states must be canonical.
// Postcondition: Returns a canonical outcome set with the same total probability.
func ApplyStrike(sys rng.System, striker Stats, states []Outcome, by Side) []Outcome {
	if by == Defender {
		// Swapping back reverses the sort keys, so the result is re-canonicalized.
		return Canonicalize(swapAll(ApplyStrike(sys, striker, swapAll(states), Attacker)))
	}
	after := strikeOnce(sys, striker, states)
	if striker.Brave {
		after = strikeOnce(sys, striker, after)
	}
	return after
}

// strikeOnce applies a single strike from the AtkHP side onto the DefHP side.
func strikeOnce(sys rng.System, striker Stats, states []Outcome) []Outcome {
	probHit := sys.TrueHit(striker.Hit)
	probMiss := 1.0 - probHit
	probCrit := probHit * float64(striker.Crit) / 100.0
	probNormal := probHit * (1.0 - float64(striker.Crit)/100.0)

	next := make([]Outcome, 0, 3*len(states))
	for _, s := range states {
		if s.AtkHP == 0 {
			next = append(next, s)
			continue
		}
		next = append(next,
			Outcome{Prob: s.Prob * probMiss, AtkHP: s.AtkHP, DefHP: s.DefHP},
			Outcome{Prob: s.Prob * probNormal, AtkHP: s.AtkHP, DefHP: floorSub(s.DefHP, striker.Damage)},
			Outcome{Prob: s.Prob * probCrit, AtkHP: s.AtkHP, DefHP: floorSub(s.DefHP, critMultiplier*striker.Damage)},
		)
	}
	return Canonicalize(next)
}

// floorSub returns hp - dmg, floored at 0.
func floorSub(hp, dmg int) int {
	if dmg >= hp {
		return 0
	}
	return hp - dmg
}
