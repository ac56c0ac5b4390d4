package combat

import (
	"context"
	"fmt"

	"github.com/cory-johannsen/feforecast/internal/game/rng"
)

// Source is the subset of dice.Source used by the simulator.
// Using a local interface avoids an import of the dice package.
type Source interface {
	Intn(n int) int
}

// cancelCheckEvery is how many trials run between context checks.
const cancelCheckEvery = 1024

// Simulate replays the round trials times, drawing random numbers from src the
// way the game does, and returns the empirical outcome distribution. It is an
// independent check on EvaluateRound: the two agree up to sampling error.
//
// Precondition: atk and def must satisfy Validate; atkHP, defHP >= 0; src non-nil.
// Postcondition: Returns a canonical outcome set summing to 1, or ctx.Err() if
// ctx is cancelled before all trials finish.
func Simulate(ctx context.Context, src Source, sys rng.System, atk Stats, atkHP int, def Stats, defHP int, pattern Pattern, trials int) ([]Outcome, error) {
	if trials <= 0 {
		return nil, fmt.Errorf("combat: trials must be > 0, got %d", trials)
	}
	order := pattern.Order()
	counts := make(map[hpKey]int)
	for i := 0; i < trials; i++ {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		hp := [2]int{atkHP, defHP}
		for _, side := range order {
			striker, self, target := atk, 0, 1
			if side == Defender {
				striker, self, target = def, 1, 0
			}
			strikes := 1
			if striker.Brave {
				strikes = 2
			}
			for n := 0; n < strikes && hp[self] > 0; n++ {
				hp[target] = floorSub(hp[target], rollDamage(src, sys, striker))
			}
		}
		counts[hpKey{hp[0], hp[1]}]++
	}

	outcomes := make([]Outcome, 0, len(counts))
	for k, n := range counts {
		outcomes = append(outcomes, Outcome{
			Prob:  float64(n) / float64(trials),
			AtkHP: k.atk,
			DefHP: k.def,
		})
	}
	return Canonicalize(outcomes), nil
}

// rollDamage resolves one strike and returns the damage it deals.
func rollDamage(src Source, sys rng.System, striker Stats) int {
	if !sys.Roll(src, striker.Hit) {
		return 0
	}
	if src.Intn(100) < striker.Crit {
		return critMultiplier * striker.Damage
	}
	return striker.Damage
}
