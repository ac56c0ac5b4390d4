package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/feforecast/internal/game/combat"
	"github.com/cory-johannsen/feforecast/internal/game/rng"
)

func TestCanonicalize_MergesAndDropsZero(t *testing.T) {
	in := []combat.Outcome{
		{Prob: 0.25, AtkHP: 10, DefHP: 5},
		{Prob: 0, AtkHP: 10, DefHP: 0},
		{Prob: 0.5, AtkHP: 10, DefHP: 5},
		{Prob: 0.25, AtkHP: 3, DefHP: 5},
	}
	got := combat.Canonicalize(in)
	assert.Equal(t, []combat.Outcome{
		{Prob: 0.75, AtkHP: 10, DefHP: 5},
		{Prob: 0.25, AtkHP: 3, DefHP: 5},
	}, got)
}

func TestCanonicalize_EmptyInput(t *testing.T) {
	assert.Empty(t, combat.Canonicalize(nil))
}

func TestCanonicalize_DoesNotRenormalize(t *testing.T) {
	got := combat.Canonicalize([]combat.Outcome{{Prob: 0.3, AtkHP: 1, DefHP: 1}})
	assert.Equal(t, 0.3, combat.TotalProb(got))
}

func TestCanonicalize_Property_SelfMergeScalesProbability(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		canonical := genMatchup(rt).evaluate()
		doubled := combat.Canonicalize(append(append([]combat.Outcome{}, canonical...), canonical...))
		require.Len(rt, doubled, len(canonical))
		for i := range canonical {
			assert.Equal(rt, canonical[i].AtkHP, doubled[i].AtkHP)
			assert.Equal(rt, canonical[i].DefHP, doubled[i].DefHP)
			assert.InDelta(rt, 2*canonical[i].Prob, doubled[i].Prob, 1e-15)
		}
	})
}

func TestCanonicalize_Property_Idempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		canonical := genMatchup(rt).evaluate()
		assert.Equal(rt, canonical, combat.Canonicalize(canonical))
	})
}

func TestCanonicalize_Property_OrderIndependent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		raw := rapid.SliceOfN(rapid.Custom(func(rt *rapid.T) combat.Outcome {
			return combat.Outcome{
				Prob:  float64(rapid.IntRange(0, 8).Draw(rt, "sixteenths")) / 16,
				AtkHP: rapid.IntRange(0, 3).Draw(rt, "atk_hp"),
				DefHP: rapid.IntRange(0, 3).Draw(rt, "def_hp"),
			}
		}), 0, 20).Draw(rt, "raw")
		perm := rapid.Permutation(raw).Draw(rt, "perm")
		// Sixteenths add exactly, so merge order cannot change the sums.
		assert.Equal(rt, combat.Canonicalize(raw), combat.Canonicalize(perm))
	})
}

func TestOutcome_Swap(t *testing.T) {
	o := combat.Outcome{Prob: 0.4, AtkHP: 12, DefHP: 3}
	assert.Equal(t, combat.Outcome{Prob: 0.4, AtkHP: 3, DefHP: 12}, o.Swap())
	assert.Equal(t, o, o.Swap().Swap())
}

func TestProbOf_Unreachable(t *testing.T) {
	got := combat.EvaluateRound(rng.Direct, combat.Stats{Damage: 1, Hit: 100}, 5, idle, 5, combat.Even)
	assert.Equal(t, 0.0, combat.ProbOf(got, 5, 5))
	assert.Equal(t, 1.0, combat.ProbOf(got, 5, 4))
}
