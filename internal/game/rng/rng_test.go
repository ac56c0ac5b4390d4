package rng_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/feforecast/internal/game/rng"
)

func TestTrueHit_ReferencePoints(t *testing.T) {
	tests := []struct {
		sys  rng.System
		want float64
	}{
		{rng.Direct, 0.70},
		{rng.Averaged, 0.823},
		{rng.SplitBlend, 0.7887},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, tc.sys.TrueHit(70), 0.01, "system=%s", tc.sys)
	}
}

func TestTrueHit_DirectEndpointsExact(t *testing.T) {
	assert.Equal(t, 0.0, rng.Direct.TrueHit(0))
	assert.Equal(t, 1.0, rng.Direct.TrueHit(100))
}

func TestTrueHit_AveragedExactCount(t *testing.T) {
	// 1770 of the 10000 pairs have i+j >= 140.
	assert.InDelta(t, 1.0-1770.0/10000.0, rng.Averaged.TrueHit(70), 1e-15)
	assert.Equal(t, 0.0, rng.Averaged.TrueHit(0))
	assert.Equal(t, 1.0, rng.Averaged.TrueHit(100))
	// (0,0), (0,1) and (1,0) are the only pairs summing below 2.
	assert.Equal(t, 3.0/10000.0, rng.Averaged.TrueHit(1))
}

func TestTrueHit_SplitBlendBelowFiftyIsDirect(t *testing.T) {
	for listed := 0; listed < 50; listed++ {
		assert.Equal(t, rng.Direct.TrueHit(listed), rng.SplitBlend.TrueHit(listed), "listed=%d", listed)
	}
	assert.InDelta(t, 0.5, rng.SplitBlend.TrueHit(50), 1e-12)
}

func TestTrueHit_PanicsOutOfRange(t *testing.T) {
	for _, sys := range rng.Systems() {
		assert.Panics(t, func() { sys.TrueHit(-1) }, "system=%s", sys)
		assert.Panics(t, func() { sys.TrueHit(101) }, "system=%s", sys)
	}
}

func TestTrueHit_Property_BoundedAndMonotone(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sys := rapid.SampledFrom(rng.Systems()).Draw(rt, "system")
		lo := rapid.IntRange(0, 100).Draw(rt, "lo")
		hi := rapid.IntRange(lo, 100).Draw(rt, "hi")

		pLo, pHi := sys.TrueHit(lo), sys.TrueHit(hi)
		assert.GreaterOrEqual(rt, pLo, 0.0)
		assert.LessOrEqual(rt, pHi, 1.0)
		assert.LessOrEqual(rt, pLo, pHi, "TrueHit must be non-decreasing: %s(%d) > %s(%d)", sys, lo, sys, hi)
	})
}

func TestTrueHit_EveryListedValueMonotone(t *testing.T) {
	for _, sys := range rng.Systems() {
		prev := sys.TrueHit(0)
		for listed := 1; listed <= 100; listed++ {
			cur := sys.TrueHit(listed)
			require.GreaterOrEqual(t, cur, prev, "system=%s listed=%d", sys, listed)
			require.LessOrEqual(t, cur, 1.0, "system=%s listed=%d", sys, listed)
			prev = cur
		}
	}
}

func TestParseSystem(t *testing.T) {
	tests := []struct {
		name string
		want rng.System
	}{
		{"1rn", rng.Direct},
		{"Direct", rng.Direct},
		{"2RN", rng.Averaged},
		{"averaged", rng.Averaged},
		{"fates", rng.SplitBlend},
		{"FatesRN", rng.SplitBlend},
		{" splitblend ", rng.SplitBlend},
	}
	for _, tc := range tests {
		got, err := rng.ParseSystem(tc.name)
		require.NoError(t, err, "name=%q", tc.name)
		assert.Equal(t, tc.want, got, "name=%q", tc.name)
	}
	_, err := rng.ParseSystem("3rn")
	assert.Error(t, err)
}

func TestParseSystem_Property_StringRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sys := rapid.SampledFrom(rng.Systems()).Draw(rt, "system")
		got, err := rng.ParseSystem(sys.String())
		require.NoError(rt, err)
		assert.Equal(rt, sys, got)
	})
}

type pcgSource struct{ r *rand.Rand }

func (p pcgSource) Intn(n int) int { return p.r.IntN(n) }

func TestRoll_ConvergesToTrueHit(t *testing.T) {
	src := pcgSource{r: rand.New(rand.NewPCG(7, 11))}
	const trials = 40000
	for _, sys := range rng.Systems() {
		for _, listed := range []int{0, 30, 70, 100} {
			hits := 0
			for i := 0; i < trials; i++ {
				if sys.Roll(src, listed) {
					hits++
				}
			}
			assert.InDelta(t, sys.TrueHit(listed), float64(hits)/trials, 0.015,
				"system=%s listed=%d", sys, listed)
		}
	}
}

func TestRoll_Extremes(t *testing.T) {
	src := pcgSource{r: rand.New(rand.NewPCG(1, 2))}
	for _, sys := range rng.Systems() {
		for i := 0; i < 500; i++ {
			assert.False(t, sys.Roll(src, 0), "system=%s", sys)
			assert.True(t, sys.Roll(src, 100), "system=%s", sys)
		}
	}
}

func TestTrueHit_SplitBlendFormula(t *testing.T) {
	toRadians := func(deg float64) float64 { return deg * (math.Pi / 180.0) }
	rapid.Check(t, func(rt *rapid.T) {
		listed := rapid.IntRange(50, 100).Draw(rt, "listed")
		lh := float64(listed)
		want := (lh + (4.0/30.0)*lh*math.Sin(toRadians((0.02*lh-1.0)*180.0))) / 100.0
		assert.InDelta(rt, want, rng.SplitBlend.TrueHit(listed), 1e-15)
	})
	assert.Equal(t, 0.5, rng.SplitBlend.TrueHit(50))
	assert.InDelta(t, 1.0, rng.SplitBlend.TrueHit(100), 1e-12)
}
