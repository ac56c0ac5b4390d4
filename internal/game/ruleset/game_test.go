package ruleset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/feforecast/internal/game/rng"
	"github.com/cory-johannsen/feforecast/internal/game/ruleset"
)

func TestGame_RNSystem(t *testing.T) {
	tests := []struct {
		game ruleset.Game
		want rng.System
	}{
		{ruleset.FE1, rng.Direct},
		{ruleset.FE4, rng.Direct},
		{ruleset.FE5, rng.Direct},
		{ruleset.FE6, rng.Averaged},
		{ruleset.FE7, rng.Averaged},
		{ruleset.FE13, rng.Averaged},
		{ruleset.FE14, rng.SplitBlend},
		{ruleset.FE15, rng.Averaged},
		{ruleset.SoV, rng.SplitBlend},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.game.RNSystem(), "game=%s", tc.game)
	}
}

func TestGame_TrueHit_DelegatesToSystem(t *testing.T) {
	assert.InDelta(t, 0.823, ruleset.FE7.TrueHit(70), 0.01)
	assert.InDelta(t, 0.7887, ruleset.FE14.TrueHit(70), 0.01)
	assert.InDelta(t, 0.70, ruleset.FE3.TrueHit(70), 0.01)
}

func TestGame_CritDamage(t *testing.T) {
	assert.Equal(t, 15, ruleset.FE7.CritDamage(12, 7))
	assert.Equal(t, 17, ruleset.FE4.CritDamage(12, 7))
	assert.Equal(t, 17, ruleset.FE5.CritDamage(12, 7))
	assert.Equal(t, 0, ruleset.FE8.CritDamage(5, 9), "crit damage floors at zero")
	assert.Equal(t, 0, ruleset.FE5.CritDamage(3, 9), "crit damage floors at zero")
}

func TestGame_Property_CritDamageNonNegative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		g := rapid.SampledFrom(ruleset.Games()).Draw(rt, "game")
		atk := rapid.IntRange(0, 80).Draw(rt, "atk")
		def := rapid.IntRange(0, 80).Draw(rt, "def")
		assert.GreaterOrEqual(rt, g.CritDamage(atk, def), 0)
	})
}

func TestParseGame(t *testing.T) {
	g, err := ruleset.ParseGame("fe7")
	require.NoError(t, err)
	assert.Equal(t, ruleset.FE7, g)

	g, err = ruleset.ParseGame("SOV")
	require.NoError(t, err)
	assert.Equal(t, ruleset.SoV, g)

	_, err = ruleset.ParseGame("FE16")
	assert.Error(t, err)
}

func TestParseGame_Property_StringRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		g := rapid.SampledFrom(ruleset.Games()).Draw(rt, "game")
		got, err := ruleset.ParseGame(g.String())
		require.NoError(rt, err)
		assert.Equal(rt, g, got)
	})
}

func TestGames_ReleaseOrder(t *testing.T) {
	games := ruleset.Games()
	require.Len(t, games, 16)
	assert.Equal(t, ruleset.FE1, games[0])
	assert.Equal(t, ruleset.SoV, games[len(games)-1])
	assert.Equal(t, "unknown", ruleset.Game(99).String())
}

func TestGame_Valid(t *testing.T) {
	for _, g := range ruleset.Games() {
		assert.True(t, g.Valid(), "game=%s", g)
	}
	assert.False(t, ruleset.Game(-1).Valid())
	assert.False(t, (ruleset.SoV + 1).Valid())
}
