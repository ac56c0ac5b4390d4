package forecast

import (
	"time"

	"github.com/google/uuid"

	"github.com/cory-johannsen/feforecast/internal/game/combat"
	"github.com/cory-johannsen/feforecast/internal/game/rng"
)

// Forecast is the evaluated result of a Matchup.
type Forecast struct {
	ID      uuid.UUID
	Matchup Matchup
	// System is the hit rate system of Matchup.Game.
	System   rng.System
	Outcomes []combat.Outcome
	Summary  combat.Summary
	// Trials is the number of sampled rounds for a simulated forecast, 0 for
	// an exact one.
	Trials    int
	CreatedAt time.Time
}

// Exact reports whether f was computed in closed form.
func (f Forecast) Exact() bool {
	return f.Trials == 0
}
