// Package forecast turns validated matchups into combat forecasts: the exact
// outcome distribution of one round plus its summary figures.
package forecast

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/feforecast/internal/game/combat"
	"github.com/cory-johannsen/feforecast/internal/game/ruleset"
)

// ErrInvalidMatchup is wrapped by every Matchup validation failure.
var ErrInvalidMatchup = errors.New("invalid matchup")

// Combatant is one side of a matchup: its HP going into the round and its
// combat stats.
type Combatant struct {
	HP    int          `json:"hp"`
	Stats combat.Stats `json:"stats"`
}

// Matchup describes a single attacker/defender exchange.
type Matchup struct {
	// Name labels the matchup in batch output; may be empty.
	Name     string
	Game     ruleset.Game
	Pattern  combat.Pattern
	Attacker Combatant
	Defender Combatant
}

// Validate checks that every field is usable by the engine.
//
// Postcondition: Returns nil, or an error wrapping ErrInvalidMatchup that lists
// every violation.
func (m Matchup) Validate() error {
	var errs []string
	if !m.Game.Valid() {
		errs = append(errs, fmt.Sprintf("game %d is not a known title", int(m.Game)))
	}
	if !m.Pattern.Valid() {
		errs = append(errs, fmt.Sprintf("pattern %d is not a known strike order", int(m.Pattern)))
	}
	errs = appendCombatant(errs, "attacker", m.Attacker)
	errs = appendCombatant(errs, "defender", m.Defender)
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidMatchup, strings.Join(errs, "; "))
	}
	return nil
}

func appendCombatant(errs []string, side string, c Combatant) []string {
	if c.HP < 0 {
		errs = append(errs, fmt.Sprintf("%s.hp must be >= 0, got %d", side, c.HP))
	}
	if err := c.Stats.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("%s: %v", side, err))
	}
	return errs
}

// Label returns Name, or a description built from the game and pattern when
// Name is empty.
func (m Matchup) Label() string {
	if m.Name != "" {
		return m.Name
	}
	return fmt.Sprintf("%s/%s", m.Game, m.Pattern)
}
