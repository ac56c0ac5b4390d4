// Package combat computes the exact probability distribution over the HP both
// sides are left with after one round of Fire Emblem combat.
//
// It models what the in-game combat preview shows (damage, hit, crit and
// doubling) and nothing else: skills, held items and personal weapons are out
// of scope. Critical hits always deal triple damage, which is wrong for FE4 and
// FE5; see ruleset.Game.CritDamage for the per-game formula.
package combat

import (
	"errors"
	"fmt"
	"strings"
)

// Stats are one side's attack parameters for the whole round.
type Stats struct {
	// Damage is the HP removed by a normal hit.
	Damage int `json:"dmg" yaml:"dmg"`
	// Hit is the listed hit rate, 0-100.
	Hit int `json:"hit" yaml:"hit"`
	// Crit is the critical rate, 0-100.
	Crit int `json:"crit" yaml:"crit"`
	// Brave is set when every strike is immediately repeated. Brave weapons are
	// the usual cause, but gauntlets and some legendary weapons do it as well.
	Brave bool `json:"brave" yaml:"brave"`
}

// Validate checks the Stats invariants.
//
// Postcondition: Returns nil iff Damage >= 0 and Hit and Crit are in [0, 100];
// otherwise returns an error listing every violation.
func (s Stats) Validate() error {
	var errs []string
	if s.Damage < 0 {
		errs = append(errs, fmt.Sprintf("dmg must be >= 0, got %d", s.Damage))
	}
	if s.Hit < 0 || s.Hit > 100 {
		errs = append(errs, fmt.Sprintf("hit must be 0-100, got %d", s.Hit))
	}
	if s.Crit < 0 || s.Crit > 100 {
		errs = append(errs, fmt.Sprintf("crit must be 0-100, got %d", s.Crit))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Side names which combatant performs a strike.
type Side int

const (
	// Attacker is the unit that initiated combat.
	Attacker Side = iota
	// Defender is the unit being attacked.
	Defender
)

// String returns "attacker" or "defender".
func (s Side) String() string {
	if s == Defender {
		return "defender"
	}
	return "attacker"
}

// Pattern is the strike order produced by the speed difference between the
// attacker (A) and defender (B). It is independent of Stats.Brave.
type Pattern int

const (
	// Even means nobody doubles: AB.
	Even Pattern = iota
	// AtkDoubles means the attacker doubles: ABA.
	AtkDoubles
	// DefDoubles means the defender doubles: ABB.
	DefDoubles
)

// Valid reports whether p is one of the declared patterns.
func (p Pattern) Valid() bool {
	return p >= Even && p <= DefDoubles
}

// Order returns the sequence of sides that strike under p.
//
// Postcondition: Returns a fresh slice of length 2 or 3 starting with Attacker, Defender.
func (p Pattern) Order() []Side {
	switch p {
	case AtkDoubles:
		return []Side{Attacker, Defender, Attacker}
	case DefDoubles:
		return []Side{Attacker, Defender, Defender}
	default:
		return []Side{Attacker, Defender}
	}
}

// String returns the pattern name used in configuration and wire formats.
func (p Pattern) String() string {
	switch p {
	case Even:
		return "even"
	case AtkDoubles:
		return "atk_doubles"
	case DefDoubles:
		return "def_doubles"
	default:
		return "unknown"
	}
}

// Patterns returns every Pattern.
func Patterns() []Pattern {
	return []Pattern{Even, AtkDoubles, DefDoubles}
}

// ParsePattern resolves a pattern name. Besides the String forms, the strike
// order spellings "AB", "ABA" and "ABB" are accepted. Matching is
// case-insensitive; the empty string means Even.
func ParsePattern(name string) (Pattern, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "even", "ab":
		return Even, nil
	case "atk_doubles", "attacker_doubles", "aba":
		return AtkDoubles, nil
	case "def_doubles", "defender_doubles", "abb":
		return DefDoubles, nil
	}
	return 0, fmt.Errorf("combat: unknown pattern %q", name)
}
