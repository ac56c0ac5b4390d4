package forecastserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/feforecast/internal/forecast"
	"github.com/cory-johannsen/feforecast/internal/game/combat"
	"github.com/cory-johannsen/feforecast/internal/game/rng"
	"github.com/cory-johannsen/feforecast/internal/game/ruleset"
)

// wireCombatant is the Struct layout of one side of a matchup.
type wireCombatant struct {
	HP    int  `json:"hp"`
	Dmg   int  `json:"dmg"`
	Hit   int  `json:"hit"`
	Crit  int  `json:"crit"`
	Brave bool `json:"brave"`
}

// wireMatchup is the Struct layout of an Evaluate request.
type wireMatchup struct {
	Name     string        `json:"name"`
	Game     string        `json:"game"`
	Pattern  string        `json:"pattern"`
	Attacker wireCombatant `json:"attacker"`
	Defender wireCombatant `json:"defender"`
}

// wireForecast is the Struct layout of an Evaluate response.
type wireForecast struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Game      string           `json:"game"`
	Pattern   string           `json:"pattern"`
	System    string           `json:"system"`
	Outcomes  []combat.Outcome `json:"outcomes"`
	Summary   combat.Summary   `json:"summary"`
	Trials    int              `json:"trials"`
	CreatedAt time.Time        `json:"created_at"`
	Attacker  wireCombatant    `json:"attacker"`
	Defender  wireCombatant    `json:"defender"`
}

// GameInfo is one entry of a ListGames response.
type GameInfo struct {
	Name   string `json:"name"`
	System string `json:"system"`
}

// decodeStruct converts s into v through its JSON form, rejecting unknown fields.
func decodeStruct(s *structpb.Struct, v any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding struct: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding struct: %w", err)
	}
	return nil
}

// encodeStruct converts v into a Struct through its JSON form.
func encodeStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %T: %w", v, err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decoding %T into struct: %w", v, err)
	}
	return s, nil
}

func toWireCombatant(c forecast.Combatant) wireCombatant {
	return wireCombatant{HP: c.HP, Dmg: c.Stats.Damage, Hit: c.Stats.Hit, Crit: c.Stats.Crit, Brave: c.Stats.Brave}
}

func (w wireCombatant) combatant() forecast.Combatant {
	return forecast.Combatant{
		HP:    w.HP,
		Stats: combat.Stats{Damage: w.Dmg, Hit: w.Hit, Crit: w.Crit, Brave: w.Brave},
	}
}

// MatchupToStruct encodes m as an Evaluate request.
func MatchupToStruct(m forecast.Matchup) (*structpb.Struct, error) {
	return encodeStruct(wireMatchup{
		Name:     m.Name,
		Game:     m.Game.String(),
		Pattern:  m.Pattern.String(),
		Attacker: toWireCombatant(m.Attacker),
		Defender: toWireCombatant(m.Defender),
	})
}

// MatchupFromStruct decodes an Evaluate request. A missing game resolves to
// defaultGame.
//
// Postcondition: Returns a validated Matchup, or an error; malformed or
// out-of-range input wraps forecast.ErrInvalidMatchup.
func MatchupFromStruct(s *structpb.Struct, defaultGame ruleset.Game) (forecast.Matchup, error) {
	var w wireMatchup
	if err := decodeStruct(s, &w); err != nil {
		return forecast.Matchup{}, fmt.Errorf("%w: %v", forecast.ErrInvalidMatchup, err)
	}
	game := defaultGame
	if w.Game != "" {
		g, err := ruleset.ParseGame(w.Game)
		if err != nil {
			return forecast.Matchup{}, fmt.Errorf("%w: %v", forecast.ErrInvalidMatchup, err)
		}
		game = g
	}
	pattern, err := combat.ParsePattern(w.Pattern)
	if err != nil {
		return forecast.Matchup{}, fmt.Errorf("%w: %v", forecast.ErrInvalidMatchup, err)
	}
	m := forecast.Matchup{
		Name:     w.Name,
		Game:     game,
		Pattern:  pattern,
		Attacker: w.Attacker.combatant(),
		Defender: w.Defender.combatant(),
	}
	if err := m.Validate(); err != nil {
		return forecast.Matchup{}, err
	}
	return m, nil
}

// ForecastToStruct encodes f as an Evaluate response.
func ForecastToStruct(f forecast.Forecast) (*structpb.Struct, error) {
	outcomes := f.Outcomes
	if outcomes == nil {
		outcomes = []combat.Outcome{}
	}
	return encodeStruct(wireForecast{
		ID:        f.ID.String(),
		Name:      f.Matchup.Name,
		Game:      f.Matchup.Game.String(),
		Pattern:   f.Matchup.Pattern.String(),
		System:    f.System.String(),
		Outcomes:  outcomes,
		Summary:   f.Summary,
		Trials:    f.Trials,
		CreatedAt: f.CreatedAt,
		Attacker:  toWireCombatant(f.Matchup.Attacker),
		Defender:  toWireCombatant(f.Matchup.Defender),
	})
}

// ForecastFromStruct decodes an Evaluate response.
func ForecastFromStruct(s *structpb.Struct) (forecast.Forecast, error) {
	var w wireForecast
	if err := decodeStruct(s, &w); err != nil {
		return forecast.Forecast{}, err
	}
	id, err := uuid.Parse(w.ID)
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("parsing forecast id: %w", err)
	}
	game, err := ruleset.ParseGame(w.Game)
	if err != nil {
		return forecast.Forecast{}, err
	}
	pattern, err := combat.ParsePattern(w.Pattern)
	if err != nil {
		return forecast.Forecast{}, err
	}
	sys, err := rng.ParseSystem(w.System)
	if err != nil {
		return forecast.Forecast{}, err
	}
	return forecast.Forecast{
		ID: id,
		Matchup: forecast.Matchup{
			Name:     w.Name,
			Game:     game,
			Pattern:  pattern,
			Attacker: w.Attacker.combatant(),
			Defender: w.Defender.combatant(),
		},
		System:    sys,
		Outcomes:  w.Outcomes,
		Summary:   w.Summary,
		Trials:    w.Trials,
		CreatedAt: w.CreatedAt,
	}, nil
}
