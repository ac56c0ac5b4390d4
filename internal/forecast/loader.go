package forecast

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/feforecast/internal/game/combat"
	"github.com/cory-johannsen/feforecast/internal/game/ruleset"
)

// yamlMatchupFile is the top-level YAML structure for matchup files.
type yamlMatchupFile struct {
	Matchups []yamlMatchup `yaml:"matchups"`
}

// yamlMatchup is the YAML representation of a matchup.
type yamlMatchup struct {
	Name     string        `yaml:"name"`
	Game     string        `yaml:"game"`
	Pattern  string        `yaml:"pattern"`
	Attacker yamlCombatant `yaml:"attacker"`
	Defender yamlCombatant `yaml:"defender"`
}

// yamlCombatant is the YAML representation of one side of a matchup.
type yamlCombatant struct {
	HP           int `yaml:"hp"`
	combat.Stats `yaml:",inline"`
}

// LoadMatchups reads and validates every matchup in a YAML file. Entries that
// omit game use defaultGame.
//
// Precondition: path must point to a YAML matchup file.
// Postcondition: Returns the validated matchups in file order, or a non-nil error.
func LoadMatchups(path string, defaultGame ruleset.Game) ([]Matchup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading matchup file %s: %w", path, err)
	}
	return LoadMatchupsFromBytes(data, defaultGame)
}

// LoadMatchupsFromBytes parses and validates matchups from YAML bytes.
//
// Postcondition: Returns at least one validated matchup, or a non-nil error
// naming the offending entry.
func LoadMatchupsFromBytes(data []byte, defaultGame ruleset.Game) ([]Matchup, error) {
	var file yamlMatchupFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing matchup YAML: %w", err)
	}
	if len(file.Matchups) == 0 {
		return nil, fmt.Errorf("%w: no matchups defined", ErrInvalidMatchup)
	}

	matchups := make([]Matchup, 0, len(file.Matchups))
	for i, ym := range file.Matchups {
		m, err := convertYAMLMatchup(ym, defaultGame)
		if err == nil {
			err = m.Validate()
		}
		if err != nil {
			return nil, fmt.Errorf("matchup %d (%s): %w", i, ym.Name, err)
		}
		matchups = append(matchups, m)
	}
	return matchups, nil
}

// MarshalMatchups renders matchups in the file format LoadMatchupsFromBytes reads.
func MarshalMatchups(ms []Matchup) ([]byte, error) {
	file := yamlMatchupFile{Matchups: make([]yamlMatchup, 0, len(ms))}
	for _, m := range ms {
		file.Matchups = append(file.Matchups, yamlMatchup{
			Name:     m.Name,
			Game:     m.Game.String(),
			Pattern:  m.Pattern.String(),
			Attacker: yamlCombatant{HP: m.Attacker.HP, Stats: m.Attacker.Stats},
			Defender: yamlCombatant{HP: m.Defender.HP, Stats: m.Defender.Stats},
		})
	}
	data, err := yaml.Marshal(file)
	if err != nil {
		return nil, fmt.Errorf("marshalling matchups: %w", err)
	}
	return data, nil
}

// convertYAMLMatchup resolves the names in ym into typed values.
func convertYAMLMatchup(ym yamlMatchup, defaultGame ruleset.Game) (Matchup, error) {
	game := defaultGame
	if ym.Game != "" {
		g, err := ruleset.ParseGame(ym.Game)
		if err != nil {
			return Matchup{}, fmt.Errorf("%w: %v", ErrInvalidMatchup, err)
		}
		game = g
	}
	pattern, err := combat.ParsePattern(ym.Pattern)
	if err != nil {
		return Matchup{}, fmt.Errorf("%w: %v", ErrInvalidMatchup, err)
	}
	return Matchup{
		Name:     ym.Name,
		Game:     game,
		Pattern:  pattern,
		Attacker: Combatant{HP: ym.Attacker.HP, Stats: ym.Attacker.Stats},
		Defender: Combatant{HP: ym.Defender.HP, Stats: ym.Defender.Stats},
	}, nil
}
