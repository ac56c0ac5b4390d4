package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/feforecast/internal/forecast"
	"github.com/cory-johannsen/feforecast/internal/game/combat"
	"github.com/cory-johannsen/feforecast/internal/game/rng"
	"github.com/cory-johannsen/feforecast/internal/game/ruleset"
)

// RegisterModules installs the forecast global into L:
//
//	forecast.evaluate{game=, pattern=, attacker={hp=, dmg=, hit=, crit=, brave=}, defender={...}}
//	forecast.simulate{...}            same argument, sampled result
//	forecast.true_hit(system, listed) system is an RN name ("2RN") or a game ("FE7")
//	forecast.games()                  array of {name=, system=}
//	forecast.log.debug|info|warn|error(msg)
//
// Precondition: L must be from NewSandboxedState.
func (m *Manager) RegisterModules(L *lua.LState) {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"evaluate": m.luaEvaluate,
		"simulate": m.luaSimulate,
		"true_hit": luaTrueHit,
		"games":    luaGames,
	})

	logTbl := L.NewTable()
	L.SetFuncs(logTbl, map[string]lua.LGFunction{
		"debug": m.luaLog(zap.DebugLevel),
		"info":  m.luaLog(zap.InfoLevel),
		"warn":  m.luaLog(zap.WarnLevel),
		"error": m.luaLog(zap.ErrorLevel),
	})
	L.SetField(mod, "log", logTbl)

	L.SetGlobal("forecast", mod)
}

func (m *Manager) luaEvaluate(L *lua.LState) int {
	matchup := m.checkMatchup(L, 1)
	f, err := m.eval.Evaluate(L.Context(), matchup)
	if err != nil {
		L.RaiseError("forecast.evaluate: %s", err.Error())
		return 0
	}
	L.Push(forecastTable(L, f))
	return 1
}

func (m *Manager) luaSimulate(L *lua.LState) int {
	matchup := m.checkMatchup(L, 1)
	f, err := m.eval.Simulate(L.Context(), matchup)
	if err != nil {
		L.RaiseError("forecast.simulate: %s", err.Error())
		return 0
	}
	L.Push(forecastTable(L, f))
	return 1
}

func luaTrueHit(L *lua.LState) int {
	name := L.CheckString(1)
	listed := L.CheckInt(2)
	sys, err := resolveSystem(name)
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	if listed < 0 || listed > 100 {
		L.ArgError(2, fmt.Sprintf("listed hit must be 0-100, got %d", listed))
		return 0
	}
	L.Push(lua.LNumber(sys.TrueHit(listed)))
	return 1
}

func luaGames(L *lua.LState) int {
	out := L.NewTable()
	for _, g := range ruleset.Games() {
		row := L.NewTable()
		row.RawSetString("name", lua.LString(g.String()))
		row.RawSetString("system", lua.LString(g.RNSystem().String()))
		out.Append(row)
	}
	L.Push(out)
	return 1
}

func (m *Manager) luaLog(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		if ce := m.logger.Check(level, L.CheckString(1)); ce != nil {
			ce.Write(zap.String("source", "lua"))
		}
		return 0
	}
}

// resolveSystem accepts an RN system name, falling back to a game name.
func resolveSystem(name string) (rng.System, error) {
	if sys, err := rng.ParseSystem(name); err == nil {
		return sys, nil
	}
	g, err := ruleset.ParseGame(name)
	if err != nil {
		return 0, fmt.Errorf("unknown system or game %q", name)
	}
	return g.RNSystem(), nil
}

// checkMatchup decodes the table argument at idx into a Matchup, raising a Lua
// argument error on malformed input. Range checks are left to the Evaluator.
func (m *Manager) checkMatchup(L *lua.LState, idx int) forecast.Matchup {
	tbl := L.CheckTable(idx)
	matchup := forecast.Matchup{
		Name: optString(L, tbl, "name"),
		Game: m.defaultGame,
	}
	if name := optString(L, tbl, "game"); name != "" {
		g, err := ruleset.ParseGame(name)
		if err != nil {
			L.ArgError(idx, err.Error())
		}
		matchup.Game = g
	}
	pattern, err := combat.ParsePattern(optString(L, tbl, "pattern"))
	if err != nil {
		L.ArgError(idx, err.Error())
	}
	matchup.Pattern = pattern
	matchup.Attacker = checkCombatant(L, idx, tbl, "attacker")
	matchup.Defender = checkCombatant(L, idx, tbl, "defender")
	return matchup
}

func checkCombatant(L *lua.LState, idx int, parent *lua.LTable, key string) forecast.Combatant {
	tbl, ok := parent.RawGetString(key).(*lua.LTable)
	if !ok {
		L.ArgError(idx, fmt.Sprintf("%s must be a table", key))
	}
	return forecast.Combatant{
		HP: optInt(L, tbl, key, "hp"),
		Stats: combat.Stats{
			Damage: optInt(L, tbl, key, "dmg"),
			Hit:    optInt(L, tbl, key, "hit"),
			Crit:   optInt(L, tbl, key, "crit"),
			Brave:  lua.LVAsBool(tbl.RawGetString("brave")),
		},
	}
}

func optString(L *lua.LState, tbl *lua.LTable, key string) string {
	switch v := tbl.RawGetString(key).(type) {
	case *lua.LNilType:
		return ""
	case lua.LString:
		return string(v)
	default:
		L.RaiseError("%s must be a string, got %s", key, v.Type().String())
		return ""
	}
}

func optInt(L *lua.LState, tbl *lua.LTable, side, key string) int {
	switch v := tbl.RawGetString(key).(type) {
	case *lua.LNilType:
		return 0
	case lua.LNumber:
		n := int(v)
		if lua.LNumber(n) != v {
			L.RaiseError("%s.%s must be an integer, got %v", side, key, float64(v))
		}
		return n
	default:
		L.RaiseError("%s.%s must be a number, got %s", side, key, v.Type().String())
		return 0
	}
}

// forecastTable converts f into the table returned to scripts.
func forecastTable(L *lua.LState, f forecast.Forecast) *lua.LTable {
	out := L.NewTable()
	outcomes := L.NewTable()
	for _, o := range f.Outcomes {
		row := L.NewTable()
		row.RawSetString("prob", lua.LNumber(o.Prob))
		row.RawSetString("atk_hp", lua.LNumber(o.AtkHP))
		row.RawSetString("def_hp", lua.LNumber(o.DefHP))
		outcomes.Append(row)
	}
	out.RawSetString("id", lua.LString(f.ID.String()))
	out.RawSetString("system", lua.LString(f.System.String()))
	out.RawSetString("outcomes", outcomes)
	out.RawSetString("attacker_dies", lua.LNumber(f.Summary.AttackerDies))
	out.RawSetString("defender_dies", lua.LNumber(f.Summary.DefenderDies))
	out.RawSetString("both_survive", lua.LNumber(f.Summary.BothSurvive))
	out.RawSetString("expected_atk_hp", lua.LNumber(f.Summary.ExpectedAtkHP))
	out.RawSetString("expected_def_hp", lua.LNumber(f.Summary.ExpectedDefHP))
	out.RawSetString("trials", lua.LNumber(f.Trials))
	return out
}
