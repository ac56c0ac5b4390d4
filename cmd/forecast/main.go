// Package main provides the forecast command-line tool. It evaluates one
// matchup from flags, a YAML batch, or a Lua analysis script, locally or
// against a remote forecast daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cory-johannsen/feforecast/internal/config"
	"github.com/cory-johannsen/feforecast/internal/forecast"
	"github.com/cory-johannsen/feforecast/internal/forecastserver"
	"github.com/cory-johannsen/feforecast/internal/game/combat"
	"github.com/cory-johannsen/feforecast/internal/game/dice"
	"github.com/cory-johannsen/feforecast/internal/game/ruleset"
	"github.com/cory-johannsen/feforecast/internal/observability"
	"github.com/cory-johannsen/feforecast/internal/scripting"
	"github.com/cory-johannsen/feforecast/internal/storage/postgres"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "forecast: %v\n", err)
		}
		os.Exit(2)
	}
}

// options holds the parsed command line.
type options struct {
	configPath string
	matchups   string
	script     string
	call       string
	remote     string
	simulate   bool
	jsonOut    bool
	dumpYAML   bool
	record     bool
	seed       uint64

	game    string
	pattern string
	atk     combatantFlags
	def     combatantFlags
}

type combatantFlags struct {
	hp, dmg, hit, crit int
	brave              bool
}

func (c *combatantFlags) register(fs *flag.FlagSet, side string) {
	fs.IntVar(&c.hp, side+"-hp", 0, side+" current HP")
	fs.IntVar(&c.dmg, side+"-dmg", 0, side+" damage per normal hit")
	fs.IntVar(&c.hit, side+"-hit", 0, side+" listed hit rate (0-100)")
	fs.IntVar(&c.crit, side+"-crit", 0, side+" critical rate (0-100)")
	fs.BoolVar(&c.brave, side+"-brave", false, side+" strikes twice per attack")
}

func (c combatantFlags) combatant() forecast.Combatant {
	return forecast.Combatant{
		HP:    c.hp,
		Stats: combat.Stats{Damage: c.dmg, Hit: c.hit, Crit: c.crit, Brave: c.brave},
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("forecast", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "path to configuration file; empty uses defaults and FEF_ environment variables")
	fs.StringVar(&o.matchups, "matchups", "", "YAML file of matchups to evaluate as a batch")
	fs.StringVar(&o.script, "script", "", "Lua analysis script to run")
	fs.StringVar(&o.call, "call", "", "global function of -script to call after loading")
	fs.StringVar(&o.remote, "remote", "", "forecast daemon address; empty evaluates locally")
	fs.BoolVar(&o.simulate, "simulate", false, "estimate by Monte-Carlo sampling instead of exact evaluation")
	fs.BoolVar(&o.jsonOut, "json", false, "print forecasts as JSON")
	fs.BoolVar(&o.dumpYAML, "dump-yaml", false, "print the matchups as YAML instead of evaluating them")
	fs.BoolVar(&o.record, "record", false, "save exact forecasts to the configured database")
	fs.Uint64Var(&o.seed, "seed", 0, "seed for -simulate; 0 draws from crypto/rand")
	fs.StringVar(&o.game, "game", "", "game title, e.g. FE7; empty uses forecast.default_game")
	fs.StringVar(&o.pattern, "pattern", "even", "strike pattern: even, atk_doubles or def_doubles")
	o.atk.register(fs, "atk")
	o.def.register(fs, "def")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if fs.NArg() > 0 {
		return o, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if o.matchups != "" && o.script != "" {
		return o, errors.New("-matchups and -script are mutually exclusive")
	}
	if o.call != "" && o.script == "" {
		return o, errors.New("-call requires -script")
	}
	return o, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	defaultGame := cfg.Forecast.Game()
	if o.game != "" {
		if defaultGame, err = ruleset.ParseGame(o.game); err != nil {
			return err
		}
	}

	if o.script != "" {
		eval, closeEval, err := newEvaluator(ctx, o, cfg, logger)
		if err != nil {
			return err
		}
		defer closeEval()
		return runScript(ctx, o, cfg, eval, logger, defaultGame, stdout)
	}

	matchups, err := collectMatchups(o, defaultGame)
	if err != nil {
		return err
	}
	if o.dumpYAML {
		data, err := forecast.MarshalMatchups(matchups)
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}

	eval, closeEval, err := newEvaluator(ctx, o, cfg, logger)
	if err != nil {
		return err
	}
	defer closeEval()

	start := time.Now()
	forecasts, err := evaluateAll(ctx, eval, o.simulate, matchups)
	if err != nil {
		return err
	}
	logger.Debug("forecasts computed",
		zap.Int("count", len(forecasts)),
		zap.Bool("simulated", o.simulate),
		zap.Duration("elapsed", time.Since(start)),
	)
	if o.jsonOut {
		return writeJSON(stdout, forecasts)
	}
	return writeText(stdout, forecasts)
}

func collectMatchups(o options, defaultGame ruleset.Game) ([]forecast.Matchup, error) {
	if o.matchups != "" {
		return forecast.LoadMatchups(o.matchups, defaultGame)
	}
	pattern, err := combat.ParsePattern(o.pattern)
	if err != nil {
		return nil, err
	}
	m := forecast.Matchup{
		Game:     defaultGame,
		Pattern:  pattern,
		Attacker: o.atk.combatant(),
		Defender: o.def.combatant(),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return []forecast.Matchup{m}, nil
}

// evaluator is what the CLI needs from either a local Service or a remote
// Client.
type evaluator interface {
	scripting.Evaluator
}

// batchEvaluator is implemented by the local Service only.
type batchEvaluator interface {
	EvaluateBatch(ctx context.Context, ms []forecast.Matchup) ([]forecast.Forecast, error)
}

func newEvaluator(ctx context.Context, o options, cfg config.Config, logger *zap.Logger) (evaluator, func(), error) {
	if o.remote != "" {
		if o.record {
			return nil, nil, errors.New("-record is handled by the daemon when -remote is set")
		}
		conn, err := grpc.NewClient(o.remote, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, nil, fmt.Errorf("dialing %s: %w", o.remote, err)
		}
		return forecastserver.NewClient(conn), func() { conn.Close() }, nil
	}

	src := dice.NewCryptoSource()
	if o.seed != 0 {
		src = dice.NewSeededSource(o.seed)
	}
	svc := forecast.NewService(logger, cfg.Forecast.BatchWorkers, cfg.Forecast.SimulationTrials, src)
	if !o.record {
		return svc, func() {}, nil
	}
	if !cfg.Database.Enabled {
		return nil, nil, errors.New("-record requires database.enabled in the configuration")
	}
	pool, err := postgres.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	svc.SetRecorder(postgres.NewForecastRepository(pool.DB()))
	return svc, pool.Close, nil
}

func evaluateAll(ctx context.Context, eval evaluator, simulate bool, ms []forecast.Matchup) ([]forecast.Forecast, error) {
	if b, ok := eval.(batchEvaluator); ok && !simulate {
		return b.EvaluateBatch(ctx, ms)
	}
	out := make([]forecast.Forecast, 0, len(ms))
	for i, m := range ms {
		fn := eval.Evaluate
		if simulate {
			fn = eval.Simulate
		}
		f, err := fn(ctx, m)
		if err != nil {
			return nil, fmt.Errorf("matchup %d (%s): %w", i, m.Label(), err)
		}
		out = append(out, f)
	}
	return out, nil
}

func runScript(ctx context.Context, o options, cfg config.Config, eval evaluator, logger *zap.Logger, defaultGame ruleset.Game, stdout io.Writer) error {
	mgr := scripting.NewManager(eval, logger, defaultGame, cfg.Forecast.ScriptInstructionLimit)
	defer mgr.Close()
	if err := mgr.LoadFile(ctx, o.script); err != nil {
		return err
	}
	if o.call == "" {
		return nil
	}
	ret, err := mgr.Call(o.call)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, ret.String())
	return err
}
