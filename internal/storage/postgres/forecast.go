package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/feforecast/internal/forecast"
	"github.com/cory-johannsen/feforecast/internal/game/combat"
	"github.com/cory-johannsen/feforecast/internal/game/rng"
	"github.com/cory-johannsen/feforecast/internal/game/ruleset"
)

// ErrForecastNotFound is returned when a forecast lookup yields no results.
var ErrForecastNotFound = errors.New("forecast not found")

// ErrForecastExists is returned when a forecast ID is saved twice.
var ErrForecastExists = errors.New("forecast already exists")

// ErrForecastCorrupt is returned when a stored row contradicts itself, such as
// a system column that is not the hit rate system of its game.
var ErrForecastCorrupt = errors.New("stored forecast is inconsistent")

// DefaultListLimit is the number of forecasts List returns when no limit is given.
const DefaultListLimit = 50

const forecastColumns = `id, name, game, pattern, system,
	atk_hp, atk_dmg, atk_hit, atk_crit, atk_brave,
	def_hp, def_dmg, def_hit, def_crit, def_brave,
	trials, created_at`

// ForecastRepository provides forecast persistence operations. It satisfies
// forecast.Recorder.
type ForecastRepository struct {
	db *pgxpool.Pool
}

// NewForecastRepository creates a ForecastRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewForecastRepository(db *pgxpool.Pool) *ForecastRepository {
	return &ForecastRepository{db: db}
}

// ListOptions filters List.
type ListOptions struct {
	// Game, when non-nil, restricts results to one title.
	Game *ruleset.Game
	// Limit caps the result count; 0 uses DefaultListLimit.
	Limit int
}

// Save inserts f and its outcomes in one transaction.
//
// Precondition: f.ID must be set.
// Postcondition: The forecast is stored, or ErrForecastExists if its ID is taken.
func (r *ForecastRepository) Save(ctx context.Context, f forecast.Forecast) error {
	m := f.Matchup
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO forecasts (`+forecastColumns+`,
			    attacker_dies, defender_dies, both_survive)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
			f.ID, m.Name, m.Game.String(), m.Pattern.String(), f.System.String(),
			m.Attacker.HP, m.Attacker.Stats.Damage, m.Attacker.Stats.Hit, m.Attacker.Stats.Crit, m.Attacker.Stats.Brave,
			m.Defender.HP, m.Defender.Stats.Damage, m.Defender.Stats.Hit, m.Defender.Stats.Crit, m.Defender.Stats.Brave,
			f.Trials, f.CreatedAt,
			f.Summary.AttackerDies, f.Summary.DefenderDies, f.Summary.BothSurvive,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return ErrForecastExists
			}
			return fmt.Errorf("inserting forecast: %w", err)
		}

		rows := make([][]any, len(f.Outcomes))
		for i, o := range f.Outcomes {
			rows[i] = []any{f.ID, i, o.Prob, o.AtkHP, o.DefHP}
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"forecast_outcomes"},
			[]string{"forecast_id", "idx", "prob", "atk_hp", "def_hp"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("inserting outcomes: %w", err)
		}
		return nil
	})
}

// Get retrieves a forecast with its outcomes.
//
// Postcondition: Returns the Forecast or ErrForecastNotFound.
func (r *ForecastRepository) Get(ctx context.Context, id uuid.UUID) (forecast.Forecast, error) {
	f, err := scanForecast(r.db.QueryRow(ctx,
		`SELECT `+forecastColumns+` FROM forecasts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return forecast.Forecast{}, ErrForecastNotFound
		}
		return forecast.Forecast{}, fmt.Errorf("querying forecast: %w", err)
	}

	outcomes, err := r.outcomes(ctx, []uuid.UUID{id})
	if err != nil {
		return forecast.Forecast{}, err
	}
	return withOutcomes(f, outcomes[id]), nil
}

// List returns the most recent forecasts, newest first, with their outcomes.
//
// Postcondition: Returns at most opts.Limit forecasts (DefaultListLimit when 0).
func (r *ForecastRepository) List(ctx context.Context, opts ListOptions) ([]forecast.Forecast, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var game *string
	if opts.Game != nil {
		name := opts.Game.String()
		game = &name
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+forecastColumns+` FROM forecasts
		 WHERE $1::text IS NULL OR game = $1
		 ORDER BY created_at DESC, id
		 LIMIT $2`,
		game, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing forecasts: %w", err)
	}
	defer rows.Close()

	var out []forecast.Forecast
	var ids []uuid.UUID
	for rows.Next() {
		f, err := scanForecast(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning forecast: %w", err)
		}
		out = append(out, f)
		ids = append(ids, f.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating forecasts: %w", err)
	}

	outcomes, err := r.outcomes(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i] = withOutcomes(out[i], outcomes[out[i].ID])
	}
	return out, nil
}

// Delete removes a forecast and its outcomes.
//
// Postcondition: Returns nil, or ErrForecastNotFound if no forecast has id.
func (r *ForecastRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM forecasts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting forecast: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrForecastNotFound
	}
	return nil
}

func (r *ForecastRepository) outcomes(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]combat.Outcome, error) {
	out := make(map[uuid.UUID][]combat.Outcome, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT forecast_id, prob, atk_hp, def_hp FROM forecast_outcomes
		 WHERE forecast_id = ANY($1)
		 ORDER BY forecast_id, idx`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var o combat.Outcome
		if err := rows.Scan(&id, &o.Prob, &o.AtkHP, &o.DefHP); err != nil {
			return nil, fmt.Errorf("scanning outcome: %w", err)
		}
		out[id] = append(out[id], o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating outcomes: %w", err)
	}
	return out, nil
}

// scanForecast reads one forecastColumns row. Outcomes are attached later.
func scanForecast(row pgx.Row) (forecast.Forecast, error) {
	var (
		f                     forecast.Forecast
		game, pattern, system string
		atk, def              forecast.Combatant
		createdAt             time.Time
	)
	err := row.Scan(&f.ID, &f.Matchup.Name, &game, &pattern, &system,
		&atk.HP, &atk.Stats.Damage, &atk.Stats.Hit, &atk.Stats.Crit, &atk.Stats.Brave,
		&def.HP, &def.Stats.Damage, &def.Stats.Hit, &def.Stats.Crit, &def.Stats.Brave,
		&f.Trials, &createdAt,
	)
	if err != nil {
		return forecast.Forecast{}, err
	}
	g, err := ruleset.ParseGame(game)
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("stored forecast %s: %w", f.ID, err)
	}
	p, err := combat.ParsePattern(pattern)
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("stored forecast %s: %w", f.ID, err)
	}
	sys, err := rng.ParseSystem(system)
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("stored forecast %s: %w", f.ID, err)
	}
	if sys != g.RNSystem() {
		return forecast.Forecast{}, fmt.Errorf("%w: forecast %s has system %s, but %s uses %s",
			ErrForecastCorrupt, f.ID, sys, g, g.RNSystem())
	}
	f.Matchup.Game, f.Matchup.Pattern = g, p
	f.Matchup.Attacker, f.Matchup.Defender = atk, def
	f.System = sys
	f.CreatedAt = createdAt.UTC()
	return f, nil
}

// withOutcomes attaches outcomes to f and recomputes its summary.
func withOutcomes(f forecast.Forecast, outcomes []combat.Outcome) forecast.Forecast {
	if outcomes == nil {
		outcomes = []combat.Outcome{}
	}
	f.Outcomes = outcomes
	f.Summary = combat.Summarize(outcomes)
	return f
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// pgx wraps PostgreSQL errors; check for SQLSTATE 23505 (unique_violation)
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
