package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/feforecast/internal/game/combat"
)

// Recorder persists finished forecasts.
type Recorder interface {
	Save(ctx context.Context, f Forecast) error
}

// Service evaluates matchups.
//
// Invariant: Service holds no per-call state; all methods except SetRecorder
// are safe for concurrent use provided the Recorder and Source are.
type Service struct {
	logger   *zap.Logger
	workers  int
	trials   int
	src      combat.Source
	recorder Recorder
	now      func() time.Time
}

// NewService returns a Service that evaluates batches with at most workers
// matchups in flight and simulates with trials rounds drawn from src.
//
// Precondition: logger and src must be non-nil; workers >= 1; trials >= 1.
func NewService(logger *zap.Logger, workers, trials int, src combat.Source) *Service {
	if logger == nil {
		panic("forecast: NewService called with nil logger")
	}
	if src == nil {
		panic("forecast: NewService called with nil source")
	}
	if workers < 1 || trials < 1 {
		panic(fmt.Sprintf("forecast: NewService called with workers=%d trials=%d", workers, trials))
	}
	return &Service{
		logger:  logger,
		workers: workers,
		trials:  trials,
		src:     src,
		now:     time.Now,
	}
}

// SetRecorder makes every successful Evaluate save its forecast to r.
// A nil r disables recording.
//
// Precondition: Called before the Service is shared between goroutines.
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// Evaluate computes the exact outcome distribution of m.
//
// Postcondition: On success the outcomes are canonical and sum to 1, and the
// forecast has been recorded when a Recorder is set. Invalid input returns an
// error wrapping ErrInvalidMatchup.
func (s *Service) Evaluate(ctx context.Context, m Matchup) (Forecast, error) {
	if err := m.Validate(); err != nil {
		return Forecast{}, err
	}
	if err := ctx.Err(); err != nil {
		return Forecast{}, err
	}

	sys := m.Game.RNSystem()
	outcomes := combat.EvaluateRound(sys,
		m.Attacker.Stats, m.Attacker.HP,
		m.Defender.Stats, m.Defender.HP,
		m.Pattern)
	f := s.newForecast(m, outcomes, 0)

	s.logger.Debug("forecast evaluated",
		zap.String("matchup", m.Label()),
		zap.String("game", m.Game.String()),
		zap.String("system", sys.String()),
		zap.Int("outcomes", len(outcomes)),
		zap.Float64("defender_dies", f.Summary.DefenderDies),
	)

	if s.recorder != nil {
		if err := s.recorder.Save(ctx, f); err != nil {
			return Forecast{}, fmt.Errorf("recording forecast %s: %w", f.ID, err)
		}
	}
	return f, nil
}

// EvaluateBatch evaluates every matchup concurrently.
//
// Postcondition: On success result[i] is the forecast of ms[i]. The first
// failure cancels the remaining work and is returned annotated with the
// failing index and label.
func (s *Service) EvaluateBatch(ctx context.Context, ms []Matchup) ([]Forecast, error) {
	start := time.Now()
	results := make([]Forecast, len(ms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, m := range ms {
		g.Go(func() error {
			f, err := s.Evaluate(gctx, m)
			if err != nil {
				return fmt.Errorf("matchup %d (%s): %w", i, m.Label(), err)
			}
			results[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("batch evaluated",
		zap.Int("matchups", len(ms)),
		zap.Int("workers", s.workers),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results, nil
}

// Simulate replays m the configured number of times with random draws and
// returns the empirical distribution. Simulated forecasts are never recorded.
//
// Postcondition: Returns a forecast with Trials set, or a validation or
// context error.
func (s *Service) Simulate(ctx context.Context, m Matchup) (Forecast, error) {
	if err := m.Validate(); err != nil {
		return Forecast{}, err
	}
	sys := m.Game.RNSystem()
	outcomes, err := combat.Simulate(ctx, s.src, sys,
		m.Attacker.Stats, m.Attacker.HP,
		m.Defender.Stats, m.Defender.HP,
		m.Pattern, s.trials)
	if err != nil {
		return Forecast{}, fmt.Errorf("simulating %s: %w", m.Label(), err)
	}
	return s.newForecast(m, outcomes, s.trials), nil
}

func (s *Service) newForecast(m Matchup, outcomes []combat.Outcome, trials int) Forecast {
	return Forecast{
		ID:        uuid.New(),
		Matchup:   m,
		System:    m.Game.RNSystem(),
		Outcomes:  outcomes,
		Summary:   combat.Summarize(outcomes),
		Trials:    trials,
		CreatedAt: s.now().UTC(),
	}
}
