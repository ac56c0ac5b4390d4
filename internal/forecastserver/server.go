package forecastserver

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/feforecast/internal/forecast"
	"github.com/cory-johannsen/feforecast/internal/game/ruleset"
)

// Evaluator is the subset of forecast.Service served over gRPC.
type Evaluator interface {
	Evaluate(ctx context.Context, m forecast.Matchup) (forecast.Forecast, error)
	Simulate(ctx context.Context, m forecast.Matchup) (forecast.Forecast, error)
}

// Server implements ForecastServiceServer on top of an Evaluator.
type Server struct {
	eval        Evaluator
	logger      *zap.Logger
	defaultGame ruleset.Game
	timeout     time.Duration
}

// NewServer creates a Server. Requests without a game use defaultGame; each
// call is bounded by timeout when it is positive.
//
// Precondition: eval and logger must be non-nil.
func NewServer(eval Evaluator, logger *zap.Logger, defaultGame ruleset.Game, timeout time.Duration) *Server {
	if eval == nil || logger == nil {
		panic("forecastserver: NewServer requires a non-nil evaluator and logger")
	}
	return &Server{eval: eval, logger: logger, defaultGame: defaultGame, timeout: timeout}
}

// Evaluate decodes a matchup, evaluates it exactly and encodes the forecast.
//
// Postcondition: Malformed or out-of-range input fails with codes.InvalidArgument.
func (s *Server) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.run(ctx, req, s.eval.Evaluate)
}

// Simulate is Evaluate with Monte-Carlo sampling.
func (s *Server) Simulate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return s.run(ctx, req, s.eval.Simulate)
}

// ListGames returns {"games": [{"name": "FE1", "system": "1RN"}, ...]}.
func (s *Server) ListGames(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	games := make([]GameInfo, 0, len(ruleset.Games()))
	for _, g := range ruleset.Games() {
		games = append(games, GameInfo{Name: g.String(), System: g.RNSystem().String()})
	}
	out, err := encodeStruct(struct {
		Games []GameInfo `json:"games"`
	}{games})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding games: %v", err)
	}
	return out, nil
}

func (s *Server) run(ctx context.Context, req *structpb.Struct, fn func(context.Context, forecast.Matchup) (forecast.Forecast, error)) (*structpb.Struct, error) {
	m, err := MatchupFromStruct(req, s.defaultGame)
	if err != nil {
		return nil, toStatus(err)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	f, err := fn(ctx, m)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := ForecastToStruct(f)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding forecast: %v", err)
	}
	return out, nil
}

// toStatus maps service errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, forecast.ErrInvalidMatchup):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// LoggingInterceptor logs every unary call with its method, status code and
// duration.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if err != nil {
			logger.Warn("rpc failed", append(fields, zap.Error(err))...)
		} else {
			logger.Debug("rpc served", fields...)
		}
		return resp, err
	}
}
