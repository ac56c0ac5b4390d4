package forecastserver_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/feforecast/internal/forecast"
	"github.com/cory-johannsen/feforecast/internal/forecastserver"
	"github.com/cory-johannsen/feforecast/internal/game/combat"
	"github.com/cory-johannsen/feforecast/internal/game/dice"
	"github.com/cory-johannsen/feforecast/internal/game/rng"
	"github.com/cory-johannsen/feforecast/internal/game/ruleset"
)

// testGRPCServer starts an in-process gRPC server and returns a connected client.
func testGRPCServer(t *testing.T, eval forecastserver.Evaluator, timeout time.Duration, opts ...grpc.ServerOption) (*forecastserver.Client, grpc.ClientConnInterface) {
	t.Helper()

	srv := forecastserver.NewServer(eval, zaptest.NewLogger(t), ruleset.FE7, timeout)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	grpcServer := grpc.NewServer(opts...)
	forecastserver.RegisterForecastServiceServer(grpcServer, srv)

	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(func() { grpcServer.Stop() })

	conn, err := grpc.NewClient(lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return forecastserver.NewClient(conn), conn
}

func newService(t *testing.T) *forecast.Service {
	return forecast.NewService(zaptest.NewLogger(t), 2, 4000, dice.NewSeededSource(11))
}

func lynVsBrigand() forecast.Matchup {
	return forecast.Matchup{
		Name:     "lyn-vs-brigand",
		Game:     ruleset.FE7,
		Pattern:  combat.AtkDoubles,
		Attacker: forecast.Combatant{HP: 20, Stats: combat.Stats{Damage: 10, Hit: 90, Crit: 5}},
		Defender: forecast.Combatant{HP: 15, Stats: combat.Stats{Damage: 6, Hit: 70}},
	}
}

func TestEvaluate_MatchesLocalService(t *testing.T) {
	svc := newService(t)
	client, _ := testGRPCServer(t, svc, time.Second)

	m := lynVsBrigand()
	remote, err := client.Evaluate(context.Background(), m)
	require.NoError(t, err)
	local, err := svc.Evaluate(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, local.Outcomes, remote.Outcomes)
	assert.Equal(t, local.Summary, remote.Summary)
	assert.Equal(t, m, remote.Matchup)
	assert.Equal(t, rng.Averaged, remote.System)
	assert.True(t, remote.Exact())
}

func TestEvaluate_DefaultsGame(t *testing.T) {
	_, conn := testGRPCServer(t, newService(t), 0)

	req, err := structpb.NewStruct(map[string]any{
		"attacker": map[string]any{"hp": 10, "dmg": 10, "hit": 100},
		"defender": map[string]any{"hp": 10},
	})
	require.NoError(t, err)
	out := new(structpb.Struct)
	require.NoError(t, conn.Invoke(context.Background(), "/forecast.v1.ForecastService/Evaluate", req, out))

	f, err := forecastserver.ForecastFromStruct(out)
	require.NoError(t, err)
	assert.Equal(t, ruleset.FE7, f.Matchup.Game)
	assert.Equal(t, []combat.Outcome{{Prob: 1, AtkHP: 10, DefHP: 0}}, f.Outcomes)
}

func TestEvaluate_InvalidArgument(t *testing.T) {
	_, conn := testGRPCServer(t, newService(t), 0)

	tests := []struct {
		name string
		req  map[string]any
	}{
		{"hit out of range", map[string]any{"attacker": map[string]any{"hp": 1, "hit": 150}}},
		{"negative hp", map[string]any{"defender": map[string]any{"hp": -4}}},
		{"unknown game", map[string]any{"game": "FE99"}},
		{"unknown pattern", map[string]any{"pattern": "AAB"}},
		{"unknown field", map[string]any{"speed": 3}},
		{"fractional damage", map[string]any{"attacker": map[string]any{"dmg": 2.5}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := structpb.NewStruct(tc.req)
			require.NoError(t, err)
			err = conn.Invoke(context.Background(), "/forecast.v1.ForecastService/Evaluate", req, new(structpb.Struct))
			assert.Equal(t, codes.InvalidArgument, status.Code(err), "err=%v", err)
		})
	}
}

func TestSimulate_ReportsTrials(t *testing.T) {
	client, _ := testGRPCServer(t, newService(t), time.Second)
	f, err := client.Simulate(context.Background(), lynVsBrigand())
	require.NoError(t, err)
	assert.Equal(t, 4000, f.Trials)
	assert.InDelta(t, 1.0, combat.TotalProb(f.Outcomes), 1e-9)
}

func TestListGames(t *testing.T) {
	client, _ := testGRPCServer(t, newService(t), 0)
	games, err := client.ListGames(context.Background())
	require.NoError(t, err)
	require.Len(t, games, len(ruleset.Games()))
	assert.Equal(t, forecastserver.GameInfo{Name: "FE1", System: "1RN"}, games[0])
	assert.Equal(t, forecastserver.GameInfo{Name: "SoV", System: "FatesRN"}, games[len(games)-1])
}

type blockingEvaluator struct{}

func (blockingEvaluator) Evaluate(ctx context.Context, _ forecast.Matchup) (forecast.Forecast, error) {
	<-ctx.Done()
	return forecast.Forecast{}, ctx.Err()
}

func (b blockingEvaluator) Simulate(ctx context.Context, m forecast.Matchup) (forecast.Forecast, error) {
	return b.Evaluate(ctx, m)
}

func TestEvaluate_RequestTimeout(t *testing.T) {
	client, _ := testGRPCServer(t, blockingEvaluator{}, 20*time.Millisecond)
	_, err := client.Evaluate(context.Background(), lynVsBrigand())
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err), "err=%v", err)
}

func TestLoggingInterceptor(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	client, _ := testGRPCServer(t, newService(t), 0,
		grpc.UnaryInterceptor(forecastserver.LoggingInterceptor(zap.New(core))))

	_, err := client.Evaluate(context.Background(), lynVsBrigand())
	require.NoError(t, err)
	bad := lynVsBrigand()
	bad.Attacker.HP = -1
	_, err = client.Evaluate(context.Background(), bad)
	require.Error(t, err)

	served := logs.FilterMessage("rpc served").All()
	require.Len(t, served, 1)
	assert.Equal(t, "/forecast.v1.ForecastService/Evaluate", served[0].ContextMap()["method"])

	failed := logs.FilterMessage("rpc failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, codes.InvalidArgument.String(), failed[0].ContextMap()["code"])
}

func TestNewServer_Preconditions(t *testing.T) {
	assert.Panics(t, func() { forecastserver.NewServer(nil, zap.NewNop(), ruleset.FE7, 0) })
	assert.Panics(t, func() { forecastserver.NewServer(newService(t), nil, ruleset.FE7, 0) })
}
