package forecastserver

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/feforecast/internal/forecast"
)

// Client calls a remote forecast.v1.ForecastService.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
//
// Precondition: cc must be non-nil.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Evaluate sends m to the remote Evaluate method.
func (c *Client) Evaluate(ctx context.Context, m forecast.Matchup) (forecast.Forecast, error) {
	return c.call(ctx, evaluateMethod, m)
}

// Simulate sends m to the remote Simulate method.
func (c *Client) Simulate(ctx context.Context, m forecast.Matchup) (forecast.Forecast, error) {
	return c.call(ctx, simulateMethod, m)
}

// ListGames returns the remote list of supported games.
func (c *Client) ListGames(ctx context.Context) ([]GameInfo, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listGamesMethod, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	var resp struct {
		Games []GameInfo `json:"games"`
	}
	if err := decodeStruct(out, &resp); err != nil {
		return nil, err
	}
	return resp.Games, nil
}

func (c *Client) call(ctx context.Context, method string, m forecast.Matchup) (forecast.Forecast, error) {
	in, err := MatchupToStruct(m)
	if err != nil {
		return forecast.Forecast{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out); err != nil {
		return forecast.Forecast{}, err
	}
	f, err := ForecastFromStruct(out)
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("decoding %s response: %w", method, err)
	}
	return f, nil
}
