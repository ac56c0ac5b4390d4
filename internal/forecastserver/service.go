// Package forecastserver exposes the forecast service over gRPC as
// forecast.v1.ForecastService. Requests and responses are
// google.protobuf.Struct documents using the same field names as the YAML
// matchup files, so any gRPC client can call it without generated stubs.
package forecastserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "forecast.v1.ForecastService"

const (
	evaluateMethod  = "/" + ServiceName + "/Evaluate"
	simulateMethod  = "/" + ServiceName + "/Simulate"
	listGamesMethod = "/" + ServiceName + "/ListGames"
)

// ForecastServiceServer is the server API for forecast.v1.ForecastService.
type ForecastServiceServer interface {
	// Evaluate returns the exact outcome distribution of one matchup.
	Evaluate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// Simulate returns a Monte-Carlo estimate of the same distribution.
	Simulate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// ListGames returns every supported title and its hit rate system.
	ListGames(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterForecastServiceServer registers srv on s.
func RegisterForecastServiceServer(s grpc.ServiceRegistrar, srv ForecastServiceServer) {
	s.RegisterService(&ForecastServiceDesc, srv)
}

// ForecastServiceDesc is the grpc.ServiceDesc for forecast.v1.ForecastService.
var ForecastServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ForecastServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
		{MethodName: "Simulate", Handler: simulateHandler},
		{MethodName: "ListGames", Handler: listGamesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "forecast/v1/forecast.proto",
}

func evaluateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ForecastServiceServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: evaluateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ForecastServiceServer).Evaluate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func simulateHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ForecastServiceServer).Simulate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: simulateMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ForecastServiceServer).Simulate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listGamesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ForecastServiceServer).ListGames(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listGamesMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ForecastServiceServer).ListGames(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
