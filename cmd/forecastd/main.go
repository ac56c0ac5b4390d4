// Package main provides the forecast daemon, which serves combat forecasts
// over gRPC and optionally records them in PostgreSQL.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/feforecast/internal/config"
	"github.com/cory-johannsen/feforecast/internal/forecast"
	"github.com/cory-johannsen/feforecast/internal/forecastserver"
	"github.com/cory-johannsen/feforecast/internal/game/combat"
	"github.com/cory-johannsen/feforecast/internal/game/dice"
	"github.com/cory-johannsen/feforecast/internal/observability"
	"github.com/cory-johannsen/feforecast/internal/server"
	"github.com/cory-johannsen/feforecast/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	logDraws := flag.Bool("log-draws", false, "log every random number drawn by simulations at debug level")
	healthInterval := flag.Duration("db-health-interval", 30*time.Second, "database health check interval")
	shutdownTimeout := flag.Duration("shutdown-timeout", 10*time.Second, "per-service graceful shutdown bound")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting forecast daemon",
		zap.String("grpc_addr", cfg.Server.Addr()),
		zap.String("default_game", cfg.Forecast.DefaultGame),
		zap.Int("batch_workers", cfg.Forecast.BatchWorkers),
	)

	var src combat.Source = dice.NewCryptoSource()
	if *logDraws {
		src = dice.NewLoggedSource(src, logger)
	}
	svc := forecast.NewService(logger, cfg.Forecast.BatchWorkers, cfg.Forecast.SimulationTrials, src)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lc := server.NewLifecycle(logger, *shutdownTimeout)

	if cfg.Database.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		svc.SetRecorder(postgres.NewForecastRepository(pool.DB()))

		watchCtx, stopWatch := context.WithCancel(ctx)
		lc.Add("db-health", &server.FuncService{
			StartFn: func() error {
				if err := pool.WatchHealth(watchCtx, *healthInterval, 5*time.Second); err != nil && watchCtx.Err() == nil {
					return err
				}
				return nil
			},
			StopFn: func(context.Context) { stopWatch() },
		})
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(forecastserver.LoggingInterceptor(logger)),
	)
	forecastserver.RegisterForecastServiceServer(grpcServer,
		forecastserver.NewServer(svc, logger, cfg.Forecast.Game(), cfg.Server.RequestTimeout))

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(forecastserver.ServiceName, healthpb.HealthCheckResponse_SERVING)

	grpcSvc := server.NewGRPCService(grpcServer, cfg.Server.Addr(), logger)
	lc.Add("grpc", &server.FuncService{
		StartFn: grpcSvc.Start,
		StopFn: func(ctx context.Context) {
			healthServer.Shutdown()
			grpcSvc.Stop(ctx)
		},
	})

	logger.Info("forecast daemon initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lc.Run(ctx); err != nil {
		logger.Error("forecast daemon exited", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}
