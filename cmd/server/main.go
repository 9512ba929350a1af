package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/xtding233/starforce/internal/config"
	"github.com/xtding233/starforce/internal/logger"
	"github.com/xtding233/starforce/internal/ruleset"
	"github.com/xtding233/starforce/internal/service"
	"github.com/xtding233/starforce/internal/starforce"
	"github.com/xtding233/starforce/internal/storage"
	"github.com/xtding233/starforce/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "starforce.yaml", "path to config file")
	grpcAddr := flag.String("grpc", "", "gRPC listen address (overrides config)")
	httpAddr := flag.String("http", "", "HTTP listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *grpcAddr != "" {
		cfg.Server.GRPCAddr = *grpcAddr
	}
	if *httpAddr != "" {
		cfg.Server.HTTPAddr = *httpAddr
	}
	if err := logger.Initialize(cfg.Logging); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("server stopped", "error", err)
		logger.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	shutdown, err := telemetry.Setup(ctx, "starforce-server")
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	store, err := storage.Open(ctx, storage.Config{
		Driver:      storage.DialectType(cfg.Storage.Driver),
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	})
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("result store ready", "driver", cfg.Storage.Driver)

	loader := ruleset.NewLoader(cfg.Ruleset.Dir)
	// fail at startup, not on the first request
	if _, err := loader.Load(cfg.Ruleset.Name, ruleset.Overrides{}); err != nil {
		return err
	}

	svc := service.New(service.Options{
		Loader:         loader,
		DefaultRuleset: cfg.Ruleset.Name,
		Store:          store,
		Runner: starforce.Runner{
			Workers:   cfg.Simulation.Workers,
			ShardSize: cfg.Simulation.ShardSize,
			Seed:      cfg.Simulation.Seed,
		},
		MaxTrials: cfg.Simulation.MaxTrials,
		Logger:    logger.L(),
	})
	if cfg.Ruleset.Dir != "" && cfg.Ruleset.WatchInterval > 0 {
		stopWatch := svc.WatchRulesets(cfg.Ruleset.WatchInterval)
		defer stopWatch()
	}

	srv, err := service.NewServer(svc, cfg.Server.GRPCAddr, cfg.Server.HTTPAddr)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}
