// Command synthledger runs the settlement service: NATS JetStream command
// ingestion, the accounting core over Postgres (or the in-memory store), and
// the HTTP/gRPC query surfaces.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"SynthLedger/internal/config"
	"SynthLedger/internal/core"
	"SynthLedger/internal/ingestion"
	"SynthLedger/internal/observability"
	"SynthLedger/internal/oracle"
	"SynthLedger/internal/query"
	"SynthLedger/internal/server"
	"SynthLedger/internal/store"
	"SynthLedger/internal/treasury"
)

func main() {
	configPath := flag.String("config", os.Getenv("SYNTH_CONFIG"), "path to YAML config file")
	flag.Parse()

	log := observability.NewLogger("synthledger")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	metrics := observability.NewMetrics()
	healthChecker := observability.NewHealthChecker()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store: Postgres when a DSN is configured, otherwise in-memory.
	var st store.Store
	if cfg.Postgres.DSN != "" {
		pg, err := store.OpenPostgres(cfg.Postgres.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open postgres")
		}
		migrator := store.NewMigrator(pg.DB(), cfg.Postgres.MigrationsDir, observability.NewLogger("migrator"))
		if err := migrator.Up(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		st = pg
		log.Info().Msg("using postgres store")
	} else {
		st = store.NewMemory()
		log.Warn().Msg("no postgres DSN configured, using in-memory store")
	}
	defer st.Close()

	nc, js, err := ingestion.ConnectNATS(cfg.NATS.URL, observability.NewLogger("nats"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to nats")
	}
	defer nc.Close()

	if err := ingestion.EnsureStreams(ctx, js, log); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure inbound streams")
	}
	if err := ingestion.EnsureOutboundStream(ctx, js, log); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure outbound stream")
	}

	feeds := oracle.NewFeedOracle()
	mover := treasury.LogMover{Log: observability.NewLogger("treasury")}

	c := core.New(st, feeds, core.WallClock{}, mover, observability.NewLogger("core"), metrics)

	commands := make(chan ingestion.RawCommand, cfg.Ingest.CommandBuffer)
	results := make(chan ingestion.PublishableResult, cfg.Ingest.PublishBuffer)

	subscriber := ingestion.NewSubscriber(js, commands, observability.NewLogger("subscriber"))
	dispatcher := ingestion.NewDispatcher(c, feeds, commands, results, observability.NewLogger("dispatcher"), metrics)
	publisher := ingestion.NewOutboundPublisher(js, results, observability.NewLogger("publisher"))

	queries := query.NewService(st, feeds)
	httpServer := server.NewHTTPServer(cfg.Server.HTTPAddr, queries, healthChecker, metrics, observability.NewLogger("http"))
	grpcServer := server.NewGRPCServer(cfg.Server.GRPCAddr, observability.NewLogger("grpc"))

	errChan := make(chan error, 4)

	go func() {
		if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
			errChan <- err
		}
	}()
	go func() {
		if err := publisher.Run(ctx); err != nil && ctx.Err() == nil {
			errChan <- err
		}
	}()
	go func() {
		if err := httpServer.Start(ctx); err != nil {
			errChan <- err
		}
	}()
	go func() {
		if err := grpcServer.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	if err := subscriber.Subscribe(ctx, ingestion.DefaultSubjects()); err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe")
	}

	healthChecker.SetReady(true)
	grpcServer.SetServing(true)
	log.Info().
		Str("http_addr", cfg.Server.HTTPAddr).
		Str("grpc_addr", cfg.Server.GRPCAddr).
		Msg("synthledger started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errChan:
		log.Error().Err(err).Msg("component failed")
	}

	healthChecker.SetReady(false)
	grpcServer.SetServing(false)
	subscriber.Stop()
	cancel()

	log.Info().Msg("synthledger stopped")
}
