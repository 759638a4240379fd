package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/report-facts/internal/async"
	"github.com/joseph-ayodele/report-facts/internal/backend"
	"github.com/joseph-ayodele/report-facts/internal/common"
	"github.com/joseph-ayodele/report-facts/internal/entity"
	"github.com/joseph-ayodele/report-facts/internal/export"
	"github.com/joseph-ayodele/report-facts/internal/extract"
	"github.com/joseph-ayodele/report-facts/internal/ingest"
	"github.com/joseph-ayodele/report-facts/internal/pipeline"
	"github.com/joseph-ayodele/report-facts/internal/registry"
	repo "github.com/joseph-ayodele/report-facts/internal/repository"
	"github.com/joseph-ayodele/report-facts/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	if len(cfg.Watch.Roots) == 0 {
		logger.Error("WATCH_DIRS env var is required")
		os.Exit(2)
	}
	opts := extract.OptionsFromConfig(cfg.Extraction)
	if err := opts.Validate(); err != nil {
		logger.Error("invalid extraction configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := server.ConnectDB(ctx, cfg.Database, false, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer server.CloseDB(db, logger)

	docsRepo := repo.NewDocumentRepository(db, logger)
	runsRepo := repo.NewRunRepository(db, logger)

	bcfg := backend.ConfigFrom(cfg.OCR)
	reg := registry.New(ctx, backend.Defaults(bcfg, nil, logger), logger)
	stage := pipeline.NewStage(backend.NewLoader(bcfg, nil, logger), reg, docsRepo, runsRepo,
		export.NewService(docsRepo, logger), cfg.Output, logger)

	queue := async.NewProcessorQueue(stage, logger,
		async.WithWorkers(cfg.Server.Workers),
		async.WithQueueSize(cfg.Server.QueueSize),
		async.WithProcessTimeout(cfg.Server.ProcessTimeout),
		async.WithOptions(opts),
		async.WithResultFunc(func(job async.Job, res *entity.DocumentResult, err error) {
			if err == nil && res != nil && res.Quality.FailedPages > 0 {
				logger.Warn("document has failed pages", "path", job.Path, "failed_pages", res.Quality.FailedPages)
			}
		}),
	)

	// gRPC server: health and reflection only
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	reflection.Register(grpcServer)

	reporter := server.NewHealthReporter(hs, reg, db, logger)
	if reporter.Update(ctx) != healthpb.HealthCheckResponse_SERVING {
		logger.Warn("starting NOT_SERVING", "backends", reg.Report())
	}
	go reporter.Watch(ctx, 30*time.Second)

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfigFrom(cfg.Watch, logger))
	if err != nil {
		logger.Error("failed to start inbox watcher", "error", err)
		os.Exit(1)
	}
	inboxDone := make(chan int, 1)
	go func() { inboxDone <- server.ServeInbox(ctx, events, errs, queue, logger) }()

	logger.Info("factsd listening", "addr", addr, "watch", cfg.Watch.Roots)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")
	n := <-inboxDone
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	logger.Info("stopped", "enqueued", n)
}
