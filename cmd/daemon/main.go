// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/mchestr/plex-maintenance-engine/internal/api"
	"github.com/mchestr/plex-maintenance-engine/internal/audit"
	"github.com/mchestr/plex-maintenance-engine/internal/config"
	"github.com/mchestr/plex-maintenance-engine/internal/deletion"
	"github.com/mchestr/plex-maintenance-engine/internal/domain"
	"github.com/mchestr/plex-maintenance-engine/internal/health"
	xglog "github.com/mchestr/plex-maintenance-engine/internal/log"
	"github.com/mchestr/plex-maintenance-engine/internal/mediasource"
	"github.com/mchestr/plex-maintenance-engine/internal/persistence"
	"github.com/mchestr/plex-maintenance-engine/internal/persistence/sqlite"
	"github.com/mchestr/plex-maintenance-engine/internal/predicate"
	"github.com/mchestr/plex-maintenance-engine/internal/queue"
	"github.com/mchestr/plex-maintenance-engine/internal/registry"
	"github.com/mchestr/plex-maintenance-engine/internal/report"
	"github.com/mchestr/plex-maintenance-engine/internal/scan"
	"github.com/mchestr/plex-maintenance-engine/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	xglog.Configure(xglog.Config{Level: "info", Service: "plex-maintenance-engine", Version: version.Version})
	logger := xglog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}

	xglog.Configure(xglog.Config{Level: cfg.LogLevel, Service: "plex-maintenance-engine", Version: version.Version})
	logger = xglog.WithComponent("daemon")

	if err := health.PerformStartupChecks(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Msg("startup checks failed")
	}

	db, err := sqlite.Open(cfg.DatabasePath, sqlite.DefaultConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := sqlite.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to apply schema")
	}

	var store persistence.Gateway = sqlite.NewStore(db)

	fieldRegistry := registry.New(registry.DefaultFields())
	evaluator := predicate.NewEvaluator(fieldRegistry, logger)
	auditLogger := audit.NewLogger()
	reportWriter := report.NewWriter(cfg.ReportPath)

	// The Radarr/Sonarr HTTP clients are an explicit out-of-scope external
	// collaborator (spec §1); only configured catalog services get an
	// adapter binding, so an unconfigured service fails candidates
	// gracefully at scan/deletion time rather than at startup.
	sources := mediasource.NewRegistry(map[domain.MediaType]mediasource.Adapter{})

	orchestrator := scan.New(scan.Deps{
		Persistence:  store,
		Sources:      sources,
		Evaluator:    evaluator,
		Audit:        auditLogger,
		Log:          xglog.WithComponent("scan-orchestrator"),
		ReportWriter: reportWriter,
	})
	executor := deletion.New(deletion.Deps{
		Persistence: store,
		Sources:     sources,
		Audit:       auditLogger,
		Log:         xglog.WithComponent("deletion-executor"),
	})

	redisClient := queue.NewClient(cfg.RedisURL, xglog.WithComponent("redis"))
	defer redisClient.Close()

	scanQueue := queue.NewQueue(queue.ScanQueueConfig(), redisClient, xglog.WithComponent("scan-queue"))
	deletionQueue := queue.NewQueue(queue.DeletionQueueConfig(), redisClient, xglog.WithComponent("deletion-queue"))

	scanLimiter := rate.NewLimiter(rate.Limit(float64(cfg.ScanQueueRateLimit)/60.0), cfg.ScanQueueRateLimit)

	scanWorker := queue.NewWorker(scanQueue, cfg.ScanQueueConcurrency, scanLimiter, scanJobHandler(orchestrator), xglog.WithComponent("scan-worker"))
	deletionWorker := queue.NewWorker(deletionQueue, cfg.DeletionConcurrency, nil, deletionJobHandler(executor), xglog.WithComponent("deletion-worker"))

	scheduler := queue.NewScheduler(scanQueue, xglog.WithComponent("scheduler"))

	healthManager := health.NewManager(version.Version)
	healthManager.RegisterChecker(health.NewRedisChecker(redisClient.Ping))
	healthManager.RegisterChecker(health.NewDatabaseChecker(func(pingCtx context.Context) error {
		return db.PingContext(pingCtx)
	}))

	adminServer := api.NewServer(api.Config{
		Addr:               cfg.HTTPAddr,
		RateLimitEnabled:   true,
		RateLimitGlobalRPS: 50,
		RateLimitBurst:     100,
		TracingService:     "plex-maintenance-engine",
		ReportWriter:       reportWriter,
	}, healthManager)

	rules, err := store.FindAllScheduledEnabled(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load scheduled rules at startup")
	}
	scheduler.SyncAllWithStartupRetry(ctx, scheduledRulesFrom(rules))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return adminServer.Run(gctx) })
	g.Go(func() error { return scanWorker.Run(gctx) })
	g.Go(func() error { return deletionWorker.Run(gctx) })
	g.Go(func() error { return scheduler.Run(gctx) })

	logger.Info().Str("addr", cfg.HTTPAddr).Msg("plex-maintenance-engine worker started")

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("worker exited with error")
		os.Exit(1)
	}

	logger.Info().Msg("worker exited cleanly")
}

func unmarshalPayload(job queue.Job, v any) error {
	if err := json.Unmarshal(job.Payload, v); err != nil {
		return fmt.Errorf("unmarshal job %s payload: %w", job.ID, err)
	}
	return nil
}

func scheduledRulesFrom(rules []domain.Rule) []queue.ScheduledRule {
	out := make([]queue.ScheduledRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, queue.ScheduledRule{ID: r.ID, Schedule: r.Schedule, Enabled: r.Enabled})
	}
	return out
}

func scanJobHandler(orchestrator *scan.Orchestrator) queue.Handler {
	return func(ctx context.Context, job queue.Job, onProgress queue.ProgressFunc) (any, error) {
		var payload queue.ScanJobPayload
		if err := unmarshalPayload(job, &payload); err != nil {
			return nil, err
		}

		result := orchestrator.Scan(ctx, payload.RuleID, func(percent int) {
			onProgress(queue.InterpolateProgress(percent))
		})
		if result.Status != domain.ScanStatusCompleted {
			return nil, fmt.Errorf("scan %s: %s", result.ScanID, result.Error)
		}
		return result, nil
	}
}

func deletionJobHandler(executor *deletion.Executor) queue.Handler {
	return func(ctx context.Context, job queue.Job, onProgress queue.ProgressFunc) (any, error) {
		var payload queue.DeletionJobPayload
		if err := unmarshalPayload(job, &payload); err != nil {
			return nil, err
		}

		result := executor.Execute(ctx, payload.CandidateIDs, payload.DeleteFiles, payload.UserID, func(percent int) {
			onProgress(queue.InterpolateProgress(percent))
		})
		if result.Failed > 0 && result.Success == 0 {
			return nil, fmt.Errorf("deletion job: all %d candidates failed", result.Failed)
		}
		return result, nil
	}
}
