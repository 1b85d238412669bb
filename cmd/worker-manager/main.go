// cmd/worker-manager/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"crm-decision-engine/internal/api"
	"crm-decision-engine/internal/app"
	"crm-decision-engine/internal/common/aws"
	"crm-decision-engine/internal/common/camunda"
	"crm-decision-engine/internal/common/config"
	"crm-decision-engine/internal/common/logger"
	"crm-decision-engine/internal/common/observability"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := observability.New(cfg.App.Name, log)

	rt, err := app.BuildEngine(ctx, cfg, log, obs)
	if err != nil {
		return fmt.Errorf("engine init failed: %w", err)
	}
	defer rt.Close()

	srv := api.NewServer(cfg.Server, rt.Engine, log)
	for name, check := range rt.ReadinessChecks() {
		srv.AddReadinessCheck(name, check)
	}

	// --- Zeebe workers ---
	var workers *camunda.WorkerSet
	var zeebe *camunda.Client
	if cfg.Camunda.Enabled {
		zeebe, err = camunda.Connect(ctx, &camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: cfg.Camunda.Plaintext,
			ConnectionTimeout:      config.GetDuration(cfg.Camunda.Timeout),
		}, log)
		if err != nil {
			return fmt.Errorf("zeebe client failed after retries: %w", err)
		}
		defer zeebe.Close()
		srv.AddReadinessCheck("zeebe", zeebe.HealthCheck)

		handlers := rt.Engine.Handlers()
		if cfg.Notifications.Escalation.Enabled {
			publisher, err := aws.NewEscalationPublisher(ctx, cfg.Notifications.Escalation, log)
			if err != nil {
				return fmt.Errorf("escalation publisher init failed: %w", err)
			}
			handlers.Pipeline.WithEscalator(publisher)
		}

		workers = camunda.NewWorkerSet(zeebe.Zeebe(), log)
		jobHandlers := handlers.JobHandlers()
		taskTypes := make([]string, 0, len(jobHandlers))
		for taskType := range jobHandlers {
			taskTypes = append(taskTypes, taskType)
		}
		sort.Strings(taskTypes)
		for _, taskType := range taskTypes {
			workers.Start(taskType, config.GetWorkerConfig(cfg, taskType), jobHandlers[taskType])
		}
		zapLog.Info("Workers registered", zap.Strings("taskTypes", workers.TaskTypes()))
	} else {
		zapLog.Info("Camunda disabled, serving HTTP API only")
	}

	// --- HTTP server & graceful shutdown ---
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		zapLog.Info("Shutdown signal received, stopping workers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
		defer cancel()

		if workers != nil {
			workers.Close()
		}
		if err := obs.Shutdown(shutdownCtx); err != nil {
			zapLog.Warn("Error shutting down telemetry", zap.Error(err))
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	zapLog.Info("Worker manager stopped gracefully", zap.Duration("uptime", time.Since(startedAt)))
	return nil
}

var startedAt = time.Now()
