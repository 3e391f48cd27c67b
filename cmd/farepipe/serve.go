package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"fare-pipeline/internal/usecase"
	"fare-pipeline/pkg/logger"
	"fare-pipeline/pkg/utils"
)

func newServeCommand() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduling and extraction on cron with a metrics endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, usecase.PlanMode(mode))
		},
	}
	cmd.Flags().StringVar(&mode, "mode", string(usecase.PlanDistributed), "schedule mode, local or distributed")
	return cmd
}

func runServe(cmd *cobra.Command, mode usecase.PlanMode) error {
	cfg, log, err := bootstrap(mode == usecase.PlanLocal)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("Starting fare pipeline", "version", cfg.AppVersion, "mode", mode)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize", "error", err)
		return err
	}
	defer a.close()

	generator, err := a.scheduleGenerator(mode, cfg.SkipReoptimize)
	if err != nil {
		return err
	}
	extractor := a.extractor(cfg.LockWait)

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
	)
	if _, err := c.AddFunc(cfg.ScheduleCron, func() {
		stats, err := generator.Generate(ctx, nil, utils.TruncateDay(time.Now()))
		if err != nil {
			log.Error("Scheduled run failed", "error", err)
			return
		}
		log.Info("Scheduled run finished", "submitted", stats.Submitted, "failed", stats.Failed, "skipped", stats.Skipped)
	}); err != nil {
		log.Error("Invalid schedule cron", "spec", cfg.ScheduleCron, "error", err)
		return err
	}
	if _, err := c.AddFunc(cfg.ExtractCron, func() {
		extractEnabledHosts(ctx, a, extractor, cfg.ExtractWindow, log)
	}); err != nil {
		log.Error("Invalid extract cron", "spec", cfg.ExtractCron, "error", err)
		return err
	}
	c.Start()
	log.Info("Cron started", "schedule", cfg.ScheduleCron, "extract", cfg.ExtractCron)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		log.Info("Starting metrics server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", "error", err)
		}
	}()

	sigCtx, stop := signalContext(context.Background())
	defer stop()
	<-sigCtx.Done()

	log.Info("Shutting down fare pipeline...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Metrics server shutdown failed", "error", err)
	}

	// running jobs observe ctx and stop at the next task boundary
	cancel()
	select {
	case <-c.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn("Timed out waiting for running jobs")
	}

	log.Info("Fare pipeline stopped")
	return nil
}

func extractEnabledHosts(ctx context.Context, a *app, extractor *usecase.FareExtractor, window time.Duration, log logger.Logger) {
	hosts, err := a.hostCarriers().ListScrapingEnabled(ctx)
	if err != nil {
		log.Error("Failed to list host carriers", "error", err)
		return
	}

	now := time.Now().UTC()
	for _, host := range hosts {
		if ctx.Err() != nil {
			return
		}
		criteria := usecase.ExtractionCriteria{
			HostCarrier:   host.Code,
			ScrapedAfter:  now.Add(-window),
			ScrapedBefore: now,
		}
		stats, err := extractor.Run(ctx, criteria)
		if err != nil {
			log.Error("Scheduled extraction failed", "host", host.Code, "error", err)
			continue
		}
		log.Info("Scheduled extraction finished", append([]interface{}{"host", host.Code}, stats.Fields()...)...)
	}
}
