package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fare-pipeline/internal/usecase"
	"fare-pipeline/pkg/utils"
)

type scheduleOptions struct {
	mode           string
	startDate      string
	hosts          []string
	skipReoptimize bool
}

func newScheduleCommand() *cobra.Command {
	opts := &scheduleOptions{}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Build and dispatch one day's scrape job graph",
		Long: `Expands market configuration into scrape tasks for the scraping horizon.
In local mode the graph runs in-process against the scraper servers, followed
by fare copy, extract-schedule and re-optimize stages. In distributed mode scrape
tasks are published to the remote queue.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchedule(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.mode, "mode", string(usecase.PlanLocal), "local or distributed")
	f.StringVar(&opts.startDate, "start-date", "", "base date YYYY-MM-DD (default today UTC)")
	f.StringSliceVar(&opts.hosts, "host", nil, "host carrier code, repeatable (default all scraping-enabled)")
	f.BoolVar(&opts.skipReoptimize, "skip-reoptimize", false, "omit re-optimize tasks in local mode")
	return cmd
}

func (o *scheduleOptions) baseDate(now time.Time) (time.Time, error) {
	if o.startDate == "" {
		return utils.TruncateDay(now), nil
	}
	d, err := utils.ParseDate(o.startDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("--start-date: %w", err)
	}
	return d, nil
}

func runSchedule(cmd *cobra.Command, opts *scheduleOptions) error {
	mode := usecase.PlanMode(opts.mode)
	baseDate, err := opts.baseDate(time.Now())
	if err != nil {
		return err
	}

	cfg, log, err := bootstrap(mode == usecase.PlanLocal)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize", "error", err)
		return err
	}
	defer a.close()

	generator, err := a.scheduleGenerator(mode, opts.skipReoptimize || cfg.SkipReoptimize)
	if err != nil {
		return err
	}

	stats, err := generator.Generate(ctx, opts.hosts, baseDate)
	if err != nil {
		log.Error("Scheduling failed", "mode", mode, "error", err)
		return err
	}
	log.Info("Scheduling finished",
		"mode", mode,
		"submitted", stats.Submitted,
		"completed", stats.Completed,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
	)
	if stats.Failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", stats.Failed, stats.Submitted)
	}
	return nil
}
