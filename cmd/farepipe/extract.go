package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fare-pipeline/internal/usecase"
	"fare-pipeline/pkg/utils"
)

type extractOptions struct {
	host            string
	carrier         string
	scrapedAfter    string
	scrapedBefore   string
	origin          string
	destination     string
	direction       string
	stayDuration    int
	source          string
	includeCarriers []string
	excludeCarriers []string
	maxConnections  int
	batchID         string
	dryRun          bool
}

func newExtractCommand() *cobra.Command {
	opts := &extractOptions{}

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Copy scraped raw fares into flight fare history",
		Long: `Reads raw fare bundles for one host carrier, either by scrape-time window
or by loading batch, normalizes prices to the reference currency and merges
them into the per-flight fare history.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			criteria, err := opts.criteria()
			if err != nil {
				return err
			}
			return runExtract(cmd, criteria)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.host, "host", "", "host carrier code (required)")
	f.StringVar(&opts.carrier, "carrier", "", "only bundles for this carrier code")
	f.StringVar(&opts.scrapedAfter, "scraped-after", "", "window start, RFC3339 or YYYY-MM-DD")
	f.StringVar(&opts.scrapedBefore, "scraped-before", "", "window end, RFC3339 or YYYY-MM-DD")
	f.StringVar(&opts.origin, "origin", "", "origin airport")
	f.StringVar(&opts.destination, "destination", "", "destination airport")
	f.StringVar(&opts.direction, "direction", "", "OW or RT")
	f.IntVar(&opts.stayDuration, "stay-duration", 0, "stay duration in days")
	f.StringVar(&opts.source, "source", "", "scraper id that produced the bundles")
	f.StringSliceVar(&opts.includeCarriers, "include-carriers", nil, "admit only these operating carriers")
	f.StringSliceVar(&opts.excludeCarriers, "exclude-carriers", nil, "reject these operating carriers")
	f.IntVar(&opts.maxConnections, "max-connections", 0, "maximum outbound legs, 0 for unlimited")
	f.StringVar(&opts.batchID, "batch-id", "", "select bundles by loading batch instead of window")
	f.BoolVar(&opts.dryRun, "dry-run", false, "process without writing records")

	_ = cmd.MarkFlagRequired("host")
	for _, filter := range []string{"scraped-after", "scraped-before", "origin", "destination", "carrier", "source", "direction", "stay-duration"} {
		cmd.MarkFlagsMutuallyExclusive("batch-id", filter)
	}
	return cmd
}

func (o *extractOptions) criteria() (usecase.ExtractionCriteria, error) {
	c := usecase.ExtractionCriteria{
		HostCarrier:  o.host,
		Origin:       o.origin,
		Destination:  o.destination,
		CarrierCode:  o.carrier,
		Source:       o.source,
		Direction:    o.direction,
		StayDuration: o.stayDuration,
		BatchID:      o.batchID,
		DryRun:       o.dryRun,
		Admission: usecase.AdmissionPolicy{
			MaxConnections:  o.maxConnections,
			IncludeCarriers: o.includeCarriers,
			ExcludeCarriers: o.excludeCarriers,
		},
	}

	var err error
	if o.scrapedAfter != "" {
		if c.ScrapedAfter, err = utils.ParseTimestamp(o.scrapedAfter); err != nil {
			return c, fmt.Errorf("--scraped-after: %w", err)
		}
	}
	if o.scrapedBefore != "" {
		if c.ScrapedBefore, err = utils.ParseTimestamp(o.scrapedBefore); err != nil {
			return c, fmt.Errorf("--scraped-before: %w", err)
		}
	}
	return usecase.NewExtractionCriteria(c)
}

func runExtract(cmd *cobra.Command, criteria usecase.ExtractionCriteria) error {
	cfg, log, err := bootstrap(false)
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

	start := time.Now()
	stats, err := a.extractor(0).Run(ctx, criteria)
	if err != nil {
		log.Error("Extraction failed", "host", criteria.HostCarrier, "error", err)
		return err
	}
	log.Info("Extraction finished", append([]interface{}{"host", criteria.HostCarrier, "duration", time.Since(start).String()}, stats.Fields()...)...)
	return nil
}
