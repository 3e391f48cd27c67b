package usecase

import (
	"context"
	"fmt"
	"time"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/internal/domain/repository"
	"fare-pipeline/pkg/logger"
	"fare-pipeline/pkg/metrics"
)

// Locker grants exclusive ownership of a named partition
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(context.Context) error, err error)
}

// ExtractorConfig tunes an extraction run
type ExtractorConfig struct {
	BatchSize    int
	Lookback     time.Duration
	SoldOutAfter time.Duration
}

// FareExtractor runs the raw-fare to fare-history pipeline for one host carrier
type FareExtractor struct {
	rawRepo    repository.RawFareRepository
	recordRepo repository.FlightFareRecordRepository
	rateRepo   repository.RateRepository
	locker     Locker
	metrics    *metrics.Metrics
	logger     logger.Logger
	cfg        ExtractorConfig
	now        func() time.Time
}

// NewFareExtractor creates an extractor. locker and metrics may be nil.
func NewFareExtractor(
	rawRepo repository.RawFareRepository,
	recordRepo repository.FlightFareRecordRepository,
	rateRepo repository.RateRepository,
	locker Locker,
	metrics *metrics.Metrics,
	logger logger.Logger,
	cfg ExtractorConfig,
) *FareExtractor {
	return &FareExtractor{
		rawRepo:    rawRepo,
		recordRepo: recordRepo,
		rateRepo:   rateRepo,
		locker:     locker,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// WithClock replaces the extractor's clock
func (e *FareExtractor) WithClock(now func() time.Time) *FareExtractor {
	e.now = now
	return e
}

// Run extracts every bundle matching criteria and returns the run's counters.
// The summary is logged even when the run fails part way.
func (e *FareExtractor) Run(ctx context.Context, criteria ExtractionCriteria) (*RunStats, error) {
	criteria, err := NewExtractionCriteria(criteria)
	if err != nil {
		return nil, err
	}

	log := e.logger.With("host", criteria.HostCarrier, "dryRun", criteria.DryRun)
	stats := NewRunStats()
	start := time.Now()

	if e.locker != nil {
		release, err := e.locker.Acquire(ctx, "fare-extract:"+criteria.HostCarrier)
		if err != nil {
			return nil, fmt.Errorf("failed to lock host %s: %w", criteria.HostCarrier, err)
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				log.Warn("Failed to release extraction lock", "error", err)
			}
		}()
	}

	rates, err := e.rateRepo.RoundTripRates(ctx, criteria.HostCarrier)
	if err != nil {
		return nil, fmt.Errorf("failed to load round-trip rates: %w", err)
	}
	currencies, err := e.rateRepo.CurrencyTable(ctx, criteria.HostCarrier)
	if err != nil {
		return nil, fmt.Errorf("failed to load currency table: %w", err)
	}

	normalizer := NewFareNormalizer(rates, currencies)
	merger := NewHistoryMerger(e.cfg.Lookback, e.cfg.SoldOutAfter, e.now)
	writer := NewBatchWriter(e.recordRepo, e.cfg.BatchSize, criteria.DryRun, stats, e.metrics, log)
	cursor := NewExtractionCursor(e.rawRepo, criteria, stats, log)

	log.Info("Starting extraction run", "query", fmt.Sprintf("%+v", criteria.Query()))

	runErr := cursor.Each(ctx, func(bundle *entity.ScrapedFareBundle) error {
		return e.processBundle(ctx, bundle, normalizer, merger, writer, stats)
	})
	if runErr == nil {
		runErr = writer.Flush(ctx)
	}

	e.observe(stats, time.Since(start))

	fields := append(stats.Fields(), "duration", time.Since(start).String())
	if runErr != nil {
		log.Error("Extraction run failed", append(fields, "error", runErr)...)
		return stats, runErr
	}
	if criteria.DryRun {
		log.Warn("Extraction run finished in dry-run mode, nothing was written", fields...)
	} else {
		log.Info("Extraction run finished", fields...)
	}
	return stats, nil
}

func (e *FareExtractor) processBundle(
	ctx context.Context,
	bundle *entity.ScrapedFareBundle,
	normalizer *FareNormalizer,
	merger *HistoryMerger,
	writer *BatchWriter,
	stats *RunStats,
) error {
	fares, noFX := normalizer.Normalize(bundle)
	stats.Drop(DropNoFXRate, noFX)

	minimums := SelectMinimumFares(fares)
	rate := normalizer.RoundTripRate(bundle.Origin, bundle.Destination, bundle.Carrier())

	var prior *entity.FlightFareRecord
	if pending, ok := writer.Pending(bundle.FlightKey); ok {
		prior = pending.Record
	} else {
		var err error
		prior, err = e.recordRepo.FindWithRecentHistory(ctx, bundle.FlightKey, merger.WindowStart())
		if err != nil {
			return fmt.Errorf("failed to load history of %s: %w", bundle.FlightKey, err)
		}
	}

	update, dropped := merger.Merge(MergeInput{
		Prior:         prior,
		Bundle:        bundle,
		Fares:         fares,
		Minimums:      minimums,
		RoundTripRate: rate,
	})
	stats.Drop(DropNoScrapeTime, dropped.NoScrapeTime)
	stats.Drop(DropBeforeWindow, dropped.BeforeWindow)

	return writer.Add(ctx, update)
}

func (e *FareExtractor) observe(stats *RunStats, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.BundlesProcessed.Add(float64(stats.Processed.Load()))
	for _, reason := range []SkipReason{SkipConnections, SkipMixedCarrier, SkipCarrierIncluded, SkipCarrierExcluded, SkipUndecodable} {
		if n := stats.Skipped(reason); n > 0 {
			e.metrics.BundlesSkipped.WithLabelValues(string(reason)).Add(float64(n))
		}
	}
	for _, reason := range []string{DropNoScrapeTime, DropNoFXRate, DropBeforeWindow} {
		if n := stats.Dropped(reason); n > 0 {
			e.metrics.FaresDropped.WithLabelValues(reason).Add(float64(n))
		}
	}
	e.metrics.RunTime.WithLabelValues("extract").Observe(elapsed.Seconds())
}
