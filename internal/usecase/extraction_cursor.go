package usecase

import (
	"context"
	"fmt"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/internal/domain/repository"
	"fare-pipeline/pkg/logger"
)

// ExtractionCursor streams admitted bundles out of the raw store
type ExtractionCursor struct {
	rawRepo  repository.RawFareRepository
	criteria ExtractionCriteria
	stats    *RunStats
	logger   logger.Logger
}

// NewExtractionCursor creates a cursor over bundles matching criteria
func NewExtractionCursor(rawRepo repository.RawFareRepository, criteria ExtractionCriteria, stats *RunStats, logger logger.Logger) *ExtractionCursor {
	return &ExtractionCursor{
		rawRepo:  rawRepo,
		criteria: criteria,
		stats:    stats,
		logger:   logger,
	}
}

// Each calls fn once per admitted bundle, in store order. Rejected bundles are counted
// and skipped. Iteration stops at the first error returned by fn.
func (c *ExtractionCursor) Each(ctx context.Context, fn func(bundle *entity.ScrapedFareBundle) error) error {
	cursor, err := c.rawRepo.Find(ctx, c.criteria.Query())
	if err != nil {
		return fmt.Errorf("failed to query raw fares: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		c.stats.Processed.Add(1)

		var bundle entity.ScrapedFareBundle
		if err := cursor.Decode(&bundle); err != nil {
			c.logger.Warn("Skipping undecodable bundle", "error", err)
			c.stats.Skip(SkipUndecodable)
			continue
		}

		bundle.Fares = c.filterFares(bundle.Fares)

		if reason, ok := c.criteria.Admission.Admit(&bundle); !ok {
			c.stats.Skip(reason)
			c.logger.Debug("Bundle rejected",
				"flightKey", bundle.FlightKey,
				"market", bundle.Market(),
				"reason", reason)
			continue
		}
		c.stats.Admitted.Add(1)

		if err := fn(&bundle); err != nil {
			return err
		}
	}

	if err := cursor.Err(); err != nil {
		return fmt.Errorf("raw fare cursor failed: %w", err)
	}
	return nil
}

func (c *ExtractionCursor) filterFares(fares []entity.FareObservation) []entity.FareObservation {
	kept := fares[:0]
	for _, f := range fares {
		if c.criteria.MatchesFare(f) {
			kept = append(kept, f)
		}
	}
	return kept
}
