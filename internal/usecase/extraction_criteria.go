package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/internal/domain/repository"
	"fare-pipeline/pkg/utils"
)

var (
	ErrConflictingCriteria = errors.New("batch id cannot be combined with other filters")
	ErrInvalidCriteria     = errors.New("invalid extraction criteria")
)

// AdmissionPolicy decides which bundles enter the pipeline
type AdmissionPolicy struct {
	MaxConnections  int // 0 means unlimited
	IncludeCarriers []string
	ExcludeCarriers []string
}

// Admit returns the skip reason when the bundle must be rejected.
func (p AdmissionPolicy) Admit(bundle *entity.ScrapedFareBundle) (SkipReason, bool) {
	legs := bundle.OutboundLegs()
	if p.MaxConnections > 0 && len(legs) > p.MaxConnections {
		return SkipConnections, false
	}

	var carriers []string
	if len(bundle.Itineraries) > 0 {
		carriers = bundle.Itineraries[0].OperatingCarriers()
	}
	if len(carriers) != 1 {
		return SkipMixedCarrier, false
	}

	carrier := carriers[0]
	if len(p.IncludeCarriers) > 0 && !utils.ContainsCode(p.IncludeCarriers, carrier) {
		return SkipCarrierIncluded, false
	}
	if utils.ContainsCode(p.ExcludeCarriers, carrier) {
		return SkipCarrierExcluded, false
	}
	return "", true
}

// ExtractionCriteria selects raw bundles for one run. Either the scrape-time window
// (with optional filters) or BatchID is used, never both.
type ExtractionCriteria struct {
	HostCarrier   string
	ScrapedAfter  time.Time
	ScrapedBefore time.Time
	Origin        string
	Destination   string
	CarrierCode   string
	Source        string
	Direction     string
	StayDuration  int
	BatchID       string
	Admission     AdmissionPolicy
	DryRun        bool
}

// NewExtractionCriteria normalizes and validates c.
func NewExtractionCriteria(c ExtractionCriteria) (ExtractionCriteria, error) {
	c.HostCarrier = strings.ToUpper(strings.TrimSpace(c.HostCarrier))
	c.Origin = strings.ToUpper(strings.TrimSpace(c.Origin))
	c.Destination = strings.ToUpper(strings.TrimSpace(c.Destination))
	c.CarrierCode = strings.ToUpper(strings.TrimSpace(c.CarrierCode))
	c.BatchID = strings.TrimSpace(c.BatchID)
	c.Admission.IncludeCarriers = utils.NormalizeCodes(c.Admission.IncludeCarriers)
	c.Admission.ExcludeCarriers = utils.NormalizeCodes(c.Admission.ExcludeCarriers)

	if c.HostCarrier == "" {
		return c, fmt.Errorf("%w: host carrier is required", ErrInvalidCriteria)
	}
	if c.Admission.MaxConnections < 0 {
		return c, fmt.Errorf("%w: max connections must not be negative", ErrInvalidCriteria)
	}
	if c.StayDuration < 0 {
		return c, fmt.Errorf("%w: stay duration must not be negative", ErrInvalidCriteria)
	}

	if c.BatchID != "" {
		if c.hasFilters() {
			return c, ErrConflictingCriteria
		}
		return c, nil
	}

	if c.ScrapedAfter.IsZero() || c.ScrapedBefore.IsZero() {
		return c, fmt.Errorf("%w: scraped-after and scraped-before are required", ErrInvalidCriteria)
	}
	if !c.ScrapedAfter.Before(c.ScrapedBefore) {
		return c, fmt.Errorf("%w: scraped-after must be before scraped-before", ErrInvalidCriteria)
	}
	return c, nil
}

func (c ExtractionCriteria) hasFilters() bool {
	return !c.ScrapedAfter.IsZero() || !c.ScrapedBefore.IsZero() ||
		c.Origin != "" || c.Destination != "" || c.CarrierCode != "" ||
		c.Source != "" || c.Direction != "" || c.StayDuration != 0
}

// IsBatchMode reports whether bundles are selected by loading batch
func (c ExtractionCriteria) IsBatchMode() bool {
	return c.BatchID != ""
}

// Query converts the criteria to the raw store query
func (c ExtractionCriteria) Query() repository.RawFareQuery {
	if c.IsBatchMode() {
		return repository.RawFareQuery{HostCarrier: c.HostCarrier, BatchID: c.BatchID}
	}
	return repository.RawFareQuery{
		HostCarrier:   c.HostCarrier,
		ScrapedAfter:  c.ScrapedAfter,
		ScrapedBefore: c.ScrapedBefore,
		Origin:        c.Origin,
		Destination:   c.Destination,
		CarrierCode:   c.CarrierCode,
		Source:        c.Source,
		Direction:     c.Direction,
		StayDuration:  c.StayDuration,
	}
}

// MatchesFare applies the nested fare pre-filter. Fares without a scrape time are
// kept here and dropped later by the merger, where they are counted.
func (c ExtractionCriteria) MatchesFare(fare entity.FareObservation) bool {
	if c.IsBatchMode() {
		return true
	}
	if c.Source != "" && fare.Source != c.Source {
		return false
	}
	if fare.ScrapedAt == nil {
		return true
	}
	return !fare.ScrapedAt.Before(c.ScrapedAfter) && fare.ScrapedAt.Before(c.ScrapedBefore)
}
