package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/internal/domain/repository"
	"fare-pipeline/pkg/logger"
	"fare-pipeline/pkg/utils"
)

var ErrScrapeFailed = errors.New("scrape task failed")

func taskFields(task *entity.ScheduleTask) []interface{} {
	fields := []interface{}{
		"taskId", task.ID,
		"kind", task.Kind,
		"host", task.HostCarrier,
		"market", task.Market(),
		"scraper", task.ScraperID,
	}
	if task.DepartureDate != nil {
		fields = append(fields, "departureDate", task.DepartureDate.Format(utils.DATE_LAYOUT))
	}
	return fields
}

// ScrapeTaskHandler sends scrape tasks to a scraper server. Failures are not retried.
type ScrapeTaskHandler struct {
	client   repository.ScraperClient
	balancer ServerBalancer
	logger   logger.Logger
}

func NewScrapeTaskHandler(client repository.ScraperClient, balancer ServerBalancer, logger logger.Logger) *ScrapeTaskHandler {
	return &ScrapeTaskHandler{client: client, balancer: balancer, logger: logger}
}

func (h *ScrapeTaskHandler) CanHandle(kind entity.TaskKind) bool {
	return kind == entity.TaskScrape
}

func (h *ScrapeTaskHandler) Handle(ctx context.Context, task *entity.ScheduleTask) error {
	server := h.balancer.Next()
	if err := h.client.Scrape(ctx, server, task); err != nil {
		h.logger.Error("Scrape failed", append(taskFields(task), "server", server, "error", err)...)
		return fmt.Errorf("%w: %s on %s: %v", ErrScrapeFailed, task.ID, server, err)
	}
	h.logger.Debug("Scrape completed", append(taskFields(task), "server", server)...)
	return nil
}

// StageTaskHandler runs the extract-schedule and re-optimize stages on a scraper server
type StageTaskHandler struct {
	client   repository.ScraperClient
	balancer ServerBalancer
	logger   logger.Logger
}

func NewStageTaskHandler(client repository.ScraperClient, balancer ServerBalancer, logger logger.Logger) *StageTaskHandler {
	return &StageTaskHandler{client: client, balancer: balancer, logger: logger}
}

func (h *StageTaskHandler) CanHandle(kind entity.TaskKind) bool {
	return kind == entity.TaskExtractSchedule || kind == entity.TaskReoptimize
}

func (h *StageTaskHandler) Handle(ctx context.Context, task *entity.ScheduleTask) error {
	server := h.balancer.Next()
	if err := h.client.RunStage(ctx, server, task); err != nil {
		h.logger.Error("Stage failed", append(taskFields(task), "server", server, "error", err)...)
		return fmt.Errorf("stage %s for %s: %w", task.Kind, task.Market(), err)
	}
	return nil
}

// FareCopyHandler runs the extraction pipeline for the market and scraper of a
// fare-copy task, over raw fares scraped within the last window.
type FareCopyHandler struct {
	extractor *FareExtractor
	window    time.Duration
	now       func() time.Time
	logger    logger.Logger
}

func NewFareCopyHandler(extractor *FareExtractor, window time.Duration, logger logger.Logger) *FareCopyHandler {
	return &FareCopyHandler{extractor: extractor, window: window, now: time.Now, logger: logger}
}

func (h *FareCopyHandler) CanHandle(kind entity.TaskKind) bool {
	return kind == entity.TaskFareCopy
}

func (h *FareCopyHandler) Handle(ctx context.Context, task *entity.ScheduleTask) error {
	now := h.now()
	criteria := ExtractionCriteria{
		HostCarrier:   task.HostCarrier,
		ScrapedAfter:  now.Add(-h.window),
		ScrapedBefore: now,
		Origin:        task.Origin,
		Destination:   task.Destination,
		Source:        task.ScraperID,
		Direction:     task.Direction,
		StayDuration:  task.StayDuration,
		Admission: AdmissionPolicy{
			MaxConnections:  task.MaxStops + 1,
			IncludeCarriers: task.IncludedCarriers,
		},
	}

	stats, err := h.extractor.Run(ctx, criteria)
	if err != nil {
		return fmt.Errorf("fare copy for %s: %w", task.Market(), err)
	}
	h.logger.Info("Fare copy completed", append(taskFields(task), stats.Fields()...)...)
	return nil
}
