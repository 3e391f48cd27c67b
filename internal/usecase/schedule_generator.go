package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fare-pipeline/internal/domain/repository"
	"fare-pipeline/pkg/logger"
	"fare-pipeline/pkg/metrics"
)

// ScheduleGenerator plans scrape work from market configuration and dispatches it
type ScheduleGenerator struct {
	hosts      repository.HostCarrierRepository
	markets    repository.MarketConfigRepository
	builder    *JobGraphBuilder
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	logger     logger.Logger
}

func NewScheduleGenerator(
	hosts repository.HostCarrierRepository,
	markets repository.MarketConfigRepository,
	builder *JobGraphBuilder,
	dispatcher Dispatcher,
	metrics *metrics.Metrics,
	logger logger.Logger,
) *ScheduleGenerator {
	return &ScheduleGenerator{
		hosts:      hosts,
		markets:    markets,
		builder:    builder,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
	}
}

// Plan loads configuration for hostCodes (every scraping-enabled host when empty)
// and builds the job graph. Any invalid market fails the whole plan.
func (g *ScheduleGenerator) Plan(ctx context.Context, hostCodes []string, baseDate time.Time) (*JobGraph, error) {
	plans, err := g.loadPlans(ctx, hostCodes)
	if err != nil {
		return nil, err
	}
	return g.builder.Build(plans, baseDate), nil
}

// Generate plans and dispatches one scheduling run
func (g *ScheduleGenerator) Generate(ctx context.Context, hostCodes []string, baseDate time.Time) (DispatchStats, error) {
	start := time.Now()

	graph, err := g.Plan(ctx, hostCodes, baseDate)
	if err != nil {
		return DispatchStats{}, err
	}

	g.logger.Info("Job graph built", "tasks", len(graph.Tasks), "baseDate", baseDate.Format("2006-01-02"))

	stats, err := g.dispatcher.Dispatch(ctx, graph)
	if g.metrics != nil {
		g.metrics.RunTime.WithLabelValues("schedule").Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return stats, fmt.Errorf("dispatch failed: %w", err)
	}
	return stats, nil
}

func (g *ScheduleGenerator) loadPlans(ctx context.Context, hostCodes []string) ([]HostMarkets, error) {
	var plans []HostMarkets

	if len(hostCodes) == 0 {
		hosts, err := g.hosts.ListScrapingEnabled(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list host carriers: %w", err)
		}
		for _, h := range hosts {
			plans = append(plans, HostMarkets{Host: h})
		}
	} else {
		for _, code := range hostCodes {
			h, err := g.hosts.GetByCode(ctx, strings.ToUpper(code))
			if err != nil {
				return nil, fmt.Errorf("failed to load host carrier %s: %w", code, err)
			}
			if h == nil {
				return nil, fmt.Errorf("unknown host carrier %s", code)
			}
			if !h.ScrapingEnabled {
				g.logger.Warn("Scraping disabled for host carrier, skipping", "host", h.Code)
				continue
			}
			plans = append(plans, HostMarkets{Host: h})
		}
	}

	for i := range plans {
		markets, err := g.markets.ListMarkets(ctx, plans[i].Host.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to load markets of %s: %w", plans[i].Host.Code, err)
		}
		for _, m := range markets {
			if err := m.Validate(); err != nil {
				return nil, err
			}
		}
		plans[i].Markets = markets
	}
	return plans, nil
}
