package usecase

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/pkg/utils"
)

// PlanMode selects the shape of the generated task graph
type PlanMode string

const (
	// PlanLocal builds scrape tasks plus one dependent post-processing chain per
	// market and scraper, for the in-process queue.
	PlanLocal PlanMode = "local"
	// PlanDistributed builds flat, dependency-free scrape tasks for a remote queue.
	PlanDistributed PlanMode = "distributed"
)

// task IDs are name-based UUIDs so the same plan always yields the same IDs
var taskNamespace = uuid.MustParse("6f1c8a52-3d0e-4c57-9a7b-2f4e8d1b0c93")

// HostMarkets pairs a host carrier with its configured markets
type HostMarkets struct {
	Host    *entity.HostCarrier
	Markets []entity.ScraperMarket
}

// JobGraph is an immutable list of tasks in dependency order
type JobGraph struct {
	Tasks []*entity.ScheduleTask
}

// CountByKind counts tasks of one kind
func (g *JobGraph) CountByKind(kind entity.TaskKind) int {
	n := 0
	for _, t := range g.Tasks {
		if t.Kind == kind {
			n++
		}
	}
	return n
}

// JobGraphBuilder turns market configuration into task graphs. It is pure.
type JobGraphBuilder struct {
	mode           PlanMode
	skipReoptimize bool
}

// NewJobGraphBuilder creates a builder
func NewJobGraphBuilder(mode PlanMode, skipReoptimize bool) (*JobGraphBuilder, error) {
	switch mode {
	case PlanLocal, PlanDistributed:
	default:
		return nil, fmt.Errorf("unknown plan mode %q", mode)
	}
	return &JobGraphBuilder{mode: mode, skipReoptimize: skipReoptimize}, nil
}

// Build enumerates host x market x day offset x scraper. baseDate is the day offsets
// are counted from. Hosts with scraping disabled contribute nothing.
func (b *JobGraphBuilder) Build(plans []HostMarkets, baseDate time.Time) *JobGraph {
	base := utils.TruncateDay(baseDate)
	graph := &JobGraph{}

	for _, plan := range plans {
		if plan.Host == nil || !plan.Host.ScrapingEnabled {
			continue
		}
		for _, market := range plan.Markets {
			b.buildMarket(graph, plan.Host.Code, market, base)
		}
	}
	return graph
}

func (b *JobGraphBuilder) buildMarket(graph *JobGraph, host string, market entity.ScraperMarket, base time.Time) {
	var scraperOrder []string
	scrapeIDs := make(map[string][]string)
	settings := make(map[string]entity.ScraperSettings)

	for offset := market.StartOffset; offset < market.StartOffset+market.NumberOfDays; offset++ {
		day := base.AddDate(0, 0, offset)
		for _, scraper := range market.ScrapersForDate(day) {
			task := newTask(entity.TaskScrape, host, market, scraper, &day)
			graph.Tasks = append(graph.Tasks, task)

			if _, seen := scrapeIDs[scraper.ScraperID]; !seen {
				scraperOrder = append(scraperOrder, scraper.ScraperID)
				settings[scraper.ScraperID] = scraper
			}
			scrapeIDs[scraper.ScraperID] = append(scrapeIDs[scraper.ScraperID], task.ID)
		}
	}

	if b.mode != PlanLocal {
		return
	}

	for _, scraperID := range scraperOrder {
		scraper := settings[scraperID]

		fareCopy := newTask(entity.TaskFareCopy, host, market, scraper, nil)
		fareCopy.DependsOn = scrapeIDs[scraperID]

		extract := newTask(entity.TaskExtractSchedule, host, market, scraper, nil)
		extract.DependsOn = []string{fareCopy.ID}

		graph.Tasks = append(graph.Tasks, fareCopy, extract)

		if !b.skipReoptimize {
			reopt := newTask(entity.TaskReoptimize, host, market, scraper, nil)
			reopt.DependsOn = []string{extract.ID}
			graph.Tasks = append(graph.Tasks, reopt)
		}
	}
}

func newTask(kind entity.TaskKind, host string, market entity.ScraperMarket, scraper entity.ScraperSettings, day *time.Time) *entity.ScheduleTask {
	task := &entity.ScheduleTask{
		Kind:             kind,
		HostCarrier:      host,
		Origin:           market.Origin,
		Destination:      market.Destination,
		Direction:        market.Direction,
		StayDuration:     market.StayDuration,
		ScraperID:        scraper.ScraperID,
		IncludedCarriers: scraper.IncludedCarriers,
		MaxStops:         scraper.MaxStops,
		MaxResults:       scraper.MaxResults,
		Currency:         scraper.Currency,
	}

	parts := []string{
		string(kind),
		host,
		strconv.FormatUint(uint64(market.ID), 10),
		market.Market(),
		market.Direction,
		strconv.Itoa(market.StayDuration),
		scraper.ScraperID,
	}
	if day != nil {
		d := *day
		task.DepartureDate = &d
		if market.StayDuration > 0 {
			ret := d.AddDate(0, 0, market.StayDuration)
			task.ReturnDate = &ret
		}
		parts = append(parts, d.Format(utils.DATE_LAYOUT))
	}
	task.ID = uuid.NewSHA1(taskNamespace, []byte(strings.Join(parts, "|"))).String()
	return task
}
