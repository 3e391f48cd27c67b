package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"fare-pipeline/internal/domain/entity"
	"fare-pipeline/internal/domain/repository"
	"fare-pipeline/pkg/logger"
)

var testLogger = logger.NewNopLogger()

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func tsPtr(s string) *time.Time {
	t := ts(s)
	return &t
}

type sliceCursor struct {
	bundles []*entity.ScrapedFareBundle
	bad     map[int]bool
	pos     int
}

func (c *sliceCursor) Next(ctx context.Context) bool {
	c.pos++
	return c.pos <= len(c.bundles)
}

func (c *sliceCursor) Decode(bundle *entity.ScrapedFareBundle) error {
	if c.bad[c.pos-1] {
		return errors.New("corrupt document")
	}
	*bundle = *c.bundles[c.pos-1]
	bundle.Fares = append([]entity.FareObservation(nil), c.bundles[c.pos-1].Fares...)
	return nil
}

func (c *sliceCursor) Err() error                      { return nil }
func (c *sliceCursor) Close(ctx context.Context) error { return nil }

type fakeRawRepo struct {
	bundles []*entity.ScrapedFareBundle
	bad     map[int]bool
	queries []repository.RawFareQuery
}

func (r *fakeRawRepo) Find(ctx context.Context, query repository.RawFareQuery) (repository.BundleCursor, error) {
	r.queries = append(r.queries, query)
	return &sliceCursor{bundles: r.bundles, bad: r.bad}, nil
}

type fakeRecordRepo struct {
	mu      sync.Mutex
	records map[string]*entity.FlightFareRecord
	bulks   [][]*entity.FlightFareUpdate
	finds   int
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: make(map[string]*entity.FlightFareRecord)}
}

func (r *fakeRecordRepo) FindWithRecentHistory(ctx context.Context, flightKey string, since time.Time) (*entity.FlightFareRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++

	rec, ok := r.records[flightKey]
	if !ok {
		return nil, nil
	}
	out := *rec
	out.HistoricalFares = nil
	for _, h := range rec.HistoricalFares {
		if !h.ScrapedAt.Before(since) {
			out.HistoricalFares = append(out.HistoricalFares, h)
		}
	}
	return &out, nil
}

func (r *fakeRecordRepo) BulkUpsert(ctx context.Context, updates []*entity.FlightFareUpdate) (repository.BulkWriteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bulks = append(r.bulks, updates)

	var result repository.BulkWriteResult
	for _, u := range updates {
		rec := *u.Record
		var kept []entity.HistoricalFare
		if existing, ok := r.records[rec.FlightKey]; ok {
			for _, h := range existing.HistoricalFares {
				if h.ScrapedAt.Before(u.WindowStart) {
					kept = append(kept, h)
				}
			}
			result.Updated++
		} else {
			result.Inserted++
		}
		rec.HistoricalFares = append(kept, u.MergedWindow...)
		r.records[rec.FlightKey] = &rec
	}
	return result, nil
}

type fakeRateRepo struct {
	rates entity.RoundTripRateMap
	table *entity.CurrencyTable
}

func (r *fakeRateRepo) RoundTripRates(ctx context.Context, host string) (entity.RoundTripRateMap, error) {
	return r.rates, nil
}

func (r *fakeRateRepo) CurrencyTable(ctx context.Context, host string) (*entity.CurrencyTable, error) {
	return r.table, nil
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired []string
}

func (l *fakeLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return nil, errors.New("lock held")
	}
	l.held[key] = true
	l.acquired = append(l.acquired, key)
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, nil
}

type fakeScraperClient struct {
	mu      sync.Mutex
	fail    map[string]bool // task id -> fail
	servers []string
	scraped []string
	stages  []entity.TaskKind
}

func (c *fakeScraperClient) Scrape(ctx context.Context, server string, task *entity.ScheduleTask) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.servers = append(c.servers, server)
	if c.fail[task.ID] {
		return errors.New("connection reset")
	}
	c.scraped = append(c.scraped, task.ID)
	return nil
}

func (c *fakeScraperClient) RunStage(ctx context.Context, server string, task *entity.ScheduleTask) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stages = append(c.stages, task.Kind)
	return nil
}

type fakeQueue struct {
	failures int // first n sends fail
	sent     [][]byte
	calls    []string
}

func (q *fakeQueue) Send(ctx context.Context, body []byte) error {
	q.calls = append(q.calls, "send")
	if q.failures > 0 {
		q.failures--
		return errors.New("throttled")
	}
	q.sent = append(q.sent, body)
	return nil
}

func (q *fakeQueue) PurgeAll(ctx context.Context) error {
	q.calls = append(q.calls, "purge")
	return nil
}

func (q *fakeQueue) Name() string { return "scrape-tasks" }

type fakeTaskLog struct {
	mu      sync.Mutex
	entries map[string]*entity.TaskLogEntry
}

func newFakeTaskLog() *fakeTaskLog {
	return &fakeTaskLog{entries: make(map[string]*entity.TaskLogEntry)}
}

func (l *fakeTaskLog) Create(ctx context.Context, entry *entity.TaskLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := *entry
	l.entries[entry.TaskID] = &e
	return nil
}

func (l *fakeTaskLog) UpdateStatus(ctx context.Context, taskID, status, detail string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[taskID]; ok {
		e.Status = status
		e.Detail = detail
	}
	return nil
}

func (l *fakeTaskLog) GetByTaskID(ctx context.Context, taskID string) (*entity.TaskLogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[taskID], nil
}

type fakeHostRepo struct {
	hosts []*entity.HostCarrier
}

func (r *fakeHostRepo) GetByCode(ctx context.Context, code string) (*entity.HostCarrier, error) {
	for _, h := range r.hosts {
		if h.Code == code {
			return h, nil
		}
	}
	return nil, nil
}

func (r *fakeHostRepo) ListScrapingEnabled(ctx context.Context) ([]*entity.HostCarrier, error) {
	var out []*entity.HostCarrier
	for _, h := range r.hosts {
		if h.ScrapingEnabled {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeMarketRepo struct {
	markets map[string][]entity.ScraperMarket
}

func (r *fakeMarketRepo) ListMarkets(ctx context.Context, host string) ([]entity.ScraperMarket, error) {
	return r.markets[host], nil
}

type mapRouter struct {
	handlers []TaskHandler
}

func (r *mapRouter) Register(h TaskHandler) { r.handlers = append(r.handlers, h) }

func (r *mapRouter) GetHandler(kind entity.TaskKind) TaskHandler {
	for _, h := range r.handlers {
		if h.CanHandle(kind) {
			return h
		}
	}
	return nil
}
