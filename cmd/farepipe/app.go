package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"fare-pipeline/internal/domain/repository"
	"fare-pipeline/internal/infrastructure/config"
	"fare-pipeline/internal/infrastructure/coordination"
	"fare-pipeline/internal/infrastructure/persistence"
	"fare-pipeline/internal/infrastructure/router"
	"fare-pipeline/internal/interface/queue"
	repo "fare-pipeline/internal/interface/repository"
	"fare-pipeline/internal/interface/scraper"
	"fare-pipeline/internal/usecase"
	"fare-pipeline/pkg/logger"
	"fare-pipeline/pkg/metrics"
)

// app owns the process-wide connections and builds use cases on top of them
type app struct {
	cfg     *config.Config
	log     logger.Logger
	metrics *metrics.Metrics

	mongo *mongo.Client
	db    *gorm.DB
	redis *redis.Client

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: metrics.NewMetrics("farepipe", prometheus.DefaultRegisterer),
	}

	log.Info("Connecting to MongoDB")
	mongoClient, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoUser, cfg.MongoPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	a.mongo = mongoClient
	a.closers = append(a.closers, func() error { return mongoClient.Disconnect(context.Background()) })

	log.Info("Connecting to PostgreSQL")
	db, err := persistence.NewPostgresDB(cfg.PostgresDSN)
	if err != nil {
		a.close()
		return nil, err
	}
	a.db = db
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	log.Info("Connecting to Redis", "addr", cfg.RedisAddr)
	redisClient, err := persistence.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		a.close()
		return nil, err
	}
	a.redis = redisClient
	a.closers = append(a.closers, redisClient.Close)

	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("Failed to close resource", "error", err)
		}
	}
	a.closers = nil
}

// extractor builds a fare extractor. lockWait is how long a run waits for another
// run of the same host to finish; 0 fails fast.
func (a *app) extractor(lockWait time.Duration) *usecase.FareExtractor {
	db := persistence.GetDatabase(a.mongo, a.cfg.MongoDB)
	locker := coordination.NewRedisLocker(a.redis, coordination.LockConfig{
		TTL:    a.cfg.LockTTL,
		Wait:   lockWait,
		Prefix: "farepipe:lock:",
	})

	return usecase.NewFareExtractor(
		repo.NewMongoRawFareRepository(db, a.cfg.RawFareCollection),
		repo.NewMongoFlightFareRecordRepository(db, a.cfg.FareRecordCollection),
		repo.NewGormRateRepository(a.db, a.cfg.ReferenceCurrency),
		locker,
		a.metrics,
		a.log,
		usecase.ExtractorConfig{
			BatchSize:    a.cfg.BatchSize,
			Lookback:     a.cfg.Lookback,
			SoldOutAfter: a.cfg.SoldOutAfter,
		},
	)
}

func (a *app) remoteQueue() (repository.RemoteQueue, error) {
	switch a.cfg.QueueBackend {
	case config.QueueKafka:
		q := queue.NewKafkaQueue(queue.KafkaConfig{Brokers: a.cfg.KafkaBrokers, Topic: a.cfg.KafkaTopic})
		a.closers = append(a.closers, q.Close)
		return q, nil
	case config.QueueRedis:
		return queue.NewRedisStreamQueue(a.redis, a.cfg.ScrapeStream, 0), nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", a.cfg.QueueBackend)
	}
}

func (a *app) dispatcher(mode usecase.PlanMode) (usecase.Dispatcher, error) {
	taskLog := repo.NewGormTaskLogRepository(a.db)

	if mode == usecase.PlanDistributed {
		q, err := a.remoteQueue()
		if err != nil {
			return nil, err
		}
		return usecase.NewRemoteDispatcher(q, taskLog, a.metrics, a.log, a.cfg.EnqueueTries, a.cfg.EnqueueBackoff), nil
	}

	balancer, err := usecase.NewServerBalancer(a.cfg.LoadBalancer, a.cfg.ScraperServers)
	if err != nil {
		return nil, err
	}
	client := scraper.NewHTTPScraperClient(a.cfg.ScrapeTimeout, a.cfg.ScraperToken, a.log)

	taskRouter := router.NewKindRouter(a.log)
	taskRouter.Register(usecase.NewScrapeTaskHandler(client, balancer, a.log))
	taskRouter.Register(usecase.NewFareCopyHandler(a.extractor(a.cfg.LockWait), a.cfg.ExtractWindow, a.log))
	taskRouter.Register(usecase.NewStageTaskHandler(client, balancer, a.log))

	workers := usecase.PoolSize(len(a.cfg.ScraperServers), a.cfg.JobsPerServer)
	return usecase.NewLocalDispatcher(taskRouter, taskLog, a.metrics, a.log, workers), nil
}

func (a *app) scheduleGenerator(mode usecase.PlanMode, skipReoptimize bool) (*usecase.ScheduleGenerator, error) {
	builder, err := usecase.NewJobGraphBuilder(mode, skipReoptimize)
	if err != nil {
		return nil, err
	}
	dispatcher, err := a.dispatcher(mode)
	if err != nil {
		return nil, err
	}
	return usecase.NewScheduleGenerator(
		repo.NewGormHostCarrierRepository(a.db),
		repo.NewGormMarketConfigRepository(a.db),
		builder,
		dispatcher,
		a.metrics,
		a.log,
	), nil
}

func (a *app) hostCarriers() repository.HostCarrierRepository {
	return repo.NewGormHostCarrierRepository(a.db)
}
