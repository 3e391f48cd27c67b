// internal/infrastructure/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Queue backends
const (
	QueueRedis = "redis"
	QueueKafka = "kafka"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string
	LogLevel   string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MongoDB
	MongoURI             string
	MongoDB              string
	MongoUser            string
	MongoPassword        string
	RawFareCollection    string
	FareRecordCollection string

	// Postgres
	PostgresDSN string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Distributed queue
	QueueBackend   string
	ScrapeStream   string
	KafkaBrokers   []string
	KafkaTopic     string
	EnqueueTries   int
	EnqueueBackoff time.Duration

	// Scraper fleet
	ScraperServers []string
	ScraperToken   string
	JobsPerServer  int
	ScrapeTimeout  time.Duration
	LoadBalancer   string
	SkipReoptimize bool

	// Extraction
	BatchSize         int
	Lookback          time.Duration
	SoldOutAfter      time.Duration
	ReferenceCurrency string
	LockTTL           time.Duration
	LockWait          time.Duration

	// Cron
	ScheduleCron  string
	ExtractCron   string
	ExtractWindow time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,

		MongoURI:             getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:              getEnv("MONGO_DB", "fares"),
		MongoUser:            getEnv("MONGO_USER", ""),
		MongoPassword:        getEnv("MONGO_PASSWORD", ""),
		RawFareCollection:    getEnv("RAW_FARE_COLLECTION", "scraped_fares"),
		FareRecordCollection: getEnv("FARE_RECORD_COLLECTION", "flight_fare_records"),

		PostgresDSN: getEnv("POSTGRES_DSN", "host=localhost user=postgres dbname=fares sslmode=disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		QueueBackend:   strings.ToLower(getEnv("QUEUE_BACKEND", QueueRedis)),
		ScrapeStream:   getEnv("SCRAPE_STREAM", "scrape-tasks"),
		KafkaBrokers:   getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "scrape-tasks"),
		EnqueueTries:   getEnvAsInt("ENQUEUE_TRIES", 3),
		EnqueueBackoff: getEnvAsDuration("ENQUEUE_BACKOFF", 500*time.Millisecond),

		ScraperServers: getEnvAsSlice("SCRAPER_SERVERS", nil),
		ScraperToken:   getEnv("SCRAPER_TOKEN", ""),
		JobsPerServer:  getEnvAsInt("JOBS_PER_SERVER", 2),
		ScrapeTimeout:  getEnvAsDuration("SCRAPE_TIMEOUT", 5*time.Minute),
		LoadBalancer:   getEnv("LOAD_BALANCER", "round_robin"),
		SkipReoptimize: getEnvAsBool("SKIP_REOPTIMIZE", false),

		BatchSize:         getEnvAsInt("BATCH_SIZE", 200),
		Lookback:          time.Duration(getEnvAsInt("LOOKBACK_HOURS", 36)) * time.Hour,
		SoldOutAfter:      time.Duration(getEnvAsFloat("SOLD_OUT_AFTER_HOURS", 48) * float64(time.Hour)),
		ReferenceCurrency: strings.ToUpper(getEnv("REFERENCE_CURRENCY", "USD")),
		LockTTL:           getEnvAsDuration("LOCK_TTL", 30*time.Minute),
		LockWait:          getEnvAsDuration("LOCK_WAIT", 10*time.Minute),

		ScheduleCron:  getEnv("SCHEDULE_CRON", "0 2 * * *"),
		ExtractCron:   getEnv("EXTRACT_CRON", "30 * * * *"),
		ExtractWindow: getEnvAsDuration("EXTRACT_WINDOW", 2*time.Hour),
	}

	return config, nil
}

// Validate rejects values no run can work with. Scraper servers are only required
// when needsServers is set, i.e. for local dispatch.
func (c *Config) Validate(needsServers bool) error {
	var errs []error
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize))
	}
	if c.Lookback <= 0 {
		errs = append(errs, fmt.Errorf("LOOKBACK_HOURS must be positive"))
	}
	if c.SoldOutAfter <= 0 {
		errs = append(errs, fmt.Errorf("SOLD_OUT_AFTER_HOURS must be positive"))
	}
	switch c.QueueBackend {
	case QueueRedis, QueueKafka:
	default:
		errs = append(errs, fmt.Errorf("unknown QUEUE_BACKEND %q", c.QueueBackend))
	}
	if c.QueueBackend == QueueKafka && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required for the kafka backend"))
	}
	if needsServers {
		if len(c.ScraperServers) == 0 {
			errs = append(errs, errors.New("SCRAPER_SERVERS is required for local dispatch"))
		}
		if c.JobsPerServer <= 0 {
			errs = append(errs, fmt.Errorf("JOBS_PER_SERVER must be positive, got %d", c.JobsPerServer))
		}
	}
	return errors.Join(errs...)
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// comma separated, blanks dropped
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
