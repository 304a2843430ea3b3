package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultBalanceAPIURL is the production balance lookup endpoint.
const DefaultBalanceAPIURL = "https://api.ajin.io/v3/query-inss-balances/finder/await"

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string
	SeedFile    string

	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	BalanceAPI BalanceAPIConfig
	Cache      CacheConfig
	Queue      QueueConfig

	// BillCacheHits charges a credit when a cached record is duplicated for
	// a new user, not only for fresh external fetches.
	BillCacheHits bool
}

// DatabaseConfig selects the relational store. An empty URL keeps all
// stores in memory.
type DatabaseConfig struct {
	URL string
}

// RedisConfig selects the transient cache backend. An empty URL keeps the
// cache in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig selects the audit sink. Empty brokers keep audit events in memory.
type KafkaConfig struct {
	Brokers    string
	AuditTopic string
}

// BalanceAPIConfig configures the external balance lookup service.
type BalanceAPIConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
	// Pacing is the pause after every call, successful or not.
	Pacing time.Duration
	// Rate caps calls per second across all keys; 0 disables the limiter.
	Rate float64
}

// CacheConfig holds the two cache windows.
type CacheConfig struct {
	Validity     time.Duration
	TransientTTL time.Duration
}

// QueueConfig tunes the per-key dispatch queue.
type QueueConfig struct {
	StatsInterval time.Duration
}

// Default returns the configuration used when no environment is set.
func Default() Server {
	return Server{
		Addr:        ":8080",
		Environment: "development",
		LogLevel:    "info",
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{AuditTopic: "saldo.audit"},
		BalanceAPI: BalanceAPIConfig{
			URL:     DefaultBalanceAPIURL,
			Timeout: 60 * time.Second,
			Pacing:  3 * time.Second,
		},
		Cache: CacheConfig{
			Validity:     30 * 24 * time.Hour,
			TransientTTL: 5 * time.Minute,
		},
		Queue:         QueueConfig{StatsInterval: time.Minute},
		BillCacheHits: true,
	}
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Server, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		v, ok := lookup(key)
		if !ok || v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}

	str("SALDO_ADDR", &cfg.Addr)
	str("ENVIRONMENT", &cfg.Environment)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("SEED_FILE", &cfg.SeedFile)
	str("DATABASE_URL", &cfg.Database.URL)
	str("REDIS_URL", &cfg.Redis.URL)
	str("KAFKA_BROKERS", &cfg.Kafka.Brokers)
	str("AUDIT_TOPIC", &cfg.Kafka.AuditTopic)
	str("BALANCE_API_URL", &cfg.BalanceAPI.URL)
	str("BALANCE_API_TOKEN", &cfg.BalanceAPI.Token)
	dur("BALANCE_API_TIMEOUT", &cfg.BalanceAPI.Timeout)
	dur("BALANCE_API_PACING", &cfg.BalanceAPI.Pacing)
	dur("CACHE_VALIDITY", &cfg.Cache.Validity)
	dur("TRANSIENT_CACHE_TTL", &cfg.Cache.TransientTTL)
	dur("QUEUE_JANITOR_INTERVAL", &cfg.Queue.StatsInterval)

	if v, ok := lookup("BALANCE_API_RATE"); ok && v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("BALANCE_API_RATE: %w", err))
		} else {
			cfg.BalanceAPI.Rate = rate
		}
	}
	if v, ok := lookup("BILL_CACHE_HITS"); ok && v != "" {
		bill, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("BILL_CACHE_HITS: %w", err))
		} else {
			cfg.BillCacheHits = bill
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Server{}, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects configurations the service cannot run with.
func (s Server) Validate() error {
	var errs []error
	if s.Cache.Validity <= 0 {
		errs = append(errs, errors.New("cache validity must be positive"))
	}
	if s.Cache.TransientTTL <= 0 {
		errs = append(errs, errors.New("transient cache ttl must be positive"))
	}
	if s.BalanceAPI.Timeout <= 0 {
		errs = append(errs, errors.New("balance api timeout must be positive"))
	}
	if s.BalanceAPI.Pacing < 0 {
		errs = append(errs, errors.New("balance api pacing must not be negative"))
	}
	if s.BalanceAPI.Rate < 0 {
		errs = append(errs, errors.New("balance api rate must not be negative"))
	}
	if s.BalanceAPI.URL == "" {
		errs = append(errs, errors.New("balance api url is required"))
	}
	if s.Queue.StatsInterval <= 0 {
		errs = append(errs, errors.New("queue stats interval must be positive"))
	}
	return errors.Join(errs...)
}
