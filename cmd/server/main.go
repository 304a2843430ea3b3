package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"saldo/internal/benefit/client"
	"saldo/internal/benefit/handler"
	benefitmetrics "saldo/internal/benefit/metrics"
	"saldo/internal/benefit/orchestrator"
	"saldo/internal/benefit/store/directory"
	"saldo/internal/benefit/store/ledger"
	"saldo/internal/benefit/store/records"
	"saldo/internal/benefit/store/transient"
	"saldo/internal/benefit/tracer"
	"saldo/internal/platform/config"
	"saldo/internal/platform/database"
	"saldo/internal/platform/health"
	"saldo/internal/platform/kafka/producer"
	"saldo/internal/platform/logger"
	platformmetrics "saldo/internal/platform/metrics"
	"saldo/internal/platform/redis"
	"saldo/internal/seeder"
	"saldo/pkg/platform/audit"
	"saldo/pkg/platform/audit/publisher"
	auditkafka "saldo/pkg/platform/audit/store/kafka"
	auditmemory "saldo/pkg/platform/audit/store/memory"
	auditpg "saldo/pkg/platform/audit/store/postgres"
	"saldo/pkg/platform/circuit"
	"saldo/pkg/platform/middleware/request"
)

const (
	maxBodyBytes    = 64 << 10
	shutdownTimeout = 30 * time.Second
	auditBuffer     = 1024
)

// stores groups the persistence backends picked at startup.
type stores struct {
	directory interface {
		orchestrator.Directory
		seeder.UserStore
	}
	ledger interface {
		orchestrator.Ledger
		seeder.LedgerStore
	}
	records   orchestrator.Records
	transient interface {
		orchestrator.TransientReader
		client.TransientCache
	}
	memTransient *transient.InMemoryCache
	audit        audit.Store
}

// infra holds the connections that need health checks and closing.
type infra struct {
	pool     *database.Pool
	redis    *redis.Client
	producer *producer.Producer
}

func (i *infra) close(log *slog.Logger) {
	if i.producer != nil {
		if err := i.producer.Close(); err != nil {
			log.Error("kafka producer close failed", "error", err)
		}
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Error("redis close failed", "error", err)
		}
	}
	if i.pool != nil {
		if err := i.pool.Close(); err != nil {
			log.Error("database close failed", "error", err)
		}
	}
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/benefit.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("initializing saldo",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"bill_cache_hits", cfg.BillCacheHits,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conns, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conns.close(log)

	platform := platformmetrics.New(prometheus.DefaultRegisterer)
	platform.SetBuildInfo(health.Version, cfg.Environment)
	platform.SetBackend("postgres", conns.pool != nil)
	platform.SetBackend("redis", conns.redis != nil)
	platform.SetBackend("kafka", conns.producer != nil)

	st := buildStores(cfg, conns)
	if cfg.SeedFile != "" {
		if err := seeder.New(st.directory, st.ledger, log).LoadFile(ctx, cfg.SeedFile); err != nil {
			return err
		}
	}

	auditor := publisher.NewPublisher(st.audit,
		publisher.WithAsyncBuffer(auditBuffer),
		publisher.WithPublisherLogger(log),
	)
	defer auditor.Close()

	m := benefitmetrics.New()
	tr := tracer.NewOTel()

	clientOpts := []client.Option{
		client.WithTimeout(cfg.BalanceAPI.Timeout),
		client.WithPacing(cfg.BalanceAPI.Pacing),
		client.WithBreaker(circuit.New("balance-api")),
		client.WithTransientCache(st.transient),
		client.WithMetrics(m),
		client.WithTracer(tr),
		client.WithLogger(log),
	}
	if cfg.BalanceAPI.Rate > 0 {
		clientOpts = append(clientOpts, client.WithRateLimit(rate.NewLimiter(rate.Limit(cfg.BalanceAPI.Rate), 1)))
	}
	if cfg.BalanceAPI.Token == "" {
		log.Warn("BALANCE_API_TOKEN is not set; every external lookup will fail")
	}
	fetcher := client.New(cfg.BalanceAPI.URL, cfg.BalanceAPI.Token, clientOpts...)

	svc := orchestrator.New(st.directory, st.ledger, st.records, fetcher,
		orchestrator.WithTransient(st.transient),
		orchestrator.WithAuditor(auditor),
		orchestrator.WithMetrics(m),
		orchestrator.WithTracer(tr),
		orchestrator.WithLogger(log),
		orchestrator.WithCacheValidity(cfg.Cache.Validity),
		orchestrator.WithCacheHitBilling(cfg.BillCacheHits),
	)

	hh := health.New(cfg.Environment)
	if conns.pool != nil {
		hh.RegisterCheck("postgres", conns.pool.Health)
	}
	if conns.redis != nil {
		hh.RegisterCheck("redis", conns.redis.Health)
	}
	if conns.producer != nil {
		// Audit events buffer in the publisher while the broker is away.
		hh.RegisterOptionalCheck("kafka", conns.producer.Health)
	}
	hh.SetDetails(func() map[string]int {
		st := svc.QueueStats()
		return map[string]int{
			"queue_active_keys":   st.ActiveKeys,
			"queue_waiting_tasks": st.Waiting,
		}
	})

	router := newRouter(log, handler.New(svc, log), hh)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Long enough to cover a full retry cycle against the balance API.
		WriteTimeout: 3*cfg.BalanceAPI.Timeout + time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		svc.RunQueueSampler(gctx, cfg.Queue.StatsInterval)
		return nil
	})
	g.Go(func() error {
		runStatsLoop(gctx, cfg.Queue.StatsInterval, platform, conns, st.memTransient)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		if err := svc.Drain(shutdownCtx); err != nil {
			log.Warn("queries still running at shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func connect(ctx context.Context, cfg config.Server, log *slog.Logger) (*infra, error) {
	in := &infra{}

	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.Database.URL
	pool, err := database.New(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	in.pool = pool
	if pool != nil {
		if err := database.Migrate(ctx, pool.DB()); err != nil {
			in.close(log)
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		log.Info("postgres stores enabled")
	} else {
		log.Info("DATABASE_URL not set; using in-memory stores")
	}

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.close(log)
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	in.redis = rc
	if rc == nil {
		log.Info("REDIS_URL not set; using in-memory transient cache")
	}

	if cfg.Kafka.Brokers != "" {
		p, err := producer.New(producer.DefaultConfig(cfg.Kafka.Brokers), log)
		if err != nil {
			in.close(log)
			return nil, fmt.Errorf("connect kafka: %w", err)
		}
		in.producer = p
	}
	return in, nil
}

func buildStores(cfg config.Server, in *infra) stores {
	var st stores
	if in.pool != nil {
		db := in.pool.DB()
		st.directory = directory.NewPostgres(db)
		st.ledger = ledger.NewPostgres(db)
		st.records = records.NewPostgres(db)
	} else {
		st.directory = directory.NewInMemory()
		st.ledger = ledger.NewInMemory()
		st.records = records.NewInMemory()
	}

	if in.redis != nil {
		st.transient = transient.NewRedis(in.redis.Client, cfg.Cache.TransientTTL)
	} else {
		st.memTransient = transient.NewInMemory(cfg.Cache.TransientTTL, time.Now)
		st.transient = st.memTransient
	}

	switch {
	case in.producer != nil:
		st.audit = auditkafka.New(in.producer, cfg.Kafka.AuditTopic)
	case in.pool != nil:
		st.audit = auditpg.New(in.pool.DB())
	default:
		st.audit = auditmemory.NewInMemoryStore()
	}
	return st
}

func newRouter(log *slog.Logger, h *handler.Handler, hh *health.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(request.ClientIP)
	r.Use(request.Logger(log))
	r.Use(request.Latency(request.NewMetrics(), handler.RoutePattern))

	hh.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(request.BodyLimit(maxBodyBytes))
		r.Use(request.ContentTypeJSON)
		h.Register(r)
	})
	return r
}

// runStatsLoop samples pool gauges and evicts expired in-memory cache entries.
func runStatsLoop(ctx context.Context, interval time.Duration, m *platformmetrics.Metrics, in *infra, mem *transient.InMemoryCache) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if in.pool != nil {
				m.RecordDBStats(in.pool.Stats())
			}
			if in.redis != nil {
				in.redis.RecordPoolStats()
			}
			if mem != nil {
				mem.Sweep()
			}
		}
	}
}
