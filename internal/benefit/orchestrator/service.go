// Package orchestrator answers balance queries. For one (document, benefit)
// key it serves a cached record or performs a billed external lookup, and
// it charges the requesting user exactly once per billable outcome.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"saldo/internal/benefit/dispatch"
	"saldo/internal/benefit/metrics"
	"saldo/internal/benefit/models"
	"saldo/internal/benefit/tracer"
	id "saldo/pkg/domain"
	"saldo/pkg/platform/audit"
)

// DefaultCacheValidity is how long a valid record can satisfy new queries.
const DefaultCacheValidity = 30 * 24 * time.Hour

// Directory resolves operator logins.
// ResolveUser returns sentinel.ErrNotFound for unknown logins.
type Directory interface {
	ResolveUser(ctx context.Context, login string) (models.User, error)
}

// Ledger is the credit ledger.
// CurrentBalance and Debit return sentinel.ErrNoRelationship when the user
// has no rows; Debit returns sentinel.ErrInsufficientCredit at zero balance
// and must be atomic per user.
type Ledger interface {
	CurrentBalance(ctx context.Context, userID id.UserID) (models.Balance, error)
	Debit(ctx context.Context, userID id.UserID) (models.Balance, error)
	Summary(ctx context.Context, userID id.UserID) (models.CreditSummary, error)
}

// Records is the append-only query log.
// MostRecent returns sentinel.ErrNotFound when the key has no records.
type Records interface {
	Append(ctx context.Context, record models.QueryRecord) (models.QueryRecord, error)
	MostRecent(ctx context.Context, key models.Key) (models.QueryRecord, error)
}

// Fetcher performs the billed external lookup. An unmatched answer is a
// payload with an empty name and a nil error; exhausted retries wrap
// sentinel.ErrUnavailable.
type Fetcher interface {
	Fetch(ctx context.Context, key models.Key) (models.Payload, error)
}

// TransientReader reads the short-lived payload cache.
type TransientReader interface {
	Get(ctx context.Context, key models.Key) (models.Payload, error)
}

// Auditor receives one event per terminal outcome.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the query orchestrator.
type Service struct {
	directory     Directory
	ledger        Ledger
	records       Records
	fetcher       Fetcher
	transient     TransientReader
	auditor       Auditor
	queue         *dispatch.Queue
	metrics       *metrics.Metrics
	tracer        tracer.Tracer
	logger        *slog.Logger
	now           func() time.Time
	cacheValidity time.Duration
	billCacheHits bool
}

// Option configures a Service.
type Option func(*Service)

// WithTransient enables the latest-query passthrough's transient lookup.
func WithTransient(t TransientReader) Option {
	return func(s *Service) {
		s.transient = t
	}
}

// WithAuditor sets where terminal outcomes are reported.
func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

// WithQueue replaces the dispatch queue.
func WithQueue(q *dispatch.Queue) Option {
	return func(s *Service) {
		if q != nil {
			s.queue = q
		}
	}
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer for the service.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithLogger sets the logger instance for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCacheValidity sets how long a valid record stays reusable.
// Non-positive values keep the 30 day default.
func WithCacheValidity(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.cacheValidity = d
		}
	}
}

// WithCacheHitBilling controls whether a cache duplicate consumes a credit.
// Default is true.
func WithCacheHitBilling(bill bool) Option {
	return func(s *Service) {
		s.billCacheHits = bill
	}
}

// New creates the orchestrator over its collaborators.
func New(directory Directory, ledger Ledger, records Records, fetcher Fetcher, opts ...Option) *Service {
	s := &Service{
		directory:     directory,
		ledger:        ledger,
		records:       records,
		fetcher:       fetcher,
		tracer:        tracer.NewNoop(),
		logger:        slog.Default(),
		now:           time.Now,
		cacheValidity: DefaultCacheValidity,
		billCacheHits: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.queue == nil {
		s.queue = dispatch.New(dispatch.WithLogger(s.logger))
	}
	return s
}

// RunQueueSampler publishes dispatch queue occupancy every interval until
// ctx ends.
func (s *Service) RunQueueSampler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := s.queue.Stats()
			s.metrics.SetQueue(st.ActiveKeys, st.Waiting)
		}
	}
}

// Drain waits for every accepted query to finish or for ctx to end.
func (s *Service) Drain(ctx context.Context) error {
	return s.queue.Wait(ctx)
}

// QueueStats reports the dispatch queue occupancy.
func (s *Service) QueueStats() dispatch.Stats {
	return s.queue.Stats()
}
