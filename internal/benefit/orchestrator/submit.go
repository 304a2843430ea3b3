package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"saldo/internal/benefit/dispatch"
	"saldo/internal/benefit/models"
	"saldo/internal/benefit/tracer"
	"saldo/internal/platform/privacy"
	"saldo/internal/sentinel"
	dErrors "saldo/pkg/domain-errors"
	"saldo/pkg/platform/audit"
	"saldo/pkg/requestcontext"
)

type state string

const (
	stateReceived       state = "RECEIVED"
	stateResolveUser    state = "RESOLVE_USER"
	stateCheckCredit    state = "CHECK_CREDIT"
	stateCheckCache     state = "CHECK_CACHE"
	stateCacheDuplicate state = "CACHE_DUPLICATE"
	stateExternalFetch  state = "EXTERNAL_FETCH"
	statePersist        state = "PERSIST"
	stateDebit          state = "DEBIT"
	stateRespond        state = "RESPOND"
)

// queryRun carries one orchestration through the state machine.
type queryRun struct {
	key    models.Key
	login  string
	user   models.User
	state  state
	source models.Source
	span   tracer.Span
}

func (r *queryRun) enter(st state) {
	r.state = st
	r.span.AddEvent(tracer.EventStateEntered, tracer.String(tracer.AttrState, string(st)))
}

// SubmitQuery answers a balance query for document and benefit on behalf of
// login. Queries for the same normalized key run one at a time in arrival
// order. If ctx ends while the query waits or runs, the query still
// completes but the caller gets a timeout error.
func (s *Service) SubmitQuery(ctx context.Context, document, benefit, login string) (*models.QueryResult, error) {
	key := models.NewKey(document, benefit)
	login = strings.TrimSpace(login)

	ctx, span := s.tracer.Start(ctx, tracer.SpanSubmitQuery,
		tracer.String(tracer.AttrDocumentHash, tracer.HashDocument(key.Document)),
		tracer.String(tracer.AttrBenefit, key.Benefit),
		tracer.String(tracer.AttrLogin, login),
	)

	if err := validateQuery(key, login); err != nil {
		s.complete(ctx, &queryRun{key: key, login: login, state: stateReceived, span: span}, s.now(), err)
		span.End(err)
		return nil, err
	}

	result, err := dispatch.Do(ctx, s.queue, key.String(), func(ctx context.Context) (*models.QueryResult, error) {
		run := &queryRun{key: key, login: login, state: stateReceived, span: span}
		start := s.now()
		res, err := s.execute(ctx, run)
		s.complete(ctx, run, start, err)
		return res, err
	})
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		err = dErrors.Wrap(err, dErrors.CodeTimeout, "request ended before the query finished")
	}
	span.End(err)
	return result, err
}

func validateQuery(key models.Key, login string) error {
	switch {
	case key.Document == "":
		return dErrors.New(dErrors.CodeValidation, "document is required")
	case key.Benefit == "":
		return dErrors.New(dErrors.CodeValidation, "benefit is required")
	case login == "":
		return dErrors.New(dErrors.CodeValidation, "login is required")
	}
	return nil
}

func (s *Service) execute(ctx context.Context, run *queryRun) (*models.QueryResult, error) {
	run.enter(stateResolveUser)
	user, err := s.directory.ResolveUser(ctx, run.login)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeUserNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to resolve user")
	}
	run.user = user

	run.enter(stateCheckCredit)
	current, err := s.ledger.CurrentBalance(ctx, user.ID)
	if err != nil {
		return nil, ledgerError(err, "failed to read credit balance")
	}

	run.enter(stateCheckCache)
	now := s.now()
	var (
		record   models.QueryRecord
		billable bool
	)
	cached, hit, err := s.lookupCache(ctx, run.key, now)
	if err != nil {
		return nil, err
	}
	if hit {
		run.enter(stateCacheDuplicate)
		run.source = models.SourceCache
		billable = s.billCacheHits
		// A duplicate nobody pays for would restart the validity window.
		if billable && current.AvailableLimit <= 0 {
			s.metrics.RecordDebit("insufficient")
			return nil, dErrors.Wrap(sentinel.ErrInsufficientCredit, dErrors.CodeInsufficientCredit, "insufficient credit")
		}
		record = cached.DuplicateFor(user.ID, now)
	} else {
		run.enter(stateExternalFetch)
		run.source = models.SourceExternal
		payload, err := s.fetcher.Fetch(ctx, run.key)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeExternalUnavailable, "balance service unavailable, try again later")
		}
		record = models.NewRecord(run.key, user.ID, payload, s.now())
		billable = true
	}

	run.enter(statePersist)
	stored, err := s.records.Append(ctx, record)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to store query record")
	}
	if !stored.Valid() {
		return nil, dErrors.New(dErrors.CodeUnmatchedIdentity, "no beneficiary matched the document and benefit")
	}

	run.enter(stateDebit)
	balance, err := s.charge(ctx, user, billable)
	if err != nil {
		return nil, err
	}

	run.enter(stateRespond)
	return &models.QueryResult{
		Record:         stored,
		AvailableLimit: balance.AvailableLimit,
		QueriesMade:    balance.QueriesMade,
	}, nil
}

// lookupCache reports whether the most recent record for key can be reused
// at now. Invalid or expired records never can.
func (s *Service) lookupCache(ctx context.Context, key models.Key, now time.Time) (models.QueryRecord, bool, error) {
	latest, err := s.records.MostRecent(ctx, key)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		s.metrics.RecordCacheLookup("miss")
		return models.QueryRecord{}, false, nil
	case err != nil:
		return models.QueryRecord{}, false, dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to read query records")
	case !latest.Valid():
		s.metrics.RecordCacheLookup("invalid")
		return models.QueryRecord{}, false, nil
	case !latest.UsableAt(now, s.cacheValidity):
		s.metrics.RecordCacheLookup("expired")
		return models.QueryRecord{}, false, nil
	}
	s.metrics.RecordCacheLookup("hit")
	return latest, true, nil
}

func (s *Service) charge(ctx context.Context, user models.User, billable bool) (models.Balance, error) {
	if !billable {
		s.metrics.RecordDebit("skipped")
		bal, err := s.ledger.CurrentBalance(ctx, user.ID)
		if err != nil {
			return models.Balance{}, ledgerError(err, "failed to read credit balance")
		}
		return bal, nil
	}
	bal, err := s.ledger.Debit(ctx, user.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrInsufficientCredit) {
			s.metrics.RecordDebit("insufficient")
		} else {
			s.metrics.RecordDebit("error")
		}
		return models.Balance{}, ledgerError(err, "failed to debit credit")
	}
	s.metrics.RecordDebit("ok")
	return bal, nil
}

func ledgerError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNoRelationship):
		return dErrors.Wrap(err, dErrors.CodeNoCreditRelationship, "no credit relationship established for user")
	case errors.Is(err, sentinel.ErrInsufficientCredit):
		return dErrors.Wrap(err, dErrors.CodeInsufficientCredit, "insufficient credit")
	default:
		return dErrors.Wrap(err, dErrors.CodePersistenceFailure, msg)
	}
}

// complete logs, measures and audits a terminal outcome.
func (s *Service) complete(ctx context.Context, run *queryRun, start time.Time, err error) {
	outcome, action := outcomeOf(err)
	source := string(run.source)
	if source == "" {
		source = "none"
	}
	elapsed := s.now().Sub(start)
	s.metrics.RecordQuery(outcome, source, elapsed.Seconds())

	run.span.SetAttributes(
		tracer.String(tracer.AttrOutcome, outcome),
		tracer.String(tracer.AttrState, string(run.state)),
		tracer.Bool(tracer.AttrCacheHit, run.source == models.SourceCache),
	)

	attrs := []any{
		"document_hash", privacy.HashDocument(run.key.Document),
		"document", privacy.MaskDocument(run.key.Document),
		"benefit", run.key.Benefit,
		"login", run.login,
		"outcome", outcome,
		"state", run.state,
		"source", source,
		"duration_ms", elapsed.Milliseconds(),
	}
	if err != nil {
		s.logger.WarnContext(ctx, "query failed", append(attrs, "code", dErrors.CodeOf(err), "error", err)...)
	} else {
		s.logger.InfoContext(ctx, "query completed", attrs...)
	}

	if s.auditor == nil {
		return
	}
	event := audit.Event{
		Action:       action,
		Login:        run.login,
		DocumentHash: privacy.HashDocument(run.key.Document),
		Benefit:      run.key.Benefit,
		Source:       string(run.source),
		RequestID:    requestcontext.RequestID(ctx),
	}
	if !run.user.ID.IsNil() {
		event.UserID = run.user.ID.String()
	}
	if err != nil {
		event.Reason = string(dErrors.CodeOf(err))
	}
	if auditErr := s.auditor.Emit(ctx, event); auditErr != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", action, "error", auditErr)
		return
	}
	run.span.AddEvent(tracer.EventAuditEmitted, tracer.String("action", string(action)))
}

func outcomeOf(err error) (string, audit.Action) {
	if err == nil {
		return "served", audit.ActionQueryServed
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeUnmatchedIdentity:
		return "unmatched", audit.ActionQueryUnmatched
	case dErrors.CodeExternalUnavailable:
		return "unavailable", audit.ActionQueryUnavailable
	case dErrors.CodePersistenceFailure, dErrors.CodeInternal:
		return "failed", audit.ActionQueryFailed
	default:
		return "rejected", audit.ActionQueryRejected
	}
}
