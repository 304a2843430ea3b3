package orchestrator

import (
	"context"
	"errors"
	"strings"

	"saldo/internal/benefit/models"
	"saldo/internal/benefit/tracer"
	"saldo/internal/platform/privacy"
	"saldo/internal/sentinel"
	dErrors "saldo/pkg/domain-errors"
	"saldo/pkg/platform/audit"
	"saldo/pkg/requestcontext"
)

// LatestQuery serves the newest known payload for document and benefit
// without billing: the transient cache entry when one is live, else the
// most recent stored record. It never calls the external service and does
// not wait on the dispatch queue.
func (s *Service) LatestQuery(ctx context.Context, document, benefit, login string) (result *models.LatestResult, err error) {
	key := models.NewKey(document, benefit)
	login = strings.TrimSpace(login)

	ctx, span := s.tracer.Start(ctx, tracer.SpanLatestQuery,
		tracer.String(tracer.AttrDocumentHash, tracer.HashDocument(key.Document)),
		tracer.String(tracer.AttrBenefit, key.Benefit),
	)
	defer func() { span.End(err) }()

	if err := validateQuery(key, login); err != nil {
		return nil, err
	}

	if s.transient != nil {
		payload, err := s.transient.Get(ctx, key)
		switch {
		case err == nil:
			result = &models.LatestResult{
				Document: key.Document,
				Benefit:  key.Benefit,
				Payload:  payload,
				Source:   models.SourceTransient,
			}
			s.auditLatest(ctx, key, login, result.Source)
			return result, nil
		case !errors.Is(err, sentinel.ErrNotFound):
			s.logger.WarnContext(ctx, "transient cache read failed",
				"document_hash", privacy.HashDocument(key.Document),
				"error", err,
			)
		}
	}

	record, err := s.records.MostRecent(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "no query found for document and benefit")
		}
		return nil, dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to read query records")
	}
	recordedAt := record.RecordedAt
	result = &models.LatestResult{
		Document:   record.Document,
		Benefit:    record.Benefit,
		Payload:    record.Payload,
		Source:     models.SourceStore,
		RecordedAt: &recordedAt,
	}
	s.auditLatest(ctx, key, login, result.Source)
	return result, nil
}

func (s *Service) auditLatest(ctx context.Context, key models.Key, login string, source models.Source) {
	s.logger.InfoContext(ctx, "latest query served",
		"document_hash", privacy.HashDocument(key.Document),
		"benefit", key.Benefit,
		"login", login,
		"source", source,
	)
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Action:       audit.ActionLatestQueryFetched,
		Login:        login,
		DocumentHash: privacy.HashDocument(key.Document),
		Benefit:      key.Benefit,
		Source:       string(source),
		RequestID:    requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", audit.ActionLatestQueryFetched, "error", err)
	}
}

// CreditSummary sums every ledger row of login's user. A user without rows
// reports zeros.
func (s *Service) CreditSummary(ctx context.Context, login string) (summary models.CreditSummary, err error) {
	login = strings.TrimSpace(login)
	ctx, span := s.tracer.Start(ctx, tracer.SpanCreditSummary, tracer.String(tracer.AttrLogin, login))
	defer func() { span.End(err) }()

	if login == "" {
		return models.CreditSummary{}, dErrors.New(dErrors.CodeValidation, "login is required")
	}
	user, err := s.directory.ResolveUser(ctx, login)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.CreditSummary{}, dErrors.Wrap(err, dErrors.CodeUserNotFound, "user not found")
		}
		return models.CreditSummary{}, dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to resolve user")
	}
	summary, err = s.ledger.Summary(ctx, user.ID)
	if err != nil {
		return models.CreditSummary{}, dErrors.Wrap(err, dErrors.CodePersistenceFailure, "failed to sum credits")
	}
	return summary, nil
}
