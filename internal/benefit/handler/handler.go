package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"saldo/internal/benefit/models"
	"saldo/pkg/platform/httputil"
	"saldo/pkg/requestcontext"
)

// Service defines the balance query operations exposed over HTTP.
type Service interface {
	SubmitQuery(ctx context.Context, document, benefit, login string) (*models.QueryResult, error)
	LatestQuery(ctx context.Context, document, benefit, login string) (*models.LatestResult, error)
	CreditSummary(ctx context.Context, login string) (models.CreditSummary, error)
}

// Handler handles balance query endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
}

// New creates a new balance query Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// Register registers the balance query routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/queries", h.handleSubmitQuery)
	r.Get("/api/queries/latest", h.handleLatestQuery)
	r.Get("/api/credits/{login}", h.handleCreditSummary)
}

// RoutePattern returns the matched chi route for latency labels, falling
// back to the raw path for unmatched requests.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func (h *Handler) handleSubmitQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SubmitQueryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.SubmitQuery(ctx, req.Document, req.Benefit, req.Login)
	if err != nil {
		h.logger.WarnContext(ctx, "balance query failed",
			"request_id", requestID,
			"login", req.Login,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toQueryResponse(result))
}

func (h *Handler) handleLatestQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	q := r.URL.Query()
	req := &LatestQueryRequest{
		Document: q.Get("document"),
		Benefit:  q.Get("benefit"),
		Login:    q.Get("login"),
	}
	if !httputil.Prepare(w, req, h.logger, ctx, requestID) {
		return
	}

	result, err := h.service.LatestQuery(ctx, req.Document, req.Benefit, req.Login)
	if err != nil {
		h.logger.WarnContext(ctx, "latest query failed",
			"request_id", requestID,
			"login", req.Login,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCreditSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req := &CreditSummaryRequest{Login: chi.URLParam(r, "login")}
	if !httputil.Prepare(w, req, h.logger, ctx, requestID) {
		return
	}

	summary, err := h.service.CreditSummary(ctx, req.Login)
	if err != nil {
		h.logger.WarnContext(ctx, "credit summary failed",
			"request_id", requestID,
			"login", req.Login,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &CreditSummaryResponse{
		Login:          req.Login,
		TotalLoaded:    summary.TotalLoaded,
		AvailableLimit: summary.AvailableLimit,
		QueriesMade:    summary.QueriesMade,
	})
}
