package handler

import (
	"time"

	"saldo/internal/benefit/models"
)

// RecordResponse is a stored query record as returned to clients.
type RecordResponse struct {
	ID         string         `json:"id"`
	Document   string         `json:"document"`
	Benefit    string         `json:"benefit"`
	UserID     string         `json:"user_id"`
	Payload    models.Payload `json:"payload"`
	SourceFile string         `json:"source_file"`
	RecordedAt time.Time      `json:"recorded_at"`
}

// QueryResponse is the body of a successful POST /api/queries.
type QueryResponse struct {
	Record         RecordResponse `json:"record"`
	AvailableLimit int            `json:"available_limit"`
	QueriesMade    int            `json:"queries_made"`
}

// CreditSummaryResponse is the body of GET /api/credits/{login}.
type CreditSummaryResponse struct {
	Login          string `json:"login"`
	TotalLoaded    int    `json:"total_loaded"`
	AvailableLimit int    `json:"available_limit"`
	QueriesMade    int    `json:"queries_made"`
}

func toQueryResponse(res *models.QueryResult) *QueryResponse {
	rec := res.Record
	return &QueryResponse{
		Record: RecordResponse{
			ID:         rec.ID.String(),
			Document:   rec.Document,
			Benefit:    rec.Benefit,
			UserID:     rec.UserID.String(),
			Payload:    rec.Payload,
			SourceFile: rec.SourceFile,
			RecordedAt: rec.RecordedAt,
		},
		AvailableLimit: res.AvailableLimit,
		QueriesMade:    res.QueriesMade,
	}
}
