// Package audit records the terminal outcome of every balance query.
package audit

import (
	"context"
	"time"
)

// Event is emitted once per query when it reaches a terminal state. Documents
// never travel raw: DocumentHash carries a privacy fingerprint instead.
type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	Action       Action    `json:"action"`
	Login        string    `json:"login"`
	UserID       string    `json:"user_id,omitempty"`
	DocumentHash string    `json:"document_hash"`
	Benefit      string    `json:"benefit"`
	Source       string    `json:"source,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
}

// Action names a terminal query outcome.
type Action string

const (
	ActionQueryServed        Action = "query_served"
	ActionQueryRejected      Action = "query_rejected"
	ActionQueryUnmatched     Action = "query_unmatched"
	ActionQueryUnavailable   Action = "query_unavailable"
	ActionQueryFailed        Action = "query_failed"
	ActionLatestQueryFetched Action = "latest_query_fetched"
)

// Store persists audit events. Implementations must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
