// Package models holds the benefit query domain types shared by the
// dispatch queue, the stores, the external client and the orchestrator.
package models

import (
	"strings"
	"time"

	id "saldo/pkg/domain"
)

// SourceFile tags every record written by the individual query flow.
const SourceFile = "consulta_europa_individual"

// Key identifies a benefit whose balance can be queried. Both parts hold
// digits only, so differently formatted inputs map to the same key.
type Key struct {
	Document string
	Benefit  string
}

// NewKey normalizes document and benefit to their digits.
func NewKey(document, benefit string) Key {
	return Key{Document: Digits(document), Benefit: Digits(benefit)}
}

// String is the dispatch key: both digit strings joined by a separator
// that cannot appear in either part.
func (k Key) String() string {
	return k.Document + ":" + k.Benefit
}

// IsZero reports whether either part normalized to nothing.
func (k Key) IsZero() bool {
	return k.Document == "" || k.Benefit == ""
}

// Digits strips every non-digit rune.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Payload is the benefit data returned by the external service. An empty
// Name marks an unmatched lookup.
type Payload struct {
	Name                        string `json:"name,omitempty"`
	State                       string `json:"state"`
	Alimony                     string `json:"alimony"`
	BirthDate                   string `json:"birth_date"`
	BlockType                   string `json:"block_type"`
	GrantDate                   string `json:"grant_date"`
	CreditType                  string `json:"credit_type"`
	BenefitCardLimit            string `json:"benefit_card_limit"`
	BenefitCardBalance          string `json:"benefit_card_balance"`
	ConsignedCardLimit          string `json:"consigned_card_limit"`
	ConsignedCardBalance        string `json:"consigned_card_balance"`
	BenefitStatus               string `json:"benefit_status"`
	BenefitEndDate              string `json:"benefit_end_date"`
	ConsignedCreditBalance      string `json:"consigned_credit_balance"`
	MaxTotalBalance             string `json:"max_total_balance"`
	UsedTotalBalance            string `json:"used_total_balance"`
	AvailableTotalBalance       string `json:"available_total_balance"`
	QueryDate                   string `json:"query_date"`
	QueryReturnDate             string `json:"query_return_date"`
	QueryReturnTime             string `json:"query_return_time"`
	LegalRepresentativeName     string `json:"legal_representative_name"`
	DisbursementBank            string `json:"disbursement_bank"`
	DisbursementBranch          string `json:"disbursement_branch"`
	DisbursementAccount         string `json:"disbursement_account"`
	DisbursementDigit           string `json:"disbursement_digit"`
	ActiveSuspendedReservations string `json:"active_suspended_reservations"`
}

// Matched reports whether the external service resolved an identity.
func (p Payload) Matched() bool {
	return strings.TrimSpace(p.Name) != ""
}

// QueryRecord is one append-only lookup outcome.
type QueryRecord struct {
	ID         id.QueryID `json:"id"`
	Document   string     `json:"document"`
	Benefit    string     `json:"benefit"`
	UserID     id.UserID  `json:"user_id"`
	Payload    Payload    `json:"payload"`
	SourceFile string     `json:"source_file"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// Key returns the record's lookup key.
func (r QueryRecord) Key() Key {
	return Key{Document: r.Document, Benefit: r.Benefit}
}

// Valid reports whether the record carries a resolved identity.
func (r QueryRecord) Valid() bool {
	return r.Payload.Matched()
}

// UsableAt reports whether the record may satisfy a new request at now:
// it must be valid and strictly younger than validity.
func (r QueryRecord) UsableAt(now time.Time, validity time.Duration) bool {
	if !r.Valid() {
		return false
	}
	return now.Sub(r.RecordedAt) < validity
}

// DuplicateFor copies the payload into a fresh record attributed to userID
// at now. The payload struct is copied by value.
func (r QueryRecord) DuplicateFor(userID id.UserID, now time.Time) QueryRecord {
	return QueryRecord{
		ID:         id.NewQueryID(),
		Document:   r.Document,
		Benefit:    r.Benefit,
		UserID:     userID,
		Payload:    r.Payload,
		SourceFile: r.SourceFile,
		RecordedAt: now,
	}
}

// NewRecord builds the record for a fresh external outcome.
func NewRecord(key Key, userID id.UserID, payload Payload, now time.Time) QueryRecord {
	return QueryRecord{
		ID:         id.NewQueryID(),
		Document:   key.Document,
		Benefit:    key.Benefit,
		UserID:     userID,
		Payload:    payload,
		SourceFile: SourceFile,
		RecordedAt: now,
	}
}

// User is the slice of the credential directory the core reads.
type User struct {
	ID    id.UserID
	Login string
	Name  string
}

// CreditRow is one credit grant for a user.
type CreditRow struct {
	ID             id.LedgerRowID
	UserID         id.UserID
	TotalLoaded    int
	AvailableLimit int
	QueriesMade    int
	CreatedAt      time.Time
}

// Balance is the ledger view returned by debit and current balance.
type Balance struct {
	AvailableLimit int `json:"available_limit"`
	QueriesMade    int `json:"queries_made"`
}

// CreditSummary aggregates every ledger row of a user.
type CreditSummary struct {
	TotalLoaded    int `json:"total_loaded"`
	AvailableLimit int `json:"available_limit"`
	QueriesMade    int `json:"queries_made"`
}

// QueryResult is what a successful submitQuery returns.
type QueryResult struct {
	Record         QueryRecord `json:"record"`
	AvailableLimit int         `json:"available_limit"`
	QueriesMade    int         `json:"queries_made"`
}

// Source says where a served record came from.
type Source string

const (
	SourceExternal  Source = "external"
	SourceCache     Source = "cache"
	SourceTransient Source = "transient"
	SourceStore     Source = "store"
)

// LatestResult is what the latest-query passthrough serves. RecordedAt is
// unset when the payload came from the transient cache.
type LatestResult struct {
	Document   string     `json:"document"`
	Benefit    string     `json:"benefit"`
	Payload    Payload    `json:"payload"`
	Source     Source     `json:"source"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}
