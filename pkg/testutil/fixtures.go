package testutil

import (
	"time"

	"github.com/google/uuid"

	"saldo/internal/benefit/models"
	id "saldo/pkg/domain"
)

// TestIDs provides fixed ids for deterministic test data.
var TestIDs = struct {
	UserID1 id.UserID
	UserID2 id.UserID
}{
	UserID1: id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	UserID2: id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
}

// FixedNow is the reference instant used by fixtures.
var FixedNow = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

// TestDocument and TestBenefit are a formatted key used across tests.
const (
	TestDocument = "123.456.789-09"
	TestBenefit  = "604.321.987-0"
)

// MatchedPayload returns a payload for a resolved identity.
func MatchedPayload() models.Payload {
	return models.Payload{
		Name:                  "MARIA DA SILVA",
		State:                 "SP",
		Alimony:               "NAO",
		BirthDate:             "1958-03-14",
		GrantDate:             "2015-07-01",
		CreditType:            "CONTA_CORRENTE",
		BenefitCardLimit:      "1412.00",
		BenefitCardBalance:    "350.75",
		ConsignedCardLimit:    "706.00",
		ConsignedCardBalance:  "120.10",
		BenefitStatus:         "ATIVO",
		MaxTotalBalance:       "2118.00",
		UsedTotalBalance:      "1641.15",
		AvailableTotalBalance: "350.75",
		QueryDate:             "2026-06-15",
		DisbursementBank:      "001",
		DisbursementBranch:    "1234",
		DisbursementAccount:   "987654",
		DisbursementDigit:     "3",
	}
}

// RecordBuilder builds QueryRecords fluently.
type RecordBuilder struct {
	record models.QueryRecord
}

// NewRecord starts a valid record for the test key, recorded at FixedNow.
func NewRecord() *RecordBuilder {
	key := models.NewKey(TestDocument, TestBenefit)
	return &RecordBuilder{record: models.NewRecord(key, TestIDs.UserID1, MatchedPayload(), FixedNow)}
}

func (b *RecordBuilder) WithKey(key models.Key) *RecordBuilder {
	b.record.Document = key.Document
	b.record.Benefit = key.Benefit
	return b
}

func (b *RecordBuilder) WithUser(userID id.UserID) *RecordBuilder {
	b.record.UserID = userID
	return b
}

// Unmatched clears the name so the record is invalid.
func (b *RecordBuilder) Unmatched() *RecordBuilder {
	b.record.Payload.Name = ""
	return b
}

// Aged moves RecordedAt back by age relative to FixedNow.
func (b *RecordBuilder) Aged(age time.Duration) *RecordBuilder {
	b.record.RecordedAt = FixedNow.Add(-age)
	return b
}

func (b *RecordBuilder) Build() models.QueryRecord {
	return b.record
}
