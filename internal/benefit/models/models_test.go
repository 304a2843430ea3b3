package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "saldo/pkg/domain"
)

func TestNewKey_NormalizesFormatting(t *testing.T) {
	a := NewKey("123.456.789-09", "123.456.789-0")
	b := NewKey(" 12345678909 ", "1234567890")

	assert.Equal(t, a, b)
	assert.Equal(t, a.String(), b.String())
	assert.Equal(t, "12345678909:1234567890", a.String())
}

func TestKey_IsZero(t *testing.T) {
	assert.True(t, NewKey("abc", "123").IsZero())
	assert.True(t, NewKey("123", "").IsZero())
	assert.False(t, NewKey("1", "2").IsZero())
}

func TestKey_SeparatorAvoidsCollisions(t *testing.T) {
	assert.NotEqual(t, NewKey("12", "345").String(), NewKey("123", "45").String())
}

func TestQueryRecord_UsableAt(t *testing.T) {
	now := time.Date(2026, 5, 31, 12, 0, 0, 0, time.UTC)
	validity := 30 * 24 * time.Hour
	valid := QueryRecord{Payload: Payload{Name: "MARIA"}}

	tests := []struct {
		name   string
		record QueryRecord
		usable bool
	}{
		{"valid and 10 days old", withAge(valid, now, 10*24*time.Hour), true},
		{"valid just under 30 days", withAge(valid, now, validity-time.Second), true},
		{"valid exactly 30 days", withAge(valid, now, validity), false},
		{"valid older than 30 days", withAge(valid, now, 45*24*time.Hour), false},
		{"invalid and fresh", withAge(QueryRecord{}, now, time.Minute), false},
		{"blank name is invalid", withAge(QueryRecord{Payload: Payload{Name: "  "}}, now, time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.usable, tt.record.UsableAt(now, validity))
		})
	}
}

func withAge(r QueryRecord, now time.Time, age time.Duration) QueryRecord {
	r.RecordedAt = now.Add(-age)
	return r
}

func TestQueryRecord_DuplicateFor(t *testing.T) {
	first := id.NewUserID()
	second := id.NewUserID()
	original := NewRecord(NewKey("1", "2"), first, Payload{Name: "MARIA", State: "SP"}, time.Unix(0, 0))
	now := time.Unix(1000, 0)

	dup := original.DuplicateFor(second, now)

	assert.NotEqual(t, original.ID, dup.ID)
	assert.Equal(t, second, dup.UserID)
	assert.Equal(t, now, dup.RecordedAt)
	assert.Equal(t, original.Payload, dup.Payload)
	assert.Equal(t, SourceFile, dup.SourceFile)
	assert.Equal(t, original.Key(), dup.Key())
}
