// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import "github.com/google/uuid"

// Distinct ID types - compiler prevents passing a UserID where a QueryID is expected.
type (
	UserID      uuid.UUID
	QueryID     uuid.UUID
	LedgerRowID uuid.UUID
)

// New functions mint random identifiers for freshly created rows.

func NewUserID() UserID           { return UserID(uuid.New()) }
func NewQueryID() QueryID         { return QueryID(uuid.New()) }
func NewLedgerRowID() LedgerRowID { return LedgerRowID(uuid.New()) }

// String methods - for logging and debugging.

func (id UserID) String() string      { return uuid.UUID(id).String() }
func (id QueryID) String() string     { return uuid.UUID(id).String() }
func (id LedgerRowID) String() string { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id UserID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id QueryID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id LedgerRowID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// Text marshaling - ids travel as canonical UUID strings in JSON.

func (id UserID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id QueryID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id LedgerRowID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *QueryID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *LedgerRowID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
