package client

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for external calls.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorProviderOutage ErrorCategory = "provider_outage"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorBadData        ErrorCategory = "bad_data"
	// ErrorNotConfigured means the API credential is missing; never retried.
	ErrorNotConfigured ErrorCategory = "not_configured"
	ErrorInternal      ErrorCategory = "internal"
)

// ProviderError wraps one failed attempt with its category.
type ProviderError struct {
	Category   ErrorCategory
	StatusCode int
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("balance api [%s]: %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("balance api [%s]: %s", e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError classifies a failure. Every transport or non-success
// status failure is retryable; a missing credential or a request that could
// not be built is not.
func NewProviderError(category ErrorCategory, statusCode int, message string, underlying error) *ProviderError {
	return &ProviderError{
		Category:   category,
		StatusCode: statusCode,
		Message:    message,
		Underlying: underlying,
		Retryable:  category != ErrorNotConfigured && category != ErrorInternal,
	}
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// ErrCircuitOpen is returned without calling out while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker open")
