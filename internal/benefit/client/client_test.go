package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/benefit/models"
	"saldo/internal/sentinel"
	"saldo/pkg/platform/circuit"
)

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func (r *recordedSleeps) all() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

type memTransient struct {
	mu    sync.Mutex
	items map[models.Key]models.Payload
}

func (m *memTransient) Put(_ context.Context, key models.Key, payload models.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[models.Key]models.Payload)
	}
	m.items[key] = payload
	return nil
}

func (m *memTransient) get(key models.Key) (models.Payload, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[key]
	return p, ok
}

var testKey = models.NewKey("123.456.789-09", "604.321.987-0")

const matchedBody = `{
	"name": "MARIA DA SILVA",
	"state": "SP",
	"alimony": false,
	"birthDate": "05031958",
	"grantDate": "01022010",
	"benefitCardBalance": 1234.5,
	"benefitCardLimit": "2000.00",
	"benefitEndDate": null,
	"queryDate": "15062026",
	"disbursementBankAccount": {"bank": 341, "branch": "0001", "number": "12345", "digit": "6"},
	"numberOfActiveSuspendedReservations": 0
}`

func TestFetch(t *testing.T) {
	t.Run("success converts payload, paces and writes transient cache", func(t *testing.T) {
		var gotReq lookupRequest
		var gotKey, gotType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotKey = r.Header.Get("apiKey")
			gotType = r.Header.Get("Content-Type")
			_ = json.NewDecoder(r.Body).Decode(&gotReq)
			_, _ = w.Write([]byte(matchedBody))
		}))
		defer srv.Close()

		sleeps := &recordedSleeps{}
		cache := &memTransient{}
		c := New(srv.URL, "secret", WithSleep(sleeps.sleep), WithTransientCache(cache))

		payload, err := c.Fetch(context.Background(), testKey)
		require.NoError(t, err)

		assert.Equal(t, "secret", gotKey)
		assert.Equal(t, "application/json", gotType)
		assert.Equal(t, lookupRequest{Identity: "12345678909", BenefitNumber: "6043219870", LastDays: 0, Attempts: 120}, gotReq)

		assert.True(t, payload.Matched())
		assert.Equal(t, "MARIA DA SILVA", payload.Name)
		assert.Equal(t, "false", payload.Alimony)
		assert.Equal(t, "1958-03-05", payload.BirthDate)
		assert.Equal(t, "2010-02-01", payload.GrantDate)
		assert.Equal(t, "2026-06-15", payload.QueryDate)
		assert.Equal(t, "", payload.BenefitEndDate)
		assert.Equal(t, "1234.5", payload.BenefitCardBalance)
		assert.Equal(t, "1234.5", payload.AvailableTotalBalance)
		assert.Equal(t, "341", payload.DisbursementBank)
		assert.Equal(t, "0001", payload.DisbursementBranch)
		assert.Equal(t, "12345", payload.DisbursementAccount)
		assert.Equal(t, "6", payload.DisbursementDigit)
		assert.Equal(t, "0", payload.ActiveSuspendedReservations)

		assert.Equal(t, []time.Duration{3 * time.Second}, sleeps.all())
		cached, ok := cache.get(testKey)
		require.True(t, ok)
		assert.Equal(t, payload, cached)
	})

	t.Run("unmatched answer is returned without error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"name": "", "state": ""}`))
		}))
		defer srv.Close()

		cache := &memTransient{}
		c := New(srv.URL, "secret", WithPacing(0), WithTransientCache(cache))

		payload, err := c.Fetch(context.Background(), testKey)
		require.NoError(t, err)
		assert.False(t, payload.Matched())
		_, ok := cache.get(testKey)
		assert.True(t, ok, "every answered payload is cached")
	})

	t.Run("retries with exponential backoff then succeeds", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(matchedBody))
		}))
		defer srv.Close()

		sleeps := &recordedSleeps{}
		c := New(srv.URL, "secret", WithSleep(sleeps.sleep))

		payload, err := c.Fetch(context.Background(), testKey)
		require.NoError(t, err)
		assert.True(t, payload.Matched())
		assert.Equal(t, int32(3), hits.Load())
		assert.Equal(t, []time.Duration{
			3 * time.Second, time.Second,
			3 * time.Second, 2 * time.Second,
			3 * time.Second,
		}, sleeps.all())
	})

	t.Run("exhausted attempts wrap unavailable", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		sleeps := &recordedSleeps{}
		cache := &memTransient{}
		c := New(srv.URL, "secret", WithPacing(0), WithSleep(sleeps.sleep), WithTransientCache(cache))

		_, err := c.Fetch(context.Background(), testKey)
		require.Error(t, err)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
		assert.Equal(t, ErrorProviderOutage, GetCategory(err))
		assert.Contains(t, err.Error(), "after 3 attempts")
		assert.Equal(t, int32(3), hits.Load())
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps.all())
		_, ok := cache.get(testKey)
		assert.False(t, ok)
	})

	t.Run("non-200 success codes are failures", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(matchedBody))
		}))
		defer srv.Close()

		c := New(srv.URL, "secret", WithPacing(0), WithMaxAttempts(1))

		_, err := c.Fetch(context.Background(), testKey)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
		assert.Equal(t, ErrorBadData, GetCategory(err))
	})

	t.Run("malformed body is bad data", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"name":`))
		}))
		defer srv.Close()

		c := New(srv.URL, "secret", WithPacing(0), WithMaxAttempts(1))

		_, err := c.Fetch(context.Background(), testKey)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
		assert.Equal(t, ErrorBadData, GetCategory(err))
	})

	t.Run("missing token fails without calling out", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
		}))
		defer srv.Close()

		sleeps := &recordedSleeps{}
		c := New(srv.URL, "  ", WithSleep(sleeps.sleep))

		_, err := c.Fetch(context.Background(), testKey)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
		assert.Equal(t, ErrorNotConfigured, GetCategory(err))
		assert.False(t, IsRetryable(err))
		assert.Zero(t, hits.Load())
		assert.Empty(t, sleeps.all())
	})

	t.Run("open breaker fails fast", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		breaker := circuit.New("balance-api", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour))
		sleeps := &recordedSleeps{}
		c := New(srv.URL, "secret", WithPacing(0), WithSleep(sleeps.sleep), WithBreaker(breaker))

		_, err := c.Fetch(context.Background(), testKey)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
		assert.ErrorIs(t, err, ErrCircuitOpen)
		assert.Equal(t, int32(1), hits.Load())
		assert.Equal(t, circuit.StateOpen, breaker.State())
	})

	t.Run("cancelled backoff stops retrying", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		stop := func(context.Context, time.Duration) error { return context.Canceled }
		c := New(srv.URL, "secret", WithPacing(0), WithSleep(stop))

		_, err := c.Fetch(context.Background(), testKey)
		assert.ErrorIs(t, err, sentinel.ErrUnavailable)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, int32(1), hits.Load())
	})
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, Backoff(1))
	assert.Equal(t, 2*time.Second, Backoff(2))
	assert.Equal(t, 4*time.Second, Backoff(3))
	assert.Equal(t, time.Second, Backoff(0))
}

func TestConvertDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"05031958", "1958-03-05"},
		{" 31122025 ", "2025-12-31"},
		{"", ""},
		{"   ", ""},
		{"2025-12-31", "2025-12-31"},
		{"0503195", "0503195"},
		{"0503195a", "0503195a"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, convertDate(tt.in))
		})
	}
}

func TestProviderError(t *testing.T) {
	underlying := errors.New("dial tcp: refused")
	err := NewProviderError(ErrorProviderOutage, 0, "request failed", underlying)

	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "provider_outage")
	assert.False(t, IsRetryable(NewProviderError(ErrorInternal, 0, "x", nil)))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.Equal(t, ErrorInternal, GetCategory(errors.New("plain")))
}
