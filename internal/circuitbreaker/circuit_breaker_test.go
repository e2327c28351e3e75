package circuitbreaker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testConfig() Config {
	return Config{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          50 * time.Millisecond,
		FailureThreshold: 3,
		SuccessThreshold: 1,
	}
}

var errBoom = errors.New("boom")

func TestBreakerTripsAfterThreshold(t *testing.T) {
	cb := New("test", testConfig(), zaptest.NewLogger(t))
	ctx := context.Background()

	fail := func() error { return errBoom }
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	}
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(ctx, func() error { return nil })
	assert.ErrorIs(t, err, ErrOpen, "open breaker sheds load without calling fn")
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	cb := New("test", testConfig(), zaptest.NewLogger(t))
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, func() error { return errBoom }))
	require.Error(t, cb.Execute(ctx, func() error { return errBoom }))
	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	require.Error(t, cb.Execute(ctx, func() error { return errBoom }))

	assert.Equal(t, StateClosed, cb.State(), "non-consecutive failures never trip")
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := New("test", testConfig(), zaptest.NewLogger(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, func() error { return errBoom })
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := New("test", testConfig(), zaptest.NewLogger(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = cb.Execute(ctx, func() error { return errBoom })
	}
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	_ = cb.Execute(ctx, func() error { return errBoom })
	assert.Equal(t, StateOpen, cb.State())
}

func TestHTTPWrapperCountsServerErrors(t *testing.T) {
	status := http.StatusInternalServerError
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()

	hw := NewHTTPWrapper(srv.Client(), "http-test", "test", zaptest.NewLogger(t))

	// 5xx responses are still handed back to the caller.
	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := hw.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	// Default threshold is 5 consecutive failures.
	for i := 0; i < 4; i++ {
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		if resp, err := hw.Do(req); err == nil {
			resp.Body.Close()
		}
	}
	assert.Equal(t, StateOpen, hw.State())
}

func TestHTTPWrapperIgnoresClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	hw := NewHTTPWrapper(srv.Client(), "http-test", "test", zaptest.NewLogger(t))
	for i := 0; i < 10; i++ {
		req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
		resp, err := hw.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, StateClosed, hw.State(), "4xx never trips the breaker")
}
