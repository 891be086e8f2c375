package retry

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fastOptions() Options {
	return Options{
		Attempts:  3,
		BaseDelay: time.Millisecond,
		MaxDelay:  5 * time.Millisecond,
		Jitter:    0,
		Rand:      rand.New(rand.NewSource(1)),
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), func() (string, error) {
		calls++
		return "ok", nil
	}, fastOptions())

	require.NoError(t, err)
	require.Equal(t, "ok", result)
	require.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	result, err := Do(context.Background(), func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	}, fastOptions())

	require.NoError(t, err)
	require.Equal(t, 42, result)
	require.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Do(context.Background(), func() (int, error) {
		calls++
		return 0, boom
	}, fastOptions())

	require.Error(t, err)
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "retry exhausted after 3 attempts")
	require.Equal(t, 3, calls)
}

func TestDoNonRetryableStopsImmediately(t *testing.T) {
	fatal := errors.New("fatal")
	calls := 0
	opts := fastOptions()
	opts.Retryable = func(err error) bool { return !errors.Is(err, fatal) }

	_, err := Do(context.Background(), func() (int, error) {
		calls++
		return 0, fatal
	}, opts)

	require.ErrorIs(t, err, fatal)
	require.Equal(t, 1, calls)
}

func TestDoPermanentStopsImmediately(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), func() (int, error) {
		calls++
		return 0, Permanent(errors.New("do not retry"))
	}, fastOptions())

	require.Error(t, err)
	require.EqualError(t, err, "do not retry")
	require.Equal(t, 1, calls)
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	opts := fastOptions()
	opts.BaseDelay = time.Hour
	opts.MaxDelay = time.Hour

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, func() (int, error) {
		calls++
		return 0, errors.New("transient")
	}, opts)

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, calls)
}

func TestDoOnRetryCallback(t *testing.T) {
	var attempts []int
	opts := fastOptions()
	opts.OnRetry = func(attempt int, err error) {
		attempts = append(attempts, attempt)
	}

	_, err := Do(context.Background(), func() (int, error) {
		return 0, errors.New("transient")
	}, opts)

	require.Error(t, err)
	require.Equal(t, []int{1, 2}, attempts)
}

func TestBackoffDelayCapped(t *testing.T) {
	opts := Options{BaseDelay: time.Second, MaxDelay: 3 * time.Second}.withDefaults()
	opts.Jitter = 0

	require.Equal(t, time.Second, backoffDelay(opts, 1))
	require.Equal(t, 2*time.Second, backoffDelay(opts, 2))
	require.Equal(t, 3*time.Second, backoffDelay(opts, 3))
	require.Equal(t, 3*time.Second, backoffDelay(opts, 10))
}

func TestHTTPClientRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &HTTPClient{Client: srv.Client(), Options: fastOptions()}

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int32(3), hits.Load())
}

func TestHTTPClientDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := &HTTPClient{Client: srv.Client(), Options: fastOptions()}

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, int32(1), hits.Load())
}

func TestHTTPClientExhaustsOnPersistentFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := &HTTPClient{Client: srv.Client(), Options: fastOptions()}

	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	_, err = client.Do(req)
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	require.Equal(t, int32(3), hits.Load())
}
