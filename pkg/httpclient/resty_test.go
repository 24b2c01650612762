package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang-backtest/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestyClient_RetriesThrottledRequests(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-MBX-APIKEY"))
		assert.Equal(t, "1", r.URL.Query().Get("a"))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := New(logger.NewNop(), srv.URL, time.Second,
		WithRetry(3, time.Millisecond, 5*time.Millisecond),
		WithHeader("X-MBX-APIKEY", "key"),
	)

	var out map[string]bool
	resp, err := client.Get(context.Background(), "/ping", map[string]string{"a": "1"}, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, out["ok"])
	assert.Equal(t, int32(3), calls.Load())
}

func TestRestyClient_ReturnsNonOKStatusWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	client := New(logger.NewNop(), srv.URL, time.Second, WithHeader("X-MBX-APIKEY", ""))

	var out map[string]any
	resp, err := client.Get(context.Background(), "/fail", nil, nil, &out)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "boom", string(resp.Body))
	assert.Equal(t, int32(1), calls.Load())
}
