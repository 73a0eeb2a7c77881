package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/pkg/circuitbreaker"
	"DocQA/backend/go/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper function to create a mock config for testing
func newTestConfig() *config.AppConfig {
	cfg := config.Default()
	cfg.Middleware.RateLimiter = config.RateLimiterConfig{
		Enabled:   true,
		Algorithm: "tokenBucket",
		TokenBucket: config.TokenBucketConfig{
			Rate:     10,
			Capacity: 5,
		},
	}
	cfg.Middleware.CircuitBreaker = config.CircuitBreakerConfig{
		Enabled:          true,
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Timeout:          "10s",
	}
	return cfg
}

func TestNewServer_WithAddress(t *testing.T) {
	srv, err := NewServer(newTestConfig(), logger.Discard(), WithAddress(":9999"))
	require.NoError(t, err)
	assert.Equal(t, ":9999", srv.Addr())
}

func TestNewServer_AddressFromConfig(t *testing.T) {
	cfg := newTestConfig()
	cfg.Server.Address = "127.0.0.1:7000"
	srv, err := NewServer(cfg, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", srv.Addr())
}

func TestNewServer_BadMiddlewareConfig(t *testing.T) {
	cfg := newTestConfig()
	cfg.Middleware.RateLimiter.Algorithm = "slidingLog"
	_, err := NewServer(cfg, logger.Discard())
	assert.Error(t, err)

	cfg = newTestConfig()
	cfg.Middleware.CircuitBreaker.Timeout = "soon"
	_, err = NewServer(cfg, logger.Discard())
	assert.Error(t, err)
}

func TestRateLimiterMiddleware(t *testing.T) {
	cfg := newTestConfig()
	cfg.Middleware.RateLimiter.TokenBucket.Capacity = 2
	cfg.Middleware.RateLimiter.TokenBucket.Rate = 0.001

	srv, err := NewServer(cfg, logger.Discard())
	require.NoError(t, err)
	srv.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	testServer := httptest.NewServer(srv.httpServer.Handler)
	defer testServer.Close()

	for i := 0; i < 2; i++ {
		resp, err := http.Get(testServer.URL)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "request %d", i+1)
		resp.Body.Close()
	}

	resp, err := http.Get(testServer.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestCircuitBreakerMiddleware(t *testing.T) {
	cfg := newTestConfig()
	cfg.Middleware.RateLimiter.Enabled = false

	srv, err := NewServer(cfg, logger.Discard())
	require.NoError(t, err)
	srv.HandleFunc("/fail", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	})

	testServer := httptest.NewServer(srv.httpServer.Handler)
	defer testServer.Close()

	for i := 0; i < 2; i++ {
		resp, err := http.Get(testServer.URL + "/fail")
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		resp.Body.Close()
	}

	resp, err := http.Get(testServer.URL + "/fail")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), "Circuit Breaker is open"), "got %s", body)
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	cfg := newTestConfig()
	srv, err := NewServer(cfg, logger.Discard(), WithAddress("127.0.0.1:0"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestClient_ServerErrorsTripBreaker(t *testing.T) {
	calls := 0
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream"}`))
	}))
	defer upstream.Close()

	c, err := NewClientFromConfig(config.CircuitBreakerConfig{
		Enabled: true, FailureThreshold: 1, SuccessThreshold: 1, Timeout: "1h",
	}, time.Second)
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, upstream.URL, nil)
	resp, err := c.Do(req)
	require.NoError(t, err, "a 5xx response is still returned")
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, string(body), "upstream")

	req, _ = http.NewRequest(http.MethodGet, upstream.URL, nil)
	_, err = c.Do(req)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, 1, calls)
}

func TestClient_Disabled(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	c := NewClient(0, nil)
	req, _ := http.NewRequest(http.MethodGet, upstream.URL, nil)
	resp, err := c.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
