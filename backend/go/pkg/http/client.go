package http

import (
	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/pkg/circuitbreaker"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultClientTimeout bounds a whole request, upload and answer generation included.
const DefaultClientTimeout = 5 * time.Minute

// Client is a custom HTTP client that wraps the standard http.Client
// and provides built-in support for circuit breaking.
type Client struct {
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker
}

// serverError marks a 5xx response for the breaker without discarding it.
type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server error: received status code %d", e.status)
}

// NewClient creates a new Client. A nil breaker disables circuit breaking.
func NewClient(timeout time.Duration, breaker circuitbreaker.CircuitBreaker) *Client {
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}, breaker: breaker}
}

// NewClientFromConfig creates a Client whose breaker is only used when cfg.Enabled is set.
func NewClientFromConfig(cfg config.CircuitBreakerConfig, timeout time.Duration) (*Client, error) {
	if !cfg.Enabled {
		return NewClient(timeout, nil), nil
	}
	breaker, err := circuitbreaker.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(timeout, breaker), nil
}

// Do executes an HTTP request with circuit breaker protection.
// A 5xx response counts as a breaker failure but is still returned to the caller,
// so its error body can be read. Only transport errors and ErrCircuitOpen return an error.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	var resp *http.Response
	_, err := c.breaker.Execute(func() (interface{}, error) {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, &serverError{status: resp.StatusCode}
		}
		return resp, nil
	})

	var se *serverError
	if errors.As(err, &se) {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}
