package circuitbreaker

import (
	"DocQA/backend/go/internal/config"
	"fmt"
	"time"
)

// NewFromConfig creates a breaker from its config section. Enabled is not checked.
func NewFromConfig(cfg config.CircuitBreakerConfig, opts ...Option) (CircuitBreaker, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker timeout duration: %w", err)
	}
	return New(cfg.FailureThreshold, cfg.SuccessThreshold, timeout, opts...), nil
}
