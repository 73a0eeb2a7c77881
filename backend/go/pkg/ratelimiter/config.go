package ratelimiter

import (
	"DocQA/backend/go/internal/config"
	"fmt"
	"time"
)

// NewFactoryFromConfig returns a factory for the per-client limiters described by cfg.
func NewFactoryFromConfig(cfg config.RateLimiterConfig) (Factory, error) {
	algorithm := cfg.Algorithm
	if algorithm == "" {
		algorithm = "tokenBucket"
	}

	switch algorithm {
	case "tokenBucket":
		conf := cfg.TokenBucket
		if conf.Rate <= 0 || conf.Capacity <= 0 {
			return nil, fmt.Errorf("tokenBucket needs a positive rate and capacity")
		}
		return func() RateLimiter {
			return NewTokenBucket(conf.Rate, conf.Capacity)
		}, nil
	case "fixedWindow":
		conf := cfg.FixedWindow
		window, err := time.ParseDuration(conf.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid fixedWindow duration: %w", err)
		}
		return func() RateLimiter {
			return NewFixedWindowCounter(conf.Limit, window)
		}, nil
	default:
		return nil, fmt.Errorf("unknown rate limiter algorithm: %s", cfg.Algorithm)
	}
}

// NewKeyedFromConfig builds the per-client limiter set described by cfg.
func NewKeyedFromConfig(cfg config.RateLimiterConfig) (*Keyed, error) {
	factory, err := NewFactoryFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewKeyed(factory, cfg.MaxClients), nil
}
