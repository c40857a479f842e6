package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/papercomputeco/loom/pkg/fault"
	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/logger"
)

// Retry defaults: four attempts, one second apart, doubling.
const (
	DefaultMaxAttempts = 4
	DefaultBaseDelay   = time.Second
	DefaultMultiplier  = 2.0
)

// RetryConfig configures WithRetry. Zero fields take the defaults.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	Logger      *slog.Logger
}

// retrying retries transient failures of an inner model.
type retrying struct {
	inner       llm.Model
	maxAttempts int
	baseDelay   time.Duration
	multiplier  float64
	logger      *slog.Logger
}

// WithRetry wraps m so that transient failures are retried with exponential
// backoff. Other failures, and the last transient one, are returned as is.
func WithRetry(m llm.Model, cfg RetryConfig) llm.Model {
	r := &retrying{
		inner:       m,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		multiplier:  cfg.Multiplier,
		logger:      logger.OrNop(cfg.Logger),
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = DefaultMaxAttempts
	}
	if r.baseDelay <= 0 {
		r.baseDelay = DefaultBaseDelay
	}
	if r.multiplier < 1 {
		r.multiplier = DefaultMultiplier
	}
	return r
}

func (r *retrying) Invoke(ctx context.Context, messages []llm.Message, actions []llm.ActionSpec) (llm.Message, error) {
	delay := r.baseDelay

	for attempt := 1; ; attempt++ {
		msg, err := r.inner.Invoke(ctx, messages, actions)
		if err == nil || !fault.IsTransient(err) || attempt >= r.maxAttempts {
			return msg, err
		}

		r.logger.Warn("model call failed, retrying",
			"attempt", attempt,
			"max_attempts", r.maxAttempts,
			"delay", delay,
			"error", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return llm.Message{}, fault.New(fault.KindCanceled, "provider.retry", ctx.Err())
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * r.multiplier)
	}
}
