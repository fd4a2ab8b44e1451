package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/starford/orgboard/internal/apperr"
	"github.com/starford/orgboard/internal/models"
)

// RetryPolicy configures RetryGateway.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// RetryGateway retries transient Load and Save failures with exponential
// backoff. Invalid snapshots are returned immediately.
type RetryGateway struct {
	next   Gateway
	policy RetryPolicy
	logger *slog.Logger
}

// NewRetryGateway wraps next. A policy with MaxAttempts <= 1 disables retries.
func NewRetryGateway(next Gateway, policy RetryPolicy, logger *slog.Logger) *RetryGateway {
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = 100 * time.Millisecond
	}
	if policy.MaxInterval <= 0 {
		policy.MaxInterval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryGateway{next: next, policy: policy, logger: logger}
}

func (g *RetryGateway) Load(ctx context.Context) (models.Chart, error) {
	var out models.Chart
	err := g.retry(ctx, "load", func() error {
		c, err := g.next.Load(ctx)
		if err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func (g *RetryGateway) Save(ctx context.Context, c models.Chart) error {
	return g.retry(ctx, "save", func() error {
		return g.next.Save(ctx, c)
	})
}

func (g *RetryGateway) retry(ctx context.Context, op string, fn func() error) error {
	if g.policy.MaxAttempts <= 1 {
		return fn()
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = g.policy.InitialInterval
	eb.MaxInterval = g.policy.MaxInterval
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(g.policy.MaxAttempts-1)), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if errors.Is(err, apperr.ErrInvalid) {
			return backoff.Permanent(err)
		}
		g.logger.Warn("snapshot: gateway call failed",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		return err
	}, b)
	return err
}
