// Package resilient wraps external model providers with a per-attempt
// timeout, a token-bucket throttle and exponential backoff retries.
//
// Timeouts, rate limits and 5xx responses are retried. Malformed responses,
// 4xx responses and caller cancellation end the call immediately.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/hask/internal/core/domain"
	"github.com/custodia-labs/hask/internal/logger"
	"github.com/custodia-labs/hask/internal/metrics"
)

// Default policy values.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 10 * time.Second
)

// Policy configures how a provider is called.
type Policy struct {
	// Timeout bounds each attempt. Zero disables the per-attempt timeout.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// RatePerSecond throttles attempts. Zero disables throttling.
	RatePerSecond float64

	// Burst is the token bucket size. Defaults to 1 when throttling.
	Burst int

	// InitialInterval is the first backoff wait.
	InitialInterval time.Duration

	// MaxInterval caps a single backoff wait.
	MaxInterval time.Duration
}

// DefaultPolicy returns the policy used when settings leave fields unset.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:         DefaultTimeout,
		MaxRetries:      DefaultMaxRetries,
		InitialInterval: DefaultInitialInterval,
		MaxInterval:     DefaultMaxInterval,
	}
}

// PolicyFromSettings builds a policy from provider settings.
func PolicyFromSettings(s domain.ProviderSettings) Policy {
	p := DefaultPolicy()
	if s.TimeoutSeconds > 0 {
		p.Timeout = s.Timeout()
	}
	if s.MaxRetries >= 0 {
		p.MaxRetries = s.MaxRetries
	}
	p.RatePerSecond = s.RatePerSecond
	return p
}

// caller runs provider operations under a policy.
type caller struct {
	provider string
	policy   Policy
	limiter  *rate.Limiter
}

func newCaller(provider string, policy Policy) *caller {
	c := &caller{provider: provider, policy: policy}
	if policy.RatePerSecond > 0 {
		burst := policy.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(policy.RatePerSecond), burst)
	}
	return c
}

func (c *caller) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if c.policy.InitialInterval > 0 {
		b.InitialInterval = c.policy.InitialInterval
	}
	if c.policy.MaxInterval > 0 {
		b.MaxInterval = c.policy.MaxInterval
	}
	b.MaxElapsedTime = 0
	retries := c.policy.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// do runs fn until it succeeds, fails permanently or runs out of retries.
func (c *caller) do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	attempt := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if c.policy.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, c.policy.Timeout)
		}
		defer cancel()

		err := fn(attemptCtx)
		metrics.ProviderCalls.WithLabelValues(c.provider, operation, metrics.Outcome(err)).Inc()
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrProviderTimeout) {
			err = fmt.Errorf("%w: %s %s: %w", domain.ErrProviderTimeout, c.provider, operation, err)
		}
		if !domain.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		metrics.ProviderRetries.WithLabelValues(c.provider, operation).Inc()
		logger.Warn("%s %s failed, retrying in %s: %v", c.provider, operation, wait.Round(time.Millisecond), err)
	}

	return backoff.RetryNotify(attempt, c.backOff(ctx), notify)
}
