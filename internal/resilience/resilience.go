// Package resilience layers rate limiting, circuit breaking, and bounded
// retry around any operation. The layers compose in a fixed order: the rate
// limiter gates admission, the breaker decides whether the downstream is
// trusted, and the retry loop absorbs transient failures. Every wait is
// context-aware.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	apperrors "github.com/syncwell/mailsync-backend/internal/errors"
	"github.com/syncwell/mailsync-backend/internal/metrics"
	"golang.org/x/time/rate"
)

// Breaker trip rule: at least this many requests in the window, with at
// least this failure ratio.
const (
	breakerMinRequests  = 10
	breakerFailureRatio = 0.6
)

// Operation is any context-aware call the wrapper can protect
type Operation func(ctx context.Context) error

// Config tunes one wrapper instance
type Config struct {
	// RateLimit in operations per second; zero disables the limiter
	RateLimit rate.Limit
	RateBurst int

	// MaxRetries bounds retry attempts after the initial call
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// BreakerCooldown is how long the breaker stays open before the
	// half-open trial
	BreakerCooldown time.Duration
}

func (c Config) withDefaults() Config {
	// MaxRetries zero means the default; use a negative value for no retries
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	} else if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 1
	}
	return c
}

// Wrapper protects one logical operation. Create one wrapper per operation
// name; the breaker state is scoped to it.
type Wrapper struct {
	name    string
	cfg     Config
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	sink    *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Wrapper keyed by a logical operation name
func New(name string, cfg Config, sink *metrics.Metrics, logger *slog.Logger) *Wrapper {
	cfg = cfg.withDefaults()

	w := &Wrapper{
		name:   name,
		cfg:    cfg,
		sink:   sink,
		logger: logger,
	}

	if cfg.RateLimit > 0 {
		w.limiter = rate.NewLimiter(cfg.RateLimit, cfg.RateBurst)
	}

	w.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= breakerMinRequests && ratio >= breakerFailureRatio
		},
		// Only transient failures count against the breaker. Validation,
		// conflict, and not-found outcomes say nothing about downstream
		// health.
		IsSuccessful: func(err error) bool {
			return err == nil || !apperrors.IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if sink != nil {
				sink.BreakerState.WithLabelValues(name).Set(stateValue(to))
			}
			if logger != nil {
				logger.Warn("circuit breaker state change",
					slog.String("operation", name),
					slog.String("from", from.String()),
					slog.String("to", to.String()),
				)
			}
		},
	})

	return w
}

// Execute runs fn through the limiter, the breaker, and the retry loop.
// Transient failures are retried with exponential backoff up to MaxRetries;
// everything else propagates after the first attempt. An open breaker fails
// fast with ErrBreakerOpen. Context cancellation during any wait returns
// ErrCancelled promptly.
func (w *Wrapper) Execute(ctx context.Context, fn Operation) (err error) {
	start := time.Now()
	if w.sink != nil {
		w.sink.ActiveRequests.Inc()
		defer func() {
			w.sink.ActiveRequests.Dec()
			w.sink.ObserveOperation(w.name, start, err, apperrors.GetErrorCode)
		}()
	}

	if w.limiter != nil {
		// Wait only fails when the context is cancelled or its deadline
		// cannot accommodate the wait
		if werr := w.limiter.Wait(ctx); werr != nil {
			err = fmt.Errorf("%w: %v", apperrors.ErrCancelled, werr)
			return err
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = w.cfg.BaseDelay
	bo.MaxInterval = w.cfg.MaxDelay
	bo.Multiplier = 2

	err = backoff.Retry(func() error {
		_, berr := w.breaker.Execute(func() (interface{}, error) {
			return nil, fn(ctx)
		})
		if berr == nil {
			return nil
		}
		if errors.Is(berr, gobreaker.ErrOpenState) || errors.Is(berr, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(fmt.Errorf("%w: %s", apperrors.ErrBreakerOpen, w.name))
		}
		if apperrors.IsTransient(berr) {
			return berr
		}
		return backoff.Permanent(berr)
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(w.cfg.MaxRetries)), ctx))

	err = apperrors.Cancelled(err)
	return err
}

// State returns the breaker state for health reporting
func (w *Wrapper) State() string {
	return w.breaker.State().String()
}

// Name returns the logical operation name
func (w *Wrapper) Name() string {
	return w.name
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
