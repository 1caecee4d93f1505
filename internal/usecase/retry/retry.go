// Package retry runs model calls with bounded retries, exponential backoff with
// jitter, an immediate bail-out for non-retryable failures, and an optional fallback
// value once soft failures use up the attempt budget.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
)

// State is a retry controller state.
type State int

const (
	StateAttempting State = iota
	StateRetrying
	StateSuccess
	StateBailed
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateRetrying:
		return "retrying"
	case StateSuccess:
		return "success"
	case StateBailed:
		return "bailed"
	case StateExhausted:
		return "exhausted"
	default:
		return "attempting"
	}
}

// Recorder observes attempt outcomes, typically for metrics.
type Recorder interface {
	RecordRetryAttempt(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordRetryAttempt(string) {}

// Controller holds the retry policy and its collaborators. It is safe for concurrent use;
// every Do call keeps its own RetryState.
type Controller struct {
	policy   Policy
	logger   *slog.Logger
	recorder Recorder
}

// Option customizes a Controller.
type Option func(*Controller)

// WithRecorder reports attempt outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) {
		if r != nil {
			c.recorder = r
		}
	}
}

// NewController builds a controller for policy.
func NewController(policy Policy, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		policy:   policy.normalized(),
		logger:   logger,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the normalized policy.
func (c *Controller) Policy() Policy { return c.policy }

// Result is the outcome of a successful Do.
type Result[T any] struct {
	Value    T
	State    State
	Attempts int
	Fallback bool
	Retry    domain.RetryState
}

type decision int

const (
	decideRetry decision = iota
	decideBail
	decideSoft
	decideStop
)

// Do runs op until it succeeds, bails, or runs out of attempts. fallback may be nil.
//
// Configuration errors and context cancellation are returned unchanged. Other terminal
// failures are returned as *domain.BailedError or *domain.ExhaustedError.
func Do[T any](ctx context.Context, c *Controller, op func(ctx context.Context) (T, error), fallback func() T) (Result[T], error) {
	start := time.Now()
	state := domain.RetryState{}
	emptyResponses := 0
	bo := c.policy.NewBackOff()
	var zero T

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		state.Attempt = attempt
		attemptStart := time.Now()
		value, err := op(ctx)
		attemptDuration := time.Since(attemptStart)

		if err == nil {
			c.recorder.RecordRetryAttempt("success")
			if attempt > 1 {
				c.logger.InfoContext(ctx, "operation succeeded after retry",
					"attempt", attempt,
					"attempt_duration_ms", attemptDuration.Milliseconds(),
					"total_duration_ms", time.Since(start).Milliseconds(),
					"total_wait_time_ms", state.ElapsedBackoff.Milliseconds())
			}
			return Result[T]{Value: value, State: StateSuccess, Attempts: attempt, Retry: state}, nil
		}
		state.LastErr = err

		d := classify(ctx, err)
		lastAttempt := attempt >= c.policy.MaxAttempts
		if isEmptyResponse(err) {
			emptyResponses++
			// Empty output is retried once; after that it is handled like unusable output.
			lastAttempt = lastAttempt || emptyResponses > 1
		}

		c.logger.WarnContext(ctx, "operation attempt failed",
			"attempt", attempt,
			"error", err,
			"error_kind", domain.ErrorKind(err),
			"attempt_duration_ms", attemptDuration.Milliseconds())

		switch d {
		case decideStop:
			c.recorder.RecordRetryAttempt("stopped")
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			return Result[T]{Value: zero, State: StateBailed, Attempts: attempt, Retry: state}, err
		case decideBail:
			c.recorder.RecordRetryAttempt("bailed")
			c.logger.ErrorContext(ctx, "operation failed permanently",
				"attempt", attempt,
				"error", err,
				"state", StateBailed.String(),
				"total_duration_ms", time.Since(start).Milliseconds())
			return Result[T]{Value: zero, State: StateBailed, Attempts: attempt, Retry: state},
				&domain.BailedError{Attempts: attempt, Cause: err}
		}

		if lastAttempt {
			break
		}

		c.recorder.RecordRetryAttempt("retry")
		delay := c.policy.nextDelay(bo)
		var tErr *domain.TransportError
		if errors.As(err, &tErr) && tErr.RetryAfter > delay {
			delay = c.policy.clamp(tErr.RetryAfter)
		}
		state.ElapsedBackoff += delay

		c.logger.InfoContext(ctx, "retry backoff wait",
			"attempt", attempt,
			"state", StateRetrying.String(),
			"retry_delay_ms", delay.Milliseconds(),
			"total_wait_time_ms", state.ElapsedBackoff.Milliseconds())

		if err := sleep(ctx, delay); err != nil {
			c.logger.ErrorContext(ctx, "retry cancelled by context",
				"attempt", attempt,
				"context_error", err,
				"total_duration_ms", time.Since(start).Milliseconds())
			return Result[T]{Value: zero, State: StateBailed, Attempts: attempt, Retry: state}, err
		}
	}

	if fallback != nil && isSoftFailure(state.LastErr) {
		c.recorder.RecordRetryAttempt("fallback")
		c.logger.WarnContext(ctx, "retries exhausted, using fallback value",
			"attempts", state.Attempt,
			"error", state.LastErr,
			"total_duration_ms", time.Since(start).Milliseconds())
		return Result[T]{Value: fallback(), State: StateSuccess, Attempts: state.Attempt, Fallback: true, Retry: state}, nil
	}

	c.recorder.RecordRetryAttempt("exhausted")
	c.logger.ErrorContext(ctx, "operation failed permanently",
		"attempt", state.Attempt,
		"error", state.LastErr,
		"state", StateExhausted.String(),
		"total_duration_ms", time.Since(start).Milliseconds(),
		"total_wait_time_ms", state.ElapsedBackoff.Milliseconds())
	return Result[T]{Value: zero, State: StateExhausted, Attempts: state.Attempt, Retry: state},
		&domain.ExhaustedError{Attempts: state.Attempt, Cause: state.LastErr}
}

func classify(ctx context.Context, err error) decision {
	var cfgErr *domain.ConfigurationError
	if errors.As(err, &cfgErr) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return decideStop
	}

	var inErr *domain.InputError
	if errors.As(err, &inErr) || errors.Is(err, domain.ErrPartialStream) {
		return decideBail
	}

	if isEmptyResponse(err) {
		return decideRetry
	}

	var xErr *domain.ExtractionError
	if errors.As(err, &xErr) || errors.Is(err, domain.ErrNoContribution) {
		return decideSoft
	}

	switch domain.ClassifyError(err) {
	case domain.KindRateLimited, domain.KindTransient, domain.KindEmptyResponse:
		return decideRetry
	default:
		return decideBail
	}
}

func isSoftFailure(err error) bool {
	var xErr *domain.ExtractionError
	return errors.As(err, &xErr) || errors.Is(err, domain.ErrNoContribution) || isEmptyResponse(err)
}

func isEmptyResponse(err error) bool {
	var tErr *domain.TransportError
	return errors.As(err, &tErr) && tErr.Kind == domain.KindEmptyResponse
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
