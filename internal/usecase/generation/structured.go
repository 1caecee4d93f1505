package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/extract"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/retry"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/schema"
)

// ErrFallbackType is returned by Generate when the registered fallback does not produce the schema's type.
var ErrFallbackType = errors.New("fallback does not match schema type")

// GenerateOption customizes one Generate call.
type GenerateOption func(*generateOptions)

type generateOptions struct {
	useCase    string
	noFallback bool
	fallback   any
	sentinel   func(any) bool
}

// WithFallback replaces the schema default as the value used once retries run out
// on unusable output. Generate fails with ErrFallbackType before calling the model
// when fn does not return the schema's type.
func WithFallback[T any](fn func() T) GenerateOption {
	return func(o *generateOptions) { o.fallback = fn }
}

// WithoutFallback makes unusable output fail with *domain.ExhaustedError.
func WithoutFallback() GenerateOption {
	return func(o *generateOptions) { o.noFallback = true }
}

// WithSentinel marks payloads matching fn as NotApplicable instead of validating them as answers.
func WithSentinel(fn func(any) bool) GenerateOption {
	return func(o *generateOptions) { o.sentinel = fn }
}

// WithUseCase labels logs and metrics. The schema name is used otherwise.
func WithUseCase(name string) GenerateOption {
	return func(o *generateOptions) { o.useCase = name }
}

// Generate sends req and shapes the answer into T through s.
//
// Every returned value has the full shape of T. When the model never produced usable
// JSON, the result is the fallback with Degraded and Fallback set.
func Generate[T any](ctx context.Context, c *Client, req *domain.GenerationRequest, s *schema.Schema[T], opts ...GenerateOption) (domain.ValidatedResult[T], error) {
	var o generateOptions
	for _, opt := range opts {
		opt(&o)
	}
	useCase := o.useCase
	if useCase == "" {
		useCase = s.Name()
	}
	start := time.Now()

	var extractOpts []extract.Option
	if !s.PreserveLines() {
		extractOpts = append(extractOpts, extract.WithCollapseWhitespace())
	}
	if o.sentinel != nil {
		extractOpts = append(extractOpts, extract.WithSentinel(o.sentinel))
	}

	op := func(ctx context.Context) (domain.ValidatedResult[T], error) {
		var zero domain.ValidatedResult[T]

		text, err := c.complete(ctx, req, nil)
		if err != nil {
			return zero, err
		}

		payload, err := extract.Extract(text, extractOpts...)
		if err != nil {
			return zero, err
		}

		c.logger.DebugContext(ctx, "extracted payload",
			"schema", s.Name(),
			"payload", extract.Compact(payload.Value))

		result := s.Validate(payload.Value)
		if payload.NotApplicable {
			result.NotApplicable = true
			return result, nil
		}
		if !result.Contributed {
			return zero, fmt.Errorf("%w: schema %s", domain.ErrNoContribution, s.Name())
		}
		return result, nil
	}

	var fallback func() domain.ValidatedResult[T]
	if !o.noFallback {
		gen := s.Default
		if o.fallback != nil {
			fn, ok := o.fallback.(func() T)
			if !ok || fn == nil {
				err := fmt.Errorf("%w: schema %s got %T", ErrFallbackType, s.Name(), o.fallback)
				c.logger.ErrorContext(ctx, "fallback registration rejected", "schema", s.Name(), "error", err)
				return domain.ValidatedResult[T]{}, err
			}
			gen = fn
		}
		fallback = func() domain.ValidatedResult[T] {
			return domain.ValidatedResult[T]{
				Value:           gen(),
				Degraded:        true,
				DefaultedFields: s.FieldPaths(),
				Fallback:        true,
			}
		}
	}

	res, err := retry.Do(ctx, c.controller, op, fallback)
	if err != nil {
		c.finish(ctx, useCase, start, err, "error", "schema", s.Name())
		return domain.ValidatedResult[T]{}, err
	}

	result := res.Value
	outcome := "success"
	switch {
	case result.NotApplicable:
		outcome = "not_applicable"
	case result.Fallback:
		outcome = "fallback"
	case result.Degraded:
		outcome = "degraded"
	}

	if result.Degraded && !result.NotApplicable {
		c.metrics.RecordValidationDegraded(s.Name())
		c.logger.WarnContext(ctx, "validation degraded",
			"schema", s.Name(),
			"use_case", useCase,
			"fallback", result.Fallback,
			"defaulted_fields", len(result.DefaultedFields),
			"sample_fields", sample(result.DefaultedFields, 5))
	}

	c.finish(ctx, useCase, start, nil, outcome, "schema", s.Name(), "attempts", res.Attempts)
	return result, nil
}

func sample(fields []string, n int) []string {
	if len(fields) <= n {
		return fields
	}
	return fields[:n]
}
