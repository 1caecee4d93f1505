// Package generation runs model calls end to end: transport, extraction,
// schema validation and post-processing, all under the retry controller.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/postprocess"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/retry"
)

// Metrics receives generation outcomes. *metrics.Collectors implements it.
type Metrics interface {
	retry.Recorder
	RecordGeneration(useCase, outcome string, elapsed time.Duration)
	RecordTransportError(provider, kind string)
	RecordValidationDegraded(schema string)
}

type nopMetrics struct{}

func (nopMetrics) RecordRetryAttempt(string)                      {}
func (nopMetrics) RecordGeneration(string, string, time.Duration) {}
func (nopMetrics) RecordTransportError(string, string)            {}
func (nopMetrics) RecordValidationDegraded(string)                {}

// Client owns one transport and one retry controller.
type Client struct {
	transport  domain.Transport
	controller *retry.Controller
	logger     *slog.Logger
	metrics    Metrics
}

// ClientOption customizes NewClient.
type ClientOption func(*clientOptions)

type clientOptions struct {
	metrics Metrics
}

// WithMetrics records outcomes on m.
func WithMetrics(m Metrics) ClientOption {
	return func(o *clientOptions) { o.metrics = m }
}

// NewClient wires a transport to a retry controller built from policy.
func NewClient(transport domain.Transport, policy retry.Policy, logger *slog.Logger, opts ...ClientOption) *Client {
	o := clientOptions{metrics: nopMetrics{}}
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		transport:  transport,
		controller: retry.NewController(policy, logger, retry.WithRecorder(o.metrics)),
		logger:     logger,
		metrics:    o.metrics,
	}
}

// Provider names the underlying transport.
func (c *Client) Provider() string { return c.transport.Provider() }

// Text runs a batch free-text request and post-processes the answer with rules.
// Empty output is retried; there is no fallback.
func (c *Client) Text(ctx context.Context, req *domain.GenerationRequest, rules postprocess.LocaleRules) (string, error) {
	start := time.Now()
	batch := *req
	batch.Mode = domain.ModeBatch

	res, err := retry.Do(ctx, c.controller, func(ctx context.Context) (string, error) {
		return c.complete(ctx, &batch, nil)
	}, nil)
	if err != nil {
		c.finish(ctx, "text", start, err, "error")
		return "", err
	}

	c.finish(ctx, "text", start, nil, "success", "attempts", res.Attempts)
	return postprocess.Apply(res.Value, rules), nil
}

// Stream runs a streaming request, calling onFragment once per non-empty fragment in
// arrival order, and returns the post-processed accumulation. A failure after the first
// fragment reached onFragment is not retried.
func (c *Client) Stream(ctx context.Context, req *domain.GenerationRequest, onFragment func(string), rules postprocess.LocaleRules) (string, error) {
	start := time.Now()
	streaming := req.WithStreaming()

	res, err := retry.Do(ctx, c.controller, func(ctx context.Context) (string, error) {
		delivered := 0
		text, err := c.complete(ctx, streaming, func(s string) {
			delivered++
			if onFragment != nil {
				onFragment(s)
			}
		})
		if err != nil && delivered > 0 && ctx.Err() == nil {
			return "", fmt.Errorf("%w: %w", domain.ErrPartialStream, err)
		}
		return text, err
	}, nil)
	if err != nil {
		c.finish(ctx, "stream", start, err, "error")
		return "", err
	}

	c.finish(ctx, "stream", start, nil, "success", "attempts", res.Attempts)
	return postprocess.Apply(res.Value, rules), nil
}

// complete performs one transport call and returns the whole model text.
func (c *Client) complete(ctx context.Context, req *domain.GenerationRequest, onFragment func(string)) (string, error) {
	out, err := c.transport.Send(ctx, req)
	if err != nil {
		c.recordTransportError(ctx, err)
		return "", err
	}

	var text string
	switch o := out.(type) {
	case domain.BatchOutput:
		text = o.Text
	case domain.StreamOutput:
		text, err = domain.Accumulate(ctx, o, onFragment)
		if err != nil {
			c.recordTransportError(ctx, err)
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: %T", domain.ErrUnsupportedOutput, out)
	}

	if strings.TrimSpace(text) == "" {
		err := &domain.TransportError{Kind: domain.KindEmptyResponse, Err: domain.ErrEmptyResponse}
		c.recordTransportError(ctx, err)
		return "", err
	}
	return text, nil
}

func (c *Client) recordTransportError(ctx context.Context, err error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return
	}
	c.metrics.RecordTransportError(c.transport.Provider(), domain.ErrorKind(err))
}

func (c *Client) finish(ctx context.Context, useCase string, start time.Time, err error, outcome string, attrs ...any) {
	elapsed := time.Since(start)
	c.metrics.RecordGeneration(useCase, outcome, elapsed)

	attrs = append(attrs,
		"use_case", useCase,
		"provider", c.transport.Provider(),
		"outcome", outcome,
		"duration_ms", elapsed.Milliseconds())
	if err != nil {
		attrs = append(attrs, "error", err, "error_kind", domain.ErrorKind(err))
		c.logger.ErrorContext(ctx, "generation failed", attrs...)
		return
	}
	c.logger.InfoContext(ctx, "generation completed", attrs...)
}
