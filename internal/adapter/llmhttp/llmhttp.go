// Package llmhttp holds the HTTP mechanics shared by the REST model adapters:
// JSON posting, status classification, SSE decoding, stream pacing and spans.
package llmhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
	otelinfra "github.com/ayuxy027/Krishak-AI/internal/infra/otel"
)

const maxErrorBody = 2048

// Limiter gates outbound calls per endpoint host.
type Limiter interface {
	WaitForHost(ctx context.Context, urlStr string) error
}

// PostJSON marshals body, waits on the limiter and posts it to url.
// Only 2xx responses are returned; anything else becomes a *domain.TransportError
// carrying the status, a truncated body and any Retry-After hint.
func PostJSON(ctx context.Context, client *http.Client, limiter Limiter, url string, header http.Header, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &domain.TransportError{Kind: domain.KindClientInvalid, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	if limiter != nil {
		if err := limiter.WaitForHost(ctx, url); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &domain.TransportError{Kind: domain.KindClientInvalid, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.WrapNetworkError(fmt.Errorf("failed to call generation endpoint: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, domain.NewStatusError(resp.StatusCode, strings.TrimSpace(string(raw)), ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()))
	}
	return resp, nil
}

// DecodeJSON reads a whole JSON response body into v.
func DecodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &domain.TransportError{Kind: domain.KindEmptyResponse, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode generation response: %w", err)}
	}
	return nil
}

// ParseRetryAfter accepts delta-seconds or an HTTP date. Unparseable or past values yield zero.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// Pace sleeps for d unless ctx ends first.
func Pace(ctx context.Context, d time.Duration) error {
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

var tracer = otel.Tracer(otelinfra.LLMTracerName)

// StartSpan opens the llm.send span for one transport call.
func StartSpan(ctx context.Context, provider, model string, mode domain.Mode) (context.Context, trace.Span) {
	return tracer.Start(ctx, otelinfra.SendSpanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			otelinfra.ProviderKey.String(provider),
			otelinfra.ModelKey.String(model),
			otelinfra.ModeKey.String(mode.String()),
		),
	)
}

// EndSpan records err on span and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		var tErr *domain.TransportError
		if errors.As(err, &tErr) && tErr.Status != 0 {
			span.SetAttributes(semconv.HTTPResponseStatusCode(tErr.Status))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.ErrorKind(err))
	}
	span.End()
}
