// Package otel installs the trace and log pipelines for the advisor service.
// Root llm.send spans are always kept; other roots follow the configured ratio.
package otel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	// LLMTracerName is the instrumentation scope of the transport spans.
	LLMTracerName = "krishak-advisor/llm"
	// SendSpanName is the span opened around one provider call.
	SendSpanName = "llm.send"

	// ProviderKey tags both the resource and every llm.send span.
	ProviderKey = attribute.Key("llm.provider")
	ModelKey    = attribute.Key("llm.model")
	ModeKey     = attribute.Key("llm.mode")
)

// Config selects where telemetry goes and how much of it.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Provider       string
	Enabled        bool
	SampleRatio    float64
}

// ConfigFromEnv reads the OTEL_* variables. provider is the active LLM_PROVIDER
// and ends up as a resource attribute.
func ConfigFromEnv(provider string) Config {
	cfg := Config{
		ServiceName:    envOr("OTEL_SERVICE_NAME", "krishak-advisor"),
		ServiceVersion: envOr("SERVICE_VERSION", "0.0.0"),
		Environment:    envOr("DEPLOYMENT_ENV", "development"),
		Endpoint:       strings.TrimRight(envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"), "/"),
		Provider:       provider,
		Enabled:        os.Getenv("OTEL_ENABLED") == "true",
		SampleRatio:    1,
	}
	if f, err := strconv.ParseFloat(os.Getenv("OTEL_TRACE_SAMPLE_RATIO"), 64); err == nil && f >= 0 && f <= 1 {
		cfg.SampleRatio = f
	}
	return cfg
}

// ShutdownFunc flushes and stops whatever InitProvider installed.
type ShutdownFunc func(context.Context) error

// InitProvider installs the global tracer and logger providers and the W3C propagator.
// When cfg.Enabled is false nothing is installed and the shutdown func is a no-op.
func InitProvider(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	secure := strings.HasPrefix(cfg.Endpoint, "https://")

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(signalURL(cfg.Endpoint, "traces"))}
	if !secure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
	}
	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("otel trace exporter: %w", err)
	}

	logOpts := []otlploghttp.Option{otlploghttp.WithEndpointURL(signalURL(cfg.Endpoint, "logs"))}
	if !secure {
		logOpts = append(logOpts, otlploghttp.WithInsecure())
	}
	logExporter, err := otlploghttp.New(ctx, logOpts...)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		return nil, fmt.Errorf("otel log exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(NewSampler(cfg.SampleRatio)),
	)
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter, sdklog.WithExportInterval(5*time.Second))),
		sdklog.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	global.SetLoggerProvider(lp)

	// Logs first so records emitted while spans end still go out.
	return func(ctx context.Context) error {
		return errors.Join(lp.Shutdown(ctx), tp.Shutdown(ctx))
	}, nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	}
	if cfg.Provider != "" {
		attrs = append(attrs, ProviderKey.String(cfg.Provider))
	}
	return resource.New(ctx, resource.WithAttributes(attrs...), resource.WithHost())
}

// signalURL appends the OTLP/HTTP signal path to the collector base.
func signalURL(endpoint, signal string) string {
	u, err := url.JoinPath(endpoint, "v1", signal)
	if err != nil {
		return endpoint + "/v1/" + signal
	}
	return u
}

// NewSampler keeps every root llm.send span and samples other roots at ratio.
// Children follow their parent.
func NewSampler(ratio float64) sdktrace.Sampler {
	return sdktrace.ParentBased(sendSampler{ratio: sdktrace.TraceIDRatioBased(ratio)})
}

type sendSampler struct {
	ratio sdktrace.Sampler
}

func (s sendSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	if p.Name == SendSpanName {
		return sdktrace.AlwaysSample().ShouldSample(p)
	}
	return s.ratio.ShouldSample(p)
}

func (s sendSampler) Description() string {
	return "SendSampler{" + s.ratio.Description() + "}"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
