package di

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ayuxy027/Krishak-AI/internal/adapter/gemini"
	"github.com/ayuxy027/Krishak-AI/internal/adapter/genaisdk"
	"github.com/ayuxy027/Krishak-AI/internal/adapter/openai"
	"github.com/ayuxy027/Krishak-AI/internal/adapter/rest"
	"github.com/ayuxy027/Krishak-AI/internal/domain"
	"github.com/ayuxy027/Krishak-AI/internal/infra/config"
	"github.com/ayuxy027/Krishak-AI/internal/infra/httpclient"
	"github.com/ayuxy027/Krishak-AI/internal/infra/metrics"
	"github.com/ayuxy027/Krishak-AI/internal/infra/ratelimit"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/advisory"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/generation"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	Transport  domain.Transport
	Generation *generation.Client
	Advisory   *advisory.Service
	Handler    *rest.Handler

	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
}

// NewApplicationComponents wires the transport selected by cfg.Provider and everything above it.
func NewApplicationComponents(ctx context.Context, cfg *config.Config, log *slog.Logger) (*ApplicationComponents, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	transport, err := NewTransport(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	client := generation.NewClient(transport, cfg.Retry.Policy(), log, generation.WithMetrics(m))
	svc := advisory.NewService(client, log, advisory.WithDefaultLocale(cfg.DefaultLocale))

	return &ApplicationComponents{
		Transport:  transport,
		Generation: client,
		Advisory:   svc,
		Handler:    rest.NewHandler(svc, log),
		Registry:   reg,
		Metrics:    m,
	}, nil
}

// NewTransport builds the provider transport on a pooled HTTP client and a per-host rate limiter.
func NewTransport(ctx context.Context, cfg *config.Config, log *slog.Logger) (domain.Transport, error) {
	httpClient := httpclient.NewPooledClient(cfg.LLM.Timeout)
	limiter := ratelimit.NewHostRateLimiter(cfg.LLM.RequestsPerSecond)

	switch cfg.Provider {
	case config.ProviderGemini:
		return gemini.NewClient(gemini.Config{
			BaseURL:    cfg.Gemini.APIURL,
			APIKey:     cfg.Gemini.APIKey,
			Model:      cfg.Gemini.Model,
			KeyInQuery: cfg.Gemini.KeyInQuery,
			Pacing:     cfg.LLM.StreamPacing,
		}, httpClient, limiter, log), nil
	case config.ProviderOpenAI:
		return openai.NewClient(openai.Config{
			BaseURL: cfg.OpenAI.APIURL,
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			Pacing:  cfg.LLM.StreamPacing,
		}, httpClient, limiter, log), nil
	case config.ProviderGenAI:
		return genaisdk.NewClient(ctx, genaisdk.Config{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: hostRoot(cfg.Gemini.APIURL),
			Pacing:  cfg.LLM.StreamPacing,
		}, httpClient, limiter, log)
	default:
		return nil, &domain.ConfigurationError{Key: "LLM_PROVIDER", Reason: fmt.Sprintf("unknown provider %q", cfg.Provider)}
	}
}

// hostRoot reduces a REST endpoint to scheme and host. The SDK adds the API version itself.
func hostRoot(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/"
}
