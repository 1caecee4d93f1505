// ABOUTME: Transport built on the google.golang.org/genai SDK for the Gemini API backend.
// ABOUTME: Same contract as the REST adapter; SDK APIError codes map onto TransportError kinds.
package genaisdk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/ayuxy027/Krishak-AI/internal/adapter/llmhttp"
	"github.com/ayuxy027/Krishak-AI/internal/domain"
)

const (
	providerName   = "genai"
	defaultBaseURL = "https://generativelanguage.googleapis.com/"
)

// Config selects the model and credentials. BaseURL is optional and overrides the SDK default host.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Pacing  time.Duration
}

// Client adapts a genai.Client to domain.Transport.
type Client struct {
	client  *genai.Client
	cfg     Config
	limiter llmhttp.Limiter
	logger  *slog.Logger
}

// NewClient builds the SDK client. httpClient may be nil to use the SDK default.
func NewClient(ctx context.Context, cfg Config, httpClient *http.Client, limiter llmhttp.Limiter, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, &domain.ConfigurationError{Key: "GEMINI_API_KEY", Reason: "required for the genai provider"}
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{client: client, cfg: cfg, limiter: limiter, logger: logger}, nil
}

func (c *Client) Provider() string { return providerName }

func (c *Client) host() string {
	if c.cfg.BaseURL != "" {
		return c.cfg.BaseURL
	}
	return defaultBaseURL
}

// Send calls Models.GenerateContent, or Models.GenerateContentStream in streaming mode.
func (c *Client) Send(ctx context.Context, req *domain.GenerationRequest) (domain.RawModelOutput, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := llmhttp.StartSpan(ctx, providerName, c.cfg.Model, req.Mode)

	if c.limiter != nil {
		if err := c.limiter.WaitForHost(ctx, c.host()); err != nil {
			llmhttp.EndSpan(span, err)
			return nil, err
		}
	}

	contents, config := buildContent(req)

	c.logger.DebugContext(ctx, "sending generation request",
		"provider", providerName,
		"model", c.cfg.Model,
		"mode", req.Mode.String(),
		"prompt_length", len(req.Prompt))

	if req.Mode == domain.ModeStreaming {
		return c.stream(ctx, contents, config, func(err error) { llmhttp.EndSpan(span, err) }), nil
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, config)
	if err != nil {
		err = mapError(ctx, err)
		llmhttp.EndSpan(span, err)
		return nil, err
	}

	text, err := responseText(resp)
	if err == nil && strings.TrimSpace(text) == "" {
		err = &domain.TransportError{Kind: domain.KindEmptyResponse, Err: domain.ErrEmptyResponse}
	}
	llmhttp.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return domain.BatchOutput{Text: text}, nil
}

func (c *Client) stream(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig, onEnd func(error)) domain.StreamOutput {
	fragments := make(chan domain.StreamFragment)
	errs := make(chan error, 1)

	go func() {
		defer close(fragments)

		fail := func(err error) {
			onEnd(err)
			errs <- err
		}

		sent := 0
		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.cfg.Model, contents, config) {
			if err != nil {
				fail(mapError(ctx, err))
				return
			}
			text, err := responseText(resp)
			if err != nil {
				fail(err)
				return
			}
			if text == "" {
				continue
			}
			if sent > 0 {
				if err := llmhttp.Pace(ctx, c.cfg.Pacing); err != nil {
					fail(err)
					return
				}
			}
			select {
			case fragments <- domain.StreamFragment{Text: text}:
				sent++
			case <-ctx.Done():
				fail(ctx.Err())
				return
			}
		}

		onEnd(nil)
		select {
		case fragments <- domain.StreamFragment{Done: true}:
		case <-ctx.Done():
		}
	}()

	return domain.StreamOutput{Fragments: fragments, Errs: errs}
}

func buildContent(req *domain.GenerationRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	parts := []*genai.Part{{Text: req.Prompt}}
	if req.Attachment != nil {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{
			MIMEType: req.Attachment.MIMEType,
			Data:     req.Attachment.Data,
		}})
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	p := req.Parameters
	config := &genai.GenerateContentConfig{
		Temperature:   float32Ptr(p.Temperature),
		TopP:          float32Ptr(p.TopP),
		StopSequences: p.StopSequences,
	}
	if p.TopK != nil {
		topK := float32(*p.TopK)
		config.TopK = &topK
	}
	if p.MaxOutputTokens != nil {
		config.MaxOutputTokens = int32(*p.MaxOutputTokens)
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemInstruction}}}
	}
	for _, s := range req.SafetySettings {
		config.SafetySettings = append(config.SafetySettings, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}
	return contents, config
}

func float32Ptr(v *float64) *float32 {
	if v == nil {
		return nil
	}
	f := float32(*v)
	return &f
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", nil
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", &domain.TransportError{
			Kind: domain.KindClientInvalid,
			Err:  fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason),
		}
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

// mapError turns SDK failures into the transport taxonomy.
func mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewStatusError(apiErr.Code, apiErr.Message, 0)
	}
	return domain.WrapNetworkError(err)
}

var _ domain.Transport = (*Client)(nil)
