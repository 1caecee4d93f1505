// ABOUTME: Transport for the Gemini REST generateContent API, batch and SSE streaming.
// ABOUTME: Normalizes candidate envelopes into domain.BatchOutput / domain.StreamOutput.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ayuxy027/Krishak-AI/internal/adapter/llmhttp"
	"github.com/ayuxy027/Krishak-AI/internal/domain"
)

const (
	providerName    = "gemini"
	batchMethod     = ":generateContent"
	streamingMethod = ":streamGenerateContent"
)

// Config selects the endpoint and credentials.
// BaseURL is either an API root such as https://generativelanguage.googleapis.com/v1beta,
// or a complete ...:generateContent URL, in which case Model is ignored.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	KeyInQuery bool
	Pacing     time.Duration
}

// Client sends GenerationRequests to Gemini over REST.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    llmhttp.Limiter
	logger     *slog.Logger
}

// NewClient builds a Gemini transport. limiter may be nil.
func NewClient(cfg Config, httpClient *http.Client, limiter llmhttp.Limiter, logger *slog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
	}
}

func (c *Client) Provider() string { return providerName }

// Send issues one generateContent or streamGenerateContent call.
func (c *Client) Send(ctx context.Context, req *domain.GenerationRequest) (domain.RawModelOutput, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := llmhttp.StartSpan(ctx, providerName, c.cfg.Model, req.Mode)

	endpoint, err := c.endpoint(req.Mode)
	if err != nil {
		llmhttp.EndSpan(span, err)
		return nil, err
	}

	header := http.Header{}
	if !c.cfg.KeyInQuery {
		header.Set("x-goog-api-key", c.cfg.APIKey)
	}

	c.logger.DebugContext(ctx, "sending generation request",
		"provider", providerName,
		"model", c.cfg.Model,
		"mode", req.Mode.String(),
		"prompt_length", len(req.Prompt),
		"has_attachment", req.Attachment != nil)

	resp, err := llmhttp.PostJSON(ctx, c.httpClient, c.limiter, endpoint, header, buildRequest(req))
	if err != nil {
		llmhttp.EndSpan(span, err)
		return nil, err
	}

	if req.Mode == domain.ModeStreaming {
		return llmhttp.StartStream(ctx, resp.Body, llmhttp.StreamConfig{
			Pacing: c.cfg.Pacing,
			Decode: decodeStreamChunk,
			OnEnd:  func(err error) { llmhttp.EndSpan(span, err) },
		}), nil
	}

	var body generateResponse
	if err := llmhttp.DecodeJSON(resp, &body); err != nil {
		llmhttp.EndSpan(span, err)
		return nil, err
	}
	text, err := body.text()
	if err == nil && strings.TrimSpace(text) == "" {
		err = &domain.TransportError{Kind: domain.KindEmptyResponse, Status: resp.StatusCode, Err: domain.ErrEmptyResponse}
	}
	llmhttp.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	return domain.BatchOutput{Text: text}, nil
}

func (c *Client) endpoint(mode domain.Mode) (string, error) {
	raw := c.cfg.BaseURL
	if !strings.Contains(raw, batchMethod) && !strings.Contains(raw, streamingMethod) {
		raw = fmt.Sprintf("%s/models/%s%s", raw, c.cfg.Model, batchMethod)
	}
	if mode == domain.ModeStreaming && !strings.Contains(raw, streamingMethod) {
		raw = strings.Replace(raw, batchMethod, streamingMethod, 1)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", &domain.ConfigurationError{Key: "GEMINI_API_URL", Reason: err.Error()}
	}
	q := u.Query()
	if mode == domain.ModeStreaming {
		q.Set("alt", "sse")
	}
	if c.cfg.KeyInQuery {
		q.Set("key", c.cfg.APIKey)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func buildRequest(req *domain.GenerationRequest) generateRequest {
	parts := []part{{Text: req.Prompt}}
	if req.Attachment != nil {
		parts = append(parts, part{InlineData: &inlineData{
			MIMEType: req.Attachment.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(req.Attachment.Data),
		}})
	}

	out := generateRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: &generationConfig{
			Temperature:     req.Parameters.Temperature,
			TopK:            req.Parameters.TopK,
			TopP:            req.Parameters.TopP,
			MaxOutputTokens: req.Parameters.MaxOutputTokens,
			StopSequences:   req.Parameters.StopSequences,
		},
	}
	if req.SystemInstruction != "" {
		out.SystemInstruction = &content{Parts: []part{{Text: req.SystemInstruction}}}
	}
	for _, s := range req.SafetySettings {
		out.SafetySettings = append(out.SafetySettings, safetySetting{Category: s.Category, Threshold: s.Threshold})
	}
	return out
}

func decodeStreamChunk(data string) (string, bool, error) {
	var chunk generateResponse
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", false, &domain.TransportError{Kind: domain.KindTransient, Err: fmt.Errorf("failed to decode stream chunk: %w", err)}
	}
	text, err := chunk.text()
	if err != nil {
		return "", false, err
	}
	done := len(chunk.Candidates) > 0 && chunk.Candidates[0].FinishReason != "" && chunk.Candidates[0].FinishReason != "FINISH_REASON_UNSPECIFIED"
	return text, done, nil
}

var _ domain.Transport = (*Client)(nil)
