// ABOUTME: Transport for OpenAI-compatible chat completion APIs (Groq by default).
// ABOUTME: Batch reads choices[0].message.content, streaming reads SSE deltas until [DONE].
package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ayuxy027/Krishak-AI/internal/adapter/llmhttp"
	"github.com/ayuxy027/Krishak-AI/internal/domain"
)

const providerName = "openai"

// Config selects the endpoint and credentials. BaseURL is the API root,
// e.g. https://api.groq.com/openai/v1, or a full .../chat/completions URL.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Pacing  time.Duration
}

// Client sends GenerationRequests to a chat completions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    llmhttp.Limiter
	logger     *slog.Logger
}

// NewClient builds an OpenAI-compatible transport. limiter may be nil.
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

func (c *Client) endpoint() string {
	if strings.HasSuffix(c.cfg.BaseURL, "/chat/completions") {
		return c.cfg.BaseURL
	}
	return c.cfg.BaseURL + "/chat/completions"
}

// Send issues one chat completion call.
func (c *Client) Send(ctx context.Context, req *domain.GenerationRequest) (domain.RawModelOutput, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := llmhttp.StartSpan(ctx, providerName, c.cfg.Model, req.Mode)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if req.Mode == domain.ModeStreaming {
		header.Set("Accept", "text/event-stream")
	}

	c.logger.DebugContext(ctx, "sending chat completion request",
		"provider", providerName,
		"model", c.cfg.Model,
		"mode", req.Mode.String(),
		"prompt_length", len(req.Prompt))

	resp, err := llmhttp.PostJSON(ctx, c.httpClient, c.limiter, c.endpoint(), header, c.buildRequest(req))
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

	var body chatResponse
	if err := llmhttp.DecodeJSON(resp, &body); err != nil {
		llmhttp.EndSpan(span, err)
		return nil, err
	}

	var text string
	if len(body.Choices) > 0 && body.Choices[0].Message != nil {
		text = body.Choices[0].Message.Content
	}
	if strings.TrimSpace(text) == "" {
		err := &domain.TransportError{Kind: domain.KindEmptyResponse, Status: resp.StatusCode, Err: domain.ErrEmptyResponse}
		llmhttp.EndSpan(span, err)
		return nil, err
	}
	llmhttp.EndSpan(span, nil)
	return domain.BatchOutput{Text: text}, nil
}

func (c *Client) buildRequest(req *domain.GenerationRequest) chatRequest {
	var messages []chatMessage
	if req.SystemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemInstruction})
	}

	if req.Attachment != nil {
		dataURL := fmt.Sprintf("data:%s;base64,%s", req.Attachment.MIMEType, base64.StdEncoding.EncodeToString(req.Attachment.Data))
		messages = append(messages, chatMessage{Role: "user", Content: []contentPart{
			{Type: "text", Text: req.Prompt},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		}})
	} else {
		messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	}

	p := req.Parameters
	return chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: p.Temperature,
		TopP:        p.TopP,
		MaxTokens:   p.MaxOutputTokens,
		Stop:        p.StopSequences,
		Stream:      req.Mode == domain.ModeStreaming,
	}
}

func decodeStreamChunk(data string) (string, bool, error) {
	var chunk chatResponse
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", false, &domain.TransportError{Kind: domain.KindTransient, Err: fmt.Errorf("failed to decode stream chunk: %w", err)}
	}
	if chunk.Error != nil {
		return "", false, &domain.TransportError{Kind: domain.KindTransient, Err: fmt.Errorf("upstream stream error: %s", chunk.Error.Message)}
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta == nil {
		return "", false, nil
	}
	return chunk.Choices[0].Delta.Content, false, nil
}

var _ domain.Transport = (*Client)(nil)
