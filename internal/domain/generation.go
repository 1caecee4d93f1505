package domain

import (
	"slices"
	"strings"
)

// Mode selects how the transport returns model output.
type Mode int

const (
	ModeBatch Mode = iota
	ModeStreaming
)

func (m Mode) String() string {
	switch m {
	case ModeStreaming:
		return "streaming"
	default:
		return "batch"
	}
}

// Attachment is a binary blob sent inline with the prompt.
type Attachment struct {
	Data     []byte
	MIMEType string
}

// ModelParameters carries sampling settings. Nil pointers are left to the provider default.
type ModelParameters struct {
	Temperature     *float64
	TopP            *float64
	TopK            *int
	MaxOutputTokens *int
	StopSequences   []string
}

// SafetySetting is a Gemini harm-category threshold. Other providers ignore it.
type SafetySetting struct {
	Category  string
	Threshold string
}

// DefaultSafetySettings blocks medium-and-above for the four standard harm categories.
func DefaultSafetySettings() []SafetySetting {
	categories := []string{
		"HARM_CATEGORY_HARASSMENT",
		"HARM_CATEGORY_HATE_SPEECH",
		"HARM_CATEGORY_SEXUALLY_EXPLICIT",
		"HARM_CATEGORY_DANGEROUS_CONTENT",
	}
	settings := make([]SafetySetting, 0, len(categories))
	for _, c := range categories {
		settings = append(settings, SafetySetting{Category: c, Threshold: "BLOCK_MEDIUM_AND_ABOVE"})
	}
	return settings
}

// GenerationRequest is a single-use request to the generative endpoint.
// Construct it with NewGenerationRequest; fields are not modified afterwards.
type GenerationRequest struct {
	Prompt            string
	SystemInstruction string
	Attachment        *Attachment
	Mode              Mode
	Parameters        ModelParameters
	SafetySettings    []SafetySetting
}

// RequestOption customizes a GenerationRequest at construction time.
type RequestOption func(*GenerationRequest)

// WithSystemInstruction sets the system role text.
func WithSystemInstruction(s string) RequestOption {
	return func(r *GenerationRequest) { r.SystemInstruction = s }
}

// WithAttachment attaches inline binary data.
func WithAttachment(data []byte, mimeType string) RequestOption {
	return func(r *GenerationRequest) {
		r.Attachment = &Attachment{Data: slices.Clone(data), MIMEType: mimeType}
	}
}

// WithMode sets batch or streaming mode.
func WithMode(m Mode) RequestOption {
	return func(r *GenerationRequest) { r.Mode = m }
}

// WithParameters sets the sampling parameters.
func WithParameters(p ModelParameters) RequestOption {
	return func(r *GenerationRequest) {
		p.StopSequences = slices.Clone(p.StopSequences)
		r.Parameters = p
	}
}

// WithSafetySettings sets provider safety thresholds.
func WithSafetySettings(s []SafetySetting) RequestOption {
	return func(r *GenerationRequest) { r.SafetySettings = slices.Clone(s) }
}

// NewGenerationRequest builds an immutable request.
func NewGenerationRequest(prompt string, opts ...RequestOption) *GenerationRequest {
	r := &GenerationRequest{Prompt: prompt}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WithStreaming returns a copy of the request in streaming mode.
func (r *GenerationRequest) WithStreaming() *GenerationRequest {
	cp := *r
	cp.Mode = ModeStreaming
	return &cp
}

// Validate rejects requests that no provider could accept.
func (r *GenerationRequest) Validate() error {
	if r == nil || strings.TrimSpace(r.Prompt) == "" {
		return &TransportError{Kind: KindClientInvalid, Err: ErrEmptyPrompt}
	}
	if r.Attachment != nil {
		if r.Attachment.MIMEType == "" {
			return &TransportError{Kind: KindClientInvalid, Err: ErrAttachmentMIMEType}
		}
		if len(r.Attachment.Data) == 0 {
			return &TransportError{Kind: KindClientInvalid, Err: ErrEmptyAttachment}
		}
	}
	return nil
}

// Float returns a pointer to v. Used for ModelParameters literals.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
