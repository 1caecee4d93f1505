package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyPrompt        = errors.New("prompt is empty")
	ErrAttachmentMIMEType = errors.New("attachment has no media type")
	ErrEmptyAttachment    = errors.New("attachment has no data")
	ErrEmptyResponse      = errors.New("model returned no usable text")
	ErrNoContribution     = errors.New("model output contributed no fields")
	ErrUnsupportedOutput  = errors.New("unsupported model output variant")
	ErrPartialStream      = errors.New("stream failed after fragments were delivered")
)

// ConfigurationError reports missing or invalid startup configuration. It is never retried.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

// TransportKind classifies a transport failure for the retry controller.
type TransportKind int

const (
	KindHTTPStatus TransportKind = iota
	KindClientInvalid
	KindRateLimited
	KindTransient
	KindEmptyResponse
)

func (k TransportKind) String() string {
	switch k {
	case KindClientInvalid:
		return "client_invalid"
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	case KindEmptyResponse:
		return "empty_response"
	default:
		return "http_status"
	}
}

// TransportError is a network or HTTP-layer failure.
type TransportError struct {
	Kind       TransportKind
	Status     int
	Body       string
	RetryAfter time.Duration
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("transport %s: status %d: %s", e.Kind, e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("transport %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("transport %s", e.Kind)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewStatusError builds a TransportError whose kind follows the HTTP status.
func NewStatusError(status int, body string, retryAfter time.Duration) *TransportError {
	return &TransportError{
		Kind:       ClassifyHTTPStatus(status),
		Status:     status,
		Body:       body,
		RetryAfter: retryAfter,
	}
}

// ExtractionKind describes why extraction failed.
type ExtractionKind int

const (
	MalformedJSON ExtractionKind = iota
)

func (k ExtractionKind) String() string { return "malformed_json" }

// ExtractionError means model text could not be parsed into structured data.
type ExtractionError struct {
	Kind       ExtractionKind
	RawSnippet string
	Err        error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction %s: %q", e.Kind, e.RawSnippet)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// BailedError is returned when retrying stopped because the failure cannot be fixed by retrying.
type BailedError struct {
	Attempts int
	Cause    error
}

func (e *BailedError) Error() string {
	return fmt.Sprintf("generation bailed after %d attempt(s): %v", e.Attempts, e.Cause)
}

func (e *BailedError) Unwrap() error { return e.Cause }

// ExhaustedError is returned when every allowed attempt failed.
type ExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("generation exhausted after %d attempt(s): %v", e.Attempts, e.Cause)
}

func (e *ExhaustedError) Unwrap() error { return e.Cause }

// InputError reports a caller request that failed validation before any model call.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Message)
}

// IsTerminal reports whether err is a Bailed or Exhausted outcome.
func IsTerminal(err error) bool {
	var bailed *BailedError
	var exhausted *ExhaustedError
	return errors.As(err, &bailed) || errors.As(err, &exhausted)
}

// ErrorKind returns a short label for logging and metrics.
func ErrorKind(err error) string {
	var cfgErr *ConfigurationError
	var inErr *InputError
	var tErr *TransportError
	var xErr *ExtractionError
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &inErr):
		return "input"
	case errors.As(err, &tErr):
		return tErr.Kind.String()
	case errors.As(err, &xErr):
		return "extraction"
	case errors.Is(err, ErrNoContribution):
		return "no_contribution"
	default:
		return "unknown"
	}
}
