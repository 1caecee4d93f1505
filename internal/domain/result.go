package domain

import (
	"strings"
	"time"
)

// ExtractedPayload is a JSON-compatible value recovered from model text.
// Numbers are json.Number.
type ExtractedPayload struct {
	Value         any
	NotApplicable bool
	Raw           string
}

// ValidatedResult is a fully shaped value of T.
type ValidatedResult[T any] struct {
	Value T
	// Degraded is set when at least one declared field was filled from the default.
	Degraded        bool
	DefaultedFields []string
	// Contributed is false when no field came from the model output.
	Contributed   bool
	NotApplicable bool
	// Fallback is set when the value came from a fallback generator after retries ran out.
	Fallback bool
}

// RetryState tracks one retry controller invocation.
type RetryState struct {
	Attempt        int
	LastErr        error
	ElapsedBackoff time.Duration
}

// NotApplicableSentinel matches objects whose field equals one of values, ignoring case.
// Prompts instruct the model to answer spam or off-topic input with such an object.
func NotApplicableSentinel(field string, values ...string) func(any) bool {
	return func(v any) bool {
		obj, ok := v.(map[string]any)
		if !ok {
			return false
		}
		s, ok := obj[field].(string)
		if !ok {
			return false
		}
		s = strings.TrimSpace(s)
		for _, want := range values {
			if strings.EqualFold(s, want) {
				return true
			}
		}
		return false
	}
}
