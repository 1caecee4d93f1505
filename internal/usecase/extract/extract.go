// Package extract recovers JSON payloads from free-form model text.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"unicode"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
)

const (
	fence          = "```"
	maxSnippetRune = 200
)

type options struct {
	collapseWhitespace bool
	sentinel           func(any) bool
}

// Option configures Extract.
type Option func(*options)

// WithCollapseWhitespace folds whitespace runs into single spaces before parsing.
// Only use it when no string field needs its line breaks.
func WithCollapseWhitespace() Option {
	return func(o *options) { o.collapseWhitespace = true }
}

// WithSentinel marks payloads matching fn as not applicable.
func WithSentinel(fn func(any) bool) Option {
	return func(o *options) { o.sentinel = fn }
}

// Extract parses the JSON value carried by raw.
//
// The trimmed text is tried as-is first, then with a surrounding code fence removed.
// When neither parses, the first top-level object or array embedded in prose is used.
func Extract(raw string, opts ...Option) (domain.ExtractedPayload, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	trimmed := strings.TrimSpace(raw)
	candidates := []string{trimmed}
	if stripped := StripFence(trimmed); stripped != trimmed {
		candidates = append(candidates, stripped)
	}
	if o.collapseWhitespace {
		for i, c := range candidates {
			candidates[i] = strings.Join(strings.FieldsFunc(c, unicode.IsSpace), " ")
		}
	}

	var (
		value any
		text  string
		err   error
	)
	for _, c := range candidates {
		if value, err = decode(c); err == nil {
			text = c
			break
		}
	}
	if err != nil {
		for i := len(candidates) - 1; i >= 0; i-- {
			if v, sliced, ok := scanJSON(candidates[i]); ok {
				value, text, err = v, sliced, nil
				break
			}
		}
	}
	if err != nil {
		return domain.ExtractedPayload{}, &domain.ExtractionError{
			Kind:       domain.MalformedJSON,
			RawSnippet: snippet(raw),
			Err:        err,
		}
	}

	payload := domain.ExtractedPayload{Value: value, Raw: text}
	if o.sentinel != nil && o.sentinel(value) {
		payload.NotApplicable = true
	}
	return payload, nil
}

// StripFence removes a surrounding markdown code fence and its language tag.
// Only a fence that opens a line counts; backticks inside a line are left alone.
// Text before the opening fence and after the closing fence is dropped.
// An unterminated fence keeps everything after the opening line.
func StripFence(text string) string {
	start := lineFence(text)
	if start < 0 {
		return text
	}
	body := text[start+len(fence):]

	// Language tag: letters, digits and a few punctuation marks up to the first line break.
	tagEnd := 0
	for tagEnd < len(body) && isTagByte(body[tagEnd]) {
		tagEnd++
	}
	if tagEnd == len(body) || body[tagEnd] == '\n' || body[tagEnd] == '\r' || body[tagEnd] == ' ' {
		body = body[tagEnd:]
	}

	if end := strings.LastIndex(body, fence); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// lineFence returns the index of the first fence at the start of text or of a line, or -1.
func lineFence(text string) int {
	for off := 0; off < len(text); {
		i := strings.Index(text[off:], fence)
		if i < 0 {
			return -1
		}
		i += off
		if i == 0 || text[i-1] == '\n' {
			return i
		}
		off = i + len(fence)
	}
	return -1
}

func isTagByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_' || b == '-' || b == '+'
}

// decode parses exactly one JSON value; trailing non-space content is an error.
func decode(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected content after JSON value")
	}
	return v, nil
}

// scanJSON finds the first object or array that starts outside any bracket opened
// earlier and decodes as a complete value. Prose after the value is ignored.
// Brackets inside an unclosed value are never tried on their own, so a truncated
// object does not yield one of its children.
func scanJSON(text string) (any, string, bool) {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		b := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			// Quotes only delimit strings inside a bracket; prose quotes are ignored.
			inString = depth > 0
		case '{', '[':
			if depth == 0 {
				if v, n, ok := decodePrefix(text[i:]); ok {
					return v, text[i : i+n], true
				}
			}
			depth++
		case '}', ']':
			if depth > 0 {
				depth--
			}
		}
	}
	return nil, "", false
}

// decodePrefix decodes the JSON value at the start of text and reports how many bytes it used.
func decodePrefix(text string) (any, int, bool) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, 0, false
	}
	return v, int(dec.InputOffset()), true
}

func snippet(raw string) string {
	raw = strings.TrimSpace(raw)
	runes := []rune(raw)
	if len(runes) <= maxSnippetRune {
		return raw
	}
	return string(runes[:maxSnippetRune]) + "..."
}

// Compact re-encodes a payload value for logging.
func Compact(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}
