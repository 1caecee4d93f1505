package extract

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
)

// normalize decodes v through encoding/json so numbers compare as float64 on both sides.
func normalize(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var out any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestExtract_RoundTripThroughFence(t *testing.T) {
	values := map[string]any{
		"object":        map[string]any{"marketAnalysis": map[string]any{"summary": map[string]any{"currentPrice": 2400}}},
		"array":         []any{1, "two", true, nil},
		"string scalar": "multi\nline   text",
		"number scalar": 3.25,
		"bool scalar":   false,
		"null":          nil,
		"nested empty":  map[string]any{"a": []any{}, "b": map[string]any{}},
	}

	for name, x := range values {
		t.Run(name, func(t *testing.T) {
			encoded, err := json.Marshal(x)
			require.NoError(t, err)

			for _, wrapped := range []string{
				"```json\n" + string(encoded) + "\n```",
				"```\n" + string(encoded) + "\n```",
				string(encoded),
			} {
				payload, err := Extract(wrapped)
				require.NoError(t, err, wrapped)
				assert.Equal(t, normalize(t, x), normalize(t, payload.Value))
			}
		})
	}
}

func TestExtract(t *testing.T) {
	tests := map[string]struct {
		raw     string
		opts    []Option
		want    any
		wantErr bool
	}{
		"prose around object": {
			raw:  "Sure! Here is the analysis:\n{\"trend\": \"up\"}\nLet me know if you need more.",
			want: map[string]any{"trend": "up"},
		},
		"fence with prose before it": {
			raw:  "Here you go:\n```json\n{\"a\": 1}\n```\nThanks",
			want: map[string]any{"a": json.Number("1")},
		},
		"unterminated fence": {
			raw:  "```json\n{\"a\": [1, 2]}",
			want: map[string]any{"a": []any{json.Number("1"), json.Number("2")}},
		},
		"language tag glued to body": {
			raw:  "```json{\"a\": true}```",
			want: map[string]any{"a": true},
		},
		"collapse whitespace": {
			raw:  "{\n  \"summary\":   \"line one\nline two\"\n}",
			opts: []Option{WithCollapseWhitespace()},
			want: map[string]any{"summary": "line one line two"},
		},
		"backticks inside an unfenced string value": {
			raw:  "{\"symptomDescription\":\"model wrote ``` inline\",\"confidenceLevel\":90}",
			want: map[string]any{"symptomDescription": "model wrote ``` inline", "confidenceLevel": json.Number("90")},
		},
		"braced prose before the object": {
			raw:  "Here is the {analysis} you asked for: {\"a\":1}",
			want: map[string]any{"a": json.Number("1")},
		},
		"brackets in prose and prose after the object": {
			raw:  "Options [see below]: {\"crop\": \"rice\"} and that is all {really}.",
			want: map[string]any{"crop": "rice"},
		},
		"plain prose fails": {
			raw:     "I am sorry, I cannot help with that request.",
			wantErr: true,
		},
		"empty text fails": {
			raw:     "   ",
			wantErr: true,
		},
		"truncated object fails": {
			raw:     "```json\n{\"a\": {\"b\": 1}\n```",
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			payload, err := Extract(tc.raw, tc.opts...)
			if tc.wantErr {
				var xErr *domain.ExtractionError
				require.ErrorAs(t, err, &xErr)
				assert.Equal(t, domain.MalformedJSON, xErr.Kind)
				assert.Equal(t, strings.TrimSpace(tc.raw), xErr.RawSnippet)
				assert.Nil(t, payload.Value)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, payload.Value)
			assert.False(t, payload.NotApplicable)
		})
	}
}

func TestExtract_Sentinel(t *testing.T) {
	sentinel := domain.NotApplicableSentinel("diseaseName", "Not Applicable", "Invalid Query")
	raw := "```json\n{\"diseaseName\": \"Not Applicable\", \"cropName\": \"Invalid Input\", \"confidenceLevel\": 0}\n```"

	payload, err := Extract(raw, WithSentinel(sentinel))

	require.NoError(t, err)
	assert.True(t, payload.NotApplicable)
	assert.Equal(t, "Invalid Input", payload.Value.(map[string]any)["cropName"])
}

func TestExtract_SnippetIsTruncated(t *testing.T) {
	raw := strings.Repeat("no json here ", 50)

	_, err := Extract(raw)

	var xErr *domain.ExtractionError
	require.ErrorAs(t, err, &xErr)
	assert.Equal(t, maxSnippetRune+len("..."), len([]rune(xErr.RawSnippet)))
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, "{}", StripFence("```json\n{}\n```"))
	assert.Equal(t, "[1]", StripFence("```c++\n[1]\n```"))
	assert.Equal(t, "no fence", StripFence("no fence"))
	assert.Equal(t, "{\"a\": 1}", StripFence("Result:\n```json\n{\"a\": 1}\n```"))
	assert.Equal(t, "say ``` mid-line", StripFence("say ``` mid-line"))
}

func TestCompact(t *testing.T) {
	payload, err := Extract(`{"price": 2400, "note": "<b>₹ per quintal</b>"}`)
	require.NoError(t, err)

	assert.Equal(t, `{"note":"<b>₹ per quintal</b>","price":2400}`, Compact(payload.Value))
	assert.Equal(t, "", Compact(func() {}))
}
