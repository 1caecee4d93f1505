package genaisdk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
)

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), Config{
		APIKey:  "test-key",
		Model:   "gemini-1.5-flash",
		BaseURL: srv.URL + "/",
	}, srv.Client(), nil, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), Config{Model: "m"}, nil, nil, nil)

	var cfgErr *domain.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "GEMINI_API_KEY", cfgErr.Key)
}

func TestClient_SendBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-1.5-flash:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"ok\":"},{"text":"true}"}]}}]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv).Send(context.Background(), domain.NewGenerationRequest("hi"))
	require.NoError(t, err)
	assert.Equal(t, domain.BatchOutput{Text: `{"ok":true}`}, out)
}

func TestClient_SendBatchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Send(context.Background(), domain.NewGenerationRequest("hi"))

	var tErr *domain.TransportError
	require.True(t, errors.As(err, &tErr), "got %v", err)
	assert.Equal(t, domain.KindRateLimited, tErr.Kind)
	assert.Equal(t, http.StatusTooManyRequests, tErr.Status)
}

func TestClient_SendStreaming(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":streamGenerateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, text := range []string{"Hel", "lo, ", "world"} {
			_, _ = w.Write([]byte(`data: {"candidates":[{"content":{"role":"model","parts":[{"text":"` + text + `"}]}}]}` + "\n\n"))
			w.(http.Flusher).Flush()
		}
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv).Send(context.Background(), domain.NewGenerationRequest("hi").WithStreaming())
	require.NoError(t, err)

	var fragments []string
	text, err := domain.Accumulate(context.Background(), out.(domain.StreamOutput), func(s string) { fragments = append(fragments, s) })
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", text)
	assert.Equal(t, []string{"Hel", "lo, ", "world"}, fragments)
}

func TestBuildContent(t *testing.T) {
	req := domain.NewGenerationRequest("Describe the leaf",
		domain.WithSystemInstruction("plant pathologist"),
		domain.WithAttachment([]byte("img"), "image/png"),
		domain.WithParameters(domain.ModelParameters{
			Temperature:     domain.Float(0.4),
			TopK:            domain.Int(32),
			MaxOutputTokens: domain.Int(1024),
		}),
		domain.WithSafetySettings(domain.DefaultSafetySettings()),
	)

	contents, config := buildContent(req)

	require.Len(t, contents, 1)
	require.Len(t, contents[0].Parts, 2)
	assert.Equal(t, "Describe the leaf", contents[0].Parts[0].Text)
	assert.Equal(t, "image/png", contents[0].Parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte("img"), contents[0].Parts[1].InlineData.Data)
	assert.InDelta(t, 0.4, float64(*config.Temperature), 1e-6)
	assert.Nil(t, config.TopP)
	assert.Equal(t, float32(32), *config.TopK)
	assert.Equal(t, int32(1024), config.MaxOutputTokens)
	assert.Equal(t, "plant pathologist", config.SystemInstruction.Parts[0].Text)
	require.Len(t, config.SafetySettings, 4)
	assert.Equal(t, genai.HarmBlockThreshold("BLOCK_MEDIUM_AND_ABOVE"), config.SafetySettings[0].Threshold)
}

func TestMapError(t *testing.T) {
	tests := map[string]struct {
		err      error
		wantKind domain.TransportKind
	}{
		"rate limited":   {err: genai.APIError{Code: 429, Message: "quota"}, wantKind: domain.KindRateLimited},
		"unavailable":    {err: genai.APIError{Code: 503, Message: "overloaded"}, wantKind: domain.KindTransient},
		"bad request":    {err: genai.APIError{Code: 400, Message: "bad"}, wantKind: domain.KindClientInvalid},
		"connection err": {err: &wrapped{syscall.ECONNRESET}, wantKind: domain.KindTransient},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var tErr *domain.TransportError
			require.True(t, errors.As(mapError(context.Background(), tc.err), &tErr))
			assert.Equal(t, tc.wantKind, tErr.Kind)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, mapError(ctx, errors.New("any")), context.Canceled)
}

type wrapped struct{ err error }

func (w *wrapped) Error() string { return "sdk: " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }

func TestResponseText(t *testing.T) {
	text, err := responseText(&genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
			{Text: "thinking...", Thought: true},
			{Text: "answer"},
		}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "answer", text)

	_, err = responseText(&genai.GenerateContentResponse{
		PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
	})
	var tErr *domain.TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, domain.KindClientInvalid, tErr.Kind)
}
