package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
)

func TestHostRateLimiter_WaitForHost(t *testing.T) {
	tests := map[string]struct {
		urlStr  string
		wantErr bool
	}{
		"gemini endpoint":   {urlStr: "https://generativelanguage.googleapis.com/v1beta/models/x:generateContent"},
		"groq endpoint":     {urlStr: "https://api.groq.com/openai/v1/chat/completions"},
		"missing host":      {urlStr: "/relative/path", wantErr: true},
		"unparseable input": {urlStr: "http://[::1", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			limiter := NewHostRateLimiter(100)
			err := limiter.WaitForHost(context.Background(), tc.urlStr)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestHostRateLimiter_Disabled(t *testing.T) {
	var nilLimiter *HostRateLimiter
	assert.NoError(t, nilLimiter.WaitForHost(context.Background(), "::not a url"))

	unlimited := NewHostRateLimiter(0)
	for range 50 {
		require.NoError(t, unlimited.WaitForHost(context.Background(), "https://api.groq.com/x"))
	}
}

func TestHostRateLimiter_SharesBucketPerHost(t *testing.T) {
	limiter := NewHostRateLimiter(1)

	require.NoError(t, limiter.WaitForHost(context.Background(), "https://api.groq.com/a"))
	require.NoError(t, limiter.WaitForHost(context.Background(), "https://example.com/b"), "other hosts have their own bucket")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.WaitForHost(ctx, "https://api.groq.com/c")
	require.Error(t, err)

	var tErr *domain.TransportError
	if errors.As(err, &tErr) {
		assert.Equal(t, domain.KindRateLimited, tErr.Kind)
	} else {
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
}

func TestHostRateLimiter_Cancelled(t *testing.T) {
	limiter := NewHostRateLimiter(0.001)
	require.NoError(t, limiter.WaitForHost(context.Background(), "https://api.groq.com/a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := limiter.WaitForHost(ctx, "https://api.groq.com/a")
	assert.ErrorIs(t, err, context.Canceled)
}
