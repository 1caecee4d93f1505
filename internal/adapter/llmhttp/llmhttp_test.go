package llmhttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
)

type recordingLimiter struct {
	urls []string
	err  error
}

func (l *recordingLimiter) WaitForHost(_ context.Context, urlStr string) error {
	l.urls = append(l.urls, urlStr)
	return l.err
}

func TestPostJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"q":"hi"}`, string(body))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	limiter := &recordingLimiter{}
	header := http.Header{}
	header.Set("Authorization", "Bearer k")

	resp, err := PostJSON(context.Background(), srv.Client(), limiter, srv.URL+"/x", header, map[string]string{"q": "hi"})
	require.NoError(t, err)

	var out struct{ OK bool }
	require.NoError(t, DecodeJSON(resp, &out))
	assert.True(t, out.OK)
	assert.Equal(t, []string{srv.URL + "/x"}, limiter.urls)
}

func TestPostJSON_StatusClassification(t *testing.T) {
	tests := map[string]struct {
		status     int
		retryAfter string
		wantKind   domain.TransportKind
		wantDelay  time.Duration
	}{
		"rate limited with hint": {status: http.StatusTooManyRequests, retryAfter: "2", wantKind: domain.KindRateLimited, wantDelay: 2 * time.Second},
		"server error":           {status: http.StatusServiceUnavailable, wantKind: domain.KindTransient},
		"bad request":            {status: http.StatusBadRequest, wantKind: domain.KindClientInvalid},
		"unauthorized":           {status: http.StatusUnauthorized, wantKind: domain.KindClientInvalid},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tc.retryAfter != "" {
					w.Header().Set("Retry-After", tc.retryAfter)
				}
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(" upstream says no \n"))
			}))
			defer srv.Close()

			_, err := PostJSON(context.Background(), srv.Client(), nil, srv.URL, nil, struct{}{})

			var tErr *domain.TransportError
			require.True(t, errors.As(err, &tErr))
			assert.Equal(t, tc.wantKind, tErr.Kind)
			assert.Equal(t, tc.status, tErr.Status)
			assert.Equal(t, "upstream says no", tErr.Body)
			assert.Equal(t, tc.wantDelay, tErr.RetryAfter)
		})
	}
}

func TestPostJSON_LimiterErrorSkipsCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	limiterErr := &domain.TransportError{Kind: domain.KindRateLimited}
	_, err := PostJSON(context.Background(), srv.Client(), &recordingLimiter{err: limiterErr}, srv.URL, nil, struct{}{})

	assert.Same(t, limiterErr, err)
	assert.False(t, called)
}

func TestPostJSON_ConnectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := PostJSON(context.Background(), http.DefaultClient, nil, url, nil, struct{}{})

	var tErr *domain.TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, domain.KindTransient, tErr.Kind)
}

func TestPostJSON_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := PostJSON(ctx, srv.Client(), nil, srv.URL, nil, struct{}{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := map[string]struct {
		in   string
		want time.Duration
	}{
		"empty":          {in: "", want: 0},
		"seconds":        {in: "3", want: 3 * time.Second},
		"fractional":     {in: "0.5", want: 500 * time.Millisecond},
		"negative":       {in: "-1", want: 0},
		"http date":      {in: now.Add(10 * time.Second).Format(http.TimeFormat), want: 10 * time.Second},
		"past http date": {in: now.Add(-time.Minute).Format(http.TimeFormat), want: 0},
		"garbage":        {in: "soon", want: 0},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseRetryAfter(tc.in, now))
		})
	}
}

func TestPace(t *testing.T) {
	assert.NoError(t, Pace(context.Background(), 0))
	assert.NoError(t, Pace(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.ErrorIs(t, Pace(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestReadSSE(t *testing.T) {
	stream := strings.Join([]string{
		": keep-alive",
		"event: message",
		"data: first",
		"",
		"data: line one",
		"data: line two",
		"",
		"id: 7",
		"",
		"data:no-space",
	}, "\r\n")

	var got []string
	err := ReadSSE(strings.NewReader(stream), func(data string) (bool, error) {
		got = append(got, data)
		return false, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"first", "line one\nline two", "no-space"}, got)
}

func TestReadSSE_StopAndError(t *testing.T) {
	stream := "data: a\n\ndata: b\n\ndata: c\n\n"

	var got []string
	err := ReadSSE(strings.NewReader(stream), func(data string) (bool, error) {
		got = append(got, data)
		return data == "b", nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	boom := errors.New("boom")
	err = ReadSSE(strings.NewReader(stream), func(string) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}

func plainDecode(data string) (string, bool, error) { return data, false, nil }

func TestStartStream_OrderAndDone(t *testing.T) {
	body := io.NopCloser(strings.NewReader("data: Hel\n\ndata: lo, \n\ndata: world\n\ndata: [DONE]\n\ndata: ignored\n\n"))

	var ended []error
	out := StartStream(context.Background(), body, StreamConfig{
		Decode: plainDecode,
		OnEnd:  func(err error) { ended = append(ended, err) },
	})

	var fragments []string
	text, err := domain.Accumulate(context.Background(), out, func(s string) { fragments = append(fragments, s) })

	require.NoError(t, err)
	assert.Equal(t, "Hello, world", text)
	assert.Equal(t, []string{"Hel", "lo, ", "world"}, fragments)
	assert.Equal(t, []error{nil}, ended)
}

type failingReader struct {
	r   io.Reader
	err error
}

func (f *failingReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if err == io.EOF {
		return n, f.err
	}
	return n, err
}

func (f *failingReader) Close() error { return nil }

func TestStartStream_MidStreamError(t *testing.T) {
	body := &failingReader{r: strings.NewReader("data: partial\n\n"), err: io.ErrUnexpectedEOF}

	out := StartStream(context.Background(), body, StreamConfig{Decode: plainDecode})
	text, err := domain.Accumulate(context.Background(), out, nil)

	assert.Equal(t, "partial", text)
	var tErr *domain.TransportError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, domain.KindTransient, tErr.Kind)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestStartStream_DecodeError(t *testing.T) {
	decodeErr := &domain.TransportError{Kind: domain.KindClientInvalid, Err: errors.New("blocked")}
	body := io.NopCloser(strings.NewReader("data: x\n\n"))

	out := StartStream(context.Background(), body, StreamConfig{
		Decode: func(string) (string, bool, error) { return "", false, decodeErr },
	})
	_, err := domain.Accumulate(context.Background(), out, nil)

	assert.Same(t, decodeErr, err)
}

func TestStartStream_PacingHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	body := io.NopCloser(strings.NewReader("data: a\n\ndata: b\n\n"))
	out := StartStream(ctx, body, StreamConfig{Decode: plainDecode, Pacing: time.Hour})

	first := <-out.Fragments
	assert.Equal(t, "a", first.Text)
	cancel()

	select {
	case err := <-out.Errs:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("producer did not stop after cancel")
	}
}
