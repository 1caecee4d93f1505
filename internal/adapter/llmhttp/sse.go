package llmhttp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
)

// DoneMarker ends an OpenAI-style event stream.
const DoneMarker = "[DONE]"

const maxEventSize = 1 << 20

// ReadSSE calls fn with the data of each server-sent event in r.
// Multi-line data fields are joined with "\n". Comments and other fields are ignored.
// Reading stops when fn returns stop=true, fn fails, or r is exhausted.
func ReadSSE(r io.Reader, fn func(data string) (stop bool, err error)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	var data []string
	dispatch := func() (bool, error) {
		if len(data) == 0 {
			return false, nil
		}
		payload := strings.Join(data, "\n")
		data = data[:0]
		return fn(payload)
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			if stop, err := dispatch(); stop || err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		if field != "data" {
			continue
		}
		data = append(data, strings.TrimPrefix(value, " "))
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	_, err := dispatch()
	return err
}

// DecodeFunc turns one event payload into model text. done reports the provider's end marker.
type DecodeFunc func(data string) (text string, done bool, err error)

// StreamConfig controls StartStream.
type StreamConfig struct {
	Pacing time.Duration
	Decode DecodeFunc
	// OnEnd runs once in the producer goroutine with the stream's final error, if any.
	OnEnd func(err error)
}

// StartStream reads events from body in a new goroutine and returns the channels
// the caller drains. The producer honours ctx between fragments and during pacing.
func StartStream(ctx context.Context, body io.ReadCloser, cfg StreamConfig) domain.StreamOutput {
	fragments := make(chan domain.StreamFragment)
	errs := make(chan error, 1)

	go func() {
		defer close(fragments)
		defer body.Close()

		sent := 0
		err := ReadSSE(body, func(data string) (bool, error) {
			if strings.TrimSpace(data) == DoneMarker {
				return true, nil
			}
			text, done, err := cfg.Decode(data)
			if err != nil {
				return true, err
			}
			if text != "" {
				if sent > 0 {
					if err := Pace(ctx, cfg.Pacing); err != nil {
						return true, err
					}
				}
				select {
				case fragments <- domain.StreamFragment{Text: text}:
					sent++
				case <-ctx.Done():
					return true, ctx.Err()
				}
			}
			return done, nil
		})
		err = streamError(ctx, err)

		if cfg.OnEnd != nil {
			cfg.OnEnd(err)
		}
		if err != nil {
			errs <- err
			return
		}
		select {
		case fragments <- domain.StreamFragment{Done: true}:
		case <-ctx.Done():
		}
	}()

	return domain.StreamOutput{Fragments: fragments, Errs: errs}
}

func streamError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var tErr *domain.TransportError
	if errors.As(err, &tErr) {
		return err
	}
	return &domain.TransportError{Kind: domain.KindTransient, Err: fmt.Errorf("stream interrupted: %w", err)}
}
