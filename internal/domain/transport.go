package domain

import (
	"context"
	"strings"
)

// Transport sends a GenerationRequest to a generative endpoint.
//
//go:generate mockgen -source=transport.go -destination=../mocks/mock_transport.go -package=mocks
type Transport interface {
	Send(ctx context.Context, req *GenerationRequest) (RawModelOutput, error)
	Provider() string
}

// RawModelOutput is either a BatchOutput or a StreamOutput.
// Provider envelopes are normalized into one of these at the transport boundary.
type RawModelOutput interface {
	rawModelOutput()
}

// BatchOutput holds the complete model text.
type BatchOutput struct {
	Text string
}

func (BatchOutput) rawModelOutput() {}

// StreamFragment is one piece of streamed text. The last fragment has Done set and no text.
type StreamFragment struct {
	Text string
	Done bool
}

// StreamOutput delivers fragments in arrival order. Errs receives at most one error,
// after which Fragments is closed without a Done fragment.
type StreamOutput struct {
	Fragments <-chan StreamFragment
	Errs      <-chan error
}

func (StreamOutput) rawModelOutput() {}

// Accumulate drains a stream, calling onFragment for each non-empty fragment in order.
// It returns the concatenation of every fragment received before the error or Done marker.
func Accumulate(ctx context.Context, out StreamOutput, onFragment func(string)) (string, error) {
	var sb strings.Builder
	fragments := out.Fragments
	errs := out.Errs
	for {
		select {
		case <-ctx.Done():
			return sb.String(), ctx.Err()
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if err != nil {
				return sb.String(), err
			}
		case f, ok := <-fragments:
			if !ok {
				// Closed without a Done marker: pick up a pending error if any.
				if errs != nil {
					select {
					case err := <-errs:
						if err != nil {
							return sb.String(), err
						}
					default:
					}
				}
				return sb.String(), nil
			}
			if f.Text != "" {
				sb.WriteString(f.Text)
				if onFragment != nil {
					onFragment(f.Text)
				}
			}
			if f.Done {
				return sb.String(), nil
			}
		}
	}
}
