// Package advisory implements the farmer-facing use cases: chat, crop market
// analytics, plant disease detection and modern farming analysis.
package advisory

import (
	"log/slog"
	"time"

	"github.com/ayuxy027/Krishak-AI/internal/infra/validation"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/generation"
)

// DefaultLocale picks the post-processing rules when a chat request names none.
const DefaultLocale = "en-IN"

// Service runs the advisory use cases on one generation client.
type Service struct {
	client        *generation.Client
	validator     *validation.Validator
	logger        *slog.Logger
	defaultLocale string
	now           func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithDefaultLocale overrides DefaultLocale.
func WithDefaultLocale(locale string) Option {
	return func(s *Service) {
		if locale != "" {
			s.defaultLocale = locale
		}
	}
}

// WithClock replaces time.Now for detection timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the advisory service.
func NewService(client *generation.Client, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		client:        client,
		validator:     validation.New(),
		logger:        logger,
		defaultLocale: DefaultLocale,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
