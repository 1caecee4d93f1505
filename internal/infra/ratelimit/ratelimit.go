// Package ratelimit throttles outbound calls to each model endpoint host.
package ratelimit

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
)

// HostRateLimiter keeps one token bucket per endpoint host.
// A nil *HostRateLimiter, or one built with a non-positive rate, never waits.
type HostRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	perSec   rate.Limit
}

// NewHostRateLimiter allows perSecond requests per host with a burst of one.
func NewHostRateLimiter(perSecond float64) *HostRateLimiter {
	return &HostRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		perSec:   rate.Limit(perSecond),
	}
}

// WaitForHost blocks until the host of urlStr may be called, or ctx ends.
// A limiter that could not be satisfied before the deadline reports a rate-limited TransportError.
func (h *HostRateLimiter) WaitForHost(ctx context.Context, urlStr string) error {
	if h == nil || h.perSec <= 0 {
		return nil
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return err
	}

	host := parsedURL.Host
	if host == "" {
		return &url.Error{Op: "parse", URL: urlStr, Err: errors.New("missing host in URL")}
	}

	if err := h.getLimiterForHost(host).Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &domain.TransportError{Kind: domain.KindRateLimited, Err: err}
	}
	return nil
}

func (h *HostRateLimiter) getLimiterForHost(host string) *rate.Limiter {
	h.mu.RLock()
	limiter, exists := h.limiters[host]
	h.mu.RUnlock()

	if exists {
		return limiter
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if limiter, exists := h.limiters[host]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(h.perSec, 1)
	h.limiters[host] = limiter
	return limiter
}
