package domain

import (
	"context"
	"errors"
	"net"
	"net/http"
	"syscall"
)

// ClassifyHTTPStatus maps an upstream HTTP status to a transport kind.
func ClassifyHTTPStatus(status int) TransportKind {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusRequestTimeout:
		return KindTransient
	case status >= 500 && status <= 599:
		return KindTransient
	case status >= 400 && status <= 499:
		// Bad request shape, credentials, or missing model: retrying cannot help.
		return KindClientInvalid
	default:
		return KindHTTPStatus
	}
}

// ClassifyError maps an error from a transport call to a kind.
// Errors that say nothing about transience are treated as client-invalid so
// the retry controller bails instead of repeating an unknown failure.
func ClassifyError(err error) TransportKind {
	if err == nil {
		return KindHTTPStatus
	}

	var tErr *TransportError
	if errors.As(err, &tErr) {
		if tErr.Kind == KindHTTPStatus && tErr.Status != 0 {
			return ClassifyHTTPStatus(tErr.Status)
		}
		return tErr.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ETIMEDOUT) {
		return KindTransient
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Timeout() {
		return KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsTemporary {
		return KindTransient
	}

	return KindClientInvalid
}

// WrapNetworkError converts a failed round trip into a TransportError.
// Context cancellation is returned unchanged so callers stop immediately.
func WrapNetworkError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return err
	}
	kind := ClassifyError(err)
	var netErr net.Error
	if kind == KindClientInvalid && errors.As(err, &netErr) {
		// A round trip that never produced a status is treated as a flaky connection.
		kind = KindTransient
	}
	return &TransportError{Kind: kind, Err: err}
}
