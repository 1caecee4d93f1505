package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
)

// GenericFailureMessage is the only failure text shown to end users.
const GenericFailureMessage = "couldn't get a response, please try again"

// StatusClientClosedRequest is logged when the caller went away mid-generation.
const StatusClientClosedRequest = 499

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func badRequest(c echo.Context, field, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Field: field})
}

// statusFor maps a use case error to an HTTP status and public message.
func statusFor(err error) (int, ErrorResponse) {
	var inErr *domain.InputError
	var cfgErr *domain.ConfigurationError
	switch {
	case errors.As(err, &inErr):
		return http.StatusBadRequest, ErrorResponse{Error: inErr.Message, Field: inErr.Field}
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, ErrorResponse{Error: GenericFailureMessage}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{Error: GenericFailureMessage}
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError, ErrorResponse{Error: GenericFailureMessage}
	default:
		return http.StatusBadGateway, ErrorResponse{Error: GenericFailureMessage}
	}
}

func (h *Handler) handleError(c echo.Context, ctx context.Context, err error) error {
	status, body := statusFor(err)
	attrs := []any{
		"error", err,
		"error_kind", domain.ErrorKind(err),
		"status", status,
		"path", c.Request().URL.Path,
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "advisory request failed", attrs...)
	} else {
		h.logger.InfoContext(ctx, "advisory request rejected", attrs...)
	}

	if status == StatusClientClosedRequest {
		// Nobody is reading the response.
		return nil
	}
	return c.JSON(status, body)
}
