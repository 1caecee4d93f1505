package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ayuxy027/Krishak-AI/internal/infra/logger"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/advisory"
)

// StreamEvent is one SSE data frame of the chat stream.
type StreamEvent struct {
	Delta string `json:"delta,omitempty"`
	Done  bool   `json:"done,omitempty"`
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// ChatStream streams the answer as SSE frames: {"delta"} per fragment, then {"done","text"}
// with the post-processed answer, or {"error"} if generation fails after the stream opened.
// (POST /v1/chat/stream)
func (h *Handler) ChatStream(c echo.Context) error {
	var req advisory.ChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "body", "malformed JSON")
	}

	ctx := logger.WithUseCase(c.Request().Context(), "chat_stream")

	started := false
	var writeErr error
	onFragment := func(fragment string) {
		if writeErr != nil {
			return
		}
		if !started {
			setStreamingHeaders(c)
			started = true
		}
		writeErr = writeEvent(c, StreamEvent{Delta: fragment})
	}

	text, err := h.advisor.Chat(ctx, req, onFragment)
	if err != nil && !started {
		// Nothing was sent yet, so the client still gets a proper status code.
		return h.handleError(c, ctx, err)
	}
	if writeErr != nil {
		h.logger.WarnContext(ctx, "failed to write to response stream", "error", writeErr)
		return nil
	}
	if !started {
		setStreamingHeaders(c)
	}
	if err != nil {
		status, _ := statusFor(err)
		if status == StatusClientClosedRequest {
			return nil
		}
		h.logger.ErrorContext(ctx, "chat stream interrupted", "error", err, "status", status)
		return writeEvent(c, StreamEvent{Error: GenericFailureMessage})
	}
	return writeEvent(c, StreamEvent{Done: true, Text: text})
}

func setStreamingHeaders(c echo.Context) {
	c.Response().Header().Set(echo.HeaderContentType, "text/event-stream; charset=utf-8")
	c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
	c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
}

func writeEvent(c echo.Context, ev StreamEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Response().Writer, "data: %s\n\n", payload); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}
