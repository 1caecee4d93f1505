// ABOUTME: Echo handlers for the advisory API: chat (JSON and SSE), crop analytics,
// ABOUTME: disease detection (multipart upload) and modern farming.
package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
	"github.com/ayuxy027/Krishak-AI/internal/infra/logger"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/advisory"
)

// Advisor is the advisory service surface used by the handlers.
type Advisor interface {
	Chat(ctx context.Context, req advisory.ChatRequest, onFragment func(string)) (string, error)
	CropAnalytics(ctx context.Context, req advisory.CropAnalyticsRequest) (domain.ValidatedResult[advisory.CropAnalytics], error)
	DetectDisease(ctx context.Context, req advisory.DiseaseRequest) (domain.ValidatedResult[advisory.DiseaseReport], error)
	ModernFarming(ctx context.Context, req advisory.ModernFarmingRequest) (domain.ValidatedResult[advisory.ModernFarmingAnalysis], error)
}

var _ Advisor = (*advisory.Service)(nil)

type Handler struct {
	advisor Advisor
	logger  *slog.Logger
}

func NewHandler(advisor Advisor, logger *slog.Logger) *Handler {
	return &Handler{advisor: advisor, logger: logger}
}

// StructuredResponse wraps a schema-shaped result with its quality flags.
type StructuredResponse[T any] struct {
	Result          T        `json:"result"`
	Degraded        bool     `json:"degraded"`
	DefaultedFields []string `json:"defaultedFields,omitempty"`
	NotApplicable   bool     `json:"notApplicable"`
	Fallback        bool     `json:"fallback"`
}

func toResponse[T any](res domain.ValidatedResult[T]) StructuredResponse[T] {
	return StructuredResponse[T]{
		Result:          res.Value,
		Degraded:        res.Degraded,
		DefaultedFields: res.DefaultedFields,
		NotApplicable:   res.NotApplicable,
		Fallback:        res.Fallback,
	}
}

type ChatResponse struct {
	Text string `json:"text"`
}

// Chat answers a question in one response
// (POST /v1/chat)
func (h *Handler) Chat(c echo.Context) error {
	var req advisory.ChatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "body", "malformed JSON")
	}

	ctx := logger.WithUseCase(c.Request().Context(), "chat")
	text, err := h.advisor.Chat(ctx, req, nil)
	if err != nil {
		return h.handleError(c, ctx, err)
	}
	return c.JSON(http.StatusOK, ChatResponse{Text: text})
}

// CropAnalytics returns the market report for a crop
// (POST /v1/crop-analytics)
func (h *Handler) CropAnalytics(c echo.Context) error {
	var req advisory.CropAnalyticsRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "body", "malformed JSON")
	}

	ctx := logger.WithUseCase(c.Request().Context(), "crop_analytics")
	res, err := h.advisor.CropAnalytics(ctx, req)
	if err != nil {
		return h.handleError(c, ctx, err)
	}
	return c.JSON(http.StatusOK, toResponse(res))
}

// ModernFarming analyzes a farming technique
// (POST /v1/modern-farming)
func (h *Handler) ModernFarming(c echo.Context) error {
	var req advisory.ModernFarmingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "body", "malformed JSON")
	}

	ctx := logger.WithUseCase(c.Request().Context(), "modern_farming")
	res, err := h.advisor.ModernFarming(ctx, req)
	if err != nil {
		return h.handleError(c, ctx, err)
	}
	return c.JSON(http.StatusOK, toResponse(res))
}
