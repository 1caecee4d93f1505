package rest

import (
	"io"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ayuxy027/Krishak-AI/internal/infra/logger"
	"github.com/ayuxy027/Krishak-AI/internal/usecase/advisory"
)

// DetectDisease diagnoses an uploaded plant photo
// (POST /v1/disease-detection, multipart field "image")
func (h *Handler) DetectDisease(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return badRequest(c, "image", "image is required")
	}
	if fh.Size > advisory.MaxImageBytes {
		return badRequest(c, "image", "image is too large")
	}

	f, err := fh.Open()
	if err != nil {
		return badRequest(c, "image", "image could not be read")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, advisory.MaxImageBytes+1))
	if err != nil {
		return badRequest(c, "image", "image could not be read")
	}

	req := advisory.DiseaseRequest{
		Image:        data,
		MIMEType:     imageMIMEType(fh.Header.Get(echo.HeaderContentType), data),
		CropType:     c.FormValue("cropType"),
		SeverityHint: c.FormValue("severityLevel"),
	}

	ctx := logger.WithUseCase(c.Request().Context(), "disease_detection")
	res, err := h.advisor.DetectDisease(ctx, req)
	if err != nil {
		return h.handleError(c, ctx, err)
	}
	return c.JSON(http.StatusOK, toResponse(res))
}

// imageMIMEType prefers the declared part type and sniffs the bytes otherwise.
func imageMIMEType(declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != "application/octet-stream" {
		return mt
	}
	if len(data) == 0 {
		return ""
	}
	mt, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mt
}
