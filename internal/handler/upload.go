package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/recipeclip/api/internal/middleware"
	"github.com/recipeclip/api/internal/service"
	"github.com/recipeclip/api/pkg/response"
)

const maxUploadSize = 100 * 1024 * 1024 // 100MB

type UploadHandler struct {
	service   *service.UploadService
	validator *validator.Validate
}

func NewUploadHandler(svc *service.UploadService, v *validator.Validate) *UploadHandler {
	return &UploadHandler{
		service:   svc,
		validator: v,
	}
}

// Media handles POST /api/upload/media
// @Summary      Upload media for extraction
// @Description  Upload a photo, voice memo, or client-downloaded video and get back a media key for submission
// @Tags         Upload
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "Media file (JPEG, PNG, WebP, HEIC, M4A, MP3, WAV, MP4, MOV; max 100MB)"
// @Success      201 {object} model.UploadMediaResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/upload/media [post]
func (h *UploadHandler) Media(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.ValidationError(c, "File is required", nil)
	}

	if file.Size > maxUploadSize {
		return response.ValidationError(c, "File size exceeds 100MB limit", map[string]interface{}{
			"maxSize":  maxUploadSize,
			"fileSize": file.Size,
		})
	}

	contentType := file.Header.Get("Content-Type")
	validTypes := map[string]bool{
		"image/jpeg":      true,
		"image/png":       true,
		"image/webp":      true,
		"image/heic":      true,
		"audio/mpeg":      true,
		"audio/mp4":       true,
		"audio/x-m4a":     true,
		"audio/wav":       true,
		"audio/x-wav":     true,
		"video/mp4":       true,
		"video/quicktime": true,
		"video/webm":      true,
	}

	if !validTypes[contentType] {
		return response.ValidationError(c, "Invalid file type. Supported: JPEG, PNG, WebP, HEIC, MP3, M4A, WAV, MP4, MOV, WebM", map[string]interface{}{
			"contentType": contentType,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open file")
	}
	defer f.Close()

	result, err := h.service.UploadMedia(c.Context(), middleware.GetUserID(c), file.Filename, contentType, f, file.Size)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Created(c, result)
}
