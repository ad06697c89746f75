package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/recipeclip/api/internal/client"
	"github.com/recipeclip/api/internal/middleware"
	"github.com/recipeclip/api/internal/model"
	"github.com/recipeclip/api/internal/service"
	"github.com/recipeclip/api/pkg/response"
)

type ExtractHandler struct {
	service   *service.ExtractionService
	validator *validator.Validate
}

func NewExtractHandler(svc *service.ExtractionService, v *validator.Validate) *ExtractHandler {
	return &ExtractHandler{
		service:   svc,
		validator: v,
	}
}

// Submit handles POST /api/extract/submit
// @Summary      Submit content for recipe extraction
// @Description  Submit a video URL, web link, pasted text, or uploaded photo/voice media for asynchronous recipe extraction
// @Tags         Extract
// @Accept       json
// @Produce      json
// @Param        request body model.ExtractSubmitRequest true "Extraction submission"
// @Success      202 {object} model.ExtractSubmitResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      402 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/extract/submit [post]
func (h *ExtractHandler) Submit(c *fiber.Ctx) error {
	var req model.ExtractSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Submit(c.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSource) {
			return response.ValidationError(c, err.Error(), nil)
		}
		if errors.Is(err, client.ErrInsufficientBalance) {
			return response.PaymentRequired(c, "Not enough extraction credits")
		}
		return response.ServiceError(c, err.Error())
	}

	// A duplicate source resolves immediately; the job was never queued.
	if result.Duplicate {
		return response.OK(c, result)
	}
	return response.Accepted(c, result)
}

// Status handles GET /api/extract/status/:jobId
// @Summary      Get extraction job status
// @Description  Get the current status, progress, and step of an extraction job
// @Tags         Extract
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.ExtractStatusResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/extract/status/{jobId} [get]
func (h *ExtractHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), middleware.GetUserID(c), jobID)
	if err != nil {
		return h.mapJobError(c, err)
	}

	return response.OK(c, result)
}

// Result handles GET /api/extract/result/:jobId
// @Summary      Get extraction job result
// @Description  Get the recipe produced by a completed extraction job
// @Tags         Extract
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.ExtractResultResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/extract/result/{jobId} [get]
func (h *ExtractHandler) Result(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetResult(c.Context(), middleware.GetUserID(c), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotCompleted) {
			return response.ValidationError(c, "Job not completed yet", nil)
		}
		return h.mapJobError(c, err)
	}

	return response.OK(c, result)
}

// Cancel handles POST /api/extract/cancel/:jobId
// @Summary      Cancel extraction job
// @Description  Cancel a running extraction job; jobs already in a terminal state cannot be cancelled
// @Tags         Extract
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.ExtractCancelResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/extract/cancel/{jobId} [post]
func (h *ExtractHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.Cancel(c.Context(), middleware.GetUserID(c), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobTerminal) {
			return response.Conflict(c, response.CodeValidationError, "Job already finished")
		}
		return h.mapJobError(c, err)
	}

	return response.OK(c, result)
}

// Resume handles POST /api/extract/resume/:jobId
// @Summary      Resume a suspended extraction job
// @Description  Continue a job that was suspended for a client-side download, using the uploaded media
// @Tags         Extract
// @Accept       json
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Param        request body model.ExtractResumeRequest true "Resume request"
// @Success      202 {object} model.ExtractStatusResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      409 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/extract/resume/{jobId} [post]
func (h *ExtractHandler) Resume(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	var req model.ExtractResumeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Resume(c.Context(), middleware.GetUserID(c), jobID, &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidResumeToken) {
			return response.Error(c, fiber.StatusConflict, response.CodeInvalidResumeToken, "Invalid, expired, or already used resume token", nil)
		}
		if errors.Is(err, service.ErrJobNotResumable) {
			return response.Error(c, fiber.StatusConflict, response.CodeJobNotResumable, "Job is not awaiting a client download", nil)
		}
		return h.mapJobError(c, err)
	}

	return response.Accepted(c, result)
}

func (h *ExtractHandler) mapJobError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		return response.NotFound(c, "Job not found")
	case errors.Is(err, service.ErrForbidden):
		// A job id belonging to someone else looks identical to a missing one.
		return response.NotFound(c, "Job not found")
	default:
		return response.ServiceError(c, err.Error())
	}
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
