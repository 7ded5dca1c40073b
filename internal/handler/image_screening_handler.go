package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pcos-screening-api/internal/service"
	"github.com/noah-isme/pcos-screening-api/internal/utils"
)

// ImageScreeningHandler accepts ultrasound uploads.
type ImageScreeningHandler struct {
	service service.ImageScreeningService
	logger  zerolog.Logger
}

// NewImageScreeningHandler builds the handler.
func NewImageScreeningHandler(service service.ImageScreeningService, logger zerolog.Logger) *ImageScreeningHandler {
	return &ImageScreeningHandler{
		service: service,
		logger:  logger.With().Str("component", "image_screening_handler").Logger(),
	}
}

// Register attaches the upload route.
func (h *ImageScreeningHandler) Register(router fiber.Router) {
	router.Post("/image", h.predict)
}

func (h *ImageScreeningHandler) predict(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, service.ErrImageRequired.Error())
	}

	result, err := h.service.Submit(context.WithoutCancel(c.UserContext()), file, viewerFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImageRequired):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrImageTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrImageTypeNotAllowed):
			return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
		default:
			return respondError(c, *requestLogger(h.logger, c), err, "Failed to process image model request")
		}
	}

	requestLogger(h.logger, c).Info().Str("submission_id", result.SubmissionID).Msg("image prediction completed")
	return c.Status(fiber.StatusOK).JSON(result)
}
