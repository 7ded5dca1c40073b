package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pcos-screening-api/internal/service"
	"github.com/noah-isme/pcos-screening-api/internal/utils"
)

// AdminScreeningHandler lists submissions for clinicians, pending ones included.
type AdminScreeningHandler struct {
	service service.ScreeningService
	logger  zerolog.Logger
}

// NewAdminScreeningHandler builds the handler.
func NewAdminScreeningHandler(service service.ScreeningService, logger zerolog.Logger) *AdminScreeningHandler {
	return &AdminScreeningHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_screening_handler").Logger(),
	}
}

// Register attaches the admin routes.
func (h *AdminScreeningHandler) Register(router fiber.Router) {
	router.Get("", h.list)
}

func (h *AdminScreeningHandler) list(c *fiber.Ctx) error {
	query, err := parseListQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.ListRecent(c.UserContext(), query)
	if err != nil {
		return respondError(c, *requestLogger(h.logger, c), err, "failed to list screenings")
	}

	return utils.OK(c, result.Items, "screenings retrieved", result.Pagination)
}
