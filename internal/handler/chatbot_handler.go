package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pcos-screening-api/internal/dto"
	"github.com/noah-isme/pcos-screening-api/internal/service"
	"github.com/noah-isme/pcos-screening-api/internal/utils"
)

// ChatbotHandler exposes the PCOS awareness assistant.
type ChatbotHandler struct {
	service service.ChatbotService
	logger  zerolog.Logger
}

// NewChatbotHandler builds the handler.
func NewChatbotHandler(service service.ChatbotService, logger zerolog.Logger) *ChatbotHandler {
	return &ChatbotHandler{
		service: service,
		logger:  logger.With().Str("component", "chatbot_handler").Logger(),
	}
}

// Register attaches the chatbot route; extra handlers such as a rate limiter
// run first.
func (h *ChatbotHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	handlers := append(guards, h.reply)
	router.Post("", handlers...)
}

func (h *ChatbotHandler) reply(c *fiber.Ctx) error {
	var request dto.ChatbotRequest
	if err := c.BodyParser(&request); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.service.Reply(c.UserContext(), request)
	if err != nil {
		return respondError(c, *requestLogger(h.logger, c), err, "failed to answer")
	}

	return utils.SendSuccess(c, "reply generated", response)
}
