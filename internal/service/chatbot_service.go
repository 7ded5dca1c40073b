package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pcos-screening-api/internal/dto"
	"github.com/noah-isme/pcos-screening-api/internal/screening"
	"github.com/noah-isme/pcos-screening-api/pkg/ai"
)

// ChatbotFallbackReply is returned when the language model is unavailable.
const ChatbotFallbackReply = "I'm sorry, I can't answer right now. For questions about PCOS symptoms or your results, please consult a healthcare provider."

const chatbotSystemPrompt = "You are a friendly PCOS awareness assistant. Answer questions about polycystic ovary syndrome, its symptoms, lifestyle management and screening in plain language. " +
	"Keep answers under 120 words. Never diagnose, never prescribe medication, and recommend seeing a doctor for personal medical decisions. " +
	"Politely decline questions unrelated to women's health."

// ChatbotService answers PCOS awareness questions.
type ChatbotService interface {
	Reply(ctx context.Context, request dto.ChatbotRequest) (dto.ChatbotResponse, error)
}

type chatbotService struct {
	generator ai.TextGenerator
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewChatbotService builds the assistant. A nil generator always falls back.
func NewChatbotService(generator ai.TextGenerator, validate *validator.Validate, logger zerolog.Logger) ChatbotService {
	return &chatbotService{
		generator: generator,
		validate:  validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "chatbot_service").Logger(),
	}
}

func (s *chatbotService) Reply(ctx context.Context, request dto.ChatbotRequest) (dto.ChatbotResponse, error) {
	request.Message = ai.PlainText(s.sanitizer, request.Message)
	if err := s.validate.Struct(request); err != nil {
		return dto.ChatbotResponse{}, &screening.ValidationError{Field: "message", Message: "message is required and must be at most 2000 characters"}
	}

	if s.generator == nil {
		return dto.ChatbotResponse{Reply: ChatbotFallbackReply, Fallback: true}, nil
	}

	answer, err := s.generator.Complete(ctx, chatbotSystemPrompt, request.Message)
	if err != nil {
		s.logger.Warn().Err(err).Str("provider", s.generator.Provider()).Msg("chatbot completion failed, using fallback")
		return dto.ChatbotResponse{Reply: ChatbotFallbackReply, Fallback: true}, nil
	}

	answer = strings.TrimSpace(ai.PlainText(s.sanitizer, answer))
	if answer == "" {
		return dto.ChatbotResponse{Reply: ChatbotFallbackReply, Fallback: true}, nil
	}

	return dto.ChatbotResponse{Reply: answer}, nil
}
