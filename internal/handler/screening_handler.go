package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pcos-screening-api/internal/dto"
	"github.com/noah-isme/pcos-screening-api/internal/screening"
	"github.com/noah-isme/pcos-screening-api/internal/service"
	"github.com/noah-isme/pcos-screening-api/internal/utils"
	"github.com/noah-isme/pcos-screening-api/pkg/inference"
)

// ScreeningHandler serves the questionnaire prediction endpoints and stored results.
type ScreeningHandler struct {
	screenings service.ScreeningService
	reports    service.ReportService
	logger     zerolog.Logger
}

// NewScreeningHandler builds the handler.
func NewScreeningHandler(screenings service.ScreeningService, reports service.ReportService, logger zerolog.Logger) *ScreeningHandler {
	return &ScreeningHandler{
		screenings: screenings,
		reports:    reports,
		logger:     logger.With().Str("component", "screening_handler").Logger(),
	}
}

// Register attaches the prediction routes to the provided router group.
func (h *ScreeningHandler) Register(router fiber.Router) {
	router.Post("/simple", h.predict(screening.VariantSimple))
	router.Post("/clinical", h.predict(screening.VariantClinical))
	router.Get("/submissions/:variant/:id", h.get)
	router.Get("/submissions/:variant/:id/report", h.report)
}

// RegisterHistory attaches the per-user history route.
func (h *ScreeningHandler) RegisterHistory(router fiber.Router) {
	router.Get("", h.history)
}

func (h *ScreeningHandler) predict(variant screening.Variant) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := decodeInput(c)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}

		// The pipeline finishes even if the client goes away.
		ctx := context.WithoutCancel(c.UserContext())
		result, err := h.screenings.Submit(ctx, variant, input, viewerFromContext(c))
		if err != nil {
			return h.handleError(c, err, failureMessage(variant))
		}

		requestLogger(h.logger, c).Info().
			Str("submission_id", result.SubmissionID).
			Str("variant", string(variant)).
			Msg("prediction completed")

		return c.Status(fiber.StatusOK).JSON(result)
	}
}

func (h *ScreeningHandler) get(c *fiber.Ctx) error {
	variant, ok := screening.ParseVariant(c.Params("variant"))
	if !ok {
		return utils.SendError(c, fiber.StatusNotFound, "screening not found")
	}

	result, err := h.screenings.Get(c.UserContext(), variant, c.Params("id"), viewerFromContext(c))
	if err != nil {
		return h.handleError(c, err, "failed to load screening")
	}

	return utils.SendSuccess(c, "screening retrieved", result)
}

func (h *ScreeningHandler) report(c *fiber.Ctx) error {
	variant, ok := screening.ParseVariant(c.Params("variant"))
	if !ok {
		return utils.SendError(c, fiber.StatusNotFound, "screening not found")
	}

	report, err := h.reports.GetReport(c.UserContext(), variant, c.Params("id"), viewerFromContext(c))
	if err != nil {
		return h.handleError(c, err, "failed to build report")
	}

	return utils.SendSuccess(c, "report generated", report)
}

func (h *ScreeningHandler) history(c *fiber.Ctx) error {
	query, err := parseListQuery(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.screenings.History(c.UserContext(), userIDFromContext(c), query)
	if err != nil {
		return h.handleError(c, err, "failed to load history")
	}

	return utils.OK(c, result.Items, "history retrieved", result.Pagination)
}

func (h *ScreeningHandler) handleError(c *fiber.Ctx, err error, message string) error {
	return respondError(c, *requestLogger(h.logger, c), err, message)
}

// respondError maps the screening error taxonomy onto HTTP responses.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, message string) error {
	var validationErr *screening.ValidationError
	var configErr *screening.ConfigurationError
	var upstreamErr *inference.UpstreamError

	switch {
	case errors.As(err, &validationErr):
		return utils.SendError(c, fiber.StatusBadRequest, validationErr.Error())
	case errors.Is(err, service.ErrScreeningNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "screening not found")
	case errors.As(err, &configErr):
		logger.Error().Str("key", configErr.Key).Msg("required configuration missing")
		return utils.SendFailure(c, fiber.StatusInternalServerError, configErr.Error(), configErr.Error())
	case errors.Is(err, inference.ErrNotConfigured):
		logger.Error().Msg("inference service not configured")
		configErr = &screening.ConfigurationError{Key: service.MLServiceURLKey}
		return utils.SendFailure(c, fiber.StatusInternalServerError, configErr.Error(), configErr.Error())
	case errors.As(err, &upstreamErr):
		logger.Error().Err(err).Int("upstream_status", upstreamErr.StatusCode).Str("reason", upstreamErr.Reason).Msg("inference service failed")
		return utils.SendFailure(c, fiber.StatusInternalServerError, message, upstreamErr.Detail())
	default:
		logger.Error().Err(err).Msg("internal server error")
		return utils.SendFailure(c, fiber.StatusInternalServerError, message, err.Error())
	}
}

func failureMessage(variant screening.Variant) string {
	return fmt.Sprintf("Failed to process %s text model request", variant)
}

// decodeInput accepts JSON bodies as well as url-encoded and multipart forms.
func decodeInput(c *fiber.Ctx) (screening.Input, error) {
	input := screening.Input{}
	contentType := strings.ToLower(string(c.Request().Header.ContentType()))

	switch {
	case strings.HasPrefix(contentType, fiber.MIMEMultipartForm):
		form, err := c.MultipartForm()
		if err != nil {
			return nil, err
		}
		for key, values := range form.Value {
			if len(values) > 0 {
				input[key] = values[0]
			}
		}
	case strings.HasPrefix(contentType, fiber.MIMEApplicationForm):
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			input[string(key)] = string(value)
		})
	default:
		if len(c.Body()) == 0 {
			return input, nil
		}
		if err := c.App().Config().JSONDecoder(c.Body(), &input); err != nil {
			return nil, err
		}
		if input == nil {
			input = screening.Input{}
		}
	}

	return input, nil
}

func parseListQuery(c *fiber.Ctx) (dto.ScreeningListQuery, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return dto.ScreeningListQuery{}, errors.New("invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return dto.ScreeningListQuery{}, errors.New("invalid page_size")
	}
	return dto.ScreeningListQuery{
		Variant:  strings.ToLower(strings.TrimSpace(c.Query("variant"))),
		Page:     page,
		PageSize: pageSize,
	}, nil
}
