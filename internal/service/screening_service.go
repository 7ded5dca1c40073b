package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/pcos-screening-api/internal/dto"
	"github.com/noah-isme/pcos-screening-api/internal/events"
	"github.com/noah-isme/pcos-screening-api/internal/models"
	"github.com/noah-isme/pcos-screening-api/internal/observability"
	"github.com/noah-isme/pcos-screening-api/internal/repository"
	"github.com/noah-isme/pcos-screening-api/internal/screening"
	"github.com/noah-isme/pcos-screening-api/pkg/ai"
	"github.com/noah-isme/pcos-screening-api/pkg/inference"
)

// ErrScreeningNotFound is returned when a submission does not exist, is not
// visible to the caller, or has no model output yet.
var ErrScreeningNotFound = errors.New("screening not found")

// PredictionMessage is the success message of the prediction endpoints.
const PredictionMessage = "Prediction completed"

// MLServiceURLKey names the configuration value holding the inference base URL.
const MLServiceURLKey = "ML_SERVICE_URL"

// Predictor calls the external inference service.
type Predictor interface {
	Configured() bool
	Predict(ctx context.Context, variant string, payload any) (inference.Result, error)
}

// NarrativeGenerator explains a probability in plain language.
type NarrativeGenerator interface {
	Generate(ctx context.Context, input ai.NarrativeInput) ai.Narrative
}

// EventPublisher announces completed screenings.
type EventPublisher interface {
	PublishScreeningCompleted(ctx context.Context, event events.ScreeningCompleted) error
}

// ScreeningService runs the form screening pipeline and serves stored results.
type ScreeningService interface {
	Submit(ctx context.Context, variant screening.Variant, input screening.Input, userID *uint) (dto.PredictionResponse, error)
	Get(ctx context.Context, variant screening.Variant, id string, viewer *uint) (dto.ScreeningResponse, error)
	History(ctx context.Context, userID uint, query dto.ScreeningListQuery) (dto.ScreeningListResponse, error)
	ListRecent(ctx context.Context, query dto.ScreeningListQuery) (dto.ScreeningListResponse, error)
}

type screeningService struct {
	repo      repository.ScreeningRepository
	predictor Predictor
	narrator  NarrativeGenerator
	publisher EventPublisher
	validate  *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewScreeningService wires the pipeline collaborators. The publisher may be nil.
func NewScreeningService(repo repository.ScreeningRepository, predictor Predictor, narrator NarrativeGenerator, publisher EventPublisher, validate *validator.Validate, logger zerolog.Logger) ScreeningService {
	return &screeningService{
		repo:      repo,
		predictor: predictor,
		narrator:  narrator,
		publisher: publisher,
		validate:  validate,
		logger:    logger.With().Str("component", "screening_service").Logger(),
		now:       time.Now,
	}
}

func (s *screeningService) Submit(ctx context.Context, variant screening.Variant, input screening.Input, userID *uint) (dto.PredictionResponse, error) {
	start := s.now()
	outcome := "failed"
	defer func() {
		observability.ScreeningOutcomes().WithLabelValues(string(variant), outcome).Inc()
		observability.ScreeningPipelineDuration().WithLabelValues(string(variant)).Observe(time.Since(start).Seconds())
	}()

	record, err := screening.Parse(input, variant)
	if err != nil {
		outcome = "rejected"
		return dto.PredictionResponse{}, err
	}

	if s.predictor == nil || !s.predictor.Configured() {
		return dto.PredictionResponse{}, &screening.ConfigurationError{Key: MLServiceURLKey}
	}

	stored := models.ScreeningFromRecord(record, userID)
	if err := s.repo.Create(ctx, stored); err != nil {
		return dto.PredictionResponse{}, fmt.Errorf("store screening input: %w", err)
	}
	id := stored.Base().ID
	logger := s.logger.With().Str("submission_id", id).Str("variant", string(variant)).Logger()

	result, err := s.predictor.Predict(ctx, string(variant), screening.MapPayload(record))
	if err != nil {
		logger.Error().Err(err).Msg("inference request failed")
		return dto.PredictionResponse{}, err
	}

	narrative := ai.Unavailable("narrator disabled")
	if s.narrator != nil {
		narrative = s.narrator.Generate(ctx, narrativeInput(record, result.Probability()))
	}
	if !narrative.Available() {
		logger.Info().Str("reason", narrative.Reason()).Msg("narrative fallback used")
	}

	output := mergeOutput(result, narrative.Text())
	if err := s.repo.SaveOutput(ctx, variant, id, output); err != nil {
		logger.Error().Err(err).Msg("failed to store model output")
		return dto.PredictionResponse{}, fmt.Errorf("store model output: %w", err)
	}

	s.announce(ctx, id, variant, userID, result.Probability())
	outcome = "completed"

	return dto.PredictionResponse{
		Message:      PredictionMessage,
		SubmissionID: id,
		InputMode:    string(variant),
		MLResult:     output,
	}, nil
}

func (s *screeningService) Get(ctx context.Context, variant screening.Variant, id string, viewer *uint) (dto.ScreeningResponse, error) {
	record, err := s.completedRecord(ctx, variant, id, viewer)
	if err != nil {
		return dto.ScreeningResponse{}, err
	}
	return dto.NewScreeningResponse(record), nil
}

func (s *screeningService) History(ctx context.Context, userID uint, query dto.ScreeningListQuery) (dto.ScreeningListResponse, error) {
	return s.list(ctx, query, &userID, true)
}

// ListRecent includes records still waiting for model output.
func (s *screeningService) ListRecent(ctx context.Context, query dto.ScreeningListQuery) (dto.ScreeningListResponse, error) {
	return s.list(ctx, query, nil, false)
}

func (s *screeningService) list(ctx context.Context, query dto.ScreeningListQuery, userID *uint, completedOnly bool) (dto.ScreeningListResponse, error) {
	if s.validate != nil {
		if err := s.validate.Struct(query); err != nil {
			return dto.ScreeningListResponse{}, &screening.ValidationError{Message: err.Error()}
		}
	}

	page := query.Page
	if page <= 0 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	filter := repository.ScreeningFilter{
		UserID:        userID,
		CompletedOnly: completedOnly,
		Page:          page,
		PageSize:      pageSize,
	}
	if query.Variant != "" {
		variant, _ := screening.ParseVariant(query.Variant)
		filter.Variants = []screening.Variant{variant}
	}

	records, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.ScreeningListResponse{}, err
	}

	items := make([]dto.ScreeningSummary, 0, len(records))
	for _, record := range records {
		items = append(items, summarize(record))
	}

	return dto.ScreeningListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *screeningService) completedRecord(ctx context.Context, variant screening.Variant, id string, viewer *uint) (models.ScreeningRecord, error) {
	return loadCompleted(ctx, s.repo, variant, id, viewer)
}

// loadCompleted hides input-only records and records owned by someone else.
func loadCompleted(ctx context.Context, repo repository.ScreeningRepository, variant screening.Variant, id string, viewer *uint) (models.ScreeningRecord, error) {
	record, err := repo.GetByID(ctx, variant, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScreeningNotFound
		}
		return nil, err
	}

	base := record.Base()
	if !base.IsCompleted() {
		return nil, ErrScreeningNotFound
	}
	if !canView(base.UserID, viewer) {
		return nil, ErrScreeningNotFound
	}
	return record, nil
}

func canView(owner, viewer *uint) bool {
	if owner == nil {
		return true
	}
	return viewer != nil && *viewer == *owner
}

func (s *screeningService) announce(ctx context.Context, id string, variant screening.Variant, userID *uint, probability float64) {
	if s.publisher == nil {
		return
	}
	event := eventFor(id, variant, userID, probability, s.now())
	if err := s.publisher.PublishScreeningCompleted(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("submission_id", id).Msg("screening event not published")
	}
}

func eventFor(id string, variant screening.Variant, userID *uint, probability float64, at time.Time) events.ScreeningCompleted {
	return events.ScreeningCompleted{
		SubmissionID: id,
		Variant:      string(variant),
		UserID:       userID,
		Probability:  probability,
		RiskLevel:    screening.ClassifyRisk(probability).Label,
		CompletedAt:  at.UTC(),
	}
}

func narrativeInput(record screening.Record, probability float64) ai.NarrativeInput {
	input := ai.NarrativeInput{
		Variant:        record.Variant.Label(),
		Age:            record.Age,
		BMI:            record.BMI,
		IrregularCycle: record.IrregularCycle(),
		WeightGain:     record.WeightGain == 1,
		HairGrowth:     record.HairGrowth == 1,
		Acne:           record.Pimples == 1,
		Probability:    probability,
	}
	if record.Variant == screening.VariantClinical {
		input.FSHLHRatio = record.Labs.FSHLHRatio
	}
	return input
}

func mergeOutput(result inference.Result, narration string) datatypes.JSONMap {
	output := make(datatypes.JSONMap, len(result)+1)
	for key, value := range result {
		output[key] = value
	}
	output["narration"] = narration
	return output
}

func summarize(record models.ScreeningRecord) dto.ScreeningSummary {
	base := record.Base()
	summary := dto.ScreeningSummary{
		ID:        base.ID,
		Variant:   string(record.Variant()),
		Status:    base.Status(),
		UserID:    base.UserID,
		CreatedAt: base.CreatedAt,
	}
	if probability, ok := outputProbability(base.ModelOutput); ok {
		summary.Probability = &probability
		summary.RiskLevel = screening.ClassifyRisk(probability).Label
	}
	return summary
}

func outputProbability(output datatypes.JSONMap) (float64, bool) {
	if output == nil {
		return 0, false
	}
	raw, ok := output["probability"]
	if !ok || raw == nil {
		return 0, false
	}
	// Stored outputs decode numbers as json.Number.
	value, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}
