package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pcos-screening-api/internal/dto"
	"github.com/noah-isme/pcos-screening-api/internal/models"
	"github.com/noah-isme/pcos-screening-api/internal/observability"
	"github.com/noah-isme/pcos-screening-api/internal/repository"
	"github.com/noah-isme/pcos-screening-api/internal/screening"
)

// ReportService builds the printable report of a completed screening.
type ReportService interface {
	GetReport(ctx context.Context, variant screening.Variant, id string, viewer *uint) (dto.ReportResponse, error)
}

type cachedReport struct {
	OwnerID *uint              `json:"owner_id"`
	Report  dto.ReportResponse `json:"report"`
}

type reportService struct {
	repo     repository.ScreeningRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewReportService builds the report generator. The cache is optional.
func NewReportService(repo repository.ScreeningRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ReportService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &reportService{
		repo:     repo,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "report_service").Logger(),
		now:      time.Now,
	}
}

func (s *reportService) GetReport(ctx context.Context, variant screening.Variant, id string, viewer *uint) (dto.ReportResponse, error) {
	cacheKey := fmt.Sprintf("report:screening:%s:%s", variant, id)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var entry cachedReport
			if unmarshalErr := json.Unmarshal([]byte(cached), &entry); unmarshalErr == nil {
				observability.ReportCache().WithLabelValues("hit").Inc()
				if !canView(entry.OwnerID, viewer) {
					return dto.ReportResponse{}, ErrScreeningNotFound
				}
				s.logger.Debug().Str("submission_id", id).Msg("report cache hit")
				return entry.Report, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read report cache")
		}
		observability.ReportCache().WithLabelValues("miss").Inc()
	}

	record, err := loadCompleted(ctx, s.repo, variant, id, viewer)
	if err != nil {
		return dto.ReportResponse{}, err
	}

	report := s.build(record)
	if record.Variant() == screening.VariantImage {
		report.Combined = s.combine(ctx, record)
	}

	if s.cache != nil {
		payload, err := json.Marshal(cachedReport{OwnerID: record.Base().UserID, Report: report})
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store report cache")
			}
		}
	}

	return report, nil
}

func (s *reportService) build(record models.ScreeningRecord) dto.ReportResponse {
	base := record.Base()
	probability, _ := outputProbability(base.ModelOutput)
	risk := screening.ClassifyRisk(probability)
	recommendations := screening.RecommendationsFor(risk.Label)
	narration, _ := base.ModelOutput["narration"].(string)

	return dto.ReportResponse{
		SubmissionID: base.ID,
		Variant:      string(record.Variant()),
		Probability:  probability,
		RiskLevel:    risk.Label,
		RiskColor:    risk.Color,
		Narration:    narration,
		Insights:     screening.Insights(record.Variant(), probability, models.SymptomFacts(record)),
		Recommendations: dto.RecommendationsPayload{
			Diet:     recommendations.Diet,
			Exercise: recommendations.Exercise,
			Medical:  recommendations.Medical,
		},
		GeneratedAt: s.now().UTC(),
	}
}

// combine pairs an image screening with the owner's latest completed symptom
// screening. Anonymous uploads and owners without one get no combined section.
func (s *reportService) combine(ctx context.Context, image models.ScreeningRecord) *dto.CombinedPayload {
	owner := image.Base().UserID
	if owner == nil {
		return nil
	}

	latest, _, err := s.repo.List(ctx, repository.ScreeningFilter{
		Variants:      []screening.Variant{screening.VariantSimple, screening.VariantClinical},
		UserID:        owner,
		CompletedOnly: true,
		Page:          1,
		PageSize:      1,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("submission_id", image.Base().ID).Msg("failed to load symptom screening for combined report")
		return nil
	}
	if len(latest) == 0 {
		return nil
	}

	symptoms := latest[0]
	imageProbability, _ := outputProbability(image.Base().ModelOutput)
	symptomProbability, _ := outputProbability(symptoms.Base().ModelOutput)
	probability, insights := screening.CombinedInsights(imageProbability, symptomProbability, models.SymptomFacts(symptoms))

	return &dto.CombinedPayload{
		SymptomSubmissionID: symptoms.Base().ID,
		Probability:         probability,
		RiskLevel:           screening.ClassifyRisk(probability).Label,
		Insights:            insights,
	}
}
