package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/pcos-screening-api/internal/dto"
	"github.com/noah-isme/pcos-screening-api/internal/models"
	"github.com/noah-isme/pcos-screening-api/internal/observability"
	"github.com/noah-isme/pcos-screening-api/internal/repository"
	"github.com/noah-isme/pcos-screening-api/internal/screening"
	"github.com/noah-isme/pcos-screening-api/pkg/cloudinary"
)

var (
	// ErrImageRequired indicates the multipart field was missing.
	ErrImageRequired = errors.New("image file is required")
	// ErrImageTooLarge indicates the payload exceeded the configured limit.
	ErrImageTooLarge = errors.New("image exceeds maximum allowed size")
	// ErrImageTypeNotAllowed indicates the content is not a PNG or JPEG.
	ErrImageTypeNotAllowed = errors.New("only PNG and JPEG ultrasound images are accepted")
)

// ImageStorageKey names the setting that enables ultrasound storage.
const ImageStorageKey = "PCOS_CLOUDINARY_CLOUD_NAME"

// ImageStorage persists uploaded ultrasound images.
type ImageStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (cloudinary.Asset, error)
}

// ImageScreeningService screens an uploaded ultrasound image.
type ImageScreeningService interface {
	Submit(ctx context.Context, file *multipart.FileHeader, userID *uint) (dto.PredictionResponse, error)
}

type imageScreeningService struct {
	storage   ImageStorage
	repo      repository.ScreeningRepository
	predictor Predictor
	publisher EventPublisher
	maxSize   int64
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewImageScreeningService constructs the image pipeline.
func NewImageScreeningService(storage ImageStorage, repo repository.ScreeningRepository, predictor Predictor, publisher EventPublisher, maxSizeMB int, logger zerolog.Logger) ImageScreeningService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &imageScreeningService{
		storage:   storage,
		repo:      repo,
		predictor: predictor,
		publisher: publisher,
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		logger:    logger.With().Str("component", "image_screening_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/pcos-screening-api/internal/service/image_screening"),
		now:       time.Now,
	}
}

func (s *imageScreeningService) Submit(ctx context.Context, file *multipart.FileHeader, userID *uint) (dto.PredictionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "screening.image")
	defer span.End()

	start := s.now()
	outcome := "failed"
	defer func() {
		observability.ScreeningOutcomes().WithLabelValues(string(screening.VariantImage), outcome).Inc()
		observability.ScreeningPipelineDuration().WithLabelValues(string(screening.VariantImage)).Observe(time.Since(start).Seconds())
	}()

	payload, contentType, err := s.readImage(file)
	if err != nil {
		outcome = "rejected"
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return dto.PredictionResponse{}, err
	}
	span.SetAttributes(attribute.String("image.mime", contentType), attribute.Int("image.size_bytes", len(payload)))

	if s.predictor == nil || !s.predictor.Configured() {
		return dto.PredictionResponse{}, &screening.ConfigurationError{Key: MLServiceURLKey}
	}
	if s.storage == nil {
		return dto.PredictionResponse{}, &screening.ConfigurationError{Key: ImageStorageKey}
	}

	asset, err := s.storage.Upload(ctx, sanitizeImageName(file.Filename), bytes.NewReader(payload))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.PredictionResponse{}, fmt.Errorf("store ultrasound image: %w", err)
	}

	record := &models.ImageScreening{
		ScreeningBase: models.ScreeningBase{UserID: userID},
		ImageURL:      asset.URL,
		PublicID:      asset.PublicID,
		ContentType:   contentType,
		SizeBytes:     int64(len(payload)),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return dto.PredictionResponse{}, fmt.Errorf("store screening input: %w", err)
	}
	logger := s.logger.With().Str("submission_id", record.ID).Logger()

	result, err := s.predictor.Predict(ctx, string(screening.VariantImage), map[string]string{"image_url": asset.URL})
	if err != nil {
		logger.Error().Err(err).Msg("image inference failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "inference failed")
		return dto.PredictionResponse{}, err
	}

	output := mergeOutput(result, screening.ImageFinding(result.Probability()))
	if err := s.repo.SaveOutput(ctx, screening.VariantImage, record.ID, output); err != nil {
		logger.Error().Err(err).Msg("failed to store model output")
		return dto.PredictionResponse{}, fmt.Errorf("store model output: %w", err)
	}

	if s.publisher != nil {
		event := eventFor(record.ID, screening.VariantImage, userID, result.Probability(), s.now())
		if err := s.publisher.PublishScreeningCompleted(ctx, event); err != nil {
			logger.Warn().Err(err).Msg("screening event not published")
		}
	}

	outcome = "completed"
	span.SetStatus(codes.Ok, "screened")

	return dto.PredictionResponse{
		Message:      PredictionMessage,
		SubmissionID: record.ID,
		InputMode:    string(screening.VariantImage),
		MLResult:     output,
	}, nil
}

func (s *imageScreeningService) readImage(file *multipart.FileHeader) ([]byte, string, error) {
	if file == nil {
		return nil, "", ErrImageRequired
	}
	if file.Size > s.maxSize {
		observability.ImageUploadsRejected().WithLabelValues("size").Inc()
		return nil, "", ErrImageTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return nil, "", err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return nil, "", err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.ImageUploadsRejected().WithLabelValues("size").Inc()
		return nil, "", ErrImageTooLarge
	}

	detected := mimetype.Detect(buf.Bytes())
	if !detected.Is("image/png") && !detected.Is("image/jpeg") {
		observability.ImageUploadsRejected().WithLabelValues("type").Inc()
		return nil, "", ErrImageTypeNotAllowed
	}

	return buf.Bytes(), detected.String(), nil
}

func sanitizeImageName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "ultrasound"
	}
	return base + strings.ToLower(filepath.Ext(name))
}
