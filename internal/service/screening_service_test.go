package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/pcos-screening-api/internal/dto"
	"github.com/noah-isme/pcos-screening-api/internal/events"
	"github.com/noah-isme/pcos-screening-api/internal/models"
	"github.com/noah-isme/pcos-screening-api/internal/repository"
	"github.com/noah-isme/pcos-screening-api/internal/screening"
	"github.com/noah-isme/pcos-screening-api/pkg/ai"
	"github.com/noah-isme/pcos-screening-api/pkg/inference"
)

type predictorStub struct {
	configured bool
	result     inference.Result
	err        error
	variant    string
	payload    any
}

func (p *predictorStub) Configured() bool { return p.configured }

func (p *predictorStub) Predict(_ context.Context, variant string, payload any) (inference.Result, error) {
	p.variant = variant
	p.payload = payload
	return p.result, p.err
}

type narratorStub struct {
	narrative ai.Narrative
	input     ai.NarrativeInput
	calls     int
}

func (n *narratorStub) Generate(_ context.Context, input ai.NarrativeInput) ai.Narrative {
	n.calls++
	n.input = input
	return n.narrative
}

type publisherStub struct {
	mu     sync.Mutex
	events []events.ScreeningCompleted
	err    error
}

func (p *publisherStub) PublishScreeningCompleted(_ context.Context, event events.ScreeningCompleted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func newScreeningTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.ScreeningModels()...))
	return db
}

func simpleInput() screening.Input {
	return screening.Input{
		"age":                "29",
		"bmi":                27.4,
		"pulseRate":          78,
		"respiratoryRate":    18,
		"hemoglobin":         11.8,
		"menstrualCycleType": 4,
		"averageCycleLength": 38,
		"weightGain":         "yes",
		"hairGrowth":         true,
		"skinDarkening":      0,
		"hairLoss":           false,
		"pimples":            "1",
		"fastFood":           "no",
		"regularExercise":    false,
		"bpSystolic":         120,
		"bpDiastolic":        80,
	}
}

func countScreenings(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}

func TestScreeningServiceSubmitCompletesPipeline(t *testing.T) {
	db := newScreeningTestDB(t)
	repo := repository.NewScreeningRepository(db)
	predictor := &predictorStub{configured: true, result: inference.Result{"probability": 0.8, "prediction": 1.0}}
	narrator := &narratorStub{narrative: ai.Generated("A moderate explanation.")}
	publisher := &publisherStub{}
	svc := NewScreeningService(repo, predictor, narrator, publisher, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())

	userID := uint(12)
	resp, err := svc.Submit(context.Background(), screening.VariantSimple, simpleInput(), &userID)
	require.NoError(t, err)

	require.Equal(t, PredictionMessage, resp.Message)
	require.Equal(t, "simple", resp.InputMode)
	require.NotEmpty(t, resp.SubmissionID)
	require.Equal(t, 0.8, resp.MLResult["probability"])
	require.Equal(t, 1.0, resp.MLResult["prediction"])
	require.Equal(t, "A moderate explanation.", resp.MLResult["narration"])

	require.Equal(t, "simple", predictor.variant)
	payload, ok := predictor.payload.(screening.SimplePayload)
	require.True(t, ok)
	require.Equal(t, "4", payload.CycleRI)
	require.Equal(t, 1, payload.WeightGainYN)

	require.Equal(t, "Simple", narrator.input.Variant)
	require.True(t, narrator.input.IrregularCycle)
	require.True(t, narrator.input.Acne)
	require.True(t, narrator.input.WeightGain)
	require.Nil(t, narrator.input.FSHLHRatio)

	stored, err := repo.GetByID(context.Background(), screening.VariantSimple, resp.SubmissionID)
	require.NoError(t, err)
	require.True(t, stored.Base().IsCompleted())
	require.Equal(t, userID, *stored.Base().UserID)
	require.Equal(t, "A moderate explanation.", stored.Base().ModelOutput["narration"])

	require.Len(t, publisher.events, 1)
	require.Equal(t, resp.SubmissionID, publisher.events[0].SubmissionID)
	require.Equal(t, screening.RiskHigh, publisher.events[0].RiskLevel)
}

func TestScreeningServiceClinicalPassesRatioToNarrative(t *testing.T) {
	db := newScreeningTestDB(t)
	predictor := &predictorStub{configured: true, result: inference.Result{"probability": 0.3}}
	narrator := &narratorStub{narrative: ai.Unavailable("api key missing")}
	svc := NewScreeningService(repository.NewScreeningRepository(db), predictor, narrator, nil, nil, zerolog.Nop())

	input := simpleInput()
	input["FSHLH_Ratio"] = "2.5"
	input["AMH"] = 0

	resp, err := svc.Submit(context.Background(), screening.VariantClinical, input, nil)
	require.NoError(t, err)
	require.Equal(t, "clinical", resp.InputMode)
	require.Equal(t, ai.FallbackNarrative, resp.MLResult["narration"])
	require.Equal(t, "Clinical", narrator.input.Variant)
	require.NotNil(t, narrator.input.FSHLHRatio)
	require.Equal(t, 2.5, *narrator.input.FSHLHRatio)

	payload, ok := predictor.payload.(screening.ClinicalPayload)
	require.True(t, ok)
	require.Nil(t, payload.AMHngmL)
	require.Equal(t, 2.5, *payload.FSHLH)
	require.Equal(t, 1, int(countScreenings(t, db, &models.ClinicalScreening{})))
}

func TestScreeningServiceValidationStopsBeforePersistence(t *testing.T) {
	db := newScreeningTestDB(t)
	predictor := &predictorStub{configured: true}
	svc := NewScreeningService(repository.NewScreeningRepository(db), predictor, &narratorStub{}, nil, nil, zerolog.Nop())

	input := simpleInput()
	delete(input, "age")

	_, err := svc.Submit(context.Background(), screening.VariantClinical, input, nil)
	var validationErr *screening.ValidationError
	require.True(t, errors.As(err, &validationErr))
	require.Contains(t, validationErr.Error(), "age")
	require.Zero(t, countScreenings(t, db, &models.ClinicalScreening{}))
	require.Nil(t, predictor.payload)
}

func TestScreeningServiceRequiresInferenceURL(t *testing.T) {
	db := newScreeningTestDB(t)
	svc := NewScreeningService(repository.NewScreeningRepository(db), &predictorStub{}, &narratorStub{}, nil, nil, zerolog.Nop())

	_, err := svc.Submit(context.Background(), screening.VariantSimple, simpleInput(), nil)
	var configErr *screening.ConfigurationError
	require.True(t, errors.As(err, &configErr))
	require.Equal(t, "ML_SERVICE_URL not set in environment", configErr.Error())
	require.Zero(t, countScreenings(t, db, &models.SimpleScreening{}))
}

func TestScreeningServiceUpstreamFailureKeepsInputOnlyRecord(t *testing.T) {
	db := newScreeningTestDB(t)
	upstream := &inference.UpstreamError{Reason: inference.ReasonTimeout, Err: context.DeadlineExceeded}
	narrator := &narratorStub{}
	publisher := &publisherStub{}
	svc := NewScreeningService(repository.NewScreeningRepository(db), &predictorStub{configured: true, err: upstream}, narrator, publisher, nil, zerolog.Nop())

	_, err := svc.Submit(context.Background(), screening.VariantSimple, simpleInput(), nil)
	require.ErrorIs(t, err, upstream)
	require.Zero(t, narrator.calls)
	require.Empty(t, publisher.events)

	var rows []models.SimpleScreening
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.False(t, rows[0].IsCompleted())
}

func TestScreeningServiceIgnoresPublishFailure(t *testing.T) {
	db := newScreeningTestDB(t)
	publisher := &publisherStub{err: errors.New("nats down")}
	svc := NewScreeningService(repository.NewScreeningRepository(db), &predictorStub{configured: true, result: inference.Result{"probability": 0.1}}, &narratorStub{narrative: ai.Generated("ok")}, publisher, nil, zerolog.Nop())

	resp, err := svc.Submit(context.Background(), screening.VariantSimple, simpleInput(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, resp.SubmissionID)
	require.Len(t, publisher.events, 1)
}

func TestScreeningServiceGetHidesPendingAndForeignRecords(t *testing.T) {
	db := newScreeningTestDB(t)
	repo := repository.NewScreeningRepository(db)
	svc := NewScreeningService(repo, &predictorStub{configured: true, result: inference.Result{"probability": 0.5}}, &narratorStub{narrative: ai.Generated("ok")}, nil, nil, zerolog.Nop())
	ctx := context.Background()

	owner := uint(3)
	resp, err := svc.Submit(ctx, screening.VariantSimple, simpleInput(), &owner)
	require.NoError(t, err)

	got, err := svc.Get(ctx, screening.VariantSimple, resp.SubmissionID, &owner)
	require.NoError(t, err)
	require.Equal(t, models.ScreeningStatusCompleted, got.Status)
	require.InDelta(t, 0.5, cast.ToFloat64(got.ModelOutput["probability"]), 0.0001)

	stranger := uint(4)
	_, err = svc.Get(ctx, screening.VariantSimple, resp.SubmissionID, &stranger)
	require.ErrorIs(t, err, ErrScreeningNotFound)
	_, err = svc.Get(ctx, screening.VariantSimple, resp.SubmissionID, nil)
	require.ErrorIs(t, err, ErrScreeningNotFound)

	pending := &models.SimpleScreening{Symptoms: models.Symptoms{Age: 30, MenstrualCycleType: 2}}
	require.NoError(t, repo.Create(ctx, pending))
	_, err = svc.Get(ctx, screening.VariantSimple, pending.ID, nil)
	require.ErrorIs(t, err, ErrScreeningNotFound)

	_, err = svc.Get(ctx, screening.VariantClinical, "missing", nil)
	require.ErrorIs(t, err, ErrScreeningNotFound)
}

func TestScreeningServiceHistoryAndAdminListing(t *testing.T) {
	db := newScreeningTestDB(t)
	repo := repository.NewScreeningRepository(db)
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewScreeningService(repo, &predictorStub{configured: true, result: inference.Result{"probability": 0.9}}, &narratorStub{narrative: ai.Generated("ok")}, nil, validate, zerolog.Nop())
	ctx := context.Background()

	owner := uint(9)
	_, err := svc.Submit(ctx, screening.VariantSimple, simpleInput(), &owner)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, screening.VariantClinical, simpleInput(), &owner)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, &models.SimpleScreening{ScreeningBase: models.ScreeningBase{UserID: &owner}}))

	history, err := svc.History(ctx, owner, dto.ScreeningListQuery{})
	require.NoError(t, err)
	require.Len(t, history.Items, 2)
	require.Equal(t, int64(2), history.Pagination.TotalItems)
	require.Equal(t, screening.RiskHigh, history.Items[0].RiskLevel)
	require.NotNil(t, history.Items[0].Probability)
	require.InDelta(t, 0.9, *history.Items[0].Probability, 0.0001)

	admin, err := svc.ListRecent(ctx, dto.ScreeningListQuery{Variant: "simple", PageSize: 10})
	require.NoError(t, err)
	require.Len(t, admin.Items, 2)
	statuses := []string{admin.Items[0].Status, admin.Items[1].Status}
	require.ElementsMatch(t, []string{models.ScreeningStatusPending, models.ScreeningStatusCompleted}, statuses)

	_, err = svc.ListRecent(ctx, dto.ScreeningListQuery{Variant: "xray"})
	var validationErr *screening.ValidationError
	require.True(t, errors.As(err, &validationErr))
}

func TestOutputProbabilityReadsStoredNumbers(t *testing.T) {
	value, ok := outputProbability(datatypes.JSONMap{"probability": json.Number("0.73")})
	require.True(t, ok)
	require.InDelta(t, 0.73, value, 0.0001)

	value, ok = outputProbability(datatypes.JSONMap{"probability": 0.4})
	require.True(t, ok)
	require.InDelta(t, 0.4, value, 0.0001)

	_, ok = outputProbability(datatypes.JSONMap{"probability": "high"})
	require.False(t, ok)
	_, ok = outputProbability(nil)
	require.False(t, ok)
}
