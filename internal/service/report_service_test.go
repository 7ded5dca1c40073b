package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/noah-isme/pcos-screening-api/internal/models"
	"github.com/noah-isme/pcos-screening-api/internal/repository"
	"github.com/noah-isme/pcos-screening-api/internal/screening"
)

func TestReportServiceBuildsAndCachesReport(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	db := newScreeningTestDB(t)
	repo := repository.NewScreeningRepository(db)
	ctx := context.Background()

	ratio := 3.1
	owner := uint(5)
	record := &models.ClinicalScreening{
		ScreeningBase: models.ScreeningBase{UserID: &owner, ModelOutput: datatypes.JSONMap{"probability": 0.82, "narration": "Explained."}},
		Symptoms:      models.Symptoms{Age: 27, MenstrualCycleType: 4, HairGrowth: true},
		LabResults:    models.LabResults{FSHLHRatio: &ratio},
	}
	require.NoError(t, repo.Create(ctx, record))

	svc := NewReportService(repo, redisClient, time.Minute, zerolog.Nop())
	report, err := svc.GetReport(ctx, screening.VariantClinical, record.ID, &owner)
	require.NoError(t, err)

	require.InDelta(t, 0.82, report.Probability, 0.0001)
	require.Equal(t, screening.RiskHigh, report.RiskLevel)
	require.Equal(t, "red", report.RiskColor)
	require.Equal(t, "Explained.", report.Narration)
	require.Contains(t, report.Insights, "Cycle irregularity is the dominant factor.")
	require.Contains(t, report.Insights, "An FSH/LH ratio of 3.1 was included in the assessment.")
	require.NotEmpty(t, report.Recommendations.Diet)

	require.True(t, mini.Exists("report:screening:clinical:"+record.ID))

	// Served from cache even after the row disappears.
	require.NoError(t, db.Delete(&models.ClinicalScreening{}, "id = ?", record.ID).Error)
	cached, err := svc.GetReport(ctx, screening.VariantClinical, record.ID, &owner)
	require.NoError(t, err)
	require.Equal(t, report.Insights, cached.Insights)

	stranger := uint(6)
	_, err = svc.GetReport(ctx, screening.VariantClinical, record.ID, &stranger)
	require.ErrorIs(t, err, ErrScreeningNotFound)
}

func TestReportServiceWithoutCacheHidesPending(t *testing.T) {
	db := newScreeningTestDB(t)
	repo := repository.NewScreeningRepository(db)
	ctx := context.Background()

	pending := &models.SimpleScreening{Symptoms: models.Symptoms{Age: 40, MenstrualCycleType: 2}}
	require.NoError(t, repo.Create(ctx, pending))

	svc := NewReportService(repo, nil, 0, zerolog.Nop())
	_, err := svc.GetReport(ctx, screening.VariantSimple, pending.ID, nil)
	require.ErrorIs(t, err, ErrScreeningNotFound)

	require.NoError(t, repo.SaveOutput(ctx, screening.VariantSimple, pending.ID, datatypes.JSONMap{"probability": 0.2, "narration": "Fine."}))
	report, err := svc.GetReport(ctx, screening.VariantSimple, pending.ID, nil)
	require.NoError(t, err)
	require.InDelta(t, 0.2, report.Probability, 0.0001)
	require.Equal(t, screening.RiskLow, report.RiskLevel)
	require.Contains(t, report.Insights, "Cycles appear regular.")
}

func TestReportServiceCombinesImageWithLatestSymptoms(t *testing.T) {
	db := newScreeningTestDB(t)
	repo := repository.NewScreeningRepository(db)
	ctx := context.Background()

	owner := uint(11)
	earlier := time.Now().Add(-time.Hour)
	older := &models.SimpleScreening{
		ScreeningBase: models.ScreeningBase{UserID: &owner, ModelOutput: datatypes.JSONMap{"probability": 0.1}, CreatedAt: earlier},
		Symptoms:      models.Symptoms{Age: 30, MenstrualCycleType: 2},
	}
	latest := &models.ClinicalScreening{
		ScreeningBase: models.ScreeningBase{UserID: &owner, ModelOutput: datatypes.JSONMap{"probability": 0.7}, CreatedAt: earlier.Add(time.Minute)},
		Symptoms:      models.Symptoms{Age: 30, MenstrualCycleType: 4},
	}
	pending := &models.SimpleScreening{
		ScreeningBase: models.ScreeningBase{UserID: &owner, CreatedAt: earlier.Add(2 * time.Minute)},
		Symptoms:      models.Symptoms{Age: 30, MenstrualCycleType: 2},
	}
	image := &models.ImageScreening{
		ScreeningBase: models.ScreeningBase{UserID: &owner, ModelOutput: datatypes.JSONMap{"probability": 0.9}},
		ImageURL:      "https://cdn/scan.png",
	}
	for _, record := range []models.ScreeningRecord{older, latest, pending, image} {
		require.NoError(t, repo.Create(ctx, record))
	}

	svc := NewReportService(repo, nil, 0, zerolog.Nop())
	report, err := svc.GetReport(ctx, screening.VariantImage, image.ID, &owner)
	require.NoError(t, err)
	require.InDelta(t, 0.9, report.Probability, 0.0001)
	require.NotNil(t, report.Combined)
	require.Equal(t, latest.ID, report.Combined.SymptomSubmissionID)
	require.InDelta(t, 0.8, report.Combined.Probability, 0.0001)
	require.Equal(t, screening.RiskHigh, report.Combined.RiskLevel)
	require.Contains(t, report.Combined.Insights, "Reported irregular cycles are a strong clinical indicator.")

	symptomReport, err := svc.GetReport(ctx, screening.VariantClinical, latest.ID, &owner)
	require.NoError(t, err)
	require.Nil(t, symptomReport.Combined)
}

func TestReportServiceImageWithoutSymptomsHasNoCombinedSection(t *testing.T) {
	db := newScreeningTestDB(t)
	repo := repository.NewScreeningRepository(db)
	ctx := context.Background()

	image := &models.ImageScreening{
		ScreeningBase: models.ScreeningBase{ModelOutput: datatypes.JSONMap{"probability": 0.3}},
		ImageURL:      "https://cdn/scan.png",
	}
	require.NoError(t, repo.Create(ctx, image))

	report, err := NewReportService(repo, nil, 0, zerolog.Nop()).GetReport(ctx, screening.VariantImage, image.ID, nil)
	require.NoError(t, err)
	require.Nil(t, report.Combined)
	require.Equal(t, screening.RiskLow, report.RiskLevel)
}
