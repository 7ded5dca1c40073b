package contract_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/pcos-screening-api/internal/handler"
	"github.com/noah-isme/pcos-screening-api/internal/models"
	"github.com/noah-isme/pcos-screening-api/internal/repository"
	"github.com/noah-isme/pcos-screening-api/internal/service"
	"github.com/noah-isme/pcos-screening-api/pkg/ai"
	"github.com/noah-isme/pcos-screening-api/pkg/inference"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", name))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func newContractApp(t *testing.T) *fiber.App {
	t.Helper()

	ml := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"probability":0.42,"prediction":0}`))
	}))
	t.Cleanup(ml.Close)

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.ScreeningModels()...))

	logger := zerolog.Nop()
	repo := repository.NewScreeningRepository(db)
	predictor := inference.New(inference.Config{BaseURL: ml.URL, Timeout: 2 * time.Second, Logger: logger})
	screenings := service.NewScreeningService(repo, predictor, ai.NewNarrator(nil, logger), nil, nil, logger)
	reports := service.NewReportService(repo, nil, time.Minute, logger)

	app := fiber.New()
	handler.NewScreeningHandler(screenings, reports, logger).Register(app.Group("/api/model"))
	return app
}

func readJSON(t *testing.T, resp *http.Response) interface{} {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func TestClinicalPredictionAndReportContract(t *testing.T) {
	predictionSchema := compileSchema(t, "prediction_response.schema.json")
	reportSchema := compileSchema(t, "screening_report.schema.json")
	app := newContractApp(t)

	body, err := json.Marshal(map[string]any{
		"age": 27, "bmi": 25.1, "pulseRate": 74, "respiratoryRate": 18, "hemoglobin": 12,
		"menstrualCycleType": "2", "averageCycleLength": 29,
		"weightGain": 0, "hairGrowth": 1, "skinDarkening": 0, "hairLoss": 0, "pimples": 1,
		"fastFood": 0, "regularExercise": 1, "bpSystolic": 115, "bpDiastolic": 75,
		"FSH": 5.4, "LH": 11.2, "AMH": 6.8, "TSH": 0,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/model/clinical", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	prediction := readJSON(t, resp)
	require.NoError(t, predictionSchema.Validate(prediction))

	id := prediction.(map[string]interface{})["submissionId"].(string)
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/model/submissions/clinical/"+id+"/report", nil), -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	report := readJSON(t, resp)
	require.NoError(t, reportSchema.Validate(report))
}
