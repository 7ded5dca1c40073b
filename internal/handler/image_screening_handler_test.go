package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pcos-screening-api/internal/dto"
	"github.com/noah-isme/pcos-screening-api/internal/handler"
	"github.com/noah-isme/pcos-screening-api/internal/service"
	"github.com/noah-isme/pcos-screening-api/pkg/inference"
)

type stubImageService struct {
	response dto.PredictionResponse
	err      error
	filename string
	userID   *uint
}

func (s *stubImageService) Submit(_ context.Context, file *multipart.FileHeader, userID *uint) (dto.PredictionResponse, error) {
	if file != nil {
		s.filename = file.Filename
	}
	s.userID = userID
	return s.response, s.err
}

func newImageApp(svc service.ImageScreeningService) *fiber.App {
	app := fiber.New()
	handler.NewImageScreeningHandler(svc, zerolog.Nop()).Register(app.Group("/api/model"))
	return app
}

func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/model/image", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestImageScreeningHandlerSuccess(t *testing.T) {
	svc := &stubImageService{response: dto.PredictionResponse{
		Message:      service.PredictionMessage,
		SubmissionID: "abc",
		InputMode:    "image",
		MLResult:     map[string]any{"probability": 0.4},
	}}

	resp, err := newImageApp(svc).Test(uploadRequest(t, "image", "scan.png", []byte("png")), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload dto.PredictionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, "image", payload.InputMode)
	require.Equal(t, "scan.png", svc.filename)
	require.Nil(t, svc.userID)
}

func TestImageScreeningHandlerMissingFile(t *testing.T) {
	svc := &stubImageService{}
	resp, err := newImageApp(svc).Test(uploadRequest(t, "document", "scan.png", []byte("png")), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Empty(t, svc.filename)
}

func TestImageScreeningHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"too large", service.ErrImageTooLarge, fiber.StatusRequestEntityTooLarge},
		{"wrong type", service.ErrImageTypeNotAllowed, fiber.StatusUnsupportedMediaType},
		{"upstream", &inference.UpstreamError{Reason: inference.ReasonStatus, StatusCode: 502, Body: "bad gateway"}, fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubImageService{err: tc.err}
			resp, err := newImageApp(svc).Test(uploadRequest(t, "image", "scan.png", []byte("png")), -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tc.status, resp.StatusCode)

			var payload map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
			require.Equal(t, false, payload["success"])
			if tc.status == fiber.StatusInternalServerError {
				require.Equal(t, "Failed to process image model request", payload["message"])
				require.Equal(t, "bad gateway", payload["error"])
			}
		})
	}
}
