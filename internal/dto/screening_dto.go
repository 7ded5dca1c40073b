package dto

import (
	"time"

	"github.com/noah-isme/pcos-screening-api/internal/models"
)

// PredictionResponse is returned by the prediction endpoints.
type PredictionResponse struct {
	Message      string         `json:"message"`
	SubmissionID string         `json:"submissionId"`
	InputMode    string         `json:"inputMode"`
	MLResult     map[string]any `json:"mlResult"`
}

// ScreeningResponse serializes a stored submission.
type ScreeningResponse struct {
	ID          string         `json:"id"`
	Variant     string         `json:"variant"`
	Status      string         `json:"status"`
	UserID      *uint          `json:"userId"`
	Inputs      any            `json:"inputs"`
	ModelOutput map[string]any `json:"modelOutput"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// NewScreeningResponse converts a model into its response representation.
func NewScreeningResponse(record models.ScreeningRecord) ScreeningResponse {
	base := record.Base()
	var output map[string]any
	if base.IsCompleted() {
		output = map[string]any(base.ModelOutput)
	}
	return ScreeningResponse{
		ID:          base.ID,
		Variant:     string(record.Variant()),
		Status:      base.Status(),
		UserID:      base.UserID,
		Inputs:      record.Inputs(),
		ModelOutput: output,
		CreatedAt:   base.CreatedAt,
		UpdatedAt:   base.UpdatedAt,
	}
}

// ScreeningSummary is a history or admin list entry.
type ScreeningSummary struct {
	ID          string    `json:"id"`
	Variant     string    `json:"variant"`
	Status      string    `json:"status"`
	UserID      *uint     `json:"userId"`
	Probability *float64  `json:"probability"`
	RiskLevel   string    `json:"riskLevel,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ScreeningListQuery describes paging and filter query parameters.
type ScreeningListQuery struct {
	Variant  string `query:"variant" validate:"omitempty,oneof=simple clinical image"`
	Page     int    `query:"page" validate:"omitempty,gte=1"`
	PageSize int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// ScreeningListResponse wraps paged summaries.
type ScreeningListResponse struct {
	Items      []ScreeningSummary `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}
