package dto

import "time"

// ReportResponse is the printable summary of a completed submission.
type ReportResponse struct {
	SubmissionID    string                 `json:"submissionId"`
	Variant         string                 `json:"variant"`
	Probability     float64                `json:"probability"`
	RiskLevel       string                 `json:"riskLevel"`
	RiskColor       string                 `json:"riskColor"`
	Narration       string                 `json:"narration"`
	Insights        []string               `json:"insights"`
	Recommendations RecommendationsPayload `json:"recommendations"`
	Combined        *CombinedPayload       `json:"combined,omitempty"`
	GeneratedAt     time.Time              `json:"generatedAt"`
}

// CombinedPayload joins an image report with the owner's latest symptom screening.
type CombinedPayload struct {
	SymptomSubmissionID string   `json:"symptomSubmissionId"`
	Probability         float64  `json:"probability"`
	RiskLevel           string   `json:"riskLevel"`
	Insights            []string `json:"insights"`
}

// RecommendationsPayload groups lifestyle and medical advice.
type RecommendationsPayload struct {
	Diet     []string `json:"diet"`
	Exercise []string `json:"exercise"`
	Medical  []string `json:"medical"`
}
