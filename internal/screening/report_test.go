package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyRiskBands(t *testing.T) {
	assert.Equal(t, RiskHigh, ClassifyRisk(0.9).Label)
	assert.Equal(t, RiskModerate, ClassifyRisk(0.75).Label)
	assert.Equal(t, RiskModerate, ClassifyRisk(0.36).Label)
	assert.Equal(t, RiskLow, ClassifyRisk(0.35).Label)
	assert.Equal(t, "green", ClassifyRisk(0).Color)
}

func TestRecommendationsFollowRiskBand(t *testing.T) {
	high := RecommendationsFor(RiskHigh)
	assert.Len(t, high.Diet, 4)
	assert.Len(t, high.Medical, 3)

	low := RecommendationsFor(RiskLow)
	assert.Len(t, low.Diet, 2)
	assert.Contains(t, low.Medical[0], "annual")
}

func TestInsightsBySymptoms(t *testing.T) {
	ratio := 2.1
	insights := Insights(VariantClinical, 0.8, SymptomFacts{IrregularCycle: true, FSHLHRatio: &ratio})

	assert.Equal(t, []string{
		"Symptom profile correlates with a High risk of PCOS.",
		"Cycle irregularity is the dominant factor.",
		"No significant signs of hirsutism reported.",
		"An FSH/LH ratio of 2.1 was included in the assessment.",
	}, insights)
}

func TestInsightsForImage(t *testing.T) {
	insights := Insights(VariantImage, 0.2, SymptomFacts{})
	assert.Equal(t, "Image analysis indicates a Low likelihood of Polycystic Morphology.", insights[0])
	assert.Equal(t, "Ovarian texture appears normal.", insights[1])
}

func TestCombinedInsightsAverageBothModels(t *testing.T) {
	probability, insights := CombinedInsights(0.9, 0.7, SymptomFacts{IrregularCycle: true})

	assert.InDelta(t, 0.8, probability, 0.0001)
	assert.Equal(t, []string{
		"The AI model detected a High probability (80.0%) of PCOS based on the combined analysis.",
		"Ultrasound analysis shows potential follicular clustering.",
		"Reported irregular cycles are a strong clinical indicator.",
	}, insights)
}

func TestCombinedInsightsNormalFindings(t *testing.T) {
	probability, insights := CombinedInsights(0.2, 0.3, SymptomFacts{})

	assert.InDelta(t, 0.25, probability, 0.0001)
	assert.Equal(t, "The AI model detected a Low probability (25.0%) of PCOS based on the combined analysis.", insights[0])
	assert.Equal(t, "Ultrasound analysis appears within normal range.", insights[1])
	assert.Equal(t, "Menstrual cycle reported as regular.", insights[2])
}
