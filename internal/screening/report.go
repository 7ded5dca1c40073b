package screening

import (
	"fmt"
	"strconv"
)

// Risk levels derived from a model probability.
const (
	RiskHigh     = "High"
	RiskModerate = "Moderate"
	RiskLow      = "Low"
)

// RiskLevel is a labelled probability band with its display colour.
type RiskLevel struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// Recommendations groups lifestyle and medical advice for a risk band.
type Recommendations struct {
	Diet     []string `json:"diet"`
	Exercise []string `json:"exercise"`
	Medical  []string `json:"medical"`
}

// ClassifyRisk maps a probability to a risk band. Bounds are exclusive.
func ClassifyRisk(probability float64) RiskLevel {
	switch {
	case probability > 0.75:
		return RiskLevel{Label: RiskHigh, Color: "red"}
	case probability > 0.35:
		return RiskLevel{Label: RiskModerate, Color: "orange"}
	default:
		return RiskLevel{Label: RiskLow, Color: "green"}
	}
}

// RecommendationsFor returns the advice attached to a risk band.
func RecommendationsFor(label string) Recommendations {
	switch label {
	case RiskHigh:
		return Recommendations{
			Diet: []string{
				"Strict Low-Glycemic Index (GI) Diet: Avoid sugary foods, white bread, and pasta.",
				"Anti-inflammatory foods: Increase intake of turmeric, ginger, fatty fish (salmon), and leafy greens.",
				"Eliminate processed foods and trans fats immediately.",
				"Consider intermittent fasting (14:10 window) after consulting a doctor.",
			},
			Exercise: []string{
				"Daily: 45 minutes of moderate cardio (brisk walking, swimming).",
				"Weekly: 3 sessions of High-Intensity Interval Training (HIIT) to improve insulin sensitivity.",
				"Strength Training: Essential for metabolism boosting (2-3 times/week).",
			},
			Medical: []string{
				"Consult a Gynecologist immediately for a transvaginal ultrasound confirmation.",
				"Request comprehensive blood work: HbA1c (Diabetes), Lipid Profile, and Androgen levels.",
				"Discuss Insulin-sensitizing medication (like Metformin) with your doctor.",
			},
		}
	case RiskModerate:
		return Recommendations{
			Diet: []string{
				"Balanced Plate: 50% vegetables, 25% protein, 25% whole grains.",
				"Reduce dairy intake if acne is present.",
				"Hydration: Drink 2-3 liters of water daily.",
				"Limit caffeine and alcohol.",
			},
			Exercise: []string{
				"Daily: 30 minutes of active movement.",
				"Weekly: 2-3 sessions of resistance training or yoga.",
				"Stress management exercises (Meditation/Pranayama) to lower cortisol.",
			},
			Medical: []string{
				"Schedule a check-up within the next 3 months.",
				"Track menstrual cycles using an app for 3 months to identify patterns.",
				"Monitor weight changes weekly.",
			},
		}
	default:
		return Recommendations{
			Diet: []string{
				"Maintain a healthy, balanced diet rich in fiber.",
				"Focus on whole foods and avoid excessive late-night snacking.",
			},
			Exercise: []string{
				"Maintain an active lifestyle (150 minutes of activity per week).",
				"Regular stretching or yoga.",
			},
			Medical: []string{
				"Continue annual routine health check-ups.",
				"Report any sudden changes in period regularity to your doctor.",
			},
		}
	}
}

// SymptomFacts are the stored answers that drive the written insights.
type SymptomFacts struct {
	IrregularCycle bool
	HairGrowth     bool
	FSHLHRatio     *float64
}

// Insights builds the short findings shown above the recommendations.
func Insights(variant Variant, probability float64, facts SymptomFacts) []string {
	risk := ClassifyRisk(probability).Label

	if variant == VariantImage {
		return []string{
			fmt.Sprintf("Image analysis indicates a %s likelihood of Polycystic Morphology.", risk),
			ImageFinding(probability),
			"This analysis focuses strictly on visual patterns in the uploaded ultrasound.",
		}
	}

	insights := []string{fmt.Sprintf("Symptom profile correlates with a %s risk of PCOS.", risk)}
	if facts.IrregularCycle {
		insights = append(insights, "Cycle irregularity is the dominant factor.")
	} else {
		insights = append(insights, "Cycles appear regular.")
	}
	if facts.HairGrowth {
		insights = append(insights, "Signs of clinical hyperandrogenism (excess hair) detected.")
	} else {
		insights = append(insights, "No significant signs of hirsutism reported.")
	}
	if variant == VariantClinical && facts.FSHLHRatio != nil {
		insights = append(insights, fmt.Sprintf("An FSH/LH ratio of %s was included in the assessment.", strconv.FormatFloat(*facts.FSHLHRatio, 'f', -1, 64)))
	}
	return insights
}

// ImageFinding describes the ultrasound result in one sentence.
func ImageFinding(probability float64) string {
	if probability > 0.5 {
		return "Multiple immature follicles detected in the ovarian periphery."
	}
	return "Ovarian texture appears normal."
}

// CombinedInsights summarises an ultrasound result together with the
// patient's latest symptom screening. The overall probability is the mean of
// the two model probabilities.
func CombinedInsights(imageProbability, symptomProbability float64, facts SymptomFacts) (float64, []string) {
	probability := (imageProbability + symptomProbability) / 2
	risk := ClassifyRisk(probability).Label

	insights := []string{
		fmt.Sprintf("The AI model detected a %s probability (%.1f%%) of PCOS based on the combined analysis.", risk, probability*100),
	}
	if imageProbability > 0.5 {
		insights = append(insights, "Ultrasound analysis shows potential follicular clustering.")
	} else {
		insights = append(insights, "Ultrasound analysis appears within normal range.")
	}
	if facts.IrregularCycle {
		insights = append(insights, "Reported irregular cycles are a strong clinical indicator.")
	} else {
		insights = append(insights, "Menstrual cycle reported as regular.")
	}
	return probability, insights
}
