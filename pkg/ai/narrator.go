package ai

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// FallbackNarrative is shown when the language model cannot be reached.
const FallbackNarrative = "Based on your reported symptoms and the AI analysis, there are indicators consistent with your risk level. We recommend consulting a healthcare provider for a detailed evaluation."

const narratorSystemPrompt = "You are a compassionate gynecologist explaining PCOS screening results to a patient. Use plain language and never give a diagnosis."

var narrativeFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pcos",
	Subsystem: "ai",
	Name:      "narrative_fallbacks_total",
	Help:      "Number of narratives replaced by the fallback sentence",
}, []string{"reason"})

// NarrativeInput holds the patient facts embedded in the prompt.
type NarrativeInput struct {
	Variant        string
	Age            float64
	BMI            float64
	IrregularCycle bool
	WeightGain     bool
	HairGrowth     bool
	Acne           bool
	FSHLHRatio     *float64
	Probability    float64
}

// Narrator explains a model probability in patient-friendly language.
type Narrator struct {
	generator TextGenerator
	logger    zerolog.Logger
}

// NewNarrator builds a narrator. A nil generator means no credential was
// configured and every narrative falls back.
func NewNarrator(generator TextGenerator, logger zerolog.Logger) *Narrator {
	return &Narrator{
		generator: generator,
		logger:    logger.With().Str("component", "narrator").Logger(),
	}
}

// Generate never fails: every error is folded into an Unavailable narrative.
func (n *Narrator) Generate(ctx context.Context, input NarrativeInput) Narrative {
	if n == nil || n.generator == nil {
		return n.unavailable("api key missing", nil)
	}

	text, err := n.generator.Complete(ctx, narratorSystemPrompt, BuildNarrativePrompt(input))
	if err != nil {
		return n.unavailable("generation failed", err)
	}

	// The answer is returned as produced; only a blank one falls back.
	if strings.TrimSpace(text) == "" {
		return n.unavailable("empty response", nil)
	}

	return Generated(text)
}

func (n *Narrator) unavailable(reason string, err error) Narrative {
	narrativeFallbacks.WithLabelValues(reason).Inc()
	if n != nil {
		n.logger.Warn().Err(err).Str("reason", reason).Msg("narrative unavailable, using fallback")
	}
	return Unavailable(reason)
}

// PlainText strips markup from user supplied text and restores escaped
// entities so apostrophes and ampersands survive.
func PlainText(policy *bluemonday.Policy, text string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(text)))
}

// BuildNarrativePrompt renders the fixed prompt template.
func BuildNarrativePrompt(input NarrativeInput) string {
	variant := input.Variant
	if variant == "" {
		variant = "Simple"
	}

	builder := strings.Builder{}
	fmt.Fprintf(&builder, "A patient has undergone a PCOS screening (%s test).\n\n", variant)
	builder.WriteString("Patient Data:\n")
	fmt.Fprintf(&builder, "- Age: %s\n", formatNumber(input.Age))
	fmt.Fprintf(&builder, "- BMI: %s\n", formatNumber(input.BMI))
	fmt.Fprintf(&builder, "- Irregular Periods: %s\n", yesNo(input.IrregularCycle))
	fmt.Fprintf(&builder, "- Weight Gain: %s\n", yesNo(input.WeightGain))
	fmt.Fprintf(&builder, "- Excess Hair Growth: %s\n", yesNo(input.HairGrowth))
	fmt.Fprintf(&builder, "- Acne: %s\n", yesNo(input.Acne))
	if variant == "Clinical" {
		ratio := "N/A"
		if input.FSHLHRatio != nil {
			ratio = formatNumber(*input.FSHLHRatio)
		}
		fmt.Fprintf(&builder, "- FSH/LH Ratio: %s\n", ratio)
	}
	fmt.Fprintf(&builder, "\nThe AI Risk Model predicts: %.1f%% Probability of PCOS.\n\n", input.Probability*100)
	builder.WriteString("Task: Write a personalized 3-4 sentence analysis explaining these results to the patient in simple, non-medical language. ")
	builder.WriteString("Explain why their risk is high/low based on the specific symptoms provided above. ")
	builder.WriteString("Do not give a diagnosis. End with a general recommendation.")
	return builder.String()
}

func yesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
