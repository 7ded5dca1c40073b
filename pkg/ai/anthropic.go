package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// AnthropicConfig configures the Anthropic messages client.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
}

// AnthropicMessager is the subset of the SDK used here.
type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicGenerator implements TextGenerator with the Anthropic messages API.
type AnthropicGenerator struct {
	messages AnthropicMessager
	cfg      AnthropicConfig
	tracer   trace.Tracer
}

// NewAnthropicGenerator builds a generator backed by the official SDK.
func NewAnthropicGenerator(cfg AnthropicConfig) (*AnthropicGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	client := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
	return newAnthropicGenerator(&client.Messages, cfg), nil
}

func newAnthropicGenerator(messages AnthropicMessager, cfg AnthropicConfig) *AnthropicGenerator {
	if cfg.Model == "" {
		cfg.Model = string(anthropic.ModelClaudeSonnet4_20250514)
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 400
	}
	return &AnthropicGenerator{
		messages: messages,
		cfg:      cfg,
		tracer:   otel.Tracer("github.com/noah-isme/pcos-screening-api/pkg/ai/anthropic"),
	}
}

// Provider names the backing API.
func (g *AnthropicGenerator) Provider() string {
	return "anthropic"
}

// Complete sends a single user message and concatenates the text blocks.
func (g *AnthropicGenerator) Complete(parent context.Context, system, prompt string) (string, error) {
	ctx, span := g.tracer.Start(parent, "anthropic.complete", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
	))
	defer span.End()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(g.cfg.Model),
		MaxTokens: g.cfg.MaxTokens,
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	start := time.Now()
	resp, err := g.messages.New(ctx, params)
	completionDuration.WithLabelValues(g.Provider(), g.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		completionFailures.WithLabelValues(g.Provider(), g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("anthropic complete: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}
