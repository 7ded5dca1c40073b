package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	completionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pcos",
		Subsystem: "ai",
		Name:      "completion_duration_seconds",
		Help:      "Duration of generative completion requests",
	}, []string{"provider", "model"})

	completionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pcos",
		Subsystem: "ai",
		Name:      "completion_failures_total",
		Help:      "Number of generative completion failures",
	}, []string{"provider", "model"})
)

// DefaultOpenAIBaseURL points the OpenAI client at Gemini's OpenAI-compatible
// endpoint.
const DefaultOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// OpenAIConfig defines configuration options for the OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// OpenAIGenerator implements TextGenerator against a chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
}

// NewOpenAIGenerator builds a generator using the provided configuration.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 400
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/pcos-screening-api/pkg/ai/openai"),
	}, nil
}

// Provider names the backing API.
func (g *OpenAIGenerator) Provider() string {
	return "openai"
}

// Complete sends a single-turn chat completion request.
func (g *OpenAIGenerator) Complete(parent context.Context, system, prompt string) (string, error) {
	ctx, span := g.tracer.Start(parent, "openai.complete", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
	))
	defer span.End()

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages:    messages,
	})
	completionDuration.WithLabelValues(g.Provider(), g.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		completionFailures.WithLabelValues(g.Provider(), g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("openai complete: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		completionFailures.WithLabelValues(g.Provider(), g.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return resp.Choices[0].Message.Content, nil
}
