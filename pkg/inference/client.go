package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/cast"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTimeout bounds a single prediction call.
const DefaultTimeout = 30 * time.Second

const resultSchemaSource = `{
  "type": "object",
  "required": ["probability"],
  "properties": {
    "probability": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

var (
	// ErrNotConfigured is returned when no inference base URL is configured.
	ErrNotConfigured = errors.New("inference service url not configured")

	resultSchema = jsonschema.MustCompileString("inference_result.json", resultSchemaSource)

	predictDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pcos",
		Subsystem: "inference",
		Name:      "predict_duration_seconds",
		Help:      "Duration of inference service prediction calls",
	}, []string{"variant"})

	predictFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pcos",
		Subsystem: "inference",
		Name:      "predict_failures_total",
		Help:      "Number of failed inference service prediction calls",
	}, []string{"variant", "reason"})
)

// Result is the decoded inference response, returned verbatim.
type Result map[string]any

// Probability returns the model probability carried by the result.
func (r Result) Probability() float64 {
	value, err := cast.ToFloat64E(r["probability"])
	if err != nil {
		return 0
	}
	return value
}

// Config defines how the client reaches the inference service.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client posts mapped payloads to the inference service.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
	tracer  trace.Tracer
	logger  zerolog.Logger
}

// New constructs a client. An empty base URL yields a client whose Predict
// calls fail with ErrNotConfigured.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				MaxIdleConns:          100,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   5 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
		}
	}

	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		timeout: cfg.Timeout,
		http:    httpClient,
		tracer:  otel.Tracer("github.com/noah-isme/pcos-screening-api/pkg/inference"),
		logger:  cfg.Logger.With().Str("component", "inference_client").Logger(),
	}
}

// Configured reports whether a base URL is available.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// Predict sends payload to <base>/predict/<variant>. Failures are returned as
// *UpstreamError; nothing is retried.
func (c *Client) Predict(parent context.Context, variant string, payload any) (Result, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	ctx, span := c.tracer.Start(parent, "inference.predict", trace.WithAttributes(
		attribute.String("inference.variant", variant),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	result, err := c.do(ctx, variant, payload)
	predictDuration.WithLabelValues(variant).Observe(time.Since(start).Seconds())
	if err != nil {
		var upstream *UpstreamError
		reason := "transport"
		if errors.As(err, &upstream) {
			reason = upstream.Reason
		}
		predictFailures.WithLabelValues(variant, reason).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error().Err(err).Str("variant", variant).Msg("inference call failed")
		return nil, err
	}

	span.SetAttributes(attribute.Float64("inference.probability", result.Probability()))
	return result, nil
}

func (c *Client) do(ctx context.Context, variant string, payload any) (Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode inference payload: %w", err)
	}

	url := fmt.Sprintf("%s/predict/%s", c.baseURL, variant)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       decodeBody(raw),
			Reason:     ReasonStatus,
			Err:        fmt.Errorf("inference service responded with status %d", resp.StatusCode),
		}
	}

	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       decodeBody(raw),
			Reason:     ReasonContract,
			Err:        fmt.Errorf("decode inference response: %w", err),
		}
	}

	if err := resultSchema.Validate(map[string]any(result)); err != nil {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       map[string]any(result),
			Reason:     ReasonContract,
			Err:        fmt.Errorf("inference response violates contract: %w", err),
		}
	}

	return result, nil
}

func transportError(err error) *UpstreamError {
	reason := ReasonNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		reason = ReasonTimeout
	}
	return &UpstreamError{Reason: reason, Err: err}
}

func decodeBody(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err == nil {
		return decoded
	}
	return string(trimmed)
}
