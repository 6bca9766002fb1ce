package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	modelDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "essay",
		Subsystem: "ai",
		Name:      "completion_duration_seconds",
		Help:      "Duration of model completion requests",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
	}, []string{"model", "operation"})

	modelFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "essay",
		Subsystem: "ai",
		Name:      "completion_failures_total",
		Help:      "Number of failed model completion requests",
	}, []string{"model", "operation", "kind"})
)

// OpenAIConfig defines configuration options for the OpenAI-compatible client.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Logger    zerolog.Logger
}

// OpenAIClient implements ModelClient against a chat completion API.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIClient builds a client using the provided configuration.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4000
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	config.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/gema-essay-api/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_client").Logger(),
	}, nil
}

// Complete sends one chat completion request and returns the first choice.
func (c *OpenAIClient) Complete(parent context.Context, req CompletionRequest) (Completion, error) {
	operation := req.Operation
	if operation == "" {
		operation = "completion"
	}

	ctx, span := c.tracer.Start(parent, "openai.complete", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
		attribute.String("operation", operation),
	))
	defer span.End()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserPrompt,
	})

	request := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		Messages:    messages,
	}
	if req.JSONResponse {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	modelDuration.WithLabelValues(c.cfg.Model, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		classified := classifyError(err)
		c.fail(span, operation, classified)
		c.logger.Warn().Err(err).Str("operation", operation).Msg("model completion failed")
		return Completion{}, classified
	}

	if len(resp.Choices) == 0 {
		err := &ResponseError{Reason: "no choices returned"}
		c.fail(span, operation, err)
		return Completion{}, err
	}

	span.SetAttributes(
		attribute.Int("usage.prompt_tokens", resp.Usage.PromptTokens),
		attribute.Int("usage.completion_tokens", resp.Usage.CompletionTokens),
	)

	return Completion{
		Content:          strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (c *OpenAIClient) fail(span trace.Span, operation string, err error) {
	modelFailures.WithLabelValues(c.cfg.Model, operation, failureKind(err)).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, ErrModelUnavailable):
		return "unavailable"
	case errors.Is(err, ErrModelResponseFormat):
		return "format"
	default:
		return "rejected"
	}
}

// classifyError splits provider failures into retryable and terminal ones.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}

	return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
}

func classifyStatus(status int, err error) error {
	if status == http.StatusTooManyRequests || status == http.StatusRequestTimeout || status >= http.StatusInternalServerError || status == 0 {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrModelRequest, err)
}
