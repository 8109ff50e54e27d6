package ai

import (
	"context"
	"fmt"
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
	gatewayDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "exampilot",
		Subsystem: "llm",
		Name:      "request_duration_seconds",
		Help:      "Duration of LLM gateway requests",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
	}, []string{"model", "operation"})

	gatewayFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "exampilot",
		Subsystem: "llm",
		Name:      "request_failures_total",
		Help:      "Number of failed LLM gateway requests",
	}, []string{"model", "operation"})
)

// OpenAIConfig defines configuration options for the OpenAI-compatible gateway client.
type OpenAIConfig struct {
	APIKey string
	// BaseURL points at any OpenAI-compatible chat completion gateway.
	BaseURL     string
	Model       string
	VisionModel string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIGateway implements TextExtractor, Evaluator and Completer against a chat completion API.
type OpenAIGateway struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGateway builds a new gateway client using the provided configuration.
func NewOpenAIGateway(cfg OpenAIConfig) (*OpenAIGateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "google/gemini-2.5-flash"
	}

	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &OpenAIGateway{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/exampilot-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "llm_gateway").Logger(),
	}, nil
}

// ExtractText sends page images to the vision model and returns its transcription verbatim.
func (g *OpenAIGateway) ExtractText(ctx context.Context, req OCRRequest) (string, error) {
	if len(req.Images) == 0 {
		return "", fmt.Errorf("ocr request has no images")
	}

	parts := make([]openai.ChatMessagePart, 0, len(req.Images)+1)
	parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: req.Instruction})
	for _, image := range req.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: image, Detail: openai.ImageURLDetailHigh},
		})
	}

	resp, err := g.send(ctx, "ocr", g.cfg.VisionModel, openai.ChatCompletionRequest{
		Model:     g.cfg.VisionModel,
		MaxTokens: g.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	}, attribute.Int("ocr.pages", len(req.Images)))
	if err != nil {
		return "", err
	}

	return resp.Choices[0].Message.Content, nil
}

// Evaluate requests a forced submit_evaluation tool call and parses the result.
func (g *OpenAIGateway) Evaluate(ctx context.Context, input EvaluationInput) (EvaluationRecord, error) {
	tool := evaluationTool()
	resp, err := g.send(ctx, "evaluate", g.cfg.Model, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: evaluatorSystemPrompt()},
			{Role: openai.ChatMessageRoleUser, Content: buildEvaluationPrompt(input)},
		},
		Tools: []openai.Tool{tool},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: EvaluationFunctionName},
		},
	}, attribute.Bool("evaluation.has_key", strings.TrimSpace(input.AnswerKeyText) != ""))
	if err != nil {
		return EvaluationRecord{}, err
	}

	record, err := ParseEvaluationMessage(resp.Choices[0].Message)
	if err != nil {
		gatewayFailures.WithLabelValues(g.cfg.Model, "evaluate").Inc()
		g.logger.Error().Err(err).Int("tool_calls", len(resp.Choices[0].Message.ToolCalls)).Msg("evaluation response unusable")
		return EvaluationRecord{}, err
	}

	return record, nil
}

// Complete returns the text of a plain completion.
func (g *OpenAIGateway) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.User})

	resp, err := g.send(ctx, "complete", g.cfg.Model, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages:    messages,
	})
	if err != nil {
		return "", err
	}

	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGateway) send(parent context.Context, operation, model string, request openai.ChatCompletionRequest, attrs ...attribute.KeyValue) (openai.ChatCompletionResponse, error) {
	attrs = append(attrs, attribute.String("model", model), attribute.String("operation", operation))
	ctx, span := g.tracer.Start(parent, "llm."+operation, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, request)
	gatewayDuration.WithLabelValues(model, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		gatewayFailures.WithLabelValues(model, operation).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Error().Err(err).Str("operation", operation).Int("status", StatusCode(err)).Msg("llm gateway request failed")
		return openai.ChatCompletionResponse{}, classifyError(operation, err)
	}

	if len(resp.Choices) == 0 {
		gatewayFailures.WithLabelValues(model, operation).Inc()
		span.RecordError(ErrEmptyResponse)
		span.SetStatus(codes.Error, ErrEmptyResponse.Error())
		return openai.ChatCompletionResponse{}, fmt.Errorf("%s: %w", operation, ErrEmptyResponse)
	}

	span.SetAttributes(attribute.Int("usage.total_tokens", resp.Usage.TotalTokens))
	return resp, nil
}
