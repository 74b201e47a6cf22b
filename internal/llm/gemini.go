package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"prsummarizer/pkg/circuitbreaker"
	"prsummarizer/pkg/config"
	"prsummarizer/pkg/logger"
	"prsummarizer/pkg/metrics"
	"prsummarizer/pkg/otel"
)

var (
	// ErrModelInvocation wraps every failed generateContent call.
	ErrModelInvocation = errors.New("llm: model invocation failed")
	// ErrCircuitOpen is returned without calling the model while the breaker is open.
	ErrCircuitOpen = fmt.Errorf("%w: %w", ErrModelInvocation, circuitbreaker.ErrCircuitBreakerOpen)

	errNoCandidates = errors.New("gemini returned no candidates")
)

// Generator is the single capability the classifier and summarizer need.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type GeminiClient struct {
	client *genai.Client
	model  string
	cb     *circuitbreaker.CircuitBreaker // 熔断器
	logger *zap.Logger
}

// NewGeminiClient builds a Gemini API client. The key travels in the
// x-goog-api-key header, never in the request URL.
func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig, log *zap.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: cfg.APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	// 模型接口慢且偶发 5xx，阈值放宽一点
	cbConfig := circuitbreaker.Config{
		Name:                "gemini",
		FailureThreshold:    5,
		SuccessThreshold:    1,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 1,
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &GeminiClient{
		client: client,
		model:  cfg.Model,
		cb:     circuitbreaker.NewCircuitBreaker(cbConfig),
		logger: log,
	}, nil
}

// Generate sends one prompt and returns the first candidate's text.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	log := logger.WithTrace(ctx, c.logger)
	ctx, span := otel.StartSpan(ctx, "llm.generate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.model), attribute.Int("llm.prompt_length", len(prompt)))

	var text string
	err := c.cb.Execute(func() error {
		start := time.Now()
		out, callErr := c.call(ctx, prompt)
		status := "success"
		if callErr != nil {
			status = "error"
		}
		metrics.RecordLLMCallLatency(c.model, status, time.Since(start))
		text = out
		return callErr
	})

	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		log.Warn("Gemini call rejected by circuit breaker", zap.String("model", c.model))
		span.SetStatus(codes.Error, "circuit open")
		return "", ErrCircuitOpen
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("%w: %w", ErrModelInvocation, err)
	}

	log.Debug("Gemini call succeeded",
		zap.String("model", c.model),
		zap.Int("prompt_length", len(prompt)),
		zap.Int("response_length", len(text)),
	)
	return text, nil
}

func (c *GeminiClient) call(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errNoCandidates
	}

	// 一个 candidate 可能被拆成多个 part
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	return sb.String(), nil
}
