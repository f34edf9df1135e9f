package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/phrazzld/sprint-insights/internal/config"
	"github.com/phrazzld/sprint-insights/internal/generation"
)

const (
	defaultMaxRetries        = 3
	defaultRetryDelaySeconds = 2
)

// ContentGenerator is the subset of the genai Models service used here.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Generator implements generation.TextGenerator using the Gemini API.
type Generator struct {
	logger     *slog.Logger
	models     ContentGenerator
	model      string
	maxRetries int
	baseDelay  time.Duration

	mu  sync.Mutex
	rng *rand.Rand

	// wait blocks for d or until ctx is done; replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

var _ generation.TextGenerator = (*Generator)(nil)

// NewGenerator creates a Generator backed by a new genai client.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return NewGeneratorWithModels(logger, cfg, client.Models)
}

// NewGeneratorWithModels creates a Generator around an existing content
// generator. Invalid retry settings fall back to defaults.
func NewGeneratorWithModels(logger *slog.Logger, cfg config.LLMConfig, models ContentGenerator) (*Generator, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if models == nil {
		return nil, fmt.Errorf("%w: content generator cannot be nil", generation.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		logger.Warn("invalid max retries value, using default", "max_retries", defaultMaxRetries)
		maxRetries = defaultMaxRetries
	}

	delaySeconds := cfg.RetryDelaySeconds
	if delaySeconds < 1 {
		logger.Warn("invalid retry delay value, using default", "base_delay_seconds", defaultRetryDelaySeconds)
		delaySeconds = defaultRetryDelaySeconds
	}

	return &Generator{
		logger:     logger.With("component", "gemini_generator", "model", cfg.ModelName),
		models:     models,
		model:      cfg.ModelName,
		maxRetries: maxRetries,
		baseDelay:  time.Duration(delaySeconds) * time.Second,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		wait:       sleepContext,
	}, nil
}

// GenerateText sends prompt to the model, retrying transient failures up to
// the configured number of times.
func (g *Generator) GenerateText(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	for attempt := 0; ; attempt++ {
		g.logger.DebugContext(ctx, "making Gemini API call",
			"attempt", attempt+1,
			"max_attempts", g.maxRetries+1)

		text, err := g.generateOnce(ctx, prompt)
		if err == nil {
			g.logger.DebugContext(ctx, "Gemini API call successful", "attempt", attempt+1)
			return text, nil
		}

		if !generation.IsRetryable(err) {
			g.logger.WarnContext(ctx, "permanent error occurred, not retrying",
				"attempt", attempt+1,
				"error", err)
			return "", err
		}

		if attempt >= g.maxRetries {
			g.logger.WarnContext(ctx, "maximum retry attempts reached",
				"max_retries", g.maxRetries,
				"error", err)
			return "", fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				generation.ErrTransientFailure, g.maxRetries, err)
		}

		delay := g.backoff(attempt)
		g.logger.InfoContext(ctx, "retrying after delay",
			"attempt", attempt+1,
			"delay", delay.String(),
			"error", err)

		if err := g.wait(ctx, delay); err != nil {
			return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		}
	}
}

func (g *Generator) generateOnce(ctx context.Context, prompt string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %v", generation.ErrGenerationFailed, ctxErr)
		}
		return "", fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", generation.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: finish reason %s", generation.ErrContentBlocked, candidate.FinishReason)
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", generation.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: response contained no text", generation.ErrInvalidResponse)
	}
	return text, nil
}

// backoff returns baseDelay * 2^attempt scaled by a jitter factor in [0.5, 1.0).
func (g *Generator) backoff(attempt int) time.Duration {
	g.mu.Lock()
	jitter := 0.5 + g.rng.Float64()*0.5
	g.mu.Unlock()

	return time.Duration(float64(g.baseDelay) * math.Pow(2, float64(attempt)) * jitter)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
