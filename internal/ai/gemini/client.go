package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Shin-ichiroh/Manuscript-review/internal/ai"
	"github.com/Shin-ichiroh/Manuscript-review/internal/logger"
	"github.com/Shin-ichiroh/Manuscript-review/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	Provider = "gemini"

	defaultModel           = "gemini-2.5-pro"
	defaultMaxRetries      = 3
	defaultTemperature     = 0.2
	defaultMaxOutputTokens = 2048
	defaultBaseDelay       = time.Second
	defaultMaxRetryDelay   = 30 * time.Second
	defaultMaxLogLength    = 200
)

var retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9]+(?:\.[0-9]+)?)\s*(?:s\b|sec|second)`)

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config holds the Gemini client settings.
type Config struct {
	APIKey     string
	Model      string
	MaxRetries int
	// Temperature is sent as is, zero included; nil selects the default.
	Temperature     *float32
	MaxOutputTokens int32
	// BaseDelay is the first backoff step; it doubles on every retry.
	BaseDelay time.Duration
	// MaxRetryDelay caps the delay the API may ask for. A longer requested
	// delay ends the retries.
	MaxRetryDelay time.Duration
	MaxLogLength  int
}

// Generator wraps the Google GenAI client to provide prompt-based completions.
type Generator struct {
	models          modelsAPI
	model           string
	maxRetries      int
	temperature     float32
	maxOutputTokens int32
	baseDelay       time.Duration
	maxRetryDelay   time.Duration
	maxLogLen       int
	logger          *zap.Logger
}

// NewGenerator creates a Generator configured for the Gemini API backend.
// An empty API key yields an error wrapping ai.ErrNotConfigured.
func NewGenerator(ctx context.Context, cfg Config, l *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required: %w", ai.ErrNotConfigured)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, cfg, l), nil
}

func newGenerator(models modelsAPI, cfg Config, l *zap.Logger) *Generator {
	g := &Generator{
		models:          models,
		model:           strings.TrimSpace(cfg.Model),
		maxRetries:      cfg.MaxRetries,
		temperature:     defaultTemperature,
		maxOutputTokens: cfg.MaxOutputTokens,
		baseDelay:       cfg.BaseDelay,
		maxRetryDelay:   cfg.MaxRetryDelay,
		maxLogLen:       cfg.MaxLogLength,
	}

	if g.model == "" {
		g.model = defaultModel
	}
	if g.maxRetries <= 0 {
		g.maxRetries = defaultMaxRetries
	}
	if cfg.Temperature != nil {
		g.temperature = *cfg.Temperature
	}
	if g.maxOutputTokens <= 0 {
		g.maxOutputTokens = defaultMaxOutputTokens
	}
	if g.baseDelay < 0 {
		g.baseDelay = defaultBaseDelay
	}
	if g.maxRetryDelay <= 0 {
		g.maxRetryDelay = defaultMaxRetryDelay
	}
	if g.maxLogLen <= 0 {
		g.maxLogLen = defaultMaxLogLength
	}

	g.logger = logger.WithCommonFields(l, Provider, g.model)

	return g
}

// GenerateContent sends the prompt to Gemini and returns the textual response.
// Temporary API failures are retried with exponential backoff; at most
// MaxRetries calls are made in total.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", fmt.Errorf("gemini generator is not initialized: %w", ai.ErrNotConfigured)
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxOutputTokens,
	}

	g.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		output, err := g.generateOnce(ctx, prompt, config)
		if err == nil {
			g.logger.Debug("gemini generate content response",
				zap.Int("attempt", attempt+1),
				zap.Int("response_length", utf8.RuneCountInString(output)),
				zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
			)
			return output, nil
		}
		lastErr = err

		delay, retry := g.retryDelay(err, attempt)
		if !retry || attempt+1 >= g.maxRetries {
			break
		}

		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := utils.WaitFor(ctx, delay); err != nil {
			return "", fmt.Errorf("waiting to retry gemini request: %w", err)
		}
	}

	return "", lastErr
}

func (g *Generator) generateOnce(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return "", errors.New("gemini api returned empty response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

// retryDelay reports whether err is worth another attempt and how long to wait.
func (g *Generator) retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}

	if apiErr.Code != http.StatusTooManyRequests && apiErr.Code < http.StatusInternalServerError {
		return 0, false
	}

	delay := time.Duration(float64(g.baseDelay) * math.Pow(2, float64(attempt)))

	if requested, ok := requestedDelay(apiErr.Message); ok {
		if requested > g.maxRetryDelay {
			return 0, false
		}
		if requested > delay {
			delay = requested
		}
	}

	return delay, true
}

func requestedDelay(message string) (time.Duration, bool) {
	m := retryAfterPattern.FindStringSubmatch(message)
	if m == nil {
		return 0, false
	}

	seconds, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	return time.Duration(seconds * float64(time.Second)), true
}

func (g *Generator) Provider() string {
	return Provider
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}
