package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Shin-ichiroh/Manuscript-review/internal/ai"
	"github.com/Shin-ichiroh/Manuscript-review/internal/ai/gemini"
	"github.com/Shin-ichiroh/Manuscript-review/internal/ai/simulator"
	"github.com/Shin-ichiroh/Manuscript-review/internal/history"
	"github.com/Shin-ichiroh/Manuscript-review/internal/logger"
	"github.com/Shin-ichiroh/Manuscript-review/internal/pipeline"
	"github.com/Shin-ichiroh/Manuscript-review/internal/posting"
	"github.com/Shin-ichiroh/Manuscript-review/internal/review"
	"github.com/Shin-ichiroh/Manuscript-review/internal/rulebook"
	"github.com/Shin-ichiroh/Manuscript-review/internal/secrets"
)

// bootstrap builds the logger and reads the configuration. Failures are fatal.
func bootstrap() (*zap.Logger, *Config) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), zap.String("app", app))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil {
		logger.Fatal("config is required")
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return logger, config
}

func rulebookOptions(cfg *RulebookConfig) rulebook.Options {
	opts := rulebook.DefaultOptions()
	if cfg == nil {
		return opts
	}
	if marker := strings.TrimSpace(cfg.SplitMarker); marker != "" {
		opts.SplitMarker = marker
	}
	if len(cfg.IgnoredHeaders) > 0 {
		opts.IgnoredHeaders = cfg.IgnoredHeaders
	}
	return opts
}

func rulebookPath(config *Config) string {
	if config.Rulebook == nil {
		return viper.GetString("rulebook.path")
	}
	return config.Rulebook.Path
}

// newGenerator returns nil when no model is configured; reviews are then simulated.
func newGenerator(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Generator, error) {
	if cfg == nil || !cfg.Enabled {
		logger.Info("ai review disabled, reviews are simulated")
		return nil, nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		return nil, errors.New("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if errors.Is(err, secrets.ErrNotConfigured) {
		logger.Warn("gemini api key is not configured, reviews are simulated",
			zap.String("hint", "set GEMINI_API_KEY, GEMINI_API_KEY_FILE or ai.gemini.api-key-file"),
		)
		return nil, nil
	}
	if err != nil {
		logger.Warn("reading gemini api key failed, reviews are simulated", zap.Error(err))
		return nil, nil
	}

	generator, err := gemini.NewGenerator(ctx, gemini.Config{
		APIKey:          apiKey,
		Model:           cfg.Gemini.Model,
		MaxRetries:      cfg.Gemini.MaxRetries,
		BaseDelay:       cfg.Gemini.RetryDelay,
		Temperature:     cfg.Gemini.Temperature,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
		MaxLogLength:    cfg.Gemini.MaxLogLength,
	}, logger.With(zap.Int("ai_retry_attempts", cfg.Gemini.MaxRetries)))
	if err != nil {
		return nil, err
	}

	return generator, nil
}

func newPipeline(ctx context.Context, config *Config, logger *zap.Logger) (*pipeline.Pipeline, error) {
	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("building ai generator: %w", err)
	}

	topK := 0
	if config.Retrieval != nil {
		topK = config.Retrieval.TopK
	}

	fetcher := posting.NewFetcher(logger, 0)
	if config.Fetcher != nil {
		fetcher = posting.NewFetcher(logger, config.Fetcher.Timeout)
		if ua := strings.TrimSpace(config.Fetcher.UserAgent); ua != "" {
			fetcher.UserAgent = ua
		}
	}

	return pipeline.New(pipeline.Deps{
		Fetcher:  fetcher,
		Rulebook: rulebook.NewCache(rulebookOptions(config.Rulebook), logger),
		Reviewer: review.New(generator, simulator.New(nil), logger, topK),
		Logger:   logger,
	}, rulebookPath(config))
}

func newHistoryStore(config *Config) *history.Store {
	path := strings.TrimSpace(config.HistoryFile)
	if path == "" {
		path = viper.GetString("history-file")
	}
	return history.NewStore(path)
}

// withReviewTimeout bounds a single review by ai.timeout plus the fetch timeout.
func withReviewTimeout(ctx context.Context, config *Config) (context.Context, context.CancelFunc) {
	var timeout time.Duration
	if config.AI != nil {
		timeout += config.AI.Timeout
	}
	if config.Fetcher != nil {
		timeout += config.Fetcher.Timeout
	}
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
