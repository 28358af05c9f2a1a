package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Shin-ichiroh/Manuscript-review/internal/history"
	"github.com/Shin-ichiroh/Manuscript-review/internal/pipeline"
	"github.com/Shin-ichiroh/Manuscript-review/internal/retrieval"
	"github.com/Shin-ichiroh/Manuscript-review/internal/review"
)

func TestGetConfigDefaults(t *testing.T) {
	config, err := getConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if config.Rulebook == nil || config.Rulebook.SplitMarker != "[SPLIT]" {
		t.Fatalf("unexpected rulebook config: %+v", config.Rulebook)
	}
	if config.Retrieval == nil || config.Retrieval.TopK != 3 {
		t.Fatalf("unexpected retrieval config: %+v", config.Retrieval)
	}
	if config.Fetcher == nil || config.Fetcher.Timeout != 15*time.Second {
		t.Fatalf("unexpected fetcher config: %+v", config.Fetcher)
	}
	if config.AI == nil || config.AI.Gemini == nil || config.AI.Gemini.MaxOutputTokens != 2048 {
		t.Fatalf("unexpected ai config: %+v", config.AI)
	}
	if config.AI.Gemini.Temperature == nil || *config.AI.Gemini.Temperature != 0.2 {
		t.Fatalf("unexpected default temperature: %v", config.AI.Gemini.Temperature)
	}
}

func TestGetConfigKeepsZeroTemperature(t *testing.T) {
	viper.Set("ai.gemini.temperature", 0)
	t.Cleanup(func() { viper.Set("ai.gemini.temperature", nil) })

	config, err := getConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.AI.Gemini.Temperature == nil || *config.AI.Gemini.Temperature != 0 {
		t.Fatalf("expected explicit zero temperature, got %v", config.AI.Gemini.Temperature)
	}
}

func TestRulebookOptions(t *testing.T) {
	opts := rulebookOptions(&RulebookConfig{SplitMarker: " <<<", IgnoredHeaders: []string{"####"}})
	if opts.SplitMarker != "<<<" {
		t.Fatalf("unexpected split marker: %q", opts.SplitMarker)
	}
	if len(opts.IgnoredHeaders) != 1 || opts.IgnoredHeaders[0] != "####" {
		t.Fatalf("unexpected ignored headers: %v", opts.IgnoredHeaders)
	}

	if got := rulebookOptions(nil).SplitMarker; got != "[SPLIT]" {
		t.Fatalf("expected default split marker, got %q", got)
	}
}

func TestNewGeneratorWithoutKeyIsNil(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	gen, err := newGenerator(context.Background(), &AIConfig{Enabled: true, Provider: "gemini", Gemini: &GeminiConfig{}}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen != nil {
		t.Fatalf("expected nil generator, got %T", gen)
	}

	gen, err = newGenerator(context.Background(), &AIConfig{Enabled: false}, zap.NewNop())
	if err != nil || gen != nil {
		t.Fatalf("expected nil generator for disabled ai, got %T, %v", gen, err)
	}

	if _, err := newGenerator(context.Background(), &AIConfig{Enabled: true, Provider: "openai"}, zap.NewNop()); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestNewGeneratorUnreadableKeyFileIsNil(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	missing := filepath.Join(t.TempDir(), "missing", "gemini.key")

	gen, err := newGenerator(context.Background(), &AIConfig{
		Enabled:  true,
		Provider: "gemini",
		Gemini:   &GeminiConfig{APIKeyFile: missing},
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen != nil {
		t.Fatalf("expected nil generator, got %T", gen)
	}
}

func TestHandleAction(t *testing.T) {
	store := history.NewStore(filepath.Join(t.TempDir(), "history.json"))
	outcome := &pipeline.Outcome{
		URL: "https://example.com/job",
		Review: &review.Result{
			Text:          "審査の結果、問題は見つかりませんでした。",
			Prompt:        "assembled prompt",
			RelevantRules: "給与は月給で表示すること",
			Matches:       []retrieval.Match{{SectionTitle: "大項目１：給与", Distance: 12}},
		},
	}

	var out bytes.Buffer
	for _, action := range []string{PromptShowReview, PromptShowPrompt, PromptShowRules} {
		if err := handleAction(&out, action, zap.NewNop(), store, outcome); err != nil {
			t.Fatalf("%s: unexpected error: %v", action, err)
		}
	}

	for _, want := range []string{"assembled prompt", "給与は月給で表示すること", "大項目１：給与 (distance 12)"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in output:\n%s", want, out.String())
		}
	}

	if err := handleAction(&out, PromptSaveToHistory, zap.NewNop(), store, outcome); err != nil {
		t.Fatalf("unexpected error saving: %v", err)
	}
	entries, err := store.List(0)
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected one history entry, got %d (%v)", len(entries), err)
	}

	if err := handleAction(&out, PromptExit, zap.NewNop(), store, outcome); !errors.Is(err, errExit) {
		t.Fatalf("expected errExit, got %v", err)
	}
	if err := handleAction(&out, "unknown", zap.NewNop(), store, outcome); err == nil {
		t.Fatal("expected error for unknown action")
	}
}
