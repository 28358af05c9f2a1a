// Package review ties rule retrieval, prompt assembly and the language model
// together into a single review that always yields text.
package review

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/Shin-ichiroh/Manuscript-review/internal/ai"
	"github.com/Shin-ichiroh/Manuscript-review/internal/ai/simulator"
	"github.com/Shin-ichiroh/Manuscript-review/internal/logger"
	"github.com/Shin-ichiroh/Manuscript-review/internal/posting"
	"github.com/Shin-ichiroh/Manuscript-review/internal/prompt"
	"github.com/Shin-ichiroh/Manuscript-review/internal/retrieval"
	"github.com/Shin-ichiroh/Manuscript-review/internal/rulebook"
	"github.com/Shin-ichiroh/Manuscript-review/internal/vector"
	"go.uber.org/zap"
)

// FailureMarker prefixes the simulated text when a model call was attempted
// and failed.
const FailureMarker = "[AI審査の呼び出しに失敗したため、シミュレーション結果を表示しています]\n"

// Source tells where the review text came from.
type Source string

const (
	SourceModel                 Source = "model"
	SourceSimulated             Source = "simulated"
	SourceSimulatedAfterFailure Source = "simulated_after_failure"
)

var errEmptyCompletion = errors.New("model returned an empty completion")

// Result is the outcome of a single review.
type Result struct {
	Text          string            `json:"text"`
	Source        Source            `json:"source"`
	Prompt        string            `json:"prompt,omitempty"`
	RelevantRules string            `json:"relevant_rules,omitempty"`
	Matches       []retrieval.Match `json:"matches,omitempty"`
	ChunkCount    int               `json:"chunk_count"`
	// Err is the model failure behind SourceSimulatedAfterFailure.
	Err error `json:"-"`
}

// Failed reports whether a model call was attempted and failed.
func (r Result) Failed() bool {
	return r.Source == SourceSimulatedAfterFailure
}

// Reviewer reviews postings. It is safe for concurrent use.
type Reviewer struct {
	generator ai.Generator
	simulator *simulator.Simulator
	logger    *zap.Logger
	topK      int
}

// New returns a Reviewer. A nil generator means no model is available and
// every review is simulated. A nil sim is replaced with a clock-seeded one.
func New(generator ai.Generator, sim *simulator.Simulator, l *zap.Logger, topK int) *Reviewer {
	if sim == nil {
		sim = simulator.New(nil)
	}
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}

	l = logger.OrNop(l)
	if d, ok := generator.(ai.Described); ok {
		l = logger.WithCommonFields(l, d.Provider(), d.Model())
	}

	return &Reviewer{
		generator: generator,
		simulator: sim,
		logger:    l,
		topK:      topK,
	}
}

// Review retrieves the rules closest to the posting, assembles the prompt and
// asks the model for a review. It never fails: an absent model yields a
// simulated review, a failed call yields FailureMarker followed by a
// simulated review.
func (r *Reviewer) Review(ctx context.Context, record posting.Record, chunks []rulebook.Chunk) Result {
	record = record.Normalized()
	query := vector.Vectorize(record.RAGText())

	matches := retrieval.Rank(query, chunks, r.topK)
	rules := retrieval.Join(matches)
	assembled := prompt.Assemble(record, rules)

	result := Result{
		Prompt:        assembled,
		RelevantRules: rules,
		Matches:       matches,
		ChunkCount:    len(chunks),
	}

	log := r.logger.With(logger.PostingFields(record.URL, "")...)
	log.Debug("review prompt assembled",
		zap.Int("chunks", len(chunks)),
		zap.Int("matches", len(matches)),
		zap.Int("prompt_length", utf8.RuneCountInString(assembled)),
	)

	if r.generator == nil {
		log.Info("no language model configured, simulating review")
		result.Text = r.simulator.Review()
		result.Source = SourceSimulated
		return result
	}

	completion, err := r.generator.GenerateContent(ctx, assembled)
	if err == nil && strings.TrimSpace(completion) == "" {
		err = errEmptyCompletion
	}

	switch {
	case err == nil:
		result.Text = completion
		result.Source = SourceModel
	case errors.Is(err, ai.ErrNotConfigured):
		log.Info("language model is not configured, simulating review", zap.Error(err))
		result.Text = r.simulator.Review()
		result.Source = SourceSimulated
	default:
		log.Warn("language model call failed, simulating review", zap.Error(err))
		result.Text = FailureMarker + r.simulator.Review()
		result.Source = SourceSimulatedAfterFailure
		result.Err = err
	}

	return result
}
