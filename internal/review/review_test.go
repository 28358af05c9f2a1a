package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Shin-ichiroh/Manuscript-review/internal/ai"
	"github.com/Shin-ichiroh/Manuscript-review/internal/ai/simulator"
	"github.com/Shin-ichiroh/Manuscript-review/internal/posting"
	"github.com/Shin-ichiroh/Manuscript-review/internal/retrieval"
	"github.com/Shin-ichiroh/Manuscript-review/internal/rulebook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeGenerator struct {
	mu      sync.Mutex
	output  string
	err     error
	prompts []string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.output, f.err
}

func chunksFrom(doc string) []rulebook.Chunk {
	return rulebook.Vectorize(rulebook.Parse(doc))
}

func isSimulated(text string) bool {
	return text == simulator.NoIssues || text == simulator.Violation
}

func TestReviewNeverFails(t *testing.T) {
	t.Parallel()

	populated := chunksFrom("## 大項目１：給与\n給与は月給で表示すること\n[SPLIT]\n固定残業代の3点を明記すること")

	generators := []struct {
		name   string
		gen    ai.Generator
		source Source
	}{
		{name: "absent", gen: nil, source: SourceSimulated},
		{name: "not configured", gen: &fakeGenerator{err: fmt.Errorf("no key: %w", ai.ErrNotConfigured)}, source: SourceSimulated},
		{name: "failing", gen: &fakeGenerator{err: errors.New("boom")}, source: SourceSimulatedAfterFailure},
		{name: "empty completion", gen: &fakeGenerator{output: "  \n"}, source: SourceSimulatedAfterFailure},
		{name: "working", gen: &fakeGenerator{output: "指摘なし"}, source: SourceModel},
	}

	rulebooks := []struct {
		name   string
		chunks []rulebook.Chunk
	}{
		{name: "empty rulebook", chunks: nil},
		{name: "populated rulebook", chunks: populated},
	}

	records := []posting.Record{
		{},
		{Salary: "月給20万円", FullText: "本文"},
	}

	for _, g := range generators {
		for _, rb := range rulebooks {
			for i, rec := range records {
				g, rb, rec := g, rb, rec
				t.Run(fmt.Sprintf("%s/%s/record%d", g.name, rb.name, i), func(t *testing.T) {
					t.Parallel()

					r := New(g.gen, nil, zap.NewNop(), 0)
					res := r.Review(context.Background(), rec, rb.chunks)

					require.NotEmpty(t, strings.TrimSpace(res.Text))
					assert.Equal(t, g.source, res.Source)
					assert.Equal(t, len(rb.chunks), res.ChunkCount)
					assert.NotEmpty(t, res.Prompt)

					switch g.source {
					case SourceModel:
						assert.Equal(t, "指摘なし", res.Text)
						assert.NoError(t, res.Err)
					case SourceSimulated:
						assert.True(t, isSimulated(res.Text), "unexpected text %q", res.Text)
						assert.NoError(t, res.Err)
					case SourceSimulatedAfterFailure:
						require.True(t, strings.HasPrefix(res.Text, FailureMarker))
						assert.True(t, isSimulated(strings.TrimPrefix(res.Text, FailureMarker)))
						assert.Error(t, res.Err)
						assert.True(t, res.Failed())
					}

					if len(rb.chunks) == 0 {
						assert.Equal(t, retrieval.Fallback, res.RelevantRules)
					}
				})
			}
		}
	}
}

func TestReviewScenarioSimulatedWithSalaryOnly(t *testing.T) {
	t.Parallel()

	chunks := chunksFrom("## 大項目１：給与\n給与は月給で表示すること")
	require.Len(t, chunks, 1)

	r := New(nil, nil, zap.NewNop(), 3)
	res := r.Review(context.Background(), posting.Record{Salary: "月給20万円"}, chunks)

	assert.True(t, isSimulated(res.Text), "unexpected text %q", res.Text)
	assert.Equal(t, SourceSimulated, res.Source)
	assert.Equal(t, "給与は月給で表示すること", res.RelevantRules)

	assert.Contains(t, res.Prompt, "給与: 月給20万円")
	for _, line := range []string{
		"求人原稿URL: N/A",
		"職種: N/A",
		"勤務地: N/A",
		"応募資格: N/A",
		"求人原稿のその他全文テキスト: N/A",
	} {
		assert.Contains(t, res.Prompt, line)
	}
}

func TestReviewScenarioClosestChunkWins(t *testing.T) {
	t.Parallel()

	// The posting fingerprint starts with あ; the chunks differ from it only
	// in their first rune, by 2 and by 40 code points.
	near := string(rune('あ'+2)) + "いうえおかきくけこ"
	far := string(rune('あ'+40)) + "いうえおかきくけこ"
	doc := "## 大項目１：給与\n" + far + "\n## 大項目２：勤務地\n" + near

	chunks := chunksFrom(doc)
	require.Len(t, chunks, 2)

	gen := &fakeGenerator{output: "ok"}
	r := New(gen, nil, zap.NewNop(), 1)
	res := r.Review(context.Background(), posting.Record{FullText: "あいうえおかきくけこ"}, chunks)

	assert.Equal(t, near, res.RelevantRules)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "大項目２：勤務地", res.Matches[0].SectionTitle)
	assert.InDelta(t, 2, res.Matches[0].Distance, 0)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], near)
	assert.NotContains(t, gen.prompts[0], far)
}

func TestReviewScenarioIgnoredHeaderOnly(t *testing.T) {
	t.Parallel()

	chunks := chunksFrom("### これは対象外の見出し")
	require.Empty(t, chunks)

	r := New(&fakeGenerator{output: "ok"}, nil, zap.NewNop(), 0)
	res := r.Review(context.Background(), posting.Record{Title: "営業"}, chunks)

	assert.Equal(t, retrieval.Fallback, res.RelevantRules)
	assert.Equal(t, "ok", res.Text)
	assert.Contains(t, res.Prompt, retrieval.Fallback)
}

func TestReviewLogsFailure(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	r := New(&fakeGenerator{err: errors.New("quota")}, nil, zap.New(core), 0)

	res := r.Review(context.Background(), posting.Record{URL: "https://example.com/1"}, nil)
	require.True(t, res.Failed())

	entries := logs.FilterMessage("language model call failed, simulating review").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "https://example.com/1", entries[0].ContextMap()["posting_url"])
}
