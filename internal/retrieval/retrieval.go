// Package retrieval ranks rulebook chunks against a posting fingerprint.
package retrieval

import (
	"sort"
	"strings"

	"github.com/Shin-ichiroh/Manuscript-review/internal/rulebook"
	"github.com/Shin-ichiroh/Manuscript-review/internal/vector"
)

const (
	// DefaultTopK is the number of rules handed to the prompt when unset.
	DefaultTopK = 3
	// Separator joins retrieved rule texts.
	Separator = "\n\n---\n\n"
	// Fallback is returned when no rule could be retrieved.
	Fallback = "関連するルールは見つかりませんでした。"
)

// Match is a chunk scored against a query fingerprint. Lower distance is closer.
type Match struct {
	SectionTitle string  `json:"section_title"`
	Text         string  `json:"text"`
	Distance     float64 `json:"distance"`
}

// Rank scores every chunk with a comparable vector and returns the topK
// closest, ties kept in document order. Chunks with a missing or mismatched
// vector are skipped.
func Rank(query []float64, chunks []rulebook.Chunk, topK int) []Match {
	if topK <= 0 {
		topK = DefaultTopK
	}

	matches := make([]Match, 0, len(chunks))
	for _, c := range chunks {
		d, ok := vector.L1(query, c.Vector)
		if !ok {
			continue
		}
		matches = append(matches, Match{SectionTitle: c.SectionTitle, Text: c.Text, Distance: d})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Retrieve returns the texts of the topK closest chunks joined by Separator,
// or Fallback when nothing usable was found.
func Retrieve(query []float64, chunks []rulebook.Chunk, topK int) string {
	return Join(Rank(query, chunks, topK))
}

// Join joins the texts of matches with Separator, or returns Fallback when
// there is nothing to join.
func Join(matches []Match) string {
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Text)
	}

	joined := strings.Join(texts, Separator)
	if strings.TrimSpace(joined) == "" {
		return Fallback
	}
	return joined
}
