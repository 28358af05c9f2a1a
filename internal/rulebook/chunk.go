package rulebook

import "github.com/Shin-ichiroh/Manuscript-review/internal/vector"

// Chunk is a single rule of the rulebook together with the section it belongs to.
type Chunk struct {
	SectionTitle string    `json:"section_title"`
	Text         string    `json:"text"`
	Vector       []float64 `json:"vector,omitempty"`
}

// Vectorize returns copies of chunks with their fingerprint attached.
func Vectorize(chunks []Chunk) []Chunk {
	out := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		c.Vector = vector.Vectorize(c.Text)
		out = append(out, c)
	}
	return out
}

// Sections returns the distinct section titles in document order.
func Sections(chunks []Chunk) []string {
	seen := make(map[string]bool)
	var titles []string
	for _, c := range chunks {
		if seen[c.SectionTitle] {
			continue
		}
		seen[c.SectionTitle] = true
		titles = append(titles, c.SectionTitle)
	}
	return titles
}
