// Package posting holds the job posting record under review and the means to
// obtain one: decoding from a file and fetching from a web page.
package posting

import "strings"

// EmptyText stands in for the posting text when nothing was extracted, so the
// fingerprint never sees an empty input.
const EmptyText = "求人原稿のテキストが取得できませんでした。"

// Record is a job posting. An empty or whitespace-only field means the field
// is absent.
type Record struct {
	URL            string `json:"job_post_url" yaml:"job_post_url"`
	Title          string `json:"job_title" yaml:"job_title"`
	Salary         string `json:"salary" yaml:"salary"`
	Location       string `json:"location" yaml:"location"`
	Qualifications string `json:"qualifications" yaml:"qualifications"`
	FullText       string `json:"full_text_content" yaml:"full_text_content"`
}

// Normalized returns a copy with surrounding whitespace removed from every
// field, so absence is always the empty string.
func (r Record) Normalized() Record {
	return Record{
		URL:            strings.TrimSpace(r.URL),
		Title:          strings.TrimSpace(r.Title),
		Salary:         strings.TrimSpace(r.Salary),
		Location:       strings.TrimSpace(r.Location),
		Qualifications: strings.TrimSpace(r.Qualifications),
		FullText:       strings.TrimSpace(r.FullText),
	}
}

// HasContent reports whether any field other than the URL is present.
func (r Record) HasContent() bool {
	n := r.Normalized()
	return n.Title != "" || n.Salary != "" || n.Location != "" || n.Qualifications != "" || n.FullText != ""
}

// RAGText is the text fingerprinted for rule retrieval: the labelled
// structured fields, one per line, followed by the full text.
func (r Record) RAGText() string {
	n := r.Normalized()

	labelled := []struct {
		label string
		value string
	}{
		{"職種", n.Title},
		{"給与", n.Salary},
		{"勤務地", n.Location},
		{"応募資格", n.Qualifications},
	}

	parts := make([]string, 0, len(labelled)+1)
	for _, f := range labelled {
		if f.value != "" {
			parts = append(parts, f.label+": "+f.value)
		}
	}
	if n.FullText != "" {
		parts = append(parts, n.FullText)
	}

	if len(parts) == 0 {
		return EmptyText
	}
	return strings.Join(parts, "\n")
}
