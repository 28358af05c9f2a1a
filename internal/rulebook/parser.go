package rulebook

import (
	"regexp"
	"strings"
)

const (
	// DefaultSplitMarker separates two rules inside a section.
	DefaultSplitMarker = "[SPLIT]"
	// DefaultIgnoredHeader closes the current section.
	DefaultIgnoredHeader = "###"
)

var (
	sectionHeader = regexp.MustCompile(`^##[\s\x{3000}]*(大項目[0-9０-９]+[：:].+)$`)
	blanks        = regexp.MustCompile(`[ \t]+`)
)

// Options tunes the boundaries recognised by Parse.
type Options struct {
	// SplitMarker is the token that ends a rule. Text following it on the same
	// line starts the next rule.
	SplitMarker string
	// IgnoredHeaders are line prefixes that end the current rule and close the
	// current section.
	IgnoredHeaders []string
}

// DefaultOptions returns the boundaries used by the bundled rulebook.
func DefaultOptions() Options {
	return Options{
		SplitMarker:    DefaultSplitMarker,
		IgnoredHeaders: []string{DefaultIgnoredHeader},
	}
}

func (o Options) normalized() Options {
	if strings.TrimSpace(o.SplitMarker) == "" {
		o.SplitMarker = DefaultSplitMarker
	}
	o.SplitMarker = strings.TrimSpace(o.SplitMarker)

	headers := make([]string, 0, len(o.IgnoredHeaders))
	for _, h := range o.IgnoredHeaders {
		if h = strings.TrimSpace(h); h != "" {
			headers = append(headers, h)
		}
	}
	if len(headers) == 0 {
		headers = []string{DefaultIgnoredHeader}
	}
	o.IgnoredHeaders = headers
	return o
}

// Parse splits document into rule chunks using the default options.
func Parse(document string) []Chunk {
	return ParseWithOptions(document, DefaultOptions())
}

// ParseWithOptions splits document into rule chunks.
//
// A "## 大項目N：title" line opens a section. Inside a section every non-blank
// line is accumulated until a split marker, an ignored header, the next section
// header or the end of the document. Lines outside a section are dropped.
// Parse never fails; malformed input yields fewer chunks.
func ParseWithOptions(document string, opts Options) []Chunk {
	opts = opts.normalized()

	p := &parser{}
	for _, line := range strings.Split(strings.ReplaceAll(document, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if hasAnyPrefix(trimmed, opts.IgnoredHeaders) {
			p.flush()
			p.section = ""
			continue
		}

		if m := sectionHeader.FindStringSubmatch(trimmed); m != nil {
			p.flush()
			p.section = strings.TrimSpace(m[1])
			continue
		}

		if rest, ok := strings.CutPrefix(trimmed, opts.SplitMarker); ok {
			p.flush()
			if rest = strings.TrimSpace(rest); rest != "" {
				p.add(rest)
			}
			continue
		}

		p.add(line)
	}
	p.flush()

	return p.chunks
}

type parser struct {
	section string
	lines   []string
	chunks  []Chunk
}

func (p *parser) add(line string) {
	if p.section == "" {
		return
	}
	p.lines = append(p.lines, line)
}

func (p *parser) flush() {
	defer func() { p.lines = nil }()

	if p.section == "" || len(p.lines) == 0 {
		return
	}

	text := normalize(p.lines)
	if text == "" {
		return
	}

	p.chunks = append(p.chunks, Chunk{SectionTitle: p.section, Text: text})
}

// normalize trims every line, collapses runs of spaces and tabs, and keeps
// line breaks.
func normalize(lines []string) string {
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned = append(cleaned, blanks.ReplaceAllString(strings.TrimSpace(line), " "))
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
