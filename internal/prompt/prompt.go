// Package prompt renders the review prompt sent to the language model.
package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Shin-ichiroh/Manuscript-review/internal/posting"
)

// Placeholder names understood by the review template.
const (
	RelevantRules  = "relevant_rules"
	JobPostURL     = "job_post_url"
	JobTitle       = "job_title"
	Salary         = "salary"
	Location       = "location"
	Qualifications = "qualifications"
	FullText       = "full_text_content"
)

// NotAvailable is rendered for absent posting fields.
const NotAvailable = "N/A"

var (
	// ErrUnknownPlaceholder reports a template placeholder outside the known set.
	ErrUnknownPlaceholder = errors.New("unknown placeholder")
	// ErrMissingPlaceholder reports a known placeholder absent from a template
	// or a placeholder without a value at render time.
	ErrMissingPlaceholder = errors.New("missing placeholder")
)

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

var placeholders = []string{RelevantRules, JobPostURL, JobTitle, Salary, Location, Qualifications, FullText}

//go:embed review_prompt.md
var reviewTemplateText string

var reviewTemplate = MustParse(reviewTemplateText)

// Template is a prompt template whose placeholders have been checked against
// the known set.
type Template struct {
	text string
}

// Parse validates text: it must use every known placeholder and nothing else.
func Parse(text string) (*Template, error) {
	found := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		found[m[1]] = true
	}

	known := make(map[string]bool, len(placeholders))
	for _, p := range placeholders {
		known[p] = true
		if !found[p] {
			return nil, fmt.Errorf("%w: {%s}", ErrMissingPlaceholder, p)
		}
	}

	var unknown []string
	for name := range found {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlaceholder, strings.Join(unknown, ", "))
	}

	return &Template{text: text}, nil
}

// MustParse is like Parse but panics on an invalid template.
func MustParse(text string) *Template {
	t, err := Parse(text)
	if err != nil {
		panic(fmt.Sprintf("prompt: invalid template: %v", err))
	}
	return t
}

// Render substitutes values in a single pass; substituted text is never
// scanned for placeholders again.
func (t *Template) Render(values map[string]string) (string, error) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(t.text, func(token string) string {
		name := token[1 : len(token)-1]
		v, ok := values[name]
		if !ok {
			missing = append(missing, name)
			return token
		}
		return v
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingPlaceholder, strings.Join(missing, ", "))
	}
	return out, nil
}

// Values maps a posting and the retrieved rules to template values. Absent
// fields become NotAvailable.
func Values(record posting.Record, rules string) map[string]string {
	r := record.Normalized()
	return map[string]string{
		RelevantRules:  rules,
		JobPostURL:     orNotAvailable(r.URL),
		JobTitle:       orNotAvailable(r.Title),
		Salary:         orNotAvailable(r.Salary),
		Location:       orNotAvailable(r.Location),
		Qualifications: orNotAvailable(r.Qualifications),
		FullText:       orNotAvailable(r.FullText),
	}
}

// Assemble renders the review prompt for record with the retrieved rules.
func Assemble(record posting.Record, rules string) string {
	out, err := reviewTemplate.Render(Values(record, rules))
	if err != nil {
		// Values supplies every placeholder the template was validated against.
		panic(fmt.Sprintf("prompt: %v", err))
	}
	return out
}

func orNotAvailable(s string) string {
	if s == "" {
		return NotAvailable
	}
	return s
}
