// Package pipeline processes a job posting end to end: acquisition, rulebook
// loading and review.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Shin-ichiroh/Manuscript-review/internal/logger"
	"github.com/Shin-ichiroh/Manuscript-review/internal/posting"
	"github.com/Shin-ichiroh/Manuscript-review/internal/review"
	"github.com/Shin-ichiroh/Manuscript-review/internal/rulebook"
)

const (
	StepFetch    = "fetch"
	StepExtract  = "extract"
	StepRulebook = "rulebook"
	StepReview   = "review"
)

// PageFetcher downloads a posting page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// RulebookSource yields the vectorized chunks of the rulebook at a path.
type RulebookSource interface {
	Chunks(path string) ([]rulebook.Chunk, error)
}

// Deps aggregates the collaborators of a Pipeline.
type Deps struct {
	Fetcher  PageFetcher
	Rulebook RulebookSource
	Reviewer *review.Reviewer
	Logger   *zap.Logger
}

// Step describes the result of executing a pipeline step.
type Step struct {
	Name     string        `json:"name"`
	OK       bool          `json:"ok"`
	Detail   string        `json:"detail,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Outcome collects everything produced while processing one posting.
type Outcome struct {
	URL                string         `json:"job_post_url"`
	SiteDomain         string         `json:"site_domain,omitempty"`
	Posting            posting.Record `json:"posting"`
	ImageURLs          []string       `json:"image_urls,omitempty"`
	Rulebook           string         `json:"rulebook"`
	RulebookChunkCount int            `json:"rulebook_chunks_count"`
	Review             *review.Result `json:"review,omitempty"`
	ErrorMessage       string         `json:"error_message,omitempty"`
	DebugMessages      []string       `json:"debug_messages"`
	Steps              []Step         `json:"steps"`
}

// Reviewed reports whether a review text was produced.
func (o *Outcome) Reviewed() bool {
	return o.Review != nil && o.Review.Text != ""
}

func (o *Outcome) debugf(format string, args ...any) {
	o.DebugMessages = append(o.DebugMessages, fmt.Sprintf(format, args...))
}

// fail records msg as an error message; earlier messages are kept.
func (o *Outcome) fail(msg string) {
	if o.ErrorMessage == "" {
		o.ErrorMessage = msg
	} else {
		o.ErrorMessage += "\n" + msg
	}
	o.DebugMessages = append(o.DebugMessages, msg)
}

// Pipeline runs postings through acquisition, rulebook loading and review.
type Pipeline struct {
	deps         Deps
	rulebookPath string
	logger       *zap.Logger
}

// New returns a Pipeline reviewing against the rulebook at rulebookPath.
func New(deps Deps, rulebookPath string) (*Pipeline, error) {
	if deps.Rulebook == nil {
		return nil, errors.New("rulebook source is required")
	}
	if deps.Reviewer == nil {
		return nil, errors.New("reviewer is required")
	}

	return &Pipeline{
		deps:         deps,
		rulebookPath: rulebookPath,
		logger:       logger.OrNop(deps.Logger),
	}, nil
}

// ProcessURL fetches the posting at pageURL and reviews it. A failed fetch
// ends processing early with an error message; every other failure is
// recorded and processing continues.
func (p *Pipeline) ProcessURL(ctx context.Context, pageURL string) *Outcome {
	pageURL = strings.TrimSpace(pageURL)
	out := &Outcome{
		URL:        pageURL,
		SiteDomain: posting.SiteDomain(pageURL),
		Rulebook:   p.rulebookPath,
	}
	log := p.logger.With(logger.PostingFields(pageURL, p.rulebookPath)...)

	out.debugf("--- Starting processing for URL: %s ---", pageURL)
	out.debugf("Detected site domain: %s", out.SiteDomain)

	if p.deps.Fetcher == nil {
		out.fail("No page fetcher is configured.")
		p.record(log, out, StepFetch, time.Now(), false, "no fetcher")
		return out
	}

	started := time.Now()
	page, err := p.deps.Fetcher.Fetch(ctx, pageURL)
	if err != nil {
		out.fail(fmt.Sprintf("Failed to fetch HTML content: %v", err))
		p.record(log, out, StepFetch, started, false, err.Error())
		return out
	}
	out.debugf("HTML content fetched successfully (%d bytes).", len(page))
	p.record(log, out, StepFetch, started, true, "")

	started = time.Now()
	record, err := posting.Extract(page, pageURL)
	if err != nil {
		out.fail(fmt.Sprintf("Failed to extract posting fields: %v", err))
		p.record(log, out, StepExtract, started, false, err.Error())
		record = &posting.Record{URL: pageURL}
	} else {
		p.record(log, out, StepExtract, started, true, "")
	}

	if urls, err := posting.ImageURLs(page, pageURL); err != nil {
		out.debugf("Image URL extraction failed: %v", err)
	} else {
		out.ImageURLs = urls
		out.debugf("Found %d image URLs.", len(urls))
	}

	p.review(ctx, log, out, *record)
	return out
}

// ProcessRecord reviews an already acquired posting.
func (p *Pipeline) ProcessRecord(ctx context.Context, record posting.Record) *Outcome {
	record = record.Normalized()
	out := &Outcome{
		URL:        record.URL,
		SiteDomain: posting.SiteDomain(record.URL),
		Rulebook:   p.rulebookPath,
	}
	log := p.logger.With(logger.PostingFields(record.URL, p.rulebookPath)...)

	out.debugf("--- Starting processing for supplied posting: %s ---", orNA(record.URL))

	p.review(ctx, log, out, record)
	return out
}

func (p *Pipeline) review(ctx context.Context, log *zap.Logger, out *Outcome, record posting.Record) {
	record = record.Normalized()
	out.Posting = record

	out.debugf("Extracted Info Check:")
	out.debugf("  Job Title: %s", orNA(record.Title))
	out.debugf("  Salary: %s", orNA(record.Salary))
	out.debugf("  Location: %s", orNA(record.Location))
	out.debugf("  Qualifications: %s", orNA(record.Qualifications))

	if !record.HasContent() {
		out.fail("No text content (full text or specific fields) was extracted from the posting.")
	}

	started := time.Now()
	chunks, err := p.deps.Rulebook.Chunks(p.rulebookPath)
	if err != nil {
		out.fail(fmt.Sprintf("Failed to load rulebook: %v", err))
		p.record(log, out, StepRulebook, started, false, err.Error())
		chunks = nil
	} else {
		out.RulebookChunkCount = len(chunks)
		out.debugf("Rulebook processed into %d vectorized chunks.", len(chunks))
		p.record(log, out, StepRulebook, started, true, fmt.Sprintf("%d chunks", len(chunks)))
	}

	out.debugf("Performing review on the job post data...")
	started = time.Now()
	result := p.deps.Reviewer.Review(ctx, record, chunks)
	out.Review = &result
	p.record(log, out, StepReview, started, !result.Failed(), string(result.Source))

	out.debugf("--- Processing Finished ---")
}

func (p *Pipeline) record(log *zap.Logger, out *Outcome, name string, started time.Time, ok bool, detail string) {
	step := Step{Name: name, OK: ok, Detail: detail, Duration: time.Since(started)}
	out.Steps = append(out.Steps, step)

	fields := []zap.Field{
		zap.String("name", name),
		zap.Bool("ok", ok),
		zap.Duration("duration", step.Duration),
	}
	if detail != "" {
		fields = append(fields, zap.String("detail", detail))
	}

	if ok {
		log.Info("pipeline step", fields...)
	} else {
		log.Warn("pipeline step", fields...)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
