package posting

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/Shin-ichiroh/Manuscript-review/internal/logger"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultTimeout   = 15 * time.Second
	acceptEncoding   = "gzip"
	// Pages larger than this are truncated before parsing.
	maxPageSize = 8 << 20
)

// ErrFetch reports that a posting page could not be retrieved.
var ErrFetch = errors.New("fetching posting page")

// Fetcher downloads posting pages.
type Fetcher struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
}

// NewFetcher returns a Fetcher with the given request timeout. A non-positive
// timeout selects the default.
func NewFetcher(l *zap.Logger, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Fetcher{
		logger: logger.OrNop(l),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		UserAgent: defaultUserAgent,
	}
}

// Fetch returns the HTML of pageURL decoded to UTF-8.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}

	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Encoding", acceptEncoding)

	f.logger.Debug("make request", zap.String("url", pageURL))

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: bad status: %s", ErrFetch, resp.Status)
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrFetch, err)
		}
		defer gz.Close()
		body = gz
	}

	decoded, err := charset.NewReader(io.LimitReader(body, maxPageSize), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("%w: detecting charset: %w", ErrFetch, err)
	}

	data, err := io.ReadAll(decoded)
	if err != nil {
		return "", fmt.Errorf("%w: reading body: %w", ErrFetch, err)
	}

	f.logger.Debug("got page", zap.String("url", pageURL), zap.Int("bytes", len(data)))

	return string(data), nil
}
