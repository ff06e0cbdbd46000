package compose

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

const (
	// defaultMaxBodySize caps how much of a remote page is read (5MB).
	defaultMaxBodySize = 5 * 1024 * 1024
	defaultAttempts    = 2
)

// Fetcher retrieves a remote post for import.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedDocument, error)
}

// FetchedDocument is the readable content of a remote page.
type FetchedDocument struct {
	Title  string
	Byline string
	Text   string // paragraphs separated by blank lines
}

// HTTPFetcher downloads pages and extracts the readable article with
// go-readability.
type HTTPFetcher struct {
	client      *http.Client
	maxBodySize int64
	attempts    int
}

// NewHTTPFetcher creates a fetcher with the given request timeout and body
// size cap. Non-positive values fall back to defaults.
func NewHTTPFetcher(timeout time.Duration, maxBodySize int64) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if maxBodySize <= 0 {
		maxBodySize = defaultMaxBodySize
	}
	return &HTTPFetcher{
		client:      &http.Client{Timeout: timeout},
		maxBodySize: maxBodySize,
		attempts:    defaultAttempts,
	}
}

// Fetch downloads url, retrying once on failure.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*FetchedDocument, error) {
	var lastErr error
	for attempt := 0; attempt < f.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		doc, err := f.fetchOnce(ctx, url)
		if err == nil {
			return doc, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", f.attempts, lastErr)
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (*FetchedDocument, error) {
	parsedURL, err := nurl.Parse(url)
	if err != nil || !parsedURL.IsAbs() {
		return nil, fmt.Errorf("invalid url %q", url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; blockpress-import/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}

	return &FetchedDocument{
		Title:  strings.TrimSpace(article.Title),
		Byline: strings.TrimSpace(article.Byline),
		Text:   normalizeText(article.TextContent),
	}, nil
}

// StubFetcher returns a canned document (for development/testing).
type StubFetcher struct{}

func (StubFetcher) Fetch(_ context.Context, url string) (*FetchedDocument, error) {
	return &FetchedDocument{
		Title:  "Imported from " + url,
		Byline: "Stub Author",
		Text:   "This is a stub import of " + url + ".\n\nIt has two paragraphs.",
	}, nil
}

var (
	multiSpace   = regexp.MustCompile(`[ \t]+`)
	spaceNewline = regexp.MustCompile(` ?\n ?`)
	multiNewline = regexp.MustCompile(`\n{3,}`)
)

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSpace(s)
	s = multiSpace.ReplaceAllString(s, " ")
	s = spaceNewline.ReplaceAllString(s, "\n")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return s
}
