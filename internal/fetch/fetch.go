// Package fetch retrieves job postings over HTTP and reduces them to plain
// text. It detects known job board platforms to pick content selectors and can
// fall back to headless browser rendering for JavaScript-heavy pages.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"careerflow/internal/config"
	"careerflow/internal/errors"

	"github.com/PuerkitoBio/goquery"
)

// Result holds the raw and processed content from a job posting fetch.
type Result struct {
	URL               string
	HTML              string
	Text              string
	ContentType       string
	StatusCode        int
	Platform          Platform
	RenderedByBrowser bool
}

// Fetcher retrieves job postings according to the fetch configuration.
type Fetcher struct {
	cfg    config.FetchConfig
	logger *errors.Logger
	client *http.Client
}

// NewFetcher creates a Fetcher from configuration.
func NewFetcher(cfg config.FetchConfig, logger *errors.Logger) *Fetcher {
	return &Fetcher{
		cfg:    cfg,
		logger: logger,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Fetch retrieves a job posting URL and extracts its main text.
// Failures are reported as fetch-typed errors so callers can degrade to
// resume-only processing instead of failing the whole request.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, errors.NewFetchError(errors.ErrCodeInvalidURL, "invalid job posting URL", err).
			WithContext("url", rawURL)
	}

	platform := DetectPlatform(rawURL)
	f.logger.Debug("Fetching job posting", "url", rawURL, "platform", string(platform))

	result, err := f.fetchHTTP(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	result.Platform = platform

	text, err := ExtractMainText(result.HTML, PlatformContentSelectors(platform), PlatformNoiseSelectors(platform)...)
	if err != nil {
		return nil, errors.NewFetchError(errors.ErrCodeFetchEmpty, "failed to parse job posting HTML", err).
			WithContext("url", rawURL)
	}
	result.Text = text

	// Thin content usually means a JavaScript-rendered page. Re-fetch through
	// a headless browser when that is enabled.
	if f.cfg.UseBrowser && len(strings.TrimSpace(text)) < f.cfg.MinContentLength {
		f.logger.Info("Extracted content too short, retrying with headless browser",
			"url", rawURL,
			"content_length", len(text),
			"min_content_length", f.cfg.MinContentLength)

		html, browserErr := f.renderWithBrowser(ctx, rawURL)
		if browserErr != nil {
			f.logger.Warn("Headless browser rendering failed, keeping HTTP content",
				"url", rawURL, "error", browserErr.Error())
		} else {
			rendered, extractErr := ExtractMainText(html, PlatformContentSelectors(platform), PlatformNoiseSelectors(platform)...)
			if extractErr == nil && len(rendered) > len(text) {
				result.HTML = html
				result.Text = rendered
				result.RenderedByBrowser = true
			}
		}
	}

	if strings.TrimSpace(result.Text) == "" {
		return nil, errors.NewFetchError(errors.ErrCodeFetchEmpty, "job posting contained no extractable text", nil).
			WithContext("url", rawURL)
	}

	f.logger.Debug("Job posting fetched",
		"url", rawURL,
		"platform", string(platform),
		"content_length", len(result.Text),
		"rendered_by_browser", result.RenderedByBrowser)

	return result, nil
}

// fetchHTTP performs the plain HTTP GET and returns the raw HTML.
func (f *Fetcher) fetchHTTP(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.NewFetchError(errors.ErrCodeInvalidURL, "failed to create request", err).
			WithContext("url", rawURL)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.NewFetchError(errors.ErrCodeFetchUnreachable, "job posting request failed", err).
			WithContext("url", rawURL)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodySize))
	if err != nil {
		return nil, errors.NewFetchError(errors.ErrCodeFetchUnreachable, "failed to read response body", err).
			WithContext("url", rawURL)
	}

	result := &Result{
		URL:         rawURL,
		HTML:        string(body),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.NewFetchError(errors.ErrCodeFetchStatus,
			fmt.Sprintf("job posting returned HTTP %d", resp.StatusCode), nil).
			WithContext("url", rawURL).
			WithContext("status_code", resp.StatusCode)
	}

	return result, nil
}

// ExtractMainText parses HTML and returns the main body text.
// It removes noise elements using noiseSelectors, then finds content using
// contentSelectors. If no content selector matches, it falls back to body.
func ExtractMainText(html string, contentSelectors []string, noiseSelectors ...string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Remove common unwanted elements (nav, footer, scripts, ads, etc.)
	doc.Find("nav, footer, header, script, style, noscript, .ad, .advertisement, .ads, .sidebar, .cookie-banner, .popup").Remove()

	// Remove platform-specific noise elements
	if len(noiseSelectors) > 0 {
		noiseSelector := strings.Join(noiseSelectors, ", ")
		if noiseSelector != "" {
			doc.Find(noiseSelector).Remove()
		}
	}

	// Try to find main content using provided selectors
	var mainContent *goquery.Selection
	for _, selector := range contentSelectors {
		if selection := doc.Find(selector); selection.Length() > 0 {
			mainContent = selection.First()
			break
		}
	}

	// Fallback to body if no selector matched
	if mainContent == nil {
		mainContent = doc.Find("body")
	}

	text := mainContent.Text()
	return cleanWhitespace(text), nil
}

// JobPostingSelectors returns generic selectors for job board pages.
func JobPostingSelectors() []string {
	return []string{
		".job-description",
		".job-content",
		"#job-description",
		"#job-content",
		".posting-content",
		".job-details",
		"[data-testid='job-description']",
		"main",
		"article",
		".content",
		"#content",
	}
}

// cleanWhitespace drops blank lines and trims each remaining one.
func cleanWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
