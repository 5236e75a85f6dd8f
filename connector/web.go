package connector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	readability "github.com/go-shiori/go-readability"
	"github.com/origin-steward/steward/core"
)

const (
	defaultFetchTimeout = 10 * time.Second
	maxFetchBytes       = 8 << 20

	// Below this many content characters, readability output is treated
	// as a failed extraction and the raw document is kept instead.
	minReadableChars = 80

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.114 Safari/537.36"
)

// WebConnector fetches a URL, strips boilerplate, and converts the main
// content to Markdown.
type WebConnector struct {
	client    *http.Client
	converter *md.Converter
	logger    *slog.Logger
}

var _ Connector = (*WebConnector)(nil)

// NewWebConnector creates a web connector with a bounded fetch timeout.
// A zero timeout uses the default.
func NewWebConnector(timeout time.Duration) *WebConnector {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	converter := md.NewConverter("", true, nil)
	return &WebConnector{
		client:    &http.Client{Timeout: timeout},
		converter: converter,
		logger:    slog.Default().With("component", "web-connector"),
	}
}

// Extract fetches the drop's URL and produces an article artifact.
// HTTP failures and timeouts are network errors; the dispatcher treats
// them as terminal because retrying a dead link rarely helps.
func (c *WebConnector) Extract(ctx context.Context, drop *core.Drop) (*core.Artifact, error) {
	pageURL, err := url.Parse(strings.TrimSpace(drop.Payload))
	if err != nil || pageURL.Scheme == "" {
		return nil, NewExtractionError(ParseError, "web.fetch", fmt.Errorf("invalid url %q", drop.Payload))
	}

	body, err := c.fetch(ctx, pageURL.String())
	if err != nil {
		return nil, err
	}

	artifact := &core.Artifact{
		Type:      core.ArtifactArticle,
		SourceURL: pageURL.String(),
		CreatedAt: drop.ReceivedAt,
		Tags:      []string{"web_capture"},
		DropId:    drop.Id,
	}

	article, readErr := readability.FromReader(bytes.NewReader(body), pageURL)
	if readErr == nil {
		artifact.Title = article.Title
		artifact.Author = article.Byline
		if article.PublishedTime != nil {
			artifact.CreatedAt = article.PublishedTime.UTC()
		}

		markdown, convErr := c.converter.ConvertString(article.Content)
		if convErr == nil && len(strings.TrimSpace(markdown)) >= minReadableChars {
			artifact.Content = markdown
			return artifact, nil
		}
	}

	// Content of some kind beats no content: keep the raw document
	c.logger.Warn("readability extraction produced no usable content, keeping raw document",
		"url", pageURL.String())
	artifact.Content = string(body)
	artifact.Tags = append(artifact.Tags, "raw")
	if artifact.Content == "" {
		return nil, NewExtractionError(ParseError, "web.extract", fmt.Errorf("empty document at %s", pageURL))
	}
	return artifact, nil
}

func (c *WebConnector) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, NewExtractionError(ParseError, "web.fetch", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, NewExtractionError(NetworkError, "web.fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, NewExtractionError(RateLimited, "web.fetch", fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, NewExtractionError(NetworkError, "web.fetch", fmt.Errorf("status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, NewExtractionError(NetworkError, "web.fetch", err)
	}
	return body, nil
}
