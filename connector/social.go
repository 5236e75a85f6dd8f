package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/origin-steward/steward/core"
)

// Post is the metadata a PostFetcher recovers from a social post URL.
type Post struct {
	Text        string
	Author      string
	PublishedAt time.Time
}

// PostFetcher obtains the full text and metadata of a social post.
// Implementations must be safe for concurrent use.
type PostFetcher interface {
	// FetchPost retrieves the post at url. Failures are returned as
	// *ExtractionError so the caller can distinguish rate limiting from
	// other fetch problems.
	FetchPost(ctx context.Context, url string) (*Post, error)
}

// SocialConnector extracts social posts via an external metadata tool.
// Fetch failures never propagate: the connector degrades to a minimal
// artifact carrying only the URL and a "to_read" tag. Losing the user's
// capture entirely is worse than losing its enrichment.
type SocialConnector struct {
	fetcher PostFetcher
	logger  *slog.Logger
}

var _ Connector = (*SocialConnector)(nil)

// NewSocialConnector creates a social connector backed by fetcher.
func NewSocialConnector(fetcher PostFetcher) *SocialConnector {
	return &SocialConnector{
		fetcher: fetcher,
		logger:  slog.Default().With("component", "social-connector"),
	}
}

// Extract fetches the post and produces a social-post artifact. On any
// fetch failure it returns a degraded artifact instead of an error.
func (c *SocialConnector) Extract(ctx context.Context, drop *core.Drop) (*core.Artifact, error) {
	postURL := strings.TrimSpace(drop.Payload)

	artifact := &core.Artifact{
		Type:      core.ArtifactSocialPost,
		SourceURL: postURL,
		CreatedAt: drop.ReceivedAt,
		DropId:    drop.Id,
	}

	post, err := c.fetcher.FetchPost(ctx, postURL)
	if err != nil {
		c.logger.Warn("social fetch failed, degrading to link-only artifact",
			"url", postURL, "kind", KindOf(err), "err", err)
		artifact.Content = postURL
		artifact.Tags = []string{"social", "to_read"}
		return artifact, nil
	}

	artifact.Content = post.Text
	artifact.Author = post.Author
	artifact.Tags = []string{"social", "capture"}
	if !post.PublishedAt.IsZero() {
		artifact.CreatedAt = post.PublishedAt.UTC()
	}
	if artifact.Content == "" {
		// Tool succeeded but returned nothing; keep the link
		artifact.Content = postURL
		artifact.Tags = append(artifact.Tags, "to_read")
	}
	return artifact, nil
}

// YTDLPFetcher shells out to yt-dlp for post metadata, with an oEmbed
// fallback when the tool fails.
type YTDLPFetcher struct {
	// Binary is the yt-dlp executable path. Defaults to "yt-dlp" on PATH.
	Binary string

	client *http.Client
	logger *slog.Logger
}

var _ PostFetcher = (*YTDLPFetcher)(nil)

// NewYTDLPFetcher creates a fetcher using the yt-dlp binary on PATH.
func NewYTDLPFetcher() *YTDLPFetcher {
	return &YTDLPFetcher{
		Binary: "yt-dlp",
		client: &http.Client{Timeout: 5 * time.Second},
		logger: slog.Default().With("component", "ytdlp-fetcher"),
	}
}

// FetchPost runs yt-dlp --dump-json against the URL. yt-dlp maps post text
// to "description" or "title".
func (f *YTDLPFetcher) FetchPost(ctx context.Context, postURL string) (*Post, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.Binary, "--dump-json", "--skip-download", postURL)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		f.logger.Warn("yt-dlp failed, trying oEmbed fallback",
			"url", postURL, "stderr", stderr.String())
		if post, oembedErr := f.fetchOEmbed(ctx, postURL); oembedErr == nil {
			return post, nil
		}
		if strings.Contains(strings.ToLower(stderr.String()), "rate") {
			return nil, NewExtractionError(RateLimited, "social.fetch", err)
		}
		return nil, NewExtractionError(NetworkError, "social.fetch", err)
	}

	var data struct {
		Description string `json:"description"`
		Title       string `json:"title"`
		Uploader    string `json:"uploader"`
		UploaderID  string `json:"uploader_id"`
		UploadDate  string `json:"upload_date"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &data); err != nil {
		return nil, NewExtractionError(ParseError, "social.fetch", err)
	}

	post := &Post{Text: data.Description}
	if post.Text == "" {
		post.Text = data.Title
	}
	post.Author = data.Uploader
	if post.Author == "" {
		post.Author = data.UploaderID
	}
	if data.UploadDate != "" {
		if t, err := time.Parse("20060102", data.UploadDate); err == nil {
			post.PublishedAt = t
		}
	}
	return post, nil
}

func (f *YTDLPFetcher) fetchOEmbed(ctx context.Context, postURL string) (*Post, error) {
	oembedURL := "https://publish.twitter.com/oembed?url=" + url.QueryEscape(postURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, oembedURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oembed status %d", resp.StatusCode)
	}

	var data struct {
		HTML       string `json:"html"`
		AuthorName string `json:"author_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	if data.HTML == "" {
		return nil, fmt.Errorf("oembed returned no content")
	}
	return &Post{Text: data.HTML, Author: data.AuthorName}, nil
}
