package connector

import (
	"context"
	"testing"
	"time"

	"github.com/origin-steward/steward/core"
)

// stubFetcher implements PostFetcher with injectable behavior.
type stubFetcher struct {
	post *Post
	err  error
}

func (f *stubFetcher) FetchPost(ctx context.Context, url string) (*Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.post, nil
}

func socialDrop(payload string) *core.Drop {
	return &core.Drop{
		Id:         core.IDFromContent("url\n" + payload),
		Kind:       core.KindURL,
		WireType:   "tweet",
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
		Status:     core.StatusProcessing,
	}
}

func TestSocialConnectorExtract(t *testing.T) {
	published := time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)
	c := NewSocialConnector(&stubFetcher{post: &Post{
		Text:        "just shipped the thing",
		Author:      "someuser",
		PublishedAt: published,
	}})

	artifact, err := c.Extract(context.Background(), socialDrop("https://twitter.com/someuser/status/1"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if artifact.Type != core.ArtifactSocialPost {
		t.Fatalf("Expected social-post, got %s", artifact.Type)
	}
	if artifact.Content != "just shipped the thing" {
		t.Fatalf("Unexpected content: %q", artifact.Content)
	}
	if artifact.Author != "someuser" {
		t.Fatalf("Unexpected author: %q", artifact.Author)
	}
	if !artifact.CreatedAt.Equal(published) {
		t.Fatalf("Expected publish time, got %v", artifact.CreatedAt)
	}
	if artifact.HasTag("to_read") {
		t.Fatal("Successful fetch must not carry to_read tag")
	}
}

func TestSocialConnectorDegradesOnFailure(t *testing.T) {
	url := "https://twitter.com/user/status/1"
	c := NewSocialConnector(&stubFetcher{
		err: NewExtractionError(RateLimited, "social.fetch", nil),
	})

	artifact, err := c.Extract(context.Background(), socialDrop(url))
	if err != nil {
		t.Fatalf("Expected degraded artifact, got error: %v", err)
	}

	if !artifact.HasTag("to_read") {
		t.Fatalf("Expected to_read tag, got %v", artifact.Tags)
	}
	if artifact.Content != url {
		t.Fatalf("Expected content to be the original URL only, got %q", artifact.Content)
	}
	if artifact.SourceURL != url {
		t.Fatalf("Expected source URL preserved, got %q", artifact.SourceURL)
	}
}

func TestSocialConnectorEmptyTextDegrades(t *testing.T) {
	url := "https://x.com/user/status/2"
	c := NewSocialConnector(&stubFetcher{post: &Post{Author: "user"}})

	artifact, err := c.Extract(context.Background(), socialDrop(url))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if artifact.Content != url || !artifact.HasTag("to_read") {
		t.Fatalf("Expected link-only fallback, got content %q tags %v", artifact.Content, artifact.Tags)
	}
}
