package search

import (
	"context"
	"testing"
	"time"

	"github.com/origin-steward/steward/ai"
	"github.com/origin-steward/steward/ai/mock"
	"github.com/origin-steward/steward/core"
	"github.com/origin-steward/steward/storage"
	badgerstore "github.com/origin-steward/steward/storage/badger"
)

// axisEmbedder maps known phrases onto fixed axes so similarity is
// fully controlled by the test.
func axisEmbedder(axes map[string]int) *mock.MockEmbedder {
	dim := 8
	embed := func(text string) []float32 {
		v := make([]float32, dim)
		if axis, ok := axes[text]; ok {
			v[axis] = 1
		} else {
			v[dim-1] = 1
		}
		return v
	}

	m := mock.NewMockEmbedder()
	m.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return embed(text), nil
	}
	m.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, t := range texts {
			out[i] = embed(t)
		}
		return out, nil
	}
	return m
}

func seedArtifact(t *testing.T, artifacts storage.ArtifactRepository, embeddings storage.EmbeddingRepository,
	embedder ai.Embedder, content string, artifactType core.ArtifactType, tags []string, createdAt time.Time) *core.Artifact {
	t.Helper()
	ctx := context.Background()

	artifact := &core.Artifact{
		Type:      artifactType,
		Content:   content,
		CreatedAt: createdAt,
		Tags:      tags,
	}
	stored, _, err := artifacts.PutArtifact(ctx, artifact)
	if err != nil {
		t.Fatalf("Failed to put artifact: %v", err)
	}

	vector, err := embedder.EmbedText(ctx, content)
	if err != nil {
		t.Fatalf("Failed to embed: %v", err)
	}
	embedding := &core.Embedding{
		ArtifactId: stored.Id,
		ModelId:    embedder.ModelID(),
		Vector:     ai.NormalizeVector(vector),
	}
	if err := embeddings.UpsertEmbedding(ctx, embedding); err != nil {
		t.Fatalf("Failed to upsert embedding: %v", err)
	}
	return stored
}

func TestSearchRanksBySimilarity(t *testing.T) {
	_, artifacts, embeddings, backend, err := badgerstore.NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	embedder := axisEmbedder(map[string]int{
		"quantum computing basics": 0,
		"gardening tips":           1,
		"quantum computing":        0,
	})
	provider := mock.NewMockProviderWithEmbedder(embedder)

	now := time.Now().UTC()
	target := seedArtifact(t, artifacts, embeddings, embedder,
		"quantum computing basics", core.ArtifactArticle, nil, now)
	seedArtifact(t, artifacts, embeddings, embedder,
		"gardening tips", core.ArtifactArticle, nil, now)

	s, err := NewSearcher(artifacts, embeddings, provider)
	if err != nil {
		t.Fatalf("Failed to create searcher: %v", err)
	}

	// Term present only in one artifact returns it at rank 0
	results, err := s.Search(context.Background(), "quantum computing", 10, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Expected results")
	}
	if results[0].Artifact.Id != target.Id {
		t.Fatalf("Expected target artifact at rank 0, got %v", results[0].Artifact.Id)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	_, artifacts, embeddings, backend, err := badgerstore.NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	s, err := NewSearcher(artifacts, embeddings, mock.NewMockProvider())
	if err != nil {
		t.Fatalf("Failed to create searcher: %v", err)
	}

	results, err := s.Search(context.Background(), "", 10, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Expected empty results for empty query, got %d", len(results))
	}
}

func TestSearchFilters(t *testing.T) {
	_, artifacts, embeddings, backend, err := badgerstore.NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	// All phrases share an axis so everything matches semantically
	embedder := axisEmbedder(map[string]int{
		"release notes for march":  0,
		"release notes for april":  0,
		"unrelated social chatter": 0,
		"release notes":            0,
	})
	provider := mock.NewMockProviderWithEmbedder(embedder)

	march := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)

	marchArt := seedArtifact(t, artifacts, embeddings, embedder,
		"release notes for march", core.ArtifactArticle, []string{"release"}, march)
	aprilArt := seedArtifact(t, artifacts, embeddings, embedder,
		"release notes for april", core.ArtifactArticle, []string{"release"}, april)
	seedArtifact(t, artifacts, embeddings, embedder,
		"unrelated social chatter", core.ArtifactSocialPost, []string{"social"}, april)

	s, err := NewSearcher(artifacts, embeddings, provider)
	if err != nil {
		t.Fatalf("Failed to create searcher: %v", err)
	}
	ctx := context.Background()

	// Type filter
	results, err := s.Search(ctx, "release notes", 10, &Filters{Types: []core.ArtifactType{core.ArtifactArticle}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, r := range results {
		if r.Artifact.Type != core.ArtifactArticle {
			t.Fatalf("Type filter leaked %s", r.Artifact.Type)
		}
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(results))
	}

	// Tag filter
	results, err = s.Search(ctx, "release notes", 10, &Filters{Tags: []string{"release"}})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 tagged results, got %d", len(results))
	}

	// Date range filter: half-open [Since, Until)
	results, err = s.Search(ctx, "release notes", 10, &Filters{
		Since: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, r := range results {
		if r.Artifact.Id == marchArt.Id {
			t.Fatal("Since filter leaked older artifact")
		}
	}

	results, err = s.Search(ctx, "release notes", 10, &Filters{
		Until: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, r := range results {
		if r.Artifact.Id == aprilArt.Id {
			t.Fatal("Until filter leaked newer artifact")
		}
	}
}

func TestSearchVerbatimBoostAndRecencyTiebreak(t *testing.T) {
	_, artifacts, embeddings, backend, err := badgerstore.NewMemoryStores()
	if err != nil {
		t.Fatalf("Failed to create stores: %v", err)
	}
	defer backend.Close()

	embedder := axisEmbedder(map[string]int{
		"zebra migration patterns": 0,
		"animal movement overview": 0,
		"zebra migration":          0,
	})
	provider := mock.NewMockProviderWithEmbedder(embedder)

	now := time.Now().UTC()
	verbatim := seedArtifact(t, artifacts, embeddings, embedder,
		"zebra migration patterns", core.ArtifactArticle, nil, now.Add(-time.Hour))
	seedArtifact(t, artifacts, embeddings, embedder,
		"animal movement overview", core.ArtifactArticle, nil, now)

	s, err := NewSearcher(artifacts, embeddings, provider)
	if err != nil {
		t.Fatalf("Failed to create searcher: %v", err)
	}

	// Both score identically on similarity; the verbatim boost must win
	// over the recency tiebreak
	results, err := s.Search(context.Background(), "zebra migration", 10, nil)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Artifact.Id != verbatim.Id {
		t.Fatal("Expected verbatim match ranked first")
	}
	if results[0].Score <= results[1].Score {
		t.Fatalf("Expected boosted score, got %v <= %v", results[0].Score, results[1].Score)
	}
}

func TestContainsAllQueryWords(t *testing.T) {
	tests := []struct {
		document string
		query    string
		want     bool
	}{
		{"the quick brown fox", "quick fox", true},
		{"the quick brown fox", "quick wolf", false},
		{"Hello, World!", "hello world", true},
		{"some text", "the a an", false}, // all stop words
		{"", "anything", false},
	}

	for _, tt := range tests {
		if got := containsAllQueryWords(tt.document, tt.query); got != tt.want {
			t.Errorf("containsAllQueryWords(%q, %q) = %v, want %v", tt.document, tt.query, got, tt.want)
		}
	}
}
