package search

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/origin-steward/steward/ai"
	"github.com/origin-steward/steward/core"
	"github.com/origin-steward/steward/storage"
)

const (
	// minSimilarity drops matches with essentially no semantic relation.
	minSimilarity = 0.25

	// candidateFactor oversamples the vector index so post-filtering by
	// type/tag/date still leaves enough candidates to fill maxHits.
	candidateFactor = 4
)

// Filters restricts search results after vector retrieval.
// Zero values mean no restriction.
type Filters struct {
	// Types keeps only artifacts of the listed types.
	Types []core.ArtifactType

	// Tags keeps only artifacts carrying all listed tags.
	Tags []string

	// Since keeps artifacts with CreatedAt >= Since.
	Since time.Time

	// Until keeps artifacts with CreatedAt < Until.
	Until time.Time
}

// Searcher provides semantic search over artifacts.
type Searcher struct {
	artifacts  storage.ArtifactRepository
	embeddings storage.EmbeddingRepository
	embedder   ai.Embedder
	logger     *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	artifacts storage.ArtifactRepository,
	embeddings storage.EmbeddingRepository,
	provider ai.Provider,
	opts ...Option,
) (*Searcher, error) {
	if artifacts == nil {
		return nil, ErrArtifactRepositoryRequired
	}
	if embeddings == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		artifacts:  artifacts,
		embeddings: embeddings,
		embedder:   provider.Embedder(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search finds artifacts semantically similar to the query, ranked by
// relevance. Results matching every non-stopword query term verbatim get
// a score boost; ties break on creation time, most recent first.
// An empty query returns empty results.
func (s *Searcher) Search(ctx context.Context, query string, maxHits int, filters *Filters) ([]*core.SearchResult, error) {
	if query == "" || maxHits <= 0 {
		return []*core.SearchResult{}, nil
	}
	if filters == nil {
		filters = &Filters{}
	}

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	vector = ai.NormalizeVector(vector)

	matches, err := s.embeddings.FindSimilar(ctx, vector, s.embedder.ModelID(), minSimilarity, maxHits*candidateFactor)
	if err != nil {
		s.logger.Error("error querying vector index", "err", err)
		return nil, err
	}
	if len(matches) == 0 {
		return []*core.SearchResult{}, nil
	}

	scores := make(map[core.ID]float32, len(matches))
	ids := make([]core.ID, 0, len(matches))
	for _, match := range matches {
		scores[match.ArtifactId] = match.Score
		ids = append(ids, match.ArtifactId)
	}

	// Missing artifacts (e.g. stale index entries) are skipped
	artifacts, err := s.artifacts.GetArtifacts(ctx, ids...)
	if err != nil {
		s.logger.Error("error retrieving artifacts", "count", len(ids), "err", err)
		return nil, err
	}

	results := make([]*core.SearchResult, 0, len(artifacts))
	for _, artifact := range artifacts {
		if !filters.match(artifact) {
			continue
		}

		score := scores[artifact.Id]
		if containsAllQueryWords(artifact.Content, query) {
			score += 0.3
		}

		results = append(results, &core.SearchResult{
			Artifact: artifact,
			Score:    score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Artifact.CreatedAt.After(results[j].Artifact.CreatedAt)
	})
	if len(results) > maxHits {
		results = results[:maxHits]
	}

	return results, nil
}

func (f *Filters) match(artifact *core.Artifact) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if artifact.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for _, tag := range f.Tags {
		if !artifact.HasTag(tag) {
			return false
		}
	}

	if !f.Since.IsZero() && artifact.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !artifact.CreatedAt.Before(f.Until) {
		return false
	}

	return true
}
