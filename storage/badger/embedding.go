package badger

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/origin-steward/steward/core"
	"github.com/origin-steward/steward/storage"
)

// EmbeddingRepository implements storage.EmbeddingRepository for BadgerDB.
type EmbeddingRepository struct {
	backend *Backend
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new EmbeddingRepository.
func NewEmbeddingRepository(backend *Backend) (*EmbeddingRepository, error) {
	return &EmbeddingRepository{
		backend: backend,
	}, nil
}

// Close releases resources. EmbeddingRepository has no resources to release.
func (r *EmbeddingRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *EmbeddingRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// UpsertEmbedding stores an embedding, replacing any existing embedding for
// the same (artifact, model) pair.
func (r *EmbeddingRepository) UpsertEmbedding(ctx context.Context, embedding *core.Embedding) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		embedding.UpdatedAt = time.Now().UTC()

		key := makeEmbeddingKey(embedding.ArtifactId, embedding.ModelId)
		if err := tx.Set(key, storage.MarshalEmbedding(embedding)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetEmbedding retrieves the embedding for an (artifact, model) pair.
func (r *EmbeddingRepository) GetEmbedding(ctx context.Context, artifactID core.ID, modelID string) (*core.Embedding, error) {
	var result *core.Embedding

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEmbeddingKey(artifactID, modelID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			result, err = storage.UnmarshalEmbedding(val)
			return err
		})
	}, false)

	return result, err
}

// DeleteEmbeddings removes all embeddings for an artifact across all models.
func (r *EmbeddingRepository) DeleteEmbeddings(ctx context.Context, artifactID core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		prefix := makePartialEmbeddingKey(artifactID)
		var keys [][]byte
		for iter.Seek(prefix); iter.Valid(); iter.Next() {
			if !hasPrefix(iter.Item().Key(), prefix) {
				break
			}
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// FindSimilar scans all embeddings under modelID and returns the artifacts
// most similar to the query vector. Vectors are stored normalized, so
// cosine similarity reduces to a dot product.
func (r *EmbeddingRepository) FindSimilar(ctx context.Context, vector []float32, modelID string, minSimilarity float32, limit int) ([]*core.SimilarityMatch, error) {
	var results []*core.SimilarityMatch

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(embeddingPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		modelSuffix := ":" + modelID
		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()

			if !strings.HasSuffix(string(item.Key()), modelSuffix) {
				continue
			}

			var embedding *core.Embedding
			err := item.Value(func(val []byte) error {
				var err error
				embedding, err = storage.UnmarshalEmbedding(val)
				return err
			})
			if err != nil {
				return err
			}
			if embedding == nil || len(embedding.Vector) == 0 {
				continue
			}

			similarity := dotProduct(vector, embedding.Vector)
			if similarity >= minSimilarity {
				results = append(results, &core.SimilarityMatch{
					ArtifactId: embedding.ArtifactId,
					Score:      similarity,
				})
			}
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}

	// Sort by similarity descending
	slices.SortFunc(results, func(a, b *core.SimilarityMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

// dotProduct calculates the dot product of two vectors.
// Vectors of mismatched dimensions compare over the shorter length.
func dotProduct(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
