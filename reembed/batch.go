package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/origin-steward/steward/ai"
	"github.com/origin-steward/steward/core"
	"github.com/origin-steward/steward/storage"
)

// BatchProcessor generates embeddings for batches of artifacts and upserts
// them into the embedding index.
type BatchProcessor struct {
	embeddings     storage.EmbeddingRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(embeddings storage.EmbeddingRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		embeddings:     embeddings,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process generates embeddings for a batch of artifacts and upserts them.
// Vectors are normalized after embedding so similarity search can use the
// dot product as cosine similarity.
func (bp *BatchProcessor) Process(ctx context.Context, artifacts []*core.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}

	texts := make([]string, len(artifacts))
	for i, artifact := range artifacts {
		texts[i] = artifact.Content
	}

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)

	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(vectors) != len(artifacts) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(artifacts), len(vectors))
	}

	modelID := bp.embedder.ModelID()
	for i, artifact := range artifacts {
		embedding := &core.Embedding{
			ArtifactId: artifact.Id,
			ModelId:    modelID,
			Vector:     ai.NormalizeVector(vectors[i]),
		}
		if err := bp.embeddings.UpsertEmbedding(ctx, embedding); err != nil {
			return fmt.Errorf("failed to upsert embedding for artifact %v: %w", artifact.Id, err)
		}
	}

	return nil
}
