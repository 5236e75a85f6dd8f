package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/origin-steward/steward/ai"
	"github.com/origin-steward/steward/core"
	"github.com/origin-steward/steward/storage"
)

// embeddingProcessor generates and upserts embeddings for artifacts.
// It runs asynchronously relative to artifact persistence: an artifact is
// visible to readers before its embedding exists.
type embeddingProcessor struct {
	artifacts  storage.ArtifactRepository
	embeddings storage.EmbeddingRepository
	embedder   ai.Embedder
	logger     *slog.Logger
}

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(
	artifacts storage.ArtifactRepository,
	embeddings storage.EmbeddingRepository,
	embedder ai.Embedder,
	logger *slog.Logger,
) (*embeddingProcessor, error) {
	if artifacts == nil {
		return nil, ErrArtifactRepositoryRequired
	}
	if embeddings == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrAIProviderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		artifacts:  artifacts,
		embeddings: embeddings,
		embedder:   embedder,
		logger:     logger.With("processor", "embeddings"),
	}, nil
}

// process embeds the artifacts identified by the given IDs and upserts the
// normalized vectors. Missing artifacts are skipped.
func (ep *embeddingProcessor) process(ctx context.Context, ids ...core.ID) error {
	ep.logger.Debug("processing artifacts for embeddings", "artifacts", len(ids))

	artifacts, err := ep.artifacts.GetArtifacts(ctx, ids...)
	if err != nil {
		ep.logger.Error("error retrieving artifacts", "err", err)
		return err
	}
	if len(artifacts) == 0 {
		return nil
	}

	texts := make([]string, len(artifacts))
	for i, artifact := range artifacts {
		texts[i] = artifact.Content
	}

	vectors, err := ep.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		ep.logger.Error("error generating embeddings", "err", err)
		return err
	}
	if len(vectors) != len(artifacts) {
		return fmt.Errorf("embedding result mismatch. expected %d, received %d", len(artifacts), len(vectors))
	}

	modelID := ep.embedder.ModelID()
	for i, artifact := range artifacts {
		embedding := &core.Embedding{
			ArtifactId: artifact.Id,
			ModelId:    modelID,
			Vector:     ai.NormalizeVector(vectors[i]),
		}
		if err := ep.embeddings.UpsertEmbedding(ctx, embedding); err != nil {
			ep.logger.Error("error upserting embedding", "artifact", artifact.Id, "err", err)
			return err
		}
	}

	return nil
}
