package storage

import (
	"context"
	"time"

	"github.com/origin-steward/steward/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// DropRepository owns the lifecycle records of drops. It doubles as the
// persisted content-hash index: drop IDs are content-derived, so a redelivered
// capture maps to the same record.
type DropRepository interface {
	Repository

	// AddDrop inserts a drop if no drop with the same ID exists.
	// Returns the stored drop and true when inserted; the existing drop
	// and false when the content was seen before.
	AddDrop(ctx context.Context, drop *core.Drop) (*core.Drop, bool, error)

	// ClaimDrop atomically moves a drop from pending to processing.
	// Returns false when the drop is not pending or when a concurrent
	// worker claimed it first.
	ClaimDrop(ctx context.Context, id core.ID) (bool, error)

	// CompleteDrop marks a processing drop completed.
	CompleteDrop(ctx context.Context, id core.ID) error

	// FailDrop marks a drop failed and records the reason.
	// Failed drops are terminal; they are never retried automatically.
	FailDrop(ctx context.Context, id core.ID, reason string) error

	// GetDrop retrieves a drop by ID. Returns ErrNotFound if absent.
	GetDrop(ctx context.Context, id core.ID) (*core.Drop, error)

	// GetDropsByStatus retrieves up to limit drops in the given state,
	// ordered by arrival time.
	GetDropsByStatus(ctx context.Context, status core.DropStatus, limit int) ([]*core.Drop, error)

	// RecoverProcessingDrops resets drops stranded in processing back to
	// pending so they can be claimed again. A drop stays in processing
	// only while a worker holds it; finding one at startup means a
	// previous run died mid-flight. Returns the number of drops reset.
	RecoverProcessingDrops(ctx context.Context) (int, error)

	// CountDropsByStatus returns the number of drops per status.
	CountDropsByStatus(ctx context.Context) (map[core.DropStatus]int, error)

	// GetDailyDropCounts returns per-day drop counts for the last days
	// days, oldest first, with zero-filled gaps.
	GetDailyDropCounts(ctx context.Context, days int) ([]core.DailyCount, error)

	// LastReceivedAt returns the arrival time of the most recent drop.
	// Returns the zero time when the store is empty.
	LastReceivedAt(ctx context.Context) (time.Time, error)
}

// ArtifactRepository owns normalized artifacts.
type ArtifactRepository interface {
	Repository

	// PutArtifact stores an artifact. Inserts are idempotent per drop:
	// when an artifact for the same DropId already exists, the existing
	// artifact is returned with inserted == false and nothing is written.
	// Artifacts without a DropId are always inserted.
	PutArtifact(ctx context.Context, artifact *core.Artifact) (*core.Artifact, bool, error)

	// UpdateArtifact overwrites an existing artifact.
	// Returns ErrNotFound if the artifact doesn't exist.
	UpdateArtifact(ctx context.Context, artifact *core.Artifact) (*core.Artifact, error)

	// GetArtifact retrieves an artifact by ID. Returns ErrNotFound if absent.
	GetArtifact(ctx context.Context, id core.ID) (*core.Artifact, error)

	// GetArtifacts retrieves multiple artifacts by ID.
	// Missing artifacts are skipped, not errors.
	GetArtifacts(ctx context.Context, ids ...core.ID) ([]*core.Artifact, error)

	// ListRecentArtifacts returns up to limit artifacts ordered by
	// creation time, most recent first.
	ListRecentArtifacts(ctx context.Context, limit int) ([]*core.Artifact, error)

	// GetArtifactsByDateRange retrieves artifacts where
	// start <= CreatedAt < end, ordered by creation time.
	GetArtifactsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Artifact, error)

	// FindArtifactByDrop returns the artifact created from the given drop.
	// Returns ErrNotFound when the drop produced no artifact.
	FindArtifactByDrop(ctx context.Context, dropID core.ID) (*core.Artifact, error)

	// CountArtifacts returns the total number of artifacts.
	CountArtifacts(ctx context.Context) (int, error)
}

// EmbeddingRepository is the vector index. It owns embedding records and
// treats the artifact ID as a foreign key into the artifact repository;
// an embedding without an artifact is a consistency bug, not a valid state.
type EmbeddingRepository interface {
	Repository

	// UpsertEmbedding stores an embedding, overwriting any existing
	// embedding for the same (artifact, model) pair.
	UpsertEmbedding(ctx context.Context, embedding *core.Embedding) error

	// GetEmbedding retrieves the embedding for an (artifact, model) pair.
	// Returns ErrNotFound if absent.
	GetEmbedding(ctx context.Context, artifactID core.ID, modelID string) (*core.Embedding, error)

	// DeleteEmbeddings removes all embeddings for an artifact.
	DeleteEmbeddings(ctx context.Context, artifactID core.ID) error

	// FindSimilar finds artifacts whose embeddings under modelID are
	// most similar to the query vector. Returns up to limit matches with
	// similarity >= minSimilarity, ordered by similarity, highest first.
	FindSimilar(ctx context.Context, vector []float32, modelID string, minSimilarity float32, limit int) ([]*core.SimilarityMatch, error)
}
