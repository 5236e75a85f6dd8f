package ingestion

import "errors"

var (
	// ErrSourceRequired is returned when an inbox source is not provided.
	ErrSourceRequired = errors.New("inbox source required")

	// ErrDropRepositoryRequired is returned when a drop repository is not provided.
	ErrDropRepositoryRequired = errors.New("drop repository required")

	// ErrArtifactRepositoryRequired is returned when an artifact repository is not provided.
	ErrArtifactRepositoryRequired = errors.New("artifact repository required")

	// ErrEmbeddingRepositoryRequired is returned when an embedding repository is not provided.
	ErrEmbeddingRepositoryRequired = errors.New("embedding repository required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrNoConnector is returned when no connector is registered for a
	// classified type.
	ErrNoConnector = errors.New("no connector for classified type")
)
