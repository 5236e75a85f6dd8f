package server

import "errors"

var (
	// ErrSearcherRequired is returned when no searcher is provided.
	ErrSearcherRequired = errors.New("searcher is required")
	// ErrDropRepositoryRequired is returned when no drop repository is provided.
	ErrDropRepositoryRequired = errors.New("drop repository is required")
	// ErrArtifactRepositoryRequired is returned when no artifact repository is provided.
	ErrArtifactRepositoryRequired = errors.New("artifact repository is required")
)
