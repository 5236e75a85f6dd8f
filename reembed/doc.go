// Package reembed regenerates embedding vectors for artifacts already in
// the store, typically after switching to a new embedding model.
//
// This package supports batch processing of artifacts, progress tracking,
// retry logic with exponential backoff, and vector normalization to ensure
// compatibility with cosine similarity search.
package reembed
