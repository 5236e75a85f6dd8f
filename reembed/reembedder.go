// Copyright 2026 Origin Steward Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/origin-steward/steward/ai"
	"github.com/origin-steward/steward/core"
	"github.com/origin-steward/steward/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of artifacts to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of artifacts)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder regenerates the embedding index for every stored artifact.
// It is the recovery path for model upgrades: switch the configured
// embedding model, run the reembedder, and search works against the new
// vectors without re-ingesting anything.
type Reembedder struct {
	artifacts ArtifactLister
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *ArtifactIterator
}

// ArtifactLister is the read surface the reembedder needs from the
// artifact repository.
type ArtifactLister interface {
	GetArtifactsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Artifact, error)
	CountArtifacts(ctx context.Context) (int, error)
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(artifacts storage.ArtifactRepository, embeddings storage.EmbeddingRepository, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}

	processor := NewBatchProcessor(embeddings, embedder, config.MaxRetries, config.RetryDelay)
	iterator := NewArtifactIterator(artifacts, config.BatchSize)

	return &Reembedder{
		artifacts: artifacts,
		config:    config,
		progress:  progress,
		processor: processor,
		iterator:  iterator,
	}
}

// Run executes the reembedding operation.
// All artifacts in the store are reembedded with the configured embedder.
// Progress is reported to the configured writer.
func (r *Reembedder) Run(ctx context.Context) error {
	total, err := r.artifacts.CountArtifacts(ctx)
	if err != nil {
		return fmt.Errorf("failed to count artifacts: %w", err)
	}

	if total == 0 {
		fmt.Fprintf(r.progress, "No artifacts found in store (0 artifacts)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d artifacts (batch size: %d)\n",
		total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0

	err = r.iterator.ForEach(ctx, func(artifacts []*core.Artifact) error {
		if err := r.processor.Process(ctx, artifacts); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		processed += len(artifacts)
		tracker.Update(processed)

		return nil
	})

	if err != nil {
		return err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d artifacts in %v (%.1f artifacts/sec)\n",
		total, elapsed.Round(time.Second), float64(total)/elapsed.Seconds())

	return nil
}
