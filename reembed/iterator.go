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
	"time"

	"github.com/origin-steward/steward/core"
	"github.com/origin-steward/steward/storage"
)

const (
	// DefaultBatchSize is the default number of artifacts to fetch in each batch
	DefaultBatchSize = 100
)

// ArtifactIterator iterates over all stored artifacts in batches,
// ordered by creation time.
type ArtifactIterator struct {
	artifacts storage.ArtifactRepository
	batchSize int
}

// NewArtifactIterator creates a new artifact iterator.
// batchSize: number of artifacts handed to fn in each batch (must be > 0)
func NewArtifactIterator(artifacts storage.ArtifactRepository, batchSize int) *ArtifactIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ArtifactIterator{
		artifacts: artifacts,
		batchSize: batchSize,
	}
}

// ForEach iterates over all artifacts, calling fn for each batch.
// Iteration stops on first error from fn or when all artifacts are processed.
// Context cancellation is checked between batches.
func (it *ArtifactIterator) ForEach(ctx context.Context, fn func([]*core.Artifact) error) error {
	// A very wide date range covers every artifact in the store.
	startTime := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	endTime := time.Date(2100, 12, 31, 23, 59, 59, 0, time.UTC)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	artifacts, err := it.artifacts.GetArtifactsByDateRange(ctx, startTime, endTime)
	if err != nil {
		return err
	}

	if len(artifacts) == 0 {
		return nil
	}

	for i := 0; i < len(artifacts); i += it.batchSize {
		end := i + it.batchSize
		if end > len(artifacts) {
			end = len(artifacts)
		}

		if err := fn(artifacts[i:end]); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}
