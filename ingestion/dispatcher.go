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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/origin-steward/steward/ai"
	"github.com/origin-steward/steward/connector"
	"github.com/origin-steward/steward/core"
	"github.com/origin-steward/steward/inbox"
	"github.com/origin-steward/steward/storage"
	"github.com/panjf2000/ants/v2"
)

const (
	defaultExtractTimeout = 30 * time.Second
	defaultPersistRetries = 3
	defaultPersistBackoff = 500 * time.Millisecond
)

// Dispatcher drives the drop state machine: it polls the inbox source,
// claims drops, routes them through connectors, persists artifacts, and
// schedules asynchronous embedding.
type Dispatcher struct {
	source     inbox.Source
	drops      storage.DropRepository
	artifacts  storage.ArtifactRepository
	connectors map[core.ClassifiedType]connector.Connector

	dropPool  *ants.Pool
	embedPool *ants.Pool
	embedProc *embeddingProcessor

	extractTimeout time.Duration
	persistRetries int
	persistBackoff time.Duration

	wg     sync.WaitGroup
	logger *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher) error

// WithPoolSize sets the worker pool size for drop processing and embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(d *Dispatcher) error {
		if size < 1 {
			size = 1
		}

		if d.dropPool != nil {
			d.dropPool.Release()
		}
		if d.embedPool != nil {
			d.embedPool.Release()
		}

		dropPool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		embedPool, err := ants.NewPool(size)
		if err != nil {
			dropPool.Release()
			return err
		}

		d.dropPool = dropPool
		d.embedPool = embedPool
		return nil
	}
}

// WithExtractTimeout bounds each connector call. A call exceeding the
// timeout is cancelled and treated as a network error.
func WithExtractTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) error {
		if timeout > 0 {
			d.extractTimeout = timeout
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		return nil
	}
}

// NewDispatcher creates a dispatcher wiring the source, stores, connectors,
// and embedding provider together.
func NewDispatcher(
	source inbox.Source,
	drops storage.DropRepository,
	artifacts storage.ArtifactRepository,
	embeddings storage.EmbeddingRepository,
	provider ai.Provider,
	connectors map[core.ClassifiedType]connector.Connector,
	opts ...Option,
) (*Dispatcher, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if drops == nil {
		return nil, ErrDropRepositoryRequired
	}
	if artifacts == nil {
		return nil, ErrArtifactRepositoryRequired
	}
	if embeddings == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	dropPool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	embedPool, err := ants.NewPool(poolSize)
	if err != nil {
		dropPool.Release()
		return nil, err
	}

	d := &Dispatcher{
		source:         source,
		drops:          drops,
		artifacts:      artifacts,
		connectors:     connectors,
		dropPool:       dropPool,
		embedPool:      embedPool,
		extractTimeout: defaultExtractTimeout,
		persistRetries: defaultPersistRetries,
		persistBackoff: defaultPersistBackoff,
		logger:         slog.Default().With("component", "dispatcher"),
	}

	for _, opt := range opts {
		if optErr := opt(d); optErr != nil {
			d.Release()
			return nil, optErr
		}
	}

	embedProc, err := newEmbeddingProcessor(artifacts, embeddings, provider.Embedder(), d.logger)
	if err != nil {
		d.Release()
		return nil, err
	}
	d.embedProc = embedProc

	return d, nil
}

// Run polls the source until ctx is cancelled or the source closes.
// Drops are processed on the worker pool; the atomic claim prevents two
// workers from double-processing concurrently delivered drops.
//
// Before polling, drops stranded in processing by a previous run are
// reset to pending. Without the sweep a redelivered drop could never be
// claimed again and its source file would sit in the inbox forever.
func (d *Dispatcher) Run(ctx context.Context) error {
	recovered, err := d.drops.RecoverProcessingDrops(ctx)
	if err != nil {
		return fmt.Errorf("recover stranded drops: %w", err)
	}
	if recovered > 0 {
		d.logger.Info("recovered drops stranded in processing", "count", recovered)
	}

	for {
		batch, err := d.source.Poll(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, inbox.ErrSourceClosed) {
				d.wg.Wait()
				return nil
			}
			return err
		}

		for _, drop := range batch {
			drop := drop
			d.wg.Add(1)
			submitErr := d.dropPool.Submit(func() {
				defer d.wg.Done()
				d.ProcessDrop(ctx, drop)
			})
			if submitErr != nil {
				d.wg.Done()
				d.logger.Error("failed to submit drop", "drop", drop.Id, "err", submitErr)
			}
		}
	}
}

// ProcessDrop takes one drop through the full state machine. Every drop
// reaches a terminal, inspectable state; errors settling the source file
// are logged, never propagated.
func (d *Dispatcher) ProcessDrop(ctx context.Context, drop *core.Drop) {
	logger := d.logger.With("drop", drop.Id)

	stored, inserted, err := d.drops.AddDrop(ctx, drop)
	if err != nil {
		logger.Error("failed to record drop", "err", err)
		return
	}
	if !inserted && stored.Status.IsTerminal() {
		// Redelivered content that already reached a terminal state:
		// no new artifact, no state change
		logger.Info("drop content already processed, discarding", "status", stored.Status.String())
		if err := d.source.Discard(ctx, drop.Id); err != nil {
			logger.Warn("failed to discard duplicate drop", "err", err)
		}
		return
	}

	claimed, err := d.drops.ClaimDrop(ctx, drop.Id)
	if err != nil {
		logger.Error("failed to claim drop", "err", err)
		return
	}
	if !claimed {
		// Another worker holds it
		logger.Debug("drop claimed elsewhere, skipping")
		return
	}

	classified := Classify(stored)
	conn, ok := d.connectors[classified]
	if !ok {
		d.failDrop(ctx, logger, drop.Id, fmt.Sprintf("%s: %s", ErrNoConnector, classified))
		return
	}

	artifact, err := d.extract(ctx, conn, stored)
	if err != nil {
		d.failDrop(ctx, logger, drop.Id, err.Error())
		return
	}
	artifact.DropId = drop.Id

	persisted, err := d.persistArtifact(ctx, artifact)
	if err != nil {
		d.failDrop(ctx, logger, drop.Id, fmt.Sprintf("persistence failed: %v", err))
		return
	}

	if err := d.drops.CompleteDrop(ctx, drop.Id); err != nil {
		logger.Error("failed to mark drop completed", "err", err)
		return
	}
	if err := d.source.Ack(ctx, drop.Id, persisted); err != nil {
		logger.Warn("failed to archive drop record", "err", err)
	}

	logger.Info("drop completed", "artifact", persisted.Id, "type", persisted.Type)

	// Embedding runs asynchronously; the artifact is already visible
	artifactID := persisted.Id
	submitErr := d.embedPool.Submit(func() {
		if err := d.embedProc.process(context.Background(), artifactID); err != nil {
			d.logger.Error("error processing embeddings", "artifact", artifactID, "err", err)
		}
	})
	if submitErr != nil {
		logger.Error("failed to submit embedding job", "err", submitErr)
	}
}

// extract runs the connector with a bounded timeout, retrying persistence
// failures with backoff. Connectors are side-effect free on failure, so
// re-invoking is safe.
func (d *Dispatcher) extract(ctx context.Context, conn connector.Connector, drop *core.Drop) (*core.Artifact, error) {
	var lastErr error

	for attempt := 0; attempt < d.persistRetries; attempt++ {
		extractCtx, cancel := context.WithTimeout(ctx, d.extractTimeout)
		artifact, err := conn.Extract(extractCtx, drop)
		cancel()

		if err == nil {
			return artifact, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, connector.NewExtractionError(connector.NetworkError, "dispatcher.extract", err)
		}
		if !connector.IsPersistence(err) {
			return nil, err
		}

		lastErr = err
		d.logger.Warn("persistence failure during extraction, retrying",
			"drop", drop.Id, "attempt", attempt+1, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d.persistBackoff * time.Duration(attempt+1)):
		}
	}
	return nil, lastErr
}

// persistArtifact stores the artifact, retrying transient failures.
// PutArtifact is idempotent per drop, so retries cannot duplicate.
func (d *Dispatcher) persistArtifact(ctx context.Context, artifact *core.Artifact) (*core.Artifact, error) {
	var lastErr error

	for attempt := 0; attempt < d.persistRetries; attempt++ {
		stored, _, err := d.artifacts.PutArtifact(ctx, artifact)
		if err == nil {
			return stored, nil
		}

		lastErr = err
		d.logger.Warn("artifact persistence failed, retrying",
			"drop", artifact.DropId, "attempt", attempt+1, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d.persistBackoff * time.Duration(attempt+1)):
		}
	}
	return nil, lastErr
}

func (d *Dispatcher) failDrop(ctx context.Context, logger *slog.Logger, dropID core.ID, reason string) {
	logger.Warn("drop failed", "reason", reason)
	if err := d.drops.FailDrop(ctx, dropID, reason); err != nil {
		logger.Error("failed to mark drop failed", "err", err)
	}
	if err := d.source.Fail(ctx, dropID, reason); err != nil {
		logger.Warn("failed to quarantine drop record", "err", err)
	}
}

// Wait blocks until all in-flight drop processing has finished.
// Embedding jobs may still be pending on the embed pool.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Release releases worker pools. The dispatcher should not be used after
// calling Release.
func (d *Dispatcher) Release() {
	if d.dropPool != nil {
		d.dropPool.Release()
	}
	if d.embedPool != nil {
		d.embedPool.Release()
	}
}
