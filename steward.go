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

package steward

import (
	"io"
	"log/slog"
	"time"

	"github.com/origin-steward/steward/ai"
	"github.com/origin-steward/steward/ai/openai"
	"github.com/origin-steward/steward/connector"
	"github.com/origin-steward/steward/core"
	"github.com/origin-steward/steward/inbox"
	"github.com/origin-steward/steward/ingestion"
	"github.com/origin-steward/steward/reembed"
	"github.com/origin-steward/steward/search"
	"github.com/origin-steward/steward/storage"
	"github.com/origin-steward/steward/storage/badger"
)

// Steward owns the store, the embedding provider, and the connector set.
// It is the assembly point the CLI and the HTTP server build on.
type Steward struct {
	backend    *badger.Backend
	drops      storage.DropRepository
	artifacts  storage.ArtifactRepository
	embeddings storage.EmbeddingRepository
	provider   ai.Provider
	blobs      *connector.DirBlobStore
	logger     *slog.Logger
}

// StewardOption configures a Steward.
type StewardOption func(*stewardOptions)

type stewardOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
	inMemory bool
}

// WithAIConfig sets the embedding endpoint configuration.
func WithAIConfig(config *ai.Config) StewardOption {
	return func(o *stewardOptions) {
		o.aiConfig = config
	}
}

// WithProvider supplies a pre-built AI provider instead of the default
// OpenAI-compatible one. Used by tests with the mock provider.
func WithProvider(provider ai.Provider) StewardOption {
	return func(o *stewardOptions) {
		o.provider = provider
	}
}

// WithInMemoryStore opens the badger backend in memory. Used by tests.
func WithInMemoryStore() StewardOption {
	return func(o *stewardOptions) {
		o.inMemory = true
	}
}

// NewSteward opens the store at dbPath, stores image blobs under blobDir,
// and connects the embedding provider.
func NewSteward(dbPath, blobDir string, opts ...StewardOption) (*Steward, error) {
	options := &stewardOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(dbPath, options.inMemory)
	if err != nil {
		return nil, err
	}

	drops, err := badger.NewDropRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	artifacts, err := badger.NewArtifactRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	embeddings, err := badger.NewEmbeddingRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	blobs, err := connector.NewDirBlobStore(blobDir)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	return &Steward{
		backend:    backend,
		drops:      drops,
		artifacts:  artifacts,
		embeddings: embeddings,
		provider:   provider,
		blobs:      blobs,
		logger:     slog.Default(),
	}, nil
}

// Close releases the provider and the store.
func (s *Steward) Close() error {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (s *Steward) DropRepository() storage.DropRepository {
	return s.drops
}

func (s *Steward) ArtifactRepository() storage.ArtifactRepository {
	return s.artifacts
}

func (s *Steward) EmbeddingRepository() storage.EmbeddingRepository {
	return s.embeddings
}

func (s *Steward) Provider() ai.Provider {
	return s.provider
}

// Connectors builds the default dispatch table: readability extraction for
// web pages, yt-dlp backed extraction for social posts, passthrough for
// text, and blob-backed references for images.
func (s *Steward) Connectors(extractTimeout time.Duration) map[core.ClassifiedType]connector.Connector {
	return map[core.ClassifiedType]connector.Connector{
		core.ClassifiedWebURL:    connector.NewWebConnector(extractTimeout),
		core.ClassifiedSocialURL: connector.NewSocialConnector(connector.NewYTDLPFetcher()),
		core.ClassifiedText:      connector.NewTextConnector(),
		core.ClassifiedImage:     connector.NewImageConnector(s.blobs),
	}
}

// NewDispatcher builds an ingestion dispatcher consuming from source with
// the default connector set.
func (s *Steward) NewDispatcher(source inbox.Source, extractTimeout time.Duration, opts ...ingestion.Option) (*ingestion.Dispatcher, error) {
	return ingestion.NewDispatcher(source, s.drops, s.artifacts, s.embeddings, s.provider,
		s.Connectors(extractTimeout), opts...)
}

// NewSearcher builds a searcher over the store.
func (s *Steward) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(s.artifacts, s.embeddings, s.provider, opts...)
}

// NewReembedder builds a reembedder that regenerates every artifact's
// vector with the current provider, reporting progress to progressWriter.
func (s *Steward) NewReembedder(config *reembed.Config, progressWriter io.Writer) *reembed.Reembedder {
	return reembed.NewReembedder(s.artifacts, s.embeddings, s.provider.Embedder(), config, progressWriter)
}
