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


// Package ai provides abstractions for the embedding services used by the
// ingestion pipeline and semantic search.
//
// The package defines the Embedder and Provider interfaces and leaves the
// concrete implementations to sub-packages, so business logic depends on
// abstractions rather than a specific vendor API:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//     (Ollama, LocalAI, vLLM, or OpenAI itself)
//   - ai/mock: Deterministic test doubles for unit testing without a
//     running embedding service
//
// Public constructors (openai.NewProvider, openai.NewEmbedder) return
// interface types to enforce the abstraction. Mock constructors return
// concrete types so tests can inject behavior and make assertions.
//
// Vectors returned by embedders are raw; callers normalize them with
// NormalizeVector before storing, which lets similarity search use a plain
// dot product as cosine similarity.
package ai
