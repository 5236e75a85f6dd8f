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


// Package storage provides the storage abstraction layer for steward.
//
// This package defines repository interfaces that decouple storage
// implementation from pipeline and search logic. The BadgerDB backend in the
// badger subpackage is the default implementation; alternative backends only
// need to satisfy these interfaces.
//
// # Ownership
//
// The drop and artifact repositories exclusively own drop and artifact
// lifecycle records. The embedding repository owns embedding records and
// treats artifact IDs as foreign keys that must resolve in the artifact
// repository.
//
// # Constructor Return Type Pattern
//
// Public constructors in backend packages return these interfaces rather
// than their concrete types:
//
//	drops, err := badger.NewDropRepository(backend)  // storage.DropRepository
//
// Internal constructors may return concrete types since they are only used
// within the implementation package.
//
// # Thread Safety
//
// All repository implementations must be thread-safe. The dispatcher's
// worker pool and the search service access them concurrently.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation and
// timeout support.
package storage
