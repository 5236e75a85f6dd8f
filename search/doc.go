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


// Package search provides semantic search over artifacts.
//
// The Searcher embeds the query, retrieves nearest neighbors from the
// vector index (oversampled so post-filtering can't starve the result
// set), applies type/tag/date filters, boosts results containing every
// non-stopword query term verbatim, and ranks by score with recency as
// the tiebreak.
package search
