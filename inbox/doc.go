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


// Package inbox delivers capture drops into the ingestion pipeline.
//
// The Source interface abstracts where drops come from; DirSource is the
// filesystem implementation: it watches an inbox directory with fsnotify,
// debounces file events so partially written captures are never read, and
// settles each drop by archiving it (Ack), quarantining it with a sidecar
// log (Fail), or removing it (Discard).
//
// Layout on disk:
//
//	inbox/    incoming <name>.json drop records
//	archive/  YYYY-MM-DD/<artifact-id>.md rendered from completed drops
//	error/    failed drop records plus <name>.json.error.log sidecars
package inbox
