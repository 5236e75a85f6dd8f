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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidDrop indicates a drop record failed schema validation.
	ErrInvalidDrop = errors.New("invalid drop")

	// ErrUnknownDropType indicates the drop's "type" field is not one of
	// the accepted values. Unknown types are rejected, never coerced.
	ErrUnknownDropType = errors.New("unknown drop type")

	// ErrEmptyPayload indicates the required payload field is missing or empty.
	ErrEmptyPayload = errors.New("payload cannot be empty")

	// ErrMissingTimestamp indicates the required timestamp field is absent.
	ErrMissingTimestamp = errors.New("timestamp is required")

	// ErrInvalidArtifact indicates an Artifact failed validation.
	ErrInvalidArtifact = errors.New("invalid artifact")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidArtifactType indicates an unrecognized ArtifactType value.
	ErrInvalidArtifactType = errors.New("invalid artifact type")
)
