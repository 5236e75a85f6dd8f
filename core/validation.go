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

import (
	"encoding/json"
	"fmt"
	"time"
)

// DropRecord is the wire format produced by capture surfaces (browser
// extension, mobile shortcut, drop-zone form). One inbox entry holds one
// record, JSON-encoded.
type DropRecord struct {
	Type      string  `json:"type"`
	Payload   string  `json:"payload"`
	Timestamp float64 `json:"timestamp"` // seconds since the Unix epoch
	Note      string  `json:"note,omitempty"`
}

// wireKinds maps accepted "type" values to drop kinds. "tweet" is a legacy
// alias kept for older capture surfaces; it arrives as a URL drop whose
// WireType preserves the hint for classification.
var wireKinds = map[string]DropKind{
	"url":   KindURL,
	"tweet": KindURL,
	"text":  KindText,
	"image": KindImage,
}

// ValidateDropRecord checks a wire record against the drop schema.
//
// Validation rules:
//   - Type must be one of url, tweet, text, image (never coerced)
//   - Payload must not be empty
//   - Timestamp must be present and positive
func ValidateDropRecord(rec *DropRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidDrop)
	}

	if _, ok := wireKinds[rec.Type]; !ok {
		return fmt.Errorf("%w: %w: %q", ErrInvalidDrop, ErrUnknownDropType, rec.Type)
	}

	if rec.Payload == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDrop, ErrEmptyPayload)
	}

	if rec.Timestamp <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDrop, ErrMissingTimestamp)
	}

	return nil
}

// NewDrop normalizes a validated wire record into a Drop. The drop ID is
// derived from the record's type and payload, so re-delivering the same
// capture yields the same ID.
func NewDrop(rec *DropRecord, sourceRef string) *Drop {
	sec := int64(rec.Timestamp)
	nsec := int64((rec.Timestamp - float64(sec)) * float64(time.Second))

	return &Drop{
		Id:         IDFromContent(rec.Type + "\n" + rec.Payload),
		Kind:       wireKinds[rec.Type],
		WireType:   rec.Type,
		Payload:    rec.Payload,
		Note:       rec.Note,
		SourceRef:  sourceRef,
		ReceivedAt: time.Unix(sec, nsec).UTC(),
		Status:     StatusPending,
	}
}

// ParseDropRecord decodes and validates a JSON drop record, returning the
// normalized Drop. sourceRef names the inbox entry the record came from.
func ParseDropRecord(data []byte, sourceRef string) (*Drop, error) {
	var rec DropRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDrop, err)
	}
	if err := ValidateDropRecord(&rec); err != nil {
		return nil, err
	}
	return NewDrop(&rec, sourceRef), nil
}

// ValidateArtifact validates an Artifact according to domain rules.
//
// Validation rules:
//   - Type must be a known ArtifactType
//   - Content must not be empty
//
// NOT validated:
//   - Title, Author, SourceURL (optional by design)
//   - DropId (zero for artifacts created outside the pipeline)
func ValidateArtifact(artifact *Artifact) error {
	if artifact == nil {
		return fmt.Errorf("%w: artifact is nil", ErrInvalidArtifact)
	}

	switch artifact.Type {
	case ArtifactArticle, ArtifactSocialPost, ArtifactNote, ArtifactImageRef:
	default:
		return fmt.Errorf("%w: %w: %q", ErrInvalidArtifact, ErrInvalidArtifactType, artifact.Type)
	}

	if artifact.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidArtifact, ErrEmptyContent)
	}

	return nil
}
