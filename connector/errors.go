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


package connector

import (
	"errors"
	"fmt"
)

// FailureKind discriminates extraction failures. The dispatcher routes on
// the kind, not on the wrapped error.
type FailureKind string

const (
	// NetworkError covers fetch failures, timeouts, and HTTP error statuses.
	NetworkError FailureKind = "network_error"

	// ParseError covers malformed payloads and undecodable content.
	ParseError FailureKind = "parse_error"

	// Unsupported covers payloads no connector can handle.
	Unsupported FailureKind = "unsupported"

	// RateLimited covers upstream throttling.
	RateLimited FailureKind = "rate_limited"
)

// ExtractionError is a connector failure with a discriminant kind.
type ExtractionError struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// NewExtractionError creates an ExtractionError wrapping err.
func NewExtractionError(kind FailureKind, op string, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the failure kind of err, or an empty kind when err is not
// an ExtractionError.
func KindOf(err error) FailureKind {
	var exErr *ExtractionError
	if errors.As(err, &exErr) {
		return exErr.Kind
	}
	return ""
}

// PersistenceError marks a failure writing to a collaborator store (blob
// storage, artifact store). Unlike extraction failures these are retried
// with backoff before the drop is failed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: persistence failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistence reports whether err is a PersistenceError.
func IsPersistence(err error) bool {
	var pErr *PersistenceError
	return errors.As(err, &pErr)
}
