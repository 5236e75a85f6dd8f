package connector

import (
	"context"

	"github.com/origin-steward/steward/core"
)

// Connector turns a classified drop into a normalized artifact.
// Implementations must be safe to retry: a failed Extract leaves no
// partial side effects, and must be thread-safe for concurrent use.
type Connector interface {
	// Extract produces an artifact from the drop. Failures are returned
	// as *ExtractionError carrying a FailureKind discriminant, or as
	// *PersistenceError when a collaborator store write failed.
	Extract(ctx context.Context, drop *core.Drop) (*core.Artifact, error)
}
