package inbox

import (
	"context"

	"github.com/origin-steward/steward/core"
)

// Source delivers drops from a capture location and records their outcome.
// It decouples the ingestion pipeline from the underlying notification
// mechanism: the production implementation watches a directory, but a
// message queue or poller satisfies the same contract.
type Source interface {
	// Poll blocks until at least one drop is available or ctx is done,
	// then returns all drops currently ready, in arrival order.
	Poll(ctx context.Context) ([]*core.Drop, error)

	// Ack records a successfully processed drop: the source record is
	// archived keyed by capture date, rendered from the artifact.
	Ack(ctx context.Context, dropID core.ID, artifact *core.Artifact) error

	// Fail moves the source record to the error location with the
	// failure reason attached for later inspection.
	Fail(ctx context.Context, dropID core.ID, reason string) error

	// Discard removes the source record without archiving. Used for
	// redelivered content that already reached a terminal state.
	Discard(ctx context.Context, dropID core.ID) error

	// Close stops delivery and releases resources.
	Close() error
}
