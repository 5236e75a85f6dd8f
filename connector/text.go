package connector

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/origin-steward/steward/core"
)

// TextConnector wraps raw text payloads directly into note artifacts.
// It makes no network calls and cannot fail except on encoding errors.
type TextConnector struct{}

var _ Connector = (*TextConnector)(nil)

// NewTextConnector creates a text connector.
func NewTextConnector() *TextConnector {
	return &TextConnector{}
}

// Extract wraps the payload into a note artifact.
func (c *TextConnector) Extract(ctx context.Context, drop *core.Drop) (*core.Artifact, error) {
	if !utf8.ValidString(drop.Payload) {
		return nil, NewExtractionError(ParseError, "text.extract", fmt.Errorf("payload is not valid UTF-8"))
	}

	return &core.Artifact{
		Type:      core.ArtifactNote,
		Content:   drop.Payload,
		CreatedAt: drop.ReceivedAt,
		Tags:      []string{"quick_capture"},
		DropId:    drop.Id,
	}, nil
}
