package connector

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/origin-steward/steward/core"
)

// ImageConnector decodes base64 image payloads, persists the bytes to a
// blob store, and creates an artifact referencing the stored path.
type ImageConnector struct {
	blobs  BlobStore
	logger *slog.Logger
}

var _ Connector = (*ImageConnector)(nil)

// NewImageConnector creates an image connector backed by blobs.
func NewImageConnector(blobs BlobStore) *ImageConnector {
	return &ImageConnector{
		blobs:  blobs,
		logger: slog.Default().With("component", "image-connector"),
	}
}

// Extract decodes the payload and produces an image-ref artifact. Decode
// failures are parse errors; blob write failures surface as persistence
// errors so the dispatcher retries them.
func (c *ImageConnector) Extract(ctx context.Context, drop *core.Drop) (*core.Artifact, error) {
	data, err := decodeImagePayload(drop.Payload)
	if err != nil {
		return nil, NewExtractionError(ParseError, "image.decode", err)
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, NewExtractionError(Unsupported, "image.decode", fmt.Errorf("payload is %s, not an image", contentType))
	}

	path, err := c.blobs.StoreBlob(ctx, data, extensionFor(contentType))
	if err != nil {
		return nil, &PersistenceError{Op: "image.store", Err: err}
	}

	content := drop.Note
	if content == "" {
		content = "Image capture " + path
	}

	return &core.Artifact{
		Type:      core.ArtifactImageRef,
		Title:     drop.Note,
		Content:   content,
		CreatedAt: drop.ReceivedAt,
		Tags:      []string{"image"},
		Metadata: map[string]string{
			"blob_path":    path,
			"content_type": contentType,
		},
		DropId: drop.Id,
	}, nil
}

// decodeImagePayload accepts either a bare base64 string or a data URI.
func decodeImagePayload(payload string) ([]byte, error) {
	encoded := strings.TrimSpace(payload)
	if strings.HasPrefix(encoded, "data:") {
		_, after, found := strings.Cut(encoded, ",")
		if !found {
			return nil, fmt.Errorf("malformed data URI")
		}
		encoded = after
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64 decode: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}
	return data, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
