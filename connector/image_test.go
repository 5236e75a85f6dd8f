package connector

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/origin-steward/steward/core"
)

// Smallest valid PNG: 1x1 transparent pixel.
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func imageDrop(payload, note string) *core.Drop {
	return &core.Drop{
		Id:         core.IDFromContent("image\n" + payload),
		Kind:       core.KindImage,
		WireType:   "image",
		Payload:    payload,
		Note:       note,
		ReceivedAt: time.Now().UTC(),
		Status:     core.StatusProcessing,
	}
}

func TestImageConnectorExtract(t *testing.T) {
	blobs, err := NewDirBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}

	payload := base64.StdEncoding.EncodeToString(tinyPNG)
	c := NewImageConnector(blobs)
	artifact, err := c.Extract(context.Background(), imageDrop(payload, "whiteboard sketch"))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if artifact.Type != core.ArtifactImageRef {
		t.Fatalf("Expected image-ref, got %s", artifact.Type)
	}
	if artifact.Content != "whiteboard sketch" {
		t.Fatalf("Expected note as content, got %q", artifact.Content)
	}

	path := artifact.Metadata["blob_path"]
	if path == "" {
		t.Fatal("Expected blob_path in metadata")
	}
	stored, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read stored blob: %v", err)
	}
	if len(stored) != len(tinyPNG) {
		t.Fatalf("Stored blob has %d bytes, want %d", len(stored), len(tinyPNG))
	}
	if artifact.Metadata["content_type"] != "image/png" {
		t.Fatalf("Expected image/png, got %s", artifact.Metadata["content_type"])
	}
}

func TestImageConnectorDataURI(t *testing.T) {
	blobs, err := NewDirBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}

	payload := "data:image/png;base64," + base64.StdEncoding.EncodeToString(tinyPNG)
	c := NewImageConnector(blobs)
	artifact, err := c.Extract(context.Background(), imageDrop(payload, ""))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if artifact.Content == "" {
		t.Fatal("Expected non-empty content even without a note")
	}
}

func TestImageConnectorDecodeFailure(t *testing.T) {
	blobs, err := NewDirBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}

	c := NewImageConnector(blobs)
	_, err = c.Extract(context.Background(), imageDrop("!!! not base64 !!!", ""))
	if KindOf(err) != ParseError {
		t.Fatalf("Expected parse_error for bad base64, got %v", err)
	}
}

func TestImageConnectorNonImagePayload(t *testing.T) {
	blobs, err := NewDirBlobStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create blob store: %v", err)
	}

	payload := base64.StdEncoding.EncodeToString([]byte("plain text, not an image"))
	c := NewImageConnector(blobs)
	_, err = c.Extract(context.Background(), imageDrop(payload, ""))
	if KindOf(err) != Unsupported {
		t.Fatalf("Expected unsupported for non-image bytes, got %v", err)
	}
}

// failingBlobStore simulates an unavailable blob backend.
type failingBlobStore struct{}

func (f *failingBlobStore) StoreBlob(ctx context.Context, data []byte, extension string) (string, error) {
	return "", errors.New("disk full")
}

func TestImageConnectorBlobFailureIsPersistence(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString(tinyPNG)
	c := NewImageConnector(&failingBlobStore{})
	_, err := c.Extract(context.Background(), imageDrop(payload, ""))
	if err == nil {
		t.Fatal("Expected error from failing blob store")
	}
	if !IsPersistence(err) {
		t.Fatalf("Expected persistence error, got %v", err)
	}
	if KindOf(err) != "" {
		t.Fatal("Persistence errors must not carry an extraction kind")
	}
}
