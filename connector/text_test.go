package connector

import (
	"context"
	"testing"
	"time"

	"github.com/origin-steward/steward/core"
)

func TestTextConnectorExtract(t *testing.T) {
	drop := &core.Drop{
		Id:         core.IDFromContent("text\nhello world"),
		Kind:       core.KindText,
		WireType:   "text",
		Payload:    "hello world",
		ReceivedAt: time.Now().UTC(),
		Status:     core.StatusProcessing,
	}

	c := NewTextConnector()
	artifact, err := c.Extract(context.Background(), drop)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	if artifact.Type != core.ArtifactNote {
		t.Fatalf("Expected note, got %s", artifact.Type)
	}
	if artifact.Content != "hello world" {
		t.Fatalf("Expected payload as content, got %q", artifact.Content)
	}
	if !artifact.HasTag("quick_capture") {
		t.Fatalf("Expected quick_capture tag, got %v", artifact.Tags)
	}
	if artifact.DropId != drop.Id {
		t.Fatal("Expected artifact linked to drop")
	}
}

func TestTextConnectorRejectsInvalidEncoding(t *testing.T) {
	drop := &core.Drop{
		Id:         core.RandomID(),
		Kind:       core.KindText,
		Payload:    string([]byte{0xff, 0xfe, 0xfd}),
		ReceivedAt: time.Now().UTC(),
	}

	c := NewTextConnector()
	_, err := c.Extract(context.Background(), drop)
	if KindOf(err) != ParseError {
		t.Fatalf("Expected parse_error for invalid UTF-8, got %v", err)
	}
}
