package inbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/origin-steward/steward/core"
)

func newTestSource(t *testing.T) (*DirSource, string, string, string) {
	t.Helper()
	root := t.TempDir()
	inboxDir := filepath.Join(root, "inbox")
	archiveDir := filepath.Join(root, "archive")
	errorDir := filepath.Join(root, "error")

	source, err := NewDirSource(inboxDir, archiveDir, errorDir, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}
	t.Cleanup(func() { source.Close() })

	return source, inboxDir, archiveDir, errorDir
}

func pollOne(t *testing.T, source *DirSource) *core.Drop {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	drops, err := source.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if len(drops) == 0 {
		t.Fatal("Poll returned no drops")
	}
	return drops[0]
}

func TestDirSourceDeliversNewFile(t *testing.T) {
	source, inboxDir, _, _ := newTestSource(t)

	record := `{"type":"text","payload":"hello world","timestamp":1700000000}`
	if err := os.WriteFile(filepath.Join(inboxDir, "drop1.json"), []byte(record), 0644); err != nil {
		t.Fatalf("Failed to write drop file: %v", err)
	}

	drop := pollOne(t, source)
	if drop.Payload != "hello world" {
		t.Fatalf("Unexpected payload: %q", drop.Payload)
	}
	if drop.Kind != core.KindText {
		t.Fatalf("Expected text kind, got %v", drop.Kind)
	}
}

func TestDirSourcePicksUpExistingFiles(t *testing.T) {
	root := t.TempDir()
	inboxDir := filepath.Join(root, "inbox")
	if err := os.MkdirAll(inboxDir, 0755); err != nil {
		t.Fatal(err)
	}

	// File exists before the watcher starts
	record := `{"type":"text","payload":"early bird","timestamp":1700000000}`
	if err := os.WriteFile(filepath.Join(inboxDir, "early.json"), []byte(record), 0644); err != nil {
		t.Fatal(err)
	}

	source, err := NewDirSource(inboxDir, filepath.Join(root, "archive"), filepath.Join(root, "error"),
		WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}
	defer source.Close()

	drop := pollOne(t, source)
	if drop.Payload != "early bird" {
		t.Fatalf("Unexpected payload: %q", drop.Payload)
	}
}

func TestDirSourceDebouncesPartialWrites(t *testing.T) {
	source, inboxDir, _, _ := newTestSource(t)

	path := filepath.Join(inboxDir, "slow.json")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	// Write the record in two chunks with a gap shorter than the debounce
	if _, err := f.WriteString(`{"type":"text","payload":`); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, err := f.WriteString(`"assembled","timestamp":1700000000}`); err != nil {
		t.Fatal(err)
	}
	f.Close()

	drop := pollOne(t, source)
	if drop.Payload != "assembled" {
		t.Fatalf("Expected complete payload, got %q", drop.Payload)
	}
}

func TestDirSourceQuarantinesInvalidFile(t *testing.T) {
	source, inboxDir, _, errorDir := newTestSource(t)
	_ = source

	// Missing payload fails schema validation
	record := `{"type":"text","timestamp":1700000000}`
	if err := os.WriteFile(filepath.Join(inboxDir, "bad.json"), []byte(record), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(filepath.Join(errorDir, "bad.json")); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Invalid file was not moved to error dir")
		}
		time.Sleep(20 * time.Millisecond)
	}

	sidecar, err := os.ReadFile(filepath.Join(errorDir, "bad.json.error.log"))
	if err != nil {
		t.Fatalf("Expected sidecar log: %v", err)
	}
	if len(sidecar) == 0 {
		t.Fatal("Expected non-empty sidecar log")
	}
	if _, err := os.Stat(filepath.Join(inboxDir, "bad.json")); !os.IsNotExist(err) {
		t.Fatal("Invalid file still in inbox")
	}
}

func TestDirSourceAckArchives(t *testing.T) {
	source, inboxDir, archiveDir, _ := newTestSource(t)

	record := `{"type":"text","payload":"note to self","timestamp":1700000000}`
	if err := os.WriteFile(filepath.Join(inboxDir, "note.json"), []byte(record), 0644); err != nil {
		t.Fatal(err)
	}
	drop := pollOne(t, source)

	artifact := &core.Artifact{
		Id:        core.RandomID(),
		Type:      core.ArtifactNote,
		Title:     "Note",
		Content:   "note to self",
		CreatedAt: drop.ReceivedAt,
		Tags:      []string{"quick_capture"},
		DropId:    drop.Id,
	}
	if err := source.Ack(context.Background(), drop.Id, artifact); err != nil {
		t.Fatalf("Ack failed: %v", err)
	}

	// Archive is keyed by capture date
	day := drop.ReceivedAt.UTC().Format("2006-01-02")
	archived, err := os.ReadFile(filepath.Join(archiveDir, day, artifact.Id.String()+".md"))
	if err != nil {
		t.Fatalf("Expected archived markdown: %v", err)
	}
	content := string(archived)
	if !strings.Contains(content, "note to self") {
		t.Fatalf("Expected content in archive, got %q", content)
	}
	if !strings.Contains(content, "tags: quick_capture") {
		t.Fatalf("Expected tags header, got %q", content)
	}

	if _, err := os.Stat(filepath.Join(inboxDir, "note.json")); !os.IsNotExist(err) {
		t.Fatal("Acked file still in inbox")
	}

	// Second settle of the same drop is an error
	if err := source.Ack(context.Background(), drop.Id, artifact); err == nil {
		t.Fatal("Expected error on double Ack")
	}
}

func TestDirSourceFailQuarantines(t *testing.T) {
	source, inboxDir, _, errorDir := newTestSource(t)

	record := `{"type":"url","payload":"https://dead.example.com","timestamp":1700000000}`
	if err := os.WriteFile(filepath.Join(inboxDir, "dead.json"), []byte(record), 0644); err != nil {
		t.Fatal(err)
	}
	drop := pollOne(t, source)

	if err := source.Fail(context.Background(), drop.Id, "network_error: status 404"); err != nil {
		t.Fatalf("Fail failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(errorDir, "dead.json")); err != nil {
		t.Fatalf("Expected file in error dir: %v", err)
	}
	sidecar, err := os.ReadFile(filepath.Join(errorDir, "dead.json.error.log"))
	if err != nil {
		t.Fatalf("Expected sidecar log: %v", err)
	}
	if !strings.Contains(string(sidecar), "network_error") {
		t.Fatalf("Expected reason in sidecar, got %q", sidecar)
	}
}

func TestDirSourceDiscard(t *testing.T) {
	source, inboxDir, _, _ := newTestSource(t)

	record := `{"type":"text","payload":"dup","timestamp":1700000000}`
	if err := os.WriteFile(filepath.Join(inboxDir, "dup.json"), []byte(record), 0644); err != nil {
		t.Fatal(err)
	}
	drop := pollOne(t, source)

	if err := source.Discard(context.Background(), drop.Id); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(inboxDir, "dup.json")); !os.IsNotExist(err) {
		t.Fatal("Discarded file still in inbox")
	}
}

func TestDirSourceRewatchesVanishedInbox(t *testing.T) {
	root := t.TempDir()
	inboxDir := filepath.Join(root, "inbox")

	source, err := NewDirSource(inboxDir, filepath.Join(root, "archive"), filepath.Join(root, "error"),
		WithDebounce(50*time.Millisecond), WithRewatchInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}
	defer source.Close()

	// Inbox disappears out from under the watch, then comes back
	if err := os.RemoveAll(inboxDir); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.MkdirAll(inboxDir, 0755); err != nil {
		t.Fatal(err)
	}

	// Wait until the backoff loop has the restored directory watched,
	// then deliver a drop through it
	deadline := time.Now().Add(5 * time.Second)
	for {
		source.mu.Lock()
		restored := source.watcher.WatchList()
		source.mu.Unlock()
		if len(restored) > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Watch was not restored after the inbox reappeared")
		}
		time.Sleep(20 * time.Millisecond)
	}

	record := `{"type":"text","payload":"after the outage","timestamp":1700000000}`
	if err := os.WriteFile(filepath.Join(inboxDir, "late.json"), []byte(record), 0644); err != nil {
		t.Fatal(err)
	}

	drop := pollOne(t, source)
	if drop.Payload != "after the outage" {
		t.Fatalf("Unexpected payload: %q", drop.Payload)
	}
}
