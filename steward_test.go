package steward

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origin-steward/steward/ai/mock"
	"github.com/origin-steward/steward/inbox"
)

func newTestSteward(t *testing.T) *Steward {
	t.Helper()

	s, err := NewSteward(
		filepath.Join(t.TempDir(), "db"),
		filepath.Join(t.TempDir(), "blobs"),
		WithInMemoryStore(),
		WithProvider(mock.NewMockProvider()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSteward(t *testing.T) {
	t.Run("create with mock provider", func(t *testing.T) {
		s := newTestSteward(t)

		assert.NotNil(t, s.DropRepository())
		assert.NotNil(t, s.ArtifactRepository())
		assert.NotNil(t, s.EmbeddingRepository())
		assert.NotNil(t, s.Provider())
		assert.NotNil(t, s.backend)
	})

	t.Run("error with invalid blob dir", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("x"), 0644))

		s, err := NewSteward(filepath.Join(t.TempDir(), "db"), tmpFile,
			WithInMemoryStore(), WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, s)
	})
}

func TestSteward_FactoryMethods(t *testing.T) {
	s := newTestSteward(t)

	t.Run("connector table covers every classified type", func(t *testing.T) {
		connectors := s.Connectors(30 * time.Second)
		assert.Len(t, connectors, 4)
	})

	t.Run("can create searcher", func(t *testing.T) {
		searcher, err := s.NewSearcher()
		require.NoError(t, err)
		require.NotNil(t, searcher)
	})

	t.Run("can create reembedder", func(t *testing.T) {
		reembedder := s.NewReembedder(nil, os.Stderr)
		require.NotNil(t, reembedder)
	})
}

func TestSteward_EndToEndIngestion(t *testing.T) {
	s := newTestSteward(t)

	base := t.TempDir()
	inboxDir := filepath.Join(base, "inbox")
	archiveDir := filepath.Join(base, "archive")
	errorDir := filepath.Join(base, "errors")

	source, err := inbox.NewDirSource(inboxDir, archiveDir, errorDir,
		inbox.WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	dispatcher, err := s.NewDispatcher(source, 5*time.Second)
	require.NoError(t, err)
	defer dispatcher.Release()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dispatcher.Run(ctx) }()

	record, err := json.Marshal(map[string]any{
		"type":      "text",
		"payload":   "a captured thought",
		"timestamp": time.Now().Unix(),
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(inboxDir, "drop-1.json"), record, 0o644))

	require.Eventually(t, func() bool {
		artifacts, err := s.ArtifactRepository().ListRecentArtifacts(context.Background(), 10)
		return err == nil && len(artifacts) == 1
	}, 5*time.Second, 25*time.Millisecond, "drop should flow through to an artifact")

	artifacts, err := s.ArtifactRepository().ListRecentArtifacts(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "a captured thought", artifacts[0].Content)

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, source.Close())
}
