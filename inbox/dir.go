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


package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/origin-steward/steward/core"
)

// defaultDebounce is how long a file must be quiescent before it is read.
// Capture tools write drops incrementally; reading too early sees a
// partial document.
const defaultDebounce = 1 * time.Second

// defaultRewatch is the fixed backoff between attempts to re-establish the
// inbox watch after it is lost (directory removed, remounted, or the
// watcher failing).
const defaultRewatch = 5 * time.Second

// pendingFile tracks a delivered drop until Ack/Fail/Discard settles it.
type pendingFile struct {
	path       string
	receivedAt time.Time
}

// DirSource delivers drops from a watched inbox directory. New .json files
// are debounced, validated, and handed to Poll; schema-invalid files go
// straight to the error directory and never become drops.
type DirSource struct {
	inboxDir   string
	archiveDir string
	errorDir   string
	debounce   time.Duration
	rewatch    time.Duration

	drops  chan *core.Drop
	done   chan struct{}
	logger *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	pending map[core.ID]pendingFile
	timers  map[string]*time.Timer
	closed  bool
}

var _ Source = (*DirSource)(nil)

// DirOption configures a DirSource.
type DirOption func(*DirSource)

// WithDebounce overrides the quiescence window before a file is read.
func WithDebounce(d time.Duration) DirOption {
	return func(s *DirSource) {
		s.debounce = d
	}
}

// WithRewatchInterval overrides the backoff between attempts to restore a
// lost inbox watch.
func WithRewatchInterval(d time.Duration) DirOption {
	return func(s *DirSource) {
		s.rewatch = d
	}
}

// NewDirSource creates a directory source watching inboxDir. The archive
// and error directories are created if missing. Files already present in
// the inbox are picked up on start.
func NewDirSource(inboxDir, archiveDir, errorDir string, opts ...DirOption) (*DirSource, error) {
	for _, dir := range []string{inboxDir, archiveDir, errorDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(inboxDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", inboxDir, err)
	}

	s := &DirSource{
		inboxDir:   inboxDir,
		archiveDir: archiveDir,
		errorDir:   errorDir,
		debounce:   defaultDebounce,
		rewatch:    defaultRewatch,
		watcher:    watcher,
		drops:      make(chan *core.Drop, 64),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "inbox", "dir", inboxDir),
		pending:    make(map[core.ID]pendingFile),
		timers:     make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.watchLoop()
	s.scanExisting()

	return s, nil
}

// scanExisting schedules files already sitting in the inbox at startup.
func (s *DirSource) scanExisting() {
	entries, err := os.ReadDir(s.inboxDir)
	if err != nil {
		s.logger.Error("initial inbox scan failed", "err", err)
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !isDropFile(entry.Name()) {
			continue
		}
		s.scheduleFile(filepath.Join(s.inboxDir, entry.Name()))
	}
}

// watchLoop supervises the fsnotify watch. When the watch dies (the inbox
// directory removed or remounted, the event channels closing) it rebuilds
// the watcher on a fixed backoff and rescans the inbox for files that
// arrived while the watch was down.
func (s *DirSource) watchLoop() {
	for {
		if done := s.consumeEvents(); done {
			return
		}
		if done := s.restoreWatch(); done {
			return
		}
	}
}

// consumeEvents drains watcher events until the source closes (true) or
// the watch is lost (false).
func (s *DirSource) consumeEvents() bool {
	s.mu.Lock()
	watcher := s.watcher
	s.mu.Unlock()

	for {
		select {
		case <-s.done:
			return true
		case event, ok := <-watcher.Events:
			if !ok {
				return false
			}
			if event.Name == s.inboxDir && (event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)) {
				s.logger.Error("inbox directory vanished, rewatching")
				return false
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isDropFile(filepath.Base(event.Name)) {
				continue
			}
			s.scheduleFile(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return false
			}
			s.logger.Error("watcher error", "err", err)
		}
	}
}

// restoreWatch retries on a fixed backoff until a fresh watch on the inbox
// succeeds, then rescans for files missed while it was down. Returns true
// when the source closed before the watch came back.
func (s *DirSource) restoreWatch() bool {
	for {
		select {
		case <-s.done:
			return true
		case <-time.After(s.rewatch):
		}

		watcher, err := fsnotify.NewWatcher()
		if err == nil {
			if err = watcher.Add(s.inboxDir); err != nil {
				watcher.Close()
			}
		}
		if err != nil {
			s.logger.Error("inbox watch unavailable, retrying", "err", err, "backoff", s.rewatch)
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			watcher.Close()
			return true
		}
		old := s.watcher
		s.watcher = watcher
		s.mu.Unlock()
		old.Close()

		s.logger.Info("inbox watch restored")
		s.scanExisting()
		return false
	}
}

// scheduleFile resets the debounce timer for path. The file is read only
// after it has been quiet for the full debounce window.
func (s *DirSource) scheduleFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	if timer, ok := s.timers[path]; ok {
		timer.Reset(s.debounce)
		return
	}
	s.timers[path] = time.AfterFunc(s.debounce, func() {
		s.ingestFile(path)
	})
}

// ingestFile reads, validates, and delivers a quiescent drop file.
func (s *DirSource) ingestFile(path string) {
	s.mu.Lock()
	delete(s.timers, path)
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		s.logger.Error("failed to read drop file", "path", path, "err", err)
		return
	}

	drop, err := core.ParseDropRecord(data, filepath.Base(path))
	if err != nil {
		// Schema-invalid files never become drops
		s.logger.Warn("invalid drop file", "path", path, "err", err)
		if moveErr := s.moveToError(path, err.Error()); moveErr != nil {
			s.logger.Error("failed to quarantine invalid drop", "path", path, "err", moveErr)
		}
		return
	}

	s.mu.Lock()
	if existing, ok := s.pending[drop.Id]; ok && existing.path != path {
		// Same content delivered under two filenames; keep the first
		s.mu.Unlock()
		s.logger.Info("duplicate drop content in inbox, removing", "path", path)
		os.Remove(path)
		return
	}
	s.pending[drop.Id] = pendingFile{path: path, receivedAt: drop.ReceivedAt}
	s.mu.Unlock()

	select {
	case s.drops <- drop:
	case <-s.done:
	}
}

// Poll blocks until at least one drop is ready, then drains everything
// currently queued.
func (s *DirSource) Poll(ctx context.Context) ([]*core.Drop, error) {
	var batch []*core.Drop

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrSourceClosed
	case drop := <-s.drops:
		batch = append(batch, drop)
	}

	for {
		select {
		case drop := <-s.drops:
			batch = append(batch, drop)
		default:
			return batch, nil
		}
	}
}

// Ack archives the processed drop's record as rendered Markdown and
// removes the inbox file.
func (s *DirSource) Ack(ctx context.Context, dropID core.ID, artifact *core.Artifact) error {
	entry, err := s.takePending(dropID)
	if err != nil {
		return err
	}

	if _, err := renderArchive(s.archiveDir, entry.receivedAt, artifact); err != nil {
		return fmt.Errorf("archive drop %s: %w", dropID, err)
	}
	if err := os.Remove(entry.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Fail moves the drop file to the error directory and writes a sidecar
// log with the failure reason.
func (s *DirSource) Fail(ctx context.Context, dropID core.ID, reason string) error {
	entry, err := s.takePending(dropID)
	if err != nil {
		return err
	}
	return s.moveToError(entry.path, reason)
}

// Discard removes the drop file without archiving.
func (s *DirSource) Discard(ctx context.Context, dropID core.ID) error {
	entry, err := s.takePending(dropID)
	if err != nil {
		return err
	}
	if err := os.Remove(entry.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close stops the watcher and delivery.
func (s *DirSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for _, timer := range s.timers {
		timer.Stop()
	}
	watcher := s.watcher
	s.mu.Unlock()

	close(s.done)
	return watcher.Close()
}

func (s *DirSource) takePending(dropID core.ID) (pendingFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.pending[dropID]
	if !ok {
		return pendingFile{}, fmt.Errorf("%w: drop %s", ErrUnknownDrop, dropID)
	}
	delete(s.pending, dropID)
	return entry, nil
}

func (s *DirSource) moveToError(path, reason string) error {
	name := filepath.Base(path)
	dest := filepath.Join(s.errorDir, name)

	if err := os.Rename(path, dest); err != nil {
		return err
	}

	sidecar := dest + ".error.log"
	line := fmt.Sprintf("%s %s\n", time.Now().UTC().Format(time.RFC3339), reason)
	if err := os.WriteFile(sidecar, []byte(line), 0644); err != nil {
		return err
	}
	return nil
}

func isDropFile(name string) bool {
	return strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".")
}
