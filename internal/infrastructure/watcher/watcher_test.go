package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/whoiskiwi/PatentSearch/pkg/errors"
)

type reloadRecorder struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (r *reloadRecorder) reload(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return r.err
}

func (r *reloadRecorder) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func startWatcher(t *testing.T, dir string, rec *reloadRecorder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := New(dir, 50*time.Millisecond, rec.reload, nil)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	// Let the watch register before files appear.
	time.Sleep(50 * time.Millisecond)
}

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("[]"), 0o644))
}

func TestWatcher_ReloadsLatestDataFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "patents_cleaned_20240101.json")
	rec := &reloadRecorder{}
	startWatcher(t, dir, rec)

	writeFile(t, dir, "patents_cleaned_20240301.json")

	require.Eventually(t, func() bool { return len(rec.calls()) > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, filepath.Join(dir, "patents_cleaned_20240301.json"), rec.calls()[0])
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	rec := &reloadRecorder{}
	startWatcher(t, dir, rec)

	for _, name := range []string{"patents_cleaned_1.json", "patents_cleaned_2.json", "patents_cleaned_3.json"} {
		writeFile(t, dir, name)
	}

	require.Eventually(t, func() bool { return len(rec.calls()) > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	calls := rec.calls()
	assert.Len(t, calls, 1)
	assert.Equal(t, filepath.Join(dir, "patents_cleaned_3.json"), calls[0])
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &reloadRecorder{}
	startWatcher(t, dir, rec)

	writeFile(t, dir, "notes.txt")
	writeFile(t, dir, "patents_raw_2024.json")

	time.Sleep(300 * time.Millisecond)
	assert.Empty(t, rec.calls())
}

func TestWatcher_ReloadFailureKeepsWatching(t *testing.T) {
	dir := t.TempDir()
	rec := &reloadRecorder{err: errors.New("bad corpus")}
	startWatcher(t, dir, rec)

	writeFile(t, dir, "patents_cleaned_a.json")
	require.Eventually(t, func() bool { return len(rec.calls()) == 1 }, 2*time.Second, 10*time.Millisecond)

	writeFile(t, dir, "patents_cleaned_b.json")
	require.Eventually(t, func() bool { return len(rec.calls()) == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "absent"), 0, func(context.Context, string) error { return nil }, nil)
	err := w.Run(context.Background())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeDataFileAbsent))
}

func TestRelevant(t *testing.T) {
	assert.True(t, relevant(fsnotify.Event{Name: "/d/patents_cleaned_1.json", Op: fsnotify.Create}))
	assert.True(t, relevant(fsnotify.Event{Name: "/d/patents_cleaned_1.json", Op: fsnotify.Write}))
	assert.False(t, relevant(fsnotify.Event{Name: "/d/patents_cleaned_1.json", Op: fsnotify.Remove}))
	assert.False(t, relevant(fsnotify.Event{Name: "/d/other.json", Op: fsnotify.Create}))
}
