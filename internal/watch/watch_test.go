package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, ch <-chan Event, d time.Duration) (Event, bool) {
	t.Helper()
	select {
	case ev := <-ch:
		return ev, true
	case <-time.After(d):
		return Event{}, false
	}
}

func TestWatcher_FileChangeFiresOnce(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "index.md")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))

	events := make(chan Event, 4)
	w, err := New([]string{file}, Options{Debounce: 50 * time.Millisecond}, func(ev Event) {
		events <- ev
	})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	require.NoError(t, os.WriteFile(file, []byte("b"), 0o644))

	ev, ok := waitFor(t, events, 2*time.Second)
	require.True(t, ok, "expected a change event")
	assert.Equal(t, file, ev.Path)
}

func TestWatcher_SiblingFileFilteredOut(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "index.md")
	sibling := filepath.Join(dir, "other.md")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))

	events := make(chan Event, 4)
	w, err := New([]string{file}, Options{Debounce: 50 * time.Millisecond}, func(ev Event) {
		events <- ev
	})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	require.NoError(t, os.WriteFile(sibling, []byte("x"), 0o644))

	_, ok := waitFor(t, events, 300*time.Millisecond)
	assert.False(t, ok, "sibling change should be filtered")
}

func TestWatcher_DebounceCoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "bundle.js")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))

	var fired int32
	w, err := New([]string{file}, Options{Debounce: 150 * time.Millisecond}, func(Event) {
		atomic.AddInt32(&fired, 1)
	})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	// Burst of writes inside the quiescence window.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(file, []byte{byte(i)}, 0o644))
		time.Sleep(20 * time.Millisecond)
	}

	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired), "burst should coalesce into one callback")
}

func TestWatcher_DirectoryRecursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	events := make(chan Event, 4)
	w, err := New([]string{dir}, Options{Debounce: 50 * time.Millisecond, Recursive: true}, func(ev Event) {
		events <- ev
	})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	require.NoError(t, os.WriteFile(filepath.Join(sub, "a.txt"), []byte("x"), 0o644))

	_, ok := waitFor(t, events, 2*time.Second)
	assert.True(t, ok, "nested change should be observed")
}

func TestWatcher_LateCreatedDirectoryObserved(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "data")

	events := make(chan Event, 4)
	w, err := New([]string{missing}, Options{Debounce: 50 * time.Millisecond}, func(ev Event) {
		events <- ev
	})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	require.NoError(t, os.MkdirAll(missing, 0o755))
	_, ok := waitFor(t, events, 2*time.Second)
	require.True(t, ok, "directory creation should be observed")

	// Changes inside the now-existing directory must also be observed.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(missing, "temps.json"), []byte("[1]"), 0o644))

	ev, ok := waitFor(t, events, 2*time.Second)
	require.True(t, ok, "file inside late-created directory should be observed")
	assert.Equal(t, filepath.Join(missing, "temps.json"), ev.Path)
}

func TestWatcher_CloseStopsCallbacks(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "index.md")
	require.NoError(t, os.WriteFile(file, []byte("a"), 0o644))

	var fired int32
	w, err := New([]string{file}, Options{Debounce: 50 * time.Millisecond}, func(Event) {
		atomic.AddInt32(&fired, 1)
	})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, os.WriteFile(file, []byte("b"), 0o644))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))

	require.NoError(t, w.Close(), "close is idempotent")
}

func TestWatcher_HiddenFilesIgnored(t *testing.T) {
	dir := t.TempDir()

	events := make(chan Event, 4)
	w, err := New([]string{dir}, Options{Debounce: 50 * time.Millisecond}, func(ev Event) {
		events <- ev
	})
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.swp"), []byte("x"), 0o644))

	_, ok := waitFor(t, events, 300*time.Millisecond)
	assert.False(t, ok, "hidden/swap files should not trigger")
}
