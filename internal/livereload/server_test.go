package livereload

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/internal/metrics"
)

func TestServer_ServesOutputDirAndScript(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<h1>hi</h1>"), 0o644))

	s := NewServer()
	require.NoError(t, s.Init(Options{Root: root, Port: 0, Recorder: metrics.NewRecorder()}))
	defer func() { _ = s.Exit() }()

	base := fmt.Sprintf("http://localhost:%d", s.Port())

	resp, err := http.Get(base + "/index.html")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "hi")

	resp, err = http.Get(base + "/livereload.js")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "EventSource")

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ExitIdempotent(t *testing.T) {
	s := NewServer()
	require.NoError(t, s.Init(Options{Root: t.TempDir(), Port: 0}))
	require.NoError(t, s.Exit())
	require.NoError(t, s.Exit())
	// Reload after exit is a no-op, not a panic.
	s.Reload("", "x")
}

func TestServer_ReinitAfterExit(t *testing.T) {
	s := NewServer()
	require.NoError(t, s.Init(Options{Root: t.TempDir(), Port: 0}))
	require.NoError(t, s.Exit())

	// Exit returns the server to its uninitialized state; a new watch
	// session can start it again.
	require.NoError(t, s.Init(Options{Root: t.TempDir(), Port: 0}))
	defer func() { _ = s.Exit() }()

	resp, err := http.Get(fmt.Sprintf("http://localhost:%d/livereload.js", s.Port()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_DoubleInitFails(t *testing.T) {
	s := NewServer()
	require.NoError(t, s.Init(Options{Root: t.TempDir(), Port: 0}))
	defer func() { _ = s.Exit() }()
	assert.Error(t, s.Init(Options{Root: t.TempDir(), Port: 0}))
}
