package project

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/internal/errors"
	"github.com/loomkit/loom/internal/livereload"
	"github.com/loomkit/loom/internal/paths"
	"github.com/loomkit/loom/internal/pipeline"
	"github.com/loomkit/loom/internal/resolver"
)

// fakeBuilder records invocations and produces canned outputs without
// touching the filesystem.
type fakeBuilder struct {
	mu        sync.Mutex
	overrides []string
	cssCalls  int
	err       error

	// When set, Build signals started and blocks until a value arrives on
	// release.
	started chan struct{}
	release chan struct{}
}

func (b *fakeBuilder) Build(_ context.Context, _ config.Config, _ paths.Paths, _ *resolver.Registry, override string) (*pipeline.BuildOutput, error) {
	if b.started != nil {
		b.started <- struct{}{}
		<-b.release
	}
	b.mu.Lock()
	b.overrides = append(b.overrides, override)
	err := b.err
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &pipeline.BuildOutput{
		ID:        "test-build",
		Title:     "Test Document",
		Hash:      "hash-" + override,
		StartedAt: time.Now(),
		Duration:  time.Millisecond,
	}, nil
}

func (b *fakeBuilder) UpdateCSS(_ context.Context, _ paths.Paths, _ *resolver.CSSResolver) error {
	b.mu.Lock()
	b.cssCalls++
	b.mu.Unlock()
	return nil
}

func (b *fakeBuilder) builds() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.overrides...)
}

func (b *fakeBuilder) cssUpdates() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cssCalls
}

// fakeTransport records the live-reload conversation.
type fakeTransport struct {
	mu      sync.Mutex
	inits   int
	root    string
	reloads []string
	exits   int
	initErr error
}

func (tr *fakeTransport) Init(opts livereload.Options) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.initErr != nil {
		return tr.initErr
	}
	tr.inits++
	tr.root = opts.Root
	return nil
}

func (tr *fakeTransport) Reload(target, _ string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.reloads = append(tr.reloads, target)
}

func (tr *fakeTransport) Exit() error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.exits++
	return nil
}

func (tr *fakeTransport) reloadTargets() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.reloads...)
}

func newTestInstance(t *testing.T, opts config.Options, b Builder, tr Transport) *Instance {
	t.Helper()
	if opts.InputDir == "" {
		opts.InputDir = t.TempDir()
	}
	inst, err := New(opts, WithBuilder(b), WithTransport(tr))
	require.NoError(t, err)
	t.Cleanup(inst.Close)
	return inst
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestBuild_NotificationOrder(t *testing.T) {
	b := &fakeBuilder{}
	inst := newTestInstance(t, config.Options{}, b, &fakeTransport{})

	var mu sync.Mutex
	var sequence []string
	done := make(chan struct{})
	inst.Subscribe(Listener{
		OnUpdate: func(out *pipeline.BuildOutput) {
			mu.Lock()
			sequence = append(sequence, "update")
			mu.Unlock()
			assert.Equal(t, "Test Document", out.Title)
		},
		OnComplete: func() {
			mu.Lock()
			sequence = append(sequence, "complete")
			mu.Unlock()
			close(done)
		},
		OnError: func(err error) {
			t.Errorf("unexpected error notification: %v", err)
		},
	})

	inst.Build()
	waitFor(t, done, "build completion")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"update", "complete"}, sequence)
	assert.Equal(t, StateIdle, inst.State())
}

func TestBuild_FailureNotifiesErrorAndRecovers(t *testing.T) {
	b := &fakeBuilder{err: errors.PipelineError(assert.AnError, "compile failed")}
	inst := newTestInstance(t, config.Options{}, b, &fakeTransport{})

	// The update/complete prohibition only applies while the builder fails;
	// the recovery build afterwards legitimately emits both.
	var failingPhase atomic.Bool
	failingPhase.Store(true)

	errCh := make(chan error, 1)
	done := make(chan struct{}, 1)
	inst.Subscribe(Listener{
		OnUpdate: func(*pipeline.BuildOutput) {
			if failingPhase.Load() {
				t.Error("unexpected update after failure")
			}
		},
		OnComplete: func() {
			if failingPhase.Load() {
				t.Error("unexpected completion after failure")
				return
			}
			done <- struct{}{}
		},
		OnError: func(err error) { errCh <- err },
	})

	inst.Build()
	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for error notification")
	}

	// Error is not terminal: the instance settles back to idle and accepts
	// another build.
	require.Eventually(t, func() bool { return inst.State() == StateIdle }, 2*time.Second, 10*time.Millisecond)

	b.mu.Lock()
	b.err = nil
	b.mu.Unlock()
	failingPhase.Store(false)
	inst.Build()
	waitFor(t, done, "recovery build")
}

func TestBuild_SupersedingQueue(t *testing.T) {
	b := &fakeBuilder{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
	inst := newTestInstance(t, config.Options{}, b, &fakeTransport{})

	var completions int
	var mu sync.Mutex
	inst.Subscribe(Listener{OnComplete: func() {
		mu.Lock()
		completions++
		mu.Unlock()
	}})

	inst.Build("first")
	waitFor(t, b.started, "first build start")

	// Two requests arrive mid-build; only the latest survives the single
	// pending slot.
	inst.Build("second")
	inst.Build("third")

	b.release <- struct{}{}
	waitFor(t, b.started, "superseding build start")
	b.release <- struct{}{}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return completions == 2
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"first", "third"}, b.builds())
	assert.Equal(t, StateIdle, inst.State())
}

func TestWatch_SessionLifecycle(t *testing.T) {
	b := &fakeBuilder{}
	tr := &fakeTransport{}
	inst := newTestInstance(t, config.Options{Watch: true}, b, tr)

	done := make(chan struct{}, 2)
	inst.Subscribe(Listener{OnComplete: func() { done <- struct{}{} }})

	inst.Build()
	waitFor(t, done, "first watch build")
	assert.Equal(t, StateWatching, inst.State())

	tr.mu.Lock()
	assert.Equal(t, 1, tr.inits)
	assert.Equal(t, inst.Paths().OutputDir, tr.root)
	tr.mu.Unlock()

	// A second build reuses the running session.
	inst.Build()
	waitFor(t, done, "second watch build")
	tr.mu.Lock()
	assert.Equal(t, 1, tr.inits)
	tr.mu.Unlock()

	inst.StopWatching()
	assert.Equal(t, StateIdle, inst.State())
	tr.mu.Lock()
	assert.Equal(t, 1, tr.exits)
	tr.mu.Unlock()
}

func TestWatch_SessionRestartAfterStop(t *testing.T) {
	b := &fakeBuilder{}
	tr := &fakeTransport{}
	inst := newTestInstance(t, config.Options{Watch: true}, b, tr)

	done := make(chan struct{}, 2)
	inst.Subscribe(Listener{OnComplete: func() { done <- struct{}{} }})

	inst.Build()
	waitFor(t, done, "first session build")
	inst.StopWatching()
	tr.mu.Lock()
	assert.Equal(t, 1, tr.exits)
	tr.mu.Unlock()

	// A later build under watch mode starts a fresh session: the transport
	// is initialized again and the state returns to watching.
	inst.Build()
	waitFor(t, done, "second session build")
	assert.Equal(t, StateWatching, inst.State())
	tr.mu.Lock()
	assert.Equal(t, 2, tr.inits)
	tr.mu.Unlock()
}

func TestWatch_TransportFailureFallsBackToIdle(t *testing.T) {
	b := &fakeBuilder{}
	tr := &fakeTransport{initErr: assert.AnError}
	inst := newTestInstance(t, config.Options{Watch: true}, b, tr)

	done := make(chan struct{}, 1)
	inst.Subscribe(Listener{OnComplete: func() { done <- struct{}{} }})
	inst.Build()
	waitFor(t, done, "build completion")

	// No session was established, so the instance must not claim to be
	// watching.
	assert.Equal(t, StateIdle, inst.State())
	assert.Empty(t, tr.reloadTargets())
}

func TestWatch_StylesheetChangeStaysNarrow(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.md"), []byte("# Hi\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "styles.css"), []byte("body{}\n"), 0o644))

	b := &fakeBuilder{}
	tr := &fakeTransport{}
	inst := newTestInstance(t, config.Options{Watch: true, InputDir: dir}, b, tr)

	done := make(chan struct{}, 1)
	inst.Subscribe(Listener{OnComplete: func() { done <- struct{}{} }})
	inst.Build()
	waitFor(t, done, "initial watch build")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "styles.css"), []byte("body{color:red}\n"), 0o644))

	require.Eventually(t, func() bool { return b.cssUpdates() >= 1 }, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		for _, target := range tr.reloadTargets() {
			if target == livereload.TargetCSS {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)

	// The stylesheet edit must not have escalated into a document rebuild.
	assert.Len(t, b.builds(), 1)
}

func TestWatch_StaticChangeTriggersOneRebuild(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.md"), []byte("# Hi\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "static"), 0o755))

	b := &fakeBuilder{}
	tr := &fakeTransport{}
	inst := newTestInstance(t, config.Options{Watch: true, InputDir: dir}, b, tr)

	done := make(chan struct{}, 4)
	inst.Subscribe(Listener{OnComplete: func() { done <- struct{}{} }})
	inst.Build()
	waitFor(t, done, "initial watch build")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "static", "logo.svg"), []byte("<svg/>"), 0o644))

	// Exactly one rebuild: the static watcher reacts, the resolver-directory
	// watcher over the project root must not double it.
	require.Eventually(t, func() bool { return len(b.builds()) == 2 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(700 * time.Millisecond)
	assert.Len(t, b.builds(), 2)
}

func TestStopWatching_SilencesReactions(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.md"), []byte("# Hi\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "styles.css"), []byte("body{}\n"), 0o644))

	b := &fakeBuilder{}
	tr := &fakeTransport{}
	inst := newTestInstance(t, config.Options{Watch: true, InputDir: dir}, b, tr)

	done := make(chan struct{}, 1)
	inst.Subscribe(Listener{OnComplete: func() { done <- struct{}{} }})
	inst.Build()
	waitFor(t, done, "initial watch build")

	inst.StopWatching()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "styles.css"), []byte("body{color:blue}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.md"), []byte("# Changed\n"), 0o644))
	time.Sleep(800 * time.Millisecond)

	assert.Len(t, b.builds(), 1)
	assert.Equal(t, 0, b.cssUpdates())
	assert.Empty(t, tr.reloadTargets())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "building", StateBuilding.String())
	assert.Equal(t, "watching", StateWatching.String())
	assert.Equal(t, "error", StateError.String())
}
