// Package project implements the build orchestrator: a stateful instance
// that owns configuration and paths, drives the build pipeline through a
// superseding single-slot queue, and composes the watch/live-reload loop in
// development mode. All mutable state in the build core lives here.
package project

import (
	"context"
	"log/slog"
	"sync"

	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/internal/events"
	"github.com/loomkit/loom/internal/history"
	"github.com/loomkit/loom/internal/livereload"
	"github.com/loomkit/loom/internal/metrics"
	"github.com/loomkit/loom/internal/paths"
	"github.com/loomkit/loom/internal/pipeline"
	"github.com/loomkit/loom/internal/resolver"
	"github.com/loomkit/loom/internal/watch"
)

// Builder is the pipeline boundary the instance drives. Implementations are
// opaque, asynchronous from the caller's point of view, and possibly slow.
type Builder interface {
	Build(ctx context.Context, cfg config.Config, p paths.Paths, reg *resolver.Registry, sourceOverride string) (*pipeline.BuildOutput, error)
	UpdateCSS(ctx context.Context, p paths.Paths, css *resolver.CSSResolver) error
}

// Transport is the live-reload boundary: serve the output directory, notify
// clients, tear down.
type Transport interface {
	Init(opts livereload.Options) error
	Reload(target, hash string)
	Exit() error
}

// Instance is the orchestrator. It is the sole owner of the output, static
// output, and temp directories for its lifetime; concurrent instances must
// not share a temp directory.
type Instance struct {
	cfg   config.Config
	paths paths.Paths

	builder   Builder
	transport Transport
	recorder  *metrics.Recorder
	hist      *history.Store
	publisher *events.Publisher

	mu        sync.Mutex
	state     State
	listeners []Listener
	watchers  []*watch.Watcher
	watchOn   bool // transport initialized and watcher set installed
	lastHash  string

	// Single-slot build queue: one in-flight build plus at most one
	// pending, superseding request holding the latest source override.
	buildMu  sync.Mutex
	building bool
	pending  *string
}

// Option adjusts instance construction, mainly for tests.
type Option func(*Instance)

// WithBuilder replaces the default build pipeline.
func WithBuilder(b Builder) Option {
	return func(i *Instance) { i.builder = b }
}

// WithTransport replaces the default live-reload transport.
func WithTransport(tr Transport) Option {
	return func(i *Instance) { i.transport = tr }
}

// New resolves configuration, derives paths, and prepares the project
// directory tree. Configuration failures are fatal here; nothing else
// touches the filesystem until the first build.
func New(opts config.Options, options ...Option) (*Instance, error) {
	cfg, err := config.Resolve(opts)
	if err != nil {
		return nil, err
	}
	p := paths.Derive(cfg)
	if err := p.EnsureDirs(); err != nil {
		return nil, err
	}

	i := &Instance{
		cfg:      cfg,
		paths:    p,
		builder:  pipeline.New(),
		recorder: metrics.NewRecorder(),
		state:    StateIdle,
	}
	for _, opt := range options {
		opt(i)
	}

	if cfg.History {
		store, err := history.Open(p.HistoryFile)
		if err != nil {
			slog.Warn("build history disabled", "error", err)
		} else {
			i.hist = store
		}
	}
	if cfg.Events.URL != "" {
		pub, err := events.NewPublisher(cfg.Events.URL, cfg.Events.Subject)
		if err != nil {
			slog.Warn("build event publishing disabled", "error", err)
		} else {
			i.publisher = pub
		}
	}
	return i, nil
}

// Options returns the resolved configuration.
func (i *Instance) Options() config.Config { return i.cfg }

// Paths returns the derived path set.
func (i *Instance) Paths() paths.Paths { return i.paths }

// State returns the current lifecycle state.
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Build triggers a build and returns the instance for chaining. Completion
// is observed only through notifications. A build arriving while another is
// in flight is coalesced into the single pending slot; only the most recent
// requested snapshot is eventually built, so the output tree always reflects
// exactly one request.
func (i *Instance) Build(sourceOverride ...string) *Instance {
	override := ""
	if len(sourceOverride) > 0 {
		override = sourceOverride[0]
	}

	i.buildMu.Lock()
	if i.building {
		i.pending = &override
		i.buildMu.Unlock()
		return i
	}
	i.building = true
	i.buildMu.Unlock()

	go i.drain(override)
	return i
}

// drain runs builds until the pending slot is empty. A build in flight
// always runs to completion; there is no mid-build cancellation.
func (i *Instance) drain(override string) {
	for {
		i.runOnce(override)

		i.buildMu.Lock()
		if i.pending != nil {
			override = *i.pending
			i.pending = nil
			i.buildMu.Unlock()
			continue
		}
		i.building = false
		i.buildMu.Unlock()
		return
	}
}

func (i *Instance) runOnce(override string) {
	i.setState(StateBuilding)
	ctx := context.Background()

	// The resolver registry is recreated for every build; instances are
	// never reused across builds.
	reg, err := resolver.NewRegistry(i.cfg, i.paths)
	if err != nil {
		i.buildFailed(err)
		return
	}

	out, err := i.builder.Build(ctx, i.cfg, i.paths, reg, override)
	if err != nil {
		i.buildFailed(err)
		return
	}

	i.recorder.BuildSucceeded(out.Duration.Seconds())
	i.record(ctx, out, nil)

	i.mu.Lock()
	i.lastHash = out.Hash
	i.mu.Unlock()

	if i.cfg.Watch && i.ensureWatchSession(reg) {
		i.setState(StateWatching)
	} else {
		i.setState(StateIdle)
	}

	i.emitUpdate(out)
	i.emitComplete()
}

func (i *Instance) buildFailed(err error) {
	i.recorder.BuildFailed()
	i.record(context.Background(), nil, err)
	i.setState(StateError)
	i.emitError(err)
	// Error is never terminal: ready for the next build.
	if i.watchActive() {
		i.setState(StateWatching)
	} else {
		i.setState(StateIdle)
	}
}

func (i *Instance) setState(s State) {
	i.mu.Lock()
	i.state = s
	i.mu.Unlock()
}

func (i *Instance) watchActive() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.watchOn
}

// record persists the outcome to the history store and event publisher.
func (i *Instance) record(ctx context.Context, out *pipeline.BuildOutput, buildErr error) {
	if out != nil {
		if i.hist != nil {
			_ = i.hist.Append(ctx, history.Record{
				ID: out.ID, Status: "success", Hash: out.Hash,
				StartedAt: out.StartedAt, Duration: out.Duration,
			})
		}
		i.publisher.Publish(events.BuildEvent{
			BuildID: out.ID, Status: "success", Hash: out.Hash,
			Title: out.Title, Duration: out.Duration.Milliseconds(),
		})
		return
	}
	if i.hist != nil {
		_ = i.hist.Append(ctx, history.Record{Status: "error", Error: buildErr.Error()})
	}
	i.publisher.Publish(events.BuildEvent{Status: "error", Error: buildErr.Error()})
}

// History returns recent build records, newest first. Returns nil when the
// history store is disabled.
func (i *Instance) History(ctx context.Context, limit int) ([]history.Record, error) {
	if i.hist == nil {
		return nil, nil
	}
	return i.hist.Recent(ctx, limit)
}

// StopWatching closes every active watcher, clears the watcher set, and
// exits the live-reload transport. It does not abort an in-flight build;
// it only prevents future reactions.
func (i *Instance) StopWatching() {
	i.mu.Lock()
	watchers := i.watchers
	i.watchers = nil
	wasOn := i.watchOn
	i.watchOn = false
	i.state = StateIdle
	tr := i.transport
	i.mu.Unlock()

	for _, w := range watchers {
		_ = w.Close()
	}
	if wasOn && tr != nil {
		_ = tr.Exit()
	}
}

// Close stops watching and releases instance resources.
func (i *Instance) Close() {
	i.StopWatching()
	if i.hist != nil {
		_ = i.hist.Close()
	}
	i.publisher.Close()
}
