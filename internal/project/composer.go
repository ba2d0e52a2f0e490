package project

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/loomkit/loom/internal/livereload"
	"github.com/loomkit/loom/internal/resolver"
	"github.com/loomkit/loom/internal/watch"
)

// ensureWatchSession lazily initializes the live-reload transport and
// installs the full watcher set. Runs exactly once per watch session: the
// set is replaced wholesale on the next session, never patched. Returns
// whether a session is active afterwards.
func (i *Instance) ensureWatchSession(reg *resolver.Registry) bool {
	i.mu.Lock()
	if i.watchOn {
		i.mu.Unlock()
		return true
	}
	if i.transport == nil {
		i.transport = livereload.NewServer()
	}
	tr := i.transport
	i.mu.Unlock()

	if err := tr.Init(livereload.Options{
		Root:     i.paths.OutputDir,
		Port:     i.cfg.Port,
		Recorder: i.recorder,
	}); err != nil {
		slog.Error("live reload transport failed to start", "error", err)
		return false
	}

	watchers := i.composeWatchers(reg, tr)

	i.mu.Lock()
	i.watchers = watchers
	i.watchOn = true
	i.mu.Unlock()
	return true
}

// composeWatchers binds each watched path set to its reaction:
//
//	input document        -> full rebuild
//	script output file    -> passive client reload after write quiescence
//	stylesheet input      -> CSS re-assembly + stylesheet-only refresh
//	static source dir     -> full rebuild
//	resolver directories  -> full rebuild
//
// The script output watcher exists because the bundler rewrites that file as
// a result of a build; watching it instead of re-invoking the pipeline
// avoids a feedback loop, and the quiescence window collapses incremental
// writes into one reload.
func (i *Instance) composeWatchers(reg *resolver.Registry, tr Transport) []*watch.Watcher {
	var watchers []*watch.Watcher

	add := func(pathSet []string, opts watch.Options, fn func(watch.Event)) {
		w, err := watch.New(pathSet, opts, fn)
		if err != nil {
			slog.Warn("watcher install failed", "paths", pathSet, "error", err)
			return
		}
		watchers = append(watchers, w)
	}

	rebuild := func(watch.Event) { i.Build() }

	add([]string{i.paths.InputFile}, watch.Options{}, rebuild)

	add([]string{i.paths.JSOutputFile}, watch.Options{Debounce: watch.DefaultQuiescence}, func(watch.Event) {
		i.mu.Lock()
		hash := i.lastHash
		i.mu.Unlock()
		tr.Reload("", hash)
	})

	add([]string{i.paths.CSSInputFile}, watch.Options{}, func(watch.Event) {
		// CSS assembly is cheap and needs no document re-parse, so the
		// reaction stays narrower than a full rebuild.
		css, err := resolver.NewCSSResolver(i.cfg, i.paths)
		if err != nil {
			slog.Warn("css resolver construction failed", "error", err)
			return
		}
		if err := i.builder.UpdateCSS(context.Background(), i.paths, css); err != nil {
			slog.Warn("stylesheet update failed", "error", err)
			return
		}
		tr.Reload(livereload.TargetCSS, "")
	})

	add([]string{i.paths.StaticSourceDir}, watch.Options{Recursive: true}, rebuild)

	// Resolver dependency directories participate in the uniform
	// anything-changed policy. Paths with dedicated watchers (the input
	// document, the stylesheet input, the static tree) are filtered out so
	// one save does not trigger two reactions, and paths inside the output
	// or temp trees are ignored so the pipeline's own writes never feed
	// back into a rebuild.
	for _, dir := range reg.Directories() {
		add([]string{dir}, watch.Options{Recursive: true}, func(ev watch.Event) {
			if ev.Path == i.paths.CSSInputFile || ev.Path == i.paths.InputFile {
				return
			}
			if i.buildOwned(ev.Path) || within(ev.Path, i.paths.StaticSourceDir) {
				return
			}
			i.Build()
		})
	}

	return watchers
}

// buildOwned reports whether path lives in a directory the build itself
// writes to.
func (i *Instance) buildOwned(path string) bool {
	return within(path, i.paths.OutputDir) || within(path, i.paths.TempDir)
}

func within(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}
