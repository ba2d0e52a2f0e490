// Package pipeline drives a full build: compile the document source, resolve
// dependencies through the resolver registry, and write the artifact set
// (script bundle, stylesheet, HTML page, static assets) under the output
// directory. It also provides the narrower CSS-only re-assembly used by the
// watch loop.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/loomkit/loom/internal/compiler"
	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/internal/errors"
	"github.com/loomkit/loom/internal/paths"
	"github.com/loomkit/loom/internal/plugin"
	"github.com/loomkit/loom/internal/resolver"
)

// Pipeline is the default build pipeline implementation.
type Pipeline struct {
	// Plugins is the registry plugin references are resolved against.
	// Defaults to the built-in set.
	Plugins *plugin.Registry
}

// New creates a pipeline backed by the default plugin registry.
func New() *Pipeline {
	return &Pipeline{Plugins: plugin.DefaultRegistry()}
}

// Build runs the full pipeline. sourceOverride, when non-empty, takes
// precedence over the configured input string and the canonical input file.
// Artifacts are written under the output and temp directories.
func (pl *Pipeline) Build(ctx context.Context, cfg config.Config, p paths.Paths, reg *resolver.Registry, sourceOverride string) (*BuildOutput, error) {
	started := time.Now()

	source, err := readSource(cfg, p, sourceOverride)
	if err != nil {
		return nil, err
	}

	// Plugin references resolve non-fatally: failures are logged and the
	// plugin dropped.
	refs := append(append([]string{}, cfg.Transform...), cfg.Compiler.PostProcessors...)
	procs, results := plugin.Load(pl.Plugins, refs)
	if failed := plugin.Failed(results); len(failed) > 0 {
		slog.Warn("some plugins were skipped", "failed", len(failed), "total", len(results))
	}

	doc, err := compiler.Compile(ctx, source, compiler.Options{
		PostProcessors:  procs,
		EvalContextPath: cfg.Compiler.EvalContextPath,
	})
	if err != nil {
		return nil, err
	}

	components := reg.Components.Resolve(doc.Components)
	datasets, err := reg.Data.Load()
	if err != nil {
		return nil, errors.PipelineError(err, "load datasets")
	}

	if err := writeBundle(doc, components, datasets, p.TempDir, p.JSOutputFile, cfg.Minify); err != nil {
		return nil, err
	}
	if err := pl.UpdateCSS(ctx, p, reg.CSS); err != nil {
		return nil, err
	}

	page, err := renderPage(doc, templatePath(cfg, p), cfg.OutputCSS, cfg.OutputJS, cfg.SSREnabled())
	if err != nil {
		return nil, err
	}
	if cfg.Watch {
		page, err = injectScriptTag(page, "/livereload.js")
		if err != nil {
			return nil, err
		}
	}
	if err := os.WriteFile(p.HTMLOutputFile, page, 0o644); err != nil {
		return nil, errors.PipelineError(err, "write page")
	}

	if err := copyStatic(p.StaticSourceDir, p.StaticOutputDir); err != nil {
		return nil, errors.PipelineError(err, "copy static assets")
	}

	keys := make([]string, 0, len(datasets))
	for k := range datasets {
		keys = append(keys, k)
	}

	out := &BuildOutput{
		ID:         uuid.NewString(),
		Title:      doc.Title,
		Hash:       doc.Hash,
		HTMLFile:   p.HTMLOutputFile,
		JSFile:     p.JSOutputFile,
		CSSFile:    p.CSSOutputFile,
		Components: components,
		Datasets:   keys,
		StartedAt:  started,
		Duration:   time.Since(started),
	}
	slog.Debug("build finished",
		"id", out.ID,
		"hash", out.Hash,
		"components", len(components),
		"datasets", len(keys),
		"duration", out.Duration)
	return out, nil
}

// UpdateCSS re-assembles only the stylesheet artifact.
func (pl *Pipeline) UpdateCSS(_ context.Context, p paths.Paths, css *resolver.CSSResolver) error {
	assembled, err := css.Assemble()
	if err != nil {
		return errors.PipelineError(err, "assemble stylesheet")
	}
	if err := os.WriteFile(p.CSSOutputFile, assembled, 0o644); err != nil {
		return errors.PipelineError(err, "write stylesheet")
	}
	return nil
}

// readSource picks the document source: override, then the configured input
// string, then the canonical input file.
func readSource(cfg config.Config, p paths.Paths, override string) ([]byte, error) {
	if override != "" {
		return []byte(override), nil
	}
	if cfg.InputString != "" {
		return []byte(cfg.InputString), nil
	}
	data, err := os.ReadFile(p.InputFile)
	if err != nil {
		return nil, errors.PipelineError(err, "read input document")
	}
	return data, nil
}

func templatePath(cfg config.Config, p paths.Paths) string {
	if cfg.Template == "" {
		return ""
	}
	if filepath.IsAbs(cfg.Template) {
		return cfg.Template
	}
	return filepath.Join(p.InputDir, cfg.Template)
}
