// Package paths derives the fixed set of absolute filesystem locations used
// by a Loom instance. Every directory referenced elsewhere in the build
// orchestration appears here; no other package computes paths independently.
package paths

import (
	"os"
	"path/filepath"

	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/internal/errors"
)

// Paths is a fixed record of absolute directories and files, derived once
// from a resolved Config.
type Paths struct {
	// InputDir is the project root.
	InputDir string

	OutputDir       string // compiled artifact tree
	StaticOutputDir string // static assets under OutputDir
	TempDir         string // scratch space owned by exactly one instance

	ManifestFile string // project manifest (loom.yaml)

	// DefaultComponentDirs lists built-in component directories; may be empty.
	DefaultComponentDirs []string
	// ComponentsDir is the project-local component directory.
	ComponentsDir string

	DataDir string

	// InputFile is the canonical input document.
	InputFile string
	// JSOutputFile is the compiled script bundle written by the bundler.
	JSOutputFile string
	// CSSInputFile is the project stylesheet source.
	CSSInputFile string
	// CSSOutputFile is the assembled stylesheet artifact.
	CSSOutputFile string
	// StaticSourceDir is the project static asset directory.
	StaticSourceDir string

	// HTMLOutputFile is the rendered document page.
	HTMLOutputFile string
	// HistoryFile is the sqlite build history database under TempDir.
	HistoryFile string
}

// Derive maps a resolved Config into absolute paths. It performs no I/O.
func Derive(cfg config.Config) Paths {
	root := cfg.InputDir
	out := filepath.Join(root, cfg.Output)

	p := Paths{
		InputDir:        root,
		OutputDir:       out,
		StaticOutputDir: filepath.Join(out, cfg.Static),
		TempDir:         filepath.Join(root, cfg.Temp),
		ManifestFile:    filepath.Join(root, config.ManifestName),
		ComponentsDir:   filepath.Join(root, cfg.Components),
		DataDir:         filepath.Join(root, cfg.Datasets),
		InputFile:       filepath.Join(root, cfg.InputFile),
		JSOutputFile:    filepath.Join(out, cfg.OutputJS),
		CSSInputFile:    filepath.Join(root, cfg.CSS),
		CSSOutputFile:   filepath.Join(out, cfg.OutputCSS),
		StaticSourceDir: filepath.Join(root, cfg.Static),
		HTMLOutputFile:  filepath.Join(out, "index.html"),
	}
	p.HistoryFile = filepath.Join(p.TempDir, "history.db")

	if cfg.DefaultComponents != "" {
		dc := cfg.DefaultComponents
		if !filepath.IsAbs(dc) {
			dc = filepath.Join(root, dc)
		}
		p.DefaultComponentDirs = []string{dc}
	}
	return p
}

// EnsureDirs creates the output, static-output, and temp directories.
// Idempotent: running against an existing project neither fails nor
// duplicates content.
func (p Paths) EnsureDirs() error {
	for _, dir := range []string{p.OutputDir, p.StaticOutputDir, p.TempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.FilesystemError(err, "create project directory").WithContext("dir", dir)
		}
	}
	return nil
}
