// Package scaffold creates new project directories, either from the built-in
// starter layout or by cloning a template repository.
package scaffold

import (
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"

	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/internal/errors"
)

// Options configures project creation.
type Options struct {
	// Dir is the target project directory. It must not already contain a
	// project manifest.
	Dir string
	// Template is an optional git URL cloned instead of the starter layout.
	Template string
	// Title seeds the starter document heading. Empty means the directory
	// base name.
	Title string
}

const starterDocument = `# %TITLE%

Write your document here. Markdown works as usual, and components are
placed with tags:

[Chart data:population /]

Edit this file with the dev server running (` + "`loom watch`" + `) and the
page reloads as you save.
`

const starterStylesheet = `/* Project styles. Loaded after the layout and theme bases. */
`

const starterManifest = `loom:
  layout: blog
  theme: default
`

const starterComponent = `export default function Chart(props) {
  return null;
}
`

// Create materializes a new project at opts.Dir.
func Create(opts Options) error {
	if opts.Dir == "" {
		return errors.ConfigError("project directory must not be empty")
	}

	manifest := filepath.Join(opts.Dir, config.ManifestName)
	if _, err := os.Stat(manifest); err == nil {
		return errors.ConfigError("directory already contains a project").WithContext("dir", opts.Dir)
	}

	if opts.Template != "" {
		return cloneTemplate(opts.Dir, opts.Template)
	}
	return writeStarter(opts)
}

func cloneTemplate(dir, url string) error {
	_, err := git.PlainClone(dir, false, &git.CloneOptions{
		URL:   url,
		Depth: 1,
	})
	if err != nil {
		return errors.FilesystemError(err, "clone template").WithContext("url", url)
	}
	// The template's history is not the new project's history.
	return os.RemoveAll(filepath.Join(dir, ".git"))
}

func writeStarter(opts Options) error {
	title := opts.Title
	if title == "" {
		title = filepath.Base(opts.Dir)
	}

	dirs := []string{
		opts.Dir,
		filepath.Join(opts.Dir, config.DefaultComponentsDir),
		filepath.Join(opts.Dir, config.DefaultDatasetsDir),
		filepath.Join(opts.Dir, config.DefaultStaticDir),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return errors.FilesystemError(err, "create project directory").WithContext("dir", d)
		}
	}

	doc := strings.ReplaceAll(starterDocument, "%TITLE%", title)
	files := map[string]string{
		filepath.Join(opts.Dir, config.DefaultInputFile):                       doc,
		filepath.Join(opts.Dir, config.DefaultCSSInput):                        starterStylesheet,
		filepath.Join(opts.Dir, config.ManifestName):                           starterManifest,
		filepath.Join(opts.Dir, config.DefaultComponentsDir, "chart.js"):       starterComponent,
		filepath.Join(opts.Dir, config.DefaultDatasetsDir, "population.json"): "[]\n",
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return errors.FilesystemError(err, "write starter file").WithContext("file", path)
		}
	}
	return nil
}
