package resolver

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/internal/paths"
)

// ReservedIndexName is the component base name excluded from listings.
const ReservedIndexName = "index"

// Component is one resolvable component entry. Name is the file base name
// with the extension stripped.
type Component struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// ComponentResolver resolves component references against the default and
// project component directories. Later directories shadow earlier ones, so a
// project component overrides a built-in of the same name.
type ComponentResolver struct {
	dirs  []string
	alias map[string]string
}

// NewComponentResolver enumerates the component dependency directories.
// Construction performs no directory scans; those happen per lookup.
func NewComponentResolver(cfg config.Config, p paths.Paths) (*ComponentResolver, error) {
	dirs := append([]string{}, p.DefaultComponentDirs...)
	dirs = append(dirs, p.ComponentsDir)
	return &ComponentResolver{dirs: dirs, alias: cfg.Alias}, nil
}

func (r *ComponentResolver) Name() string { return NameComponents }

// Directories returns the component dependency directories.
func (r *ComponentResolver) Directories() []string {
	return append([]string(nil), r.dirs...)
}

// List enumerates every component across the dependency directories, one
// entry per file whose base name is not the reserved index name. Missing
// directories are treated as empty, not an error.
func (r *ComponentResolver) List() []Component {
	byName := make(map[string]string)
	var order []string

	for _, dir := range r.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			base := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
			if base == ReservedIndexName {
				continue
			}
			if _, exists := byName[base]; !exists {
				order = append(order, base)
			}
			byName[base] = filepath.Join(dir, e.Name())
		}
	}

	out := make([]Component, 0, len(order))
	for _, name := range order {
		out = append(out, Component{Name: name, Path: byName[name]})
	}
	return out
}

// Resolve maps referenced component names to source paths. Alias overrides
// win; otherwise a reference matches the component whose exported name
// (ComponentName of its base name) equals the reference. Unmatched
// references are omitted.
func (r *ComponentResolver) Resolve(names []string) map[string]string {
	available := make(map[string]string)
	for _, c := range r.List() {
		available[ComponentName(c.Name)] = c.Path
	}

	resolved := make(map[string]string, len(names))
	for _, name := range names {
		if target, ok := r.alias[name]; ok {
			resolved[name] = target
			continue
		}
		if path, ok := available[name]; ok {
			resolved[name] = path
		}
	}
	return resolved
}

var titleCaser = cases.Title(language.English)

// ComponentName derives the exported component name from a file base name:
// "my-chart" and "my_chart" both become "MyChart".
func ComponentName(base string) string {
	parts := strings.FieldsFunc(base, func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '.'
	})
	var sb strings.Builder
	for _, part := range parts {
		sb.WriteString(titleCaser.String(strings.ToLower(part)))
	}
	return sb.String()
}
