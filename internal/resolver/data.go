package resolver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/internal/errors"
	"github.com/loomkit/loom/internal/paths"
)

// Dataset is one dataset listing entry.
type Dataset struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Extension string `json:"extension"`
}

// DataResolver resolves datasets from the project data directory.
type DataResolver struct {
	dir string
}

// NewDataResolver constructs the data resolver.
func NewDataResolver(_ config.Config, p paths.Paths) (*DataResolver, error) {
	return &DataResolver{dir: p.DataDir}, nil
}

func (r *DataResolver) Name() string { return NameData }

// Directories returns the data dependency directory.
func (r *DataResolver) Directories() []string {
	return []string{r.dir}
}

// List enumerates the data directory. Unlike the component listing, a
// missing data directory is a hard failure. The asymmetry is deliberate and
// documented in DESIGN.md.
func (r *DataResolver) List() ([]Dataset, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, errors.FilesystemError(err, "read data directory").WithContext("dir", r.dir)
	}

	out := make([]Dataset, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, Dataset{
			Name:      e.Name(),
			Path:      filepath.Join(r.dir, e.Name()),
			Extension: filepath.Ext(e.Name()),
		})
	}
	return out, nil
}

// Load reads every dataset's raw contents keyed by base name (extension
// stripped), for injection into the script bundle. A missing data directory
// yields an empty map here: a project without data is a valid build input.
func (r *DataResolver) Load() (map[string][]byte, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]byte{}, nil
		}
		return nil, errors.FilesystemError(err, "read data directory").WithContext("dir", r.dir)
	}

	data := make(map[string][]byte, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(r.dir, e.Name()))
		if err != nil {
			return nil, errors.FilesystemError(err, "read dataset").WithContext("file", e.Name())
		}
		key := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		data[key] = raw
	}
	return data, nil
}
