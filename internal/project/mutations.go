package project

import (
	"io"
	"os"
	"path/filepath"

	"github.com/loomkit/loom/internal/errors"
	"github.com/loomkit/loom/internal/resolver"
)

// AddComponent copies the file at src into the project component directory
// under its base name, overwriting any existing file of that name. The copy
// does not trigger a rebuild; in watch mode the directory watcher reacts to
// the write like any other change.
func (i *Instance) AddComponent(src string) error {
	return i.importFile(src, i.paths.ComponentsDir, "component")
}

// AddDataset copies the file at src into the project data directory under
// its base name, overwriting any existing file of that name.
func (i *Instance) AddDataset(src string) error {
	return i.importFile(src, i.paths.DataDir, "dataset")
}

func (i *Instance) importFile(src, destDir, kind string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.FilesystemError(err, "open "+kind+" source").WithContext("src", src)
	}
	defer in.Close()

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return errors.FilesystemError(err, "create "+kind+" directory").WithContext("dir", destDir)
	}

	dest := filepath.Join(destDir, filepath.Base(src))
	out, err := os.Create(dest)
	if err != nil {
		return errors.FilesystemError(err, "create "+kind+" file").WithContext("dest", dest)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.FilesystemError(err, "copy "+kind).WithContext("dest", dest)
	}
	return nil
}

// Components enumerates every resolvable component, one entry per file,
// named by base name with the extension stripped.
func (i *Instance) Components() ([]resolver.Component, error) {
	r, err := resolver.NewComponentResolver(i.cfg, i.paths)
	if err != nil {
		return nil, err
	}
	return r.List(), nil
}

// ComponentsDirectory returns the component dependency directories in
// resolution order, project directory last.
func (i *Instance) ComponentsDirectory() ([]string, error) {
	r, err := resolver.NewComponentResolver(i.cfg, i.paths)
	if err != nil {
		return nil, err
	}
	return r.Directories(), nil
}

// Datasets enumerates the project datasets. A missing data directory is an
// error here, matching the listing resolver's contract.
func (i *Instance) Datasets() ([]resolver.Dataset, error) {
	r, err := resolver.NewDataResolver(i.cfg, i.paths)
	if err != nil {
		return nil, err
	}
	return r.List()
}
