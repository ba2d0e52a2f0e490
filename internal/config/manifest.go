package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/loomkit/loom/internal/errors"
)

// ManifestName is the project manifest file at the project root. Its nested
// `loom` section carries project-level configuration at lower precedence than
// explicit caller options.
const ManifestName = "loom.yaml"

// manifest models the project manifest file. Fields other than the nested
// configuration (name, version) are informational.
type manifest struct {
	Name    string `yaml:"name,omitempty"`
	Version string `yaml:"version,omitempty"`
	Loom    Config `yaml:"loom,omitempty"`
}

// loadManifest reads the manifest at root, returning a zero Config when the
// file does not exist. A malformed manifest is a fatal configuration error.
func loadManifest(root string) (Config, error) {
	path := filepath.Join(root, ManifestName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "read project manifest")
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "parse project manifest").WithContext("path", path)
	}
	return m.Loom, nil
}

// Resolve merges caller options, the project manifest, and defaults into one
// validated Config. The result is fixed for the lifetime of the instance
// constructed from it.
func Resolve(opts Options) (Config, error) {
	root := opts.InputDir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "determine working directory")
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Config{}, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "resolve project root")
	}

	cfg := defaults()
	fromManifest, err := loadManifest(abs)
	if err != nil {
		return Config{}, err
	}
	overlay(&cfg, fromManifest)
	overlay(&cfg, opts)
	cfg.InputDir = abs

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
