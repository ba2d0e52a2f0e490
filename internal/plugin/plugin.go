// Package plugin provides the plugin system for extending a Loom build.
// Plugins are post-processing capabilities referenced by name from the
// project configuration; unresolved references are skipped with a diagnostic
// rather than aborting the pipeline.
package plugin

import (
	"fmt"

	"github.com/loomkit/loom/internal/compiler"
)

// Type identifies the plugin category.
type Type string

const (
	// TypeTransform plugins run against the compiled document before bundling.
	TypeTransform Type = "transform"
	// TypePostProcessor plugins run inside the compiler's post pass.
	TypePostProcessor Type = "postprocessor"
)

// IsValid reports whether the type is a known category.
func (t Type) IsValid() bool {
	return t == TypeTransform || t == TypePostProcessor
}

// Metadata describes a plugin's identity.
type Metadata struct {
	// Name is the unique plugin identifier referenced from configuration.
	Name string
	// Version is the semantic version.
	Version string
	// Type identifies the plugin category.
	Type Type
	// Description provides a human-readable summary.
	Description string
}

// String returns a human-readable representation of the plugin metadata.
func (m Metadata) String() string {
	return fmt.Sprintf("%s@%s (%s)", m.Name, m.Version, m.Type)
}

// Validate checks if the plugin metadata is valid.
func (m Metadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("plugin version is required")
	}
	if !m.Type.IsValid() {
		return fmt.Errorf("invalid plugin type: %s", m.Type)
	}
	return nil
}

// Plugin is a named document post-processing capability.
type Plugin interface {
	compiler.Processor

	// Metadata returns the plugin's identity.
	Metadata() Metadata
}
