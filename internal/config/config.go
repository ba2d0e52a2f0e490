// Package config resolves the immutable project configuration for a Loom
// instance. Caller-supplied options take precedence over the project
// manifest's nested configuration, which takes precedence over fixed
// defaults. Once resolved for an instance, a Config is never re-merged.
package config

import (
	"strings"

	"github.com/loomkit/loom/internal/errors"
)

// Layout is a typed enumeration of supported document layouts.
type Layout string

const (
	LayoutBlog     Layout = "blog"
	LayoutCentered Layout = "centered"
	LayoutNone     Layout = "none"
)

// Theme is a typed enumeration of bundled stylesheet themes.
type Theme string

const (
	ThemeDefault Theme = "default"
	ThemeGithub  Theme = "github"
	ThemeNone    Theme = "none"
)

// CompilerConfig holds options forwarded to the document compiler.
type CompilerConfig struct {
	// PostProcessors is an ordered sequence of post-processing plugin
	// references, resolved relative to the project input directory.
	PostProcessors []string `yaml:"post_processors,omitempty"`
	// EvalContextPath optionally points at a module providing the
	// evaluation context for inline expressions.
	EvalContextPath string `yaml:"eval_context,omitempty"`
}

// EventsConfig configures optional build-event publishing.
type EventsConfig struct {
	URL     string `yaml:"url,omitempty"`     // NATS server URL; empty disables publishing
	Subject string `yaml:"subject,omitempty"` // defaults to "loom.builds"
}

// Config is the immutable configuration record for one instance.
type Config struct {
	// Alias maps component names to replacement source paths.
	Alias map[string]string `yaml:"alias,omitempty"`

	// Watch enables the development watch/live-reload loop.
	Watch bool `yaml:"watch,omitempty"`
	// Open requests opening a browser once the dev server is up.
	Open bool `yaml:"open,omitempty"`

	// Directory names, relative to the project root.
	Datasets   string `yaml:"datasets,omitempty"`
	Components string `yaml:"components,omitempty"`
	Static     string `yaml:"static,omitempty"`

	Minify bool `yaml:"minify,omitempty"`
	// SSR is tri-state so a manifest or caller can explicitly disable it;
	// nil means the default (enabled). Use SSREnabled to read it.
	SSR *bool `yaml:"ssr,omitempty"`

	// DefaultComponents is the source path of the built-in component set.
	DefaultComponents string `yaml:"default_components,omitempty"`

	Layout Layout `yaml:"layout,omitempty"`
	Theme  Theme  `yaml:"theme,omitempty"`

	// Output holds the output directory name plus artifact filenames.
	Output    string `yaml:"output,omitempty"`
	OutputJS  string `yaml:"output_js,omitempty"`
	OutputCSS string `yaml:"output_css,omitempty"`

	Port    int    `yaml:"port,omitempty"`
	Temp    string `yaml:"temp,omitempty"`
	CSS     string `yaml:"css,omitempty"`      // stylesheet input file
	Template string `yaml:"template,omitempty"` // HTML template path

	// Transform holds an ordered sequence of transform plugin references.
	Transform []string `yaml:"transform,omitempty"`

	Compiler CompilerConfig `yaml:"compiler,omitempty"`

	Events  EventsConfig `yaml:"events,omitempty"`
	History bool         `yaml:"history,omitempty"`

	// InputString, when non-empty, overrides InputFile as the document
	// source. InputFile is the canonical input document.
	InputString string `yaml:"-"`
	InputFile   string `yaml:"input,omitempty"`

	// InputDir is the project root; defaults to the working directory.
	InputDir string `yaml:"-"`
}

// Options is the caller-facing construction record: every field optional,
// zero values replaced by manifest values and then defaults.
type Options = Config

// SSREnabled reports whether server-side rendering is on. Defaults to true.
func (c *Config) SSREnabled() bool {
	return c.SSR == nil || *c.SSR
}

// normalizedLayout lowercases and validates the layout identifier.
func normalizedLayout(raw Layout) (Layout, error) {
	s := Layout(strings.ToLower(strings.TrimSpace(string(raw))))
	switch s {
	case "", LayoutBlog, LayoutCentered, LayoutNone:
		return s, nil
	}
	return "", errors.ConfigError("unknown layout: " + string(raw))
}

// normalizedTheme lowercases and validates the theme identifier.
func normalizedTheme(raw Theme) (Theme, error) {
	s := Theme(strings.ToLower(strings.TrimSpace(string(raw))))
	switch s {
	case "", ThemeDefault, ThemeGithub, ThemeNone:
		return s, nil
	}
	return "", errors.ConfigError("unknown theme: " + string(raw))
}

// Validate checks invariants that must hold after the merge. Violations are
// fatal at construction time.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.ConfigError("port out of range").WithContext("port", c.Port)
	}
	if c.Output == "" {
		return errors.ConfigError("output directory must not be empty")
	}
	if c.Temp == "" {
		return errors.ConfigError("temp directory must not be empty")
	}
	if _, err := normalizedLayout(c.Layout); err != nil {
		return err
	}
	if _, err := normalizedTheme(c.Theme); err != nil {
		return err
	}
	return nil
}
