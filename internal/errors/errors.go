// Package errors provides a lightweight structured error type (LoomError)
// for category-based classification across the build pipeline, watch loop,
// and CLI surfaces.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a Loom error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Build and processing errors
	CategoryPipeline   ErrorCategory = "pipeline"
	CategoryPlugin     ErrorCategory = "plugin"
	CategoryFileSystem ErrorCategory = "filesystem"

	// Runtime and infrastructure errors
	CategoryWatch    ErrorCategory = "watch"
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// LoomError is a structured error with category, retryability, and context
type LoomError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for LoomError
type ContextFields map[string]any

// Error implements the error interface
func (e *LoomError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *LoomError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *LoomError) WithContext(key string, value any) *LoomError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new LoomError
func New(category ErrorCategory, severity ErrorSeverity, message string) *LoomError {
	return &LoomError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: false,
	}
}

// Wrap creates a new LoomError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *LoomError {
	return &LoomError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if le, ok := err.(*LoomError); ok {
		return le.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a LoomError
func GetCategory(err error) ErrorCategory {
	if le, ok := err.(*LoomError); ok {
		return le.Category
	}
	return CategoryInternal
}

// ConfigError creates a fatal configuration error raised at construction time.
func ConfigError(message string) *LoomError {
	return &LoomError{
		Category: CategoryConfig,
		Severity: SeverityFatal,
		Message:  message,
	}
}

// PipelineError wraps a build-stage failure (parse, resolve, bundle). These
// are recoverable at the instance level and routed through notifications.
func PipelineError(err error, message string) *LoomError {
	return &LoomError{
		Category: CategoryPipeline,
		Severity: SeverityError,
		Message:  message,
		Cause:    err,
	}
}

// PluginLoadError marks a plugin module that could not be resolved. Non-fatal:
// the plugin is skipped and a diagnostic logged.
func PluginLoadError(err error, name string) *LoomError {
	return &LoomError{
		Category: CategoryPlugin,
		Severity: SeverityWarning,
		Message:  fmt.Sprintf("plugin %q could not be loaded", name),
		Cause:    err,
	}
}

// FilesystemError wraps a filesystem failure surfaced synchronously to the
// caller (missing source file, missing data directory).
func FilesystemError(err error, message string) *LoomError {
	return &LoomError{
		Category: CategoryFileSystem,
		Severity: SeverityError,
		Message:  message,
		Cause:    err,
	}
}
