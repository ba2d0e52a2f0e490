package pipeline

import (
	"time"
)

// BuildOutput is the payload produced by a successful pipeline run. It is
// passed through the update notification unmodified.
type BuildOutput struct {
	// ID uniquely identifies this build.
	ID string `json:"id"`
	// Title is the compiled document title.
	Title string `json:"title"`
	// Hash is the content hash of the compiled document, used as the
	// reload signal discriminator.
	Hash string `json:"hash"`

	// Artifact locations.
	HTMLFile string `json:"html_file"`
	JSFile   string `json:"js_file"`
	CSSFile  string `json:"css_file"`

	// Components maps referenced component names to resolved source paths.
	Components map[string]string `json:"components"`
	// Datasets lists the dataset keys embedded in the bundle.
	Datasets []string `json:"datasets"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}
