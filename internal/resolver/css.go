package resolver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/internal/paths"
)

// CSSResolver assembles the stylesheet artifact from the layout base, the
// theme, and the project stylesheet. Assembly is cheap and never requires a
// document re-parse, which is why the watch loop gives it a narrower
// reaction than a full rebuild.
type CSSResolver struct {
	layout   config.Layout
	theme    config.Theme
	input    string
	inputDir string
}

// NewCSSResolver constructs the stylesheet resolver.
func NewCSSResolver(cfg config.Config, p paths.Paths) (*CSSResolver, error) {
	return &CSSResolver{
		layout:   cfg.Layout,
		theme:    cfg.Theme,
		input:    p.CSSInputFile,
		inputDir: filepath.Dir(p.CSSInputFile),
	}, nil
}

func (r *CSSResolver) Name() string { return NameCSS }

// Directories returns the directory holding the stylesheet input.
func (r *CSSResolver) Directories() []string {
	return []string{r.inputDir}
}

// Assemble concatenates layout, theme, and project CSS in that order so the
// project stylesheet wins the cascade. A missing project stylesheet is
// treated as empty.
func (r *CSSResolver) Assemble() ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(layoutCSS(r.layout))
	sb.WriteString(themeCSS(r.theme))

	custom, err := os.ReadFile(r.input)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else {
		sb.WriteString("\n/* project */\n")
		sb.Write(custom)
	}
	return []byte(sb.String()), nil
}

func layoutCSS(l config.Layout) string {
	switch l {
	case config.LayoutCentered:
		return "/* layout: centered */\nbody{max-width:42rem;margin:0 auto;padding:0 1rem;}\n"
	case config.LayoutNone:
		return ""
	default: // blog
		return "/* layout: blog */\nbody{max-width:50rem;margin:0 auto;padding:0 1rem;}\narticle{line-height:1.6;}\n"
	}
}

func themeCSS(t config.Theme) string {
	switch t {
	case config.ThemeGithub:
		return "/* theme: github */\nbody{font-family:-apple-system,Segoe UI,Helvetica,Arial,sans-serif;color:#24292f;}\na{color:#0969da;}\n"
	case config.ThemeNone:
		return ""
	default:
		return "/* theme: default */\nbody{font-family:Georgia,serif;color:#222;}\na{color:#1a6baa;}\n"
	}
}
