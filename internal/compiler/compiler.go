// Package compiler turns raw Loom document source into a compiled document:
// rendered HTML, extracted metadata, and the set of component references the
// build pipeline must resolve.
//
// Loom source is CommonMark plus inline component tags of the form
// [Name prop:value /] where Name starts with an uppercase letter. Component
// tags are extracted before the markdown pass and re-inserted as mount
// points the client runtime hydrates.
package compiler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/loomkit/loom/internal/errors"
)

// Document is the compiled form of one input source.
type Document struct {
	Source []byte
	HTML   []byte
	Title  string
	// Components lists referenced component names in order of first use,
	// deduplicated.
	Components []string
	// Hash is a content hash of the compiled HTML, used for reload signals.
	Hash string
}

// Processor is a post-processing capability applied to the compiled document
// in configuration order.
type Processor interface {
	Name() string
	Process(ctx context.Context, doc *Document) error
}

// Options carries compiler configuration forwarded from the project config.
type Options struct {
	PostProcessors []Processor
	// EvalContextPath optionally names a module providing the expression
	// evaluation context. Recorded on the document pipeline side; the
	// compiler itself does not evaluate expressions.
	EvalContextPath string
}

// componentTag matches [Name ... /] and paired [Name]...[/Name] openers.
// Only capitalized names are component references.
var componentTag = regexp.MustCompile(`\[([A-Z][A-Za-z0-9]*)((?:\s+[^\]]*)?)(/)?\]`)

// Compile parses source and renders the compiled document.
func Compile(ctx context.Context, source []byte, opts Options) (*Document, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	body, components := extractComponents(source)

	// Raw HTML must render: the mount divs emitted by extractComponents are
	// compiler-generated, not untrusted input.
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	root := md.Parser().Parse(text.NewReader(body))

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, body, root); err != nil {
		return nil, errors.PipelineError(err, "render document")
	}

	doc := &Document{
		Source:     source,
		HTML:       buf.Bytes(),
		Title:      firstHeading(root, body),
		Components: components,
	}

	sum := sha256.Sum256(doc.HTML)
	doc.Hash = hex.EncodeToString(sum[:8])

	for _, p := range opts.PostProcessors {
		if err := p.Process(ctx, doc); err != nil {
			return nil, errors.PipelineError(err, fmt.Sprintf("post-processor %q", p.Name()))
		}
	}
	return doc, nil
}

// extractComponents replaces component tags with hydration mount points and
// returns the transformed body plus the ordered component name set.
func extractComponents(source []byte) ([]byte, []string) {
	seen := make(map[string]bool)
	var names []string

	body := componentTag.ReplaceAllFunc(source, func(tag []byte) []byte {
		m := componentTag.FindSubmatch(tag)
		name := string(m[1])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		props := strings.TrimSpace(string(m[2]))
		if len(m[3]) > 0 {
			// self-closing tag
			return []byte(fmt.Sprintf(`<div data-loom-component=%q data-loom-props=%q></div>`, name, props))
		}
		return []byte(fmt.Sprintf(`<div data-loom-component=%q data-loom-props=%q>`, name, props))
	})

	// Closing tags: [/Name]
	closer := regexp.MustCompile(`\[/[A-Z][A-Za-z0-9]*\]`)
	body = closer.ReplaceAll(body, []byte("</div>"))
	return body, names
}

// firstHeading walks the AST for the first heading's text, used as the
// document title.
func firstHeading(root gmast.Node, body []byte) string {
	title := ""
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if h, ok := n.(*gmast.Heading); ok {
			var sb strings.Builder
			for c := h.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*gmast.Text); ok {
					sb.Write(t.Segment.Value(body))
				}
			}
			title = sb.String()
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	return title
}
