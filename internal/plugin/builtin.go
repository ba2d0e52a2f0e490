package plugin

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/loomkit/loom/internal/compiler"
)

func init() {
	for _, p := range []Plugin{&externalLinks{}, &readingTime{}} {
		if err := globalRegistry.Register(p); err != nil {
			panic(err)
		}
	}
}

// externalLinks rewrites absolute http(s) anchors to open in a new tab.
type externalLinks struct{}

func (*externalLinks) Name() string { return "external-links" }

func (*externalLinks) Metadata() Metadata {
	return Metadata{
		Name:        "external-links",
		Version:     "v1.0.0",
		Type:        TypePostProcessor,
		Description: "adds target=_blank and rel=noopener to external anchors",
	}
}

func (*externalLinks) Process(_ context.Context, doc *compiler.Document) error {
	root, err := html.Parse(bytes.NewReader(doc.HTML))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, a := range n.Attr {
				if a.Key == "href" && (strings.HasPrefix(a.Val, "http://") || strings.HasPrefix(a.Val, "https://")) {
					n.Attr = append(n.Attr,
						html.Attribute{Key: "target", Val: "_blank"},
						html.Attribute{Key: "rel", Val: "noopener"})
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(root)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	doc.HTML = buf.Bytes()
	return nil
}

// readingTime prepends an estimated reading time marker to the document.
type readingTime struct{}

const wordsPerMinute = 200

func (*readingTime) Name() string { return "reading-time" }

func (*readingTime) Metadata() Metadata {
	return Metadata{
		Name:        "reading-time",
		Version:     "v1.0.0",
		Type:        TypePostProcessor,
		Description: "prepends an estimated reading time to the document",
	}
}

func (*readingTime) Process(_ context.Context, doc *compiler.Document) error {
	words := len(strings.Fields(string(doc.Source)))
	minutes := words / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	marker := fmt.Sprintf("<p class=\"loom-reading-time\">%d min read</p>\n", minutes)
	doc.HTML = append([]byte(marker), doc.HTML...)
	return nil
}
