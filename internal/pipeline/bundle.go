package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/loomkit/loom/internal/compiler"
	"github.com/loomkit/loom/internal/errors"
)

// bundlePayload is the data embedded in the script bundle for the client
// runtime to hydrate.
type bundlePayload struct {
	Title      string            `json:"title"`
	Hash       string            `json:"hash"`
	Components map[string]string `json:"components"`
	Datasets   map[string]json.RawMessage `json:"datasets"`
}

// clientRuntime is the bootstrap executed in the browser. The rendering
// library proper is an external collaborator; this stub mounts it against
// the hydration points the compiler emitted.
const clientRuntime = `(function () {
  var payload = window.__LOOM__ = %s;
  function mount() {
    var nodes = document.querySelectorAll('[data-loom-component]');
    for (var i = 0; i < nodes.length; i++) {
      var name = nodes[i].getAttribute('data-loom-component');
      if (window.LoomRuntime && window.LoomRuntime.mount) {
        window.LoomRuntime.mount(nodes[i], name, payload);
      }
    }
  }
  if (document.readyState === 'loading') {
    document.addEventListener('DOMContentLoaded', mount);
  } else {
    mount();
  }
})();
`

// writeBundle assembles the script bundle and writes it atomically: staged
// under tempDir first, then renamed into place so watchers of the output
// file see a single write.
func writeBundle(doc *compiler.Document, components map[string]string, datasets map[string][]byte, tempDir, outFile string, minify bool) error {
	raw := make(map[string]json.RawMessage, len(datasets))
	for k, v := range datasets {
		if json.Valid(v) {
			raw[k] = json.RawMessage(v)
		} else {
			quoted, err := json.Marshal(string(v))
			if err != nil {
				return errors.PipelineError(err, "encode dataset "+k)
			}
			raw[k] = quoted
		}
	}

	payload, err := json.Marshal(bundlePayload{
		Title:      doc.Title,
		Hash:       doc.Hash,
		Components: components,
		Datasets:   raw,
	})
	if err != nil {
		return errors.PipelineError(err, "encode bundle payload")
	}

	js := fmt.Sprintf(clientRuntime, payload)
	if minify {
		js = minifyJS(js)
	}

	staged := filepath.Join(tempDir, filepath.Base(outFile)+".tmp")
	if err := os.WriteFile(staged, []byte(js), 0o644); err != nil {
		return errors.PipelineError(err, "stage script bundle")
	}
	if err := os.Rename(staged, outFile); err != nil {
		// Rename across filesystems can fail; fall back to copy.
		if copyErr := copyFile(staged, outFile); copyErr != nil {
			return errors.PipelineError(err, "publish script bundle")
		}
		_ = os.Remove(staged)
	}
	return nil
}

var jsWhitespace = regexp.MustCompile(`\n\s*`)

// minifyJS collapses insignificant leading whitespace. A real minifier is
// the bundler's concern; this keeps the artifact small without one.
func minifyJS(js string) string {
	return strings.TrimSpace(jsWhitespace.ReplaceAllString(js, "\n"))
}

// pageTemplate is the default HTML shell when no template path is configured.
const pageTemplate = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
<link rel="stylesheet" href="%s">
</head>
<body>
<article>
%s</article>
<script src="%s"></script>
</body>
</html>
`

// renderPage produces the HTML artifact. When templatePath is set its
// contents are used with {{title}}, {{content}}, {{css}}, and {{js}}
// placeholders; otherwise the built-in shell applies. body is omitted when
// server-side rendering is disabled.
func renderPage(doc *compiler.Document, templatePath, cssHref, jsHref string, ssr bool) ([]byte, error) {
	body := ""
	if ssr {
		body = string(doc.HTML)
	}

	if templatePath != "" {
		tpl, err := os.ReadFile(templatePath)
		if err != nil {
			return nil, errors.PipelineError(err, "read template")
		}
		out := string(tpl)
		out = strings.ReplaceAll(out, "{{title}}", doc.Title)
		out = strings.ReplaceAll(out, "{{content}}", body)
		out = strings.ReplaceAll(out, "{{css}}", cssHref)
		out = strings.ReplaceAll(out, "{{js}}", jsHref)
		return []byte(out), nil
	}
	return []byte(fmt.Sprintf(pageTemplate, doc.Title, cssHref, body, jsHref)), nil
}

// injectScriptTag appends a script element with the given src to the page
// body. Used in development mode to wire the live-reload client.
func injectScriptTag(page []byte, src string) ([]byte, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, errors.PipelineError(err, "parse page for script injection")
	}

	var body *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			find(c)
		}
	}
	find(root)
	if body == nil {
		return page, nil
	}

	body.AppendChild(&html.Node{
		Type: html.ElementNode,
		Data: "script",
		Attr: []html.Attribute{{Key: "src", Val: src}},
	})

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return nil, errors.PipelineError(err, "render injected page")
	}
	return buf.Bytes(), nil
}

// copyStatic mirrors the static source directory into the static output
// directory. A missing source directory is not an error.
func copyStatic(srcDir, dstDir string) error {
	info, err := os.Stat(srcDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.PipelineError(err, "stat static directory")
	}
	if !info.IsDir() {
		return nil
	}

	return filepath.WalkDir(srcDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dstDir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
