package main

import (
	"fmt"
	"time"

	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/internal/pipeline"
	"github.com/loomkit/loom/internal/project"
)

const durationPrecision = time.Millisecond

// BuildCmd runs a single build to completion.
type BuildCmd struct {
	Input    string   `short:"i" help:"Input document, relative to the project directory."`
	Output   string   `short:"o" help:"Output directory name."`
	Minify   bool     `short:"m" help:"Minify the script bundle."`
	NoSSR    bool     `name:"no-ssr" help:"Skip server-side rendering of the document body."`
	Layout   string   `help:"Document layout (blog, centered, none)."`
	Theme    string   `help:"Stylesheet theme (default, github, none)."`
	Template string   `help:"Custom HTML template path."`
	History  bool     `help:"Record this build in the project history database."`
	Plugins  []string `name:"transform" help:"Transform plugin references, applied in order."`
}

func (c *BuildCmd) options(g *Globals) config.Options {
	opts := config.Options{
		InputDir:  g.Dir,
		InputFile: c.Input,
		Output:    c.Output,
		Minify:    c.Minify,
		Layout:    config.Layout(c.Layout),
		Theme:     config.Theme(c.Theme),
		Template:  c.Template,
		History:   c.History,
		Transform: c.Plugins,
	}
	if c.NoSSR {
		off := false
		opts.SSR = &off
	}
	return opts
}

func (c *BuildCmd) Run(g *Globals) error {
	inst, err := project.New(c.options(g))
	if err != nil {
		return err
	}
	defer inst.Close()

	return runToCompletion(inst)
}

// runToCompletion triggers one build and blocks until it settles.
func runToCompletion(inst *project.Instance) error {
	done := make(chan struct{}, 1)
	failed := make(chan error, 1)
	inst.Subscribe(project.Listener{
		OnUpdate: func(out *pipeline.BuildOutput) {
			fmt.Printf("built %q in %s\n", out.Title, out.Duration.Round(durationPrecision))
		},
		OnComplete: func() { done <- struct{}{} },
		OnError:    func(err error) { failed <- err },
	})

	inst.Build()
	select {
	case <-done:
		return nil
	case err := <-failed:
		return err
	}
}
