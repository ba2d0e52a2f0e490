package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/internal/project"
	"github.com/loomkit/loom/internal/scaffold"
)

// CreateCmd scaffolds a new project directory.
type CreateCmd struct {
	Dir      string `arg:"" help:"Directory to create the project in."`
	Template string `short:"t" help:"Git URL of a template repository to clone."`
	Title    string `help:"Document title for the starter page."`
}

func (c *CreateCmd) Run(_ *Globals) error {
	dir, err := filepath.Abs(c.Dir)
	if err != nil {
		return err
	}
	if err := scaffold.Create(scaffold.Options{Dir: dir, Template: c.Template, Title: c.Title}); err != nil {
		return err
	}
	fmt.Println("created project at", dir)
	fmt.Println("next: cd", c.Dir, "&& loom watch")
	return nil
}

// ComponentsCmd lists or adds project components.
type ComponentsCmd struct {
	List ComponentsListCmd `cmd:"" default:"1" help:"List resolvable components."`
	Add  ComponentsAddCmd  `cmd:"" help:"Copy a component file into the project."`
}

type ComponentsListCmd struct{}

func (c *ComponentsListCmd) Run(g *Globals) error {
	inst, err := project.New(config.Options{InputDir: g.Dir})
	if err != nil {
		return err
	}
	defer inst.Close()

	components, err := inst.Components()
	if err != nil {
		return err
	}
	if len(components) == 0 {
		fmt.Println("no components found")
		return nil
	}
	for _, comp := range components {
		fmt.Printf("%s\t%s\n", comp.Name, comp.Path)
	}
	return nil
}

type ComponentsAddCmd struct {
	File string `arg:"" help:"Component source file to copy into the project."`
}

func (c *ComponentsAddCmd) Run(g *Globals) error {
	inst, err := project.New(config.Options{InputDir: g.Dir})
	if err != nil {
		return err
	}
	defer inst.Close()

	if err := inst.AddComponent(c.File); err != nil {
		return err
	}
	fmt.Println("added component", filepath.Base(c.File))
	return nil
}

// DatasetsCmd lists or adds project datasets.
type DatasetsCmd struct {
	List DatasetsListCmd `cmd:"" default:"1" help:"List project datasets."`
	Add  DatasetsAddCmd  `cmd:"" help:"Copy a dataset file into the project."`
}

type DatasetsListCmd struct{}

func (c *DatasetsListCmd) Run(g *Globals) error {
	inst, err := project.New(config.Options{InputDir: g.Dir})
	if err != nil {
		return err
	}
	defer inst.Close()

	datasets, err := inst.Datasets()
	if err != nil {
		return err
	}
	if len(datasets) == 0 {
		fmt.Println("no datasets found")
		return nil
	}
	for _, ds := range datasets {
		fmt.Printf("%s\t%s\n", ds.Name, ds.Path)
	}
	return nil
}

type DatasetsAddCmd struct {
	File string `arg:"" help:"Dataset file to copy into the project."`
}

func (c *DatasetsAddCmd) Run(g *Globals) error {
	inst, err := project.New(config.Options{InputDir: g.Dir})
	if err != nil {
		return err
	}
	defer inst.Close()

	if err := inst.AddDataset(c.File); err != nil {
		return err
	}
	fmt.Println("added dataset", filepath.Base(c.File))
	return nil
}

// BuildsCmd prints recent build history records.
type BuildsCmd struct {
	Limit int `short:"n" default:"20" help:"Maximum records to show."`
}

func (c *BuildsCmd) Run(g *Globals) error {
	inst, err := project.New(config.Options{InputDir: g.Dir, History: true})
	if err != nil {
		return err
	}
	defer inst.Close()

	records, err := inst.History(context.Background(), c.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no build history")
		return nil
	}
	for _, rec := range records {
		line := fmt.Sprintf("%s  %-7s  %s", rec.StartedAt.Format("2006-01-02 15:04:05"), rec.Status, rec.Hash)
		if rec.Error != "" {
			line += "  " + rec.Error
		}
		fmt.Println(line)
	}
	return nil
}
