package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/loomkit/loom/internal/pipeline"
	"github.com/loomkit/loom/internal/project"
)

// WatchCmd starts the development loop: build, serve the output directory,
// and rebuild on changes until interrupted.
type WatchCmd struct {
	BuildCmd

	Port int           `short:"p" help:"Dev server port."`
	Open bool          `help:"Open the served page in a browser."`
	Poll time.Duration `help:"Also rebuild on a fixed interval, for filesystems without change events."`
}

func (c *WatchCmd) Run(g *Globals) error {
	sigctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := c.options(g)
	opts.Watch = true
	opts.Port = c.Port
	opts.Open = c.Open

	inst, err := project.New(opts)
	if err != nil {
		return err
	}
	defer inst.Close()

	first := make(chan struct{}, 1)
	inst.Subscribe(project.Listener{
		OnUpdate: func(out *pipeline.BuildOutput) {
			slog.Info("build finished", "title", out.Title, "hash", out.Hash,
				"duration", out.Duration.Round(durationPrecision))
		},
		OnComplete: func() {
			select {
			case first <- struct{}{}:
			default:
			}
		},
		OnError: func(err error) {
			// Watch mode survives build failures; the next save retries.
			slog.Error("build failed", "error", err)
		},
	})

	inst.Build()

	select {
	case <-first:
	case <-sigctx.Done():
		return nil
	}

	url := fmt.Sprintf("http://localhost:%d", inst.Options().Port)
	slog.Info("watching for changes", "url", url, "dir", inst.Paths().InputDir)
	if c.Open {
		openBrowser(url)
	}

	if c.Poll > 0 {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}
		if _, err := scheduler.NewJob(
			gocron.DurationJob(c.Poll),
			gocron.NewTask(func() { inst.Build() }),
		); err != nil {
			return err
		}
		scheduler.Start()
		defer func() { _ = scheduler.Shutdown() }()
		slog.Info("poll rebuilds enabled", "interval", c.Poll)
	}

	<-sigctx.Done()
	slog.Info("shutting down")
	inst.StopWatching()
	return nil
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		slog.Warn("could not open browser", "url", url, "error", err)
	}
}
