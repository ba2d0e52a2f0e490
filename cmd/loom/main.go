package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// Globals are flags shared by every command.
type Globals struct {
	Dir     string `short:"C" default:"." help:"Project directory."`
	Verbose bool   `short:"v" help:"Enable verbose logging."`
}

var cli struct {
	Globals

	Build      BuildCmd      `cmd:"" help:"Compile the document once and exit."`
	Watch      WatchCmd      `cmd:"" help:"Build, serve, and rebuild on changes."`
	Create     CreateCmd     `cmd:"" help:"Create a new project directory."`
	Components ComponentsCmd `cmd:"" help:"List or add project components."`
	Datasets   DatasetsCmd   `cmd:"" help:"List or add project datasets."`
	Builds     BuildsCmd     `cmd:"" help:"Show recent build history."`
}

func main() {
	// A project .env can hold event-broker URLs and similar settings.
	_ = godotenv.Load()

	ctx := kong.Parse(&cli,
		kong.Name("loom"),
		kong.Description("Compile interactive markdown documents."),
		kong.UsageOnError(),
	)

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := ctx.Run(&cli.Globals); err != nil {
		slog.Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
