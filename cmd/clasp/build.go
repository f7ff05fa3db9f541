package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"clasp/internal/engine"
)

var buildFlags struct {
	spec     string
	settings string
	full     bool
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run one build, incrementally when previous state allows it",
	RunE:  runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringVar(&buildFlags.spec, "spec", "build.yml", "Path to the build spec")
	f.StringVar(&buildFlags.settings, "config", "clasp.yml", "Path to engine settings (optional file)")
	f.BoolVar(&buildFlags.full, "full", false, "Ignore previous state and rebuild everything")
}

func runBuild(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := engine.Bootstrap(ctx, engine.Config{
		SpecPath:     buildFlags.spec,
		SettingsPath: buildFlags.settings,
		Full:         buildFlags.full,
	})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	runErr := e.Run(ctx)
	if err := e.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
