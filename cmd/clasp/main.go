package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clasp/internal/logging"

	_ "clasp/plugin/annotations"
	_ "clasp/plugin/frames"
	_ "clasp/plugin/marker"
	_ "clasp/plugin/stripdebug"
	_ "clasp/report/kafka"
	_ "clasp/report/stdout"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "clasp",
	Short: "Single-pass class transform engine",
	Long:  "clasp applies an ordered chain of bytecode transform plugins to the\nclasses of a build in one parse/emit pass per class, incrementally.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(pluginsCmd)
	rootCmd.Version = version
}

func main() {
	logging.InitFromEnv()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
