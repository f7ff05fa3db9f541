package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clasp/plugin"
	"clasp/report"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the registered plugins and report sinks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "plugins:")
		for _, n := range plugin.Names() {
			fmt.Fprintf(out, "  %s\n", n)
		}
		fmt.Fprintln(out, "reports:")
		for _, n := range report.Names() {
			fmt.Fprintf(out, "  %s\n", n)
		}
		return nil
	},
}
