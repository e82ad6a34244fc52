package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/innominatus/graphview/cmd/graphview/commands"
	"github.com/innominatus/graphview/logger"
)

var rootCmd = &cobra.Command{
	Use:   "graphview",
	Short: "Terminal viewer for innominatus dependency graphs",
	Long: `graphview renders the dependency graph of an innominatus application
in the terminal: specs, workflows, steps, resources, and providers, laid
out by dependency layer and kept current over the platform's update stream.

Available commands:
  watch          - Follow an application's graph live
  show           - Render the current graph once
  critical-path  - Show the graph with the critical path highlighted
  export         - Render the graph to json, dot, mermaid, svg, or png
  history        - Show recorded graph generations
  version        - Show version information

Examples:
  graphview watch demo                   # Live view of app "demo"
  graphview show demo --search postgres  # One-shot, filtered
  graphview export demo --format dot     # Graphviz export to stdout
  graphview history demo --limit 10      # Recent generations`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.InitializeWithLevel(false, logger.VerbosityToLevel(verbosity)); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().String("config", "", "Config file path (overrides the search path)")
	rootCmd.PersistentFlags().String("server", "", "Platform API base URL (overrides config)")
	rootCmd.PersistentFlags().String("token", "", "API token (overrides config)")

	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.ShowCmd)
	rootCmd.AddCommand(commands.CriticalPathCmd)
	rootCmd.AddCommand(commands.ExportCmd)
	rootCmd.AddCommand(commands.HistoryCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
