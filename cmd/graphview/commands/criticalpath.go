package commands

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/innominatus/graphview/graph"
	"github.com/innominatus/graphview/view"
)

// CriticalPathCmd renders the graph with the critical path highlighted.
var CriticalPathCmd = &cobra.Command{
	Use:   "critical-path <app>",
	Short: "Show the graph with the critical path highlighted",
	Long: `Fetch the current graph and the server-computed critical path, and
render the graph with the path nodes highlighted. The path is computed
server-side; this command only overlays it.`,
	Args: cobra.ExactArgs(1),
	RunE: runCriticalPath,
}

func runCriticalPath(cmd *cobra.Command, args []string) error {
	app := args[0]
	c, _, err := buildClient(cmd)
	if err != nil {
		return err
	}

	nodes, edges, err := c.FetchGraph(cmd.Context(), app)
	if err != nil {
		return err
	}
	snap := graph.NewSnapshot(nodes, edges, time.Now())

	ids, err := c.FetchCriticalPath(cmd.Context(), app)
	if err != nil {
		return err
	}

	criticalPath := make(map[string]bool, len(ids))
	for _, id := range ids {
		criticalPath[id] = true
	}

	view.NewRenderer(verbosity(cmd)).Render(app, snap, view.Options{
		CriticalPath: criticalPath,
	})

	if len(ids) == 0 {
		pterm.Info.Println("No critical path reported for this application")
		return nil
	}
	pterm.Printf("\nCritical path (%d nodes):\n", len(ids))
	for i, id := range ids {
		name := id
		if n, ok := snap.NodeByID(id); ok && n.Name != "" {
			name = n.Name
		}
		if i == 0 {
			pterm.Printf("  %s", pterm.Yellow(name))
		} else {
			pterm.Printf(" %s %s", pterm.Gray("→"), pterm.Yellow(name))
		}
	}
	pterm.Println()
	return nil
}
