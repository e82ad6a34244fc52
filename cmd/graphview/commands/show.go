package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/innominatus/graphview/graph"
	"github.com/innominatus/graphview/view"
)

// ShowCmd renders the current graph once.
var ShowCmd = &cobra.Command{
	Use:   "show <app>",
	Short: "Render an application's dependency graph once",
	Long: `Fetch the current graph snapshot and render it, without opening the
update stream. Facet flags and --search narrow the visible nodes; hiding
a node hides its edges.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var (
	showSearch       string
	showHideTypes    []string
	showHideStatuses []string
	showHideProvider []string
)

func init() {
	ShowCmd.Flags().StringVar(&showSearch, "search", "", "Show only nodes whose name contains this text")
	ShowCmd.Flags().StringSliceVar(&showHideTypes, "hide-type", nil, "Hide nodes of this type (spec, workflow, step, resource, provider)")
	ShowCmd.Flags().StringSliceVar(&showHideStatuses, "hide-status", nil, "Hide nodes with this status")
	ShowCmd.Flags().StringSliceVar(&showHideProvider, "hide-provider", nil, "Hide resources from this provider")
}

func runShow(cmd *cobra.Command, args []string) error {
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

	f := buildFilter(showSearch, showHideTypes, showHideStatuses, showHideProvider)
	f.Observe(snap)

	view.NewRenderer(verbosity(cmd)).Render(app, snap, view.Options{
		Live:   false,
		Filter: f,
	})
	return nil
}
