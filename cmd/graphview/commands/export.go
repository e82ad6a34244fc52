package commands

import (
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/innominatus/graphview/errors"
	"github.com/innominatus/graphview/export"
	"github.com/innominatus/graphview/graph"
)

// ExportCmd renders the graph to a portable format.
var ExportCmd = &cobra.Command{
	Use:   "export <app>",
	Short: "Export the graph as json, dot, mermaid, svg, or png",
	Long: `Render the current graph to a portable format. json, dot, mermaid, and
svg render locally from the fetched snapshot; png is rendered by the
server. Output goes to stdout unless --output is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var (
	exportFormat string
	exportOutput string
	exportRemote bool
)

func init() {
	ExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Export format: json, dot, mermaid, svg, png")
	ExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	ExportCmd.Flags().BoolVar(&exportRemote, "remote", false, "Let the server render the export")
}

func runExport(cmd *cobra.Command, args []string) error {
	app := args[0]
	c, cfg, err := buildClient(cmd)
	if err != nil {
		return err
	}

	var data []byte
	if exportRemote || !export.SupportedLocally(exportFormat) {
		// png always goes through the server.
		data, err = c.Export(cmd.Context(), app, exportFormat)
		if err != nil {
			return err
		}
	} else {
		nodes, edges, ferr := c.FetchGraph(cmd.Context(), app)
		if ferr != nil {
			return ferr
		}
		snap := graph.NewSnapshot(nodes, edges, time.Now())
		doc := export.FromSnapshot(app, snap, layoutConfig(cfg))
		data, err = doc.Render(exportFormat)
		if err != nil {
			return err
		}
	}

	if exportOutput == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(exportOutput, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", exportOutput)
	}
	pterm.Success.Printf("Wrote %s (%d bytes)\n", exportOutput, len(data))
	return nil
}
