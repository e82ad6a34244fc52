package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/innominatus/graphview/history"
	"github.com/innominatus/graphview/view"
)

// HistoryCmd shows recorded graph generations.
var HistoryCmd = &cobra.Command{
	Use:   "history <app>",
	Short: "Show graph history",
	Long: `Show recent graph generations. By default this reads the local log
recorded by watch sessions; --remote queries the platform's history
endpoint instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

var (
	historyLimit  int
	historyRemote bool
)

func init() {
	HistoryCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum entries to show")
	HistoryCmd.Flags().BoolVar(&historyRemote, "remote", false, "Query the platform history endpoint")
	HistoryCmd.AddCommand(historyPruneCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	app := args[0]

	if historyRemote {
		c, _, err := buildClient(cmd)
		if err != nil {
			return err
		}
		entries, err := c.FetchHistory(cmd.Context(), app, historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			pterm.Info.Println("No remote history for this application")
			return nil
		}
		for _, e := range entries {
			line := e.Event
			if e.NodeID != "" {
				line += "  " + e.NodeID
			}
			if e.Status != "" {
				line += "  " + pterm.Gray(e.Status)
			}
			pterm.Printf("  %s  %s\n", pterm.Gray(e.Timestamp.Format("2006-01-02 15:04:05")), line)
		}
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := history.Open(historyPath(cfg), nil)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.Recent(cmd.Context(), app, historyLimit)
	if err != nil {
		return err
	}

	rows := make([]view.HistoryRow, len(records))
	for i, r := range records {
		rows[i] = view.HistoryRow{
			RecordedAt: r.RecordedAt,
			Generation: r.Generation,
			NodeCount:  r.NodeCount,
			EdgeCount:  r.EdgeCount,
			Source:     r.Source,
		}
	}
	view.NewRenderer(verbosity(cmd)).RenderHistory(rows)
	return nil
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune <app>",
	Short: "Trim the local history log to the configured size",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := history.Open(historyPath(cfg), nil)
		if err != nil {
			return err
		}
		defer store.Close()

		deleted, err := store.Prune(cmd.Context(), args[0], cfg.History.Keep)
		if err != nil {
			return err
		}
		pterm.Success.Printf("Pruned %d records (keeping %d)\n", deleted, cfg.History.Keep)
		return nil
	},
}
