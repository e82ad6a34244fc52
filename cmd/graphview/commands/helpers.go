package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/innominatus/graphview/client"
	"github.com/innominatus/graphview/config"
	"github.com/innominatus/graphview/errors"
	"github.com/innominatus/graphview/filter"
	"github.com/innominatus/graphview/layout"
)

// loadConfig resolves the effective configuration: file or search path,
// then the --server/--token flag overrides on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if server, _ := cmd.Flags().GetString("server"); server != "" {
		cfg.Server.BaseURL = server
	}
	if token, _ := cmd.Flags().GetString("token"); token != "" {
		cfg.Server.Token = token
	}
	return cfg, nil
}

// buildClient creates the API client from the effective configuration.
func buildClient(cmd *cobra.Command) (*client.Client, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load configuration")
	}
	c, err := client.New(cfg.Server.BaseURL, cfg.Server.Token)
	if err != nil {
		return nil, nil, err
	}
	return c, cfg, nil
}

// layoutConfig maps the configured geometry onto the layout engine,
// falling back to defaults for unset values.
func layoutConfig(cfg *config.Config) layout.Config {
	lc := layout.DefaultConfig()
	if cfg.Layout.CanvasWidth > 0 {
		lc.CanvasWidth = cfg.Layout.CanvasWidth
	}
	if cfg.Layout.LayerSpacing > 0 {
		lc.LayerSpacing = cfg.Layout.LayerSpacing
	}
	if cfg.Layout.NodeSpacing > 0 {
		lc.NodeSpacing = cfg.Layout.NodeSpacing
	}
	if cfg.Layout.Margin > 0 {
		lc.Margin = cfg.Layout.Margin
	}
	return lc
}

// historyPath resolves the history database location. Relative paths land
// in the user config directory so every working directory shares one log.
func historyPath(cfg *config.Config) string {
	if filepath.IsAbs(cfg.History.Path) {
		return cfg.History.Path
	}
	return filepath.Join(config.UserConfigDir(), cfg.History.Path)
}

// buildFilter assembles a filter state from the shared facet flags.
func buildFilter(search string, hideTypes, hideStatuses, hideProviders []string) *filter.State {
	f := filter.NewState()
	f.SetSearch(search)
	for _, t := range hideTypes {
		f.SetEnabled(filter.FacetNodeType, t, false)
	}
	for _, st := range hideStatuses {
		f.SetEnabled(filter.FacetStatus, st, false)
	}
	for _, p := range hideProviders {
		f.SetEnabled(filter.FacetProvider, p, false)
	}
	return f
}

// verbosity reads the global -v count.
func verbosity(cmd *cobra.Command) int {
	v, _ := cmd.Flags().GetCount("verbose")
	return v
}
