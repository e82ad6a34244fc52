package commands

import (
	"context"
	"os"
	"os/signal"
	stdsync "sync"
	"syscall"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/innominatus/graphview/config"
	"github.com/innominatus/graphview/errors"
	"github.com/innominatus/graphview/history"
	"github.com/innominatus/graphview/layout"
	"github.com/innominatus/graphview/logger"
	"github.com/innominatus/graphview/sync"
	"github.com/innominatus/graphview/view"
)

// WatchCmd follows an application's graph live.
var WatchCmd = &cobra.Command{
	Use:   "watch <app>",
	Short: "Follow an application's dependency graph live",
	Long: `Fetch the current graph and keep it current over the platform's update
stream. Status changes re-render the view with the changed nodes marked;
a dropped stream leaves the last snapshot on screen, marked stale.

Layout and history settings reload live when the config file changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchReconnect    bool
	watchNoHistory    bool
	watchNoPath       bool
	watchSearch       string
	watchHideTypes    []string
	watchHideStatuses []string
	watchHideProvider []string
)

func init() {
	WatchCmd.Flags().BoolVar(&watchReconnect, "reconnect", false, "Redial the stream with backoff after a drop")
	WatchCmd.Flags().BoolVar(&watchNoHistory, "no-history", false, "Do not record generations to the local history log")
	WatchCmd.Flags().BoolVar(&watchNoPath, "no-critical-path", false, "Skip the critical path overlay")
	WatchCmd.Flags().StringVar(&watchSearch, "search", "", "Show only nodes whose name contains this text")
	WatchCmd.Flags().StringSliceVar(&watchHideTypes, "hide-type", nil, "Hide nodes of this type (spec, workflow, step, resource, provider)")
	WatchCmd.Flags().StringSliceVar(&watchHideStatuses, "hide-status", nil, "Hide nodes with this status")
	WatchCmd.Flags().StringSliceVar(&watchHideProvider, "hide-provider", nil, "Hide resources from this provider")
}

// watchSettings holds the config-derived knobs a reload may change while
// the render loop is running.
type watchSettings struct {
	mu          stdsync.Mutex
	layout      layout.Config
	historyKeep int
}

func (ws *watchSettings) apply(cfg *config.Config) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.layout = layoutConfig(cfg)
	ws.historyKeep = cfg.History.Keep
}

func (ws *watchSettings) snapshot() (layout.Config, int) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.layout, ws.historyKeep
}

func runWatch(cmd *cobra.Command, args []string) error {
	app := args[0]
	c, cfg, err := buildClient(cmd)
	if err != nil {
		return err
	}

	sessionID := uuid.New().String()
	log := logger.Named("watch").With("session_id", sessionID, "app", app)

	policy := sync.ReconnectOff
	if watchReconnect || cfg.Stream.Reconnect {
		policy = sync.ReconnectBackoff
	}

	s, err := sync.New(sync.Options{
		App:       app,
		Fetcher:   c,
		Dial:      sync.DialWebSocket(c.Token()),
		StreamURL: c.StreamURL(app),
		Policy:    policy,
		Logger:    log,
		Verbosity: verbosity(cmd),
	})
	if err != nil {
		return err
	}

	var store *history.Store
	if !watchNoHistory {
		store, err = history.Open(historyPath(cfg), log)
		if err != nil {
			// History is best-effort; watching works without it.
			log.Warnw("History log unavailable", "error", err.Error())
		} else {
			defer store.Close()
		}
	}

	settings := &watchSettings{}
	settings.apply(cfg)

	// Live-reload layout and history settings while watching. Server and
	// token changes need a restart; the session keeps its connection.
	configFile, _ := cmd.Flags().GetString("config")
	if configFile == "" {
		configFile = config.EffectiveConfigFile()
	}
	if configFile != "" {
		cw, werr := config.NewConfigWatcher(configFile)
		if werr != nil {
			log.Debugw("Config watch unavailable", "file", configFile, "error", werr.Error())
		} else {
			cw.OnReload(func(next *config.Config) error {
				settings.apply(next)
				log.Infow("Applied reloaded settings",
					"history_keep", next.History.Keep)
				return nil
			})
			cw.Start()
			defer cw.Stop()
		}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	criticalPath := make(map[string]bool)
	if !watchNoPath {
		if ids, cperr := c.FetchCriticalPath(ctx, app); cperr != nil {
			log.Debugw("Critical path unavailable", "error", cperr.Error())
		} else {
			for _, id := range ids {
				criticalPath[id] = true
			}
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		pterm.Info.Println("\nStopping...")
		cancel()
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	f := buildFilter(watchSearch, watchHideTypes, watchHideStatuses, watchHideProvider)

	renderer := view.NewRenderer(verbosity(cmd))
	warnedOffline := false
	for u := range s.Updates() {
		snap := u.Snapshot
		f.Observe(snap)
		layoutCfg, _ := settings.snapshot()
		live := s.Live()
		renderer.Render(app, snap, view.Options{
			Live:         live,
			Changed:      snap.ChangedSince(),
			CriticalPath: criticalPath,
			Filter:       f,
			Layout:       &layoutCfg,
		})

		if !live && policy == sync.ReconnectOff && !warnedOffline {
			pterm.Warning.Println("Stream offline; rerun with --reconnect for automatic redial")
			warnedOffline = true
		}
		if store != nil {
			if herr := store.RecordSnapshot(ctx, app, snap, u.Source); herr != nil {
				log.Debugw("Failed to record generation", "error", herr.Error())
			}
		}
	}

	if store != nil {
		_, keep := settings.snapshot()
		if _, perr := store.Prune(context.Background(), app, keep); perr != nil {
			log.Debugw("History prune failed", "error", perr.Error())
		}
	}

	err = <-runErr
	if err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "watch session ended")
	}
	return nil
}
