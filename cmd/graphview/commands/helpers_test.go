package commands

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/innominatus/graphview/config"
	"github.com/innominatus/graphview/filter"
)

func TestBuildFilterAppliesFlags(t *testing.T) {
	f := buildFilter("deploy", []string{"resource"}, []string{"failed"}, []string{"aws"})

	assert.Equal(t, "deploy", f.Search())
	assert.False(t, f.Enabled(filter.FacetNodeType, "resource"))
	assert.False(t, f.Enabled(filter.FacetStatus, "failed"))
	assert.False(t, f.Enabled(filter.FacetProvider, "aws"))
	// Untouched values stay visible.
	assert.True(t, f.Enabled(filter.FacetNodeType, "workflow"))
}

func TestLayoutConfigOverridesAndDefaults(t *testing.T) {
	cfg := &config.Config{}
	cfg.Layout.LayerSpacing = 90

	lc := layoutConfig(cfg)
	assert.Equal(t, 90.0, lc.LayerSpacing)
	// Unset values fall back to the engine defaults.
	assert.Equal(t, 1200.0, lc.CanvasWidth)
	assert.Equal(t, 180.0, lc.NodeSpacing)
	assert.Equal(t, 60.0, lc.Margin)
}

func TestHistoryPath(t *testing.T) {
	abs := &config.Config{}
	abs.History.Path = "/var/lib/graphview/history.db"
	assert.Equal(t, "/var/lib/graphview/history.db", historyPath(abs))

	rel := &config.Config{}
	rel.History.Path = "history.db"
	got := historyPath(rel)
	assert.True(t, filepath.IsAbs(got))
	assert.Equal(t, "history.db", filepath.Base(got))
}
