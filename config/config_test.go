package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graphview.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFromFileAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
base_url = "https://platform.internal"
`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://platform.internal", cfg.Server.BaseURL)
	// Everything not in the file keeps its default.
	assert.False(t, cfg.Stream.Reconnect)
	assert.Equal(t, 1200.0, cfg.Layout.CanvasWidth)
	assert.Equal(t, 200, cfg.History.Keep)
}

func TestLoadFromFileOverrides(t *testing.T) {
	path := writeConfig(t, `
[stream]
reconnect = true

[layout]
layer_spacing = 90.0

[history]
path = "/tmp/hist.db"
keep = 10
`)
	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Stream.Reconnect)
	assert.Equal(t, 90.0, cfg.Layout.LayerSpacing)
	assert.Equal(t, "/tmp/hist.db", cfg.History.Path)
	assert.Equal(t, 10, cfg.History.Keep)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadCachesUntilReset(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	first, err := Load()
	require.NoError(t, err)
	second, err := Load()
	require.NoError(t, err)
	assert.Same(t, first, second)

	Reset()
	third, err := Load()
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestEnvOverride(t *testing.T) {
	Reset()
	t.Cleanup(Reset)
	t.Setenv("GRAPHVIEW_SERVER_TOKEN", "env-token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Server.Token)
}

func TestStringRedactsToken(t *testing.T) {
	cfg := &Config{Server: ServerConfig{BaseURL: "http://x", Token: "secret"}}
	s := cfg.String()
	assert.NotContains(t, s, "secret")
	assert.Contains(t, s, "token set")
}

func TestWatcherFiresOnChange(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	path := writeConfig(t, "[server]\nbase_url = \"http://a\"\n")
	cw, err := NewConfigWatcher(path)
	require.NoError(t, err)
	t.Cleanup(func() { cw.Stop() })

	var fired atomic.Int32
	cw.OnReload(func(*Config) error {
		fired.Add(1)
		return nil
	})
	cw.Start()

	require.NoError(t, os.WriteFile(path, []byte("[server]\nbase_url = \"http://b\"\n"), 0644))

	require.Eventually(t, func() bool { return fired.Load() > 0 },
		3*time.Second, 50*time.Millisecond, "reload callback fires after debounce")
}

func TestWatcherReloadsWatchedFileValues(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	path := writeConfig(t, "[history]\nkeep = 5\n")
	cw, err := NewConfigWatcher(path)
	require.NoError(t, err)
	t.Cleanup(func() { cw.Stop() })

	var keep atomic.Int64
	cw.OnReload(func(cfg *Config) error {
		keep.Store(int64(cfg.History.Keep))
		return nil
	})
	cw.Start()

	require.NoError(t, os.WriteFile(path, []byte("[history]\nkeep = 9\n"), 0644))

	// The callback must see the edited file's values, not a stale merged
	// load from the search path.
	require.Eventually(t, func() bool { return keep.Load() == 9 },
		3*time.Second, 50*time.Millisecond, "callback receives values from the watched file")
}

func TestWatcherMissingFile(t *testing.T) {
	_, err := NewConfigWatcher(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}
