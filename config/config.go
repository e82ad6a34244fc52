// Package config loads graphview settings from TOML files and environment
// variables. Files merge in precedence order: system, user, project, with
// environment variables on top.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// DefaultDirPermissions for the user config directory.
const DefaultDirPermissions = 0755

// Config is the full graphview configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Stream  StreamConfig  `mapstructure:"stream"`
	Layout  LayoutConfig  `mapstructure:"layout"`
	History HistoryConfig `mapstructure:"history"`
}

// ServerConfig locates the platform API.
type ServerConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

// StreamConfig controls the live update stream.
type StreamConfig struct {
	// Reconnect enables automatic redial with backoff after a dropped
	// stream. Off by default: a broken stream surfaces as offline.
	Reconnect bool `mapstructure:"reconnect"`
}

// LayoutConfig overrides the layered layout geometry.
type LayoutConfig struct {
	CanvasWidth  float64 `mapstructure:"canvas_width"`
	LayerSpacing float64 `mapstructure:"layer_spacing"`
	NodeSpacing  float64 `mapstructure:"node_spacing"`
	Margin       float64 `mapstructure:"margin"`
}

// HistoryConfig controls the local generation log.
type HistoryConfig struct {
	Path string `mapstructure:"path"`
	Keep int    `mapstructure:"keep"`
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.base_url", "http://localhost:8081")
	v.SetDefault("server.token", "")

	v.SetDefault("stream.reconnect", false)

	v.SetDefault("layout.canvas_width", 1200.0)
	v.SetDefault("layout.layer_spacing", 140.0)
	v.SetDefault("layout.node_spacing", 180.0)
	v.SetDefault("layout.margin", 60.0)

	v.SetDefault("history.path", "graphview.db")
	v.SetDefault("history.keep", 200)
}

// BindSensitiveEnvVars explicitly binds sensitive values to environment
// variables so they never have to live in a config file.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("server.token", "GRAPHVIEW_SERVER_TOKEN")
	v.BindEnv("server.base_url", "GRAPHVIEW_SERVER_BASE_URL")
}

// String returns a redacted summary, safe for logs.
func (c *Config) String() string {
	token := "unset"
	if c.Server.Token != "" {
		token = "set"
	}
	return fmt.Sprintf("Config{Server: %s (token %s), Reconnect: %t, History: %s}",
		c.Server.BaseURL, token, c.Stream.Reconnect, c.History.Path)
}
