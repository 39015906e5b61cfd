// Package config loads and saves application configuration. Values come
// from defaults, an optional quire.toml and QUIRE_* environment overrides,
// in rising order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Backend names accepted in storage.backend.
const (
	BackendLocal  = "local"
	BackendSQLite = "sqlite"
	BackendHTTP   = "http"
)

var (
	// ErrUnknownBackend reports a storage.backend outside the known set.
	ErrUnknownBackend = errors.New("unknown storage backend")

	// ErrInvalidValue reports a setting outside its accepted range.
	ErrInvalidValue = errors.New("invalid configuration value")
)

// Config holds application configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	UI      UIConfig      `mapstructure:"ui"`
	Log     LogConfig     `mapstructure:"log"`
	Script  ScriptConfig  `mapstructure:"script"`
}

// StorageConfig selects and parameterizes the contents backend.
type StorageConfig struct {
	// Backend is one of local, sqlite or http.
	Backend string `mapstructure:"backend"`

	// Root is the workspace directory for the local backend.
	Root string `mapstructure:"root"`

	// DBPath is the database file for the sqlite backend.
	DBPath string `mapstructure:"db_path"`

	// BaseURL is the server address for the http backend.
	BaseURL string `mapstructure:"base_url"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	TabWidth    int  `mapstructure:"tab_width"`
	HiddenFiles bool `mapstructure:"hidden_files"`
}

// LogConfig holds logger settings. An empty File discards output, which
// keeps the terminal clean while the shell owns it.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// ScriptConfig holds scripting settings.
type ScriptConfig struct {
	// Init is the Lua script run at startup, empty for none.
	Init string `mapstructure:"init"`
}

// Load reads configuration from file and env. Env var overrides use prefix
// QUIRE_, with dots becoming underscores (storage.backend is
// QUIRE_STORAGE_BACKEND).
func Load() (Config, error) {
	return LoadFrom(os.Getenv("QUIRE_CONFIG"))
}

// LoadFrom reads configuration like Load but from an explicit file. An
// empty path falls back to the default search locations.
func LoadFrom(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("storage.root", ".")
	v.SetDefault("storage.db_path", filepath.Join(os.Getenv("HOME"), ".local", "share", "quire", "contents.db"))
	v.SetDefault("storage.base_url", "http://localhost:8877")
	v.SetDefault("ui.tab_width", 4)
	v.SetDefault("ui.hidden_files", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("script.init", "")

	v.SetConfigType("toml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "quire"))
		v.SetConfigName("quire")
	}

	v.SetEnvPrefix("QUIRE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if
// needed. The target is $QUIRE_CONFIG when set, the default location
// otherwise.
func Save(cfg Config) error {
	path := os.Getenv("QUIRE_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "quire", "quire.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("storage.backend", cfg.Storage.Backend)
	v.Set("storage.root", cfg.Storage.Root)
	v.Set("storage.db_path", cfg.Storage.DBPath)
	v.Set("storage.base_url", cfg.Storage.BaseURL)
	v.Set("ui.tab_width", cfg.UI.TabWidth)
	v.Set("ui.hidden_files", cfg.UI.HiddenFiles)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.file", cfg.Log.File)
	v.Set("script.init", cfg.Script.Init)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c Config) validate() error {
	switch c.Storage.Backend {
	case BackendLocal, BackendSQLite, BackendHTTP:
	default:
		return fmt.Errorf("storage.backend %q: %w", c.Storage.Backend, ErrUnknownBackend)
	}
	if c.UI.TabWidth < 1 {
		return fmt.Errorf("ui.tab_width %d: %w", c.UI.TabWidth, ErrInvalidValue)
	}
	return nil
}
