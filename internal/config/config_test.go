package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("QUIRE_CONFIG", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendLocal, cfg.Storage.Backend)
	require.Equal(t, ".", cfg.Storage.Root)
	require.Equal(t, filepath.Join(home, ".local", "share", "quire", "contents.db"), cfg.Storage.DBPath)
	require.Equal(t, "http://localhost:8877", cfg.Storage.BaseURL)
	require.Equal(t, 4, cfg.UI.TabWidth)
	require.False(t, cfg.UI.HiddenFiles)
	require.Equal(t, "info", cfg.Log.Level)
	require.Empty(t, cfg.Log.File)
	require.Empty(t, cfg.Script.Init)
}

func TestLoad_ConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("QUIRE_CONFIG", "")

	dir := filepath.Join(home, ".config", "quire")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	body := `[storage]
backend = "sqlite"
db_path = "/tmp/box.db"

[ui]
tab_width = 8
hidden_files = true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quire.toml"), []byte(body), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendSQLite, cfg.Storage.Backend)
	require.Equal(t, "/tmp/box.db", cfg.Storage.DBPath)
	require.Equal(t, 8, cfg.UI.TabWidth)
	require.True(t, cfg.UI.HiddenFiles)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ExplicitConfigPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "custom.toml")
	body := `[storage]
root = "/srv/notes"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("QUIRE_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/srv/notes", cfg.Storage.Root)
	require.Equal(t, BackendLocal, cfg.Storage.Backend)
}

func TestLoadFrom_BypassesEnvPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("QUIRE_CONFIG", filepath.Join(t.TempDir(), "ignored.toml"))

	path := filepath.Join(t.TempDir(), "flagged.toml")
	body := `[ui]
tab_width = 6
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, 6, cfg.UI.TabWidth)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("QUIRE_CONFIG", "")
	t.Setenv("QUIRE_STORAGE_BACKEND", "http")
	t.Setenv("QUIRE_STORAGE_BASE_URL", "http://paper:9000")
	t.Setenv("QUIRE_UI_TAB_WIDTH", "2")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, BackendHTTP, cfg.Storage.Backend)
	require.Equal(t, "http://paper:9000", cfg.Storage.BaseURL)
	require.Equal(t, 2, cfg.UI.TabWidth)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("QUIRE_CONFIG", "")
	t.Setenv("QUIRE_STORAGE_BACKEND", "floppy")

	_, err := Load()
	require.ErrorIs(t, err, ErrUnknownBackend)
}

func TestLoad_RejectsBadTabWidth(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("QUIRE_CONFIG", "")
	t.Setenv("QUIRE_UI_TAB_WIDTH", "0")

	_, err := Load()
	require.ErrorIs(t, err, ErrInvalidValue)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "quire.toml")
	t.Setenv("QUIRE_CONFIG", path)

	in := Config{
		Storage: StorageConfig{Backend: BackendSQLite, Root: "work", DBPath: "/data/q.db", BaseURL: "http://x"},
		UI:      UIConfig{TabWidth: 3, HiddenFiles: true},
		Log:     LogConfig{Level: "debug", File: "/tmp/quire.log"},
		Script:  ScriptConfig{Init: "boot.lua"},
	}
	require.NoError(t, Save(in))

	out, err := Load()
	require.NoError(t, err)
	require.Equal(t, in, out)
}
