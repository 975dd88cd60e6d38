package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_CreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path())
	assert.False(t, cfg.Capture.Autostart)
	assert.Equal(t, "ctrl+shift+k", cfg.Hotkey.Combo)
	assert.Equal(t, 7645, cfg.Web.Port)
	assert.FileExists(t, path)

	again, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Web, again.Web)
}

func TestLoadFile_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[capture]
autostart = true

[web]
port = 9000

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, cfg.Capture.Autostart)
	assert.Equal(t, 9000, cfg.Web.Port)
	assert.True(t, cfg.Web.Enabled, "unset keys keep their defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad toml":   "[web\nport = 1",
		"bad port":   "[web]\nport = 70000",
		"bad hotkey": "[hotkey]\nenabled = true\ncombo = \"k\"",
		"bad level":  "[log]\nlevel = \"loud\"",
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(path, []byte(data), 0644))

			_, err := LoadFile(path)
			assert.Error(t, err)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	cfg.Capture.Autostart = true
	cfg.Hotkey.Combo = "alt+win"
	require.NoError(t, cfg.Save())

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, loaded.Capture.Autostart)
	assert.Equal(t, "alt+win", loaded.Hotkey.Combo)
}

func TestParseHotkey(t *testing.T) {
	kc, err := ParseHotkey("Ctrl+Shift+K")
	require.NoError(t, err)
	assert.Equal(t, KeyCombo{Ctrl: true, Shift: true, Key: "k"}, kc)

	kc, err = ParseHotkey("ctrl+win")
	require.NoError(t, err)
	assert.Equal(t, KeyCombo{Ctrl: true, Win: true}, kc)

	for _, bad := range []string{"", "k", "hyper+k", "ctrl+x+k"} {
		_, err := ParseHotkey(bad)
		assert.Error(t, err, "combo %q", bad)
	}
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)
}
