package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 1.0, cfg.Render.Scale)
	assert.Equal(t, 1.0, cfg.Render.Gamma)
	assert.Equal(t, DefaultColormap, cfg.Render.Colormap)
	assert.Equal(t, 16*1024*1024, cfg.Limits.MaxPlanePixels)
	assert.NoError(t, cfg.Validate())

	// The default colormap is copied, not shared
	cfg.Render.Colormap[0] = "#000000"
	assert.Equal(t, "#2c7bb6", DefaultColormap[0])
}

func TestLoad_Missing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "psi-mcp.yaml")
	data := `
log:
  level: debug
catalog:
  path: /data/catalog.db
render:
  contrast: 0.25
  colormap: ["#000000", "#ffffff"]
  flipVertical: true
limits:
  maxPlanePixels: 1000
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/data/catalog.db", cfg.Catalog.Path)
	assert.Equal(t, 0.25, cfg.Render.Contrast)
	assert.Equal(t, []string{"#000000", "#ffffff"}, cfg.Render.Colormap)
	assert.True(t, cfg.Render.FlipVertical)
	assert.Equal(t, 1000, cfg.Limits.MaxPlanePixels)

	// Untouched fields keep their defaults
	assert.Equal(t, 1.0, cfg.Render.Scale)
	assert.Equal(t, 1.0, cfg.Render.Gamma)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "log: [level"},
		{"bad level", "log:\n  level: loud\n"},
		{"negative scale", "render:\n  scale: -1\n"},
		{"contrast out of range", "render:\n  contrast: 2\n"},
		{"single stop", "render:\n  colormap: [\"#000000\"]\n"},
		{"negative limit", "limits:\n  maxPlanePixels: -5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.data), 0644))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "psi-mcp.yaml")

	cfg := Default()
	cfg.Log.Level = "warn"
	cfg.Catalog.Path = ""
	cfg.Render.FlipVertical = true
	require.NoError(t, Save(cfg, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
