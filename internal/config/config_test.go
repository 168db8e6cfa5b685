package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), ".rkit.kdl"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, cfg.Import.Scale)
	assert.True(t, cfg.Import.Mipmaps.Enabled)
}

func TestLoad_KDL(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".rkit.kdl")
	require.NoError(t, os.WriteFile(path, []byte(`
verbose true
import {
    scale 2.5
    mipmaps "min:3"
    merge_mats true
    tint "#FF8800"
}
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 2.5, cfg.Import.Scale)
	assert.Equal(t, MipmapPolicy{Enabled: true, MinCount: 3}, cfg.Import.Mipmaps)
	assert.True(t, cfg.Import.MergeMaterials)
	assert.Equal(t, "#FF8800", cfg.Import.Tint)
}

func TestLoad_BadKDL(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".rkit.kdl")
	require.NoError(t, os.WriteFile(path, []byte(`import { scale `), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyPreset_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preset.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
scale = 0.1
mipmaps = "off"
fuse_vertices = true
`), 0o644))

	cfg := Default()
	require.NoError(t, cfg.ApplyPreset(path))
	assert.Equal(t, 0.1, cfg.Import.Scale)
	assert.False(t, cfg.Import.Mipmaps.Enabled)
	assert.True(t, cfg.Import.FuseVertices)
}

func TestParseMipmaps(t *testing.T) {
	mm, err := ParseMipmaps("on")
	require.NoError(t, err)
	assert.True(t, mm.Enabled)

	mm, err = ParseMipmaps("off")
	require.NoError(t, err)
	assert.False(t, mm.Enabled)

	mm, err = ParseMipmaps("min:4")
	require.NoError(t, err)
	assert.Equal(t, 4, mm.MinCount)

	_, err = ParseMipmaps("banana")
	assert.Error(t, err)
	_, err = ParseMipmaps("min:x")
	assert.Error(t, err)
}
