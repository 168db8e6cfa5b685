package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvltools/rkit/internal/config"
	"github.com/rvltools/rkit/internal/egg"
	"github.com/rvltools/rkit/internal/szs"
)

func TestRebuild_SZS(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "in.szs")
	to := filepath.Join(dir, "out.szs")
	payload := []byte("course data course data course data")
	require.NoError(t, os.WriteFile(from, szs.Encode(payload), 0o644))

	require.NoError(t, rebuild(config.Default(), false, from, to, false))

	out, err := os.ReadFile(to)
	require.NoError(t, err)
	dec, err := szs.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, payload, dec)
}

func TestRebuild_VerifyDetectsStability(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "lights.blight")
	to := filepath.Join(dir, "out.blight")
	data := egg.WriteBlight(&egg.Blight{Version: 2, Lights: []egg.LightObject{egg.DefaultLightObject()}})
	require.NoError(t, os.WriteFile(from, data, 0o644))

	require.NoError(t, rebuild(config.Default(), false, from, to, true))

	out, err := os.ReadFile(to)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestRebuild_UnknownFormat(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "mystery.xyz")
	require.NoError(t, os.WriteFile(from, []byte{1, 2, 3, 4}, 0o644))
	err := rebuild(config.Default(), false, from, filepath.Join(dir, "out.xyz"), false)
	assert.Error(t, err)
}

func TestImportFile_AppliesScale(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "course.kmp")
	to := filepath.Join(dir, "scaled.kmp")

	// A minimal course with one start point at x=10.
	writeSampleCourse(t, from)

	cfg := config.Default()
	cfg.Import.Scale = 2
	require.NoError(t, importFile(cfg, false, from, to))

	assertStartPointX(t, to, 20)
}
