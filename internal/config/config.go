// Package config loads the tool configuration: a .rkit.kdl file for
// durable project settings, optionally overlaid by a TOML preset of
// import flags and then by CLI flags.
package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// MipmapPolicy controls mipmap generation on import.
type MipmapPolicy struct {
	Enabled  bool
	MinCount int
}

// ImportSettings are the knobs an import run honors. Zero values of the
// switches and of Tint mean "leave the data alone"; Scale is a
// multiplier, so 1 (not 0) leaves sizes unchanged.
type ImportSettings struct {
	Scale            float64
	BrawlboxScale    bool
	Mipmaps          MipmapPolicy
	AutoTransparency bool
	MergeMaterials   bool
	BakeUVs          bool
	Tint             string // "#RRGGBB"
	CullDegenerates  bool
	CullInvalid      bool
	RecomputeNormals bool
	FuseVertices     bool
}

// Config is the full tool configuration.
type Config struct {
	Verbose bool
	Import  ImportSettings
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Import: ImportSettings{
			Scale:   1.0,
			Mipmaps: MipmapPolicy{Enabled: true, MinCount: 1},
		},
	}
}

// Load reads the KDL config at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := parseKDL(cfg, string(content)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// preset is the TOML flag-preset schema.
type preset struct {
	Scale            *float64 `toml:"scale"`
	BrawlboxScale    *bool    `toml:"brawlbox_scale"`
	Mipmaps          *string  `toml:"mipmaps"`
	AutoTransparency *bool    `toml:"auto_transparency"`
	MergeMats        *bool    `toml:"merge_mats"`
	BakeUVs          *bool    `toml:"bake_uvs"`
	Tint             *string  `toml:"tint"`
	CullDegenerates  *bool    `toml:"cull_degenerates"`
	CullInvalid      *bool    `toml:"cull_invalid"`
	RecomputeNormals *bool    `toml:"recompute_normals"`
	FuseVertices     *bool    `toml:"fuse_vertices"`
}

// ApplyPreset overlays a TOML preset file onto the configuration.
func (c *Config) ApplyPreset(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read preset %s: %w", path, err)
	}
	var p preset
	if err := toml.Unmarshal(content, &p); err != nil {
		return fmt.Errorf("failed to parse preset %s: %w", path, err)
	}
	if p.Scale != nil {
		c.Import.Scale = *p.Scale
	}
	if p.BrawlboxScale != nil {
		c.Import.BrawlboxScale = *p.BrawlboxScale
	}
	if p.Mipmaps != nil {
		mm, err := ParseMipmaps(*p.Mipmaps)
		if err != nil {
			return err
		}
		c.Import.Mipmaps = mm
	}
	if p.AutoTransparency != nil {
		c.Import.AutoTransparency = *p.AutoTransparency
	}
	if p.MergeMats != nil {
		c.Import.MergeMaterials = *p.MergeMats
	}
	if p.BakeUVs != nil {
		c.Import.BakeUVs = *p.BakeUVs
	}
	if p.Tint != nil {
		c.Import.Tint = *p.Tint
	}
	if p.CullDegenerates != nil {
		c.Import.CullDegenerates = *p.CullDegenerates
	}
	if p.CullInvalid != nil {
		c.Import.CullInvalid = *p.CullInvalid
	}
	if p.RecomputeNormals != nil {
		c.Import.RecomputeNormals = *p.RecomputeNormals
	}
	if p.FuseVertices != nil {
		c.Import.FuseVertices = *p.FuseVertices
	}
	return nil
}
