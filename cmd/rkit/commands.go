package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v2"

	"github.com/rvltools/rkit/internal/codecs"
	"github.com/rvltools/rkit/internal/config"
	"github.com/rvltools/rkit/internal/importer"
	"github.com/rvltools/rkit/internal/registry"
	"github.com/rvltools/rkit/pkg/pathutil"
)

func messageFunc(verbose bool) registry.ReadOption {
	return registry.WithMessageFunc(func(m registry.Message) {
		if m.Severity == registry.Information && !verbose {
			return
		}
		fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", m.Severity, m.Domain, m.Text)
	})
}

// siblingResolver resolves dependency names against the source file's
// directory.
func siblingResolver(from string) registry.ReadOption {
	dir := filepath.Dir(from)
	return registry.WithResolveFunc(func(name string) ([]byte, error) {
		return os.ReadFile(filepath.Join(dir, name))
	})
}

// rebuild runs a file through its codec and writes the result.
func rebuild(cfg *config.Config, verbose bool, from, to string, verify bool) error {
	data, err := os.ReadFile(from)
	if err != nil {
		return err
	}
	reg := codecs.DefaultRegistry()
	res, err := reg.Read(from, data, messageFunc(verbose || cfg.Verbose), siblingResolver(from))
	if err != nil {
		return err
	}
	out, _, err := reg.Write(res.Codec, res.Document, messageFunc(verbose || cfg.Verbose))
	if err != nil {
		return err
	}
	if verify && !bytes.Equal(out, data) {
		return fmt.Errorf("%s: roundtrip mismatch (%d in, %d out)", from, len(data), len(out))
	}
	if err := os.WriteFile(to, out, 0o644); err != nil {
		return err
	}
	if verbose || cfg.Verbose {
		fmt.Printf("%s -> %s (%d bytes, codec %s)\n", from, to, len(out), res.Codec.ID())
	}
	return nil
}

func importFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: "scale", Value: 1.0, Usage: "uniform scale applied on import"},
		&cli.BoolFlag{Name: "brawlbox_scale", Usage: "compensate for BrawlBox's export scale"},
		&cli.StringFlag{Name: "mipmaps", Value: "on", Usage: "mipmap policy: on, off or min:<count>"},
		&cli.BoolFlag{Name: "auto_transparency", Usage: "infer alpha-dependent render modes"},
		&cli.BoolFlag{Name: "merge_mats", Usage: "merge identical materials"},
		&cli.BoolFlag{Name: "bake_uvs", Usage: "bake texture-matrix transforms into UVs"},
		&cli.StringFlag{Name: "tint", Usage: "multiply vertex colors by #RRGGBB"},
		&cli.BoolFlag{Name: "cull_degenerates", Usage: "drop degenerate triangles"},
		&cli.BoolFlag{Name: "cull_invalid", Usage: "drop primitives with out-of-range indices"},
		&cli.BoolFlag{Name: "recompute_normals", Usage: "rebuild normals from geometry"},
		&cli.BoolFlag{Name: "fuse_vertices", Usage: "merge positionally identical vertices"},
		&cli.StringFlag{Name: "preset", Usage: "TOML preset file of import flags"},
	}
}

func applyImportFlags(cfg *config.Config, c *cli.Context) error {
	if p := c.String("preset"); p != "" {
		if err := cfg.ApplyPreset(p); err != nil {
			return err
		}
	}
	if c.IsSet("scale") {
		cfg.Import.Scale = c.Float64("scale")
	}
	if c.IsSet("brawlbox_scale") {
		cfg.Import.BrawlboxScale = c.Bool("brawlbox_scale")
	}
	if c.IsSet("mipmaps") {
		mm, err := config.ParseMipmaps(c.String("mipmaps"))
		if err != nil {
			return err
		}
		cfg.Import.Mipmaps = mm
	}
	if c.IsSet("auto_transparency") {
		cfg.Import.AutoTransparency = c.Bool("auto_transparency")
	}
	if c.IsSet("merge_mats") {
		cfg.Import.MergeMaterials = c.Bool("merge_mats")
	}
	if c.IsSet("bake_uvs") {
		cfg.Import.BakeUVs = c.Bool("bake_uvs")
	}
	if c.IsSet("tint") {
		cfg.Import.Tint = c.String("tint")
	}
	if c.IsSet("cull_degenerates") {
		cfg.Import.CullDegenerates = c.Bool("cull_degenerates")
	}
	if c.IsSet("cull_invalid") {
		cfg.Import.CullInvalid = c.Bool("cull_invalid")
	}
	if c.IsSet("recompute_normals") {
		cfg.Import.RecomputeNormals = c.Bool("recompute_normals")
	}
	if c.IsSet("fuse_vertices") {
		cfg.Import.FuseVertices = c.Bool("fuse_vertices")
	}
	return nil
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import a file through its codec, applying import settings",
		ArgsUsage: "<from> [to]",
		Flags:     importFlags(),
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return fmt.Errorf("import needs a source file")
			}
			from := c.Args().Get(0)
			to := c.Args().Get(1)
			if to == "" {
				to = from
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if err := applyImportFlags(cfg, c); err != nil {
				return err
			}
			return importFile(cfg, c.Bool("verbose"), from, to)
		},
	}
}

// importFile reads a file, applies the import settings to the document,
// and writes the result.
func importFile(cfg *config.Config, verbose bool, from, to string) error {
	data, err := os.ReadFile(from)
	if err != nil {
		return err
	}
	reg := codecs.DefaultRegistry()
	res, err := reg.Read(from, data, messageFunc(verbose || cfg.Verbose), siblingResolver(from))
	if err != nil {
		return err
	}
	for _, note := range importer.Apply(res.Document, cfg.Import) {
		fmt.Fprintf(os.Stderr, "[warning] import: %s\n", note)
	}
	out, _, err := reg.Write(res.Codec, res.Document, messageFunc(verbose || cfg.Verbose))
	if err != nil {
		return err
	}
	return os.WriteFile(to, out, 0o644)
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Verify write(read(F)) == F for every file matching the globs",
		ArgsUsage: "<glob>...",
		Action: func(c *cli.Context) error {
			if c.Args().Len() == 0 {
				return fmt.Errorf("check needs at least one glob")
			}
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			reg := codecs.DefaultRegistry()
			checked, failed := 0, 0
			for _, pattern := range c.Args().Slice() {
				matches, err := doublestar.FilepathGlob(pattern)
				if err != nil {
					return fmt.Errorf("bad glob %q: %w", pattern, err)
				}
				for _, path := range matches {
					data, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					checked++
					rel := pathutil.ToRelative(path, cwd)
					res, err := reg.Read(path, data, siblingResolver(path))
					if err != nil {
						failed++
						fmt.Printf("FAIL %s: %v\n", rel, err)
						continue
					}
					out, _, err := reg.Write(res.Codec, res.Document)
					if err != nil {
						failed++
						fmt.Printf("FAIL %s: %v\n", rel, err)
						continue
					}
					if !bytes.Equal(out, data) {
						failed++
						fmt.Printf("FAIL %s: roundtrip mismatch (%d in, %d out)\n", rel, len(data), len(out))
						continue
					}
					fmt.Printf("ok   %s\n", rel)
				}
			}
			fmt.Printf("%d checked, %d failed\n", checked, failed)
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed roundtrip", failed, checked)
			}
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-run a conversion whenever the source file changes",
		ArgsUsage: "<from> <to>",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "debounce", Value: 250 * time.Millisecond},
		},
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 2 {
				return fmt.Errorf("watch needs <from> and <to>")
			}
			from, to := c.Args().Get(0), c.Args().Get(1)
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			run := func() {
				if err := rebuild(cfg, c.Bool("verbose"), from, to, false); err != nil {
					fmt.Fprintf(os.Stderr, "rkit: %v\n", err)
				} else {
					fmt.Printf("rebuilt %s\n", to)
				}
			}
			run()

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return err
			}
			defer watcher.Close()
			if err := watcher.Add(filepath.Dir(from)); err != nil {
				return err
			}

			debounce := c.Duration("debounce")
			var timer *time.Timer
			target := filepath.Clean(from)
			for {
				select {
				case ev, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if filepath.Clean(ev.Name) != target {
						continue
					}
					if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
						continue
					}
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(debounce, run)
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					fmt.Fprintf(os.Stderr, "rkit: watch: %v\n", err)
				}
			}
		},
	}
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Show the document structure of a file",
		ArgsUsage: "<file>",
		Action: func(c *cli.Context) error {
			if c.Args().Len() < 1 {
				return fmt.Errorf("info needs a file")
			}
			path := c.Args().Get(0)
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			reg := codecs.DefaultRegistry()
			res, err := reg.Read(path, data, siblingResolver(path))
			if err != nil {
				return err
			}
			fmt.Printf("%s: codec %s\n", filepath.Base(path), res.Codec.ID())
			doc := res.Document
			for i := 0; i < doc.NumFolders(); i++ {
				folder := doc.FolderAt(i)
				fmt.Printf("  %-24s %d\n", folder.Key(), folder.Len())
				for j := 0; j < folder.Len() && j < 16; j++ {
					name := folder.At(j).DisplayName()
					if name == "" {
						name = fmt.Sprintf("#%d", j)
					}
					fmt.Printf("    - %s\n", name)
				}
				if folder.Len() > 16 {
					fmt.Printf("    … %d more\n", folder.Len()-16)
				}
			}
			for _, warning := range res.Warnings {
				fmt.Printf("  warning: %s\n", warning.Text)
			}
			return nil
		},
	}
}
