package config

import (
	"fmt"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

func parseKDL(cfg *Config, content string) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse KDL config: %w", err)
	}
	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "verbose":
			if v, ok := firstBoolArg(n); ok {
				cfg.Verbose = v
			}
		case "import":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "scale":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Import.Scale = v
					}
				case "brawlbox_scale":
					if v, ok := firstBoolArg(cn); ok {
						cfg.Import.BrawlboxScale = v
					}
				case "mipmaps":
					if s, ok := firstStringArg(cn); ok {
						mm, err := ParseMipmaps(s)
						if err != nil {
							return err
						}
						cfg.Import.Mipmaps = mm
					}
				case "auto_transparency":
					if v, ok := firstBoolArg(cn); ok {
						cfg.Import.AutoTransparency = v
					}
				case "merge_mats":
					if v, ok := firstBoolArg(cn); ok {
						cfg.Import.MergeMaterials = v
					}
				case "bake_uvs":
					if v, ok := firstBoolArg(cn); ok {
						cfg.Import.BakeUVs = v
					}
				case "tint":
					if s, ok := firstStringArg(cn); ok {
						cfg.Import.Tint = s
					}
				case "cull_degenerates":
					if v, ok := firstBoolArg(cn); ok {
						cfg.Import.CullDegenerates = v
					}
				case "cull_invalid":
					if v, ok := firstBoolArg(cn); ok {
						cfg.Import.CullInvalid = v
					}
				case "recompute_normals":
					if v, ok := firstBoolArg(cn); ok {
						cfg.Import.RecomputeNormals = v
					}
				case "fuse_vertices":
					if v, ok := firstBoolArg(cn); ok {
						cfg.Import.FuseVertices = v
					}
				}
			}
		}
	}
	return nil
}

// ParseMipmaps parses the "on", "off" or "min:<count>" flag syntax.
func ParseMipmaps(s string) (MipmapPolicy, error) {
	switch {
	case s == "on":
		return MipmapPolicy{Enabled: true, MinCount: 1}, nil
	case s == "off":
		return MipmapPolicy{}, nil
	case strings.HasPrefix(s, "min:"):
		n, err := strconv.Atoi(strings.TrimPrefix(s, "min:"))
		if err != nil || n < 0 {
			return MipmapPolicy{}, fmt.Errorf("invalid mipmap count in %q", s)
		}
		return MipmapPolicy{Enabled: true, MinCount: n}, nil
	}
	return MipmapPolicy{}, fmt.Errorf("invalid mipmaps setting %q (want on, off or min:<count>)", s)
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
