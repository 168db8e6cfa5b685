// Package importer applies import-time settings (scale, tint, geometry
// cleanup) to a freshly read document. Settings that do not apply to a
// document kind are reported back as notes rather than silently ignored,
// with these exceptions: mipmaps, auto_transparency and bake_uvs are not
// read here and never produce a note, and cull_invalid produces no note
// for documents other than BMD models.
package importer

import (
	"fmt"
	"strconv"

	"github.com/rvltools/rkit/internal/bmd"
	"github.com/rvltools/rkit/internal/config"
	"github.com/rvltools/rkit/internal/document"
	"github.com/rvltools/rkit/internal/gx"
	"github.com/rvltools/rkit/internal/kmp"
)

// BrawlboxScaleFactor compensates for the magnification older BrawlBox
// exports bake into models.
const BrawlboxScaleFactor = 16.0

// Apply mutates doc according to the settings and returns notes about
// settings that had no effect.
func Apply(doc document.Node, s config.ImportSettings) []string {
	scale := s.Scale
	if s.BrawlboxScale {
		scale *= BrawlboxScaleFactor
	}

	switch d := doc.(type) {
	case *bmd.Model:
		return applyModel(d, s, float32(scale))
	case *kmp.CourseMap:
		var notes []string
		if scale != 1 {
			scaleCourse(d, float32(scale))
		}
		notes = appendUnsupported(notes, s, "course data",
			s.Tint != "", s.CullDegenerates, s.FuseVertices, s.RecomputeNormals, s.MergeMaterials)
		return notes
	default:
		var notes []string
		if scale != 1 {
			notes = append(notes, "scale has no effect for this format")
		}
		notes = appendUnsupported(notes, s, "this format",
			s.Tint != "", s.CullDegenerates, s.FuseVertices, s.RecomputeNormals, s.MergeMaterials)
		return notes
	}
}

func appendUnsupported(notes []string, _ config.ImportSettings, what string, flags ...bool) []string {
	labels := []string{"tint", "cull_degenerates", "fuse_vertices", "recompute_normals", "merge_mats"}
	for i, set := range flags {
		if set {
			notes = append(notes, fmt.Sprintf("%s has no effect for %s", labels[i], what))
		}
	}
	return notes
}

func applyModel(m *bmd.Model, s config.ImportSettings, scale float32) []string {
	var notes []string
	if scale != 1 {
		scaleModel(m, scale)
	}
	if s.Tint != "" {
		if r, g, b, ok := parseTint(s.Tint); ok {
			tintModel(m, r, g, b)
		} else {
			notes = append(notes, fmt.Sprintf("invalid tint %q ignored", s.Tint))
		}
	}
	if s.CullDegenerates {
		if n := cullDegenerates(m); n > 0 {
			notes = append(notes, fmt.Sprintf("culled %d degenerate triangles", n))
		}
	}
	if s.CullInvalid {
		if n := cullInvalid(m); n > 0 {
			notes = append(notes, fmt.Sprintf("culled %d primitives with out-of-range indices", n))
		}
	}
	if s.FuseVertices {
		if n := fuseVertices(m); n > 0 {
			notes = append(notes, fmt.Sprintf("fused %d duplicate positions", n))
		}
	}
	if s.RecomputeNormals {
		notes = append(notes, "recompute_normals requires mesh import and has no effect on binary models")
	}
	if s.MergeMaterials {
		notes = append(notes, "merge_mats has no effect on preserved material bodies")
	}
	return notes
}

func scaleModel(m *bmd.Model, scale float32) {
	if pos := m.BufferFor(gx.Position); pos != nil {
		for _, entry := range pos.Floats {
			for i := range entry {
				entry[i] *= scale
			}
		}
	}
	for _, j := range m.Joints.All() {
		for i := range j.Translation {
			j.Translation[i] *= scale
		}
		j.BoundingRadius *= scale
		for i := range j.BBoxMin {
			j.BBoxMin[i] *= scale
			j.BBoxMax[i] *= scale
		}
	}
	for _, sh := range m.Shapes.All() {
		sh.BoundingRadius *= scale
		for i := range sh.BBoxMin {
			sh.BBoxMin[i] *= scale
			sh.BBoxMax[i] *= scale
		}
	}
	for i := range m.InverseBinds {
		// Scale the translation column of each 3x4 matrix.
		m.InverseBinds[i][3] *= scale
		m.InverseBinds[i][7] *= scale
		m.InverseBinds[i][11] *= scale
	}
}

func scaleCourse(c *kmp.CourseMap, scale float32) {
	mul := func(v *kmp.Vec3) {
		v.X *= scale
		v.Y *= scale
		v.Z *= scale
	}
	for _, p := range c.StartPoints.All() {
		mul(&p.Position)
	}
	for _, path := range c.EnemyPaths.All() {
		for i := range path.Points {
			mul(&path.Points[i].Position)
		}
	}
	for _, path := range c.ItemPaths.All() {
		for i := range path.Points {
			mul(&path.Points[i].Position)
		}
	}
	for _, path := range c.CheckPaths.All() {
		for i := range path.Points {
			p := &path.Points[i]
			p.LeftX *= scale
			p.LeftZ *= scale
			p.RightX *= scale
			p.RightZ *= scale
		}
	}
	for _, rail := range c.Rails.All() {
		for i := range rail.Points {
			mul(&rail.Points[i].Position)
		}
	}
	for _, g := range c.GeoObjs.All() {
		mul(&g.Position)
	}
	for _, a := range c.Areas.All() {
		mul(&a.Position)
	}
	for _, cam := range c.Cameras.All() {
		mul(&cam.Position)
		mul(&cam.ViewStart)
		mul(&cam.ViewEnd)
	}
	for _, p := range c.RespawnPoints.All() {
		mul(&p.Position)
	}
	for _, p := range c.CannonPoints.All() {
		mul(&p.Position)
	}
	for _, p := range c.MissionPoints.All() {
		mul(&p.Position)
	}
}

func parseTint(s string) (r, g, b float32, ok bool) {
	if len(s) != 7 || s[0] != '#' {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return float32(v>>16&0xFF) / 255, float32(v>>8&0xFF) / 255, float32(v&0xFF) / 255, true
}

func tintModel(m *bmd.Model, r, g, b float32) {
	for _, attr := range []gx.VertexAttribute{gx.Color0, gx.Color1} {
		buf := m.BufferFor(attr)
		if buf == nil {
			continue
		}
		for i := range buf.Colors {
			c := &buf.Colors[i]
			c[0] = uint8(float32(c[0]) * r)
			c[1] = uint8(float32(c[1]) * g)
			c[2] = uint8(float32(c[2]) * b)
		}
	}
}

// cullDegenerates removes triangles that reference the same position
// twice.
func cullDegenerates(m *bmd.Model) int {
	culled := 0
	for _, sh := range m.Shapes.All() {
		if !sh.VCD.Has(gx.Position) {
			continue
		}
		for mi := range sh.MatrixPrimitives {
			mp := &sh.MatrixPrimitives[mi]
			kept := mp.Primitives[:0]
			for _, prim := range mp.Primitives {
				if prim.Type != gx.Triangles {
					kept = append(kept, prim)
					continue
				}
				verts := prim.Vertices[:0]
				for t := 0; t+3 <= len(prim.Vertices); t += 3 {
					a := prim.Vertices[t].Index(gx.Position)
					b := prim.Vertices[t+1].Index(gx.Position)
					c := prim.Vertices[t+2].Index(gx.Position)
					if a == b || b == c || a == c {
						culled++
						continue
					}
					verts = append(verts, prim.Vertices[t], prim.Vertices[t+1], prim.Vertices[t+2])
				}
				prim.Vertices = verts
				if len(prim.Vertices) > 0 {
					kept = append(kept, prim)
				}
			}
			mp.Primitives = kept
		}
	}
	return culled
}

// cullInvalid removes primitives whose indices fall outside their
// buffers.
func cullInvalid(m *bmd.Model) int {
	culled := 0
	for _, sh := range m.Shapes.All() {
		for mi := range sh.MatrixPrimitives {
			mp := &sh.MatrixPrimitives[mi]
			kept := mp.Primitives[:0]
		primLoop:
			for _, prim := range mp.Primitives {
				for _, buf := range m.VertexBuffers {
					if !sh.VCD.Has(buf.Attr) {
						continue
					}
					if idx, ok := gx.MaxIndex([]gx.Primitive{prim}, buf.Attr); ok && int(idx) >= buf.Len() {
						culled++
						continue primLoop
					}
				}
				kept = append(kept, prim)
			}
			mp.Primitives = kept
		}
	}
	return culled
}

// fuseVertices merges positionally identical entries in the position
// buffer and remaps every shape index.
func fuseVertices(m *bmd.Model) int {
	pos := m.BufferFor(gx.Position)
	if pos == nil || pos.Floats == nil {
		return 0
	}
	remap := make([]uint16, len(pos.Floats))
	index := map[string]uint16{}
	var fused [][]float32
	for i, entry := range pos.Floats {
		k := fmt.Sprint(entry)
		if at, ok := index[k]; ok {
			remap[i] = at
			continue
		}
		at := uint16(len(fused))
		index[k] = at
		fused = append(fused, entry)
		remap[i] = at
	}
	removed := len(pos.Floats) - len(fused)
	if removed == 0 {
		return 0
	}
	pos.Floats = fused
	for _, sh := range m.Shapes.All() {
		if !sh.VCD.Has(gx.Position) {
			continue
		}
		for mi := range sh.MatrixPrimitives {
			mp := &sh.MatrixPrimitives[mi]
			for pi := range mp.Primitives {
				for vi := range mp.Primitives[pi].Vertices {
					v := &mp.Primitives[pi].Vertices[vi]
					v.SetIndex(gx.Position, remap[v.Index(gx.Position)])
				}
			}
		}
	}
	return removed
}
