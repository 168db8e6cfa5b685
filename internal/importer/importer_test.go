package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvltools/rkit/internal/bmd"
	"github.com/rvltools/rkit/internal/config"
	"github.com/rvltools/rkit/internal/gx"
	"github.com/rvltools/rkit/internal/kmp"
)

func modelWithTriangles() *bmd.Model {
	m := bmd.New()
	j := m.Joints.AddNew()
	j.SetDisplayName("root")

	pos := &bmd.VertexBuffer{Attr: gx.Position, CompCount: 1, CompType: 4}
	pos.Floats = [][]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 0}}
	m.VertexBuffers = append(m.VertexBuffers, pos)

	sh := &bmd.Shape{}
	sh.VCD.Set(gx.Position, gx.TypeShort)
	mk := func(a, b, c uint16) []gx.Vertex {
		var out []gx.Vertex
		for _, idx := range []uint16{a, b, c} {
			var v gx.Vertex
			v.SetIndex(gx.Position, idx)
			out = append(out, v)
		}
		return out
	}
	tris := append(mk(0, 1, 2), mk(1, 1, 2)...)
	sh.MatrixPrimitives = []bmd.MatrixPrimitive{{
		Primitives: []gx.Primitive{{Type: gx.Triangles, Vertices: tris}},
	}}
	m.Shapes.Add(sh)
	return m
}

func TestApply_Scale(t *testing.T) {
	m := modelWithTriangles()
	m.Joints.Get(0).Translation = [3]float32{1, 2, 3}
	notes := Apply(m, config.ImportSettings{Scale: 2})
	assert.Empty(t, notes)
	assert.Equal(t, []float32{2, 0, 0}, m.BufferFor(gx.Position).Floats[1])
	assert.Equal(t, [3]float32{2, 4, 6}, m.Joints.Get(0).Translation)
}

func TestApply_BrawlboxScale(t *testing.T) {
	m := modelWithTriangles()
	Apply(m, config.ImportSettings{Scale: 1, BrawlboxScale: true})
	assert.Equal(t, []float32{BrawlboxScaleFactor, 0, 0}, m.BufferFor(gx.Position).Floats[1])
}

func TestApply_CullDegenerates(t *testing.T) {
	m := modelWithTriangles()
	notes := Apply(m, config.ImportSettings{Scale: 1, CullDegenerates: true})
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "culled 1 degenerate")

	prims := m.Shapes.Get(0).MatrixPrimitives[0].Primitives
	require.Len(t, prims, 1)
	assert.Len(t, prims[0].Vertices, 3, "only the healthy triangle survives")
}

func TestApply_FuseVertices(t *testing.T) {
	m := modelWithTriangles()
	notes := Apply(m, config.ImportSettings{Scale: 1, FuseVertices: true})
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "fused 1 duplicate")

	pos := m.BufferFor(gx.Position)
	assert.Equal(t, 3, pos.Len())
	// Index 3 (duplicate of 0) must have been remapped to 0 everywhere.
	for _, mp := range m.Shapes.Get(0).MatrixPrimitives {
		for _, prim := range mp.Primitives {
			for _, v := range prim.Vertices {
				assert.Less(t, int(v.Index(gx.Position)), 3)
			}
		}
	}
}

func TestApply_CullInvalid(t *testing.T) {
	m := modelWithTriangles()
	// Point one vertex past the buffer.
	m.Shapes.Get(0).MatrixPrimitives[0].Primitives[0].Vertices[0].SetIndex(gx.Position, 99)
	notes := Apply(m, config.ImportSettings{Scale: 1, CullInvalid: true})
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "out-of-range")
	assert.Empty(t, m.Shapes.Get(0).MatrixPrimitives[0].Primitives)
}

func TestApply_Tint(t *testing.T) {
	m := bmd.New()
	clr := &bmd.VertexBuffer{Attr: gx.Color0, CompCount: 1, CompType: 5}
	clr.Colors = [][4]uint8{{200, 100, 50, 255}}
	m.VertexBuffers = append(m.VertexBuffers, clr)

	notes := Apply(m, config.ImportSettings{Scale: 1, Tint: "#7F00FF"})
	assert.Empty(t, notes)
	c := m.BufferFor(gx.Color0).Colors[0]
	assert.InDelta(t, 99, int(c[0]), 1)
	assert.Equal(t, uint8(0), c[1])
	assert.Equal(t, uint8(50), c[2])
	assert.Equal(t, uint8(255), c[3], "alpha untouched")
}

func TestApply_InvalidTintNoted(t *testing.T) {
	m := bmd.New()
	notes := Apply(m, config.ImportSettings{Scale: 1, Tint: "red"})
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0], "invalid tint")
}

func TestApply_CourseScale(t *testing.T) {
	c := kmp.NewCourseMap()
	c.StartPoints.Add(&kmp.StartPoint{Position: kmp.Vec3{10, 0, -5}})
	notes := Apply(c, config.ImportSettings{Scale: 0.5})
	assert.Empty(t, notes)
	assert.Equal(t, kmp.Vec3{5, 0, -2.5}, c.StartPoints.Get(0).Position)
}

func TestApply_UnsupportedSettingsNoted(t *testing.T) {
	c := kmp.NewCourseMap()
	notes := Apply(c, config.ImportSettings{Scale: 1, FuseVertices: true, Tint: "#FFFFFF"})
	assert.Len(t, notes, 2)
}
