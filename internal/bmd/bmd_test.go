package bmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvltools/rkit/internal/gx"
	"github.com/rvltools/rkit/internal/rerr"
)

func emptyModel() *Model {
	m := New()
	j := &Joint{Scale: [3]float32{1, 1, 1}, Parent: -1}
	j.SetDisplayName("root")
	m.Joints.Add(j)
	return m
}

func TestEmptyModel_WriteReadEquals(t *testing.T) {
	m := emptyModel()
	data, err := Write(m)
	require.NoError(t, err)

	got, err := Read(data)
	require.NoError(t, err)

	require.Equal(t, 1, got.Joints.Len())
	j := got.Joints.Get(0)
	assert.Equal(t, "root", j.DisplayName())
	assert.Equal(t, [3]float32{1, 1, 1}, j.Scale)
	assert.Equal(t, [3]int16{0, 0, 0}, j.Rotation)
	assert.Equal(t, [3]float32{0, 0, 0}, j.Translation)
	assert.Equal(t, int16(-1), j.Parent)
	assert.Equal(t, BillboardNone, j.Billboard)
	assert.False(t, j.MayaSSC())
	assert.Equal(t, 0, got.Shapes.Len())
	assert.Equal(t, 0, got.Materials.Len())
}

func TestWriteReadWrite_ByteExact(t *testing.T) {
	data, err := Write(sampleModel())
	require.NoError(t, err)
	doc, err := Read(data)
	require.NoError(t, err)
	again, err := Write(doc)
	require.NoError(t, err)
	assert.Equal(t, data, again, "write(read(bytes)) must be byte-identical")
}

func sampleModel() *Model {
	m := New()
	root := &Joint{Scale: [3]float32{1, 1, 1}, Parent: -1, BoundingRadius: 100}
	root.SetDisplayName("skl_root")
	arm := &Joint{Scale: [3]float32{1, 1, 1}, Parent: 0, Translation: [3]float32{0, 5, 0}}
	arm.SetDisplayName("arm_l")
	root.Children = []uint16{1}
	m.Joints.Add(root)
	m.Joints.Add(arm)

	pos := &VertexBuffer{Attr: gx.Position, CompCount: 1, CompType: 3, Shift: 8}
	pos.Floats = [][]float32{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0.5, 0.25, 0},
	}
	m.VertexBuffers = append(m.VertexBuffers, pos)

	clr := &VertexBuffer{Attr: gx.Color0, CompCount: 1, CompType: 5}
	clr.Colors = [][4]uint8{{255, 0, 0, 255}, {0, 255, 0, 128}, {12, 34, 56, 78}, {1, 2, 3, 4}}
	m.VertexBuffers = append(m.VertexBuffers, clr)

	m.DrawMatrices = []DrawMatrix{
		{Influences: []Influence{{JointIndex: 0, Weight: 1}}},
		{Influences: []Influence{{JointIndex: 0, Weight: 0.25}, {JointIndex: 1, Weight: 0.75}}},
	}
	m.InverseBinds = [][12]float32{
		{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0},
		{1, 0, 0, 0, 0, 1, 0, -5, 0, 0, 1, 0},
	}

	sh := &Shape{BoundingRadius: 2}
	sh.VCD.Set(gx.PositionNormalMatrixIndex, gx.TypeDirect)
	sh.VCD.Set(gx.Position, gx.TypeShort)
	sh.VCD.Set(gx.Color0, gx.TypeByte)
	var verts []gx.Vertex
	for i := 0; i < 4; i++ {
		var v gx.Vertex
		v.SetIndex(gx.PositionNormalMatrixIndex, uint16((i%2)*3))
		v.SetIndex(gx.Position, uint16(i))
		v.SetIndex(gx.Color0, uint16(i))
		verts = append(verts, v)
	}
	sh.MatrixPrimitives = []MatrixPrimitive{{
		CurrentMatrix: 0,
		MatrixIndices: []uint16{0, 1},
		Primitives: []gx.Primitive{
			{Type: gx.Triangles, Vertices: verts[:3]},
			{Type: gx.TriangleStrip, Vertices: verts},
		},
	}}
	m.Shapes.Add(sh)
	return m
}

func TestSampleModel_RoundTripSemantics(t *testing.T) {
	m := sampleModel()
	data, err := Write(m)
	require.NoError(t, err)
	got, err := Read(data)
	require.NoError(t, err)

	require.Equal(t, 2, got.Joints.Len())
	assert.Equal(t, "arm_l", got.Joints.Get(1).DisplayName())
	assert.Equal(t, int16(0), got.Joints.Get(1).Parent)
	assert.Equal(t, []uint16{1}, got.Joints.Get(0).Children)

	// Vertex buffers: the s16/shift-8 quantization is exact for these
	// values.
	pos := got.BufferFor(gx.Position)
	require.NotNil(t, pos)
	require.Equal(t, 4, pos.Len())
	assert.Equal(t, []float32{0.5, 0.25, 0}, pos.Floats[3])

	clr := got.BufferFor(gx.Color0)
	require.NotNil(t, clr)
	assert.Equal(t, [4]uint8{12, 34, 56, 78}, clr.Colors[2])

	// Draw matrices: singlebound plus one weighted envelope.
	require.Len(t, got.DrawMatrices, 2)
	assert.True(t, got.DrawMatrices[0].IsSinglebound())
	require.Len(t, got.DrawMatrices[1].Influences, 2)
	assert.Equal(t, float32(0.75), got.DrawMatrices[1].Influences[1].Weight)
	require.Len(t, got.Envelopes, 1)
	require.Len(t, got.InverseBinds, 2)
	assert.Equal(t, float32(-5), got.InverseBinds[1][7])

	require.Equal(t, 1, got.Shapes.Len())
	sh := got.Shapes.Get(0)
	require.Len(t, sh.MatrixPrimitives, 1)
	assert.Equal(t, []uint16{0, 1}, sh.MatrixPrimitives[0].MatrixIndices)
	require.Len(t, sh.MatrixPrimitives[0].Primitives, 2)
	assert.Equal(t, gx.TriangleStrip, sh.MatrixPrimitives[0].Primitives[1].Type)
	assert.True(t, sh.EqualsObject(m.Shapes.Get(0)))
}

func TestGreedyBufferTruncation(t *testing.T) {
	m := sampleModel()
	// Simulate greedy padding claims: extra entries past the highest
	// referenced index.
	pos := m.BufferFor(gx.Position)
	pos.Floats = append(pos.Floats, []float32{9, 9, 9}, []float32{8, 8, 8})
	require.Equal(t, 6, pos.Len())

	m.TruncateGreedyBuffers()
	assert.Equal(t, 4, pos.Len(), "max_index+1 entries survive")
}

func TestMaxIndexInvariant_AfterRead(t *testing.T) {
	data, err := Write(sampleModel())
	require.NoError(t, err)
	m, err := Read(data)
	require.NoError(t, err)

	for _, sh := range m.Shapes.All() {
		for _, buf := range m.VertexBuffers {
			if !sh.VCD.Has(buf.Attr) {
				continue
			}
			for _, mp := range sh.MatrixPrimitives {
				if idx, ok := gx.MaxIndex(mp.Primitives, buf.Attr); ok {
					assert.Less(t, int(idx), buf.Len(),
						"every referenced index must fall inside the buffer")
				}
			}
		}
	}
}

func TestRead_RejectsBadVersion(t *testing.T) {
	data, err := Write(emptyModel())
	require.NoError(t, err)
	copy(data[4:8], "bmd9")
	_, err = Read(data)
	var verr *rerr.VersionError
	assert.ErrorAs(t, err, &verr)
}

func TestRead_RejectsBadMagic(t *testing.T) {
	_, err := Read([]byte("J3D1bmd3\x00\x00\x00\x00"))
	var magicErr *rerr.MagicError
	assert.ErrorAs(t, err, &magicErr)
}

func TestRead_WarnsUnknownSection(t *testing.T) {
	data, err := Write(emptyModel())
	require.NoError(t, err)

	// Append a fake section and bump the count.
	extra := []byte("XYZ1\x00\x00\x00\x10........")
	data = append(data, extra...)
	secCount := int(data[12])<<24 | int(data[13])<<16 | int(data[14])<<8 | int(data[15])
	data[15] = byte(secCount + 1)

	m, err := Read(data)
	require.NoError(t, err)
	require.NotEmpty(t, m.Warnings)
	assert.Contains(t, m.Warnings[0], "XYZ1")
}

func TestRead_TruncatedSection(t *testing.T) {
	data, err := Write(emptyModel())
	require.NoError(t, err)
	_, err = Read(data[:len(data)-24])
	assert.Error(t, err)
}

func TestPadString_IsUsedForSectionAlignment(t *testing.T) {
	data, err := Write(emptyModel())
	require.NoError(t, err)
	assert.True(t, bytes.Contains(data, []byte("This is padding")),
		"J3D section alignment must carry the retail pad string")
}

func TestHierarchySynthesis(t *testing.T) {
	m := emptyModel()
	_, err := Write(m)
	require.NoError(t, err)
	require.NotEmpty(t, m.Hierarchy)
	assert.Equal(t, HierarchyJoint, m.Hierarchy[0].Op)
	assert.Equal(t, HierarchyEnd, m.Hierarchy[len(m.Hierarchy)-1].Op)
}
