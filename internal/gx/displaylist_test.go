package gx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvltools/rkit/internal/rerr"
	"github.com/rvltools/rkit/internal/stream"
)

func testVCD() *VertexDescriptor {
	vcd := &VertexDescriptor{}
	vcd.Set(PositionNormalMatrixIndex, TypeDirect)
	vcd.Set(Position, TypeShort)
	vcd.Set(Normal, TypeShort)
	vcd.Set(TexCoord0, TypeByte)
	return vcd
}

func TestDecode_TriangleWithAttributes(t *testing.T) {
	vcd := testVCD()
	data := []byte{
		0x90, 0x00, 0x03, // triangles, 3 vertices
		// vertex 0: pnm=0, pos=0x0001, nrm=0x0002, tex0=3
		0x00, 0x00, 0x01, 0x00, 0x02, 0x03,
		// vertex 1
		0x03, 0x00, 0x04, 0x00, 0x05, 0x06,
		// vertex 2
		0x06, 0x01, 0x00, 0x00, 0x08, 0x09,
		0x00, 0x00, // trailing pad
	}

	prims, err := DecodeDisplayList(data, vcd)
	require.NoError(t, err)
	require.Len(t, prims, 1)
	assert.Equal(t, Triangles, prims[0].Type)
	require.Len(t, prims[0].Vertices, 3)

	v1 := prims[0].Vertices[1]
	assert.Equal(t, uint16(3), v1.Index(PositionNormalMatrixIndex))
	assert.Equal(t, uint16(4), v1.Index(Position))
	assert.Equal(t, uint16(5), v1.Index(Normal))
	assert.Equal(t, uint16(6), v1.Index(TexCoord0))

	assert.Equal(t, uint16(0x100), prims[0].Vertices[2].Index(Position))
}

func TestDecode_UnknownOpcode(t *testing.T) {
	vcd := testVCD()
	_, err := DecodeDisplayList([]byte{0x61, 0x00, 0x00}, vcd)
	var malformed *rerr.MalformedError
	require.ErrorAs(t, err, &malformed)
}

func TestDecode_DirectOnlyForMatrixIndex(t *testing.T) {
	vcd := &VertexDescriptor{}
	vcd.Set(Position, TypeDirect)
	_, err := DecodeDisplayList([]byte{0x90, 0x00, 0x01, 0x00}, vcd)
	var malformed *rerr.MalformedError
	require.ErrorAs(t, err, &malformed)
}

func TestDecode_Truncated(t *testing.T) {
	vcd := testVCD()
	_, err := DecodeDisplayList([]byte{0x90, 0x00, 0x02, 0x00, 0x00}, vcd)
	assert.ErrorIs(t, err, rerr.ErrEOF)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	vcd := testVCD()
	var v0, v1, v2, v3 Vertex
	for i, v := range []*Vertex{&v0, &v1, &v2, &v3} {
		v.SetIndex(PositionNormalMatrixIndex, uint16(i*3))
		v.SetIndex(Position, uint16(100+i))
		v.SetIndex(Normal, uint16(i))
		v.SetIndex(TexCoord0, uint16(200+i))
	}
	prims := []Primitive{
		{Type: TriangleStrip, Vertices: []Vertex{v0, v1, v2, v3}},
		{Type: TriangleFan, Vertices: []Vertex{v0, v2, v3}},
	}

	w := stream.NewWriter()
	require.NoError(t, EncodeDisplayList(w, prims, vcd))
	out, err := w.Finalize()
	require.NoError(t, err)

	got, err := DecodeDisplayList(out, vcd)
	require.NoError(t, err)
	assert.Equal(t, prims, got)
}

func TestMaxIndex(t *testing.T) {
	var a, b Vertex
	a.SetIndex(Position, 7)
	b.SetIndex(Position, 3)
	prims := []Primitive{{Type: Points, Vertices: []Vertex{a, b}}}

	max, ok := MaxIndex(prims, Position)
	require.True(t, ok)
	assert.Equal(t, uint16(7), max)

	_, ok = MaxIndex(nil, Position)
	assert.False(t, ok)
}

func TestVertexDescriptor_ActiveOrder(t *testing.T) {
	vcd := testVCD()
	assert.Equal(t,
		[]VertexAttribute{PositionNormalMatrixIndex, Position, Normal, TexCoord0},
		vcd.Active(), "attributes iterate in GPU order")
}
