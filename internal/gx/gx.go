// Package gx decodes and encodes the GPU command streams ("display
// lists") that carry indexed geometry in J3D and G3D models.
package gx

import (
	"fmt"
)

// VertexAttribute names one channel of the vertex descriptor, in GPU
// attribute order. The order is contractual: per-vertex data is stored in
// exactly this sequence.
type VertexAttribute int

const (
	PositionNormalMatrixIndex VertexAttribute = iota
	Tex0MatrixIndex
	Tex1MatrixIndex
	Tex2MatrixIndex
	Tex3MatrixIndex
	Tex4MatrixIndex
	Tex5MatrixIndex
	Tex6MatrixIndex
	Tex7MatrixIndex
	Position
	Normal
	Color0
	Color1
	TexCoord0
	TexCoord1
	TexCoord2
	TexCoord3
	TexCoord4
	TexCoord5
	TexCoord6
	TexCoord7

	NumAttributes

	// Terminate ends a stored attribute list.
	Terminate VertexAttribute = 0xFF
)

var attrNames = map[VertexAttribute]string{
	PositionNormalMatrixIndex: "PNMTXIDX",
	Position:                  "POS",
	Normal:                    "NRM",
	Color0:                    "CLR0",
	Color1:                    "CLR1",
	TexCoord0:                 "TEX0",
	TexCoord1:                 "TEX1",
	TexCoord2:                 "TEX2",
	TexCoord3:                 "TEX3",
	TexCoord4:                 "TEX4",
	TexCoord5:                 "TEX5",
	TexCoord6:                 "TEX6",
	TexCoord7:                 "TEX7",
}

func (a VertexAttribute) String() string {
	if s, ok := attrNames[a]; ok {
		return s
	}
	return fmt.Sprintf("attr(%d)", int(a))
}

// AttributeType selects how one attribute's per-vertex payload is stored.
type AttributeType int

const (
	// TypeNone omits the attribute from the stream.
	TypeNone AttributeType = iota
	// TypeDirect stores the value inline. Only the position-normal
	// matrix index supports it, as an 8-bit value.
	TypeDirect
	// TypeByte stores an 8-bit index into the attribute's buffer.
	TypeByte
	// TypeShort stores a 16-bit index into the attribute's buffer.
	TypeShort
)

// PrimitiveType is a GX draw opcode's topology.
type PrimitiveType int

const (
	Quads PrimitiveType = iota
	Triangles
	TriangleStrip
	TriangleFan
	Lines
	LineStrip
	Points
)

var primOpcodes = map[PrimitiveType]uint8{
	Quads:         0x80,
	Triangles:     0x90,
	TriangleStrip: 0x98,
	TriangleFan:   0xA0,
	Lines:         0xA8,
	LineStrip:     0xB0,
	Points:        0xB8,
}

// Opcode returns the draw opcode byte for the primitive type (VAT 0).
func (p PrimitiveType) Opcode() uint8 { return primOpcodes[p] }

func primFromOpcode(op uint8) (PrimitiveType, bool) {
	switch op &^ 0x07 {
	case 0x80:
		return Quads, true
	case 0x90:
		return Triangles, true
	case 0x98:
		return TriangleStrip, true
	case 0xA0:
		return TriangleFan, true
	case 0xA8:
		return Lines, true
	case 0xB0:
		return LineStrip, true
	case 0xB8:
		return Points, true
	}
	return 0, false
}

// VertexDescriptor lists which attributes a stream carries and how each
// one is encoded, in attribute order.
type VertexDescriptor struct {
	types [NumAttributes]AttributeType
}

// Set records the encoding of one attribute.
func (d *VertexDescriptor) Set(a VertexAttribute, t AttributeType) {
	d.types[a] = t
}

// Get returns the encoding of one attribute.
func (d *VertexDescriptor) Get(a VertexAttribute) AttributeType {
	return d.types[a]
}

// Has reports whether the attribute is present in the stream.
func (d *VertexDescriptor) Has(a VertexAttribute) bool {
	return d.types[a] != TypeNone
}

// Active returns the present attributes in stream order.
func (d *VertexDescriptor) Active() []VertexAttribute {
	var out []VertexAttribute
	for a := VertexAttribute(0); a < NumAttributes; a++ {
		if d.types[a] != TypeNone {
			out = append(out, a)
		}
	}
	return out
}

// Vertex holds one vertex's index per present attribute.
type Vertex struct {
	indices [NumAttributes]uint16
}

// Index returns the stored index for an attribute.
func (v *Vertex) Index(a VertexAttribute) uint16 { return v.indices[a] }

// SetIndex stores the index for an attribute.
func (v *Vertex) SetIndex(a VertexAttribute, idx uint16) { v.indices[a] = idx }

// Primitive is one decoded draw command.
type Primitive struct {
	Type     PrimitiveType
	Vertices []Vertex
}
