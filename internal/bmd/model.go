// Package bmd reads and writes J3D binary models (BMD/BDL). Reading is
// two-phase: a lex pass records every recognized section's position, then
// each section handler decodes independently so forward references work.
package bmd

import (
	"github.com/rvltools/rkit/internal/document"
	"github.com/rvltools/rkit/internal/gx"
)

// ScalingRule is the INF1 hierarchy scaling convention.
type ScalingRule uint16

const (
	ScalingBasic ScalingRule = iota
	ScalingXSI
	ScalingMaya
)

// BillboardMode is a joint's view-alignment behavior.
type BillboardMode uint8

const (
	BillboardNone BillboardMode = iota
	BillboardXY
	BillboardY
)

// HierarchyOp is one INF1 scene-graph opcode.
type HierarchyOp uint16

const (
	HierarchyEnd      HierarchyOp = 0x00
	HierarchyOpen     HierarchyOp = 0x01
	HierarchyClose    HierarchyOp = 0x02
	HierarchyJoint    HierarchyOp = 0x10
	HierarchyMaterial HierarchyOp = 0x11
	HierarchyShape    HierarchyOp = 0x12
)

// HierarchyNode is one decoded INF1 pair.
type HierarchyNode struct {
	Op    HierarchyOp
	Index uint16
}

// VertexBuffer is one independently quantized vertex array. Scalar
// formats decode to floats (exact for the integer formats at any shift);
// color formats decode to RGBA quads.
type VertexBuffer struct {
	Attr      gx.VertexAttribute
	CompCount uint32 // raw GX component-count enum
	CompType  uint32 // raw GX component-type enum
	Shift     uint8

	Floats [][]float32 // position/normal/texcoord payload
	Colors [][4]uint8  // color payload
}

// Len returns the entry count.
func (b *VertexBuffer) Len() int {
	if b.Colors != nil {
		return len(b.Colors)
	}
	return len(b.Floats)
}

// Truncate drops entries past n; the post-read shape scan uses this to
// shed greedily claimed padding entries.
func (b *VertexBuffer) Truncate(n int) {
	if b.Colors != nil && len(b.Colors) > n {
		b.Colors = b.Colors[:n]
	}
	if b.Floats != nil && len(b.Floats) > n {
		b.Floats = b.Floats[:n]
	}
}

// Influence is one weighted joint contribution.
type Influence struct {
	JointIndex uint16
	Weight     float32
}

// DrawMatrix is one unified skinning matrix: a single-joint bind shows as
// one influence of weight 1.
type DrawMatrix struct {
	Influences []Influence
}

// IsSinglebound reports whether the matrix is one unweighted joint.
func (d *DrawMatrix) IsSinglebound() bool {
	return len(d.Influences) == 1 && d.Influences[0].Weight == 1
}

// Joint is one JNT1 entry plus the tree links recovered from INF1.
type Joint struct {
	document.ObjectBase
	Flag           uint16
	Billboard      BillboardMode
	Scale          [3]float32
	Rotation       [3]int16 // binary angles
	Translation    [3]float32
	BoundingRadius float32
	BBoxMin        [3]float32
	BBoxMax        [3]float32

	Parent   int16 // -1 for the root
	Children []uint16
}

// MayaSSC reports the Maya segment-scale-compensation bit.
func (j *Joint) MayaSSC() bool { return j.Flag&1 != 0 }

func (j *Joint) CloneObject() document.Object {
	c := *j
	c.ObjectBase = j.CloneBase()
	c.Children = append([]uint16(nil), j.Children...)
	return &c
}

func (j *Joint) EqualsObject(other document.Object) bool {
	o, ok := other.(*Joint)
	if !ok || o.DisplayName() != j.DisplayName() {
		return false
	}
	if o.Flag != j.Flag || o.Billboard != j.Billboard || o.Scale != j.Scale ||
		o.Rotation != j.Rotation || o.Translation != j.Translation ||
		o.BoundingRadius != j.BoundingRadius || o.BBoxMin != j.BBoxMin ||
		o.BBoxMax != j.BBoxMax || o.Parent != j.Parent || len(o.Children) != len(j.Children) {
		return false
	}
	for i := range j.Children {
		if o.Children[i] != j.Children[i] {
			return false
		}
	}
	return true
}

// MatrixPrimitive is a display-list chunk bound to a small table of draw
// matrices.
type MatrixPrimitive struct {
	CurrentMatrix uint16
	MatrixIndices []uint16
	Primitives    []gx.Primitive
}

// Shape is one SHP1 entry.
type Shape struct {
	document.ObjectBase
	DispFlags        uint8
	VCD              gx.VertexDescriptor
	BoundingRadius   float32
	BBoxMin          [3]float32
	BBoxMax          [3]float32
	MatrixPrimitives []MatrixPrimitive
}

func (s *Shape) CloneObject() document.Object {
	c := *s
	c.ObjectBase = s.CloneBase()
	c.MatrixPrimitives = make([]MatrixPrimitive, len(s.MatrixPrimitives))
	for i, mp := range s.MatrixPrimitives {
		c.MatrixPrimitives[i] = MatrixPrimitive{
			CurrentMatrix: mp.CurrentMatrix,
			MatrixIndices: append([]uint16(nil), mp.MatrixIndices...),
			Primitives:    append([]gx.Primitive(nil), mp.Primitives...),
		}
	}
	return &c
}

func (s *Shape) EqualsObject(other document.Object) bool {
	o, ok := other.(*Shape)
	if !ok || o.DispFlags != s.DispFlags || o.VCD != s.VCD ||
		o.BoundingRadius != s.BoundingRadius || o.BBoxMin != s.BBoxMin || o.BBoxMax != s.BBoxMax ||
		len(o.MatrixPrimitives) != len(s.MatrixPrimitives) {
		return false
	}
	for i := range s.MatrixPrimitives {
		a, b := &s.MatrixPrimitives[i], &o.MatrixPrimitives[i]
		if a.CurrentMatrix != b.CurrentMatrix || len(a.MatrixIndices) != len(b.MatrixIndices) ||
			len(a.Primitives) != len(b.Primitives) {
			return false
		}
		for j := range a.MatrixIndices {
			if a.MatrixIndices[j] != b.MatrixIndices[j] {
				return false
			}
		}
		for j := range a.Primitives {
			if a.Primitives[j].Type != b.Primitives[j].Type ||
				len(a.Primitives[j].Vertices) != len(b.Primitives[j].Vertices) {
				return false
			}
			for k := range a.Primitives[j].Vertices {
				if a.Primitives[j].Vertices[k] != b.Primitives[j].Vertices[k] {
					return false
				}
			}
		}
	}
	return true
}

// Material is one MAT3 slot after LUT expansion: the name plus its index
// into the section's preserved body.
type Material struct {
	document.ObjectBase
	EntryIndex uint16 // index into the unique material bodies
}

func (m *Material) CloneObject() document.Object {
	c := *m
	c.ObjectBase = m.CloneBase()
	return &c
}

func (m *Material) EqualsObject(other document.Object) bool {
	o, ok := other.(*Material)
	return ok && o.EntryIndex == m.EntryIndex && o.DisplayName() == m.DisplayName()
}

// Texture is one TEX1 slot: the name plus decoded header fields for
// display; pixel data stays inside the preserved section body.
type Texture struct {
	document.ObjectBase
	Format uint8
	Width  uint16
	Height uint16
}

func (t *Texture) CloneObject() document.Object {
	c := *t
	c.ObjectBase = t.CloneBase()
	return &c
}

func (t *Texture) EqualsObject(other document.Object) bool {
	o, ok := other.(*Texture)
	return ok && o.Format == t.Format && o.Width == t.Width && o.Height == t.Height &&
		o.DisplayName() == t.DisplayName()
}

// Model is the J3D document root.
type Model struct {
	document.Collection

	Joints    *document.TypedFolder[*Joint]
	Materials *document.TypedFolder[*Material]
	Shapes    *document.TypedFolder[*Shape]
	Textures  *document.TypedFolder[*Texture]

	// BDL reports whether the source carried the 'bdl4' version (and an
	// MDL3 section, preserved in MDL3Blob).
	BDL bool
	// InfoFlag is the raw INF1 flag word; the low nibble is the scaling
	// rule, the high bits are preserved untouched.
	InfoFlag  uint16
	Scaling   ScalingRule
	Hierarchy []HierarchyNode

	// Vertex buffers in VTX1 declaration order.
	VertexBuffers []*VertexBuffer

	DrawMatrices []DrawMatrix
	Envelopes    []Envelope
	// InverseBinds holds EVP1's 3x4 inverse-bind matrices, indexed by
	// joint, flattened row-major.
	InverseBinds [][12]float32

	// ShapeRemap preserves SHP1's id remap table verbatim.
	ShapeRemap []uint16
	// JointRemap preserves JNT1's remap table verbatim.
	JointRemap []uint16

	// Section bodies preserved verbatim (see DESIGN.md): material and
	// texture bodies are bit-exact blobs; names are decoded for the
	// document tree.
	MAT3Blob []byte
	TEX1Blob []byte
	MDL3Blob []byte

	// Warnings collected during read, forwarded to the transaction.
	Warnings []string
}

// Envelope is one EVP1 entry: a weighted set of joints.
type Envelope struct {
	Influences []Influence
}

// New builds an empty J3D document.
func New() *Model {
	m := &Model{
		Joints:    document.NewFolder("j3d/joint", func() *Joint { return &Joint{Scale: [3]float32{1, 1, 1}, Parent: -1} }),
		Materials: document.NewFolder("j3d/material", func() *Material { return &Material{} }),
		Shapes:    document.NewFolder("j3d/shape", func() *Shape { return &Shape{} }),
		Textures:  document.NewFolder("j3d/texture", func() *Texture { return &Texture{} }),
	}
	m.RegisterFolder(m.Joints)
	m.RegisterFolder(m.Materials)
	m.RegisterFolder(m.Shapes)
	m.RegisterFolder(m.Textures)
	return m
}

// BufferFor returns the vertex buffer for an attribute, or nil.
func (m *Model) BufferFor(attr gx.VertexAttribute) *VertexBuffer {
	for _, b := range m.VertexBuffers {
		if b.Attr == attr {
			return b
		}
	}
	return nil
}

// TruncateGreedyBuffers is the explicit post-read step that rescues the
// 32-byte greedy VTX1 reads: every shape's indices are scanned and each
// buffer is cut down to max_index+1.
func (m *Model) TruncateGreedyBuffers() {
	for _, buf := range m.VertexBuffers {
		maxIdx := -1
		for _, s := range m.Shapes.All() {
			for _, mp := range s.MatrixPrimitives {
				if idx, ok := gx.MaxIndex(mp.Primitives, buf.Attr); ok && s.VCD.Has(buf.Attr) {
					if int(idx) > maxIdx {
						maxIdx = int(idx)
					}
				}
			}
		}
		if maxIdx >= 0 {
			buf.Truncate(maxIdx + 1)
		}
	}
}
