package brres

import (
	"math"

	"github.com/rvltools/rkit/internal/document"
	"github.com/rvltools/rkit/internal/gx"
	"github.com/rvltools/rkit/internal/names"
	"github.com/rvltools/rkit/internal/rerr"
	"github.com/rvltools/rkit/internal/stream"
)

// ModelBuffer is one named, independently quantized vertex array
// (positions, normals or texture coordinates). Integer formats decode to
// floats exactly at any divisor, so re-encoding is bit-stable.
type ModelBuffer struct {
	Name      string
	CompCount uint32 // raw GX component-count enum
	CompType  uint32 // raw GX component-type enum
	Divisor   uint8
	Floats    [][]float32
}

func (b *ModelBuffer) equal(o *ModelBuffer) bool {
	if b.Name != o.Name || b.CompCount != o.CompCount || b.CompType != o.CompType ||
		b.Divisor != o.Divisor || len(b.Floats) != len(o.Floats) {
		return false
	}
	for i := range b.Floats {
		if len(b.Floats[i]) != len(o.Floats[i]) {
			return false
		}
		for c := range b.Floats[i] {
			if b.Floats[i][c] != o.Floats[i][c] {
				return false
			}
		}
	}
	return true
}

func (b *ModelBuffer) clone() *ModelBuffer {
	c := &ModelBuffer{Name: b.Name, CompCount: b.CompCount, CompType: b.CompType, Divisor: b.Divisor}
	c.Floats = make([][]float32, len(b.Floats))
	for i, e := range b.Floats {
		c.Floats[i] = append([]float32(nil), e...)
	}
	return c
}

// ModelColorBuffer is one named color array, decoded to RGBA quads.
type ModelColorBuffer struct {
	Name   string
	Format uint32 // raw GX color format enum
	Colors [][4]uint8
}

func (b *ModelColorBuffer) equal(o *ModelColorBuffer) bool {
	if b.Name != o.Name || b.Format != o.Format || len(b.Colors) != len(o.Colors) {
		return false
	}
	for i := range b.Colors {
		if b.Colors[i] != o.Colors[i] {
			return false
		}
	}
	return true
}

func (b *ModelColorBuffer) clone() *ModelColorBuffer {
	return &ModelColorBuffer{Name: b.Name, Format: b.Format, Colors: append([][4]uint8(nil), b.Colors...)}
}

// Bone is one named skeleton node. Rotation is stored in degrees, the
// G3D convention.
type Bone struct {
	Name        string
	Parent      int32 // -1 for a root
	Flags       uint32
	Billboard   uint32
	Scale       [3]float32
	Rotation    [3]float32
	Translation [3]float32
	BBoxMin     [3]float32
	BBoxMax     [3]float32
}

// SSC reports the segment-scale-compensation bit.
func (b *Bone) SSC() bool { return b.Flags&1 != 0 }

// ModelMaterial is one named material: render priority and light set are
// structured; the TEV shader configuration is preserved as a verbatim
// blob, the way the J3D codec preserves MAT3 bodies.
type ModelMaterial struct {
	Name           string
	Flags          uint32
	RenderPriority uint8
	LightSetIndex  int8
	FogIndex       int8
	TevBlob        []byte
}

func (m *ModelMaterial) equal(o *ModelMaterial) bool {
	if m.Name != o.Name || m.Flags != o.Flags || m.RenderPriority != o.RenderPriority ||
		m.LightSetIndex != o.LightSetIndex || m.FogIndex != o.FogIndex ||
		len(m.TevBlob) != len(o.TevBlob) {
		return false
	}
	for i := range m.TevBlob {
		if m.TevBlob[i] != o.TevBlob[i] {
			return false
		}
	}
	return true
}

// Mesh is one named polygon set: the vertex descriptor, the buffer
// bindings (by index, -1 when absent), and the draw primitives.
type Mesh struct {
	Name       string
	BoneIndex  int32 // single-bind bone, -1 when skinned per-vertex
	PosIndex   int16
	NrmIndex   int16
	ClrIndex   [2]int16
	UVIndex    [8]int16
	VCD        gx.VertexDescriptor
	Primitives []gx.Primitive
}

func (m *Mesh) equal(o *Mesh) bool {
	if m.Name != o.Name || m.BoneIndex != o.BoneIndex || m.PosIndex != o.PosIndex ||
		m.NrmIndex != o.NrmIndex || m.ClrIndex != o.ClrIndex || m.UVIndex != o.UVIndex ||
		m.VCD != o.VCD || len(m.Primitives) != len(o.Primitives) {
		return false
	}
	for i := range m.Primitives {
		if m.Primitives[i].Type != o.Primitives[i].Type ||
			len(m.Primitives[i].Vertices) != len(o.Primitives[i].Vertices) {
			return false
		}
		for v := range m.Primitives[i].Vertices {
			if m.Primitives[i].Vertices[v] != o.Primitives[i].Vertices[v] {
				return false
			}
		}
	}
	return true
}

func (m *Mesh) clone() *Mesh {
	c := *m
	c.Primitives = append([]gx.Primitive(nil), m.Primitives...)
	for i := range c.Primitives {
		c.Primitives[i].Vertices = append([]gx.Vertex(nil), m.Primitives[i].Vertices...)
	}
	return &c
}

// DrawCall binds a material to a mesh under a bone at a priority; the
// list order is the draw order.
type DrawCall struct {
	MaterialIndex uint16
	MeshIndex     uint16
	BoneIndex     uint16
	Priority      uint8
}

// Model is one MDL0 resource: named buffer, bone, material and mesh
// dictionaries plus the bone-ordered draw list.
type Model struct {
	document.ObjectBase
	ScalingRule uint32
	TexMtxMode  uint32
	BBoxMin     [3]float32
	BBoxMax     [3]float32

	Positions []*ModelBuffer
	Normals   []*ModelBuffer
	Colors    []*ModelColorBuffer
	UVs       []*ModelBuffer
	Bones     []*Bone
	Materials []*ModelMaterial
	Meshes    []*Mesh
	DrawCalls []DrawCall
}

func (m *Model) CloneObject() document.Object {
	c := &Model{
		ObjectBase:  m.CloneBase(),
		ScalingRule: m.ScalingRule,
		TexMtxMode:  m.TexMtxMode,
		BBoxMin:     m.BBoxMin,
		BBoxMax:     m.BBoxMax,
		DrawCalls:   append([]DrawCall(nil), m.DrawCalls...),
	}
	for _, b := range m.Positions {
		c.Positions = append(c.Positions, b.clone())
	}
	for _, b := range m.Normals {
		c.Normals = append(c.Normals, b.clone())
	}
	for _, b := range m.Colors {
		c.Colors = append(c.Colors, b.clone())
	}
	for _, b := range m.UVs {
		c.UVs = append(c.UVs, b.clone())
	}
	for _, b := range m.Bones {
		bone := *b
		c.Bones = append(c.Bones, &bone)
	}
	for _, mat := range m.Materials {
		cm := *mat
		cm.TevBlob = append([]byte(nil), mat.TevBlob...)
		c.Materials = append(c.Materials, &cm)
	}
	for _, mesh := range m.Meshes {
		c.Meshes = append(c.Meshes, mesh.clone())
	}
	return c
}

func (m *Model) EqualsObject(other document.Object) bool {
	o, ok := other.(*Model)
	if !ok || o.DisplayName() != m.DisplayName() || o.ScalingRule != m.ScalingRule ||
		o.TexMtxMode != m.TexMtxMode || o.BBoxMin != m.BBoxMin || o.BBoxMax != m.BBoxMax ||
		len(o.Positions) != len(m.Positions) || len(o.Normals) != len(m.Normals) ||
		len(o.Colors) != len(m.Colors) || len(o.UVs) != len(m.UVs) ||
		len(o.Bones) != len(m.Bones) || len(o.Materials) != len(m.Materials) ||
		len(o.Meshes) != len(m.Meshes) || len(o.DrawCalls) != len(m.DrawCalls) {
		return false
	}
	for i := range m.Positions {
		if !m.Positions[i].equal(o.Positions[i]) {
			return false
		}
	}
	for i := range m.Normals {
		if !m.Normals[i].equal(o.Normals[i]) {
			return false
		}
	}
	for i := range m.Colors {
		if !m.Colors[i].equal(o.Colors[i]) {
			return false
		}
	}
	for i := range m.UVs {
		if !m.UVs[i].equal(o.UVs[i]) {
			return false
		}
	}
	for i := range m.Bones {
		if *m.Bones[i] != *o.Bones[i] {
			return false
		}
	}
	for i := range m.Materials {
		if !m.Materials[i].equal(o.Materials[i]) {
			return false
		}
	}
	for i := range m.Meshes {
		if !m.Meshes[i].equal(o.Meshes[i]) {
			return false
		}
	}
	for i := range m.DrawCalls {
		if m.DrawCalls[i] != o.DrawCalls[i] {
			return false
		}
	}
	return true
}

const mdl0Version = 11

// MDL0 section slots, in on-disk order.
const (
	mdl0SecBones = iota
	mdl0SecPositions
	mdl0SecNormals
	mdl0SecColors
	mdl0SecUVs
	mdl0SecMaterials
	mdl0SecMeshes
	mdl0SecDrawCalls
	mdl0NumSections
)

func mdl0Scalar(r *stream.Reader, compType uint32, divisor uint8) (float32, error) {
	scale := float32(1) / float32(int32(1)<<divisor)
	switch compType {
	case 0:
		v, err := r.U8()
		return float32(v) * scale, err
	case 1:
		v, err := r.S8()
		return float32(v) * scale, err
	case 2:
		v, err := r.U16()
		return float32(v) * scale, err
	case 3:
		v, err := r.S16()
		return float32(v) * scale, err
	case 4:
		return r.F32()
	}
	return 0, rerr.Malformedf("brres/mdl0", "unknown component type %d", compType)
}

func mdl0WriteScalar(w *stream.Writer, compType uint32, divisor uint8, v float32) error {
	scaled := float64(v) * float64(int64(1)<<divisor)
	switch compType {
	case 0:
		w.U8(uint8(math.Round(scaled)))
	case 1:
		w.S8(int8(math.Round(scaled)))
	case 2:
		w.U16(uint16(math.Round(scaled)))
	case 3:
		w.S16(int16(math.Round(scaled)))
	case 4:
		w.F32(v)
	default:
		return rerr.Malformedf("brres/mdl0", "unknown component type %d", compType)
	}
	return nil
}

func mdl0ColorStride(format uint32) (int, error) {
	switch format {
	case 0, 3: // rgb565, rgba4
		return 2, nil
	case 1, 4: // rgb8, rgba6
		return 3, nil
	case 2, 5: // rgbx8, rgba8
		return 4, nil
	}
	return 0, rerr.Malformedf("brres/mdl0", "unknown color format %d", format)
}

func readMDL0(r *stream.Reader, base int) (*Model, error) {
	r.SetSite("brres/mdl0")
	if err := r.SeekTo(base); err != nil {
		return nil, err
	}
	if err := r.Magic("MDL0"); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // sub-file size
		return nil, err
	}
	ver, err := r.U32()
	if err != nil {
		return nil, err
	}
	if ver != mdl0Version {
		return nil, &rerr.VersionError{Site: "brres/mdl0", Got: "MDL0"}
	}
	if _, err := r.S32(); err != nil { // archive back-reference
		return nil, err
	}
	secOfs, err := r.U32Array(mdl0NumSections)
	if err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // name, decoded from the dictionary
		return nil, err
	}

	m := &Model{}
	if m.ScalingRule, err = r.U32(); err != nil {
		return nil, err
	}
	if m.TexMtxMode, err = r.U32(); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // vertex count
		return nil, err
	}
	if _, err := r.U32(); err != nil { // triangle count
		return nil, err
	}
	for i := range m.BBoxMin {
		if m.BBoxMin[i], err = r.F32(); err != nil {
			return nil, err
		}
	}
	for i := range m.BBoxMax {
		if m.BBoxMax[i], err = r.F32(); err != nil {
			return nil, err
		}
	}

	readGroup := func(slot int, read func(name string, abs int) error) error {
		if secOfs[slot] == 0 {
			return nil
		}
		entries, err := readDictGroup(r, base+int(secOfs[slot]))
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := read(e.name, e.abs); err != nil {
				return err
			}
		}
		return nil
	}

	if err := readGroup(mdl0SecBones, func(name string, abs int) error {
		bone, err := readMDL0Bone(r, abs)
		if err != nil {
			return err
		}
		bone.Name = name
		m.Bones = append(m.Bones, bone)
		return nil
	}); err != nil {
		return nil, err
	}
	for _, sec := range []struct {
		slot int
		dst  *[]*ModelBuffer
	}{
		{mdl0SecPositions, &m.Positions},
		{mdl0SecNormals, &m.Normals},
		{mdl0SecUVs, &m.UVs},
	} {
		if err := readGroup(sec.slot, func(name string, abs int) error {
			buf, err := readMDL0Buffer(r, abs)
			if err != nil {
				return err
			}
			buf.Name = name
			*sec.dst = append(*sec.dst, buf)
			return nil
		}); err != nil {
			return nil, err
		}
	}
	if err := readGroup(mdl0SecColors, func(name string, abs int) error {
		buf, err := readMDL0ColorBuffer(r, abs)
		if err != nil {
			return err
		}
		buf.Name = name
		m.Colors = append(m.Colors, buf)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := readGroup(mdl0SecMaterials, func(name string, abs int) error {
		mat, err := readMDL0Material(r, abs)
		if err != nil {
			return err
		}
		mat.Name = name
		m.Materials = append(m.Materials, mat)
		return nil
	}); err != nil {
		return nil, err
	}
	if err := readGroup(mdl0SecMeshes, func(name string, abs int) error {
		mesh, err := readMDL0Mesh(r, abs)
		if err != nil {
			return err
		}
		mesh.Name = name
		m.Meshes = append(m.Meshes, mesh)
		return nil
	}); err != nil {
		return nil, err
	}

	if secOfs[mdl0SecDrawCalls] != 0 {
		if err := r.SeekTo(base + int(secOfs[mdl0SecDrawCalls])); err != nil {
			return nil, err
		}
		count, err := r.U32()
		if err != nil {
			return nil, err
		}
		for i := 0; i < int(count); i++ {
			var dc DrawCall
			if dc.MaterialIndex, err = r.U16(); err != nil {
				return nil, err
			}
			if dc.MeshIndex, err = r.U16(); err != nil {
				return nil, err
			}
			if dc.BoneIndex, err = r.U16(); err != nil {
				return nil, err
			}
			if dc.Priority, err = r.U8(); err != nil {
				return nil, err
			}
			if err := r.Skip(1); err != nil {
				return nil, err
			}
			if int(dc.MaterialIndex) >= len(m.Materials) {
				return nil, &rerr.RangeError{Site: "brres/mdl0", What: "draw-call material", Value: int(dc.MaterialIndex), Max: len(m.Materials)}
			}
			if int(dc.MeshIndex) >= len(m.Meshes) {
				return nil, &rerr.RangeError{Site: "brres/mdl0", What: "draw-call mesh", Value: int(dc.MeshIndex), Max: len(m.Meshes)}
			}
			m.DrawCalls = append(m.DrawCalls, dc)
		}
	}

	if err := m.validateMeshBindings(); err != nil {
		return nil, err
	}
	return m, nil
}

// validateMeshBindings checks every mesh's buffer references and indices.
func (m *Model) validateMeshBindings() error {
	check := func(idx int16, limit int, what string) error {
		if idx >= 0 && int(idx) >= limit {
			return &rerr.RangeError{Site: "brres/mdl0", What: what, Value: int(idx), Max: limit}
		}
		return nil
	}
	for _, mesh := range m.Meshes {
		if err := check(mesh.PosIndex, len(m.Positions), "position buffer"); err != nil {
			return err
		}
		if err := check(mesh.NrmIndex, len(m.Normals), "normal buffer"); err != nil {
			return err
		}
		for _, ci := range mesh.ClrIndex {
			if err := check(ci, len(m.Colors), "color buffer"); err != nil {
				return err
			}
		}
		for _, ui := range mesh.UVIndex {
			if err := check(ui, len(m.UVs), "uv buffer"); err != nil {
				return err
			}
		}
	}
	return nil
}

func readMDL0Bone(r *stream.Reader, abs int) (*Bone, error) {
	if err := r.SeekTo(abs); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // name ref, dictionary wins
		return nil, err
	}
	b := &Bone{}
	var err error
	if b.Parent, err = r.S32(); err != nil {
		return nil, err
	}
	if b.Flags, err = r.U32(); err != nil {
		return nil, err
	}
	if b.Billboard, err = r.U32(); err != nil {
		return nil, err
	}
	for _, dst := range [][3]*float32{
		{&b.Scale[0], &b.Scale[1], &b.Scale[2]},
		{&b.Rotation[0], &b.Rotation[1], &b.Rotation[2]},
		{&b.Translation[0], &b.Translation[1], &b.Translation[2]},
		{&b.BBoxMin[0], &b.BBoxMin[1], &b.BBoxMin[2]},
		{&b.BBoxMax[0], &b.BBoxMax[1], &b.BBoxMax[2]},
	} {
		for _, p := range dst {
			if *p, err = r.F32(); err != nil {
				return nil, err
			}
		}
	}
	return b, nil
}

func readMDL0Buffer(r *stream.Reader, abs int) (*ModelBuffer, error) {
	if err := r.SeekTo(abs); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // name ref
		return nil, err
	}
	b := &ModelBuffer{}
	var err error
	if b.CompCount, err = r.U32(); err != nil {
		return nil, err
	}
	if b.CompType, err = r.U32(); err != nil {
		return nil, err
	}
	if b.Divisor, err = r.U8(); err != nil {
		return nil, err
	}
	comps, err := r.U8()
	if err != nil {
		return nil, err
	}
	if comps == 0 || comps > 3 {
		return nil, rerr.Malformedf("brres/mdl0", "buffer has %d components per entry", comps)
	}
	count, err := r.U16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(count); i++ {
		entry := make([]float32, comps)
		for c := range entry {
			if entry[c], err = mdl0Scalar(r, b.CompType, b.Divisor); err != nil {
				return nil, err
			}
		}
		b.Floats = append(b.Floats, entry)
	}
	return b, nil
}

func readMDL0ColorBuffer(r *stream.Reader, abs int) (*ModelColorBuffer, error) {
	if err := r.SeekTo(abs); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // name ref
		return nil, err
	}
	b := &ModelColorBuffer{}
	var err error
	if b.Format, err = r.U32(); err != nil {
		return nil, err
	}
	count, err := r.U16()
	if err != nil {
		return nil, err
	}
	if err := r.Skip(2); err != nil {
		return nil, err
	}
	if _, err := mdl0ColorStride(b.Format); err != nil {
		return nil, err
	}
	for i := 0; i < int(count); i++ {
		c, err := readMDL0Color(r, b.Format)
		if err != nil {
			return nil, err
		}
		b.Colors = append(b.Colors, c)
	}
	return b, nil
}

func readMDL0Material(r *stream.Reader, abs int) (*ModelMaterial, error) {
	if err := r.SeekTo(abs); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // name ref
		return nil, err
	}
	m := &ModelMaterial{}
	var err error
	if m.Flags, err = r.U32(); err != nil {
		return nil, err
	}
	if m.RenderPriority, err = r.U8(); err != nil {
		return nil, err
	}
	if m.LightSetIndex, err = r.S8(); err != nil {
		return nil, err
	}
	if m.FogIndex, err = r.S8(); err != nil {
		return nil, err
	}
	if err := r.Skip(1); err != nil {
		return nil, err
	}
	tevLen, err := r.U32()
	if err != nil {
		return nil, err
	}
	if m.TevBlob, err = r.Bytes(int(tevLen)); err != nil {
		return nil, rerr.Malformed("brres/mdl0", "shader body exceeds sub-file").Wrap(err)
	}
	return m, nil
}

func readMDL0Mesh(r *stream.Reader, abs int) (*Mesh, error) {
	if err := r.SeekTo(abs); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // name ref
		return nil, err
	}
	m := &Mesh{}
	var err error
	if m.BoneIndex, err = r.S32(); err != nil {
		return nil, err
	}
	if m.PosIndex, err = r.S16(); err != nil {
		return nil, err
	}
	if m.NrmIndex, err = r.S16(); err != nil {
		return nil, err
	}
	for i := range m.ClrIndex {
		if m.ClrIndex[i], err = r.S16(); err != nil {
			return nil, err
		}
	}
	for i := range m.UVIndex {
		if m.UVIndex[i], err = r.S16(); err != nil {
			return nil, err
		}
	}
	for {
		attr, err := r.U32()
		if err != nil {
			return nil, err
		}
		if attr == 0xFF {
			break
		}
		if attr >= uint32(gx.NumAttributes) {
			return nil, rerr.Malformedf("brres/mdl0", "invalid vertex attribute %d", attr).At(r.Pos() - 4)
		}
		typ, err := r.U32()
		if err != nil {
			return nil, err
		}
		if typ > uint32(gx.TypeShort) {
			return nil, rerr.Malformedf("brres/mdl0", "invalid attribute type %d", typ)
		}
		at := gx.AttributeType(typ)
		if at == gx.TypeDirect && gx.VertexAttribute(attr) != gx.PositionNormalMatrixIndex {
			return nil, rerr.Malformedf("brres/mdl0", "direct storage on attribute %d", attr)
		}
		m.VCD.Set(gx.VertexAttribute(attr), at)
	}
	dlSize, err := r.U32()
	if err != nil {
		return nil, err
	}
	dl, err := r.Slice(int(dlSize))
	if err != nil {
		return nil, rerr.Malformed("brres/mdl0", "display list exceeds sub-file").Wrap(err)
	}
	if m.Primitives, err = gx.DecodeDisplayList(dl, &m.VCD); err != nil {
		return nil, err
	}
	return m, nil
}

func writeMDL0(w *stream.Writer, m *Model, tbl *names.Table) error {
	base := w.Pos()
	w.Magic("MDL0")
	sizeSite := w.ReserveU32()
	w.U32(mdl0Version)
	w.S32(0) // archive back-reference
	secSites := make([]int, mdl0NumSections)
	for i := range secSites {
		secSites[i] = w.ReserveU32()
	}
	tbl.Ref(w.ReserveU32(), base, m.DisplayName())

	w.U32(m.ScalingRule)
	w.U32(m.TexMtxMode)
	numVerts := 0
	for _, b := range m.Positions {
		numVerts += len(b.Floats)
	}
	w.U32(uint32(numVerts))
	w.U32(uint32(m.triangleCount()))
	for _, v := range m.BBoxMin {
		w.F32(v)
	}
	for _, v := range m.BBoxMax {
		w.F32(v)
	}

	// Each populated section is an index group over the entry names,
	// followed by the entry bodies.
	writeGroup := func(slot int, entryNames []string, write []func() error) error {
		if len(entryNames) == 0 {
			return nil
		}
		w.AlignWith(4, stream.PadZero)
		w.PatchU32At(secSites[slot], uint32(w.Pos()-base))
		targets := make([]int, len(entryNames))
		fns := make([]func() (int, error), len(entryNames))
		for i := range entryNames {
			fns[i] = func() (int, error) {
				if targets[i] == 0 {
					return 0, rerr.Invariantf("mdl0 entry %q never placed", entryNames[i])
				}
				return targets[i], nil
			}
		}
		writeDictGroup(w, tbl, entryNames, fns)
		for i := range entryNames {
			w.AlignWith(4, stream.PadZero)
			targets[i] = w.Pos()
			if err := write[i](); err != nil {
				return err
			}
		}
		return nil
	}

	boneNames := make([]string, len(m.Bones))
	boneWrites := make([]func() error, len(m.Bones))
	for i, b := range m.Bones {
		boneNames[i] = b.Name
		boneWrites[i] = func() error {
			tbl.Ref(w.ReserveU32(), base, b.Name)
			w.S32(b.Parent)
			w.U32(b.Flags)
			w.U32(b.Billboard)
			for _, src := range [][3]float32{b.Scale, b.Rotation, b.Translation, b.BBoxMin, b.BBoxMax} {
				for _, v := range src {
					w.F32(v)
				}
			}
			return nil
		}
	}
	if err := writeGroup(mdl0SecBones, boneNames, boneWrites); err != nil {
		return err
	}

	bufferGroup := func(slot int, bufs []*ModelBuffer) error {
		bufNames := make([]string, len(bufs))
		writes := make([]func() error, len(bufs))
		for i, b := range bufs {
			bufNames[i] = b.Name
			writes[i] = func() error {
				tbl.Ref(w.ReserveU32(), base, b.Name)
				w.U32(b.CompCount)
				w.U32(b.CompType)
				w.U8(b.Divisor)
				comps := 3
				if len(b.Floats) > 0 {
					comps = len(b.Floats[0])
				}
				w.U8(uint8(comps))
				w.U16(uint16(len(b.Floats)))
				for _, entry := range b.Floats {
					for _, v := range entry {
						if err := mdl0WriteScalar(w, b.CompType, b.Divisor, v); err != nil {
							return err
						}
					}
				}
				return nil
			}
		}
		return writeGroup(slot, bufNames, writes)
	}
	if err := bufferGroup(mdl0SecPositions, m.Positions); err != nil {
		return err
	}
	if err := bufferGroup(mdl0SecNormals, m.Normals); err != nil {
		return err
	}
	if err := bufferGroup(mdl0SecUVs, m.UVs); err != nil {
		return err
	}

	clrNames := make([]string, len(m.Colors))
	clrWrites := make([]func() error, len(m.Colors))
	for i, b := range m.Colors {
		clrNames[i] = b.Name
		clrWrites[i] = func() error {
			tbl.Ref(w.ReserveU32(), base, b.Name)
			w.U32(b.Format)
			w.U16(uint16(len(b.Colors)))
			w.U16(0)
			for _, c := range b.Colors {
				if err := writeMDL0Color(w, b.Format, c); err != nil {
					return err
				}
			}
			return nil
		}
	}
	if err := writeGroup(mdl0SecColors, clrNames, clrWrites); err != nil {
		return err
	}

	matNames := make([]string, len(m.Materials))
	matWrites := make([]func() error, len(m.Materials))
	for i, mat := range m.Materials {
		matNames[i] = mat.Name
		matWrites[i] = func() error {
			tbl.Ref(w.ReserveU32(), base, mat.Name)
			w.U32(mat.Flags)
			w.U8(mat.RenderPriority)
			w.S8(mat.LightSetIndex)
			w.S8(mat.FogIndex)
			w.U8(0)
			w.U32(uint32(len(mat.TevBlob)))
			w.Bytes(mat.TevBlob)
			return nil
		}
	}
	if err := writeGroup(mdl0SecMaterials, matNames, matWrites); err != nil {
		return err
	}

	meshNames := make([]string, len(m.Meshes))
	meshWrites := make([]func() error, len(m.Meshes))
	for i, mesh := range m.Meshes {
		meshNames[i] = mesh.Name
		meshWrites[i] = func() error {
			tbl.Ref(w.ReserveU32(), base, mesh.Name)
			w.S32(mesh.BoneIndex)
			w.S16(mesh.PosIndex)
			w.S16(mesh.NrmIndex)
			for _, ci := range mesh.ClrIndex {
				w.S16(ci)
			}
			for _, ui := range mesh.UVIndex {
				w.S16(ui)
			}
			for _, a := range mesh.VCD.Active() {
				w.U32(uint32(a))
				w.U32(uint32(mesh.VCD.Get(a)))
			}
			w.U32(0xFF)
			dlSizeSite := w.ReserveU32()
			dlStart := w.Pos()
			if err := gx.EncodeDisplayList(w, mesh.Primitives, &mesh.VCD); err != nil {
				return err
			}
			w.AlignWith(0x20, stream.PadZero)
			w.PatchU32At(dlSizeSite, uint32(w.Pos()-dlStart))
			return nil
		}
	}
	if err := writeGroup(mdl0SecMeshes, meshNames, meshWrites); err != nil {
		return err
	}

	if len(m.DrawCalls) > 0 {
		w.AlignWith(4, stream.PadZero)
		w.PatchU32At(secSites[mdl0SecDrawCalls], uint32(w.Pos()-base))
		w.U32(uint32(len(m.DrawCalls)))
		for _, dc := range m.DrawCalls {
			w.U16(dc.MaterialIndex)
			w.U16(dc.MeshIndex)
			w.U16(dc.BoneIndex)
			w.U8(dc.Priority)
			w.U8(0)
		}
	}

	w.PatchU32At(sizeSite, uint32(w.Pos()-base))
	return nil
}

func (m *Model) triangleCount() int {
	tris := 0
	for _, mesh := range m.Meshes {
		for _, p := range mesh.Primitives {
			n := len(p.Vertices)
			switch p.Type {
			case gx.Triangles:
				tris += n / 3
			case gx.TriangleStrip, gx.TriangleFan:
				if n >= 3 {
					tris += n - 2
				}
			case gx.Quads:
				tris += n / 4 * 2
			}
		}
	}
	return tris
}

func readMDL0Color(r *stream.Reader, format uint32) ([4]uint8, error) {
	switch format {
	case 0: // rgb565
		v, err := r.U16()
		if err != nil {
			return [4]uint8{}, err
		}
		return [4]uint8{uint8(v>>11) << 3, uint8(v>>5&0x3F) << 2, uint8(v&0x1F) << 3, 0xFF}, nil
	case 1: // rgb8
		var c [4]uint8
		for i := 0; i < 3; i++ {
			v, err := r.U8()
			if err != nil {
				return c, err
			}
			c[i] = v
		}
		c[3] = 0xFF
		return c, nil
	case 2: // rgbx8
		var c [4]uint8
		for i := 0; i < 3; i++ {
			v, err := r.U8()
			if err != nil {
				return c, err
			}
			c[i] = v
		}
		if _, err := r.U8(); err != nil {
			return c, err
		}
		c[3] = 0xFF
		return c, nil
	case 3: // rgba4
		v, err := r.U16()
		if err != nil {
			return [4]uint8{}, err
		}
		return [4]uint8{uint8(v>>12) << 4, uint8(v>>8&0xF) << 4, uint8(v>>4&0xF) << 4, uint8(v&0xF) << 4}, nil
	case 4: // rgba6
		var b [3]uint8
		for i := range b {
			v, err := r.U8()
			if err != nil {
				return [4]uint8{}, err
			}
			b[i] = v
		}
		v := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
		return [4]uint8{uint8(v>>18) << 2, uint8(v>>12&0x3F) << 2, uint8(v>>6&0x3F) << 2, uint8(v&0x3F) << 2}, nil
	default: // rgba8
		var c [4]uint8
		for i := range c {
			v, err := r.U8()
			if err != nil {
				return c, err
			}
			c[i] = v
		}
		return c, nil
	}
}

func writeMDL0Color(w *stream.Writer, format uint32, c [4]uint8) error {
	switch format {
	case 0:
		w.U16(uint16(c[0]>>3)<<11 | uint16(c[1]>>2)<<5 | uint16(c[2]>>3))
	case 1:
		w.U8(c[0])
		w.U8(c[1])
		w.U8(c[2])
	case 2:
		w.U8(c[0])
		w.U8(c[1])
		w.U8(c[2])
		w.U8(0xFF)
	case 3:
		w.U16(uint16(c[0]>>4)<<12 | uint16(c[1]>>4)<<8 | uint16(c[2]>>4)<<4 | uint16(c[3]>>4))
	case 4:
		v := uint32(c[0]>>2)<<18 | uint32(c[1]>>2)<<12 | uint32(c[2]>>2)<<6 | uint32(c[3]>>2)
		w.U8(uint8(v >> 16))
		w.U8(uint8(v >> 8))
		w.U8(uint8(v))
	case 5:
		w.U8(c[0])
		w.U8(c[1])
		w.U8(c[2])
		w.U8(c[3])
	default:
		return rerr.Malformedf("brres/mdl0", "unknown color format %d", format)
	}
	return nil
}
