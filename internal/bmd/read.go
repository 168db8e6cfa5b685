package bmd

import (
	"fmt"

	"github.com/rvltools/rkit/internal/gx"
	"github.com/rvltools/rkit/internal/rerr"
	"github.com/rvltools/rkit/internal/stream"
)

// section records one lexed section's body position and total size.
type section struct {
	pos  int // file offset just past the section's magic and size words
	size int // total section size including the 8-byte header
}

type readContext struct {
	r        *stream.Reader
	m        *Model
	sections map[string]section
}

func (ctx *readContext) sectionEnd(magic string) int {
	s := ctx.sections[magic]
	return s.pos - 8 + s.size
}

// Read parses a BMD/BDL binary.
func Read(data []byte) (*Model, error) {
	r := stream.NewReader(data)
	r.SetSite("bmd")
	if err := r.Magic("J3D2"); err != nil {
		return nil, err
	}
	version, err := r.FourCC()
	if err != nil {
		return nil, err
	}
	if version != "bmd3" && version != "bdl4" {
		return nil, &rerr.VersionError{Site: "bmd", Got: version}
	}
	if _, err := r.U32(); err != nil { // file size
		return nil, err
	}
	secCount, err := r.U32()
	if err != nil {
		return nil, err
	}
	if err := r.Skip(16); err != nil { // SVR3 block
		return nil, err
	}

	m := New()
	m.BDL = version == "bdl4"
	ctx := &readContext{r: r, m: m, sections: make(map[string]section)}

	if err := ctx.lex(int(secCount)); err != nil {
		return nil, err
	}

	if err := ctx.readINF1(); err != nil {
		return nil, err
	}
	if err := ctx.readVTX1(); err != nil {
		return nil, err
	}
	if err := ctx.readJNT1(); err != nil {
		return nil, err
	}
	if err := ctx.readEVP1DRW1(); err != nil {
		return nil, err
	}
	if err := ctx.readSHP1(); err != nil {
		return nil, err
	}
	m.TruncateGreedyBuffers()
	if err := ctx.readMAT3(); err != nil {
		return nil, err
	}
	if err := ctx.readTEX1(); err != nil {
		return nil, err
	}
	if s, ok := ctx.sections["MDL3"]; ok {
		blob, err := r.SliceAt(s.pos-8, s.size)
		if err != nil {
			return nil, rerr.Malformed("bmd/mdl3", "section exceeds file").Wrap(err)
		}
		m.MDL3Blob = append([]byte(nil), blob...)
	}
	m.linkJoints()
	return m, nil
}

// lex scans the section headers, recording recognized magics. Unknown
// sections are warned and skipped.
func (ctx *readContext) lex(secCount int) error {
	r := ctx.r
	for i := 0; i < secCount; i++ {
		magic, err := r.FourCC()
		if err != nil {
			return rerr.Malformed("bmd", "section table ends early").Wrap(err)
		}
		size, err := r.U32()
		if err != nil {
			return err
		}
		if size < 8 {
			return rerr.Malformedf("bmd", "section %s declares size %d", magic, size).At(r.Pos() - 4)
		}
		switch magic {
		case "INF1", "VTX1", "EVP1", "DRW1", "JNT1", "SHP1", "MAT3", "MDL3", "TEX1":
			ctx.sections[magic] = section{pos: r.Pos(), size: int(size)}
		default:
			ctx.m.Warnings = append(ctx.m.Warnings,
				fmt.Sprintf("unexpected section type %q skipped", magic))
		}
		if err := r.Skip(int(size) - 8); err != nil {
			return rerr.Malformedf("bmd", "section %s exceeds file", magic).Wrap(err)
		}
	}
	return nil
}

func (ctx *readContext) readINF1() error {
	s, ok := ctx.sections["INF1"]
	if !ok {
		return rerr.Malformed("bmd/inf1", "section missing")
	}
	r := ctx.r
	r.SetSite("bmd/inf1")
	if err := r.SeekTo(s.pos); err != nil {
		return err
	}
	rule, err := r.U16()
	if err != nil {
		return err
	}
	ctx.m.InfoFlag = rule
	ctx.m.Scaling = ScalingRule(rule & 0xF)
	if err := r.Skip(2); err != nil { // 0xFFFF pad
		return err
	}
	if _, err := r.U32(); err != nil { // packet count
		return err
	}
	if _, err := r.U32(); err != nil { // vertex count
		return err
	}
	hierOfs, err := r.U32()
	if err != nil {
		return err
	}
	if err := r.SeekTo(s.pos - 8 + int(hierOfs)); err != nil {
		return err
	}

	// The hierarchy is a byte code with a one-deep opcode machine: Open
	// descends under the previous node, Close ascends, End terminates.
	depth := 0
	for {
		op, err := r.U16()
		if err != nil {
			return rerr.Malformed("bmd/inf1", "hierarchy stream truncated").Wrap(err)
		}
		idx, err := r.U16()
		if err != nil {
			return err
		}
		node := HierarchyNode{Op: HierarchyOp(op), Index: idx}
		switch node.Op {
		case HierarchyEnd:
			if depth != 0 {
				return rerr.Malformedf("bmd/inf1", "hierarchy ends at depth %d", depth)
			}
			ctx.m.Hierarchy = append(ctx.m.Hierarchy, node)
			return nil
		case HierarchyOpen:
			depth++
		case HierarchyClose:
			depth--
			if depth < 0 {
				return rerr.Malformed("bmd/inf1", "hierarchy closes below the root")
			}
		case HierarchyJoint, HierarchyMaterial, HierarchyShape:
		default:
			return rerr.Malformedf("bmd/inf1", "unknown hierarchy opcode 0x%04x", op)
		}
		ctx.m.Hierarchy = append(ctx.m.Hierarchy, node)
	}
}

// linkJoints resolves parent/child links from the hierarchy ops.
func (m *Model) linkJoints() {
	type frame struct {
		joint int16
	}
	stack := []frame{{joint: -1}}
	last := int16(-1)
	for _, n := range m.Hierarchy {
		switch n.Op {
		case HierarchyOpen:
			stack = append(stack, frame{joint: last})
		case HierarchyClose:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case HierarchyJoint:
			parent := stack[len(stack)-1].joint
			if int(n.Index) < m.Joints.Len() {
				j := m.Joints.Get(int(n.Index))
				j.Parent = parent
				if parent >= 0 && int(parent) < m.Joints.Len() {
					p := m.Joints.Get(int(parent))
					p.Children = append(p.Children, n.Index)
				}
			}
			last = int16(n.Index)
		}
	}
}

// gxCompSize returns the byte size of one scalar component.
func gxCompSize(compType uint32) (int, error) {
	switch compType {
	case 0, 1: // u8, s8
		return 1, nil
	case 2, 3: // u16, s16
		return 2, nil
	case 4: // f32
		return 4, nil
	}
	return 0, rerr.Malformedf("bmd/vtx1", "unknown component type %d", compType)
}

// colorStride returns the byte size of one color entry.
func colorStride(compType uint32) (int, error) {
	switch compType {
	case 0, 3: // rgb565, rgba4
		return 2, nil
	case 1, 4: // rgb8, rgba6
		return 3, nil
	case 2, 5: // rgbx8, rgba8
		return 4, nil
	}
	return 0, rerr.Malformedf("bmd/vtx1", "unknown color format %d", compType)
}

// scalarCount returns how many scalars one entry carries.
func scalarCount(attr gx.VertexAttribute, compCount uint32) (int, error) {
	switch attr {
	case gx.Position:
		if compCount == 0 {
			return 2, nil
		}
		return 3, nil
	case gx.Normal:
		return 3, nil
	case gx.TexCoord0, gx.TexCoord1, gx.TexCoord2, gx.TexCoord3,
		gx.TexCoord4, gx.TexCoord5, gx.TexCoord6, gx.TexCoord7:
		if compCount == 0 {
			return 1, nil
		}
		return 2, nil
	}
	return 0, rerr.Malformedf("bmd/vtx1", "attribute %v has no scalar layout", attr)
}

func (ctx *readContext) readVTX1() error {
	s, ok := ctx.sections["VTX1"]
	if !ok {
		return nil // a model without vertex data is legal (skeleton-only)
	}
	r := ctx.r
	r.SetSite("bmd/vtx1")
	base := s.pos - 8
	if err := r.SeekTo(s.pos); err != nil {
		return err
	}
	fmtOfs, err := r.U32()
	if err != nil {
		return err
	}
	dataOfs, err := r.U32Array(13)
	if err != nil {
		return err
	}

	if err := r.SeekTo(base + int(fmtOfs)); err != nil {
		return err
	}
	type format struct {
		attr      gx.VertexAttribute
		compCount uint32
		compType  uint32
		shift     uint8
	}
	var formats []format
	for {
		attr, err := r.U32()
		if err != nil {
			return err
		}
		if attr == 0xFF {
			break
		}
		if attr < uint32(gx.Position) || attr >= uint32(gx.NumAttributes) {
			// Only buffer-backed attributes may carry vertex arrays.
			return rerr.Malformedf("bmd/vtx1", "invalid vertex attribute %d", attr).At(r.Pos() - 4)
		}
		compCount, err := r.U32()
		if err != nil {
			return err
		}
		compType, err := r.U32()
		if err != nil {
			return err
		}
		shift, err := r.U8()
		if err != nil {
			return err
		}
		if err := r.Skip(3); err != nil {
			return err
		}
		formats = append(formats, format{gx.VertexAttribute(attr), compCount, compType, shift})
	}

	// Map each attribute to its data-offset slot.
	slotOf := func(attr gx.VertexAttribute) int {
		switch {
		case attr == gx.Position:
			return 0
		case attr == gx.Normal:
			return 1
		case attr == gx.Color0 || attr == gx.Color1:
			return 2 + int(attr-gx.Color0)
		default:
			return 4 + int(attr-gx.TexCoord0)
		}
	}

	// An array's extent runs to the next claimed offset (or section
	// end); real entry counts are unknown until the shapes are scanned.
	end := ctx.sectionEnd("VTX1")
	extent := func(slot int) int {
		this := int(dataOfs[slot])
		limit := end - base
		for _, other := range dataOfs {
			if o := int(other); o > this && o < limit {
				limit = o
			}
		}
		return limit - this
	}

	for _, f := range formats {
		slot := slotOf(f.attr)
		if dataOfs[slot] == 0 {
			continue
		}
		buf := &VertexBuffer{Attr: f.attr, CompCount: f.compCount, CompType: f.compType, Shift: f.shift}
		n := extent(slot)
		start := base + int(dataOfs[slot])
		if f.attr == gx.Color0 || f.attr == gx.Color1 {
			stride, err := colorStride(f.compType)
			if err != nil {
				return err
			}
			if err := r.SeekTo(start); err != nil {
				return err
			}
			for i := 0; i < n/stride; i++ {
				c, err := readColorEntry(r, f.compType)
				if err != nil {
					return err
				}
				buf.Colors = append(buf.Colors, c)
			}
		} else {
			compSize, err := gxCompSize(f.compType)
			if err != nil {
				return err
			}
			comps, err := scalarCount(f.attr, f.compCount)
			if err != nil {
				return err
			}
			stride := compSize * comps
			if err := r.SeekTo(start); err != nil {
				return err
			}
			for i := 0; i < n/stride; i++ {
				entry := make([]float32, comps)
				for c := range entry {
					v, err := readScalar(r, f.compType, f.shift)
					if err != nil {
						return err
					}
					entry[c] = v
				}
				buf.Floats = append(buf.Floats, entry)
			}
		}
		ctx.m.VertexBuffers = append(ctx.m.VertexBuffers, buf)
	}
	return nil
}

func readScalar(r *stream.Reader, compType uint32, shift uint8) (float32, error) {
	scale := float32(1) / float32(int32(1)<<shift)
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
	default:
		return r.F32()
	}
}

func readColorEntry(r *stream.Reader, compType uint32) ([4]uint8, error) {
	switch compType {
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
