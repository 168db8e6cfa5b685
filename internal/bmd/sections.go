package bmd

import (
	"github.com/rvltools/rkit/internal/gx"
	"github.com/rvltools/rkit/internal/names"
	"github.com/rvltools/rkit/internal/rerr"
)

func (ctx *readContext) readJNT1() error {
	s, ok := ctx.sections["JNT1"]
	if !ok {
		return rerr.Malformed("bmd/jnt1", "section missing")
	}
	r := ctx.r
	r.SetSite("bmd/jnt1")
	base := s.pos - 8
	if err := r.SeekTo(s.pos); err != nil {
		return err
	}
	count, err := r.U16()
	if err != nil {
		return err
	}
	if err := r.Skip(2); err != nil {
		return err
	}
	dataOfs, err := r.U32()
	if err != nil {
		return err
	}
	remapOfs, err := r.U32()
	if err != nil {
		return err
	}
	strOfs, err := r.U32()
	if err != nil {
		return err
	}

	jointNames, err := names.ReadJ3DStringTable(r, base+int(strOfs))
	if err != nil {
		return rerr.Malformed("bmd/jnt1", "string table unreadable").Wrap(err)
	}
	if len(jointNames) != int(count) {
		return rerr.Malformedf("bmd/jnt1", "%d joints but %d names", count, len(jointNames))
	}

	if err := r.SeekTo(base + int(remapOfs)); err != nil {
		return err
	}
	if ctx.m.JointRemap, err = r.U16Array(int(count)); err != nil {
		return err
	}

	if err := r.SeekTo(base + int(dataOfs)); err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		j := &Joint{Parent: -1}
		if j.Flag, err = r.U16(); err != nil {
			return err
		}
		bb, err := r.U8()
		if err != nil {
			return err
		}
		if bb > uint8(BillboardY) {
			return rerr.Malformedf("bmd/jnt1", "joint %d has billboard mode %d", i, bb)
		}
		j.Billboard = BillboardMode(bb)
		if err := r.Skip(1); err != nil { // 0xFF pad
			return err
		}
		for c := range j.Scale {
			if j.Scale[c], err = r.F32(); err != nil {
				return err
			}
		}
		for c := range j.Rotation {
			if j.Rotation[c], err = r.S16(); err != nil {
				return err
			}
		}
		if err := r.Skip(2); err != nil { // 0xFFFF pad
			return err
		}
		for c := range j.Translation {
			if j.Translation[c], err = r.F32(); err != nil {
				return err
			}
		}
		if j.BoundingRadius, err = r.F32(); err != nil {
			return err
		}
		for c := range j.BBoxMin {
			if j.BBoxMin[c], err = r.F32(); err != nil {
				return err
			}
		}
		for c := range j.BBoxMax {
			if j.BBoxMax[c], err = r.F32(); err != nil {
				return err
			}
		}
		j.SetDisplayName(jointNames[i])
		ctx.m.Joints.Add(j)
	}
	return nil
}

func (ctx *readContext) readEVP1DRW1() error {
	m := ctx.m
	r := ctx.r

	if s, ok := ctx.sections["EVP1"]; ok {
		r.SetSite("bmd/evp1")
		base := s.pos - 8
		if err := r.SeekTo(s.pos); err != nil {
			return err
		}
		count, err := r.U16()
		if err != nil {
			return err
		}
		if err := r.Skip(2); err != nil {
			return err
		}
		countsOfs, err := r.U32()
		if err != nil {
			return err
		}
		indicesOfs, err := r.U32()
		if err != nil {
			return err
		}
		weightsOfs, err := r.U32()
		if err != nil {
			return err
		}
		matricesOfs, err := r.U32()
		if err != nil {
			return err
		}

		if err := r.SeekTo(base + int(countsOfs)); err != nil {
			return err
		}
		counts := make([]uint8, count)
		total := 0
		for i := range counts {
			if counts[i], err = r.U8(); err != nil {
				return err
			}
			total += int(counts[i])
		}
		if err := r.SeekTo(base + int(indicesOfs)); err != nil {
			return err
		}
		indices, err := r.U16Array(total)
		if err != nil {
			return err
		}
		if err := r.SeekTo(base + int(weightsOfs)); err != nil {
			return err
		}
		weights, err := r.F32Array(total)
		if err != nil {
			return err
		}

		pos := 0
		for i := 0; i < int(count); i++ {
			env := Envelope{}
			for k := 0; k < int(counts[i]); k++ {
				env.Influences = append(env.Influences, Influence{
					JointIndex: indices[pos],
					Weight:     weights[pos],
				})
				pos++
			}
			m.Envelopes = append(m.Envelopes, env)
		}

		// Inverse binds run from their offset to the section end, 3x4
		// floats each, indexed by joint.
		if matricesOfs != 0 {
			end := ctx.sectionEnd("EVP1")
			nMtx := (end - (base + int(matricesOfs))) / 48
			if err := r.SeekTo(base + int(matricesOfs)); err != nil {
				return err
			}
			for i := 0; i < nMtx; i++ {
				var mtx [12]float32
				for c := range mtx {
					if mtx[c], err = r.F32(); err != nil {
						return err
					}
				}
				m.InverseBinds = append(m.InverseBinds, mtx)
			}
		}
	}

	s, ok := ctx.sections["DRW1"]
	if !ok {
		// Singlebound-only models may omit DRW1; one implicit matrix
		// per joint.
		for i := 0; i < m.Joints.Len(); i++ {
			m.DrawMatrices = append(m.DrawMatrices, DrawMatrix{
				Influences: []Influence{{JointIndex: uint16(i), Weight: 1}},
			})
		}
		return nil
	}
	r.SetSite("bmd/drw1")
	base := s.pos - 8
	if err := r.SeekTo(s.pos); err != nil {
		return err
	}
	count, err := r.U16()
	if err != nil {
		return err
	}
	if err := r.Skip(2); err != nil {
		return err
	}
	weightedOfs, err := r.U32()
	if err != nil {
		return err
	}
	indexOfs, err := r.U32()
	if err != nil {
		return err
	}

	if err := r.SeekTo(base + int(weightedOfs)); err != nil {
		return err
	}
	weighted := make([]uint8, count)
	for i := range weighted {
		if weighted[i], err = r.U8(); err != nil {
			return err
		}
	}
	if err := r.SeekTo(base + int(indexOfs)); err != nil {
		return err
	}
	indices, err := r.U16Array(int(count))
	if err != nil {
		return err
	}

	for i := 0; i < int(count); i++ {
		if weighted[i] == 0 {
			m.DrawMatrices = append(m.DrawMatrices, DrawMatrix{
				Influences: []Influence{{JointIndex: indices[i], Weight: 1}},
			})
			continue
		}
		if int(indices[i]) >= len(m.Envelopes) {
			return &rerr.RangeError{Site: "bmd/drw1", What: "envelope index", Value: int(indices[i]), Max: len(m.Envelopes)}
		}
		env := m.Envelopes[indices[i]]
		m.DrawMatrices = append(m.DrawMatrices, DrawMatrix{
			Influences: append([]Influence(nil), env.Influences...),
		})
	}
	return nil
}

func (ctx *readContext) readSHP1() error {
	s, ok := ctx.sections["SHP1"]
	if !ok {
		return nil
	}
	m := ctx.m
	r := ctx.r
	r.SetSite("bmd/shp1")
	base := s.pos - 8
	if err := r.SeekTo(s.pos); err != nil {
		return err
	}
	count, err := r.U16()
	if err != nil {
		return err
	}
	if err := r.Skip(2); err != nil {
		return err
	}
	ofs, err := r.U32Array(8)
	if err != nil {
		return err
	}
	shapeDataOfs, remapOfs := int(ofs[0]), int(ofs[1])
	vcdListOfs, mtxTableOfs := int(ofs[3]), int(ofs[4])
	dlDataOfs, mtxDataOfs, pktLocOfs := int(ofs[5]), int(ofs[6]), int(ofs[7])

	if err := r.SeekTo(base + remapOfs); err != nil {
		return err
	}
	if m.ShapeRemap, err = r.U16Array(int(count)); err != nil {
		return err
	}
	for i, v := range m.ShapeRemap {
		if int(v) != i {
			m.Warnings = append(m.Warnings, "Shape IDs are remapped")
			break
		}
	}

	for i := 0; i < int(count); i++ {
		entry := base + shapeDataOfs + i*0x28
		if err := r.SeekTo(entry); err != nil {
			return err
		}
		sh := &Shape{}
		if sh.DispFlags, err = r.U8(); err != nil {
			return err
		}
		if err := r.Skip(1); err != nil { // 0xFF
			return err
		}
		nMtxPrims, err := r.U16()
		if err != nil {
			return err
		}
		vcdOfs, err := r.U16()
		if err != nil {
			return err
		}
		firstMtxData, err := r.U16()
		if err != nil {
			return err
		}
		firstPkt, err := r.U16()
		if err != nil {
			return err
		}
		if err := r.Skip(2); err != nil { // 0xFFFF
			return err
		}
		if sh.BoundingRadius, err = r.F32(); err != nil {
			return err
		}
		for c := range sh.BBoxMin {
			if sh.BBoxMin[c], err = r.F32(); err != nil {
				return err
			}
		}
		for c := range sh.BBoxMax {
			if sh.BBoxMax[c], err = r.F32(); err != nil {
				return err
			}
		}

		// Vertex descriptor: (attr, type) pairs until Terminate.
		if err := r.SeekTo(base + vcdListOfs + int(vcdOfs)); err != nil {
			return err
		}
		for {
			attr, err := r.U32()
			if err != nil {
				return err
			}
			if attr == 0xFF {
				break
			}
			if attr >= uint32(gx.NumAttributes) {
				return rerr.Malformedf("bmd/shp1", "invalid vertex attribute %d", attr).At(r.Pos() - 4)
			}
			typ, err := r.U32()
			if err != nil {
				return err
			}
			if typ > uint32(gx.TypeShort) {
				return rerr.Malformedf("bmd/shp1", "invalid attribute type %d", typ)
			}
			at := gx.AttributeType(typ)
			if at == gx.TypeDirect && gx.VertexAttribute(attr) != gx.PositionNormalMatrixIndex {
				return rerr.Malformedf("bmd/shp1", "direct storage on attribute %d", attr)
			}
			sh.VCD.Set(gx.VertexAttribute(attr), at)
		}

		for p := 0; p < int(nMtxPrims); p++ {
			// Matrix-data entry: current matrix, index count, first
			// index into the shared matrix table.
			mdBase := base + mtxDataOfs + (int(firstMtxData)+p)*8
			current, err := r.PeekU16At(mdBase)
			if err != nil {
				return err
			}
			mtxCount, err := r.PeekU16At(mdBase + 2)
			if err != nil {
				return err
			}
			firstMtx, err := r.PeekU32At(mdBase + 4)
			if err != nil {
				return err
			}
			mp := MatrixPrimitive{CurrentMatrix: current}
			if err := r.SeekTo(base + mtxTableOfs + int(firstMtx)*2); err != nil {
				return err
			}
			if mp.MatrixIndices, err = r.U16Array(int(mtxCount)); err != nil {
				return err
			}
			for _, mi := range mp.MatrixIndices {
				if mi != 0xFFFF && int(mi) >= len(m.DrawMatrices) {
					return &rerr.RangeError{Site: "bmd/shp1", What: "draw matrix", Value: int(mi), Max: len(m.DrawMatrices)}
				}
			}

			// Packet location: display-list size and offset.
			plBase := base + pktLocOfs + (int(firstPkt)+p)*8
			dlSize, err := r.PeekU32At(plBase)
			if err != nil {
				return err
			}
			dlOfs, err := r.PeekU32At(plBase + 4)
			if err != nil {
				return err
			}
			dl, err := r.SliceAt(base+dlDataOfs+int(dlOfs), int(dlSize))
			if err != nil {
				return rerr.Malformed("bmd/shp1", "display list out of bounds").Wrap(err)
			}
			if mp.Primitives, err = gx.DecodeDisplayList(dl, &sh.VCD); err != nil {
				return err
			}
			sh.MatrixPrimitives = append(sh.MatrixPrimitives, mp)
		}
		m.Shapes.Add(sh)
	}
	return nil
}

func (ctx *readContext) readMAT3() error {
	s, ok := ctx.sections["MAT3"]
	if !ok {
		return nil
	}
	m := ctx.m
	r := ctx.r
	r.SetSite("bmd/mat3")
	base := s.pos - 8
	blob, err := r.SliceAt(base, s.size)
	if err != nil {
		return rerr.Malformed("bmd/mat3", "section exceeds file").Wrap(err)
	}
	m.MAT3Blob = append([]byte(nil), blob...)

	count, err := r.PeekU16At(s.pos)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	// Offset table: [0] material bodies, [1] id remap LUT, [2] names.
	remapOfs, err := r.PeekU32At(s.pos + 4 + 4)
	if err != nil {
		return err
	}
	strOfs, err := r.PeekU32At(s.pos + 4 + 8)
	if err != nil {
		return err
	}
	matNames, err := names.ReadJ3DStringTable(r, base+int(strOfs))
	if err != nil {
		return rerr.Malformed("bmd/mat3", "string table unreadable").Wrap(err)
	}
	if len(matNames) != int(count) {
		return rerr.Malformedf("bmd/mat3", "%d materials but %d names", count, len(matNames))
	}
	if err := r.SeekTo(base + int(remapOfs)); err != nil {
		return err
	}
	lut, err := r.U16Array(int(count))
	if err != nil {
		return err
	}
	// N material slots indirect into M <= N unique bodies; expand
	// through the LUT so every slot is an addressable document object.
	for i := 0; i < int(count); i++ {
		mat := &Material{EntryIndex: lut[i]}
		mat.SetDisplayName(matNames[i])
		m.Materials.Add(mat)
	}
	return nil
}

func (ctx *readContext) readTEX1() error {
	s, ok := ctx.sections["TEX1"]
	if !ok {
		return nil
	}
	m := ctx.m
	r := ctx.r
	r.SetSite("bmd/tex1")
	base := s.pos - 8
	blob, err := r.SliceAt(base, s.size)
	if err != nil {
		return rerr.Malformed("bmd/tex1", "section exceeds file").Wrap(err)
	}
	m.TEX1Blob = append([]byte(nil), blob...)

	count, err := r.PeekU16At(s.pos)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	headersOfs, err := r.PeekU32At(s.pos + 4)
	if err != nil {
		return err
	}
	strOfs, err := r.PeekU32At(s.pos + 8)
	if err != nil {
		return err
	}
	texNames, err := names.ReadJ3DStringTable(r, base+int(strOfs))
	if err != nil {
		return rerr.Malformed("bmd/tex1", "string table unreadable").Wrap(err)
	}
	if len(texNames) != int(count) {
		return rerr.Malformedf("bmd/tex1", "%d textures but %d names", count, len(texNames))
	}
	for i := 0; i < int(count); i++ {
		hdr := base + int(headersOfs) + i*0x20
		tex := &Texture{}
		if tex.Format, err = r.PeekU8At(hdr); err != nil {
			return err
		}
		if tex.Width, err = r.PeekU16At(hdr + 2); err != nil {
			return err
		}
		if tex.Height, err = r.PeekU16At(hdr + 4); err != nil {
			return err
		}
		tex.SetDisplayName(texNames[i])
		m.Textures.Add(tex)
	}
	return nil
}
