package bmd

import (
	"fmt"
	"math"

	"github.com/rvltools/rkit/internal/gx"
	"github.com/rvltools/rkit/internal/names"
	"github.com/rvltools/rkit/internal/rerr"
	"github.com/rvltools/rkit/internal/stream"
)

// J3DPad is the byte filler retail J3D tools align sections with; it is
// part of the bit-exact contract.
const J3DPad = "This is padding data to alignment....."

type sectionWriter struct {
	w        *stream.Writer
	sizeSite int
	start    int
}

func beginSection(w *stream.Writer, magic string) sectionWriter {
	start := w.Pos()
	w.Magic(magic)
	return sectionWriter{w: w, sizeSite: w.ReserveU32(), start: start}
}

func (s sectionWriter) end() {
	s.w.Align(0x20)
	s.w.PatchU32At(s.sizeSite, uint32(s.w.Pos()-s.start))
}

// Write serializes the model: 'J3D2' header, SVR3 block, then the
// sections in the magic-table order.
func Write(m *Model) ([]byte, error) {
	w := stream.NewWriter()
	w.SetPadding(stream.PadString(J3DPad))

	w.Magic("J3D2")
	if m.BDL {
		w.Magic("bdl4")
	} else {
		w.Magic("bmd3")
	}
	fileSizeSite := w.ReserveU32()
	secCountSite := w.ReserveU32()
	w.Magic("SVR3")
	w.U32(0xFFFFFFFF)
	w.U32(0xFFFFFFFF)
	w.U32(0xFFFFFFFF)

	m.ensureDrawMatrices()
	m.ensureHierarchy()

	sections := 0
	writeINF1(w, m)
	sections++
	if len(m.VertexBuffers) > 0 {
		if err := writeVTX1(w, m); err != nil {
			return nil, err
		}
		sections++
	}
	envelopes, drw1 := m.buildEnvelopeTables()
	if len(envelopes) > 0 || len(m.InverseBinds) > 0 {
		writeEVP1(w, m, envelopes)
		sections++
	}
	if len(drw1) > 0 {
		writeDRW1(w, drw1)
		sections++
	}
	writeJNT1(w, m)
	sections++
	if err := writeSHP1(w, m); err != nil {
		return nil, err
	}
	sections++

	if m.MAT3Blob != nil {
		w.Bytes(m.MAT3Blob)
	} else {
		writeEmptySection(w, "MAT3")
	}
	sections++
	if m.BDL && m.MDL3Blob != nil {
		w.Bytes(m.MDL3Blob)
		sections++
	}
	if m.TEX1Blob != nil {
		w.Bytes(m.TEX1Blob)
	} else {
		writeEmptySection(w, "TEX1")
	}
	sections++

	w.PatchU32At(secCountSite, uint32(sections))
	w.PatchU32At(fileSizeSite, uint32(w.Len()))
	return w.Finalize()
}

// writeEmptySection emits a structurally valid zero-entry section for
// models built from scratch.
func writeEmptySection(w *stream.Writer, magic string) {
	s := beginSection(w, magic)
	w.U16(0)
	w.U16(0xFFFF)
	s.end()
}

// ensureDrawMatrices synthesizes one singlebound matrix per joint when
// the model never configured skinning, matching what a reader recovers
// from a minimal file.
func (m *Model) ensureDrawMatrices() {
	if len(m.DrawMatrices) > 0 || m.Joints.Len() == 0 {
		return
	}
	for i := 0; i < m.Joints.Len(); i++ {
		m.DrawMatrices = append(m.DrawMatrices, DrawMatrix{
			Influences: []Influence{{JointIndex: uint16(i), Weight: 1}},
		})
	}
}

// ensureHierarchy synthesizes an INF1 graph from the joint tree when the
// model was built programmatically.
func (m *Model) ensureHierarchy() {
	if len(m.Hierarchy) > 0 || m.Joints.Len() == 0 {
		return
	}
	var emit func(idx uint16)
	emit = func(idx uint16) {
		m.Hierarchy = append(m.Hierarchy, HierarchyNode{Op: HierarchyJoint, Index: idx})
		j := m.Joints.Get(int(idx))
		if len(j.Children) > 0 {
			m.Hierarchy = append(m.Hierarchy, HierarchyNode{Op: HierarchyOpen})
			for _, c := range j.Children {
				emit(c)
			}
			m.Hierarchy = append(m.Hierarchy, HierarchyNode{Op: HierarchyClose})
		}
	}
	for i := 0; i < m.Joints.Len(); i++ {
		if m.Joints.Get(i).Parent == -1 {
			emit(uint16(i))
		}
	}
	m.Hierarchy = append(m.Hierarchy, HierarchyNode{Op: HierarchyEnd})
}

func writeINF1(w *stream.Writer, m *Model) {
	s := beginSection(w, "INF1")
	w.U16(m.InfoFlag&^0xF | uint16(m.Scaling))
	w.U16(0xFFFF)

	packets := 0
	for _, sh := range m.Shapes.All() {
		packets += len(sh.MatrixPrimitives)
	}
	w.U32(uint32(packets))
	vertexCount := 0
	if pos := m.BufferFor(gx.Position); pos != nil {
		vertexCount = pos.Len()
	}
	w.U32(uint32(vertexCount))
	w.U32(0x18) // hierarchy follows the fixed header
	for _, n := range m.Hierarchy {
		w.U16(uint16(n.Op))
		w.U16(n.Index)
	}
	s.end()
}

func writeScalar(w *stream.Writer, compType uint32, shift uint8, v float32) error {
	scaled := float64(v) * float64(int64(1)<<shift)
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
		return rerr.Malformedf("bmd/vtx1", "unknown component type %d", compType)
	}
	return nil
}

func writeColorEntry(w *stream.Writer, compType uint32, c [4]uint8) error {
	switch compType {
	case 0: // rgb565
		w.U16(uint16(c[0]>>3)<<11 | uint16(c[1]>>2)<<5 | uint16(c[2]>>3))
	case 1: // rgb8
		w.U8(c[0])
		w.U8(c[1])
		w.U8(c[2])
	case 2: // rgbx8
		w.U8(c[0])
		w.U8(c[1])
		w.U8(c[2])
		w.U8(0xFF)
	case 3: // rgba4
		w.U16(uint16(c[0]>>4)<<12 | uint16(c[1]>>4)<<8 | uint16(c[2]>>4)<<4 | uint16(c[3]>>4))
	case 4: // rgba6
		v := uint32(c[0]>>2)<<18 | uint32(c[1]>>2)<<12 | uint32(c[2]>>2)<<6 | uint32(c[3]>>2)
		w.U8(uint8(v >> 16))
		w.U8(uint8(v >> 8))
		w.U8(uint8(v))
	case 5: // rgba8
		w.U8(c[0])
		w.U8(c[1])
		w.U8(c[2])
		w.U8(c[3])
	default:
		return rerr.Malformedf("bmd/vtx1", "unknown color format %d", compType)
	}
	return nil
}

func writeVTX1(w *stream.Writer, m *Model) error {
	s := beginSection(w, "VTX1")
	w.U32(0x40)
	slotSites := make([]int, 13)
	for i := range slotSites {
		slotSites[i] = w.ReserveU32()
	}

	for _, b := range m.VertexBuffers {
		w.U32(uint32(b.Attr))
		w.U32(b.CompCount)
		w.U32(b.CompType)
		w.U8(b.Shift)
		w.U8(0xFF)
		w.U8(0xFF)
		w.U8(0xFF)
	}
	// GX_VA_NULL terminator entry.
	w.U32(0xFF)
	w.U32(1)
	w.U32(0)
	w.U8(0)
	w.U8(0xFF)
	w.U8(0xFF)
	w.U8(0xFF)

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

	for _, b := range m.VertexBuffers {
		w.AlignWith(0x20, stream.PadZero)
		w.PatchU32At(slotSites[slotOf(b.Attr)], uint32(w.Pos()-s.start))
		if b.Colors != nil {
			for _, c := range b.Colors {
				if err := writeColorEntry(w, b.CompType, c); err != nil {
					return err
				}
			}
		} else {
			for _, entry := range b.Floats {
				for _, v := range entry {
					if err := writeScalar(w, b.CompType, b.Shift, v); err != nil {
						return err
					}
				}
			}
		}
	}
	w.AlignWith(0x20, stream.PadZero)
	s.end()
	return nil
}

// buildEnvelopeTables projects the unified draw matrices back into the
// EVP1 envelope list and DRW1 pair arrays.
func (m *Model) buildEnvelopeTables() ([]Envelope, []struct {
	Weighted bool
	Index    uint16
}) {
	type pair = struct {
		Weighted bool
		Index    uint16
	}
	var envelopes []Envelope
	envIndex := map[string]uint16{}
	key := func(infs []Influence) string {
		return fmt.Sprint(infs)
	}
	var drw1 []pair
	for _, dm := range m.DrawMatrices {
		if dm.IsSinglebound() {
			drw1 = append(drw1, pair{Weighted: false, Index: dm.Influences[0].JointIndex})
			continue
		}
		k := key(dm.Influences)
		idx, ok := envIndex[k]
		if !ok {
			idx = uint16(len(envelopes))
			envIndex[k] = idx
			envelopes = append(envelopes, Envelope{Influences: append([]Influence(nil), dm.Influences...)})
		}
		drw1 = append(drw1, pair{Weighted: true, Index: idx})
	}
	return envelopes, drw1
}

func writeEVP1(w *stream.Writer, m *Model, envelopes []Envelope) {
	s := beginSection(w, "EVP1")
	w.U16(uint16(len(envelopes)))
	w.U16(0xFFFF)
	countsSite := w.ReserveU32()
	indicesSite := w.ReserveU32()
	weightsSite := w.ReserveU32()
	matricesSite := w.ReserveU32()

	w.PatchU32At(countsSite, uint32(w.Pos()-s.start))
	for _, e := range envelopes {
		w.U8(uint8(len(e.Influences)))
	}
	w.PatchU32At(indicesSite, uint32(w.Pos()-s.start))
	for _, e := range envelopes {
		for _, inf := range e.Influences {
			w.U16(inf.JointIndex)
		}
	}
	w.AlignWith(4, stream.PadZero)
	w.PatchU32At(weightsSite, uint32(w.Pos()-s.start))
	for _, e := range envelopes {
		for _, inf := range e.Influences {
			w.F32(inf.Weight)
		}
	}
	if len(m.InverseBinds) > 0 {
		w.PatchU32At(matricesSite, uint32(w.Pos()-s.start))
		for _, mtx := range m.InverseBinds {
			for _, v := range mtx {
				w.F32(v)
			}
		}
	}
	s.end()
}

func writeDRW1(w *stream.Writer, drw1 []struct {
	Weighted bool
	Index    uint16
}) {
	s := beginSection(w, "DRW1")
	w.U16(uint16(len(drw1)))
	w.U16(0xFFFF)
	weightedSite := w.ReserveU32()
	indexSite := w.ReserveU32()

	w.PatchU32At(weightedSite, uint32(w.Pos()-s.start))
	for _, d := range drw1 {
		if d.Weighted {
			w.U8(1)
		} else {
			w.U8(0)
		}
	}
	w.AlignWith(2, stream.PadZero)
	w.PatchU32At(indexSite, uint32(w.Pos()-s.start))
	for _, d := range drw1 {
		w.U16(d.Index)
	}
	s.end()
}

func writeJNT1(w *stream.Writer, m *Model) {
	s := beginSection(w, "JNT1")
	count := m.Joints.Len()
	w.U16(uint16(count))
	w.U16(0xFFFF)
	dataSite := w.ReserveU32()
	remapSite := w.ReserveU32()
	strSite := w.ReserveU32()

	w.PatchU32At(dataSite, uint32(w.Pos()-s.start))
	for _, j := range m.Joints.All() {
		w.U16(j.Flag)
		w.U8(uint8(j.Billboard))
		w.U8(0xFF)
		for _, v := range j.Scale {
			w.F32(v)
		}
		for _, v := range j.Rotation {
			w.S16(v)
		}
		w.U16(0xFFFF)
		for _, v := range j.Translation {
			w.F32(v)
		}
		w.F32(j.BoundingRadius)
		for _, v := range j.BBoxMin {
			w.F32(v)
		}
		for _, v := range j.BBoxMax {
			w.F32(v)
		}
	}

	w.PatchU32At(remapSite, uint32(w.Pos()-s.start))
	remap := m.JointRemap
	if len(remap) != count {
		remap = make([]uint16, count)
		for i := range remap {
			remap[i] = uint16(i)
		}
	}
	for _, v := range remap {
		w.U16(v)
	}

	w.AlignWith(2, stream.PadZero)
	w.PatchU32At(strSite, uint32(w.Pos()-s.start))
	jointNames := make([]string, count)
	for i, j := range m.Joints.All() {
		jointNames[i] = j.DisplayName()
	}
	names.WriteJ3DStringTable(w, jointNames)
	s.end()
}

func writeSHP1(w *stream.Writer, m *Model) error {
	s := beginSection(w, "SHP1")
	count := m.Shapes.Len()
	w.U16(uint16(count))
	w.U16(0xFFFF)
	var sites [8]int
	for i := range sites {
		sites[i] = w.ReserveU32()
	}

	// VCD lists, deduplicated by content.
	type vcdRef struct{ offset uint16 }
	vcdBytes := stream.NewWriter()
	vcdOffsets := map[string]uint16{}
	vcdOf := func(vcd *gx.VertexDescriptor) (vcdRef, error) {
		keyW := stream.NewWriter()
		for _, a := range vcd.Active() {
			keyW.U32(uint32(a))
			keyW.U32(uint32(vcd.Get(a)))
		}
		keyW.U32(0xFF)
		keyW.U32(0)
		raw, err := keyW.Finalize()
		if err != nil {
			return vcdRef{}, err
		}
		k := string(raw)
		if ofs, ok := vcdOffsets[k]; ok {
			return vcdRef{offset: ofs}, nil
		}
		ofs := uint16(vcdBytes.Pos())
		vcdOffsets[k] = ofs
		vcdBytes.Bytes(raw)
		return vcdRef{offset: ofs}, nil
	}

	// Shared matrix table, display lists, matrix data, packet
	// locations.
	var mtxTable []uint16
	dlBytes := stream.NewWriter()
	type mtxData struct {
		current  uint16
		count    uint16
		firstIdx uint32
	}
	type pktLoc struct {
		size uint32
		ofs  uint32
	}
	var mtxDatas []mtxData
	var pktLocs []pktLoc

	type shapeEntry struct {
		dispFlags    uint8
		nMtxPrims    uint16
		vcdOfs       uint16
		firstMtxData uint16
		firstPkt     uint16
		radius       float32
		bboxMin      [3]float32
		bboxMax      [3]float32
	}
	entries := make([]shapeEntry, count)

	for si, sh := range m.Shapes.All() {
		ref, err := vcdOf(&sh.VCD)
		if err != nil {
			return err
		}
		entries[si] = shapeEntry{
			dispFlags:    sh.DispFlags,
			nMtxPrims:    uint16(len(sh.MatrixPrimitives)),
			vcdOfs:       ref.offset,
			firstMtxData: uint16(len(mtxDatas)),
			firstPkt:     uint16(len(pktLocs)),
			radius:       sh.BoundingRadius,
			bboxMin:      sh.BBoxMin,
			bboxMax:      sh.BBoxMax,
		}
		for _, mp := range sh.MatrixPrimitives {
			mtxDatas = append(mtxDatas, mtxData{
				current:  mp.CurrentMatrix,
				count:    uint16(len(mp.MatrixIndices)),
				firstIdx: uint32(len(mtxTable)),
			})
			mtxTable = append(mtxTable, mp.MatrixIndices...)

			start := dlBytes.Pos()
			if err := gx.EncodeDisplayList(dlBytes, mp.Primitives, &sh.VCD); err != nil {
				return err
			}
			dlBytes.AlignWith(0x20, stream.PadZero)
			pktLocs = append(pktLocs, pktLoc{
				size: uint32(dlBytes.Pos() - start),
				ofs:  uint32(start),
			})
		}
	}

	// Shape entries.
	w.PatchU32At(sites[0], uint32(w.Pos()-s.start))
	for _, e := range entries {
		w.U8(e.dispFlags)
		w.U8(0xFF)
		w.U16(e.nMtxPrims)
		w.U16(e.vcdOfs)
		w.U16(e.firstMtxData)
		w.U16(e.firstPkt)
		w.U16(0xFFFF)
		w.F32(e.radius)
		for _, v := range e.bboxMin {
			w.F32(v)
		}
		for _, v := range e.bboxMax {
			w.F32(v)
		}
	}

	// Remap table.
	w.PatchU32At(sites[1], uint32(w.Pos()-s.start))
	remap := m.ShapeRemap
	if len(remap) != count {
		remap = make([]uint16, count)
		for i := range remap {
			remap[i] = uint16(i)
		}
	}
	for _, v := range remap {
		w.U16(v)
	}
	w.PatchU32At(sites[2], 0)

	// VCD lists.
	w.AlignWith(4, stream.PadZero)
	w.PatchU32At(sites[3], uint32(w.Pos()-s.start))
	vcdRaw, err := vcdBytes.Finalize()
	if err != nil {
		return err
	}
	w.Bytes(vcdRaw)

	// Matrix table.
	w.PatchU32At(sites[4], uint32(w.Pos()-s.start))
	for _, v := range mtxTable {
		w.U16(v)
	}

	// Display lists.
	w.AlignWith(0x20, stream.PadZero)
	w.PatchU32At(sites[5], uint32(w.Pos()-s.start))
	dlRaw, err := dlBytes.Finalize()
	if err != nil {
		return err
	}
	w.Bytes(dlRaw)

	// Matrix data.
	w.PatchU32At(sites[6], uint32(w.Pos()-s.start))
	for _, md := range mtxDatas {
		w.U16(md.current)
		w.U16(md.count)
		w.U32(md.firstIdx)
	}

	// Packet locations.
	w.PatchU32At(sites[7], uint32(w.Pos()-s.start))
	for _, pl := range pktLocs {
		w.U32(pl.size)
		w.U32(pl.ofs)
	}
	s.end()
	return nil
}
