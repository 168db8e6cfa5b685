// Package kcl handles Mario Kart Wii course-collision binaries. The
// header is parsed so tools can inspect the prism parameters; the vertex
// pools and the spatial-index octree are opaque blobs preserved verbatim,
// since rebuilding the index is only meaningful on an explicit request.
package kcl

import (
	"github.com/rvltools/rkit/internal/stream"
)

const headerSize = 0x3C

// Model is a collision file: the decoded header plus the raw section
// bytes that follow it.
type Model struct {
	PositionsOffset uint32
	NormalsOffset   uint32
	PrismsOffset    uint32 // stored with the retail -0x10 bias
	BlockDataOffset uint32

	PrismThickness float32
	AreaMinPos     [3]float32
	MaskX          uint32
	MaskY          uint32
	MaskZ          uint32
	CoordShift     uint32
	YShift         uint32
	ZShift         uint32
	SphereRadius   float32

	// Blob is everything past the header, byte-for-byte.
	Blob []byte
}

// Read parses the header and captures the rest verbatim.
func Read(data []byte) (*Model, error) {
	r := stream.NewReader(data)
	r.SetSite("kcl")
	m := &Model{}
	var err error
	if m.PositionsOffset, err = r.U32(); err != nil {
		return nil, err
	}
	if m.NormalsOffset, err = r.U32(); err != nil {
		return nil, err
	}
	if m.PrismsOffset, err = r.U32(); err != nil {
		return nil, err
	}
	if m.BlockDataOffset, err = r.U32(); err != nil {
		return nil, err
	}
	if m.PrismThickness, err = r.F32(); err != nil {
		return nil, err
	}
	for i := range m.AreaMinPos {
		if m.AreaMinPos[i], err = r.F32(); err != nil {
			return nil, err
		}
	}
	if m.MaskX, err = r.U32(); err != nil {
		return nil, err
	}
	if m.MaskY, err = r.U32(); err != nil {
		return nil, err
	}
	if m.MaskZ, err = r.U32(); err != nil {
		return nil, err
	}
	if m.CoordShift, err = r.U32(); err != nil {
		return nil, err
	}
	if m.YShift, err = r.U32(); err != nil {
		return nil, err
	}
	if m.ZShift, err = r.U32(); err != nil {
		return nil, err
	}
	if m.SphereRadius, err = r.F32(); err != nil {
		return nil, err
	}
	m.Blob, err = r.Bytes(r.Remaining())
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Write re-emits the header fields followed by the untouched blob.
func Write(m *Model) []byte {
	w := stream.NewWriter()
	w.U32(m.PositionsOffset)
	w.U32(m.NormalsOffset)
	w.U32(m.PrismsOffset)
	w.U32(m.BlockDataOffset)
	w.F32(m.PrismThickness)
	for _, v := range m.AreaMinPos {
		w.F32(v)
	}
	w.U32(m.MaskX)
	w.U32(m.MaskY)
	w.U32(m.MaskZ)
	w.U32(m.CoordShift)
	w.U32(m.YShift)
	w.U32(m.ZShift)
	w.F32(m.SphereRadius)
	w.Bytes(m.Blob)
	out, _ := w.Finalize()
	return out
}
