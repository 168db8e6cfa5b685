package egg

import (
	"github.com/rvltools/rkit/internal/stream"
)

// Bdof is the EGG depth-of-field parameter blob (fixed 0x50 bytes).
type Bdof struct {
	Version  uint8
	Reserved [3]uint8

	Flags          uint16
	BlurAlpha0     uint8
	BlurAlpha1     uint8
	DrawMode       uint8
	BlurDrawAmount uint8
	DepthCurveType uint8
	Pad            uint8

	FocusCenter     float32
	FocusRange      float32
	BlurRadius      float32
	IndTexTransX    float32
	IndTexTransY    float32
	IndTexScaleS    uint8
	IndTexScaleT    uint8
	Pad2            [2]uint8
	IndTexIndScaleS float32
	IndTexIndScaleT float32

	Tail [28]uint8 // remaining words, preserved verbatim
}

const (
	bdofMagic = "PDOF"
	bdofSize  = 0x50
)

// ReadBdof parses a BDOF binary.
func ReadBdof(data []byte) (*Bdof, error) {
	r := stream.NewReader(data)
	r.SetSite("egg/bdof")
	if err := r.Magic(bdofMagic); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // file size 0x50
		return nil, err
	}
	d := &Bdof{}
	var err error
	if d.Version, err = r.U8(); err != nil {
		return nil, err
	}
	for i := range d.Reserved {
		if d.Reserved[i], err = r.U8(); err != nil {
			return nil, err
		}
	}
	if d.Flags, err = r.U16(); err != nil {
		return nil, err
	}
	if d.BlurAlpha0, err = r.U8(); err != nil {
		return nil, err
	}
	if d.BlurAlpha1, err = r.U8(); err != nil {
		return nil, err
	}
	if d.DrawMode, err = r.U8(); err != nil {
		return nil, err
	}
	if d.BlurDrawAmount, err = r.U8(); err != nil {
		return nil, err
	}
	if d.DepthCurveType, err = r.U8(); err != nil {
		return nil, err
	}
	if d.Pad, err = r.U8(); err != nil {
		return nil, err
	}
	if d.FocusCenter, err = r.F32(); err != nil {
		return nil, err
	}
	if d.FocusRange, err = r.F32(); err != nil {
		return nil, err
	}
	if d.BlurRadius, err = r.F32(); err != nil {
		return nil, err
	}
	if d.IndTexTransX, err = r.F32(); err != nil {
		return nil, err
	}
	if d.IndTexTransY, err = r.F32(); err != nil {
		return nil, err
	}
	if d.IndTexScaleS, err = r.U8(); err != nil {
		return nil, err
	}
	if d.IndTexScaleT, err = r.U8(); err != nil {
		return nil, err
	}
	if d.Pad2[0], err = r.U8(); err != nil {
		return nil, err
	}
	if d.Pad2[1], err = r.U8(); err != nil {
		return nil, err
	}
	if d.IndTexIndScaleS, err = r.F32(); err != nil {
		return nil, err
	}
	if d.IndTexIndScaleT, err = r.F32(); err != nil {
		return nil, err
	}
	for i := range d.Tail {
		if d.Tail[i], err = r.U8(); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// WriteBdof serializes the blob field-for-field.
func WriteBdof(d *Bdof) []byte {
	w := stream.NewWriter()
	w.Magic(bdofMagic)
	w.U32(bdofSize)
	w.U8(d.Version)
	for _, e := range d.Reserved {
		w.U8(e)
	}
	w.U16(d.Flags)
	w.U8(d.BlurAlpha0)
	w.U8(d.BlurAlpha1)
	w.U8(d.DrawMode)
	w.U8(d.BlurDrawAmount)
	w.U8(d.DepthCurveType)
	w.U8(d.Pad)
	w.F32(d.FocusCenter)
	w.F32(d.FocusRange)
	w.F32(d.BlurRadius)
	w.F32(d.IndTexTransX)
	w.F32(d.IndTexTransY)
	w.U8(d.IndTexScaleS)
	w.U8(d.IndTexScaleT)
	w.U8(d.Pad2[0])
	w.U8(d.Pad2[1])
	w.F32(d.IndTexIndScaleS)
	w.F32(d.IndTexIndScaleT)
	for _, e := range d.Tail {
		w.U8(e)
	}
	out, _ := w.Finalize()
	return out
}
