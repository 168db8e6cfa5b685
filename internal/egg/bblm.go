package egg

import (
	"github.com/rvltools/rkit/internal/stream"
)

// Bblm is the EGG bloom parameter blob (fixed 0xA4 bytes).
type Bblm struct {
	Version  uint8
	Reserved [3]uint8

	Threshold      float32
	ThresholdColor Color
	CompositeColor Color
	BlurFlags      uint16
	Pad            [2]uint8

	// Per-pass intensity and fade settings; the retail tool writes
	// exactly six passes.
	Passes [6]BloomPass

	CompositeBlendMode uint8
	BokehBlurScale     uint8
	Pad2               [2]uint8

	Tail [84]uint8 // remaining words, preserved verbatim
}

// BloomPass is one blur pass configuration.
type BloomPass struct {
	Intensity float32
	Scale     float32
}

const (
	bblmMagic = "PBLM"
	bblmSize  = 0xA4
)

// ReadBblm parses a BBLM binary.
func ReadBblm(data []byte) (*Bblm, error) {
	r := stream.NewReader(data)
	r.SetSite("egg/bblm")
	if err := r.Magic(bblmMagic); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // file size 0xA4
		return nil, err
	}
	b := &Bblm{}
	var err error
	if b.Version, err = r.U8(); err != nil {
		return nil, err
	}
	for i := range b.Reserved {
		if b.Reserved[i], err = r.U8(); err != nil {
			return nil, err
		}
	}
	if b.Threshold, err = r.F32(); err != nil {
		return nil, err
	}
	if b.ThresholdColor, err = readColor(r); err != nil {
		return nil, err
	}
	if b.CompositeColor, err = readColor(r); err != nil {
		return nil, err
	}
	if b.BlurFlags, err = r.U16(); err != nil {
		return nil, err
	}
	if b.Pad[0], err = r.U8(); err != nil {
		return nil, err
	}
	if b.Pad[1], err = r.U8(); err != nil {
		return nil, err
	}
	for i := range b.Passes {
		if b.Passes[i].Intensity, err = r.F32(); err != nil {
			return nil, err
		}
		if b.Passes[i].Scale, err = r.F32(); err != nil {
			return nil, err
		}
	}
	if b.CompositeBlendMode, err = r.U8(); err != nil {
		return nil, err
	}
	if b.BokehBlurScale, err = r.U8(); err != nil {
		return nil, err
	}
	if b.Pad2[0], err = r.U8(); err != nil {
		return nil, err
	}
	if b.Pad2[1], err = r.U8(); err != nil {
		return nil, err
	}
	for i := range b.Tail {
		if b.Tail[i], err = r.U8(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// WriteBblm serializes the blob field-for-field.
func WriteBblm(b *Bblm) []byte {
	w := stream.NewWriter()
	w.Magic(bblmMagic)
	w.U32(bblmSize)
	w.U8(b.Version)
	for _, e := range b.Reserved {
		w.U8(e)
	}
	w.F32(b.Threshold)
	writeColor(w, b.ThresholdColor)
	writeColor(w, b.CompositeColor)
	w.U16(b.BlurFlags)
	w.U8(b.Pad[0])
	w.U8(b.Pad[1])
	for _, p := range b.Passes {
		w.F32(p.Intensity)
		w.F32(p.Scale)
	}
	w.U8(b.CompositeBlendMode)
	w.U8(b.BokehBlurScale)
	w.U8(b.Pad2[0])
	w.U8(b.Pad2[1])
	for _, e := range b.Tail {
		w.U8(e)
	}
	out, _ := w.Finalize()
	return out
}
