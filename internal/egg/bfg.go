package egg

import (
	"github.com/rvltools/rkit/internal/rerr"
	"github.com/rvltools/rkit/internal/stream"
)

// FogEntry is one fog preset (0x24 bytes). Retail files carry exactly
// four entries, one per fog layer.
type FogEntry struct {
	Type      uint32
	StartZ    float32
	EndZ      float32
	Color     Color
	Enabled   uint8
	Pad       [3]uint8
	Center    uint16
	Pad2      uint16
	FadeSpeed float32
	Reserved  [8]uint8
}

// Bfg is the EGG fog parameter blob.
type Bfg struct {
	Entries []FogEntry
}

const (
	bfgMagic     = "FOGM"
	bfgEntrySize = 0x24
)

// ReadBfg parses a BFG binary.
func ReadBfg(data []byte) (*Bfg, error) {
	r := stream.NewReader(data)
	r.SetSite("egg/bfg")
	if err := r.Magic(bfgMagic); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // file size
		return nil, err
	}
	count, err := r.U16()
	if err != nil {
		return nil, err
	}
	if err := r.Skip(2); err != nil {
		return nil, err
	}
	b := &Bfg{}
	for i := 0; i < int(count); i++ {
		var e FogEntry
		if e.Type, err = r.U32(); err != nil {
			return nil, err
		}
		if e.StartZ, err = r.F32(); err != nil {
			return nil, err
		}
		if e.EndZ, err = r.F32(); err != nil {
			return nil, err
		}
		if e.Color, err = readColor(r); err != nil {
			return nil, err
		}
		if e.Enabled, err = r.U8(); err != nil {
			return nil, err
		}
		for j := range e.Pad {
			if e.Pad[j], err = r.U8(); err != nil {
				return nil, err
			}
		}
		if e.Center, err = r.U16(); err != nil {
			return nil, err
		}
		if e.Pad2, err = r.U16(); err != nil {
			return nil, err
		}
		if e.FadeSpeed, err = r.F32(); err != nil {
			return nil, err
		}
		for j := range e.Reserved {
			if e.Reserved[j], err = r.U8(); err != nil {
				return nil, err
			}
		}
		b.Entries = append(b.Entries, e)
	}
	if r.Remaining() != 0 {
		return nil, rerr.Malformedf("egg/bfg", "%d trailing bytes after %d entries", r.Remaining(), count)
	}
	return b, nil
}

// WriteBfg serializes the blob field-for-field.
func WriteBfg(b *Bfg) []byte {
	w := stream.NewWriter()
	w.Magic(bfgMagic)
	w.U32(uint32(12 + bfgEntrySize*len(b.Entries)))
	w.U16(uint16(len(b.Entries)))
	w.Skip(2)
	for _, e := range b.Entries {
		w.U32(e.Type)
		w.F32(e.StartZ)
		w.F32(e.EndZ)
		writeColor(w, e.Color)
		w.U8(e.Enabled)
		for _, p := range e.Pad {
			w.U8(p)
		}
		w.U16(e.Center)
		w.U16(e.Pad2)
		w.F32(e.FadeSpeed)
		for _, p := range e.Reserved {
			w.U8(p)
		}
	}
	out, _ := w.Finalize()
	return out
}
