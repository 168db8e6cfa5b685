package egg

import (
	"github.com/rvltools/rkit/internal/rerr"
	"github.com/rvltools/rkit/internal/stream"
)

// DrawSetting is one light-texture draw layer.
type DrawSetting struct {
	NormEffectScale float32
	Pattern         uint8
	Enabled         uint8
	Reserved        [2]uint8
}

// LightTexture is one LTEX record: a named projected texture with its
// draw settings.
type LightTexture struct {
	Name         string // at most 31 bytes, NUL-padded to 32 on disk
	BaseLayer    uint8
	Reserved     [3]uint8
	DrawSettings []DrawSetting
}

// Blmap is the EGG light-map blob: the textures the BLIGHT lights with
// LightUseBlmap sample from.
type Blmap struct {
	Version  uint8
	Reserved [7]uint8
	Textures []LightTexture
}

const (
	blmapMagic      = "LMAP"
	blmapHeaderSize = 0x14
	ltexFixedSize   = 0x30
	drawSettingSize = 8
)

// ReadBlmap parses a BLMAP binary.
func ReadBlmap(data []byte) (*Blmap, error) {
	r := stream.NewReader(data)
	r.SetSite("egg/blmap")
	if err := r.Magic(blmapMagic); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // file size
		return nil, err
	}
	b := &Blmap{}
	var err error
	if b.Version, err = r.U8(); err != nil {
		return nil, err
	}
	for i := range b.Reserved {
		if b.Reserved[i], err = r.U8(); err != nil {
			return nil, err
		}
	}
	texCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	if err := r.Skip(2); err != nil {
		return nil, err
	}

	for i := 0; i < int(texCount); i++ {
		var tex LightTexture
		if err := r.Magic("LTEX"); err != nil {
			return nil, err
		}
		if _, err := r.U32(); err != nil { // record size
			return nil, err
		}
		nameBytes, err := r.Bytes(32)
		if err != nil {
			return nil, err
		}
		tex.Name = cString(nameBytes)
		if tex.BaseLayer, err = r.U8(); err != nil {
			return nil, err
		}
		for j := range tex.Reserved {
			if tex.Reserved[j], err = r.U8(); err != nil {
				return nil, err
			}
		}
		settingCount, err := r.U16()
		if err != nil {
			return nil, err
		}
		if err := r.Skip(2); err != nil {
			return nil, err
		}
		for j := 0; j < int(settingCount); j++ {
			var ds DrawSetting
			if ds.NormEffectScale, err = r.F32(); err != nil {
				return nil, err
			}
			if ds.Pattern, err = r.U8(); err != nil {
				return nil, err
			}
			if ds.Enabled, err = r.U8(); err != nil {
				return nil, err
			}
			if ds.Reserved[0], err = r.U8(); err != nil {
				return nil, err
			}
			if ds.Reserved[1], err = r.U8(); err != nil {
				return nil, err
			}
			tex.DrawSettings = append(tex.DrawSettings, ds)
		}
		b.Textures = append(b.Textures, tex)
	}
	return b, nil
}

// WriteBlmap serializes the blob field-for-field.
func WriteBlmap(b *Blmap) ([]byte, error) {
	total := blmapHeaderSize
	for _, tex := range b.Textures {
		total += ltexFixedSize + drawSettingSize*len(tex.DrawSettings)
	}

	w := stream.NewWriter()
	w.Magic(blmapMagic)
	w.U32(uint32(total))
	w.U8(b.Version)
	for _, e := range b.Reserved {
		w.U8(e)
	}
	w.U16(uint16(len(b.Textures)))
	w.Skip(2)

	for _, tex := range b.Textures {
		if len(tex.Name) > 31 {
			return nil, rerr.Malformedf("egg/blmap", "texture name %q exceeds 31 bytes", tex.Name)
		}
		w.Magic("LTEX")
		w.U32(uint32(ltexFixedSize + drawSettingSize*len(tex.DrawSettings)))
		name := make([]byte, 32)
		copy(name, tex.Name)
		w.Bytes(name)
		w.U8(tex.BaseLayer)
		for _, e := range tex.Reserved {
			w.U8(e)
		}
		w.U16(uint16(len(tex.DrawSettings)))
		w.Skip(2)
		for _, ds := range tex.DrawSettings {
			w.F32(ds.NormEffectScale)
			w.U8(ds.Pattern)
			w.U8(ds.Enabled)
			w.U8(ds.Reserved[0])
			w.U8(ds.Reserved[1])
		}
	}
	return w.Finalize()
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
