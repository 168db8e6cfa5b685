package egg

import (
	"strconv"

	"github.com/rvltools/rkit/internal/rerr"
	"github.com/rvltools/rkit/internal/stream"
)

// Light flags, matching the runtime's LightObject bits.
const (
	LightEnabled            = 1 << 0
	LightSnapTo             = 1 << 1
	LightUseBlmap           = 1 << 5
	LightEnabled2           = 1 << 6
	LightSpotlight          = 1 << 7
	LightManualDistanceAttn = 1 << 8
	LightEnableG3DColor     = 1 << 9
	LightEnableG3DAlpha     = 1 << 10
	LightUseShininess       = 1 << 11
)

// CoordinateSpace positions a light's frame of reference.
type CoordinateSpace uint8

const (
	SpaceWorld CoordinateSpace = iota
	SpaceView
	SpaceTopOrtho
	SpaceBottomOrtho
)

// LightType selects the GX light kind.
type LightType uint8

const (
	LightPoint LightType = iota
	LightDirectional
	LightSpot
)

// LightObject is one LOBJ record (0x50 bytes).
type LightObject struct {
	Version         uint8
	SpotFunction    uint8
	DistAttnFn      uint8
	CoordSpace      CoordinateSpace
	Type            LightType
	AmbientIndex    uint16
	Flags           uint16
	Position        Vec3
	Aim             Vec3
	Intensity       float32
	Color           Color
	SpecularColor   Color
	SpotCutoffAngle float32
	RefDist         float32
	RefBrightness   float32
	SnapTargetIndex uint16
}

// DefaultLightObject mirrors the runtime's reset state.
func DefaultLightObject() LightObject {
	return LightObject{
		Version:         2,
		Type:            LightDirectional,
		Flags:           LightEnabled | LightUseBlmap | LightEnabled2 | LightEnableG3DColor | LightEnableG3DAlpha,
		Position:        Vec3{-10000, 10000, 10000},
		Intensity:       1,
		Color:           Color{0xFF, 0xFF, 0xFF, 0xFF},
		SpecularColor:   Color{0, 0, 0, 0xFF},
		SpotCutoffAngle: 90,
		RefDist:         0.5,
		RefBrightness:   0.5,
	}
}

// AmbientObject is one 8-byte ambient entry.
type AmbientObject struct {
	Color    Color
	Reserved [4]uint8
}

// Blight is the EGG light manager blob.
type Blight struct {
	Version   uint8
	Reserved  [7]uint8
	BackColor Color
	Lights    []LightObject
	Ambients  []AmbientObject
}

const (
	blightMagic      = "LGHT"
	blightHeaderSize = 0x28
	lobjSize         = 0x50
	ambientSize      = 8
)

// ReadBlight parses a BLIGHT binary.
func ReadBlight(data []byte) (*Blight, error) {
	r := stream.NewReader(data)
	r.SetSite("egg/blight")
	if err := r.Magic(blightMagic); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // file size
		return nil, err
	}
	b := &Blight{}
	var err error
	if b.Version, err = r.U8(); err != nil {
		return nil, err
	}
	if b.Version != 2 {
		// The runtime supports older revisions; this codec does not.
		return nil, &rerr.VersionError{Site: "egg/blight", Got: strconv.Itoa(int(b.Version))}
	}
	for i := range b.Reserved {
		if b.Reserved[i], err = r.U8(); err != nil {
			return nil, err
		}
	}
	lightCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	ambientCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	if b.BackColor, err = readColor(r); err != nil {
		return nil, err
	}

	if err := r.SeekTo(blightHeaderSize); err != nil {
		return nil, err
	}
	for i := 0; i < int(lightCount); i++ {
		var obj LightObject
		if err := r.Magic("LOBJ"); err != nil {
			return nil, err
		}
		if _, err := r.U32(); err != nil { // record size 0x50
			return nil, err
		}
		if obj.Version, err = r.U8(); err != nil {
			return nil, err
		}
		if err := r.Skip(3); err != nil {
			return nil, err
		}
		if _, err := r.U32(); err != nil {
			return nil, err
		}
		if obj.SpotFunction, err = r.U8(); err != nil {
			return nil, err
		}
		if obj.DistAttnFn, err = r.U8(); err != nil {
			return nil, err
		}
		space, err := r.U8()
		if err != nil {
			return nil, err
		}
		obj.CoordSpace = CoordinateSpace(space)
		typ, err := r.U8()
		if err != nil {
			return nil, err
		}
		obj.Type = LightType(typ)
		if obj.AmbientIndex, err = r.U16(); err != nil {
			return nil, err
		}
		if obj.Flags, err = r.U16(); err != nil {
			return nil, err
		}
		if obj.Position, err = readVec3(r); err != nil {
			return nil, err
		}
		if obj.Aim, err = readVec3(r); err != nil {
			return nil, err
		}
		if obj.Intensity, err = r.F32(); err != nil {
			return nil, err
		}
		if obj.Color, err = readColor(r); err != nil {
			return nil, err
		}
		if obj.SpecularColor, err = readColor(r); err != nil {
			return nil, err
		}
		if obj.SpotCutoffAngle, err = r.F32(); err != nil {
			return nil, err
		}
		if obj.RefDist, err = r.F32(); err != nil {
			return nil, err
		}
		if obj.RefBrightness, err = r.F32(); err != nil {
			return nil, err
		}
		if _, err := r.U32(); err != nil {
			return nil, err
		}
		if obj.SnapTargetIndex, err = r.U16(); err != nil {
			return nil, err
		}
		if _, err := r.U16(); err != nil {
			return nil, err
		}
		b.Lights = append(b.Lights, obj)
	}
	for i := 0; i < int(ambientCount); i++ {
		var obj AmbientObject
		if obj.Color, err = readColor(r); err != nil {
			return nil, err
		}
		for j := range obj.Reserved {
			if obj.Reserved[j], err = r.U8(); err != nil {
				return nil, err
			}
		}
		b.Ambients = append(b.Ambients, obj)
	}
	return b, nil
}

// WriteBlight serializes the blob field-for-field.
func WriteBlight(b *Blight) []byte {
	w := stream.NewWriter()
	w.Magic(blightMagic)
	w.U32(uint32(blightHeaderSize + lobjSize*len(b.Lights) + ambientSize*len(b.Ambients)))
	w.U8(b.Version)
	for _, e := range b.Reserved {
		w.U8(e)
	}
	w.U16(uint16(len(b.Lights)))
	w.U16(uint16(len(b.Ambients)))
	writeColor(w, b.BackColor)
	w.Skip(16)

	for _, obj := range b.Lights {
		w.Magic("LOBJ")
		w.U32(lobjSize)
		w.U8(obj.Version)
		w.Skip(3)
		w.U32(0)
		w.U8(obj.SpotFunction)
		w.U8(obj.DistAttnFn)
		w.U8(uint8(obj.CoordSpace))
		w.U8(uint8(obj.Type))
		w.U16(obj.AmbientIndex)
		w.U16(obj.Flags)
		writeVec3(w, obj.Position)
		writeVec3(w, obj.Aim)
		w.F32(obj.Intensity)
		writeColor(w, obj.Color)
		writeColor(w, obj.SpecularColor)
		w.F32(obj.SpotCutoffAngle)
		w.F32(obj.RefDist)
		w.F32(obj.RefBrightness)
		w.U32(0)
		w.U16(obj.SnapTargetIndex)
		w.U16(0)
	}
	for _, obj := range b.Ambients {
		writeColor(w, obj.Color)
		for _, e := range obj.Reserved {
			w.U8(e)
		}
	}
	out, _ := w.Finalize()
	return out
}
