package egg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvltools/rkit/internal/rerr"
)

func TestBlight_RoundTrip(t *testing.T) {
	b := &Blight{
		Version:   2,
		BackColor: Color{0, 0, 0, 0xFF},
		Lights:    []LightObject{DefaultLightObject()},
		Ambients: []AmbientObject{
			{Color: Color{0x64, 0x64, 0x64, 0xFF}},
			{Color: Color{0x10, 0x20, 0x30, 0xFF}, Reserved: [4]uint8{1, 2, 3, 4}},
		},
	}
	b.Lights[0].Type = LightSpot
	b.Lights[0].Flags |= LightSpotlight

	data := WriteBlight(b)
	assert.Len(t, data, 0x28+0x50+2*8)

	got, err := ReadBlight(data)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	again := WriteBlight(got)
	assert.Equal(t, data, again, "write(read(bytes)) must be byte-identical")
}

func TestBlight_UnsupportedVersion(t *testing.T) {
	b := &Blight{Version: 2}
	data := WriteBlight(b)
	data[8] = 1
	_, err := ReadBlight(data)
	var verr *rerr.VersionError
	assert.ErrorAs(t, err, &verr)
}

func TestBlight_BadMagic(t *testing.T) {
	_, err := ReadBlight([]byte("LGHX\x00\x00\x00\x00"))
	var magicErr *rerr.MagicError
	assert.ErrorAs(t, err, &magicErr)
}

func TestBlmap_RoundTrip(t *testing.T) {
	b := &Blmap{
		Version: 1,
		Textures: []LightTexture{
			{
				Name:      "spot_gradient",
				BaseLayer: 1,
				DrawSettings: []DrawSetting{
					{NormEffectScale: 0.5, Pattern: 2, Enabled: 1},
					{NormEffectScale: 1.0, Pattern: 0, Enabled: 0},
				},
			},
			{Name: "env_mask"},
		},
	}
	data, err := WriteBlmap(b)
	require.NoError(t, err)

	got, err := ReadBlmap(data)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	again, err := WriteBlmap(got)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestBlmap_NameTooLong(t *testing.T) {
	b := &Blmap{Textures: []LightTexture{{Name: string(make([]byte, 40))}}}
	_, err := WriteBlmap(b)
	assert.Error(t, err)
}

func TestBdof_RoundTrip(t *testing.T) {
	d := &Bdof{
		Version:        0,
		Flags:          3,
		BlurAlpha0:     0x80,
		BlurAlpha1:     0xFF,
		DrawMode:       1,
		BlurDrawAmount: 2,
		FocusCenter:    1000,
		FocusRange:     5000,
		BlurRadius:     2.5,
	}
	d.Tail[0] = 0xAA

	data := WriteBdof(d)
	assert.Len(t, data, 0x50)

	got, err := ReadBdof(data)
	require.NoError(t, err)
	assert.Equal(t, d, got)
	assert.Equal(t, data, WriteBdof(got))
}

func TestBblm_RoundTrip(t *testing.T) {
	b := &Bblm{
		Version:        1,
		Threshold:      0.75,
		ThresholdColor: Color{0xFF, 0xFF, 0xFF, 0xFF},
		CompositeColor: Color{0x80, 0x80, 0x80, 0xFF},
		BlurFlags:      7,
	}
	for i := range b.Passes {
		b.Passes[i] = BloomPass{Intensity: float32(i) * 0.1, Scale: 1}
	}

	data := WriteBblm(b)
	assert.Len(t, data, 0xA4)

	got, err := ReadBblm(data)
	require.NoError(t, err)
	assert.Equal(t, b, got)
	assert.Equal(t, data, WriteBblm(got))
}

func TestBfg_RoundTrip(t *testing.T) {
	b := &Bfg{}
	for i := 0; i < 4; i++ {
		b.Entries = append(b.Entries, FogEntry{
			Type:    uint32(i),
			StartZ:  1000,
			EndZ:    30000,
			Color:   Color{0xC0, 0xD0, 0xE0, 0xFF},
			Enabled: uint8(i % 2),
		})
	}
	data := WriteBfg(b)
	assert.Len(t, data, 12+4*0x24)

	got, err := ReadBfg(data)
	require.NoError(t, err)
	assert.Equal(t, b, got)
	assert.Equal(t, data, WriteBfg(got))
}

func TestBfg_TrailingGarbage(t *testing.T) {
	data := WriteBfg(&Bfg{Entries: []FogEntry{{}}})
	data = append(data, 0xEE)
	_, err := ReadBfg(data)
	var malformed *rerr.MalformedError
	assert.ErrorAs(t, err, &malformed)
}
