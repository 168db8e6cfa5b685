package brres

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvltools/rkit/internal/dict"
)

func sampleArchive() *Archive {
	a := NewArchive()

	tex := &Texture{Width: 64, Height: 32, Format: 5, MipLevels: 1, Data: bytes.Repeat([]byte{0xAB}, 64)}
	tex.SetDisplayName("map_body")
	a.Textures.Add(tex)

	// A second texture with an identical body, to exercise dedup.
	tex2 := &Texture{Width: 64, Height: 32, Format: 5, MipLevels: 1, Data: bytes.Repeat([]byte{0xAB}, 64)}
	tex2.SetDisplayName("map_body")
	a.Textures.Add(tex2)

	vis := &VisAnim{FrameDuration: 63, Wrap: WrapRepeat}
	vis.SetDisplayName("door_open")
	vis.Bones = []VisBone{
		{Name: "root", Constant: true, ConstantVisible: true},
		{Name: "lid", Keyframes: []uint32{0xF0F0F0F0, 0x0000FFFF}},
	}
	a.VisAnims.Add(vis)

	srt := &SrtAnim{FrameDuration: 120, Transform: TransformMaya, Wrap: WrapClamp}
	srt.SetDisplayName("water_scroll")
	srt.Materials = []SrtMaterial{{
		Name: "mat_water",
		Matrices: map[uint8]*SrtMatrix{
			0: {
				ScaleX: SrtTrack{Fixed: true, FixedValue: 1},
				ScaleY: SrtTrack{Fixed: true, FixedValue: 1},
				Rotate: SrtTrack{Fixed: true, FixedValue: 0},
				TransX: SrtTrack{Keys: []SrtKey{{Frame: 0, Value: 0}, {Frame: 120, Value: 1, Tangent: 0.01}}},
				TransY: SrtTrack{Fixed: true, FixedValue: 0},
			},
		},
	}}
	a.SrtAnims.Add(srt)
	return a
}

func TestWriteRead_RoundTrip(t *testing.T) {
	a := sampleArchive()
	data, err := a.Write()
	require.NoError(t, err)

	got, err := Read(data)
	require.NoError(t, err)

	require.Equal(t, 2, got.Textures.Len())
	tex := got.Textures.Get(0)
	assert.Equal(t, "map_body", tex.DisplayName())
	assert.Equal(t, uint16(64), tex.Width)
	assert.True(t, tex.EqualsObject(a.Textures.Get(0)))

	require.Equal(t, 1, got.VisAnims.Len())
	assert.True(t, got.VisAnims.Get(0).EqualsObject(a.VisAnims.Get(0)))

	require.Equal(t, 1, got.SrtAnims.Len())
	assert.True(t, got.SrtAnims.Get(0).EqualsObject(a.SrtAnims.Get(0)))
}

func TestWrite_DeterministicAndByteExact(t *testing.T) {
	a := sampleArchive()
	data, err := a.Write()
	require.NoError(t, err)
	doc, err := Read(data)
	require.NoError(t, err)
	again, err := doc.Write()
	require.NoError(t, err)
	assert.Equal(t, data, again, "write(read(bytes)) must be byte-identical")
}

func TestWrite_DedupsIdenticalBodies(t *testing.T) {
	a := sampleArchive()
	data, err := a.Write()
	require.NoError(t, err)

	// The two identical textures must share one TEX0 body.
	count := bytes.Count(data, []byte("TEX0"))
	assert.Equal(t, 1, count, "identical sub-resources share one emitted body")
}

func TestRead_BadBOM(t *testing.T) {
	a := NewArchive()
	data, err := a.Write()
	require.NoError(t, err)
	data[4] = 0xFF
	data[5] = 0xFE
	_, err = Read(data)
	assert.Error(t, err)
}

func TestEmptyArchive_RoundTrip(t *testing.T) {
	a := NewArchive()
	data, err := a.Write()
	require.NoError(t, err)
	got, err := Read(data)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Textures.Len())
	assert.Equal(t, 0, got.Models.Len())
}

func TestRawAnim_PreservedVerbatim(t *testing.T) {
	a := NewArchive()
	blob := append([]byte("CHR0"), []byte{0, 0, 0, 16, 1, 2, 3, 4, 5, 6, 7, 8}...)
	anim := &RawAnim{Data: blob}
	anim.SetDisplayName("walk")
	a.ChrAnims.Add(anim)

	data, err := a.Write()
	require.NoError(t, err)
	got, err := Read(data)
	require.NoError(t, err)
	require.Equal(t, 1, got.ChrAnims.Len())
	assert.Equal(t, blob, got.ChrAnims.Get(0).Data)
	assert.Equal(t, "walk", got.ChrAnims.Get(0).DisplayName())
}

func TestDictionary_GameFormulaAndOrder(t *testing.T) {
	// Three entries "a", "ab", "b" traverse in insertion order and the
	// byte size matches the game's formula.
	nodes := dict.Build([]string{"a", "ab", "b"})
	require.Len(t, nodes, 4)
	assert.Equal(t, "a", nodes[1].Name)
	assert.Equal(t, "ab", nodes[2].Name)
	assert.Equal(t, "b", nodes[3].Name)
	assert.Equal(t, 8+16*4, dict.CalcDictionarySize(3))
}

func TestVisAnim_WordsFor(t *testing.T) {
	assert.Equal(t, 1, WordsFor(0))
	assert.Equal(t, 1, WordsFor(30))
	assert.Equal(t, 1, WordsFor(31))
	assert.Equal(t, 2, WordsFor(32))
	assert.Equal(t, 2, WordsFor(63))
	assert.Equal(t, 3, WordsFor(64))
}

func TestVisAnim_RejectsWordMismatch(t *testing.T) {
	a := NewArchive()
	vis := &VisAnim{FrameDuration: 100}
	vis.SetDisplayName("bad")
	vis.Bones = []VisBone{{Name: "b", Keyframes: []uint32{1}}}
	a.VisAnims.Add(vis)
	_, err := a.Write()
	assert.Error(t, err)
}
