package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvltools/rkit/internal/rerr"
)

func TestReader_Integers(t *testing.T) {
	r := NewReader([]byte{0x12, 0x34, 0x56, 0x78, 0xFF, 0x80})

	v16, err := r.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v16)

	v16b, err := r.U16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x5678), v16b)

	s8, err := r.S8()
	require.NoError(t, err)
	assert.Equal(t, int8(-1), s8)

	u8, err := r.U8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x80), u8)

	_, err = r.U8()
	assert.ErrorIs(t, err, rerr.ErrEOF)
}

func TestReader_LittleEndian(t *testing.T) {
	r := NewReaderLE([]byte{0x78, 0x56, 0x34, 0x12})
	v, err := r.U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), v)
}

func TestReader_Magic(t *testing.T) {
	r := NewReader([]byte("J3D2bmd3"))
	require.NoError(t, r.Magic("J3D2"))

	err := r.Magic("bdl4")
	var magicErr *rerr.MagicError
	require.ErrorAs(t, err, &magicErr)
	assert.Equal(t, "bdl4", magicErr.Want)
	assert.Equal(t, "bmd3", magicErr.Got)
	assert.Equal(t, 4, magicErr.Offset)
}

func TestReader_PushPopPos(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4})
	_, err := r.U16()
	require.NoError(t, err)

	r.PushPos()
	require.NoError(t, r.SeekTo(0))
	v, err := r.U8()
	require.NoError(t, err)
	assert.Equal(t, uint8(1), v)
	r.PopPos()

	assert.Equal(t, 2, r.Pos())
}

func TestReader_SliceAliasesBuffer(t *testing.T) {
	data := []byte{9, 8, 7, 6}
	r := NewReader(data)
	s, err := r.Slice(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8}, s)
	assert.Equal(t, 2, r.Pos())

	_, err = r.Slice(5)
	assert.ErrorIs(t, err, rerr.ErrEOF)
}

func TestReader_CStringAt(t *testing.T) {
	r := NewReader([]byte("ab\x00cd\x00"))
	s, err := r.CStringAt(3)
	require.NoError(t, err)
	assert.Equal(t, "cd", s)
	assert.Equal(t, 0, r.Pos(), "peek must not move the position")
}

func TestWriter_RoundTrip(t *testing.T) {
	w := NewWriter()
	w.U8(0xAB)
	w.U16(0x1234)
	w.U32(0xDEADBEEF)
	w.F32(1.5)
	w.S16(-2)

	out, err := w.Finalize()
	require.NoError(t, err)

	r := NewReader(out)
	u8, _ := r.U8()
	u16, _ := r.U16()
	u32, _ := r.U32()
	f32, _ := r.F32()
	s16, err := r.S16()
	require.NoError(t, err)

	assert.Equal(t, uint8(0xAB), u8)
	assert.Equal(t, uint16(0x1234), u16)
	assert.Equal(t, uint32(0xDEADBEEF), u32)
	assert.Equal(t, float32(1.5), f32)
	assert.Equal(t, int16(-2), s16)
}

func TestWriter_AlignWithPadString(t *testing.T) {
	w := NewWriter()
	w.SetPadding(PadString("This is padding data to alignment....."))
	w.Bytes([]byte{1, 2, 3})
	w.Align(8)

	out, err := w.Finalize()
	require.NoError(t, err)
	require.Len(t, out, 8)
	assert.Equal(t, []byte("This "), out[3:8], "each pad run restarts the pad string")
}

func TestWriter_AlignNoOpOnBoundary(t *testing.T) {
	w := NewWriter()
	w.U32(1)
	w.Align(4)
	out, err := w.Finalize()
	require.NoError(t, err)
	assert.Len(t, out, 4)
}

func TestWriter_SkipAndPatch(t *testing.T) {
	w := NewWriter()
	site := w.ReserveU32()
	w.Bytes([]byte("body"))
	w.PatchU32At(site, uint32(w.Pos()))

	out, err := w.Finalize()
	require.NoError(t, err)
	r := NewReader(out)
	v, err := r.U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(8), v)
}

func TestWriter_LinkFileRelative(t *testing.T) {
	w := NewWriter()
	site := w.ReserveU32()
	w.Bytes([]byte{0xFF, 0xFF})
	w.LinkHere(site, LinkFileRelative, 0)
	w.Bytes([]byte("target"))

	out, err := w.Finalize()
	require.NoError(t, err)
	r := NewReader(out)
	v, err := r.U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(6), v)
}

func TestWriter_LinkSectionRelative(t *testing.T) {
	w := NewWriter()
	w.Bytes([]byte("hdr!"))
	sectionBase := w.Pos()
	site := w.ReserveU32()
	w.LinkHere(site, LinkSectionRelative, sectionBase)

	out, err := w.Finalize()
	require.NoError(t, err)
	r := NewReader(out)
	require.NoError(t, r.SeekTo(4))
	v, err := r.U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(4), v, "offset of link target relative to section base")
}

func TestWriter_DeferredLinkResolver(t *testing.T) {
	w := NewWriter()
	site := w.ReserveU32()
	var target int
	w.Link(site, LinkFileRelative, 0, func() (int, error) { return target, nil })
	w.Bytes([]byte("abc"))
	target = w.Pos()
	w.Bytes([]byte("d"))

	out, err := w.Finalize()
	require.NoError(t, err)
	r := NewReader(out)
	v, err := r.U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(7), v)
}

func TestWriter_NegativeLinkFails(t *testing.T) {
	w := NewWriter()
	site := w.ReserveU32()
	w.Link(site, LinkSectionRelative, 100, func() (int, error) { return 4, nil })
	_, err := w.Finalize()
	var inv *rerr.InvariantError
	assert.ErrorAs(t, err, &inv)
}
