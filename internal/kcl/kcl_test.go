package kcl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvltools/rkit/internal/rerr"
	"github.com/rvltools/rkit/internal/stream"
)

func sampleBytes() []byte {
	w := stream.NewWriter()
	w.U32(0x3C)       // positions
	w.U32(0x100)      // normals
	w.U32(0x200 - 16) // prisms, biased
	w.U32(0x400)      // block data
	w.F32(300)        // prism thickness
	w.F32(-1000)
	w.F32(-100)
	w.F32(-1000)
	w.U32(0xFFFFF800)
	w.U32(0xFFFFFC00)
	w.U32(0xFFFFF800)
	w.U32(11)
	w.U32(2)
	w.U32(4)
	w.F32(2500)
	w.Bytes([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02})
	out, _ := w.Finalize()
	return out
}

func TestReadWrite_ByteExact(t *testing.T) {
	data := sampleBytes()
	m, err := Read(data)
	require.NoError(t, err)

	assert.Equal(t, float32(300), m.PrismThickness)
	assert.Equal(t, uint32(0x3C), m.PositionsOffset)
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02}, m.Blob)

	assert.Equal(t, data, Write(m), "blob must be preserved verbatim")
}

func TestRead_TruncatedHeader(t *testing.T) {
	_, err := Read(sampleBytes()[:20])
	assert.ErrorIs(t, err, rerr.ErrEOF)
}
