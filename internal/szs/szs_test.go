package szs

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rvltools/rkit/internal/rerr"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func roundTrip(t *testing.T, payload []byte) {
	t.Helper()
	enc := Encode(payload)
	require.True(t, IsCompressed(enc))
	dec, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, payload, dec)
}

func TestRoundTrip_RepeatedPattern(t *testing.T) {
	payload := []byte("ABABABABABAB")
	enc := Encode(payload)
	dec, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, payload, dec)

	// Re-encoding the decoded payload must still decode to the same
	// 12 bytes regardless of match layout.
	dec2, err := Decode(Encode(dec))
	require.NoError(t, err)
	assert.Equal(t, payload, dec2)

	assert.Less(t, len(enc), 16+len(payload), "repeats must actually compress")
}

func TestRoundTrip_Various(t *testing.T) {
	cases := map[string][]byte{
		"empty":        {},
		"single":       {0x42},
		"incompress":   {1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13},
		"long run":     bytes.Repeat([]byte{0}, 4096),
		"text":         []byte("This is padding data to alignment....."),
		"overlap fill": append([]byte{7}, bytes.Repeat([]byte{7}, 300)...),
	}
	var big []byte
	for i := 0; i < 3000; i++ {
		big = append(big, byte(i*i>>3), byte(i), byte(i>>5))
	}
	cases["pseudo random"] = big

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			roundTrip(t, payload)
		})
	}
}

func TestDecode_SelfOverlappingCopy(t *testing.T) {
	// One literal 'A', then a match of length 5 at distance 0 copies the
	// previous byte five times over itself.
	data := []byte{
		'Y', 'a', 'z', '0',
		0, 0, 0, 6,
		0, 0, 0, 0, 0, 0, 0, 0,
		0x80,       // group: literal then code
		'A',        // literal
		0x30, 0x00, // length 3+2=5, distance 0
	}
	dec, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []byte("AAAAAA"), dec)
}

func TestDecode_LongLengthEncoding(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 0x200)
	enc := Encode(payload)
	dec, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, payload, dec)
}

func TestDecode_BadMagic(t *testing.T) {
	_, err := Decode([]byte("Yaz1....????????"))
	var magicErr *rerr.MagicError
	assert.ErrorAs(t, err, &magicErr)
}

func TestDecode_Truncated(t *testing.T) {
	enc := Encode([]byte("hello world hello world"))
	_, err := Decode(enc[:len(enc)-3])
	var malformed *rerr.MalformedError
	assert.ErrorAs(t, err, &malformed)
}

func TestDecode_BackReferenceBeforeStart(t *testing.T) {
	data := []byte{
		'Y', 'a', 'z', '0',
		0, 0, 0, 4,
		0, 0, 0, 0, 0, 0, 0, 0,
		0x00,       // group: first chunk is a code
		0x30, 0x10, // distance 16 with empty output
	}
	_, err := Decode(data)
	var malformed *rerr.MalformedError
	assert.ErrorAs(t, err, &malformed)
}

func TestEncodeAll_Parallel(t *testing.T) {
	buffers := [][]byte{
		bytes.Repeat([]byte("swoosh"), 100),
		{1, 2, 3},
		nil,
		bytes.Repeat([]byte{0xEE}, 5000),
	}
	encs, err := EncodeAll(context.Background(), buffers)
	require.NoError(t, err)
	decs, err := DecodeAll(context.Background(), encs)
	require.NoError(t, err)
	for i := range buffers {
		assert.Equal(t, len(buffers[i]), len(decs[i]))
		assert.Equal(t, append([]byte(nil), buffers[i]...), append([]byte(nil), decs[i]...))
	}
}
