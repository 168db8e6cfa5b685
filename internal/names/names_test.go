package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvltools/rkit/internal/stream"
)

func TestTable_PatchesReservedSites(t *testing.T) {
	w := stream.NewWriter()
	tbl := New(Options{NulTerminate: true})

	siteA := w.ReserveU32()
	tbl.Ref(siteA, 0, "alpha")
	siteB := w.ReserveU32()
	tbl.Ref(siteB, 0, "beta")
	siteA2 := w.ReserveU32()
	tbl.Ref(siteA2, 0, "alpha")

	bodyEnd := w.Pos()
	require.NoError(t, tbl.Emit(w))
	out, err := w.Finalize()
	require.NoError(t, err)

	r := stream.NewReader(out)
	ofsA, _ := r.U32()
	ofsB, _ := r.U32()
	ofsA2, err := r.U32()
	require.NoError(t, err)

	assert.Equal(t, uint32(bodyEnd), ofsA, "first string lands right after the body")
	assert.Equal(t, ofsA, ofsA2, "identical strings intern to one entry")

	sA, err := r.CStringAt(int(ofsA))
	require.NoError(t, err)
	sB, err := r.CStringAt(int(ofsB))
	require.NoError(t, err)
	assert.Equal(t, "alpha", sA)
	assert.Equal(t, "beta", sB)
}

func TestTable_RelativeBaseAndLenPrefix(t *testing.T) {
	w := stream.NewWriter()
	w.Bytes([]byte("HEAD"))
	base := w.Pos()
	tbl := New(Options{PrefixLen32: true, AlignEach: 4})

	site := w.ReserveU32()
	tbl.Ref(site, base, "tex0")
	require.NoError(t, tbl.Emit(w))
	out, err := w.Finalize()
	require.NoError(t, err)

	r := stream.NewReader(out)
	require.NoError(t, r.SeekTo(base))
	rel, err := r.U32()
	require.NoError(t, err)

	// The reference points at the characters; the u32 length sits just
	// before them.
	strOfs := base + int(rel)
	n, err := r.PeekU32At(strOfs - 4)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), n)
	got, err := r.SliceAt(strOfs, 4)
	require.NoError(t, err)
	assert.Equal(t, "tex0", string(got))
	assert.Zero(t, len(out)%4, "AlignEach pads the table tail")
}

func TestTable_EmitOrderIsInsertionOrder(t *testing.T) {
	w := stream.NewWriter()
	tbl := New(Options{NulTerminate: true})
	for _, s := range []string{"c", "a", "b", "a"} {
		tbl.Intern(s)
	}
	require.NoError(t, tbl.Emit(w))
	out, err := w.Finalize()
	require.NoError(t, err)
	assert.Equal(t, []byte("c\x00a\x00b\x00"), out)
}

func TestJ3DHash(t *testing.T) {
	// h = h*3 + c over 16 bits.
	assert.Equal(t, uint16('a'), J3DHash("a"))
	assert.Equal(t, uint16('a')*3+uint16('b'), J3DHash("ab"))
}

func TestJ3DStringTable_RoundTrip(t *testing.T) {
	w := stream.NewWriter()
	w.Bytes([]byte{0xEE, 0xEE}) // table does not have to start at zero
	base := w.Pos()
	entries := []string{"joint_root", "joint_arm", "x"}
	WriteJ3DStringTable(w, entries)
	out, err := w.Finalize()
	require.NoError(t, err)

	r := stream.NewReader(out)
	got, err := ReadJ3DStringTable(r, base)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	count, err := r.PeekU16At(base)
	require.NoError(t, err)
	assert.Equal(t, uint16(3), count)
	pad, err := r.PeekU16At(base + 2)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFFFF), pad)
}
