package codecs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvltools/rkit/internal/archive"
	"github.com/rvltools/rkit/internal/bmd"
	"github.com/rvltools/rkit/internal/egg"
	"github.com/rvltools/rkit/internal/kmp"
	"github.com/rvltools/rkit/internal/szs"
)

func TestRegistry_DispatchByMagic(t *testing.T) {
	reg := DefaultRegistry()

	cases := map[string][]byte{
		"szs":    szs.Encode([]byte("payload")),
		"blight": egg.WriteBlight(&egg.Blight{Version: 2}),
		"bdof":   egg.WriteBdof(&egg.Bdof{}),
		"bblm":   egg.WriteBblm(&egg.Bblm{}),
		"bfg":    egg.WriteBfg(&egg.Bfg{}),
	}
	for id, data := range cases {
		c, err := reg.Match("mystery.bin", data)
		require.NoError(t, err, id)
		assert.Equal(t, id, c.ID())
	}
}

func TestRegistry_KCLByExtensionOnly(t *testing.T) {
	reg := DefaultRegistry()
	c, err := reg.Match("course.kcl", make([]byte, 0x40))
	require.NoError(t, err)
	assert.Equal(t, "kcl", c.ID())
}

func TestEndToEnd_SZS(t *testing.T) {
	reg := DefaultRegistry()
	payload := bytes.Repeat([]byte("ABAB"), 32)
	data := szs.Encode(payload)

	res, err := reg.Read("file.szs", data)
	require.NoError(t, err)
	assert.Equal(t, payload, res.Document.(*SzsDocument).Value)

	out, _, err := reg.Write(res.Codec, res.Document)
	require.NoError(t, err)
	dec, err := szs.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, payload, dec)
}

func TestEndToEnd_U8RoundTrip(t *testing.T) {
	reg := DefaultRegistry()
	fs := archive.NewFS()
	fs.Root.AddDir("foo").AddFile("bar.bin", []byte{1, 2, 3})
	fs.Root.AddFile("baz.bin", []byte{9})
	data, err := archive.WriteU8(fs)
	require.NoError(t, err)

	res, err := reg.Read("files.arc", data)
	require.NoError(t, err)
	out, _, err := reg.Write(res.Codec, res.Document)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestEndToEnd_BMDDocumentOwnership(t *testing.T) {
	reg := DefaultRegistry()
	m := bmd.New()
	j := m.Joints.AddNew()
	j.SetDisplayName("root")
	data, err := bmd.Write(m)
	require.NoError(t, err)

	res, err := reg.Read("model.bmd", data)
	require.NoError(t, err)
	doc := res.Document.(*bmd.Model)
	require.Equal(t, 1, doc.Joints.Len())
	// The joint's parent must be the joints folder of the document the
	// registry returned.
	assert.Same(t, doc.FolderAt(0), doc.Joints.Get(0).Parent())
}

func TestEndToEnd_KMP(t *testing.T) {
	reg := DefaultRegistry()
	course := kmp.NewCourseMap()
	course.Stages.Add(&kmp.Stage{LapCount: 3})
	data, err := kmp.Write(course)
	require.NoError(t, err)

	res, err := reg.Read("course.kmp", data)
	require.NoError(t, err)
	out, _, err := reg.Write(res.Codec, res.Document)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}
