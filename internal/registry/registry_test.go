package registry

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvltools/rkit/internal/document"
)

type blob struct {
	document.ObjectBase
	Data []byte
}

func (b *blob) CloneObject() document.Object {
	return &blob{ObjectBase: b.CloneBase(), Data: append([]byte(nil), b.Data...)}
}

func (b *blob) EqualsObject(other document.Object) bool {
	o, ok := other.(*blob)
	return ok && bytes.Equal(o.Data, b.Data)
}

type blobDoc struct {
	document.Collection
	Blobs *document.TypedFolder[*blob]
}

func newBlobDoc() *blobDoc {
	d := &blobDoc{Blobs: document.NewFolder("blob", func() *blob { return &blob{} })}
	d.RegisterFolder(d.Blobs)
	return d
}

type fakeCodec struct {
	id        string
	exts      []string
	magic     string
	needsDep  string
	failRead  bool
	sawConfig string
}

func (c *fakeCodec) ID() string           { return c.id }
func (c *fakeCodec) Extensions() []string { return c.exts }

func (c *fakeCodec) MatchesMagic(data []byte) bool {
	return c.magic != "" && len(data) >= len(c.magic) && string(data[:len(c.magic)]) == c.magic
}

func (c *fakeCodec) NewDocument() document.Node { return newBlobDoc() }

func (c *fakeCodec) Configure(tx *Transaction) error {
	c.sawConfig = tx.Property("endianness", "big")
	return nil
}

func (c *fakeCodec) ResolveDependencies(tx *Transaction, data []byte) error {
	if c.needsDep != "" {
		if _, err := tx.Resolve(c.needsDep); err != nil {
			return err
		}
	}
	return nil
}

func (c *fakeCodec) Read(tx *Transaction, doc document.Node, data []byte) error {
	if c.failRead {
		tx.Report(Error, c.id+"/body", "truncated section")
		return nil
	}
	tx.Report(Warning, c.id+"/body", "shape IDs are remapped")
	b := doc.(*blobDoc).Blobs.AddNew().(*blob)
	b.Data = append([]byte(nil), data...)
	return nil
}

func (c *fakeCodec) Write(tx *Transaction, doc document.Node) ([]byte, error) {
	d := doc.(*blobDoc)
	if d.Blobs.Len() == 0 {
		return nil, errors.New("empty document")
	}
	return d.Blobs.Get(0).Data, nil
}

func TestMatch_MagicBeatsExtension(t *testing.T) {
	r := New()
	byMagic := &fakeCodec{id: "arc", magic: "RARC"}
	byExt := &fakeCodec{id: "kmp", exts: []string{"kmp"}}
	r.Register(byExt)
	r.Register(byMagic)

	c, err := r.Match("course.kmp", []byte("RARC...."))
	require.NoError(t, err)
	assert.Equal(t, "arc", c.ID())

	c, err = r.Match("course.kmp", []byte("????"))
	require.NoError(t, err)
	assert.Equal(t, "kmp", c.ID())
}

func TestMatch_SuggestsNearbyExtension(t *testing.T) {
	r := New()
	r.Register(&fakeCodec{id: "szs", exts: []string{"szs"}})
	_, err := r.Match("course.sz", []byte("????"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"szs"`)
}

func TestRead_StagedFlowAndWarnings(t *testing.T) {
	r := New()
	codec := &fakeCodec{id: "bin", exts: []string{"bin"}}
	r.Register(codec)

	var seen []Message
	res, err := r.Read("x.bin", []byte{1, 2, 3},
		WithMessageFunc(func(m Message) { seen = append(seen, m) }),
		WithPropertyFunc(func(key string) (string, bool) {
			if key == "endianness" {
				return "little", true
			}
			return "", false
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, "little", codec.sawConfig)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "shape IDs are remapped", res.Warnings[0].Text)
	assert.NotEmpty(t, seen)
	assert.Equal(t, []byte{1, 2, 3}, res.Document.(*blobDoc).Blobs.Get(0).Data)
}

func TestRead_MissingDependencyFails(t *testing.T) {
	r := New()
	r.Register(&fakeCodec{id: "mdl", exts: []string{"mdl"}, needsDep: "textures.arc"})

	_, err := r.Read("a.mdl", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "textures.arc")

	res, err := r.Read("a.mdl", nil, WithResolveFunc(func(name string) ([]byte, error) {
		return []byte("ok"), nil
	}))
	require.NoError(t, err)
	assert.NotNil(t, res.Document)
}

func TestRead_ErrorLatchesFailure(t *testing.T) {
	r := New()
	r.Register(&fakeCodec{id: "bad", exts: []string{"bad"}, failRead: true})

	res, err := r.Read("x.bad", nil)
	require.Error(t, err)
	assert.Nil(t, res, "no partial document on failure")
	assert.Contains(t, err.Error(), "truncated section")
}

func TestWrite_SinglePass(t *testing.T) {
	r := New()
	codec := &fakeCodec{id: "bin", exts: []string{"bin"}}
	r.Register(codec)

	res, err := r.Read("x.bin", []byte{9})
	require.NoError(t, err)

	out, warnings, err := r.Write(codec, res.Document)
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, out)
	assert.Empty(t, warnings)

	_, _, err = r.Write(codec, newBlobDoc())
	assert.Error(t, err)
}
