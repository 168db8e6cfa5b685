package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFS() *FS {
	fs := NewFS()
	foo := fs.Root.AddDir("foo")
	foo.AddFile("bar.bin", []byte{1, 2, 3})
	fs.Root.AddFile("baz.bin", []byte{9})
	return fs
}

func TestFS_LookupAndWalk(t *testing.T) {
	fs := sampleFS()

	e, ok := fs.Lookup("foo/bar.bin")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, e.Data)

	e, ok = fs.Lookup("baz.bin")
	require.True(t, ok)
	assert.Equal(t, []byte{9}, e.Data)

	_, ok = fs.Lookup("foo/missing")
	assert.False(t, ok)
	_, ok = fs.Lookup("baz.bin/child")
	assert.False(t, ok)

	var paths []string
	fs.Walk(func(p string, e *Entry) { paths = append(paths, p) })
	assert.Equal(t, []string{"", "foo", "foo/bar.bin", "baz.bin"}, paths)
	assert.Equal(t, 4, fs.CountEntries())
}

func TestU8_SaveReload(t *testing.T) {
	data, err := WriteU8(sampleFS())
	require.NoError(t, err)
	require.True(t, IsU8(data))

	fs, err := ReadU8(data)
	require.NoError(t, err)

	bar, ok := fs.Lookup("foo/bar.bin")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, bar.Data)

	baz, ok := fs.Lookup("baz.bin")
	require.True(t, ok)
	assert.Equal(t, []byte{9}, baz.Data)
}

func TestU8_ByteExactRoundTrip(t *testing.T) {
	data, err := WriteU8(sampleFS())
	require.NoError(t, err)
	fs, err := ReadU8(data)
	require.NoError(t, err)
	again, err := WriteU8(fs)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestU8_PreservesChildOrder(t *testing.T) {
	fs := NewFS()
	// Deliberately unsorted: order must survive, not be normalized.
	fs.Root.AddFile("zzz", []byte{1})
	fs.Root.AddFile("aaa", []byte{2})
	mid := fs.Root.AddDir("mid")
	mid.AddFile("inner", []byte{3})

	data, err := WriteU8(fs)
	require.NoError(t, err)
	got, err := ReadU8(data)
	require.NoError(t, err)

	var names []string
	for _, c := range got.Root.Children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"zzz", "aaa", "mid"}, names)
}

func TestU8_EmptyArchive(t *testing.T) {
	data, err := WriteU8(NewFS())
	require.NoError(t, err)
	fs, err := ReadU8(data)
	require.NoError(t, err)
	assert.Empty(t, fs.Root.Children)
}

func TestU8_RejectsBadMagic(t *testing.T) {
	_, err := ReadU8([]byte{0x55, 0xAA, 0x38, 0x2E, 0, 0, 0, 0})
	assert.Error(t, err)
}

func TestU8_DataAlignment(t *testing.T) {
	fs := NewFS()
	fs.Root.AddFile("a", []byte{1})
	fs.Root.AddFile("b", []byte{2})
	data, err := WriteU8(fs)
	require.NoError(t, err)

	got, err := ReadU8(data)
	require.NoError(t, err)
	a, _ := got.Lookup("a")
	b, _ := got.Lookup("b")
	assert.Equal(t, []byte{1}, a.Data)
	assert.Equal(t, []byte{2}, b.Data)
}

func TestRARC_SaveReload(t *testing.T) {
	fs := sampleFS()
	fs.Root.Name = "course"
	data, err := WriteRARC(fs)
	require.NoError(t, err)
	require.True(t, IsRARC(data))

	got, err := ReadRARC(data)
	require.NoError(t, err)
	assert.Equal(t, "course", got.Root.Name)

	bar, ok := got.Lookup("foo/bar.bin")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, bar.Data)
	baz, ok := got.Lookup("baz.bin")
	require.True(t, ok)
	assert.Equal(t, []byte{9}, baz.Data)
}

func TestRARC_ByteExactRoundTrip(t *testing.T) {
	fs := sampleFS()
	fs.Root.Name = "root"
	data, err := WriteRARC(fs)
	require.NoError(t, err)
	got, err := ReadRARC(data)
	require.NoError(t, err)
	again, err := WriteRARC(got)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestRARC_NestedDirectories(t *testing.T) {
	fs := NewFS()
	fs.Root.Name = "deep"
	a := fs.Root.AddDir("a")
	b := a.AddDir("b")
	b.AddFile("leaf.txt", []byte("payload"))

	data, err := WriteRARC(fs)
	require.NoError(t, err)
	got, err := ReadRARC(data)
	require.NoError(t, err)

	leaf, ok := got.Lookup("a/b/leaf.txt")
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), leaf.Data)
}

func TestNameHash(t *testing.T) {
	assert.Equal(t, uint16('a'), nameHash("a"))
	assert.Equal(t, uint16('a')*3+uint16('b'), nameHash("ab"))
}
