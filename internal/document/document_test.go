package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// material is a minimal concrete object for exercising the graph.
type material struct {
	ObjectBase
	Color uint32
}

func newMaterial() *material { return &material{} }

func (m *material) CloneObject() Object {
	return &material{ObjectBase: m.CloneBase(), Color: m.Color}
}

func (m *material) EqualsObject(other Object) bool {
	o, ok := other.(*material)
	return ok && o.Color == m.Color && o.DisplayName() == m.DisplayName()
}

type testDoc struct {
	Collection
	Materials *TypedFolder[*material]
}

func newTestDoc() *testDoc {
	d := &testDoc{Materials: NewFolder("material", newMaterial)}
	d.RegisterFolder(d.Materials)
	return d
}

func TestFolder_OwnershipBackPointer(t *testing.T) {
	d := newTestDoc()
	obj := d.Materials.AddNew()
	assert.Same(t, Folder(d.Materials), obj.(*material).Parent())
	assert.Same(t, Node(&d.Collection), d.Materials.Owner())

	require.NoError(t, d.Materials.Remove(0))
	assert.Nil(t, obj.(*material).Parent())
}

func TestFolder_OrderAndNames(t *testing.T) {
	d := newTestDoc()
	for _, name := range []string{"red", "green", "red"} {
		m := newMaterial()
		m.SetDisplayName(name)
		d.Materials.Add(m)
	}
	assert.Equal(t, 3, d.Materials.Len())
	assert.Equal(t, "green", d.Materials.Get(1).DisplayName())
	// Name collisions within a folder are legal.
	assert.Equal(t, d.Materials.Get(0).DisplayName(), d.Materials.Get(2).DisplayName())
}

func TestFolder_Selection(t *testing.T) {
	d := newTestDoc()
	d.Materials.AddNew()
	d.Materials.AddNew()

	assert.Equal(t, -1, d.Materials.ActiveSelection())
	d.Materials.SetActiveSelection(1)
	assert.True(t, d.Materials.IsSelected(1))
	assert.Equal(t, 1, d.Materials.ActiveSelection())

	d.Materials.Select(0)
	assert.True(t, d.Materials.IsSelected(0))
	d.Materials.Deselect(1)
	assert.False(t, d.Materials.IsSelected(1))
	assert.Equal(t, -1, d.Materials.ActiveSelection())
}

func TestNode_ReflectiveAccess(t *testing.T) {
	d := newTestDoc()
	assert.Equal(t, 1, d.NumFolders())
	assert.Equal(t, "material", d.FolderKeyAt(0))
	assert.Same(t, Folder(d.Materials), d.FolderAt(0))
	assert.Same(t, Folder(d.Materials), d.FolderByKey("material"))
	assert.Nil(t, d.FolderByKey("texture"))
}

func TestMemento_SharesUnchangedSnapshots(t *testing.T) {
	d := newTestDoc()
	for i := 0; i < 10; i++ {
		m := newMaterial()
		m.Color = uint32(i)
		d.Materials.Add(m)
	}

	m0 := NextMemento(d, nil)
	d.Materials.Get(3).Color = 0xFF00FF
	m1 := NextMemento(d, m0)

	for i := 0; i < 10; i++ {
		if i == 3 {
			assert.NotSame(t, m0.Folders[0].Snapshots[i], m1.Folders[0].Snapshots[i],
				"edited object must get a fresh snapshot")
		} else {
			assert.Same(t, m0.Folders[0].Snapshots[i], m1.Folders[0].Snapshots[i],
				"unchanged object %d must share its snapshot", i)
		}
	}
}

func TestMemento_RestoreRecoversState(t *testing.T) {
	d := newTestDoc()
	m := newMaterial()
	m.SetDisplayName("base")
	m.Color = 7
	d.Materials.Add(m)

	snap := NextMemento(d, nil)

	d.Materials.Get(0).Color = 99
	d.Materials.Get(0).SetDisplayName("edited")
	d.Materials.AddNew()

	Restore(d, snap)
	require.Equal(t, 1, d.Materials.Len())
	assert.Equal(t, uint32(7), d.Materials.Get(0).Color)
	assert.Equal(t, "base", d.Materials.Get(0).DisplayName())
	assert.Same(t, Folder(d.Materials), d.Materials.Get(0).Parent(), "restore rebuilds back-pointers")
}

func TestMemento_SnapshotsCarryNoBackPointers(t *testing.T) {
	d := newTestDoc()
	d.Materials.AddNew()
	m := NextMemento(d, nil)
	assert.Nil(t, m.Folders[0].Snapshots[0].(*material).Parent())
}
