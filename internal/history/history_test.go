package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvltools/rkit/internal/document"
)

type joint struct {
	document.ObjectBase
	X, Y, Z float32
}

func newJoint() *joint { return &joint{} }

func (j *joint) CloneObject() document.Object {
	return &joint{ObjectBase: j.CloneBase(), X: j.X, Y: j.Y, Z: j.Z}
}

func (j *joint) EqualsObject(other document.Object) bool {
	o, ok := other.(*joint)
	return ok && o.X == j.X && o.Y == j.Y && o.Z == j.Z &&
		o.DisplayName() == j.DisplayName()
}

type skeleton struct {
	document.Collection
	Joints *document.TypedFolder[*joint]
}

func newSkeleton() *skeleton {
	s := &skeleton{Joints: document.NewFolder("joint", newJoint)}
	s.RegisterFolder(s.Joints)
	return s
}

func TestHistory_InitialRevision(t *testing.T) {
	s := newSkeleton()
	s.Joints.AddNew()
	h := New(s)

	assert.Equal(t, 1, h.Depth())
	assert.False(t, h.CanUndo())
	assert.False(t, h.CanRedo())
	assert.False(t, h.Undo())
}

func TestHistory_UndoCommitRestoresPriorState(t *testing.T) {
	s := newSkeleton()
	j := newJoint()
	j.X = 1
	s.Joints.Add(j)
	h := New(s)

	s.Joints.Get(0).X = 42
	h.Commit()

	require.True(t, h.Undo())
	assert.Equal(t, float32(1), s.Joints.Get(0).X, "undo(commit(edit)) == original")

	require.True(t, h.Redo())
	assert.Equal(t, float32(42), s.Joints.Get(0).X)
}

func TestHistory_CommitTruncatesRedoTail(t *testing.T) {
	s := newSkeleton()
	j := newJoint()
	s.Joints.Add(j)
	h := New(s)

	s.Joints.Get(0).X = 1
	h.Commit()
	s.Joints.Get(0).X = 2
	h.Commit()
	require.Equal(t, 3, h.Depth())

	require.True(t, h.Undo())
	require.True(t, h.Undo())
	s.Joints.Get(0).Y = 9
	h.Commit()

	assert.Equal(t, 2, h.Depth())
	assert.False(t, h.CanRedo())
	assert.True(t, h.CanUndo())
}

func TestHistory_AddRemoveAcrossRevisions(t *testing.T) {
	s := newSkeleton()
	h := New(s)

	s.Joints.AddNew()
	s.Joints.AddNew()
	h.Commit()

	require.NoError(t, s.Joints.Remove(0))
	h.Commit()
	assert.Equal(t, 1, s.Joints.Len())

	require.True(t, h.Undo())
	assert.Equal(t, 2, s.Joints.Len())
	require.True(t, h.Undo())
	assert.Equal(t, 0, s.Joints.Len())
}

func TestHistory_SharingAcrossCommits(t *testing.T) {
	s := newSkeleton()
	for i := 0; i < 4; i++ {
		s.Joints.AddNew()
	}
	h := New(s)
	first := h.Head()

	s.Joints.Get(2).Z = 5
	h.Commit()
	second := h.Head()

	assert.Same(t, first.Folders[0].Snapshots[0], second.Folders[0].Snapshots[0])
	assert.NotSame(t, first.Folders[0].Snapshots[2], second.Folders[0].Snapshots[2])
}
