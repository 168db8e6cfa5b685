package document

import (
	"github.com/rvltools/rkit/internal/rerr"
)

// Folder is the type-erased view of a typed folder. Iteration order is
// construction order and is preserved across load and save.
type Folder interface {
	// Key returns the stable type identifier of the folder's contents.
	Key() string
	Len() int
	At(i int) Object
	// AddNew appends a freshly constructed object and returns it.
	AddNew() Object
	// Append adds an existing object, claiming ownership.
	Append(obj Object) error
	Remove(i int) error
	Owner() Node

	Select(i int)
	Deselect(i int)
	IsSelected(i int) bool
	// ActiveSelection returns the single active index, or -1.
	ActiveSelection() int
	SetActiveSelection(i int)
	ClearSelection()

	snapshot(prev *FolderMemento) *FolderMemento
	restore(m *FolderMemento)
	attach(owner Node)
}

// TypedFolder is an ordered folder of objects of one concrete type.
type TypedFolder[T Object] struct {
	key     string
	factory func() T
	entries []T
	owner   Node

	selected map[int]struct{}
	active   int
}

// NewFolder constructs an empty folder. The factory builds the zero
// object used by AddNew.
func NewFolder[T Object](key string, factory func() T) *TypedFolder[T] {
	return &TypedFolder[T]{
		key:      key,
		factory:  factory,
		selected: make(map[int]struct{}),
		active:   -1,
	}
}

// Key returns the folder's stable type identifier.
func (f *TypedFolder[T]) Key() string { return f.key }

// Len returns the number of objects.
func (f *TypedFolder[T]) Len() int { return len(f.entries) }

// At returns the i'th object as the type-erased interface.
func (f *TypedFolder[T]) At(i int) Object { return f.entries[i] }

// Get returns the i'th object with its concrete type.
func (f *TypedFolder[T]) Get(i int) T { return f.entries[i] }

// All returns the backing slice; callers must not reorder it.
func (f *TypedFolder[T]) All() []T { return f.entries }

// AddNew appends a factory-built object.
func (f *TypedFolder[T]) AddNew() Object {
	obj := f.factory()
	f.Add(obj)
	return obj
}

// Add appends obj and claims ownership.
func (f *TypedFolder[T]) Add(obj T) {
	obj.base().owner = f
	f.entries = append(f.entries, obj)
}

// Append adds a type-erased object, failing on a concrete-type mismatch.
func (f *TypedFolder[T]) Append(obj Object) error {
	typed, ok := obj.(T)
	if !ok {
		return rerr.Invariantf("folder %q: appending object of wrong concrete type", f.key)
	}
	f.Add(typed)
	return nil
}

// Remove deletes the i'th object, preserving the order of the rest.
func (f *TypedFolder[T]) Remove(i int) error {
	if i < 0 || i >= len(f.entries) {
		return &rerr.RangeError{Site: "document/" + f.key, What: "index", Value: i, Max: len(f.entries)}
	}
	f.entries[i].base().owner = nil
	f.entries = append(f.entries[:i], f.entries[i+1:]...)
	f.ClearSelection()
	return nil
}

// Owner returns the node owning this folder.
func (f *TypedFolder[T]) Owner() Node { return f.owner }

func (f *TypedFolder[T]) attach(owner Node) { f.owner = owner }

// Select adds index i to the selection set.
func (f *TypedFolder[T]) Select(i int) {
	if i >= 0 && i < len(f.entries) {
		f.selected[i] = struct{}{}
	}
}

// Deselect removes index i from the selection set.
func (f *TypedFolder[T]) Deselect(i int) {
	delete(f.selected, i)
	if f.active == i {
		f.active = -1
	}
}

// IsSelected reports whether index i is selected.
func (f *TypedFolder[T]) IsSelected(i int) bool {
	_, ok := f.selected[i]
	return ok
}

// ActiveSelection returns the single active index, or -1.
func (f *TypedFolder[T]) ActiveSelection() int { return f.active }

// SetActiveSelection marks i active and selected.
func (f *TypedFolder[T]) SetActiveSelection(i int) {
	if i >= 0 && i < len(f.entries) {
		f.active = i
		f.selected[i] = struct{}{}
	}
}

// ClearSelection empties the selection set.
func (f *TypedFolder[T]) ClearSelection() {
	f.selected = make(map[int]struct{})
	f.active = -1
}

func (f *TypedFolder[T]) snapshot(prev *FolderMemento) *FolderMemento {
	m := &FolderMemento{Key: f.key, Snapshots: make([]Object, len(f.entries))}
	for i, obj := range f.entries {
		if prev != nil && i < len(prev.Snapshots) && obj.EqualsObject(prev.Snapshots[i]) {
			m.Snapshots[i] = prev.Snapshots[i]
			continue
		}
		m.Snapshots[i] = obj.CloneObject()
	}
	return m
}

func (f *TypedFolder[T]) restore(m *FolderMemento) {
	f.entries = f.entries[:0]
	for _, snap := range m.Snapshots {
		f.Add(snap.CloneObject().(T))
	}
	f.ClearSelection()
}
