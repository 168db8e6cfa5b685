// Package document implements the typed, reflective tree that loaded
// files become: nodes own ordered folders, folders own ordered objects of
// one concrete type, and immutable mementos snapshot the whole structure
// with pointer-level sharing of unchanged objects.
package document

// Object is the capability set every document element provides. Names may
// collide within a folder; the format's own identifiers disambiguate.
type Object interface {
	// DisplayName is the user-visible label.
	DisplayName() string
	SetDisplayName(name string)

	// CloneObject returns a deep copy used as an immutable snapshot.
	CloneObject() Object
	// EqualsObject reports structural equality against another object of
	// the same concrete type.
	EqualsObject(other Object) bool

	base() *ObjectBase
}

// ObjectBase carries the identity shared by all document objects: the
// display name and the owning-folder back-pointer. Concrete types embed
// it. Snapshots never carry the back-pointer.
type ObjectBase struct {
	name  string
	owner Folder
}

// DisplayName returns the user-visible label.
func (b *ObjectBase) DisplayName() string { return b.name }

// SetDisplayName sets the user-visible label.
func (b *ObjectBase) SetDisplayName(name string) { b.name = name }

// Parent returns the folder owning this object, or nil for snapshots and
// detached objects.
func (b *ObjectBase) Parent() Folder { return b.owner }

func (b *ObjectBase) base() *ObjectBase { return b }

// CloneBase returns a copy of the base with the owner pointer cleared,
// for use inside CloneObject implementations.
func (b *ObjectBase) CloneBase() ObjectBase {
	return ObjectBase{name: b.name}
}
