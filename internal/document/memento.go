package document

// FolderMemento is an immutable snapshot of one folder. Snapshots of
// unchanged objects are shared by pointer with the previous memento, so a
// commit costs O(changed objects).
type FolderMemento struct {
	Key       string
	Snapshots []Object
}

// Memento is an immutable snapshot of a node. Mementos never carry
// owning-folder back-pointers and are safe to share across threads.
type Memento struct {
	Folders []*FolderMemento
}

// NextMemento snapshots node, sharing unchanged object snapshots with
// prev (which may be nil for the initial revision).
func NextMemento(node Node, prev *Memento) *Memento {
	m := &Memento{Folders: make([]*FolderMemento, node.NumFolders())}
	for i := 0; i < node.NumFolders(); i++ {
		var prevFolder *FolderMemento
		if prev != nil && i < len(prev.Folders) && prev.Folders[i].Key == node.FolderKeyAt(i) {
			prevFolder = prev.Folders[i]
		}
		m.Folders[i] = node.FolderAt(i).snapshot(prevFolder)
	}
	return m
}

// Restore copies the memento's snapshot contents back into node's live
// objects, replacing folder contents wholesale.
func Restore(node Node, m *Memento) {
	for i := 0; i < node.NumFolders() && i < len(m.Folders); i++ {
		node.FolderAt(i).restore(m.Folders[i])
	}
}
