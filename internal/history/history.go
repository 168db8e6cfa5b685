// Package history maintains the linear undo/redo log of document
// mementos. Adjacent revisions share unchanged object snapshots, so the
// log grows by O(changed objects) per commit.
package history

import (
	"github.com/rvltools/rkit/internal/document"
)

// History is a linear stack of revisions over one document root.
type History struct {
	root  document.Node
	stack []*document.Memento
	head  int
}

// New records the initial revision of root and returns its history.
func New(root document.Node) *History {
	h := &History{root: root, head: -1}
	h.Commit()
	return h
}

// Root returns the document this history tracks.
func (h *History) Root() document.Node { return h.root }

// Head returns the current revision's memento.
func (h *History) Head() *document.Memento {
	if h.head < 0 {
		return nil
	}
	return h.stack[h.head]
}

// Commit snapshots the document after an edit. Any redo tail is
// truncated.
func (h *History) Commit() {
	m := document.NextMemento(h.root, h.Head())
	h.stack = append(h.stack[:h.head+1], m)
	h.head++
}

// CanUndo reports whether an earlier revision exists.
func (h *History) CanUndo() bool { return h.head > 0 }

// CanRedo reports whether a later revision exists.
func (h *History) CanRedo() bool { return h.head+1 < len(h.stack) }

// Undo restores the previous revision into the live document.
func (h *History) Undo() bool {
	if !h.CanUndo() {
		return false
	}
	h.head--
	document.Restore(h.root, h.stack[h.head])
	return true
}

// Redo restores the next revision into the live document.
func (h *History) Redo() bool {
	if !h.CanRedo() {
		return false
	}
	h.head++
	document.Restore(h.root, h.stack[h.head])
	return true
}

// Depth returns the number of recorded revisions.
func (h *History) Depth() int { return len(h.stack) }
