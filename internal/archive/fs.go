// Package archive reads and writes the U8 and RARC filesystem archives.
// Both codecs share one logical tree; the flat node tables are rebuilt in
// the same preorder on write so a reader's iteration recovers the tree.
package archive

import (
	"strings"
)

// Entry is one logical file or directory. Children keep their on-disk
// order; serialization walks them in exactly this order.
type Entry struct {
	Name     string
	IsDir    bool
	Data     []byte   // file payload; nil for directories
	Children []*Entry // directory children; nil for files
}

// NewDir builds an empty directory entry.
func NewDir(name string) *Entry {
	return &Entry{Name: name, IsDir: true}
}

// NewFile builds a file entry.
func NewFile(name string, data []byte) *Entry {
	return &Entry{Name: name, Data: data}
}

// AddDir appends and returns a child directory.
func (e *Entry) AddDir(name string) *Entry {
	d := NewDir(name)
	e.Children = append(e.Children, d)
	return d
}

// AddFile appends and returns a child file.
func (e *Entry) AddFile(name string, data []byte) *Entry {
	f := NewFile(name, data)
	e.Children = append(e.Children, f)
	return f
}

// FS is a rooted archive tree. The root directory's name is preserved
// (U8 roots are unnamed; RARC roots usually carry the archive name).
type FS struct {
	Root *Entry
}

// NewFS returns a tree with an empty, unnamed root.
func NewFS() *FS {
	return &FS{Root: NewDir("")}
}

// Lookup resolves a slash-separated path from the root.
func (fs *FS) Lookup(path string) (*Entry, bool) {
	cur := fs.Root
	if path == "" || path == "/" {
		return cur, true
	}
	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if !cur.IsDir {
			return nil, false
		}
		var next *Entry
		for _, c := range cur.Children {
			if c.Name == part {
				next = c
				break
			}
		}
		if next == nil {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Walk visits every entry in preorder, passing its slash-separated path.
func (fs *FS) Walk(fn func(path string, e *Entry)) {
	var rec func(prefix string, e *Entry)
	rec = func(prefix string, e *Entry) {
		fn(prefix, e)
		if e.IsDir {
			for _, c := range e.Children {
				p := c.Name
				if prefix != "" {
					p = prefix + "/" + c.Name
				}
				rec(p, c)
			}
		}
	}
	rec("", fs.Root)
}

// CountEntries returns the total number of entries including the root.
func (fs *FS) CountEntries() int {
	n := 0
	fs.Walk(func(string, *Entry) { n++ })
	return n
}
