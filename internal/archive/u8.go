package archive

import (
	"github.com/rvltools/rkit/internal/rerr"
	"github.com/rvltools/rkit/internal/stream"
)

// U8Magic is the archive magic word.
const U8Magic = 0x55AA382D

const (
	u8NodeSize      = 12
	u8FirstNodeOfs  = 0x20
	u8DataAlignment = 0x20
)

// IsU8 reports whether data begins with the U8 magic.
func IsU8(data []byte) bool {
	return len(data) >= 4 &&
		uint32(data[0])<<24|uint32(data[1])<<16|uint32(data[2])<<8|uint32(data[3]) == U8Magic
}

// ReadU8 parses a U8 archive into a logical tree.
func ReadU8(data []byte) (*FS, error) {
	r := stream.NewReader(data)
	r.SetSite("u8")
	magic, err := r.U32()
	if err != nil {
		return nil, err
	}
	if magic != U8Magic {
		return nil, rerr.Malformedf("u8", "bad magic 0x%08x", magic).At(0)
	}
	rootOfs, err := r.U32()
	if err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // node table + string pool size
		return nil, err
	}
	if _, err := r.U32(); err != nil { // data offset
		return nil, err
	}

	rootSize, err := r.PeekU32At(int(rootOfs) + 8)
	if err != nil {
		return nil, err
	}
	nodeCount := int(rootSize)
	stringPool := int(rootOfs) + nodeCount*u8NodeSize

	type rawNode struct {
		isDir   bool
		name    string
		dataOfs uint32
		size    uint32
	}
	nodes := make([]rawNode, nodeCount)
	for i := 0; i < nodeCount; i++ {
		base := int(rootOfs) + i*u8NodeSize
		typeAndName, err := r.PeekU32At(base)
		if err != nil {
			return nil, err
		}
		dataOfs, err := r.PeekU32At(base + 4)
		if err != nil {
			return nil, err
		}
		size, err := r.PeekU32At(base + 8)
		if err != nil {
			return nil, err
		}
		name, err := r.CStringAt(stringPool + int(typeAndName&0x00FFFFFF))
		if err != nil {
			return nil, err
		}
		nodes[i] = rawNode{
			isDir:   typeAndName>>24 == 1,
			name:    name,
			dataOfs: dataOfs,
			size:    size,
		}
	}

	if !nodes[0].isDir {
		return nil, rerr.Malformed("u8", "root node is not a directory")
	}

	// Directory nodes span [self+1, size); recover the tree from the
	// spans.
	var build func(idx, end int, dir *Entry) (int, error)
	build = func(idx, end int, dir *Entry) (int, error) {
		i := idx
		for i < end {
			n := nodes[i]
			if n.isDir {
				sub := dir.AddDir(n.name)
				if int(n.size) > end || int(n.size) <= i {
					return 0, rerr.Malformedf("u8", "directory %q spans [%d,%d) outside parent", n.name, i, n.size)
				}
				next, err := build(i+1, int(n.size), sub)
				if err != nil {
					return 0, err
				}
				i = next
			} else {
				payload, err := r.SliceAt(int(n.dataOfs), int(n.size))
				if err != nil {
					return 0, rerr.Malformedf("u8", "file %q data out of bounds", n.name).Wrap(err)
				}
				dir.AddFile(n.name, append([]byte(nil), payload...))
				i++
			}
		}
		return i, nil
	}

	fs := NewFS()
	fs.Root.Name = nodes[0].name
	if _, err := build(1, nodeCount, fs.Root); err != nil {
		return nil, err
	}
	return fs, nil
}

// WriteU8 serializes the tree. Nodes are emitted in preorder with each
// directory's size field holding the index one past its last descendant;
// file data is packed after the string pool at 0x20 alignment.
func WriteU8(fs *FS) ([]byte, error) {
	type flatNode struct {
		entry  *Entry
		parent int
		end    int // directories: one past last descendant
	}
	var flat []flatNode
	var flatten func(e *Entry, parent int)
	flatten = func(e *Entry, parent int) {
		idx := len(flat)
		flat = append(flat, flatNode{entry: e, parent: parent})
		if e.IsDir {
			for _, c := range e.Children {
				flatten(c, idx)
			}
			flat[idx].end = len(flat)
		}
	}
	flatten(fs.Root, 0)

	w := stream.NewWriter()
	w.U32(U8Magic)
	w.U32(u8FirstNodeOfs)
	headerSizeSite := w.ReserveU32()
	dataOfsSite := w.ReserveU32()
	w.Skip(16)

	names := make([]int, len(flat)) // name offset within string pool
	pool := []byte{}
	poolIndex := map[string]int{}
	for i, n := range flat {
		ofs, ok := poolIndex[n.entry.Name]
		if !ok {
			ofs = len(pool)
			poolIndex[n.entry.Name] = ofs
			pool = append(pool, n.entry.Name...)
			pool = append(pool, 0)
		}
		names[i] = ofs
	}

	nodeBase := w.Pos()
	fileSites := make([]int, len(flat))
	for i, n := range flat {
		if n.entry.IsDir {
			w.U32(1<<24 | uint32(names[i]))
			w.U32(uint32(n.parent))
			w.U32(uint32(n.end))
		} else {
			w.U32(uint32(names[i]))
			fileSites[i] = w.ReserveU32()
			w.U32(uint32(len(n.entry.Data)))
		}
	}
	w.Bytes(pool)
	w.PatchU32At(headerSizeSite, uint32(w.Pos()-nodeBase))

	w.AlignWith(u8DataAlignment, stream.PadZero)
	w.PatchU32At(dataOfsSite, uint32(w.Pos()))
	for i, n := range flat {
		if n.entry.IsDir {
			continue
		}
		w.AlignWith(u8DataAlignment, stream.PadZero)
		w.PatchU32At(fileSites[i], uint32(w.Pos()))
		w.Bytes(n.entry.Data)
	}
	return w.Finalize()
}
