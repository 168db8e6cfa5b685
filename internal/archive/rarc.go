package archive

import (
	"github.com/rvltools/rkit/internal/rerr"
	"github.com/rvltools/rkit/internal/stream"
)

// RARCMagic is the archive magic.
const RARCMagic = "RARC"

const (
	rarcHeaderSize    = 0x20
	rarcDirNodeSize   = 0x10
	rarcFileEntrySize = 0x14
	rarcDataAlignment = 0x20

	rarcFlagFile = 0x11
	rarcFlagDir  = 0x02
)

// IsRARC reports whether data begins with the RARC magic.
func IsRARC(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == RARCMagic
}

// nameHash is the 16-bit multiply-by-three hash RARC stores beside every
// name.
func nameHash(s string) uint16 {
	var h uint16
	for i := 0; i < len(s); i++ {
		h = h*3 + uint16(s[i])
	}
	return h
}

// ReadRARC parses a RARC archive into a logical tree.
func ReadRARC(data []byte) (*FS, error) {
	r := stream.NewReader(data)
	r.SetSite("rarc")
	if err := r.Magic(RARCMagic); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // file size
		return nil, err
	}
	hdrSize, err := r.U32()
	if err != nil {
		return nil, err
	}
	dataStart, err := r.U32()
	if err != nil {
		return nil, err
	}
	if err := r.Skip(16); err != nil { // data size ×2, reserved
		return nil, err
	}

	info := int(hdrSize)
	numDirs, err := r.PeekU32At(info)
	if err != nil {
		return nil, err
	}
	dirsOfs, err := r.PeekU32At(info + 4)
	if err != nil {
		return nil, err
	}
	if _, err := r.PeekU32At(info + 8); err != nil { // file entry count
		return nil, err
	}
	entriesOfs, err := r.PeekU32At(info + 12)
	if err != nil {
		return nil, err
	}
	if _, err := r.PeekU32At(info + 16); err != nil { // string table size
		return nil, err
	}
	stringsOfs, err := r.PeekU32At(info + 20)
	if err != nil {
		return nil, err
	}

	strBase := info + int(stringsOfs)
	dirBase := info + int(dirsOfs)
	entryBase := info + int(entriesOfs)
	dataBase := int(hdrSize) + int(dataStart)

	type rawDir struct {
		nameOfs    uint32
		numEntries uint16
		firstEntry uint32
	}
	dirs := make([]rawDir, numDirs)
	for i := range dirs {
		base := dirBase + i*rarcDirNodeSize
		if _, err := r.PeekU32At(base); err != nil { // 4CC tag
			return nil, err
		}
		nameOfs, err := r.PeekU32At(base + 4)
		if err != nil {
			return nil, err
		}
		numEntries, err := r.PeekU16At(base + 10)
		if err != nil {
			return nil, err
		}
		firstEntry, err := r.PeekU32At(base + 12)
		if err != nil {
			return nil, err
		}
		dirs[i] = rawDir{nameOfs: nameOfs, numEntries: numEntries, firstEntry: firstEntry}
	}
	if len(dirs) == 0 {
		return nil, rerr.Malformed("rarc", "archive has no directory nodes")
	}

	var buildDir func(idx int, out *Entry) error
	buildDir = func(idx int, out *Entry) error {
		d := dirs[idx]
		name, err := r.CStringAt(strBase + int(d.nameOfs))
		if err != nil {
			return err
		}
		out.Name = name
		for e := 0; e < int(d.numEntries); e++ {
			base := entryBase + (int(d.firstEntry)+e)*rarcFileEntrySize
			flags, err := r.PeekU8At(base + 4)
			if err != nil {
				return err
			}
			nameOfs, err := r.PeekU16At(base + 6)
			if err != nil {
				return err
			}
			entryName, err := r.CStringAt(strBase + int(nameOfs))
			if err != nil {
				return err
			}
			if entryName == "." || entryName == ".." {
				continue
			}
			payload, err := r.PeekU32At(base + 8)
			if err != nil {
				return err
			}
			size, err := r.PeekU32At(base + 12)
			if err != nil {
				return err
			}
			if flags&rarcFlagDir != 0 {
				sub := out.AddDir("")
				if int(payload) >= len(dirs) {
					return rerr.Malformedf("rarc", "entry %q points to directory %d of %d", entryName, payload, len(dirs))
				}
				if err := buildDir(int(payload), sub); err != nil {
					return err
				}
			} else {
				raw, err := r.SliceAt(dataBase+int(payload), int(size))
				if err != nil {
					return rerr.Malformedf("rarc", "file %q data out of bounds", entryName).Wrap(err)
				}
				out.AddFile(entryName, append([]byte(nil), raw...))
			}
		}
		return nil
	}

	fs := NewFS()
	if err := buildDir(0, fs.Root); err != nil {
		return nil, err
	}
	return fs, nil
}

// WriteRARC serializes the tree: directory nodes in preorder, each
// directory's entry list holding its files, subdirectories, and the "."
// and ".." links the runtime iterates over.
func WriteRARC(fs *FS) ([]byte, error) {
	// Flatten directories in preorder.
	type dirRec struct {
		entry  *Entry
		parent int
	}
	var dirList []dirRec
	var collect func(e *Entry, parent int)
	collect = func(e *Entry, parent int) {
		idx := len(dirList)
		dirList = append(dirList, dirRec{entry: e, parent: parent})
		for _, c := range e.Children {
			if c.IsDir {
				collect(c, idx)
			}
		}
	}
	collect(fs.Root, -1)

	dirIndex := map[*Entry]int{}
	for i, d := range dirList {
		dirIndex[d.entry] = i
	}

	// String table: "." and ".." first, then names in discovery order.
	var pool []byte
	poolIndex := map[string]int{}
	intern := func(s string) int {
		if ofs, ok := poolIndex[s]; ok {
			return ofs
		}
		ofs := len(pool)
		poolIndex[s] = ofs
		pool = append(pool, s...)
		pool = append(pool, 0)
		return ofs
	}
	intern(".")
	intern("..")
	rootName := fs.Root.Name
	if rootName == "" {
		rootName = "archive"
	}
	intern(rootName)
	fs.Walk(func(_ string, e *Entry) {
		if e != fs.Root {
			intern(e.Name)
		}
	})

	// Build file entries per directory: files and subdirs in child
	// order, then "." and "..".
	type fileEntry struct {
		id      uint16
		hash    uint16
		flags   uint8
		nameOfs uint16
		payload *Entry // file data or subdir
		dirIdx  int    // for dir links; -1 for file payloads
	}
	var entries []fileEntry
	firstEntry := make([]int, len(dirList))
	numEntries := make([]uint16, len(dirList))
	nextID := uint16(0)
	for di, d := range dirList {
		firstEntry[di] = len(entries)
		for _, c := range d.entry.Children {
			if c.IsDir {
				entries = append(entries, fileEntry{
					id:      0xFFFF,
					hash:    nameHash(c.Name),
					flags:   rarcFlagDir,
					nameOfs: uint16(intern(c.Name)),
					dirIdx:  dirIndex[c],
				})
			} else {
				entries = append(entries, fileEntry{
					id:      nextID,
					hash:    nameHash(c.Name),
					flags:   rarcFlagFile,
					nameOfs: uint16(intern(c.Name)),
					payload: c,
					dirIdx:  -1,
				})
				nextID++
			}
		}
		entries = append(entries, fileEntry{
			id: 0xFFFF, hash: nameHash("."), flags: rarcFlagDir,
			nameOfs: uint16(poolIndex["."]), dirIdx: di,
		})
		parent := d.parent
		entries = append(entries, fileEntry{
			id: 0xFFFF, hash: nameHash(".."), flags: rarcFlagDir,
			nameOfs: uint16(poolIndex[".."]), dirIdx: parent,
		})
		numEntries[di] = uint16(len(entries) - firstEntry[di])
	}

	w := stream.NewWriter()
	w.Magic(RARCMagic)
	fileSizeSite := w.ReserveU32()
	w.U32(rarcHeaderSize)
	dataStartSite := w.ReserveU32()
	dataSizeSite := w.ReserveU32()
	dataSize2Site := w.ReserveU32()
	w.Skip(8)

	// Info block.
	info := w.Pos()
	w.U32(uint32(len(dirList)))
	dirsOfsSite := w.ReserveU32()
	w.U32(uint32(len(entries)))
	entriesOfsSite := w.ReserveU32()
	stringSizeSite := w.ReserveU32()
	stringsOfsSite := w.ReserveU32()
	w.U16(nextID)
	w.U8(1) // keep file ids synchronized with entry order
	w.Skip(5)

	w.PatchU32At(dirsOfsSite, uint32(w.Pos()-info))
	for di, d := range dirList {
		if di == 0 {
			w.Magic("ROOT")
			w.U32(uint32(poolIndex[rootName]))
			w.U16(nameHash(rootName))
		} else {
			tag := dirTag(d.entry.Name)
			w.Magic(tag)
			w.U32(uint32(poolIndex[d.entry.Name]))
			w.U16(nameHash(d.entry.Name))
		}
		w.U16(numEntries[di])
		w.U32(uint32(firstEntry[di]))
	}

	w.PatchU32At(entriesOfsSite, uint32(w.Pos()-info))
	fileSites := make([]int, len(entries))
	for i, e := range entries {
		w.U16(e.id)
		w.U16(e.hash)
		w.U8(e.flags)
		w.U8(0)
		w.U16(e.nameOfs)
		if e.flags&rarcFlagDir != 0 {
			if e.dirIdx < 0 {
				w.U32(0xFFFFFFFF)
			} else {
				w.U32(uint32(e.dirIdx))
			}
			w.U32(0x10)
		} else {
			fileSites[i] = w.ReserveU32()
			w.U32(uint32(len(e.payload.Data)))
		}
		w.U32(0)
	}

	w.PatchU32At(stringsOfsSite, uint32(w.Pos()-info))
	w.Bytes(pool)
	w.PatchU32At(stringSizeSite, uint32(len(pool)))

	w.AlignWith(rarcDataAlignment, stream.PadZero)
	dataBase := w.Pos()
	w.PatchU32At(dataStartSite, uint32(dataBase-rarcHeaderSize))
	for i, e := range entries {
		if e.flags&rarcFlagDir != 0 {
			continue
		}
		w.AlignWith(rarcDataAlignment, stream.PadZero)
		w.PatchU32At(fileSites[i], uint32(w.Pos()-dataBase))
		w.Bytes(e.payload.Data)
	}
	dataLen := w.Len() - dataBase
	w.PatchU32At(dataSizeSite, uint32(dataLen))
	w.PatchU32At(dataSize2Site, uint32(dataLen))
	w.PatchU32At(fileSizeSite, uint32(w.Len()))
	return w.Finalize()
}

// dirTag derives the 4CC a directory node is tagged with: the uppercased
// first four name bytes, space-padded.
func dirTag(name string) string {
	tag := []byte{' ', ' ', ' ', ' '}
	for i := 0; i < len(name) && i < 4; i++ {
		c := name[i]
		if 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		tag[i] = c
	}
	return string(tag)
}
