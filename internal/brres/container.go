package brres

import (
	"bytes"

	"github.com/rvltools/rkit/internal/dict"
	"github.com/rvltools/rkit/internal/names"
	"github.com/rvltools/rkit/internal/rerr"
	"github.com/rvltools/rkit/internal/stream"
)

// Magic identifies a BRRES archive.
const Magic = "bres"

const byteOrderMark = 0xFEFF

type dictEntry struct {
	name string
	abs  int // absolute file offset of the entry's data
}

// readDictGroup parses an index group at base and returns its entries in
// stored (insertion) order, skipping the root sentinel.
func readDictGroup(r *stream.Reader, base int) ([]dictEntry, error) {
	count, err := r.PeekU32At(base + 4)
	if err != nil {
		return nil, err
	}
	entries := make([]dictEntry, 0, count)
	for i := 1; i <= int(count); i++ {
		nodeBase := base + dict.HeaderSize + i*dict.EntrySize
		nameOfs, err := r.PeekU32At(nodeBase + 8)
		if err != nil {
			return nil, err
		}
		dataOfs, err := r.PeekU32At(nodeBase + 12)
		if err != nil {
			return nil, err
		}
		name, err := r.CStringAt(base + int(nameOfs))
		if err != nil {
			return nil, err
		}
		entries = append(entries, dictEntry{name: name, abs: base + int(dataOfs)})
	}
	return entries, nil
}

// writeDictGroup emits an index group for the named entries. Data
// offsets are linked to the absolute targets the caller resolves later.
func writeDictGroup(w *stream.Writer, tbl *names.Table, entryNames []string, targets []func() (int, error)) {
	base := w.Pos()
	nodes := dict.Build(entryNames)
	w.U32(uint32(dict.CalcDictionarySize(len(entryNames))))
	w.U32(uint32(len(entryNames)))
	for i, n := range nodes {
		w.U16(n.ID)
		w.U16(n.Flag)
		w.U16(n.Left)
		w.U16(n.Right)
		if i == 0 {
			w.U32(0)
			w.U32(0)
			continue
		}
		tbl.Ref(w.ReserveU32(), base, n.Name)
		w.Link(w.ReserveU32(), stream.LinkSectionRelative, base, targets[i-1])
	}
}

// Read parses a BRRES archive.
func Read(data []byte) (*Archive, error) {
	r := stream.NewReader(data)
	r.SetSite("brres")
	if err := r.Magic(Magic); err != nil {
		return nil, err
	}
	bom, err := r.U16()
	if err != nil {
		return nil, err
	}
	if bom != byteOrderMark {
		return nil, rerr.Malformedf("brres", "bad byte order mark 0x%04x", bom).At(4)
	}
	if _, err := r.U16(); err != nil { // version pad
		return nil, err
	}
	if _, err := r.U32(); err != nil { // file size
		return nil, err
	}
	rootOfs, err := r.U16()
	if err != nil {
		return nil, err
	}
	if _, err := r.U16(); err != nil { // section count
		return nil, err
	}

	if err := r.SeekTo(int(rootOfs)); err != nil {
		return nil, err
	}
	r.SetSite("brres/root")
	if err := r.Magic("root"); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // root block size
		return nil, err
	}
	outerBase := int(rootOfs) + 8
	outer, err := readDictGroup(r, outerBase)
	if err != nil {
		return nil, err
	}

	a := NewArchive()
	for _, section := range outer {
		inner, err := readDictGroup(r, section.abs)
		if err != nil {
			return nil, err
		}
		for _, res := range inner {
			if err := readResource(r, a, section.name, res); err != nil {
				return nil, err
			}
		}
	}
	return a, nil
}

func readResource(r *stream.Reader, a *Archive, section string, res dictEntry) error {
	switch section {
	case SectionVis:
		anim, err := readVIS0(r, res.abs)
		if err != nil {
			return err
		}
		anim.SetDisplayName(res.name)
		a.VisAnims.Add(anim)
	case SectionSrt:
		anim, err := readSRT0(r, res.abs)
		if err != nil {
			return err
		}
		anim.SetDisplayName(res.name)
		a.SrtAnims.Add(anim)
	case SectionTextures:
		tex, err := readTEX0(r, res.abs)
		if err != nil {
			return err
		}
		tex.SetDisplayName(res.name)
		a.Textures.Add(tex)
	case SectionModels:
		mdl, err := readMDL0(r, res.abs)
		if err != nil {
			return err
		}
		mdl.SetDisplayName(res.name)
		a.Models.Add(mdl)
	case SectionClr, SectionPat, SectionChr:
		magic := map[string]string{SectionClr: "CLR0", SectionPat: "PAT0", SectionChr: "CHR0"}[section]
		blob, err := subfileBlob(r, res.abs, magic)
		if err != nil {
			return err
		}
		anim := &RawAnim{Data: blob}
		anim.SetDisplayName(res.name)
		switch section {
		case SectionClr:
			a.ClrAnims.Add(anim)
		case SectionPat:
			a.PatAnims.Add(anim)
		default:
			a.ChrAnims.Add(anim)
		}
	default:
		return rerr.Malformedf("brres/root", "unknown section %q", section)
	}
	return nil
}

// subfileBlob captures a sub-file verbatim using its size word.
func subfileBlob(r *stream.Reader, base int, magic string) ([]byte, error) {
	if err := r.SeekTo(base); err != nil {
		return nil, err
	}
	if err := r.Magic(magic); err != nil {
		return nil, err
	}
	size, err := r.U32()
	if err != nil {
		return nil, err
	}
	blob, err := r.SliceAt(base, int(size))
	if err != nil {
		return nil, rerr.Malformedf("brres", "%s sub-file exceeds archive", magic).Wrap(err)
	}
	return append([]byte(nil), blob...), nil
}

type pendingSection struct {
	key     string
	names   []string
	writers []func(w *stream.Writer, tbl *names.Table) error
	prints  [][]byte // dedup material: body serialized with a throwaway table
}

// Write serializes the archive. Identical sub-resource bodies are
// deduplicated: a matching fingerprint (confirmed byte-for-byte) shares
// one emitted body across dictionary entries. The name table is emitted
// last, keys only.
func (a *Archive) Write() ([]byte, error) {
	var sections []pendingSection
	add := func(key, name string, fn func(w *stream.Writer, tbl *names.Table) error) error {
		// Serialize against a scratch writer for the dedup
		// fingerprint; name offsets resolve to zero there, which is
		// fine — equal resources produce equal scratch bodies.
		scratch := stream.NewWriter()
		scratchTbl := names.New(names.Options{})
		if err := fn(scratch, scratchTbl); err != nil {
			return err
		}
		body, err := scratch.Finalize()
		if err != nil {
			return err
		}
		for i := range sections {
			if sections[i].key == key {
				sections[i].names = append(sections[i].names, name)
				sections[i].writers = append(sections[i].writers, fn)
				sections[i].prints = append(sections[i].prints, body)
				return nil
			}
		}
		sections = append(sections, pendingSection{
			key:     key,
			names:   []string{name},
			writers: []func(w *stream.Writer, tbl *names.Table) error{fn},
			prints:  [][]byte{body},
		})
		return nil
	}

	for _, m := range a.Models.All() {
		mdl := m
		if err := add(SectionModels, m.DisplayName(), func(w *stream.Writer, tbl *names.Table) error {
			return writeMDL0(w, mdl, tbl)
		}); err != nil {
			return nil, err
		}
	}
	for _, t := range a.Textures.All() {
		tex := t
		if err := add(SectionTextures, t.DisplayName(), func(w *stream.Writer, tbl *names.Table) error {
			return writeTEX0(w, tex, tbl)
		}); err != nil {
			return nil, err
		}
	}
	for _, s := range a.SrtAnims.All() {
		anim := s
		if err := add(SectionSrt, s.DisplayName(), func(w *stream.Writer, tbl *names.Table) error {
			return writeSRT0(w, anim, tbl)
		}); err != nil {
			return nil, err
		}
	}
	for _, fold := range []struct {
		key  string
		objs []*RawAnim
	}{
		{SectionClr, a.ClrAnims.All()},
		{SectionPat, a.PatAnims.All()},
		{SectionChr, a.ChrAnims.All()},
	} {
		for _, anim := range fold.objs {
			blob := anim.Data
			if err := add(fold.key, anim.DisplayName(), func(w *stream.Writer, tbl *names.Table) error {
				w.Bytes(blob)
				return nil
			}); err != nil {
				return nil, err
			}
		}
	}
	for _, v := range a.VisAnims.All() {
		anim := v
		if err := add(SectionVis, v.DisplayName(), func(w *stream.Writer, tbl *names.Table) error {
			return writeVIS0(w, anim, tbl)
		}); err != nil {
			return nil, err
		}
	}

	w := stream.NewWriter()
	tbl := names.New(names.Options{PrefixLen32: true, NulTerminate: true, AlignEach: 4})

	w.Magic(Magic)
	w.U16(byteOrderMark)
	w.U16(0)
	fileSizeSite := w.ReserveU32()
	w.U16(0x10)
	resourceCount := 0
	for _, s := range sections {
		resourceCount += len(s.names)
	}
	w.U16(uint16(resourceCount))

	// Root block: outer dictionary over the populated sections, then one
	// inner dictionary per section.
	w.Magic("root")
	rootSizeSite := w.ReserveU32()

	innerStarts := make([]int, len(sections))
	outerTargets := make([]func() (int, error), len(sections))
	outerNames := make([]string, len(sections))
	for i, s := range sections {
		outerNames[i] = s.key
		outerTargets[i] = func() (int, error) {
			if innerStarts[i] == 0 {
				return 0, rerr.Invariantf("inner dictionary %q never placed", s.key)
			}
			return innerStarts[i], nil
		}
	}
	writeDictGroup(w, tbl, outerNames, outerTargets)

	bodyOffsets := make([][]int, len(sections))
	for i, s := range sections {
		innerStarts[i] = w.Pos()
		bodyOffsets[i] = make([]int, len(s.names))
		targets := make([]func() (int, error), len(s.names))
		for j := range s.names {
			targets[j] = func() (int, error) {
				if bodyOffsets[i][j] == 0 {
					return 0, rerr.Invariantf("resource %q never placed", s.names[j])
				}
				return bodyOffsets[i][j], nil
			}
		}
		writeDictGroup(w, tbl, s.names, targets)
	}
	w.PatchU32At(rootSizeSite, uint32(w.Pos()-0x10))

	// Resource bodies, deduplicated on structural equality of the
	// emitted buffer.
	type bodyKey struct {
		hash uint64
		ofs  int
		raw  []byte
	}
	var seen []bodyKey
	for i, s := range sections {
		for j := range s.names {
			print := s.prints[j]
			h := fingerprint(print)
			shared := 0
			for _, b := range seen {
				if b.hash == h && bytes.Equal(b.raw, print) {
					shared = b.ofs
					break
				}
			}
			if shared != 0 {
				bodyOffsets[i][j] = shared
				continue
			}
			w.AlignWith(0x10, stream.PadZero)
			ofs := w.Pos()
			if err := s.writers[j](w, tbl); err != nil {
				return nil, err
			}
			bodyOffsets[i][j] = ofs
			seen = append(seen, bodyKey{hash: h, ofs: ofs, raw: print})
		}
	}

	// Shared name table, keys only, emitted last.
	w.AlignWith(4, stream.PadZero)
	if err := tbl.Emit(w); err != nil {
		return nil, err
	}

	w.PatchU32At(fileSizeSite, uint32(w.Len()))
	return w.Finalize()
}
