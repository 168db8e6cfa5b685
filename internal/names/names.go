// Package names implements the string tables of the BMD and BRRES
// writers. Table is the deferred BRRES name table: strings are interned
// while the body is written, emitted once, and every reserved reference
// site is patched afterwards. The J3D string tables of BMD are written in
// place by WriteJ3DStringTable and do not go through a Table.
package names

import (
	"github.com/rvltools/rkit/internal/stream"
)

// Options selects the on-disk flavor of an emitted table.
type Options struct {
	// PrefixLen32 writes each string's byte length as a u32 immediately
	// before the characters; reference sites point at the characters.
	// This is the BRRES name-table layout.
	PrefixLen32 bool
	// NulTerminate appends a trailing zero byte to each string.
	NulTerminate bool
	// AlignEach pads the table to this boundary after every entry
	// (0 disables).
	AlignEach int
}

type slot struct {
	site  int
	base  int
	wide  bool // 32-bit site; false = 16-bit
	entry int
}

// Table accumulates interned strings and pending reference sites.
// Emitted order is the insertion order of first occurrence, so identical
// insertion sequences produce identical tables.
type Table struct {
	opts    Options
	strings []string
	index   map[string]int
	slots   []slot
	offsets []int
	emitted bool
}

// New returns an empty table with the given flavor.
func New(opts Options) *Table {
	return &Table{opts: opts, index: make(map[string]int)}
}

// Intern records name for emission and returns its entry index.
func (t *Table) Intern(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	i := len(t.strings)
	t.strings = append(t.strings, name)
	t.index[name] = i
	return i
}

// Ref reserves a 32-bit site that will receive the string's offset
// relative to base once the table is emitted.
func (t *Table) Ref(site, base int, name string) {
	t.slots = append(t.slots, slot{site: site, base: base, wide: true, entry: t.Intern(name)})
}

// Ref16 reserves a 16-bit site.
func (t *Table) Ref16(site, base int, name string) {
	t.slots = append(t.slots, slot{site: site, base: base, wide: false, entry: t.Intern(name)})
}

// Len returns the number of distinct interned strings.
func (t *Table) Len() int { return len(t.strings) }

// Emit writes the strings at the writer's current position in insertion
// order and patches every reserved site.
func (t *Table) Emit(w *stream.Writer) error {
	t.offsets = make([]int, len(t.strings))
	for i, s := range t.strings {
		if t.opts.PrefixLen32 {
			w.U32(uint32(len(s)))
		}
		t.offsets[i] = w.Pos()
		w.Bytes([]byte(s))
		if t.opts.NulTerminate {
			w.U8(0)
		}
		if t.opts.AlignEach > 0 {
			w.AlignWith(t.opts.AlignEach, stream.PadZero)
		}
	}
	t.emitted = true
	for _, sl := range t.slots {
		v := t.offsets[sl.entry] - sl.base
		if sl.wide {
			w.PatchU32At(sl.site, uint32(v))
		} else {
			w.PatchU16At(sl.site, uint16(v))
		}
	}
	return nil
}

// OffsetOf returns the emitted offset of name. Valid only after Emit.
func (t *Table) OffsetOf(name string) (int, bool) {
	if !t.emitted {
		return 0, false
	}
	i, ok := t.index[name]
	if !ok {
		return 0, false
	}
	return t.offsets[i], true
}

// J3DHash computes the 16-bit hash stored beside each entry of a J3D
// string table.
func J3DHash(s string) uint16 {
	var h uint16
	for i := 0; i < len(s); i++ {
		h = h*3 + uint16(s[i])
	}
	return h
}

// WriteJ3DStringTable writes the self-contained string table layout used
// by JNT1/MAT3/TEX1: a u16 count, 0xFFFF pad, per-entry hash and
// table-relative offset pairs, then NUL-terminated strings.
func WriteJ3DStringTable(w *stream.Writer, entries []string) {
	base := w.Pos()
	w.U16(uint16(len(entries)))
	w.U16(0xFFFF)
	sites := make([]int, len(entries))
	for i, s := range entries {
		w.U16(J3DHash(s))
		sites[i] = w.ReserveU16()
	}
	for i, s := range entries {
		w.PatchU16At(sites[i], uint16(w.Pos()-base))
		w.Bytes([]byte(s))
		w.U8(0)
	}
}

// ReadJ3DStringTable reads the table written by WriteJ3DStringTable,
// starting at base in r.
func ReadJ3DStringTable(r *stream.Reader, base int) ([]string, error) {
	count, err := r.PeekU16At(base)
	if err != nil {
		return nil, err
	}
	out := make([]string, count)
	for i := 0; i < int(count); i++ {
		ofs, err := r.PeekU16At(base + 4 + i*4 + 2)
		if err != nil {
			return nil, err
		}
		s, err := r.CStringAt(base + int(ofs))
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
