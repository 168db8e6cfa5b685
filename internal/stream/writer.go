package stream

import (
	"encoding/binary"
	"math"

	"github.com/rvltools/rkit/internal/debug"
	"github.com/rvltools/rkit/internal/rerr"
)

// PadFunc fills dst with the pad pattern for a gap beginning at offset.
// The offset lets cyclic pad strings stay phase-aligned across calls.
type PadFunc func(dst []byte, offset int)

// PadZero fills gaps with zero bytes.
func PadZero(dst []byte, _ int) {
	for i := range dst {
		dst[i] = 0
	}
}

// PadString returns a PadFunc cycling through s, restarting the string
// at each pad run. Retail J3D tools pad with the literal
// "This is padding data to alignment....." and reproducing it is part of
// the bit-exact contract.
func PadString(s string) PadFunc {
	return func(dst []byte, _ int) {
		for i := range dst {
			dst[i] = s[i%len(s)]
		}
	}
}

// LinkKind selects how a deferred fixup value is computed from its target.
type LinkKind int

const (
	// LinkFileRelative patches the absolute offset of the target within
	// the output buffer.
	LinkFileRelative LinkKind = iota
	// LinkSectionRelative patches the offset of the target relative to a
	// section base recorded when the link was created.
	LinkSectionRelative
)

type fixup struct {
	site    int
	width   int
	kind    LinkKind
	base    int
	resolve func() (int, error)
}

type breakpoint struct {
	offset int
	width  int
}

// Writer owns a growable output buffer. Positions may be revisited via
// SeekTo, pending fixups are applied exactly once at Finalize, and padding
// bytes come from a per-writer PadFunc.
type Writer struct {
	buf    []byte
	pos    int
	order  binary.ByteOrder
	pad    PadFunc
	fixups []fixup
	breaks []breakpoint
	ref    []byte

	// OnBreakpoint, when set, is invoked in debug builds whenever a write
	// crosses a registered breakpoint.
	OnBreakpoint func(offset, width int)
	// OnReferenceMismatch, when set, is invoked in debug builds when a
	// written byte differs from the attached reference output.
	OnReferenceMismatch func(offset int, got, want byte)
}

// NewWriter returns an empty big-endian writer padding with zero bytes.
func NewWriter() *Writer {
	return &Writer{order: binary.BigEndian, pad: PadZero}
}

// NewWriterLE returns an empty little-endian writer padding with zero bytes.
func NewWriterLE() *Writer {
	return &Writer{order: binary.LittleEndian, pad: PadZero}
}

// SetPadding installs the pad byte filler used by Align.
func (w *Writer) SetPadding(pad PadFunc) {
	if pad == nil {
		pad = PadZero
	}
	w.pad = pad
}

// SetReference attaches a reference output for byte-diff checks during
// debug-mode writes. Used when bisecting roundtrip mismatches.
func (w *Writer) SetReference(ref []byte) { w.ref = ref }

// AddBreakpoint registers a debug trap on [offset, offset+width).
func (w *Writer) AddBreakpoint(offset, width int) {
	w.breaks = append(w.breaks, breakpoint{offset: offset, width: width})
}

// Pos returns the current write position.
func (w *Writer) Pos() int { return w.pos }

// Len returns the current buffer length (high-water mark).
func (w *Writer) Len() int { return len(w.buf) }

// SeekTo moves the write position; the buffer grows if pos is past the end.
func (w *Writer) SeekTo(pos int) {
	w.grow(pos)
	w.pos = pos
}

func (w *Writer) grow(end int) {
	if end > len(w.buf) {
		if end > cap(w.buf) {
			next := make([]byte, end, end*2)
			copy(next, w.buf)
			w.buf = next
		} else {
			w.buf = w.buf[:end]
		}
	}
}

func (w *Writer) put(b []byte) {
	end := w.pos + len(b)
	w.grow(end)
	if debug.Enabled() {
		w.checkDebug(w.pos, b)
	}
	copy(w.buf[w.pos:end], b)
	w.pos = end
}

func (w *Writer) checkDebug(at int, b []byte) {
	for _, bp := range w.breaks {
		if at < bp.offset+bp.width && at+len(b) > bp.offset {
			if w.OnBreakpoint != nil {
				w.OnBreakpoint(bp.offset, bp.width)
			} else {
				debug.Logf("stream", "breakpoint hit: write [0x%x,0x%x) crosses [0x%x,0x%x)",
					at, at+len(b), bp.offset, bp.offset+bp.width)
			}
		}
	}
	if w.ref != nil {
		for i, c := range b {
			if at+i < len(w.ref) && w.ref[at+i] != c {
				if w.OnReferenceMismatch != nil {
					w.OnReferenceMismatch(at+i, c, w.ref[at+i])
				} else {
					debug.Logf("stream", "reference mismatch at 0x%x: got 0x%02x want 0x%02x",
						at+i, c, w.ref[at+i])
				}
				break
			}
		}
	}
}

// U8 writes one byte.
func (w *Writer) U8(v uint8) { w.put([]byte{v}) }

// U16 writes an unsigned 16-bit integer.
func (w *Writer) U16(v uint16) {
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.put(b[:])
}

// U32 writes an unsigned 32-bit integer.
func (w *Writer) U32(v uint32) {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.put(b[:])
}

// S8 writes a signed byte.
func (w *Writer) S8(v int8) { w.U8(uint8(v)) }

// S16 writes a signed 16-bit integer.
func (w *Writer) S16(v int16) { w.U16(uint16(v)) }

// S32 writes a signed 32-bit integer.
func (w *Writer) S32(v int32) { w.U32(uint32(v)) }

// F32 writes an IEEE-754 single.
func (w *Writer) F32(v float32) { w.U32(math.Float32bits(v)) }

// Magic writes a four-character code.
func (w *Writer) Magic(cc string) { w.put([]byte(cc[:4])) }

// Bytes writes a raw byte run.
func (w *Writer) Bytes(b []byte) { w.put(b) }

// Skip reserves n bytes (left as pad-neutral zeros) for a later patch.
func (w *Writer) Skip(n int) {
	w.grow(w.pos + n)
	w.pos += n
}

// Align pads with the writer's PadFunc until pos is a multiple of n.
func (w *Writer) Align(n int) {
	w.AlignWith(n, w.pad)
}

// AlignWith pads to an n-byte boundary using an explicit filler.
func (w *Writer) AlignWith(n int, pad PadFunc) {
	rem := w.pos % n
	if rem == 0 {
		return
	}
	gap := make([]byte, n-rem)
	pad(gap, w.pos)
	w.put(gap)
}

// PatchU8At overwrites a previously written or skipped byte.
func (w *Writer) PatchU8At(site int, v uint8) {
	w.grow(site + 1)
	w.buf[site] = v
}

// PatchU16At overwrites a previously written or skipped u16 site.
func (w *Writer) PatchU16At(site int, v uint16) {
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.grow(site + 2)
	copy(w.buf[site:], b[:])
}

// PatchU32At overwrites a previously written or skipped u32 site.
func (w *Writer) PatchU32At(site int, v uint32) {
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.grow(site + 4)
	copy(w.buf[site:], b[:])
}

// ReserveU16 writes a placeholder u16 and returns its site for patching.
func (w *Writer) ReserveU16() int {
	site := w.pos
	w.U16(0)
	return site
}

// ReserveU32 writes a placeholder u32 and returns its site for patching.
func (w *Writer) ReserveU32() int {
	site := w.pos
	w.U32(0)
	return site
}

// Link records a pending fixup: at Finalize, resolve is called and the
// returned target offset — absolute for LinkFileRelative, target-base for
// LinkSectionRelative — is patched into the 32-bit site.
func (w *Writer) Link(site int, kind LinkKind, base int, resolve func() (int, error)) {
	w.fixups = append(w.fixups, fixup{site: site, width: 4, kind: kind, base: base, resolve: resolve})
}

// Link16 records a 16-bit pending fixup.
func (w *Writer) Link16(site int, kind LinkKind, base int, resolve func() (int, error)) {
	w.fixups = append(w.fixups, fixup{site: site, width: 2, kind: kind, base: base, resolve: resolve})
}

// LinkHere records a fixup whose target is the current write position.
func (w *Writer) LinkHere(site int, kind LinkKind, base int) {
	target := w.pos
	w.Link(site, kind, base, func() (int, error) { return target, nil })
}

// Finalize applies every pending fixup exactly once and returns the
// finished buffer. The writer must not be reused afterwards.
func (w *Writer) Finalize() ([]byte, error) {
	for _, f := range w.fixups {
		target, err := f.resolve()
		if err != nil {
			return nil, err
		}
		v := target
		if f.kind == LinkSectionRelative {
			v = target - f.base
		}
		if v < 0 {
			return nil, rerr.Invariantf("link at 0x%x resolves to negative offset %d", f.site, v)
		}
		switch f.width {
		case 2:
			if v > math.MaxUint16 {
				return nil, rerr.Invariantf("link at 0x%x overflows u16: %d", f.site, v)
			}
			w.PatchU16At(f.site, uint16(v))
		default:
			w.PatchU32At(f.site, uint32(v))
		}
	}
	w.fixups = nil
	return w.buf, nil
}
