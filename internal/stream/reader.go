// Package stream provides the byte-accurate reader and writer primitives
// the codecs are built on: endian-aware integer and float access, magic
// checks, scoped position save/restore, deferred offset fixups, and
// configurable padding.
package stream

import (
	"encoding/binary"
	"math"

	"github.com/rvltools/rkit/internal/rerr"
)

// Reader reads from an immutable byte view. Every read returns an explicit
// error; reads past the end fail with rerr.ErrEOF and never panic.
type Reader struct {
	data  []byte
	pos   int
	order binary.ByteOrder
	site  string
	stack []int
}

// NewReader returns a big-endian reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data, order: binary.BigEndian, site: "stream"}
}

// NewReaderLE returns a little-endian reader over data.
func NewReaderLE(data []byte) *Reader {
	return &Reader{data: data, order: binary.LittleEndian, site: "stream"}
}

// SetSite names the format region for error reporting (e.g. "bmd/shp1").
func (r *Reader) SetSite(site string) { r.site = site }

// Site returns the current error-reporting site.
func (r *Reader) Site() string { return r.site }

// Pos returns the current read position.
func (r *Reader) Pos() int { return r.pos }

// Len returns the total length of the underlying view.
func (r *Reader) Len() int { return len(r.data) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// SeekTo moves the read position to pos.
func (r *Reader) SeekTo(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return &rerr.RangeError{Site: r.site, What: "seek position", Value: pos, Max: len(r.data) + 1}
	}
	r.pos = pos
	return nil
}

// Skip advances the read position by n bytes.
func (r *Reader) Skip(n int) error {
	return r.SeekTo(r.pos + n)
}

// PushPos saves the current position on the position stack.
func (r *Reader) PushPos() {
	r.stack = append(r.stack, r.pos)
}

// PopPos restores the most recently pushed position.
func (r *Reader) PopPos() {
	if n := len(r.stack); n > 0 {
		r.pos = r.stack[n-1]
		r.stack = r.stack[:n-1]
	}
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.data) {
		return nil, rerr.ErrEOF
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// U8 reads one unsigned byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads an unsigned 16-bit integer.
func (r *Reader) U16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

// U32 reads an unsigned 32-bit integer.
func (r *Reader) U32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

// S8 reads a signed byte.
func (r *Reader) S8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

// S16 reads a signed 16-bit integer.
func (r *Reader) S16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

// S32 reads a signed 32-bit integer.
func (r *Reader) S32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// F32 reads an IEEE-754 single.
func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

// Magic reads four bytes and fails with a MagicError unless they equal want.
func (r *Reader) Magic(want string) error {
	at := r.pos
	b, err := r.take(4)
	if err != nil {
		return err
	}
	if string(b) != want {
		return &rerr.MagicError{Site: r.site, Want: want, Got: string(b), Offset: at}
	}
	return nil
}

// FourCC reads four bytes as a string without validating them.
func (r *Reader) FourCC() (string, error) {
	b, err := r.take(4)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Bytes reads n bytes into a fresh copy.
func (r *Reader) Bytes(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// Slice returns a borrowed sub-view of n bytes. The view aliases the
// reader's buffer and must not be mutated.
func (r *Reader) Slice(n int) ([]byte, error) {
	return r.take(n)
}

// SliceAt returns a borrowed sub-view without moving the read position.
func (r *Reader) SliceAt(pos, n int) ([]byte, error) {
	if pos < 0 || n < 0 || pos+n > len(r.data) {
		return nil, rerr.ErrEOF
	}
	return r.data[pos : pos+n], nil
}

// U16Array reads n consecutive unsigned 16-bit integers.
func (r *Reader) U16Array(n int) ([]uint16, error) {
	out := make([]uint16, n)
	for i := range out {
		v, err := r.U16()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// U32Array reads n consecutive unsigned 32-bit integers.
func (r *Reader) U32Array(n int) ([]uint32, error) {
	out := make([]uint32, n)
	for i := range out {
		v, err := r.U32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// F32Array reads n consecutive singles.
func (r *Reader) F32Array(n int) ([]float32, error) {
	out := make([]float32, n)
	for i := range out {
		v, err := r.F32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// PeekU8At reads a byte at an absolute offset without moving the position.
func (r *Reader) PeekU8At(ofs int) (uint8, error) {
	if ofs < 0 || ofs >= len(r.data) {
		return 0, rerr.ErrEOF
	}
	return r.data[ofs], nil
}

// PeekU16At reads a u16 at an absolute offset without moving the position.
func (r *Reader) PeekU16At(ofs int) (uint16, error) {
	if ofs < 0 || ofs+2 > len(r.data) {
		return 0, rerr.ErrEOF
	}
	return r.order.Uint16(r.data[ofs:]), nil
}

// PeekU32At reads a u32 at an absolute offset without moving the position.
func (r *Reader) PeekU32At(ofs int) (uint32, error) {
	if ofs < 0 || ofs+4 > len(r.data) {
		return 0, rerr.ErrEOF
	}
	return r.order.Uint32(r.data[ofs:]), nil
}

// CString reads a NUL-terminated string starting at the current position.
func (r *Reader) CString() (string, error) {
	start := r.pos
	for i := r.pos; i < len(r.data); i++ {
		if r.data[i] == 0 {
			r.pos = i + 1
			return string(r.data[start:i]), nil
		}
	}
	return "", rerr.ErrEOF
}

// CStringAt reads a NUL-terminated string at an absolute offset without
// moving the position.
func (r *Reader) CStringAt(ofs int) (string, error) {
	if ofs < 0 || ofs > len(r.data) {
		return "", rerr.ErrEOF
	}
	for i := ofs; i < len(r.data); i++ {
		if r.data[i] == 0 {
			return string(r.data[ofs:i]), nil
		}
	}
	return "", rerr.ErrEOF
}

// PascalString16At reads a string stored as a u16 byte count followed by
// that many bytes, at an absolute offset.
func (r *Reader) PascalString16At(ofs int) (string, error) {
	n, err := r.PeekU16At(ofs)
	if err != nil {
		return "", err
	}
	if ofs+2+int(n) > len(r.data) {
		return "", rerr.ErrEOF
	}
	return string(r.data[ofs+2 : ofs+2+int(n)]), nil
}
