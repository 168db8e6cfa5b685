// Package szs implements the Yaz0 run-length scheme ("SZS") that wraps
// most retail assets. Decode is bit-exact; Encode may choose any match
// layout whose decode maps back to the input.
package szs

import (
	"github.com/rvltools/rkit/internal/rerr"
	"github.com/rvltools/rkit/internal/stream"
)

// Magic is the Yaz0 stream magic.
const Magic = "Yaz0"

const (
	windowSize = 0x1000
	minMatch   = 3
	maxMatch   = 0x111
)

// IsCompressed reports whether data begins with a Yaz0 header.
func IsCompressed(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == Magic
}

// Decode expands a Yaz0 stream. Self-overlapping back-references are
// legal and copied byte-by-byte, which repeated-pattern fills rely on.
func Decode(data []byte) ([]byte, error) {
	r := stream.NewReader(data)
	r.SetSite("szs")
	if err := r.Magic(Magic); err != nil {
		return nil, err
	}
	expanded, err := r.U32()
	if err != nil {
		return nil, err
	}
	if err := r.Skip(8); err != nil {
		return nil, err
	}

	out := make([]byte, 0, expanded)
	var group uint8
	var bitsLeft int
	for uint32(len(out)) < expanded {
		if bitsLeft == 0 {
			group, err = r.U8()
			if err != nil {
				return nil, rerr.Malformed("szs", "stream ends before expanded size").Wrap(err).At(r.Pos())
			}
			bitsLeft = 8
		}
		if group&0x80 != 0 {
			b, err := r.U8()
			if err != nil {
				return nil, rerr.Malformed("szs", "stream ends inside literal").Wrap(err).At(r.Pos())
			}
			out = append(out, b)
		} else {
			b0, err := r.U8()
			if err != nil {
				return nil, rerr.Malformed("szs", "stream ends inside code").Wrap(err).At(r.Pos())
			}
			b1, err := r.U8()
			if err != nil {
				return nil, rerr.Malformed("szs", "stream ends inside code").Wrap(err).At(r.Pos())
			}
			length := int(b0 >> 4)
			if length == 0 {
				b2, err := r.U8()
				if err != nil {
					return nil, rerr.Malformed("szs", "stream ends inside long code").Wrap(err).At(r.Pos())
				}
				length = int(b2) + 0x12
			} else {
				length += 2
			}
			distance := int(b0&0x0F)<<8 | int(b1)
			src := len(out) - distance - 1
			if src < 0 {
				return nil, rerr.Malformedf("szs", "back-reference before start (distance %d at %d)", distance, len(out)).At(r.Pos())
			}
			for i := 0; i < length; i++ {
				out = append(out, out[src+i])
			}
		}
		group <<= 1
		bitsLeft--
	}
	if uint32(len(out)) != expanded {
		out = out[:expanded]
	}
	return out, nil
}

// Encode compresses src into a Yaz0 stream using a greedy longest-match
// search over a 0x1000-byte window.
func Encode(src []byte) []byte {
	w := stream.NewWriter()
	w.Magic(Magic)
	w.U32(uint32(len(src)))
	w.Skip(8)

	// Chain candidate positions by 3-byte prefix so the window scan only
	// visits plausible matches.
	const hashBits = 14
	head := make([]int, 1<<hashBits)
	for i := range head {
		head[i] = -1
	}
	prev := make([]int, len(src))

	hash := func(p int) uint32 {
		return (uint32(src[p])<<16 | uint32(src[p+1])<<8 | uint32(src[p+2])) * 2654435761 >> (32 - hashBits)
	}
	insert := func(p int) {
		if p+minMatch <= len(src) {
			h := hash(p)
			prev[p] = head[h]
			head[h] = p
		}
	}

	var groupSite int
	var group uint8
	var bits int

	pos := 0
	for pos < len(src) {
		if bits == 0 {
			groupSite = w.Pos()
			w.U8(0)
			group = 0
		}

		length, distance := 0, 0
		if pos+minMatch <= len(src) {
			limit := len(src) - pos
			if limit > maxMatch {
				limit = maxMatch
			}
			for cand := head[hash(pos)]; cand >= 0 && pos-cand <= windowSize; cand = prev[cand] {
				n := 0
				for n < limit && src[cand+n] == src[pos+n] {
					n++
				}
				if n > length {
					length = n
					distance = pos - cand - 1
					if n == limit {
						break
					}
				}
			}
		}

		if length >= minMatch {
			if length >= 0x12 {
				w.U8(uint8(distance >> 8))
				w.U8(uint8(distance))
				w.U8(uint8(length - 0x12))
			} else {
				w.U8(uint8((length-2)<<4 | distance>>8))
				w.U8(uint8(distance))
			}
			for i := 0; i < length; i++ {
				insert(pos + i)
			}
			pos += length
		} else {
			group |= 0x80 >> bits
			w.U8(src[pos])
			insert(pos)
			pos++
		}

		bits++
		if bits == 8 {
			w.PatchU8At(groupSite, group)
			bits = 0
		}
	}
	if bits > 0 {
		w.PatchU8At(groupSite, group)
	}

	out, _ := w.Finalize()
	return out
}
