package gx

import (
	"github.com/rvltools/rkit/internal/rerr"
	"github.com/rvltools/rkit/internal/stream"
)

// DecodeDisplayList decodes draw commands from data until the slice is
// exhausted. Trailing NOP bytes (0x00) are padding and are skipped.
func DecodeDisplayList(data []byte, vcd *VertexDescriptor) ([]Primitive, error) {
	r := stream.NewReader(data)
	r.SetSite("gx/displaylist")
	active := vcd.Active()

	var prims []Primitive
	for r.Remaining() > 0 {
		op, err := r.U8()
		if err != nil {
			return nil, err
		}
		if op == 0x00 {
			continue
		}
		pt, ok := primFromOpcode(op)
		if !ok {
			return nil, rerr.Malformedf("gx/displaylist", "unknown opcode 0x%02x", op).At(r.Pos() - 1)
		}
		count, err := r.U16()
		if err != nil {
			return nil, err
		}
		prim := Primitive{Type: pt, Vertices: make([]Vertex, count)}
		for i := range prim.Vertices {
			if err := decodeVertex(r, vcd, active, &prim.Vertices[i]); err != nil {
				return nil, err
			}
		}
		prims = append(prims, prim)
	}
	return prims, nil
}

func decodeVertex(r *stream.Reader, vcd *VertexDescriptor, active []VertexAttribute, v *Vertex) error {
	for _, a := range active {
		switch vcd.Get(a) {
		case TypeDirect:
			// Only the matrix index is stored directly, as one byte.
			if a != PositionNormalMatrixIndex {
				return rerr.Malformedf("gx/displaylist", "direct-format attribute %v", a).At(r.Pos())
			}
			b, err := r.U8()
			if err != nil {
				return err
			}
			v.SetIndex(a, uint16(b))
		case TypeByte:
			b, err := r.U8()
			if err != nil {
				return err
			}
			v.SetIndex(a, uint16(b))
		case TypeShort:
			s, err := r.U16()
			if err != nil {
				return err
			}
			v.SetIndex(a, s)
		}
	}
	return nil
}

// EncodeDisplayList writes prims to w as the exact inverse of
// DecodeDisplayList. No restructuring is performed; primitive order and
// vertex order are preserved.
func EncodeDisplayList(w *stream.Writer, prims []Primitive, vcd *VertexDescriptor) error {
	active := vcd.Active()
	for _, p := range prims {
		w.U8(p.Type.Opcode())
		w.U16(uint16(len(p.Vertices)))
		for vi := range p.Vertices {
			v := &p.Vertices[vi]
			for _, a := range active {
				switch vcd.Get(a) {
				case TypeDirect:
					if a != PositionNormalMatrixIndex {
						return rerr.Malformedf("gx/displaylist", "direct-format attribute %v", a)
					}
					w.U8(uint8(v.Index(a)))
				case TypeByte:
					w.U8(uint8(v.Index(a)))
				case TypeShort:
					w.U16(v.Index(a))
				}
			}
		}
	}
	return nil
}

// MaxIndex returns the highest index used for attribute a across prims,
// and whether the attribute occurred at all. Shape scanning uses this to
// recover the true vertex-buffer lengths after greedy reads.
func MaxIndex(prims []Primitive, a VertexAttribute) (uint16, bool) {
	var max uint16
	found := false
	for _, p := range prims {
		for vi := range p.Vertices {
			if idx := p.Vertices[vi].Index(a); !found || idx > max {
				max = idx
				found = true
			}
		}
	}
	return max, found
}
