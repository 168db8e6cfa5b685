// Package egg reads and writes the small posteffect binaries consumed by
// the EGG engine layer: BLIGHT lights, BLMAP light textures, BDOF depth
// of field, BBLM bloom and BFG fog. Each is a fixed header plus fixed
// records, round-tripped bit-exactly.
package egg

import (
	"github.com/rvltools/rkit/internal/stream"
)

// Color is an RGBA quad stored as four bytes.
type Color struct {
	R, G, B, A uint8
}

func readColor(r *stream.Reader) (Color, error) {
	var c Color
	var err error
	if c.R, err = r.U8(); err != nil {
		return c, err
	}
	if c.G, err = r.U8(); err != nil {
		return c, err
	}
	if c.B, err = r.U8(); err != nil {
		return c, err
	}
	if c.A, err = r.U8(); err != nil {
		return c, err
	}
	return c, nil
}

func writeColor(w *stream.Writer, c Color) {
	w.U8(c.R)
	w.U8(c.G)
	w.U8(c.B)
	w.U8(c.A)
}

// Vec3 is a float triple.
type Vec3 struct {
	X, Y, Z float32
}

func readVec3(r *stream.Reader) (Vec3, error) {
	var v Vec3
	var err error
	if v.X, err = r.F32(); err != nil {
		return v, err
	}
	if v.Y, err = r.F32(); err != nil {
		return v, err
	}
	if v.Z, err = r.F32(); err != nil {
		return v, err
	}
	return v, nil
}

func writeVec3(w *stream.Writer, v Vec3) {
	w.F32(v.X)
	w.F32(v.Y)
	w.F32(v.Z)
}
