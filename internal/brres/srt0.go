package brres

import (
	"github.com/rvltools/rkit/internal/document"
	"github.com/rvltools/rkit/internal/names"
	"github.com/rvltools/rkit/internal/rerr"
	"github.com/rvltools/rkit/internal/stream"
)

// TransformModel is the SRT0 matrix convention.
type TransformModel uint32

const (
	TransformMaya TransformModel = iota
	TransformXSI
	TransformMax
)

// SrtTrack is one animated channel: either a fixed value or keyframes.
type SrtTrack struct {
	Fixed      bool
	FixedValue float32
	Keys       []SrtKey
}

// SrtKey is one hermite keyframe.
type SrtKey struct {
	Frame   float32
	Value   float32
	Tangent float32
}

// SrtMatrix is the five animated channels of one texture matrix.
type SrtMatrix struct {
	ScaleX SrtTrack
	ScaleY SrtTrack
	Rotate SrtTrack
	TransX SrtTrack
	TransY SrtTrack
}

func (m *SrtMatrix) tracks() []*SrtTrack {
	return []*SrtTrack{&m.ScaleX, &m.ScaleY, &m.Rotate, &m.TransX, &m.TransY}
}

// SrtMaterial binds animated texture matrices to a material by name.
// Matrices maps texmatrix slot (0..7) to its channel tracks.
type SrtMaterial struct {
	Name     string
	Matrices map[uint8]*SrtMatrix
}

// SrtAnim is one SRT0 resource.
type SrtAnim struct {
	document.ObjectBase
	SourcePath    string
	FrameDuration uint16
	Transform     TransformModel
	Wrap          WrapMode
	Materials     []SrtMaterial
}

func (s *SrtAnim) CloneObject() document.Object {
	c := *s
	c.ObjectBase = s.CloneBase()
	c.Materials = make([]SrtMaterial, len(s.Materials))
	for i, mat := range s.Materials {
		cm := SrtMaterial{Name: mat.Name, Matrices: make(map[uint8]*SrtMatrix, len(mat.Matrices))}
		for slot, mtx := range mat.Matrices {
			copied := *mtx
			for ti, t := range copied.tracks() {
				t.Keys = append([]SrtKey(nil), mtx.tracks()[ti].Keys...)
			}
			cm.Matrices[slot] = &copied
		}
		c.Materials[i] = cm
	}
	return &c
}

func (s *SrtAnim) EqualsObject(other document.Object) bool {
	o, ok := other.(*SrtAnim)
	if !ok || o.DisplayName() != s.DisplayName() || o.SourcePath != s.SourcePath ||
		o.FrameDuration != s.FrameDuration || o.Transform != s.Transform ||
		o.Wrap != s.Wrap || len(o.Materials) != len(s.Materials) {
		return false
	}
	for i := range s.Materials {
		a, b := &s.Materials[i], &o.Materials[i]
		if a.Name != b.Name || len(a.Matrices) != len(b.Matrices) {
			return false
		}
		for slot, am := range a.Matrices {
			bm, ok := b.Matrices[slot]
			if !ok || !tracksEqual(am, bm) {
				return false
			}
		}
	}
	return true
}

func tracksEqual(a, b *SrtMatrix) bool {
	at, bt := a.tracks(), b.tracks()
	for i := range at {
		if at[i].Fixed != bt[i].Fixed || at[i].FixedValue != bt[i].FixedValue ||
			len(at[i].Keys) != len(bt[i].Keys) {
			return false
		}
		for k := range at[i].Keys {
			if at[i].Keys[k] != bt[i].Keys[k] {
				return false
			}
		}
	}
	return true
}

const srt0Version = 5

func readSRT0(r *stream.Reader, base int) (*SrtAnim, error) {
	r.SetSite("brres/srt0")
	if err := r.SeekTo(base); err != nil {
		return nil, err
	}
	if err := r.Magic("SRT0"); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // size
		return nil, err
	}
	ver, err := r.U32()
	if err != nil {
		return nil, err
	}
	if ver != srt0Version {
		return nil, &rerr.VersionError{Site: "brres/srt0", Got: "SRT0"}
	}
	if _, err := r.S32(); err != nil { // archive back-reference
		return nil, err
	}
	matOfs, err := r.U32()
	if err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // user data
		return nil, err
	}

	anim := &SrtAnim{}
	nameOfs, err := r.U32()
	if err != nil {
		return nil, err
	}
	name, err := r.CStringAt(base + int(nameOfs))
	if err != nil {
		return nil, err
	}
	anim.SetDisplayName(name)
	srcOfs, err := r.U32()
	if err != nil {
		return nil, err
	}
	if srcOfs != 0 {
		if anim.SourcePath, err = r.CStringAt(base + int(srcOfs)); err != nil {
			return nil, err
		}
	}
	if anim.FrameDuration, err = r.U16(); err != nil {
		return nil, err
	}
	matCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	xf, err := r.U32()
	if err != nil {
		return nil, err
	}
	if xf > uint32(TransformMax) {
		return nil, rerr.Malformedf("brres/srt0", "unknown transform model %d", xf)
	}
	anim.Transform = TransformModel(xf)
	wrap, err := r.U32()
	if err != nil {
		return nil, err
	}
	if wrap > uint32(WrapRepeat) {
		return nil, rerr.Malformedf("brres/srt0", "unknown wrap mode %d", wrap)
	}
	anim.Wrap = WrapMode(wrap)

	if err := r.SeekTo(base + int(matOfs)); err != nil {
		return nil, err
	}
	for i := 0; i < int(matCount); i++ {
		var mat SrtMaterial
		mnOfs, err := r.U32()
		if err != nil {
			return nil, err
		}
		if mat.Name, err = r.CStringAt(base + int(mnOfs)); err != nil {
			return nil, err
		}
		enabled, err := r.U32()
		if err != nil {
			return nil, err
		}
		mat.Matrices = make(map[uint8]*SrtMatrix)
		for slot := uint8(0); slot < 8; slot++ {
			if enabled&(1<<slot) == 0 {
				continue
			}
			mtx := &SrtMatrix{}
			for _, tr := range mtx.tracks() {
				if err := readSrtTrack(r, tr); err != nil {
					return nil, err
				}
			}
			mat.Matrices[slot] = mtx
		}
		anim.Materials = append(anim.Materials, mat)
	}
	return anim, nil
}

func readSrtTrack(r *stream.Reader, t *SrtTrack) error {
	keyCount, err := r.U16()
	if err != nil {
		return err
	}
	fixed, err := r.U8()
	if err != nil {
		return err
	}
	if err := r.Skip(1); err != nil {
		return err
	}
	t.Fixed = fixed != 0
	if t.Fixed {
		t.FixedValue, err = r.F32()
		return err
	}
	t.Keys = make([]SrtKey, keyCount)
	for i := range t.Keys {
		if t.Keys[i].Frame, err = r.F32(); err != nil {
			return err
		}
		if t.Keys[i].Value, err = r.F32(); err != nil {
			return err
		}
		if t.Keys[i].Tangent, err = r.F32(); err != nil {
			return err
		}
	}
	return nil
}

func writeSRT0(w *stream.Writer, anim *SrtAnim, tbl *names.Table) error {
	base := w.Pos()
	w.Magic("SRT0")
	sizeSite := w.ReserveU32()
	w.U32(srt0Version)
	w.S32(0)
	matOfsSite := w.ReserveU32()
	w.U32(0)

	tbl.Ref(w.ReserveU32(), base, anim.DisplayName())
	if anim.SourcePath != "" {
		tbl.Ref(w.ReserveU32(), base, anim.SourcePath)
	} else {
		w.U32(0)
	}
	w.U16(anim.FrameDuration)
	w.U16(uint16(len(anim.Materials)))
	w.U32(uint32(anim.Transform))
	w.U32(uint32(anim.Wrap))

	w.PatchU32At(matOfsSite, uint32(w.Pos()-base))
	for i := range anim.Materials {
		mat := &anim.Materials[i]
		tbl.Ref(w.ReserveU32(), base, mat.Name)
		var enabled uint32
		for slot := uint8(0); slot < 8; slot++ {
			if _, ok := mat.Matrices[slot]; ok {
				enabled |= 1 << slot
			}
		}
		w.U32(enabled)
		for slot := uint8(0); slot < 8; slot++ {
			mtx, ok := mat.Matrices[slot]
			if !ok {
				continue
			}
			for _, tr := range mtx.tracks() {
				writeSrtTrack(w, tr)
			}
		}
	}
	w.PatchU32At(sizeSite, uint32(w.Pos()-base))
	return nil
}

func writeSrtTrack(w *stream.Writer, t *SrtTrack) {
	if t.Fixed {
		w.U16(1)
		w.U8(1)
		w.U8(0)
		w.F32(t.FixedValue)
		return
	}
	w.U16(uint16(len(t.Keys)))
	w.U8(0)
	w.U8(0)
	for _, k := range t.Keys {
		w.F32(k.Frame)
		w.F32(k.Value)
		w.F32(k.Tangent)
	}
}
