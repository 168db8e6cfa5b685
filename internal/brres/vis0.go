package brres

import (
	"strconv"

	"github.com/rvltools/rkit/internal/document"
	"github.com/rvltools/rkit/internal/names"
	"github.com/rvltools/rkit/internal/rerr"
	"github.com/rvltools/rkit/internal/stream"
)

// WrapMode is an animation's end-of-track behavior.
type WrapMode uint32

const (
	WrapClamp WrapMode = iota
	WrapRepeat
)

// VIS0 bone flags.
const (
	visConstantValue = 1 << 0
	visConstant      = 1 << 1
)

// VisBone is one bone's visibility track: either a constant or one bit
// per frame packed into u32 words.
type VisBone struct {
	Name     string
	Constant bool
	// ConstantVisible is the value when Constant is set.
	ConstantVisible bool
	// Keyframes pack one bit per frame, ceil((duration+1)/32) words.
	Keyframes []uint32
}

// WordsFor returns the packed word count a non-constant track needs for
// a frame duration.
func WordsFor(frameDuration uint16) int {
	return (int(frameDuration) + 1 + 31) / 32
}

// VisAnim is one VIS0 resource.
type VisAnim struct {
	document.ObjectBase
	SourcePath    string
	FrameDuration uint16
	Wrap          WrapMode
	Bones         []VisBone
}

func (v *VisAnim) CloneObject() document.Object {
	c := *v
	c.ObjectBase = v.CloneBase()
	c.Bones = make([]VisBone, len(v.Bones))
	for i, b := range v.Bones {
		c.Bones[i] = b
		c.Bones[i].Keyframes = append([]uint32(nil), b.Keyframes...)
	}
	return &c
}

func (v *VisAnim) EqualsObject(other document.Object) bool {
	o, ok := other.(*VisAnim)
	if !ok || o.DisplayName() != v.DisplayName() || o.SourcePath != v.SourcePath ||
		o.FrameDuration != v.FrameDuration || o.Wrap != v.Wrap || len(o.Bones) != len(v.Bones) {
		return false
	}
	for i := range v.Bones {
		a, b := &v.Bones[i], &o.Bones[i]
		if a.Name != b.Name || a.Constant != b.Constant ||
			a.ConstantVisible != b.ConstantVisible || len(a.Keyframes) != len(b.Keyframes) {
			return false
		}
		for k := range a.Keyframes {
			if a.Keyframes[k] != b.Keyframes[k] {
				return false
			}
		}
	}
	return true
}

const vis0Version = 4

// readVIS0 parses one VIS0 sub-file starting at base.
func readVIS0(r *stream.Reader, base int) (*VisAnim, error) {
	r.SetSite("brres/vis0")
	if err := r.SeekTo(base); err != nil {
		return nil, err
	}
	if err := r.Magic("VIS0"); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // sub-file size
		return nil, err
	}
	ver, err := r.U32()
	if err != nil {
		return nil, err
	}
	if ver != vis0Version {
		return nil, &rerr.VersionError{Site: "brres/vis0", Got: "VIS0 v" + strconv.Itoa(int(ver))}
	}
	if _, err := r.S32(); err != nil { // offset back to the archive
		return nil, err
	}
	boneDataOfs, err := r.S32()
	if err != nil {
		return nil, err
	}
	if _, err := r.S32(); err != nil { // user data
		return nil, err
	}

	anim := &VisAnim{}
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
	boneCount, err := r.U16()
	if err != nil {
		return nil, err
	}
	wrap, err := r.U32()
	if err != nil {
		return nil, err
	}
	anim.Wrap = WrapMode(wrap)

	// Bone records follow at the bone-data offset: name ref, flags, and
	// for non-constant tracks the packed keyframe words.
	if err := r.SeekTo(base + int(boneDataOfs)); err != nil {
		return nil, err
	}
	words := WordsFor(anim.FrameDuration)
	for i := 0; i < int(boneCount); i++ {
		var bone VisBone
		bnOfs, err := r.U32()
		if err != nil {
			return nil, err
		}
		if bone.Name, err = r.CStringAt(base + int(bnOfs)); err != nil {
			return nil, err
		}
		flags, err := r.U32()
		if err != nil {
			return nil, err
		}
		bone.Constant = flags&visConstant != 0
		bone.ConstantVisible = flags&visConstantValue != 0
		if !bone.Constant {
			if bone.Keyframes, err = r.U32Array(words); err != nil {
				return nil, err
			}
		}
		anim.Bones = append(anim.Bones, bone)
	}
	return anim, nil
}

// writeVIS0 serializes one VIS0 sub-file at the current position; name
// references are routed through the archive's shared table.
func writeVIS0(w *stream.Writer, anim *VisAnim, tbl *names.Table) error {
	base := w.Pos()
	w.Magic("VIS0")
	sizeSite := w.ReserveU32()
	w.U32(vis0Version)
	w.S32(0) // archive back-reference, written as zero
	boneOfsSite := w.ReserveU32()
	w.U32(0) // no user data

	tbl.Ref(w.ReserveU32(), base, anim.DisplayName())
	if anim.SourcePath != "" {
		tbl.Ref(w.ReserveU32(), base, anim.SourcePath)
	} else {
		w.U32(0)
	}
	w.U16(anim.FrameDuration)
	w.U16(uint16(len(anim.Bones)))
	w.U32(uint32(anim.Wrap))

	w.PatchU32At(boneOfsSite, uint32(w.Pos()-base))
	words := WordsFor(anim.FrameDuration)
	for i := range anim.Bones {
		bone := &anim.Bones[i]
		tbl.Ref(w.ReserveU32(), base, bone.Name)
		var flags uint32
		if bone.Constant {
			flags |= visConstant
			if bone.ConstantVisible {
				flags |= visConstantValue
			}
		}
		w.U32(flags)
		if !bone.Constant {
			if len(bone.Keyframes) != words {
				return rerr.Invariantf("vis0 bone %q has %d words, duration needs %d",
					bone.Name, len(bone.Keyframes), words)
			}
			for _, kf := range bone.Keyframes {
				w.U32(kf)
			}
		}
	}
	w.PatchU32At(sizeSite, uint32(w.Pos()-base))
	return nil
}
