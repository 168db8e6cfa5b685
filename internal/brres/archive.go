// Package brres reads and writes Wii G3D resource archives. The outer
// container — header, nested radix dictionaries, shared name table — and
// the MDL0 model resource (named buffer, bone, material and mesh
// dictionaries) are fully modeled. Only the partially specified payloads
// stay verbatim: CHR0/CLR0/PAT0 animation bodies, TEX0 pixel data, and
// the TEV shader block inside each material. Identical sub-resource
// bodies are deduplicated by fingerprint on write.
package brres

import (
	"bytes"

	"github.com/cespare/xxhash/v2"

	"github.com/rvltools/rkit/internal/document"
)

// Section type keys, in emission order. These are the outer dictionary's
// entry names.
const (
	SectionModels   = "3DModels(NW4R)"
	SectionTextures = "Textures(NW4R)"
	SectionSrt      = "AnmTexSrt(NW4R)"
	SectionClr      = "AnmClr(NW4R)"
	SectionPat      = "AnmTexPat(NW4R)"
	SectionVis      = "AnmVis(NW4R)"
	SectionChr      = "AnmChr(NW4R)"
)

// Texture is one TEX0 resource: decoded dimensions plus the verbatim
// body.
type Texture struct {
	document.ObjectBase
	Width     uint16
	Height    uint16
	Format    uint32
	MipLevels uint32
	Data      []byte
}

func (t *Texture) CloneObject() document.Object {
	c := *t
	c.ObjectBase = t.CloneBase()
	c.Data = append([]byte(nil), t.Data...)
	return &c
}

func (t *Texture) EqualsObject(other document.Object) bool {
	o, ok := other.(*Texture)
	return ok && o.DisplayName() == t.DisplayName() && o.Width == t.Width &&
		o.Height == t.Height && o.Format == t.Format && o.MipLevels == t.MipLevels &&
		bytes.Equal(o.Data, t.Data)
}

// RawAnim is an animation resource preserved verbatim (CHR0, CLR0,
// PAT0): the layouts are only partially specified, so the bytes are the
// model.
type RawAnim struct {
	document.ObjectBase
	Data []byte
}

func (a *RawAnim) CloneObject() document.Object {
	return &RawAnim{ObjectBase: a.CloneBase(), Data: append([]byte(nil), a.Data...)}
}

func (a *RawAnim) EqualsObject(other document.Object) bool {
	o, ok := other.(*RawAnim)
	return ok && o.DisplayName() == a.DisplayName() && bytes.Equal(o.Data, a.Data)
}

// Archive is the BRRES document root.
type Archive struct {
	document.Collection

	Models   *document.TypedFolder[*Model]
	Textures *document.TypedFolder[*Texture]
	SrtAnims *document.TypedFolder[*SrtAnim]
	ClrAnims *document.TypedFolder[*RawAnim]
	PatAnims *document.TypedFolder[*RawAnim]
	VisAnims *document.TypedFolder[*VisAnim]
	ChrAnims *document.TypedFolder[*RawAnim]
}

// NewArchive builds an empty BRRES document.
func NewArchive() *Archive {
	a := &Archive{
		Models:   document.NewFolder(SectionModels, func() *Model { return &Model{} }),
		Textures: document.NewFolder(SectionTextures, func() *Texture { return &Texture{} }),
		SrtAnims: document.NewFolder(SectionSrt, func() *SrtAnim { return &SrtAnim{} }),
		ClrAnims: document.NewFolder(SectionClr, func() *RawAnim { return &RawAnim{} }),
		PatAnims: document.NewFolder(SectionPat, func() *RawAnim { return &RawAnim{} }),
		VisAnims: document.NewFolder(SectionVis, func() *VisAnim { return &VisAnim{} }),
		ChrAnims: document.NewFolder(SectionChr, func() *RawAnim { return &RawAnim{} }),
	}
	a.RegisterFolder(a.Models)
	a.RegisterFolder(a.Textures)
	a.RegisterFolder(a.SrtAnims)
	a.RegisterFolder(a.ClrAnims)
	a.RegisterFolder(a.PatAnims)
	a.RegisterFolder(a.VisAnims)
	a.RegisterFolder(a.ChrAnims)
	return a
}

// fingerprint keys a serialized resource body for write-time dedup:
// xxhash for the fast path, full equality confirmed by the caller before
// sharing.
func fingerprint(body []byte) uint64 {
	return xxhash.Sum64(body)
}
