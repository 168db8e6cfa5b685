// Package codecs registers every format codec with a registry value.
// Each adapter pairs a magic/extension matcher with the format package's
// document factory, reader and writer.
package codecs

import (
	"github.com/rvltools/rkit/internal/archive"
	"github.com/rvltools/rkit/internal/bmd"
	"github.com/rvltools/rkit/internal/brres"
	"github.com/rvltools/rkit/internal/document"
	"github.com/rvltools/rkit/internal/egg"
	"github.com/rvltools/rkit/internal/kcl"
	"github.com/rvltools/rkit/internal/kmp"
	"github.com/rvltools/rkit/internal/registry"
	"github.com/rvltools/rkit/internal/szs"
)

// DefaultRegistry returns a registry with every built-in codec
// registered. Magic-carrying formats come first so magic dispatch never
// falls through to an extension guess.
func DefaultRegistry() *registry.Registry {
	r := registry.New()
	r.Register(&bmdCodec{})
	r.Register(&brresCodec{})
	r.Register(&kmpCodec{})
	r.Register(&szsCodec{})
	r.Register(&u8Codec{})
	r.Register(&rarcCodec{})
	r.Register(&blightCodec{})
	r.Register(&blmapCodec{})
	r.Register(&bdofCodec{})
	r.Register(&bblmCodec{})
	r.Register(&bfgCodec{})
	r.Register(&kclCodec{})
	return r
}

// ValueDocument adapts a plain parsed value (a decompressed payload, an
// archive tree, an EGG blob) to the document interface. It exposes no
// folders; the value is the document.
type ValueDocument[T any] struct {
	document.Collection
	Value T
}

func hasMagic(data []byte, magic string) bool {
	return len(data) >= len(magic) && string(data[:len(magic)]) == magic
}

func forwardWarnings(tx *registry.Transaction, domain string, warnings []string) {
	for _, w := range warnings {
		tx.Report(registry.Warning, domain, w)
	}
}

type bmdCodec struct{}

func (bmdCodec) ID() string                    { return "bmd" }
func (bmdCodec) Extensions() []string          { return []string{"bmd", "bdl"} }
func (bmdCodec) MatchesMagic(data []byte) bool { return hasMagic(data, "J3D2") }
func (bmdCodec) NewDocument() document.Node    { return bmd.New() }

func (bmdCodec) Read(tx *registry.Transaction, doc document.Node, data []byte) error {
	m, err := bmd.Read(data)
	if err != nil {
		return err
	}
	forwardWarnings(tx, "bmd", m.Warnings)
	d := doc.(*bmd.Model)
	*d = *m
	d.Rebind()
	return nil
}

func (bmdCodec) Write(tx *registry.Transaction, doc document.Node) ([]byte, error) {
	return bmd.Write(doc.(*bmd.Model))
}

type brresCodec struct{}

func (brresCodec) ID() string                    { return "brres" }
func (brresCodec) Extensions() []string          { return []string{"brres"} }
func (brresCodec) MatchesMagic(data []byte) bool { return hasMagic(data, brres.Magic) }
func (brresCodec) NewDocument() document.Node    { return brres.NewArchive() }

func (brresCodec) Read(tx *registry.Transaction, doc document.Node, data []byte) error {
	a, err := brres.Read(data)
	if err != nil {
		return err
	}
	d := doc.(*brres.Archive)
	*d = *a
	d.Rebind()
	return nil
}

func (brresCodec) Write(tx *registry.Transaction, doc document.Node) ([]byte, error) {
	return doc.(*brres.Archive).Write()
}

type kmpCodec struct{}

func (kmpCodec) ID() string                    { return "kmp" }
func (kmpCodec) Extensions() []string          { return []string{"kmp"} }
func (kmpCodec) MatchesMagic(data []byte) bool { return hasMagic(data, kmp.Magic) }
func (kmpCodec) NewDocument() document.Node    { return kmp.NewCourseMap() }

func (kmpCodec) Read(tx *registry.Transaction, doc document.Node, data []byte) error {
	m, err := kmp.Read(data)
	if err != nil {
		return err
	}
	d := doc.(*kmp.CourseMap)
	*d = *m
	d.Rebind()
	return nil
}

func (kmpCodec) Write(tx *registry.Transaction, doc document.Node) ([]byte, error) {
	return kmp.Write(doc.(*kmp.CourseMap))
}

// SzsDocument is a decompressed Yaz0 payload.
type SzsDocument = ValueDocument[[]byte]

type szsCodec struct{}

func (szsCodec) ID() string                    { return "szs" }
func (szsCodec) Extensions() []string          { return []string{"szs"} }
func (szsCodec) MatchesMagic(data []byte) bool { return szs.IsCompressed(data) }
func (szsCodec) NewDocument() document.Node    { return &SzsDocument{} }

func (szsCodec) Read(tx *registry.Transaction, doc document.Node, data []byte) error {
	payload, err := szs.Decode(data)
	if err != nil {
		return err
	}
	doc.(*SzsDocument).Value = payload
	return nil
}

func (szsCodec) Write(tx *registry.Transaction, doc document.Node) ([]byte, error) {
	return szs.Encode(doc.(*SzsDocument).Value), nil
}

// ArchiveDocument is a U8 or RARC filesystem tree.
type ArchiveDocument = ValueDocument[*archive.FS]

type u8Codec struct{}

func (u8Codec) ID() string                    { return "u8" }
func (u8Codec) Extensions() []string          { return []string{"arc", "u8"} }
func (u8Codec) MatchesMagic(data []byte) bool { return archive.IsU8(data) }
func (u8Codec) NewDocument() document.Node    { return &ArchiveDocument{Value: archive.NewFS()} }

func (u8Codec) Read(tx *registry.Transaction, doc document.Node, data []byte) error {
	fs, err := archive.ReadU8(data)
	if err != nil {
		return err
	}
	doc.(*ArchiveDocument).Value = fs
	return nil
}

func (u8Codec) Write(tx *registry.Transaction, doc document.Node) ([]byte, error) {
	return archive.WriteU8(doc.(*ArchiveDocument).Value)
}

type rarcCodec struct{}

func (rarcCodec) ID() string                    { return "rarc" }
func (rarcCodec) Extensions() []string          { return []string{"rarc"} }
func (rarcCodec) MatchesMagic(data []byte) bool { return archive.IsRARC(data) }
func (rarcCodec) NewDocument() document.Node    { return &ArchiveDocument{Value: archive.NewFS()} }

func (rarcCodec) Read(tx *registry.Transaction, doc document.Node, data []byte) error {
	fs, err := archive.ReadRARC(data)
	if err != nil {
		return err
	}
	doc.(*ArchiveDocument).Value = fs
	return nil
}

func (rarcCodec) Write(tx *registry.Transaction, doc document.Node) ([]byte, error) {
	return archive.WriteRARC(doc.(*ArchiveDocument).Value)
}

// BlightDocument wraps the EGG light manager blob.
type BlightDocument = ValueDocument[*egg.Blight]

type blightCodec struct{}

func (blightCodec) ID() string                    { return "blight" }
func (blightCodec) Extensions() []string          { return []string{"blight"} }
func (blightCodec) MatchesMagic(data []byte) bool { return hasMagic(data, "LGHT") }
func (blightCodec) NewDocument() document.Node {
	return &BlightDocument{Value: &egg.Blight{Version: 2}}
}

func (blightCodec) Read(tx *registry.Transaction, doc document.Node, data []byte) error {
	b, err := egg.ReadBlight(data)
	if err != nil {
		return err
	}
	doc.(*BlightDocument).Value = b
	return nil
}

func (blightCodec) Write(tx *registry.Transaction, doc document.Node) ([]byte, error) {
	return egg.WriteBlight(doc.(*BlightDocument).Value), nil
}

// BlmapDocument wraps the EGG light-map blob.
type BlmapDocument = ValueDocument[*egg.Blmap]

type blmapCodec struct{}

func (blmapCodec) ID() string                    { return "blmap" }
func (blmapCodec) Extensions() []string          { return []string{"blmap"} }
func (blmapCodec) MatchesMagic(data []byte) bool { return hasMagic(data, "LMAP") }
func (blmapCodec) NewDocument() document.Node    { return &BlmapDocument{Value: &egg.Blmap{}} }

func (blmapCodec) Read(tx *registry.Transaction, doc document.Node, data []byte) error {
	b, err := egg.ReadBlmap(data)
	if err != nil {
		return err
	}
	doc.(*BlmapDocument).Value = b
	return nil
}

func (blmapCodec) Write(tx *registry.Transaction, doc document.Node) ([]byte, error) {
	return egg.WriteBlmap(doc.(*BlmapDocument).Value)
}

// BdofDocument wraps the depth-of-field blob.
type BdofDocument = ValueDocument[*egg.Bdof]

type bdofCodec struct{}

func (bdofCodec) ID() string                    { return "bdof" }
func (bdofCodec) Extensions() []string          { return []string{"bdof"} }
func (bdofCodec) MatchesMagic(data []byte) bool { return hasMagic(data, "PDOF") }
func (bdofCodec) NewDocument() document.Node    { return &BdofDocument{Value: &egg.Bdof{}} }

func (bdofCodec) Read(tx *registry.Transaction, doc document.Node, data []byte) error {
	d, err := egg.ReadBdof(data)
	if err != nil {
		return err
	}
	doc.(*BdofDocument).Value = d
	return nil
}

func (bdofCodec) Write(tx *registry.Transaction, doc document.Node) ([]byte, error) {
	return egg.WriteBdof(doc.(*BdofDocument).Value), nil
}

// BblmDocument wraps the bloom blob.
type BblmDocument = ValueDocument[*egg.Bblm]

type bblmCodec struct{}

func (bblmCodec) ID() string                    { return "bblm" }
func (bblmCodec) Extensions() []string          { return []string{"bblm"} }
func (bblmCodec) MatchesMagic(data []byte) bool { return hasMagic(data, "PBLM") }
func (bblmCodec) NewDocument() document.Node    { return &BblmDocument{Value: &egg.Bblm{}} }

func (bblmCodec) Read(tx *registry.Transaction, doc document.Node, data []byte) error {
	b, err := egg.ReadBblm(data)
	if err != nil {
		return err
	}
	doc.(*BblmDocument).Value = b
	return nil
}

func (bblmCodec) Write(tx *registry.Transaction, doc document.Node) ([]byte, error) {
	return egg.WriteBblm(doc.(*BblmDocument).Value), nil
}

// BfgDocument wraps the fog blob.
type BfgDocument = ValueDocument[*egg.Bfg]

type bfgCodec struct{}

func (bfgCodec) ID() string                    { return "bfg" }
func (bfgCodec) Extensions() []string          { return []string{"bfg"} }
func (bfgCodec) MatchesMagic(data []byte) bool { return hasMagic(data, "FOGM") }
func (bfgCodec) NewDocument() document.Node    { return &BfgDocument{Value: &egg.Bfg{}} }

func (bfgCodec) Read(tx *registry.Transaction, doc document.Node, data []byte) error {
	b, err := egg.ReadBfg(data)
	if err != nil {
		return err
	}
	doc.(*BfgDocument).Value = b
	return nil
}

func (bfgCodec) Write(tx *registry.Transaction, doc document.Node) ([]byte, error) {
	return egg.WriteBfg(doc.(*BfgDocument).Value), nil
}

// KclDocument wraps a collision model.
type KclDocument = ValueDocument[*kcl.Model]

type kclCodec struct{}

func (kclCodec) ID() string                    { return "kcl" }
func (kclCodec) Extensions() []string          { return []string{"kcl"} }
func (kclCodec) MatchesMagic(data []byte) bool { return false } // KCL has no magic; extension only
func (kclCodec) NewDocument() document.Node    { return &KclDocument{Value: &kcl.Model{}} }

func (kclCodec) Read(tx *registry.Transaction, doc document.Node, data []byte) error {
	m, err := kcl.Read(data)
	if err != nil {
		return err
	}
	doc.(*KclDocument).Value = m
	return nil
}

func (kclCodec) Write(tx *registry.Transaction, doc document.Node) ([]byte, error) {
	return kcl.Write(doc.(*KclDocument).Value), nil
}
