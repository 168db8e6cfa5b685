package brres

import (
	"github.com/rvltools/rkit/internal/names"
	"github.com/rvltools/rkit/internal/rerr"
	"github.com/rvltools/rkit/internal/stream"
)

const (
	tex0Version    = 3
	tex0HeaderSize = 0x40
)

func readTEX0(r *stream.Reader, base int) (*Texture, error) {
	r.SetSite("brres/tex0")
	if err := r.SeekTo(base); err != nil {
		return nil, err
	}
	if err := r.Magic("TEX0"); err != nil {
		return nil, err
	}
	size, err := r.U32()
	if err != nil {
		return nil, err
	}
	if int(size) < tex0HeaderSize {
		return nil, rerr.Malformedf("brres/tex0", "sub-file size %d below header size", size)
	}
	ver, err := r.U32()
	if err != nil {
		return nil, err
	}
	if ver != tex0Version {
		return nil, &rerr.VersionError{Site: "brres/tex0", Got: "TEX0"}
	}
	if _, err := r.S32(); err != nil { // archive back-reference
		return nil, err
	}
	dataOfs, err := r.U32()
	if err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // name, decoded from the dictionary
		return nil, err
	}
	if _, err := r.U32(); err != nil { // palette flag
		return nil, err
	}
	tex := &Texture{}
	if tex.Width, err = r.U16(); err != nil {
		return nil, err
	}
	if tex.Height, err = r.U16(); err != nil {
		return nil, err
	}
	if tex.Format, err = r.U32(); err != nil {
		return nil, err
	}
	if tex.MipLevels, err = r.U32(); err != nil {
		return nil, err
	}

	if dataOfs < tex0HeaderSize || int(dataOfs) > int(size) {
		return nil, rerr.Malformedf("brres/tex0", "data offset 0x%x outside sub-file", dataOfs)
	}
	raw, err := r.SliceAt(base+int(dataOfs), int(size)-int(dataOfs))
	if err != nil {
		return nil, rerr.Malformed("brres/tex0", "pixel data exceeds archive").Wrap(err)
	}
	tex.Data = append([]byte(nil), raw...)
	return tex, nil
}

func writeTEX0(w *stream.Writer, tex *Texture, tbl *names.Table) error {
	base := w.Pos()
	w.Magic("TEX0")
	w.U32(uint32(tex0HeaderSize + len(tex.Data)))
	w.U32(tex0Version)
	w.S32(0)
	w.U32(tex0HeaderSize)
	tbl.Ref(w.ReserveU32(), base, tex.DisplayName())
	w.U32(0)
	w.U16(tex.Width)
	w.U16(tex.Height)
	w.U32(tex.Format)
	w.U32(tex.MipLevels)
	for w.Pos()-base < tex0HeaderSize {
		w.U8(0)
	}
	w.Bytes(tex.Data)
	return nil
}
