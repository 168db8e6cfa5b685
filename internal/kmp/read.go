package kmp

import (
	"github.com/rvltools/rkit/internal/rerr"
	"github.com/rvltools/rkit/internal/stream"
)

// Magic identifies a course-parameter file.
const Magic = "RKMD"

var sectionOrder = [...]string{
	"KTPT", "ENPT", "ENPH", "ITPT", "ITPH", "CKPT", "CKPH",
	"GOBJ", "POTI", "AREA", "CAME", "JGPT", "CNPT", "MSPT", "STGI",
}

const headerSize = 0x10 + 4*len(sectionOrder)

func readVec3(r *stream.Reader) (Vec3, error) {
	x, err := r.F32()
	if err != nil {
		return Vec3{}, err
	}
	y, err := r.F32()
	if err != nil {
		return Vec3{}, err
	}
	z, err := r.F32()
	if err != nil {
		return Vec3{}, err
	}
	return Vec3{x, y, z}, nil
}

type sectionHeader struct {
	count uint16
	extra uint16
}

func readSectionHeader(r *stream.Reader, magic string) (sectionHeader, error) {
	if err := r.Magic(magic); err != nil {
		return sectionHeader{}, err
	}
	count, err := r.U16()
	if err != nil {
		return sectionHeader{}, err
	}
	extra, err := r.U16()
	if err != nil {
		return sectionHeader{}, err
	}
	return sectionHeader{count: count, extra: extra}, nil
}

// Read parses a KMP binary into a course document.
func Read(data []byte) (*CourseMap, error) {
	r := stream.NewReader(data)
	r.SetSite("kmp")
	if err := r.Magic(Magic); err != nil {
		return nil, err
	}
	if _, err := r.U32(); err != nil { // file size
		return nil, err
	}
	numSections, err := r.U16()
	if err != nil {
		return nil, err
	}
	if int(numSections) != len(sectionOrder) {
		return nil, rerr.Malformedf("kmp", "expected %d sections, header names %d", len(sectionOrder), numSections)
	}
	hdrSize, err := r.U16()
	if err != nil {
		return nil, err
	}
	m := NewCourseMap()
	if m.Revision, err = r.U32(); err != nil {
		return nil, err
	}
	offsets, err := r.U32Array(len(sectionOrder))
	if err != nil {
		return nil, err
	}

	for i, magic := range sectionOrder {
		if err := r.SeekTo(int(hdrSize) + int(offsets[i])); err != nil {
			return nil, rerr.Malformedf("kmp", "section %s offset out of file", magic).Wrap(err)
		}
		hdr, err := readSectionHeader(r, magic)
		if err != nil {
			return nil, err
		}
		m.Extras[i] = hdr.extra
		if err := readSection(r, m, i, hdr); err != nil {
			return nil, err
		}
	}
	m.FirstIntroCam = uint8(m.Extras[10] >> 8)
	m.CameExtra = uint8(m.Extras[10])
	return m, nil
}

func readSection(r *stream.Reader, m *CourseMap, section int, hdr sectionHeader) error {
	n := int(hdr.count)
	switch sectionOrder[section] {
	case "KTPT":
		for i := 0; i < n; i++ {
			p := &StartPoint{}
			var err error
			if p.Position, err = readVec3(r); err != nil {
				return err
			}
			if p.Rotation, err = readVec3(r); err != nil {
				return err
			}
			if p.PlayerIndex, err = r.S16(); err != nil {
				return err
			}
			if p.Pad, err = r.U16(); err != nil {
				return err
			}
			m.StartPoints.Add(p)
		}
	case "ENPT":
		m.scratchEnemy = make([]EnemyPoint, n)
		for i := range m.scratchEnemy {
			p := &m.scratchEnemy[i]
			var err error
			if p.Position, err = readVec3(r); err != nil {
				return err
			}
			if p.Range, err = r.F32(); err != nil {
				return err
			}
			if p.Param1, err = r.U16(); err != nil {
				return err
			}
			if p.Param2, err = r.U8(); err != nil {
				return err
			}
			if p.Param3, err = r.U8(); err != nil {
				return err
			}
		}
	case "ENPH":
		for i := 0; i < n; i++ {
			path := &EnemyPath{}
			pts, err := readPathHeader(r, len(m.scratchEnemy), &path.Prev, &path.Next, &path.Pad)
			if err != nil {
				return err
			}
			path.Points = append(path.Points, m.scratchEnemy[pts[0]:pts[1]]...)
			m.EnemyPaths.Add(path)
		}
	case "ITPT":
		m.scratchItem = make([]ItemPoint, n)
		for i := range m.scratchItem {
			p := &m.scratchItem[i]
			var err error
			if p.Position, err = readVec3(r); err != nil {
				return err
			}
			if p.Range, err = r.F32(); err != nil {
				return err
			}
			if p.Param1, err = r.U16(); err != nil {
				return err
			}
			if p.Param2, err = r.U16(); err != nil {
				return err
			}
		}
	case "ITPH":
		for i := 0; i < n; i++ {
			path := &ItemPath{}
			pts, err := readPathHeader(r, len(m.scratchItem), &path.Prev, &path.Next, &path.Pad)
			if err != nil {
				return err
			}
			path.Points = append(path.Points, m.scratchItem[pts[0]:pts[1]]...)
			m.ItemPaths.Add(path)
		}
	case "CKPT":
		m.scratchCheck = make([]CheckPoint, n)
		for i := range m.scratchCheck {
			p := &m.scratchCheck[i]
			var err error
			if p.LeftX, err = r.F32(); err != nil {
				return err
			}
			if p.LeftZ, err = r.F32(); err != nil {
				return err
			}
			if p.RightX, err = r.F32(); err != nil {
				return err
			}
			if p.RightZ, err = r.F32(); err != nil {
				return err
			}
			if p.RespawnIndex, err = r.U8(); err != nil {
				return err
			}
			if p.Type, err = r.U8(); err != nil {
				return err
			}
			if p.Prev, err = r.U8(); err != nil {
				return err
			}
			if p.Next, err = r.U8(); err != nil {
				return err
			}
		}
	case "CKPH":
		for i := 0; i < n; i++ {
			path := &CheckPath{}
			pts, err := readPathHeader(r, len(m.scratchCheck), &path.Prev, &path.Next, &path.Pad)
			if err != nil {
				return err
			}
			path.Points = append(path.Points, m.scratchCheck[pts[0]:pts[1]]...)
			m.CheckPaths.Add(path)
		}
	case "GOBJ":
		for i := 0; i < n; i++ {
			g := &GeoObj{}
			var err error
			if g.ObjectID, err = r.U16(); err != nil {
				return err
			}
			if g.ExtraFlags, err = r.U16(); err != nil {
				return err
			}
			if g.Position, err = readVec3(r); err != nil {
				return err
			}
			if g.Rotation, err = readVec3(r); err != nil {
				return err
			}
			if g.Scale, err = readVec3(r); err != nil {
				return err
			}
			if g.RailID, err = r.U16(); err != nil {
				return err
			}
			for s := range g.Settings {
				if g.Settings[s], err = r.U16(); err != nil {
					return err
				}
			}
			if g.PresenceFlags, err = r.U16(); err != nil {
				return err
			}
			m.GeoObjs.Add(g)
		}
	case "POTI":
		for i := 0; i < n; i++ {
			rail := &Rail{}
			count, err := r.U16()
			if err != nil {
				return err
			}
			smooth, err := r.U8()
			if err != nil {
				return err
			}
			cyclic, err := r.U8()
			if err != nil {
				return err
			}
			rail.Interpolated = smooth != 0
			rail.Cyclic = cyclic != 0
			rail.Points = make([]RailPoint, count)
			for j := range rail.Points {
				p := &rail.Points[j]
				if p.Position, err = readVec3(r); err != nil {
					return err
				}
				if p.Param1, err = r.U16(); err != nil {
					return err
				}
				if p.Param2, err = r.U16(); err != nil {
					return err
				}
			}
			m.Rails.Add(rail)
		}
	case "AREA":
		for i := 0; i < n; i++ {
			a := NewArea()
			shape, err := r.U8()
			if err != nil {
				return err
			}
			typ, err := r.U8()
			if err != nil {
				return err
			}
			a.Shape = AreaShape(shape)
			a.Type = AreaType(typ)
			if a.Type > AreaBoundary {
				return rerr.Malformedf("kmp/area", "unknown area type %d", typ).At(r.Pos() - 1)
			}
			cam, err := r.S8()
			if err != nil {
				return err
			}
			a.CameraIndex = cam
			prio, err := r.U8()
			if err != nil {
				return err
			}
			a.SetRawPriority(prio)
			if a.Position, err = readVec3(r); err != nil {
				return err
			}
			if a.Rotation, err = readVec3(r); err != nil {
				return err
			}
			if a.Scale, err = readVec3(r); err != nil {
				return err
			}
			if a.Params[0], err = r.U16(); err != nil {
				return err
			}
			if a.Params[1], err = r.U16(); err != nil {
				return err
			}
			if a.RailID, err = r.U8(); err != nil {
				return err
			}
			if a.EnemyLinkID, err = r.U8(); err != nil {
				return err
			}
			if a.Pad[0], err = r.U8(); err != nil {
				return err
			}
			if a.Pad[1], err = r.U8(); err != nil {
				return err
			}
			a.SetDisplayName(a.Type.String())
			m.Areas.Add(a)
		}
	case "CAME":
		for i := 0; i < n; i++ {
			c := &Camera{}
			var err error
			if c.Type, err = r.U8(); err != nil {
				return err
			}
			if c.Next, err = r.U8(); err != nil {
				return err
			}
			if c.Shake, err = r.U8(); err != nil {
				return err
			}
			if c.RailID, err = r.U8(); err != nil {
				return err
			}
			if c.PointVelocity, err = r.U16(); err != nil {
				return err
			}
			if c.ZoomVelocity, err = r.U16(); err != nil {
				return err
			}
			if c.ViewVelocity, err = r.U16(); err != nil {
				return err
			}
			if c.Start, err = r.U8(); err != nil {
				return err
			}
			if c.Movie, err = r.U8(); err != nil {
				return err
			}
			if c.Position, err = readVec3(r); err != nil {
				return err
			}
			if c.Rotation, err = readVec3(r); err != nil {
				return err
			}
			if c.ZoomStart, err = r.F32(); err != nil {
				return err
			}
			if c.ZoomEnd, err = r.F32(); err != nil {
				return err
			}
			if c.ViewStart, err = readVec3(r); err != nil {
				return err
			}
			if c.ViewEnd, err = readVec3(r); err != nil {
				return err
			}
			if c.Time, err = r.F32(); err != nil {
				return err
			}
			m.Cameras.Add(c)
		}
	case "JGPT":
		for i := 0; i < n; i++ {
			p := &RespawnPoint{}
			var err error
			if p.Position, err = readVec3(r); err != nil {
				return err
			}
			if p.Rotation, err = readVec3(r); err != nil {
				return err
			}
			if p.ID, err = r.U16(); err != nil {
				return err
			}
			if p.Range, err = r.S16(); err != nil {
				return err
			}
			m.RespawnPoints.Add(p)
		}
	case "CNPT":
		for i := 0; i < n; i++ {
			p := &CannonPoint{}
			var err error
			if p.Position, err = readVec3(r); err != nil {
				return err
			}
			if p.Rotation, err = readVec3(r); err != nil {
				return err
			}
			if p.ID, err = r.U16(); err != nil {
				return err
			}
			if p.Effect, err = r.S16(); err != nil {
				return err
			}
			m.CannonPoints.Add(p)
		}
	case "MSPT":
		for i := 0; i < n; i++ {
			p := &MissionPoint{}
			var err error
			if p.Position, err = readVec3(r); err != nil {
				return err
			}
			if p.Rotation, err = readVec3(r); err != nil {
				return err
			}
			if p.ID, err = r.U16(); err != nil {
				return err
			}
			if p.Unknown, err = r.U16(); err != nil {
				return err
			}
			m.MissionPoints.Add(p)
		}
	case "STGI":
		for i := 0; i < n; i++ {
			s := &Stage{}
			var err error
			if s.LapCount, err = r.U8(); err != nil {
				return err
			}
			if s.PolePosition, err = r.U8(); err != nil {
				return err
			}
			if s.NarrowDistance, err = r.U8(); err != nil {
				return err
			}
			if s.FlareTobi, err = r.U8(); err != nil {
				return err
			}
			if s.FlareColor, err = r.U32(); err != nil {
				return err
			}
			if s.Pad, err = r.U8(); err != nil {
				return err
			}
			if s.SpeedMod, err = r.U16(); err != nil {
				return err
			}
			if s.Pad2, err = r.U8(); err != nil {
				return err
			}
			m.Stages.Add(s)
		}
	}
	return nil
}

// readPathHeader parses one ENPH/ITPH/CKPH record and returns the
// [start, end) range it claims in the flat point array.
func readPathHeader(r *stream.Reader, total int, prev, next *[6]uint8, pad *uint16) ([2]int, error) {
	start, err := r.U8()
	if err != nil {
		return [2]int{}, err
	}
	length, err := r.U8()
	if err != nil {
		return [2]int{}, err
	}
	for i := 0; i < 6; i++ {
		if prev[i], err = r.U8(); err != nil {
			return [2]int{}, err
		}
	}
	for i := 0; i < 6; i++ {
		if next[i], err = r.U8(); err != nil {
			return [2]int{}, err
		}
	}
	if *pad, err = r.U16(); err != nil {
		return [2]int{}, err
	}
	end := int(start) + int(length)
	if end > total {
		return [2]int{}, rerr.Malformedf("kmp/path", "path claims points [%d,%d) of %d", start, end, total)
	}
	return [2]int{int(start), end}, nil
}
