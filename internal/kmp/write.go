package kmp

import (
	"github.com/rvltools/rkit/internal/stream"
)

func writeVec3(w *stream.Writer, v Vec3) {
	w.F32(v.X)
	w.F32(v.Y)
	w.F32(v.Z)
}

// Write serializes the course document in the canonical section order.
func Write(m *CourseMap) ([]byte, error) {
	w := stream.NewWriter()
	w.Magic(Magic)
	sizeSite := w.ReserveU32()
	w.U16(uint16(len(sectionOrder)))
	w.U16(uint16(headerSize))
	w.U32(m.Revision)

	offsetSites := make([]int, len(sectionOrder))
	for i := range sectionOrder {
		offsetSites[i] = w.ReserveU32()
	}

	for i, magic := range sectionOrder {
		w.PatchU32At(offsetSites[i], uint32(w.Pos()-headerSize))
		writeSection(w, m, i, magic)
	}

	w.PatchU32At(sizeSite, uint32(w.Len()))
	return w.Finalize()
}

func (m *CourseMap) sectionExtra(section int) uint16 {
	switch sectionOrder[section] {
	case "POTI":
		total := 0
		for _, rail := range m.Rails.All() {
			total += len(rail.Points)
		}
		return uint16(total)
	case "CAME":
		return uint16(m.FirstIntroCam)<<8 | uint16(m.CameExtra)
	default:
		return m.Extras[section]
	}
}

func writeSection(w *stream.Writer, m *CourseMap, section int, magic string) {
	w.Magic(magic)
	countSite := w.ReserveU16()
	w.U16(m.sectionExtra(section))

	count := 0
	switch magic {
	case "KTPT":
		count = m.StartPoints.Len()
		for _, p := range m.StartPoints.All() {
			writeVec3(w, p.Position)
			writeVec3(w, p.Rotation)
			w.S16(p.PlayerIndex)
			w.U16(p.Pad)
		}
	case "ENPT":
		for _, path := range m.EnemyPaths.All() {
			count += len(path.Points)
			for _, p := range path.Points {
				writeVec3(w, p.Position)
				w.F32(p.Range)
				w.U16(p.Param1)
				w.U8(p.Param2)
				w.U8(p.Param3)
			}
		}
	case "ENPH":
		count = m.EnemyPaths.Len()
		start := 0
		for _, path := range m.EnemyPaths.All() {
			writePathHeader(w, start, len(path.Points), path.Prev, path.Next, path.Pad)
			start += len(path.Points)
		}
	case "ITPT":
		for _, path := range m.ItemPaths.All() {
			count += len(path.Points)
			for _, p := range path.Points {
				writeVec3(w, p.Position)
				w.F32(p.Range)
				w.U16(p.Param1)
				w.U16(p.Param2)
			}
		}
	case "ITPH":
		count = m.ItemPaths.Len()
		start := 0
		for _, path := range m.ItemPaths.All() {
			writePathHeader(w, start, len(path.Points), path.Prev, path.Next, path.Pad)
			start += len(path.Points)
		}
	case "CKPT":
		for _, path := range m.CheckPaths.All() {
			count += len(path.Points)
			for _, p := range path.Points {
				w.F32(p.LeftX)
				w.F32(p.LeftZ)
				w.F32(p.RightX)
				w.F32(p.RightZ)
				w.U8(p.RespawnIndex)
				w.U8(p.Type)
				w.U8(p.Prev)
				w.U8(p.Next)
			}
		}
	case "CKPH":
		count = m.CheckPaths.Len()
		start := 0
		for _, path := range m.CheckPaths.All() {
			writePathHeader(w, start, len(path.Points), path.Prev, path.Next, path.Pad)
			start += len(path.Points)
		}
	case "GOBJ":
		count = m.GeoObjs.Len()
		for _, g := range m.GeoObjs.All() {
			w.U16(g.ObjectID)
			w.U16(g.ExtraFlags)
			writeVec3(w, g.Position)
			writeVec3(w, g.Rotation)
			writeVec3(w, g.Scale)
			w.U16(g.RailID)
			for _, s := range g.Settings {
				w.U16(s)
			}
			w.U16(g.PresenceFlags)
		}
	case "POTI":
		count = m.Rails.Len()
		for _, rail := range m.Rails.All() {
			w.U16(uint16(len(rail.Points)))
			w.U8(boolByte(rail.Interpolated))
			w.U8(boolByte(rail.Cyclic))
			for _, p := range rail.Points {
				writeVec3(w, p.Position)
				w.U16(p.Param1)
				w.U16(p.Param2)
			}
		}
	case "AREA":
		count = m.Areas.Len()
		for _, a := range m.Areas.All() {
			w.U8(uint8(a.Shape))
			w.U8(uint8(a.Type))
			w.S8(a.CameraIndex)
			w.U8(a.RawPriority())
			writeVec3(w, a.Position)
			writeVec3(w, a.Rotation)
			writeVec3(w, a.Scale)
			w.U16(a.Params[0])
			w.U16(a.Params[1])
			w.U8(a.RailID)
			w.U8(a.EnemyLinkID)
			w.U8(a.Pad[0])
			w.U8(a.Pad[1])
		}
	case "CAME":
		count = m.Cameras.Len()
		for _, c := range m.Cameras.All() {
			w.U8(c.Type)
			w.U8(c.Next)
			w.U8(c.Shake)
			w.U8(c.RailID)
			w.U16(c.PointVelocity)
			w.U16(c.ZoomVelocity)
			w.U16(c.ViewVelocity)
			w.U8(c.Start)
			w.U8(c.Movie)
			writeVec3(w, c.Position)
			writeVec3(w, c.Rotation)
			w.F32(c.ZoomStart)
			w.F32(c.ZoomEnd)
			writeVec3(w, c.ViewStart)
			writeVec3(w, c.ViewEnd)
			w.F32(c.Time)
		}
	case "JGPT":
		count = m.RespawnPoints.Len()
		for _, p := range m.RespawnPoints.All() {
			writeVec3(w, p.Position)
			writeVec3(w, p.Rotation)
			w.U16(p.ID)
			w.S16(p.Range)
		}
	case "CNPT":
		count = m.CannonPoints.Len()
		for _, p := range m.CannonPoints.All() {
			writeVec3(w, p.Position)
			writeVec3(w, p.Rotation)
			w.U16(p.ID)
			w.S16(p.Effect)
		}
	case "MSPT":
		count = m.MissionPoints.Len()
		for _, p := range m.MissionPoints.All() {
			writeVec3(w, p.Position)
			writeVec3(w, p.Rotation)
			w.U16(p.ID)
			w.U16(p.Unknown)
		}
	case "STGI":
		count = m.Stages.Len()
		for _, s := range m.Stages.All() {
			w.U8(s.LapCount)
			w.U8(s.PolePosition)
			w.U8(s.NarrowDistance)
			w.U8(s.FlareTobi)
			w.U32(s.FlareColor)
			w.U8(s.Pad)
			w.U16(s.SpeedMod)
			w.U8(s.Pad2)
		}
	}
	w.PatchU16At(countSite, uint16(count))
}

func writePathHeader(w *stream.Writer, start, length int, prev, next [6]uint8, pad uint16) {
	w.U8(uint8(start))
	w.U8(uint8(length))
	for _, v := range prev {
		w.U8(v)
	}
	for _, v := range next {
		w.U8(v)
	}
	w.U16(pad)
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
