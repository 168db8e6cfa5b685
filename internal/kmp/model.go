// Package kmp reads and writes Mario Kart Wii course-parameter binaries.
// The document groups path points under their path headers, so the
// ENPH/ITPH/CKPH grouping sections are reconstructed on write.
package kmp

import (
	"github.com/rvltools/rkit/internal/document"
)

// Vec3 is a position, rotation or scale triple.
type Vec3 struct {
	X, Y, Z float32
}

// StartPoint is one KTPT record.
type StartPoint struct {
	document.ObjectBase
	Position    Vec3
	Rotation    Vec3
	PlayerIndex int16
	Pad         uint16
}

func (p *StartPoint) CloneObject() document.Object {
	c := *p
	c.ObjectBase = p.CloneBase()
	return &c
}

func (p *StartPoint) EqualsObject(other document.Object) bool {
	o, ok := other.(*StartPoint)
	return ok && o.Position == p.Position && o.Rotation == p.Rotation &&
		o.PlayerIndex == p.PlayerIndex && o.Pad == p.Pad
}

// EnemyPoint is one ENPT record.
type EnemyPoint struct {
	Position Vec3
	Range    float32
	Param1   uint16
	Param2   uint8
	Param3   uint8
}

// EnemyPath groups the ENPT records claimed by one ENPH header.
type EnemyPath struct {
	document.ObjectBase
	Points []EnemyPoint
	Prev   [6]uint8
	Next   [6]uint8
	Pad    uint16
}

func (p *EnemyPath) CloneObject() document.Object {
	c := *p
	c.ObjectBase = p.CloneBase()
	c.Points = append([]EnemyPoint(nil), p.Points...)
	return &c
}

func (p *EnemyPath) EqualsObject(other document.Object) bool {
	o, ok := other.(*EnemyPath)
	if !ok || o.Prev != p.Prev || o.Next != p.Next || o.Pad != p.Pad || len(o.Points) != len(p.Points) {
		return false
	}
	for i := range p.Points {
		if o.Points[i] != p.Points[i] {
			return false
		}
	}
	return true
}

// ItemPoint is one ITPT record.
type ItemPoint struct {
	Position Vec3
	Range    float32
	Param1   uint16
	Param2   uint16
}

// ItemPath groups the ITPT records claimed by one ITPH header.
type ItemPath struct {
	document.ObjectBase
	Points []ItemPoint
	Prev   [6]uint8
	Next   [6]uint8
	Pad    uint16
}

func (p *ItemPath) CloneObject() document.Object {
	c := *p
	c.ObjectBase = p.CloneBase()
	c.Points = append([]ItemPoint(nil), p.Points...)
	return &c
}

func (p *ItemPath) EqualsObject(other document.Object) bool {
	o, ok := other.(*ItemPath)
	if !ok || o.Prev != p.Prev || o.Next != p.Next || o.Pad != p.Pad || len(o.Points) != len(p.Points) {
		return false
	}
	for i := range p.Points {
		if o.Points[i] != p.Points[i] {
			return false
		}
	}
	return true
}

// CheckPoint is one CKPT record. Type 0x00 marks the lap line; 0xFF is an
// ordinary checkpoint; other values are key checkpoints.
type CheckPoint struct {
	LeftX, LeftZ   float32
	RightX, RightZ float32
	RespawnIndex   uint8
	Type           uint8
	Prev           uint8
	Next           uint8
}

// CheckPath groups the CKPT records claimed by one CKPH header.
type CheckPath struct {
	document.ObjectBase
	Points []CheckPoint
	Prev   [6]uint8
	Next   [6]uint8
	Pad    uint16
}

func (p *CheckPath) CloneObject() document.Object {
	c := *p
	c.ObjectBase = p.CloneBase()
	c.Points = append([]CheckPoint(nil), p.Points...)
	return &c
}

func (p *CheckPath) EqualsObject(other document.Object) bool {
	o, ok := other.(*CheckPath)
	if !ok || o.Prev != p.Prev || o.Next != p.Next || o.Pad != p.Pad || len(o.Points) != len(p.Points) {
		return false
	}
	for i := range p.Points {
		if o.Points[i] != p.Points[i] {
			return false
		}
	}
	return true
}

// RailPoint is one POTI route point.
type RailPoint struct {
	Position Vec3
	Param1   uint16
	Param2   uint16
}

// Rail is one POTI route.
type Rail struct {
	document.ObjectBase
	Interpolated bool // smooth motion through points
	Cyclic       bool
	Points       []RailPoint
}

func (r *Rail) CloneObject() document.Object {
	c := *r
	c.ObjectBase = r.CloneBase()
	c.Points = append([]RailPoint(nil), r.Points...)
	return &c
}

func (r *Rail) EqualsObject(other document.Object) bool {
	o, ok := other.(*Rail)
	if !ok || o.Interpolated != r.Interpolated || o.Cyclic != r.Cyclic || len(o.Points) != len(r.Points) {
		return false
	}
	for i := range r.Points {
		if o.Points[i] != r.Points[i] {
			return false
		}
	}
	return true
}

// GeoObj is one GOBJ record: a placed course object with its route and up
// to eight u16 parameters.
type GeoObj struct {
	document.ObjectBase
	ObjectID      uint16
	ExtraFlags    uint16
	Position      Vec3
	Rotation      Vec3
	Scale         Vec3
	RailID        uint16
	Settings      [8]uint16
	PresenceFlags uint16
}

func (g *GeoObj) CloneObject() document.Object {
	c := *g
	c.ObjectBase = g.CloneBase()
	return &c
}

func (g *GeoObj) EqualsObject(other document.Object) bool {
	o, ok := other.(*GeoObj)
	return ok && o.ObjectID == g.ObjectID && o.ExtraFlags == g.ExtraFlags &&
		o.Position == g.Position && o.Rotation == g.Rotation && o.Scale == g.Scale &&
		o.RailID == g.RailID && o.Settings == g.Settings && o.PresenceFlags == g.PresenceFlags
}

// Camera is one CAME record, kept field-for-field.
type Camera struct {
	document.ObjectBase
	Type          uint8
	Next          uint8
	Shake         uint8
	RailID        uint8
	PointVelocity uint16
	ZoomVelocity  uint16
	ViewVelocity  uint16
	Start         uint8
	Movie         uint8
	Position      Vec3
	Rotation      Vec3
	ZoomStart     float32
	ZoomEnd       float32
	ViewStart     Vec3
	ViewEnd       Vec3
	Time          float32
}

func (c *Camera) CloneObject() document.Object {
	d := *c
	d.ObjectBase = c.CloneBase()
	return &d
}

func (c *Camera) EqualsObject(other document.Object) bool {
	o, ok := other.(*Camera)
	if !ok {
		return false
	}
	a, b := *c, *o
	a.ObjectBase, b.ObjectBase = document.ObjectBase{}, document.ObjectBase{}
	return a == b
}

// RespawnPoint is one JGPT record.
type RespawnPoint struct {
	document.ObjectBase
	Position Vec3
	Rotation Vec3
	ID       uint16
	Range    int16
}

func (p *RespawnPoint) CloneObject() document.Object {
	c := *p
	c.ObjectBase = p.CloneBase()
	return &c
}

func (p *RespawnPoint) EqualsObject(other document.Object) bool {
	o, ok := other.(*RespawnPoint)
	return ok && o.Position == p.Position && o.Rotation == p.Rotation && o.ID == p.ID && o.Range == p.Range
}

// CannonPoint is one CNPT record.
type CannonPoint struct {
	document.ObjectBase
	Position Vec3
	Rotation Vec3
	ID       uint16
	Effect   int16
}

func (p *CannonPoint) CloneObject() document.Object {
	c := *p
	c.ObjectBase = p.CloneBase()
	return &c
}

func (p *CannonPoint) EqualsObject(other document.Object) bool {
	o, ok := other.(*CannonPoint)
	return ok && o.Position == p.Position && o.Rotation == p.Rotation && o.ID == p.ID && o.Effect == p.Effect
}

// MissionPoint is one MSPT record.
type MissionPoint struct {
	document.ObjectBase
	Position Vec3
	Rotation Vec3
	ID       uint16
	Unknown  uint16
}

func (p *MissionPoint) CloneObject() document.Object {
	c := *p
	c.ObjectBase = p.CloneBase()
	return &c
}

func (p *MissionPoint) EqualsObject(other document.Object) bool {
	o, ok := other.(*MissionPoint)
	return ok && o.Position == p.Position && o.Rotation == p.Rotation && o.ID == p.ID && o.Unknown == p.Unknown
}

// Stage is one STGI record. The speed modifier halves are preserved raw.
type Stage struct {
	document.ObjectBase
	LapCount       uint8
	PolePosition   uint8
	NarrowDistance uint8
	FlareTobi      uint8
	FlareColor     uint32
	Pad            uint8
	SpeedMod       uint16
	Pad2           uint8
}

func (s *Stage) CloneObject() document.Object {
	c := *s
	c.ObjectBase = s.CloneBase()
	return &c
}

func (s *Stage) EqualsObject(other document.Object) bool {
	o, ok := other.(*Stage)
	return ok && o.LapCount == s.LapCount && o.PolePosition == s.PolePosition &&
		o.NarrowDistance == s.NarrowDistance && o.FlareTobi == s.FlareTobi &&
		o.FlareColor == s.FlareColor && o.Pad == s.Pad && o.SpeedMod == s.SpeedMod && o.Pad2 == s.Pad2
}

// CourseMap is the KMP document root: twelve folders, one per record
// kind, with path points held inside their path objects.
type CourseMap struct {
	document.Collection

	StartPoints   *document.TypedFolder[*StartPoint]
	EnemyPaths    *document.TypedFolder[*EnemyPath]
	ItemPaths     *document.TypedFolder[*ItemPath]
	CheckPaths    *document.TypedFolder[*CheckPath]
	Rails         *document.TypedFolder[*Rail]
	GeoObjs       *document.TypedFolder[*GeoObj]
	Areas         *document.TypedFolder[*Area]
	Cameras       *document.TypedFolder[*Camera]
	RespawnPoints *document.TypedFolder[*RespawnPoint]
	CannonPoints  *document.TypedFolder[*CannonPoint]
	Stages        *document.TypedFolder[*Stage]
	MissionPoints *document.TypedFolder[*MissionPoint]

	// Revision is the header version word (0x9D8 for retail tracks).
	Revision uint32
	// Extras preserves each section header's extra u16 verbatim.
	Extras [15]uint16
	// FirstIntroCam is the CAME section's extra header byte pair.
	FirstIntroCam uint8
	CameExtra     uint8

	// Flat point arrays held between the point and header sections of a
	// single read; never part of the document state.
	scratchEnemy []EnemyPoint
	scratchItem  []ItemPoint
	scratchCheck []CheckPoint
}

// NewCourseMap builds an empty course document.
func NewCourseMap() *CourseMap {
	m := &CourseMap{
		StartPoints:   document.NewFolder("kmp/ktpt", func() *StartPoint { return &StartPoint{} }),
		EnemyPaths:    document.NewFolder("kmp/enph", func() *EnemyPath { return &EnemyPath{} }),
		ItemPaths:     document.NewFolder("kmp/itph", func() *ItemPath { return &ItemPath{} }),
		CheckPaths:    document.NewFolder("kmp/ckph", func() *CheckPath { return &CheckPath{} }),
		Rails:         document.NewFolder("kmp/poti", func() *Rail { return &Rail{} }),
		GeoObjs:       document.NewFolder("kmp/gobj", func() *GeoObj { return &GeoObj{} }),
		Areas:         document.NewFolder("kmp/area", NewArea),
		Cameras:       document.NewFolder("kmp/came", func() *Camera { return &Camera{} }),
		RespawnPoints: document.NewFolder("kmp/jgpt", func() *RespawnPoint { return &RespawnPoint{} }),
		CannonPoints:  document.NewFolder("kmp/cnpt", func() *CannonPoint { return &CannonPoint{} }),
		Stages:        document.NewFolder("kmp/stgi", func() *Stage { return &Stage{} }),
		MissionPoints: document.NewFolder("kmp/mspt", func() *MissionPoint { return &MissionPoint{} }),
		Revision:      0x9D8,
	}
	m.RegisterFolder(m.StartPoints)
	m.RegisterFolder(m.EnemyPaths)
	m.RegisterFolder(m.ItemPaths)
	m.RegisterFolder(m.CheckPaths)
	m.RegisterFolder(m.Rails)
	m.RegisterFolder(m.GeoObjs)
	m.RegisterFolder(m.Areas)
	m.RegisterFolder(m.Cameras)
	m.RegisterFolder(m.RespawnPoints)
	m.RegisterFolder(m.CannonPoints)
	m.RegisterFolder(m.Stages)
	m.RegisterFolder(m.MissionPoints)
	return m
}
