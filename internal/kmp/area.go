package kmp

import (
	"github.com/rvltools/rkit/internal/document"
)

// AreaShape is the intersection model of an area.
type AreaShape uint8

const (
	AreaBox AreaShape = iota
	AreaCylinder
)

// AreaType discriminates the area variants. The on-disk record is fixed;
// the type byte selects how the two u16 parameters are interpreted.
type AreaType uint8

const (
	// AreaCamera selects the active camera within the area.
	AreaCamera AreaType = iota
	// AreaEffect controls environmental particle effect systems.
	AreaEffect
	// AreaFog selects the scene mist preset.
	AreaFog
	// AreaPull marks a pull attractor for drivers.
	AreaPull
	// AreaEnemyFall grounds enemy path calculation after fall events.
	AreaEnemyFall
	// AreaMap2D is the minimap's orthographic capture region.
	AreaMap2D
	// AreaSound enables audio effects such as reverb presets.
	AreaSound
	// AreaTeresa controls the presence of Boos.
	AreaTeresa
	// AreaObjClipClassifier tags objects in one of 16 layers.
	AreaObjClipClassifier
	// AreaObjClipDiscriminator controls the presence of clip layers.
	AreaObjClipDiscriminator
	// AreaBoundary respawns drivers that enter the area.
	AreaBoundary
)

var areaTypeNames = [...]string{
	"Camera Area", "EffectController Area", "FogController Area",
	"PullController Area", "EnemyFall Area", "MapArea2D Area",
	"SoundController Area", "TeresaController Area",
	"ObjClipClassifier Area", "ObjClipDiscriminator Area",
	"PlayerBoundary Area",
}

func (t AreaType) String() string {
	if int(t) < len(areaTypeNames) {
		return areaTypeNames[t]
	}
	return "Unknown Area"
}

// ConstraintType classifies a constrained boundary area.
type ConstraintType int

const (
	// Whitelist enables the boundary within the checkpoint range.
	Whitelist ConstraintType = iota
	// Blacklist disables it within the range.
	Blacklist
)

// Area is one AREA record. Variant-specific meaning lives in the two
// parameter slots; accessors project it in and out.
type Area struct {
	document.ObjectBase
	Type     AreaType
	Shape    AreaShape
	Position Vec3
	Rotation Vec3
	Scale    Vec3

	// CameraIndex is valid for AreaCamera records; -1 otherwise.
	CameraIndex int8
	priority    uint8
	Params      [2]uint16
	RailID      uint8
	EnemyLinkID uint8
	Pad         [2]uint8
}

// NewArea builds a default camera-type box area.
func NewArea() *Area {
	return &Area{CameraIndex: -1, Scale: Vec3{1, 1, 1}}
}

func (a *Area) CloneObject() document.Object {
	c := *a
	c.ObjectBase = a.CloneBase()
	return &c
}

func (a *Area) EqualsObject(other document.Object) bool {
	o, ok := other.(*Area)
	if !ok {
		return false
	}
	x, y := *a, *o
	x.ObjectBase, y.ObjectBase = document.ObjectBase{}, document.ObjectBase{}
	return x == y
}

// Priority returns the area's priority; lower raw values rank higher, so
// the accessor inverts the stored byte.
func (a *Area) Priority() uint8 { return 0xFF - a.priority }

// SetPriority stores an inverted priority byte.
func (a *Area) SetPriority(p uint8) { a.priority = 0xFF - p }

// RawPriority exposes the stored byte for serialization.
func (a *Area) RawPriority() uint8 { return a.priority }

// SetRawPriority stores the byte as read from disk.
func (a *Area) SetRawPriority(p uint8) { a.priority = p }

// EffectType is Params[0] for AreaEffect records.
func (a *Area) EffectType() uint16 { return a.Params[0] }

// SetEffectType stores the effect selector.
func (a *Area) SetEffectType(v uint16) { a.Params[0] = v }

// FogIndex is Params[0] for AreaFog records.
func (a *Area) FogIndex() uint16 { return a.Params[0] }

// SetFogIndex stores the fog preset index.
func (a *Area) SetFogIndex(v uint16) { a.Params[0] = v }

// ObjClipGroupID is Params[0] for the object-clip variants.
func (a *Area) ObjClipGroupID() uint16 { return a.Params[0] }

// SetObjClipGroupID stores the clip group id.
func (a *Area) SetObjClipGroupID(v uint16) { a.Params[0] = v }

// Boundary-area semantics. A boundary area's two parameters encode an
// inclusive checkpoint-id range: equal values mean unconstrained, an
// ascending pair whitelists the range, a descending pair blacklists it.

// IsConstrained reports whether the boundary is limited to a checkpoint
// range.
func (a *Area) IsConstrained() bool { return a.Params[0] != a.Params[1] }

// ForgetConstraint unconditionally enables the boundary.
func (a *Area) ForgetConstraint() { a.Params[1] = a.Params[0] }

// DefaultConstraint installs the minimal whitelist range.
func (a *Area) DefaultConstraint() { a.Params[1] = a.Params[0] + 1 }

// Constraint returns the constraint polarity. Undefined when
// unconstrained.
func (a *Area) Constraint() ConstraintType {
	if a.Params[1] > a.Params[0] {
		return Whitelist
	}
	return Blacklist
}

// SetConstraint flips the parameter pair when the polarity differs.
func (a *Area) SetConstraint(c ConstraintType) {
	if a.Constraint() != c {
		a.Params[0], a.Params[1] = a.Params[1], a.Params[0]
	}
}

// InclusiveLowerBound is the smallest checkpoint id inside the range.
func (a *Area) InclusiveLowerBound() uint16 {
	return min(a.Params[0], a.Params[1])
}

// SetInclusiveLowerBound rewrites the smaller parameter.
func (a *Area) SetInclusiveLowerBound(v uint16) {
	if a.Params[0] <= a.Params[1] {
		a.Params[0] = v
	} else {
		a.Params[1] = v
	}
}

// InclusiveUpperBound is the largest checkpoint id inside the range.
func (a *Area) InclusiveUpperBound() uint16 {
	return max(a.Params[0], a.Params[1]) - 1
}

// SetInclusiveUpperBound rewrites the larger parameter.
func (a *Area) SetInclusiveUpperBound(v uint16) {
	if a.Params[0] >= a.Params[1] {
		a.Params[0] = v + 1
	} else {
		a.Params[1] = v + 1
	}
}
