package kernel

import (
	"fmt"
	"math"
)

// Vec3 is a 3D vector or point in world units.
type Vec3 struct {
	X float64 `json:"x" toml:"x" yaml:"x"`
	Y float64 `json:"y" toml:"y" yaml:"y"`
	Z float64 `json:"z" toml:"z" yaml:"z"`
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale multiplies every component by s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Length() float64 { return math.Sqrt(v.Dot(v)) }

// Normalize returns the unit vector in the direction of v, or the zero
// vector if v has no length.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l < 1e-12 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// IsZero reports whether all components are exactly zero.
func (v Vec3) IsZero() bool { return v.X == 0 && v.Y == 0 && v.Z == 0 }

// IsFinite reports whether no component is NaN or infinite.
func (v Vec3) IsFinite() bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Min returns the component-wise minimum.
func (v Vec3) Min(o Vec3) Vec3 {
	return Vec3{math.Min(v.X, o.X), math.Min(v.Y, o.Y), math.Min(v.Z, o.Z)}
}

// Max returns the component-wise maximum.
func (v Vec3) Max(o Vec3) Vec3 {
	return Vec3{math.Max(v.X, o.X), math.Max(v.Y, o.Y), math.Max(v.Z, o.Z)}
}

// Rotate rotates v by Euler angles (radians) about X, then Y, then Z.
// This matches the order used by Kernel.Rotate.
func (v Vec3) Rotate(euler Vec3) Vec3 {
	r := v
	if euler.X != 0 {
		s, c := math.Sincos(euler.X)
		r = Vec3{r.X, c*r.Y - s*r.Z, s*r.Y + c*r.Z}
	}
	if euler.Y != 0 {
		s, c := math.Sincos(euler.Y)
		r = Vec3{c*r.X + s*r.Z, r.Y, -s*r.X + c*r.Z}
	}
	if euler.Z != 0 {
		s, c := math.Sincos(euler.Z)
		r = Vec3{c*r.X - s*r.Y, s*r.X + c*r.Y, r.Z}
	}
	return r
}

// InverseRotate undoes Rotate(euler).
func (v Vec3) InverseRotate(euler Vec3) Vec3 {
	r := v
	if euler.Z != 0 {
		r = r.Rotate(Vec3{Z: -euler.Z})
	}
	if euler.Y != 0 {
		r = r.Rotate(Vec3{Y: -euler.Y})
	}
	if euler.X != 0 {
		r = r.Rotate(Vec3{X: -euler.X})
	}
	return r
}
