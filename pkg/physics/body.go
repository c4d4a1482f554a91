// Package physics is a small rigid-body world. Bodies are axis-aligned
// impostors (plane, box, sphere) attached to scene objects; the world
// integrates gravity at a fixed step and resolves contacts between dynamic
// and static bodies with restitution.
package physics

import (
	"fmt"

	"github.com/chazu/cleave/pkg/kernel"
)

// Shape is the collision shape category of an impostor.
type Shape int

const (
	ShapePlane  Shape = iota // infinite horizontal plane through the target's position
	ShapeBox                 // axis-aligned box from the target's extents
	ShapeSphere              // sphere enclosing the target's extents
)

func (s Shape) String() string {
	switch s {
	case ShapePlane:
		return "plane"
	case ShapeBox:
		return "box"
	case ShapeSphere:
		return "sphere"
	default:
		return fmt.Sprintf("Shape(%d)", int(s))
	}
}

// ParseShape maps a shape name to a Shape.
func ParseShape(name string) (Shape, error) {
	switch name {
	case "plane":
		return ShapePlane, nil
	case "box":
		return ShapeBox, nil
	case "sphere":
		return ShapeSphere, nil
	}
	return 0, fmt.Errorf("unknown impostor shape %q, expected plane, box, or sphere", name)
}

// Impostor describes how a target participates in the simulation.
// A Mass of zero makes the body static.
type Impostor struct {
	Shape       Shape   `json:"shape" toml:"-" yaml:"-"`
	Mass        float64 `json:"mass" toml:"mass" yaml:"mass"`
	Restitution float64 `json:"restitution" toml:"restitution" yaml:"restitution"`
}

// Validate rejects negative mass and restitution outside [0, 1].
func (imp Impostor) Validate() error {
	if imp.Mass < 0 {
		return fmt.Errorf("impostor mass must not be negative, got %g", imp.Mass)
	}
	if imp.Restitution < 0 || imp.Restitution > 1 {
		return fmt.Errorf("impostor restitution must be in [0, 1], got %g", imp.Restitution)
	}
	if imp.Shape < ShapePlane || imp.Shape > ShapeSphere {
		return fmt.Errorf("impostor has unknown shape %s", imp.Shape)
	}
	return nil
}

// Target is anything a body can drive. Extents are in the target's local
// frame, relative to its position.
type Target interface {
	Name() string
	Position() kernel.Vec3
	SetPosition(kernel.Vec3)
	Extents() (min, max kernel.Vec3)
}

// Body is a live rigid body tracked by a World.
type Body struct {
	Impostor

	target   Target
	world    *World
	position kernel.Vec3
	velocity kernel.Vec3

	// local bounds relative to position
	min, max kernel.Vec3
}

// Target returns the object this body drives.
func (b *Body) Target() Target { return b.target }

// Position returns the body position.
func (b *Body) Position() kernel.Vec3 { return b.position }

// Velocity returns the linear velocity.
func (b *Body) Velocity() kernel.Vec3 { return b.velocity }

// SetVelocity overrides the linear velocity.
func (b *Body) SetVelocity(v kernel.Vec3) { b.velocity = v }

// SetPosition moves the body to p and brings it to rest. The target is
// not updated.
func (b *Body) SetPosition(p kernel.Vec3) {
	b.position = p
	b.velocity = kernel.Vec3{}
}

// Static reports whether the body is immovable.
func (b *Body) Static() bool { return b.Mass == 0 }

// Attached reports whether the body is still part of a world.
func (b *Body) Attached() bool { return b.world != nil }

// worldBounds returns the body's AABB in world space.
func (b *Body) worldBounds() (min, max kernel.Vec3) {
	return b.position.Add(b.min), b.position.Add(b.max)
}

// fitShape sets local bounds from the target extents according to the shape.
func (b *Body) fitShape() {
	min, max := b.target.Extents()
	switch b.Shape {
	case ShapeSphere:
		c := min.Add(max).Scale(0.5)
		r := max.Sub(min).Scale(0.5)
		radius := r.X
		if r.Y > radius {
			radius = r.Y
		}
		if r.Z > radius {
			radius = r.Z
		}
		half := kernel.Vec3{X: radius, Y: radius, Z: radius}
		b.min, b.max = c.Sub(half), c.Add(half)
	default:
		b.min, b.max = min, max
	}
}
