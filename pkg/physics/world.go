package physics

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/cleave/pkg/kernel"
)

// DefaultFixedStep is the integration step in seconds.
const DefaultFixedStep = 1.0 / 60.0

// DefaultMaxSubSteps bounds the work done by one Step call.
const DefaultMaxSubSteps = 8

// restingSpeed is the bounce speed below which a contact comes to rest.
const restingSpeed = 0.2

var (
	// ErrAlreadyAttached is returned when a target already has a body.
	ErrAlreadyAttached = errors.New("physics: target already has a body")
	// ErrNotAttached is returned when detaching a body the world does not own.
	ErrNotAttached = errors.New("physics: body is not attached to this world")
)

// World owns the bodies and advances them in fixed steps.
// It is not safe for concurrent use.
type World struct {
	Gravity     kernel.Vec3
	FixedStep   float64
	MaxSubSteps int

	bodies      []*Body
	accumulator float64
}

// NewWorld returns an empty world with the given gravity.
func NewWorld(gravity kernel.Vec3) *World {
	return &World{
		Gravity:     gravity,
		FixedStep:   DefaultFixedStep,
		MaxSubSteps: DefaultMaxSubSteps,
	}
}

// Attach creates a body for target and adds it to the simulation. The body
// starts at the target's position with zero velocity.
func (w *World) Attach(target Target, imp Impostor) (*Body, error) {
	if target == nil {
		return nil, fmt.Errorf("physics: cannot attach a body to a nil target")
	}
	if err := imp.Validate(); err != nil {
		return nil, fmt.Errorf("physics: %s: %w", target.Name(), err)
	}
	if w.BodyFor(target) != nil {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyAttached, target.Name())
	}
	b := &Body{
		Impostor: imp,
		target:   target,
		world:    w,
		position: target.Position(),
	}
	b.fitShape()
	w.bodies = append(w.bodies, b)
	return b, nil
}

// Detach removes b from the world.
func (w *World) Detach(b *Body) error {
	for i, cur := range w.bodies {
		if cur == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			b.world = nil
			return nil
		}
	}
	return ErrNotAttached
}

// BodyFor returns the body driving target, or nil.
func (w *World) BodyFor(target Target) *Body {
	for _, b := range w.bodies {
		if b.target == target {
			return b
		}
	}
	return nil
}

// Bodies returns the attached bodies in attach order.
func (w *World) Bodies() []*Body {
	out := make([]*Body, len(w.bodies))
	copy(out, w.bodies)
	return out
}

// Step advances the simulation by elapsed seconds using fixed sub-steps.
// Leftover time carries over to the next call. It returns the number of
// sub-steps taken.
func (w *World) Step(elapsed float64) int {
	if elapsed <= 0 || math.IsNaN(elapsed) {
		return 0
	}
	step := w.FixedStep
	if step <= 0 {
		step = DefaultFixedStep
	}
	maxSteps := w.MaxSubSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSubSteps
	}

	w.accumulator += elapsed
	n := 0
	for w.accumulator >= step && n < maxSteps {
		w.step(step)
		w.accumulator -= step
		n++
	}
	if n == maxSteps {
		// Drop the backlog rather than spiral.
		w.accumulator = 0
	}
	return n
}

// step integrates one fixed step: semi-implicit Euler, then contacts,
// then pushes positions back to the targets.
func (w *World) step(dt float64) {
	for _, b := range w.bodies {
		if b.Static() {
			continue
		}
		b.velocity = b.velocity.Add(w.Gravity.Scale(dt))
		b.position = b.position.Add(b.velocity.Scale(dt))
	}

	for _, d := range w.bodies {
		if d.Static() {
			continue
		}
		for _, s := range w.bodies {
			if !s.Static() {
				continue
			}
			switch s.Shape {
			case ShapePlane:
				resolvePlane(d, s)
			default:
				resolveBox(d, s)
			}
		}
		d.target.SetPosition(d.position)
	}
}

// resolvePlane keeps d above the horizontal plane through s.
func resolvePlane(d, s *Body) {
	floor := s.position.Y
	bottom := d.position.Y + d.min.Y
	if bottom >= floor {
		return
	}
	d.position.Y += floor - bottom
	if d.velocity.Y < 0 {
		d.velocity.Y = -d.velocity.Y * d.Restitution * s.Restitution
		if d.velocity.Y < restingSpeed {
			d.velocity.Y = 0
		}
	}
}

// resolveBox separates d from the static box s along the axis of least
// penetration and reflects the velocity component along that axis.
func resolveBox(d, s *Body) {
	dmin, dmax := d.worldBounds()
	smin, smax := s.worldBounds()

	overlap := [3]float64{
		math.Min(dmax.X, smax.X) - math.Max(dmin.X, smin.X),
		math.Min(dmax.Y, smax.Y) - math.Max(dmin.Y, smin.Y),
		math.Min(dmax.Z, smax.Z) - math.Max(dmin.Z, smin.Z),
	}
	if overlap[0] <= 0 || overlap[1] <= 0 || overlap[2] <= 0 {
		return
	}

	axis := 0
	for i := 1; i < 3; i++ {
		if overlap[i] < overlap[axis] {
			axis = i
		}
	}

	dc := dmin.Add(dmax).Scale(0.5)
	sc := smin.Add(smax).Scale(0.5)
	e := d.Restitution * s.Restitution

	pos := [3]*float64{&d.position.X, &d.position.Y, &d.position.Z}
	vel := [3]*float64{&d.velocity.X, &d.velocity.Y, &d.velocity.Z}
	dcs := [3]float64{dc.X, dc.Y, dc.Z}
	scs := [3]float64{sc.X, sc.Y, sc.Z}

	dir := 1.0
	if dcs[axis] < scs[axis] {
		dir = -1
	}
	*pos[axis] += dir * overlap[axis]
	if *vel[axis]*dir < 0 {
		*vel[axis] = -*vel[axis] * e
		if math.Abs(*vel[axis]) < restingSpeed {
			*vel[axis] = 0
		}
	}
}
