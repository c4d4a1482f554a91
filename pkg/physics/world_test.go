package physics

import (
	"errors"
	"testing"

	"github.com/chazu/cleave/pkg/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stub is a minimal Target with fixed local extents.
type stub struct {
	name     string
	pos      kernel.Vec3
	min, max kernel.Vec3
}

func (p *stub) Name() string                    { return p.name }
func (p *stub) Position() kernel.Vec3           { return p.pos }
func (p *stub) SetPosition(v kernel.Vec3)       { p.pos = v }
func (p *stub) Extents() (min, max kernel.Vec3) { return p.min, p.max }

func newStub(name string, pos kernel.Vec3, half float64) *stub {
	h := kernel.Vec3{X: half, Y: half, Z: half}
	return &stub{name: name, pos: pos, min: h.Scale(-1), max: h}
}

var gravity = kernel.Vec3{Y: -9.81}

func TestAttachValidates(t *testing.T) {
	w := NewWorld(gravity)
	p := newStub("p", kernel.Vec3{}, 0.5)

	_, err := w.Attach(p, Impostor{Shape: ShapeBox, Mass: -1})
	assert.Error(t, err)
	_, err = w.Attach(p, Impostor{Shape: ShapeBox, Mass: 1, Restitution: 1.5})
	assert.Error(t, err)
	_, err = w.Attach(nil, Impostor{Shape: ShapeBox, Mass: 1})
	assert.Error(t, err)

	b, err := w.Attach(p, Impostor{Shape: ShapeBox, Mass: 10, Restitution: 0.5})
	require.NoError(t, err)
	assert.Equal(t, ShapeBox, b.Shape)
	assert.Equal(t, 10.0, b.Mass)
	assert.Equal(t, 0.5, b.Restitution)
	assert.Same(t, b, w.BodyFor(p))

	_, err = w.Attach(p, Impostor{Shape: ShapeBox, Mass: 1})
	assert.True(t, errors.Is(err, ErrAlreadyAttached))
}

func TestDetach(t *testing.T) {
	w := NewWorld(gravity)
	p := newStub("p", kernel.Vec3{}, 0.5)
	b, err := w.Attach(p, Impostor{Shape: ShapeSphere, Mass: 1})
	require.NoError(t, err)

	require.NoError(t, w.Detach(b))
	assert.False(t, b.Attached())
	assert.Nil(t, w.BodyFor(p))
	assert.Empty(t, w.Bodies())
	assert.ErrorIs(t, w.Detach(b), ErrNotAttached)
}

func TestStepFallsOntoPlane(t *testing.T) {
	w := NewWorld(gravity)
	ground := newStub("ground", kernel.Vec3{}, 0)
	ball := newStub("ball", kernel.Vec3{Y: 3}, 0.5)

	_, err := w.Attach(ground, Impostor{Shape: ShapePlane, Mass: 0, Restitution: 0.9})
	require.NoError(t, err)
	body, err := w.Attach(ball, Impostor{Shape: ShapeBox, Mass: 10, Restitution: 0.5})
	require.NoError(t, err)

	// Ten simulated seconds is plenty to settle.
	for i := 0; i < 600; i++ {
		w.Step(DefaultFixedStep)
	}

	assert.InDelta(t, 0.5, ball.pos.Y, 1e-6, "ball should rest on the plane")
	assert.InDelta(t, 0, body.Velocity().Y, 1e-9)
	// The static ground never moves.
	assert.Equal(t, kernel.Vec3{}, ground.pos)
}

func TestStepBounces(t *testing.T) {
	w := NewWorld(gravity)
	_, err := w.Attach(newStub("ground", kernel.Vec3{}, 0), Impostor{Shape: ShapePlane, Restitution: 1})
	require.NoError(t, err)
	ball := newStub("ball", kernel.Vec3{Y: 0.52}, 0.5)
	body, err := w.Attach(ball, Impostor{Shape: ShapeBox, Mass: 1, Restitution: 1})
	require.NoError(t, err)
	body.SetVelocity(kernel.Vec3{Y: -5})

	w.Step(DefaultFixedStep)
	assert.Greater(t, body.Velocity().Y, 0.0, "ball should bounce upward")
}

func TestStepRestsOnStaticBox(t *testing.T) {
	w := NewWorld(gravity)
	table := &stub{
		name: "table",
		pos:  kernel.Vec3{Y: 1},
		min:  kernel.Vec3{X: -2, Y: -0.1, Z: -2},
		max:  kernel.Vec3{X: 2, Y: 0.1, Z: 2},
	}
	_, err := w.Attach(table, Impostor{Shape: ShapeBox, Restitution: 0.5})
	require.NoError(t, err)
	cube := newStub("cube", kernel.Vec3{Y: 2}, 0.25)
	_, err = w.Attach(cube, Impostor{Shape: ShapeBox, Mass: 1, Restitution: 0.5})
	require.NoError(t, err)

	for i := 0; i < 600; i++ {
		w.Step(DefaultFixedStep)
	}
	assert.InDelta(t, 1.35, cube.pos.Y, 1e-3, "cube should rest on the table top")
}

func TestStepAccumulates(t *testing.T) {
	w := NewWorld(gravity)
	assert.Equal(t, 0, w.Step(0))
	assert.Equal(t, 0, w.Step(DefaultFixedStep/2))
	assert.Equal(t, 1, w.Step(DefaultFixedStep/2+1e-9))
	// A huge frame is capped.
	assert.Equal(t, DefaultMaxSubSteps, w.Step(10))
	assert.Equal(t, 0, w.Step(DefaultFixedStep/4))
}

func TestSetPositionRestartsFromRest(t *testing.T) {
	w := NewWorld(gravity)
	box := newStub("box", kernel.Vec3{}, 0.5)
	b, err := w.Attach(box, Impostor{Shape: ShapeBox, Mass: 1})
	require.NoError(t, err)
	for i := 0; i < 30; i++ {
		w.Step(DefaultFixedStep)
	}
	require.Less(t, b.Velocity().Y, 0.0)

	b.SetPosition(kernel.Vec3{X: 5, Y: 20})
	assert.Equal(t, kernel.Vec3{}, b.Velocity())
	assert.Equal(t, kernel.Vec3{}, box.Position(), "target is left for the caller")

	w.Step(DefaultFixedStep)
	assert.Equal(t, 5.0, box.Position().X)
	assert.InDelta(t, 20, box.Position().Y, 0.01)
	assert.Less(t, box.Position().Y, 20.0)
}

func TestSphereShapeEnclosesExtents(t *testing.T) {
	w := NewWorld(gravity)
	p := &stub{name: "rod", min: kernel.Vec3{X: -2, Y: -0.5, Z: -0.5}, max: kernel.Vec3{X: 2, Y: 0.5, Z: 0.5}}
	b, err := w.Attach(p, Impostor{Shape: ShapeSphere, Mass: 1})
	require.NoError(t, err)
	min, max := b.worldBounds()
	assert.Equal(t, kernel.Vec3{X: -2, Y: -2, Z: -2}, min)
	assert.Equal(t, kernel.Vec3{X: 2, Y: 2, Z: 2}, max)
}

func TestParseShape(t *testing.T) {
	for _, name := range []string{"plane", "box", "sphere"} {
		s, err := ParseShape(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.String())
	}
	_, err := ParseShape("capsule")
	assert.Error(t, err)
}
