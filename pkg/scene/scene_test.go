package scene

import (
	"math"
	"testing"

	"github.com/chazu/cleave/pkg/kernel"
	"github.com/chazu/cleave/pkg/kernel/sdfx"
	"github.com/chazu/cleave/pkg/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCells = 40

func newTestScene() *Scene {
	return New(sdfx.NewWithCells(testCells), nil)
}

func TestCreateAndLookup(t *testing.T) {
	s := newTestScene()
	ball, err := s.CreateSphere("ball", 1)
	require.NoError(t, err)
	box, err := s.CreateBox("crate", 1, 2, 3)
	require.NoError(t, err)

	assert.Equal(t, 2, s.Count())
	assert.Same(t, ball, s.Lookup("ball"))
	assert.Same(t, box, s.Mesh(box.ID()))
	assert.Nil(t, s.Lookup("nope"))
	assert.Equal(t, []*Mesh{ball, box}, s.Meshes())
	assert.NotEqual(t, ball.ID(), box.ID())
	assert.True(t, ball.Pickable())
	assert.True(t, ball.Visible())

	min, max := box.Extents()
	assert.InDelta(t, -1.5, min.Z, 1e-9)
	assert.InDelta(t, 1, max.Y, 1e-9)
}

func TestCreateRejectsBadDimensions(t *testing.T) {
	s := newTestScene()
	_, err := s.CreateBox("flat", 1, 0, 1)
	assert.Error(t, err)
	_, err = s.CreateSphere("dot", -1)
	assert.Error(t, err)
	_, err = s.CreateMesh("empty", nil)
	assert.Error(t, err)
	assert.Equal(t, 0, s.Count())
}

func TestGroundTopAtPosition(t *testing.T) {
	s := newTestScene()
	g, err := s.CreateGround("ground", 10, 10)
	require.NoError(t, err)
	min, max := g.Extents()
	assert.InDelta(t, 0, max.Y, 1e-9)
	assert.InDelta(t, -GroundThickness, min.Y, 1e-9)
	assert.InDelta(t, 5, max.X, 1e-9)
}

func TestDispose(t *testing.T) {
	s := newTestScene()
	m, err := s.CreateBox("crate", 1, 1, 1)
	require.NoError(t, err)
	b, err := s.AttachBody(m, physics.Impostor{Shape: physics.ShapeBox, Mass: 1})
	require.NoError(t, err)
	require.Same(t, b, m.Body())

	require.NoError(t, s.Dispose(m))
	assert.True(t, m.IsDisposed())
	assert.False(t, s.Owns(m))
	assert.Equal(t, 0, s.Count())
	assert.Nil(t, m.Body())
	assert.False(t, b.Attached())
	assert.Empty(t, s.World().Bodies())

	assert.ErrorIs(t, s.Dispose(m), ErrDisposed)
	_, err = m.Geometry()
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = s.AttachBody(m, physics.Impostor{Shape: physics.ShapeBox, Mass: 1})
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestDisposeForeignMesh(t *testing.T) {
	a := newTestScene()
	b := newTestScene()
	m, err := a.CreateBox("crate", 1, 1, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, b.Dispose(m), ErrForeignMesh)
	assert.Equal(t, 1, a.Count())
}

func TestGeometryIsCached(t *testing.T) {
	s := newTestScene()
	m, err := s.CreateSphere("ball", 1)
	require.NoError(t, err)
	g1, err := m.Geometry()
	require.NoError(t, err)
	g2, err := m.Geometry()
	require.NoError(t, err)
	assert.Same(t, g1, g2)
	assert.Equal(t, "ball", g1.Name)
}

func TestWorldGeometryFollowsPose(t *testing.T) {
	s := newTestScene()
	m, err := s.CreateBox("crate", 2, 2, 2)
	require.NoError(t, err)
	m.SetPosition(kernel.Vec3{X: 10})
	wg, err := m.WorldGeometry()
	require.NoError(t, err)
	min, max, ok := wg.Bounds()
	require.True(t, ok)
	assert.InDelta(t, 9, min.X, 0.1)
	assert.InDelta(t, 11, max.X, 0.1)
}

func TestRenderDrivesBodies(t *testing.T) {
	s := newTestScene()
	ground, err := s.CreateGround("ground", 10, 10)
	require.NoError(t, err)
	_, err = s.AttachBody(ground, physics.Impostor{Shape: physics.ShapePlane, Restitution: 0.9})
	require.NoError(t, err)
	ball, err := s.CreateSphere("ball", 1)
	require.NoError(t, err)
	ball.SetPosition(kernel.Vec3{Y: 1})
	_, err = s.AttachBody(ball, physics.Impostor{Shape: physics.ShapeSphere, Mass: 1, Restitution: 0.5})
	require.NoError(t, err)

	assert.Equal(t, 1, s.Render(physics.DefaultFixedStep))
	assert.Less(t, ball.Position().Y, 1.0)

	for i := 0; i < 600; i++ {
		s.Render(physics.DefaultFixedStep)
	}
	assert.InDelta(t, 0.5, ball.Position().Y, 1e-6)
	assert.Equal(t, kernel.Vec3{}, ground.Position())
}

func TestSetPositionMovesBody(t *testing.T) {
	s := newTestScene()
	ground, err := s.CreateGround("ground", 10, 10)
	require.NoError(t, err)
	ground.SetPosition(kernel.Vec3{Y: -1})
	_, err = s.AttachBody(ground, physics.Impostor{Shape: physics.ShapePlane})
	require.NoError(t, err)
	crate, err := s.CreateBox("crate", 1, 1, 1)
	require.NoError(t, err)
	body, err := s.AttachBody(crate, physics.Impostor{Shape: physics.ShapeBox, Mass: 1})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		s.Render(physics.DefaultFixedStep)
	}
	crate.SetPosition(kernel.Vec3{X: 5, Y: 20})
	assert.Equal(t, kernel.Vec3{X: 5, Y: 20}, body.Position())
	assert.Equal(t, kernel.Vec3{}, body.Velocity())

	s.Render(physics.DefaultFixedStep)
	assert.Equal(t, 5.0, crate.Position().X)
	assert.InDelta(t, 20, crate.Position().Y, 0.01)

	for i := 0; i < 600; i++ {
		s.Render(physics.DefaultFixedStep)
	}
	assert.InDelta(t, -0.5, crate.Position().Y, 0.02)
	assert.Equal(t, 5.0, crate.Position().X)
	assert.Equal(t, kernel.Vec3{Y: -1}, ground.Body().Position())
}

func TestPickNearest(t *testing.T) {
	s := newTestScene()
	near, err := s.CreateSphere("near", 1)
	require.NoError(t, err)
	far, err := s.CreateSphere("far", 1)
	require.NoError(t, err)
	far.SetPosition(kernel.Vec3{Z: 3})

	info := s.Pick(Ray{Origin: kernel.Vec3{Z: -5}, Direction: kernel.Vec3{Z: 2}})
	require.True(t, info.Hit)
	assert.Same(t, near, info.Mesh)
	assert.InDelta(t, 4.5, info.Distance, 0.05)
	assert.InDelta(t, -0.5, info.Point.Z, 0.05)

	near.SetPickable(false)
	info = s.Pick(Ray{Origin: kernel.Vec3{Z: -5}, Direction: kernel.Vec3{Z: 1}})
	require.True(t, info.Hit)
	assert.Same(t, far, info.Mesh)
	assert.InDelta(t, 2.5, info.Point.Z, 0.05)
}

func TestPickMiss(t *testing.T) {
	s := newTestScene()
	_, err := s.CreateSphere("ball", 1)
	require.NoError(t, err)

	tests := []struct {
		name string
		ray  Ray
	}{
		{"away", Ray{Origin: kernel.Vec3{Z: -5}, Direction: kernel.Vec3{Z: -1}}},
		{"beside", Ray{Origin: kernel.Vec3{X: 2, Z: -5}, Direction: kernel.Vec3{Z: 1}}},
		{"zero direction", Ray{Origin: kernel.Vec3{Z: -5}}},
		{"nan origin", Ray{Origin: kernel.Vec3{X: math.NaN()}, Direction: kernel.Vec3{Z: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := s.Pick(tt.ray)
			assert.False(t, info.Hit)
			assert.Nil(t, info.Mesh)
		})
	}
}

func TestPickSkipsHiddenMeshes(t *testing.T) {
	s := newTestScene()
	m, err := s.CreateBox("crate", 1, 1, 1)
	require.NoError(t, err)
	m.SetVisible(false)
	info := s.Pick(Ray{Origin: kernel.Vec3{Z: -5}, Direction: kernel.Vec3{Z: 1}})
	assert.False(t, info.Hit)
}

func TestPickRotatedMesh(t *testing.T) {
	s := newTestScene()
	// A plank 4 long in X, turned a quarter about Y so it runs along Z.
	plank, err := s.CreateBox("plank", 4, 0.5, 0.5)
	require.NoError(t, err)
	plank.SetRotation(kernel.Vec3{Y: math.Pi / 2})

	info := s.Pick(Ray{Origin: kernel.Vec3{X: -5, Z: 1.5}, Direction: kernel.Vec3{X: 1}})
	require.True(t, info.Hit, "rotated plank should cover z=1.5")
	assert.InDelta(t, -0.25, info.Point.X, 0.05)

	info = s.Pick(Ray{Origin: kernel.Vec3{X: 1.5, Z: -5}, Direction: kernel.Vec3{Z: 1}})
	assert.False(t, info.Hit, "rotated plank no longer covers x=1.5")
}

func TestPickAt(t *testing.T) {
	s := newTestScene()
	_, err := s.PickAt(0, 0, 100, 100)
	assert.Error(t, err, "picking without a camera")

	ball, err := s.CreateSphere("ball", 1)
	require.NoError(t, err)
	ball.SetPosition(kernel.Vec3{Y: 1})
	s.Camera = NewFreeCamera("camera", kernel.Vec3{Y: 1, Z: -5})

	info, err := s.PickAt(400, 300, 800, 600)
	require.NoError(t, err)
	require.True(t, info.Hit)
	assert.Same(t, ball, info.Mesh)

	info, err = s.PickAt(0, 0, 800, 600)
	require.NoError(t, err)
	assert.False(t, info.Hit)

	_, err = s.PickAt(1, 1, 0, 600)
	assert.Error(t, err)
}

func TestCameraRay(t *testing.T) {
	c := NewFreeCamera("camera", kernel.Vec3{Y: 1, Z: -5})
	r, err := c.Ray(50, 50, 100, 100)
	require.NoError(t, err)
	assert.Equal(t, c.Position, r.Origin)
	assert.InDelta(t, 1, r.Direction.Z, 1e-9)

	// Top-left pointer leans left and up.
	r, err = c.Ray(0, 0, 100, 100)
	require.NoError(t, err)
	assert.Less(t, r.Direction.X, 0.0)
	assert.Greater(t, r.Direction.Y, 0.0)
	assert.InDelta(t, 1, r.Direction.Length(), 1e-9)
}

func TestCameraSetTarget(t *testing.T) {
	c := NewFreeCamera("camera", kernel.Vec3{X: 3, Y: 4, Z: -5})
	target := kernel.Vec3{Y: 1}
	c.SetTarget(target)
	want := target.Sub(c.Position).Normalize()
	got := c.Forward()
	assert.InDelta(t, want.X, got.X, 1e-9)
	assert.InDelta(t, want.Y, got.Y, 1e-9)
	assert.InDelta(t, want.Z, got.Z, 1e-9)
	assert.InDelta(t, 0, c.Rotation.Z, 1e-12)
}

func TestMaterials(t *testing.T) {
	s := newTestScene()
	std := &StandardMaterial{Name: "rock", Diffuse: NewTexture("rock_diff.jpg"), Bump: NewTexture("rock_nor.jpg")}
	SetUVScale(5, std.Textures()...)
	require.NoError(t, s.AddMaterial(std))
	assert.Error(t, s.AddMaterial(&PBRMaterial{Name: "rock"}))
	require.NoError(t, s.AddMaterial(&PBRMaterial{Name: "metal"}))

	assert.Same(t, std, s.Material("rock"))
	assert.Len(t, std.Textures(), 2)
	assert.Equal(t, 5.0, std.Diffuse.UScale)
	assert.Equal(t, 5.0, std.Bump.VScale)
	names := []string{}
	for _, m := range s.Materials() {
		names = append(names, m.MaterialName())
	}
	assert.Equal(t, []string{"metal", "rock"}, names)
}

func TestColorHex(t *testing.T) {
	c, err := ParseHexColor("#ff8000")
	require.NoError(t, err)
	assert.InDelta(t, 1, c.R, 1e-9)
	assert.InDelta(t, 128.0/255, c.G, 1e-9)
	assert.Equal(t, "#ff8000", c.Hex())

	_, err = ParseHexColor("#ff80")
	assert.Error(t, err)
	_, err = ParseHexColor("zzzzzz")
	assert.Error(t, err)
}
