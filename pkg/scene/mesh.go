package scene

import (
	"fmt"
	"math"

	"github.com/chazu/cleave/pkg/kernel"
	"github.com/chazu/cleave/pkg/physics"
)

const halfPi = math.Pi / 2

// Compile-time check that meshes can carry bodies.
var _ physics.Target = (*Mesh)(nil)

// Mesh is a renderable solid placed in a scene.
type Mesh struct {
	id       MeshID
	name     string
	scene    *Scene
	position kernel.Vec3
	rotation kernel.Vec3 // Euler radians, X then Y then Z
	solid    kernel.Solid
	geometry *kernel.Mesh // cached tessellation of solid
	pickable bool
	visible  bool
	material string
	body     *physics.Body
	disposed bool
}

func (m *Mesh) ID() MeshID    { return m.id }
func (m *Mesh) Name() string  { return m.name }
func (m *Mesh) Scene() *Scene { return m.scene }

func (m *Mesh) Position() kernel.Vec3 { return m.position }

// SetPosition moves the mesh. A mesh with a body carries the body along
// and the body comes to rest there; the world writing back the body's own
// position leaves it untouched.
func (m *Mesh) SetPosition(p kernel.Vec3) {
	m.position = p
	if m.body != nil && m.body.Position() != p {
		m.body.SetPosition(p)
	}
}

func (m *Mesh) Rotation() kernel.Vec3     { return m.rotation }
func (m *Mesh) SetRotation(r kernel.Vec3) { m.rotation = r }

func (m *Mesh) Pickable() bool     { return m.pickable }
func (m *Mesh) SetPickable(v bool) { m.pickable = v }

func (m *Mesh) Visible() bool     { return m.visible }
func (m *Mesh) SetVisible(v bool) { m.visible = v }

// Material returns the name of the assigned material, if any.
func (m *Mesh) Material() string        { return m.material }
func (m *Mesh) SetMaterial(name string) { m.material = name }

// Body returns the attached rigid body, or nil.
func (m *Mesh) Body() *physics.Body { return m.body }

// IsDisposed reports whether the mesh has been removed from its scene.
func (m *Mesh) IsDisposed() bool { return m.disposed }

// Solid returns the mesh's solid in its local frame.
func (m *Mesh) Solid() kernel.Solid { return m.solid }

// WorldSolid returns the solid rotated and translated by the mesh pose.
func (m *Mesh) WorldSolid() kernel.Solid {
	k := m.scene.kernel
	s := m.solid
	if !m.rotation.IsZero() {
		s = k.Rotate(s, m.rotation.X, m.rotation.Y, m.rotation.Z)
	}
	if !m.position.IsZero() {
		s = k.Translate(s, m.position.X, m.position.Y, m.position.Z)
	}
	return s
}

// Geometry returns the tessellated local-frame geometry, computing and
// caching it on first use.
func (m *Mesh) Geometry() (*kernel.Mesh, error) {
	if m.disposed {
		return nil, fmt.Errorf("%w: %s", ErrDisposed, m.name)
	}
	if m.geometry != nil {
		return m.geometry, nil
	}
	g, err := m.scene.kernel.ToMesh(m.solid)
	if err != nil {
		return nil, fmt.Errorf("scene: tessellate %s: %w", m.name, err)
	}
	g.Name = m.name
	m.geometry = g
	return g, nil
}

// WorldGeometry returns the geometry transformed by the mesh pose.
func (m *Mesh) WorldGeometry() (*kernel.Mesh, error) {
	g, err := m.Geometry()
	if err != nil {
		return nil, err
	}
	return g.Transformed(m.rotation, m.position), nil
}

// Extents returns local-frame bounds: the tessellated bounds when known,
// otherwise the solid's bounding box.
func (m *Mesh) Extents() (min, max kernel.Vec3) {
	if m.geometry != nil {
		if lo, hi, ok := m.geometry.Bounds(); ok {
			return lo, hi
		}
	}
	return kernel.Bounds(m.solid)
}

func (m *Mesh) String() string {
	return fmt.Sprintf("%s[%s]", m.name, m.id.Short())
}
