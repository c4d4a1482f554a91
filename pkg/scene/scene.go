// Package scene is the scene graph the slicer and the scripting engine
// operate on: meshes built from kernel solids, a free camera, lights,
// material descriptors and an environment. A Scene also owns the physics
// world its meshes' bodies live in.
//
// A Scene is single-threaded. Callers that share one across goroutines
// must serialize access themselves.
package scene

import (
	"errors"
	"fmt"

	"github.com/chazu/cleave/pkg/kernel"
	"github.com/chazu/cleave/pkg/physics"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// GroundThickness is the slab depth used for ground meshes. The top face
// of a ground sits at the mesh position.
const GroundThickness = 0.05

// DefaultGravity is used when a scene is created without a world.
var DefaultGravity = kernel.Vec3{Y: -9.81}

var (
	// ErrDisposed is returned for operations on a disposed mesh.
	ErrDisposed = errors.New("scene: mesh has been disposed")
	// ErrForeignMesh is returned when a mesh is used with a scene that does not own it.
	ErrForeignMesh = errors.New("scene: mesh belongs to another scene")
)

// MeshID uniquely identifies a mesh for the lifetime of the process.
type MeshID string

// NewMeshID returns a fresh random mesh ID.
func NewMeshID() MeshID {
	return MeshID(uuid.NewString())
}

// Short returns the first eight characters of the ID for log messages.
func (id MeshID) Short() string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

// Scene holds the meshes, camera, lights, materials and environment of
// one interactive session.
type Scene struct {
	Camera      *Camera
	Lights      []*HemisphericLight
	Environment *Environment

	kernel    kernel.Kernel
	world     *physics.World
	meshes    map[MeshID]*Mesh
	order     []MeshID
	materials map[string]Material
}

// New creates an empty scene backed by the given kernel and physics world.
// A nil world is replaced by one with DefaultGravity.
func New(k kernel.Kernel, world *physics.World) *Scene {
	if world == nil {
		world = physics.NewWorld(DefaultGravity)
	}
	return &Scene{
		kernel:    k,
		world:     world,
		meshes:    make(map[MeshID]*Mesh),
		materials: make(map[string]Material),
	}
}

// Kernel returns the geometry kernel meshes are built with.
func (s *Scene) Kernel() kernel.Kernel { return s.kernel }

// World returns the physics world.
func (s *Scene) World() *physics.World { return s.world }

// CreateBox adds a box centered on its position.
func (s *Scene) CreateBox(name string, width, height, depth float64) (*Mesh, error) {
	solid, err := s.kernel.Box(width, height, depth)
	if err != nil {
		return nil, fmt.Errorf("scene: box %q: %w", name, err)
	}
	return s.CreateMesh(name, solid)
}

// CreateSphere adds a sphere centered on its position.
func (s *Scene) CreateSphere(name string, diameter float64) (*Mesh, error) {
	solid, err := s.kernel.Sphere(diameter / 2)
	if err != nil {
		return nil, fmt.Errorf("scene: sphere %q: %w", name, err)
	}
	return s.CreateMesh(name, solid)
}

// CreateCylinder adds an upright cylinder centered on its position.
func (s *Scene) CreateCylinder(name string, height, diameter float64) (*Mesh, error) {
	solid, err := s.kernel.Cylinder(height, diameter/2, 32)
	if err != nil {
		return nil, fmt.Errorf("scene: cylinder %q: %w", name, err)
	}
	// Kernel cylinders run along Z; stand it up along Y.
	return s.CreateMesh(name, s.kernel.Rotate(solid, -halfPi, 0, 0))
}

// CreateGround adds a thin horizontal slab whose top face lies at the
// mesh position.
func (s *Scene) CreateGround(name string, width, depth float64) (*Mesh, error) {
	solid, err := s.kernel.Box(width, GroundThickness, depth)
	if err != nil {
		return nil, fmt.Errorf("scene: ground %q: %w", name, err)
	}
	return s.CreateMesh(name, s.kernel.Translate(solid, 0, -GroundThickness/2, 0))
}

// CreateMesh adds a mesh for an arbitrary solid at the origin.
func (s *Scene) CreateMesh(name string, solid kernel.Solid) (*Mesh, error) {
	if solid == nil {
		return nil, fmt.Errorf("scene: mesh %q has no solid", name)
	}
	m := &Mesh{
		id:       NewMeshID(),
		name:     name,
		scene:    s,
		solid:    solid,
		pickable: true,
		visible:  true,
	}
	s.meshes[m.id] = m
	s.order = append(s.order, m.id)
	return m, nil
}

// CreateMeshFromGeometry adds a mesh whose tessellation is already known.
// geometry must be expressed in the solid's local frame.
func (s *Scene) CreateMeshFromGeometry(name string, solid kernel.Solid, geometry *kernel.Mesh, position kernel.Vec3) (*Mesh, error) {
	m, err := s.CreateMesh(name, solid)
	if err != nil {
		return nil, err
	}
	if geometry != nil {
		geometry.Name = name
		m.geometry = geometry
	}
	m.position = position
	return m, nil
}

// Dispose removes m from the scene and detaches its body. Disposing twice
// returns ErrDisposed.
func (s *Scene) Dispose(m *Mesh) error {
	if m == nil {
		return fmt.Errorf("scene: cannot dispose a nil mesh")
	}
	if m.disposed {
		return fmt.Errorf("%w: %s", ErrDisposed, m.name)
	}
	if m.scene != s {
		return fmt.Errorf("%w: %s", ErrForeignMesh, m.name)
	}
	if m.body != nil {
		if err := s.world.Detach(m.body); err != nil && !errors.Is(err, physics.ErrNotAttached) {
			return fmt.Errorf("scene: dispose %s: %w", m.name, err)
		}
		m.body = nil
	}
	delete(s.meshes, m.id)
	s.order = lo.Without(s.order, m.id)
	m.disposed = true
	m.geometry = nil
	return nil
}

// Owns reports whether m is a live mesh of this scene.
func (s *Scene) Owns(m *Mesh) bool {
	return m != nil && !m.disposed && m.scene == s && s.meshes[m.id] == m
}

// Mesh returns the live mesh with the given ID, or nil.
func (s *Scene) Mesh(id MeshID) *Mesh {
	return s.meshes[id]
}

// Lookup returns the oldest live mesh with the given name, or nil.
func (s *Scene) Lookup(name string) *Mesh {
	for _, id := range s.order {
		if m := s.meshes[id]; m.name == name {
			return m
		}
	}
	return nil
}

// Meshes returns the live meshes in creation order.
func (s *Scene) Meshes() []*Mesh {
	return lo.FilterMap(s.order, func(id MeshID, _ int) (*Mesh, bool) {
		m, ok := s.meshes[id]
		return m, ok
	})
}

// Count returns the number of live meshes.
func (s *Scene) Count() int {
	return len(s.meshes)
}

// AttachBody gives m a rigid body in the scene's world.
func (s *Scene) AttachBody(m *Mesh, imp physics.Impostor) (*physics.Body, error) {
	if !s.Owns(m) {
		if m != nil && m.disposed {
			return nil, fmt.Errorf("%w: %s", ErrDisposed, m.name)
		}
		return nil, ErrForeignMesh
	}
	b, err := s.world.Attach(m, imp)
	if err != nil {
		return nil, err
	}
	m.body = b
	return b, nil
}

// Render advances the scene by one frame of elapsed seconds: physics is
// stepped and driven meshes take their bodies' positions. It returns the
// number of physics sub-steps taken.
func (s *Scene) Render(elapsed float64) int {
	return s.world.Step(elapsed)
}
