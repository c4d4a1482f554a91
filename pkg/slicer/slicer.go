// Package slicer cuts scene meshes in two. A pick on a mesh places an
// oriented cutting cube against the picked point; the mesh minus the cube
// and the mesh intersected with the cube become two new meshes with rigid
// bodies, and the original is removed.
package slicer

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/chazu/cleave/pkg/kernel"
	"github.com/chazu/cleave/pkg/physics"
	"github.com/chazu/cleave/pkg/scene"
)

// DefaultCutterSize is the edge length of the cutting cube. It must exceed
// any mesh that will be cut.
const DefaultCutterSize = 100.0

// CutterName is the scene name of the transient cutting cube.
const CutterName = "boxSlicer"

const (
	leftSuffix  = "_slice_left"
	rightSuffix = "_slice_right"
)

// DefaultPieceBody is the body attached to each piece.
var DefaultPieceBody = physics.Impostor{Shape: physics.ShapeBox, Mass: 10, Restitution: 0.5}

var (
	// ErrInvalidPick is returned when there is nothing to slice: no target,
	// or a slice point that is not a finite position.
	ErrInvalidPick = errors.New("slicer: invalid pick")
	// ErrStaleReference is returned for targets that were already disposed
	// or never belonged to the scene. It is an ErrInvalidPick.
	ErrStaleReference = fmt.Errorf("%w: stale mesh reference", ErrInvalidPick)
)

// GeometryError reports a boolean or tessellation failure. When it is
// returned the scene holds the original mesh and no pieces.
type GeometryError struct {
	Mesh string // name of the mesh being produced or cut
	Op   string // "cutter", "boolean", "tessellate", "validate" or "body"
	Err  error
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("slicer: %s %s: %v", e.Op, e.Mesh, e.Err)
}

func (e *GeometryError) Unwrap() error { return e.Err }

// Options configures a Slicer.
type Options struct {
	CutterSize float64
	PieceBody  physics.Impostor
}

// DefaultOptions returns the reference cutter size and piece body.
func DefaultOptions() Options {
	return Options{CutterSize: DefaultCutterSize, PieceBody: DefaultPieceBody}
}

// Slicer performs slice operations. It holds no per-operation state.
type Slicer struct {
	opts Options
}

// New returns a Slicer after checking opts.
func New(opts Options) (*Slicer, error) {
	if opts.CutterSize <= 0 || math.IsInf(opts.CutterSize, 0) || math.IsNaN(opts.CutterSize) {
		return nil, fmt.Errorf("slicer: cutter size must be positive and finite, got %g", opts.CutterSize)
	}
	if err := opts.PieceBody.Validate(); err != nil {
		return nil, fmt.Errorf("slicer: piece body: %w", err)
	}
	if opts.PieceBody.Mass == 0 {
		return nil, fmt.Errorf("slicer: piece body must have positive mass")
	}
	return &Slicer{opts: opts}, nil
}

// Options returns the slicer configuration.
func (s *Slicer) Options() Options { return s.opts }

// Pieces are the two meshes a slice produces.
type Pieces struct {
	Left  *scene.Mesh // original minus the cutter
	Right *scene.Mesh // original intersected with the cutter
}

// CutterPosition returns the cutting cube's centre for a slice through
// point. The centre sits half an edge away in +X and +Z so the cube's
// corner edge passes through point regardless of orientation.
func CutterPosition(point kernel.Vec3, size float64) kernel.Vec3 {
	return kernel.Vec3{
		X: 0.5*size + point.X,
		Y: point.Y,
		Z: 0.5*size + point.Z,
	}
}

// Slice cuts target through point with a cube turned by orientation
// (Euler radians, usually the camera rotation).
//
// On success the scene gains the two pieces, both carrying the configured
// body, and loses target. Invalid or stale targets return an
// ErrInvalidPick without touching the scene. A GeometryError leaves target
// in place. The cutting cube never outlives the call.
func (s *Slicer) Slice(sc *scene.Scene, target *scene.Mesh, point, orientation kernel.Vec3) (*Pieces, error) {
	if sc == nil || target == nil {
		return nil, ErrInvalidPick
	}
	if !point.IsFinite() || !orientation.IsFinite() {
		return nil, fmt.Errorf("%w: slice point %s is not finite", ErrInvalidPick, point)
	}
	if !sc.Owns(target) {
		return nil, fmt.Errorf("%w: %s", ErrStaleReference, target.Name())
	}

	size := s.opts.CutterSize
	cutter, err := sc.CreateBox(CutterName, size, size, size)
	if err != nil {
		return nil, &GeometryError{Mesh: target.Name(), Op: "cutter", Err: err}
	}
	defer func() { _ = sc.Dispose(cutter) }()
	cutter.SetPickable(false)
	cutter.SetVisible(false)
	cutter.SetRotation(orientation)
	cutter.SetPosition(CutterPosition(point, size))

	k := sc.Kernel()
	whole := target.WorldSolid()
	cut := cutter.WorldSolid()

	// The target goes first so the results keep its bounds.
	left, err := materialize(sc, target.Name()+leftSuffix, k.Difference(whole, cut))
	if err != nil {
		return nil, err
	}
	right, err := materialize(sc, target.Name()+rightSuffix, k.Intersection(whole, cut))
	if err != nil {
		_ = sc.Dispose(left)
		return nil, err
	}

	for _, p := range []*scene.Mesh{left, right} {
		p.SetMaterial(target.Material())
		if _, err := sc.AttachBody(p, s.opts.PieceBody); err != nil {
			_ = sc.Dispose(left)
			_ = sc.Dispose(right)
			return nil, &GeometryError{Mesh: p.Name(), Op: "body", Err: err}
		}
	}

	if err := sc.Dispose(target); err != nil {
		_ = sc.Dispose(left)
		_ = sc.Dispose(right)
		return nil, fmt.Errorf("slicer: dispose %s: %w", target.Name(), err)
	}
	return &Pieces{Left: left, Right: right}, nil
}

// materialize tessellates a world-space solid and adds it to the scene as
// a mesh centred on its bounds.
func materialize(sc *scene.Scene, name string, solid kernel.Solid) (*scene.Mesh, error) {
	if solid == nil {
		return nil, &GeometryError{Mesh: name, Op: "boolean", Err: errors.New("kernel produced no solid")}
	}
	k := sc.Kernel()
	g, err := k.ToMesh(solid)
	if err != nil {
		return nil, &GeometryError{Mesh: name, Op: "tessellate", Err: err}
	}
	if err := g.Validate(); err != nil {
		return nil, &GeometryError{Mesh: name, Op: "validate", Err: err}
	}

	// An empty side still becomes a mesh; it falls back to the solid bounds.
	lo, hi, ok := g.Bounds()
	if !ok {
		lo, hi = kernel.Bounds(solid)
	}
	center := lo.Add(hi).Scale(0.5)

	local := k.Translate(solid, -center.X, -center.Y, -center.Z)
	m, err := sc.CreateMeshFromGeometry(name, local, g.Transformed(kernel.Vec3{}, center.Scale(-1)), center)
	if err != nil {
		return nil, &GeometryError{Mesh: name, Op: "boolean", Err: err}
	}
	return m, nil
}

// OnPointerDown handles a pick event. Picks that miss, and stale targets,
// are ignored. Geometry failures are logged and returned.
func (s *Slicer) OnPointerDown(sc *scene.Scene, pick scene.PickInfo, orientation kernel.Vec3) (*Pieces, error) {
	if !pick.Hit || pick.Mesh == nil {
		return nil, nil
	}
	pieces, err := s.Slice(sc, pick.Mesh, pick.Point, orientation)
	if errors.Is(err, ErrInvalidPick) {
		return nil, nil
	}
	if err != nil {
		log.Printf("slice %s failed, keeping original: %v", pick.Mesh.Name(), err)
		return nil, err
	}
	return pieces, nil
}

// PointerDown picks through the scene camera at (x, y) on a viewport of
// the given size and slices what it hits, oriented by the camera.
func (s *Slicer) PointerDown(sc *scene.Scene, x, y, width, height float64) (*Pieces, error) {
	if sc == nil || sc.Camera == nil {
		return nil, nil
	}
	pick, err := sc.PickAt(x, y, width, height)
	if err != nil {
		return nil, err
	}
	return s.OnPointerDown(sc, pick, sc.Camera.Rotation)
}
