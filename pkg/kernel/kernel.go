// Package kernel defines the abstract geometry kernel interface.
// Implementations (sdfx, manifold) provide solid modeling and
// boolean operations behind this interface. The scene and the slicer
// only ever talk to a Kernel, so backends can be swapped freely.
package kernel

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
//
// Primitives are centered on the origin. Constructors return an error
// for non-positive dimensions. Boolean operations return nil when either
// operand is nil.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) (Solid, error)
	Sphere(radius float64) (Solid, error)
	Cylinder(height, radius float64, segments int) (Solid, error)

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in radians, applied X, Y, Z

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}

// Bounds returns a solid's bounding box as a pair of vectors.
func Bounds(s Solid) (min, max Vec3) {
	lo, hi := s.BoundingBox()
	return Vec3{lo[0], lo[1], lo[2]}, Vec3{hi[0], hi[1], hi[2]}
}
