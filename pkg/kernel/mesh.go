package kernel

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedMesh is returned by Validate for meshes whose arrays are
// inconsistent or contain non-finite coordinates.
var ErrMalformedMesh = errors.New("malformed mesh")

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	Name     string    `json:"name"`     // which scene mesh this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns vertex i as a Vec3.
func (m *Mesh) Vertex(i int) Vec3 {
	return Vec3{float64(m.Vertices[i*3]), float64(m.Vertices[i*3+1]), float64(m.Vertices[i*3+2])}
}

// Triangle returns the three corners of triangle t.
func (m *Mesh) Triangle(t int) (a, b, c Vec3) {
	return m.Vertex(int(m.Indices[t*3])), m.Vertex(int(m.Indices[t*3+1])), m.Vertex(int(m.Indices[t*3+2]))
}

// Bounds returns the axis-aligned bounds of the vertices.
// ok is false for an empty mesh.
func (m *Mesh) Bounds() (min, max Vec3, ok bool) {
	n := m.VertexCount()
	if n == 0 {
		return Vec3{}, Vec3{}, false
	}
	min = m.Vertex(0)
	max = min
	for i := 1; i < n; i++ {
		v := m.Vertex(i)
		min = min.Min(v)
		max = max.Max(v)
	}
	return min, max, true
}

// Volume returns the enclosed volume computed from signed tetrahedra
// against the origin. It is only meaningful for closed meshes; winding
// direction does not matter.
func (m *Mesh) Volume() float64 {
	var sum float64
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		sum += a.Dot(b.Cross(c))
	}
	return math.Abs(sum) / 6
}

// Validate checks that the arrays are consistent: whole vertices and
// triangles, matching normals, indices in range and finite coordinates.
// An empty mesh is valid.
func (m *Mesh) Validate() error {
	if len(m.Vertices)%3 != 0 {
		return fmt.Errorf("%w: vertex array length %d is not a multiple of 3", ErrMalformedMesh, len(m.Vertices))
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: index array length %d is not a multiple of 3", ErrMalformedMesh, len(m.Indices))
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Vertices) {
		return fmt.Errorf("%w: %d normals for %d vertex floats", ErrMalformedMesh, len(m.Normals), len(m.Vertices))
	}
	n := uint32(m.VertexCount())
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("%w: index %d at position %d out of range (%d vertices)", ErrMalformedMesh, idx, i, n)
		}
	}
	for i, f := range m.Vertices {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Errorf("%w: non-finite coordinate at position %d", ErrMalformedMesh, i)
		}
	}
	return nil
}

// Transformed returns a copy of the mesh rotated by euler (radians, X
// then Y then Z) and then translated by offset. Index data is shared.
func (m *Mesh) Transformed(euler, offset Vec3) *Mesh {
	out := &Mesh{
		Vertices: make([]float32, len(m.Vertices)),
		Normals:  make([]float32, len(m.Normals)),
		Indices:  m.Indices,
		Name:     m.Name,
	}
	rotate := !euler.IsZero()
	for i := 0; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		if rotate {
			v = v.Rotate(euler)
		}
		v = v.Add(offset)
		out.Vertices[i*3] = float32(v.X)
		out.Vertices[i*3+1] = float32(v.Y)
		out.Vertices[i*3+2] = float32(v.Z)
	}
	if !rotate {
		copy(out.Normals, m.Normals)
		return out
	}
	for i := 0; i+2 < len(m.Normals); i += 3 {
		n := Vec3{float64(m.Normals[i]), float64(m.Normals[i+1]), float64(m.Normals[i+2])}.Rotate(euler)
		out.Normals[i] = float32(n.X)
		out.Normals[i+1] = float32(n.Y)
		out.Normals[i+2] = float32(n.Z)
	}
	return out
}
