package scene

import (
	"fmt"
	"math"

	"github.com/chazu/cleave/pkg/kernel"
)

const pickEpsilon = 1e-9

// Ray is a half-line from Origin along Direction.
type Ray struct {
	Origin    kernel.Vec3
	Direction kernel.Vec3
}

// At returns the point at parameter t.
func (r Ray) At(t float64) kernel.Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// PickInfo is the outcome of a pick query. Hit is false when the ray
// missed every pickable mesh, in which case the other fields are zero.
type PickInfo struct {
	Hit      bool
	Mesh     *Mesh
	Point    kernel.Vec3
	Distance float64
}

// Pick returns the nearest intersection of ray with a pickable, visible
// mesh. Meshes that fail to tessellate are skipped.
func (s *Scene) Pick(ray Ray) PickInfo {
	dir := ray.Direction.Normalize()
	if dir.IsZero() || !dir.IsFinite() || !ray.Origin.IsFinite() {
		return PickInfo{}
	}
	ray.Direction = dir

	best := PickInfo{Distance: math.Inf(1)}
	for _, m := range s.Meshes() {
		if !m.pickable || !m.visible {
			continue
		}
		g, err := m.Geometry()
		if err != nil || g.IsEmpty() {
			continue
		}
		local := Ray{
			Origin:    ray.Origin.Sub(m.position).InverseRotate(m.rotation),
			Direction: dir.InverseRotate(m.rotation),
		}
		lo, hi, _ := g.Bounds()
		if !rayHitsBox(local, lo, hi, best.Distance) {
			continue
		}
		for t := 0; t < g.TriangleCount(); t++ {
			a, b, c := g.Triangle(t)
			if d, ok := intersectTriangle(local, a, b, c); ok && d < best.Distance {
				best = PickInfo{Hit: true, Mesh: m, Distance: d}
			}
		}
	}
	if !best.Hit {
		return PickInfo{}
	}
	// Rotation preserves length, so the local distance is the world distance.
	best.Point = ray.At(best.Distance)
	return best
}

// PickAt casts a ray from the scene camera through the pointer position.
func (s *Scene) PickAt(x, y, width, height float64) (PickInfo, error) {
	if s.Camera == nil {
		return PickInfo{}, fmt.Errorf("scene: no camera to pick with")
	}
	ray, err := s.Camera.Ray(x, y, width, height)
	if err != nil {
		return PickInfo{}, err
	}
	return s.Pick(ray), nil
}

// intersectTriangle is the Möller–Trumbore test. Both faces count.
func intersectTriangle(r Ray, a, b, c kernel.Vec3) (float64, bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := r.Direction.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < pickEpsilon {
		return 0, false
	}
	inv := 1 / det
	tv := r.Origin.Sub(a)
	u := tv.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := tv.Cross(e1)
	v := r.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t <= pickEpsilon {
		return 0, false
	}
	return t, true
}

// rayHitsBox is a slab test against [lo, hi] limited to distance maxT.
func rayHitsBox(r Ray, lo, hi kernel.Vec3, maxT float64) bool {
	tmin, tmax := 0.0, maxT
	o := [3]float64{r.Origin.X, r.Origin.Y, r.Origin.Z}
	d := [3]float64{r.Direction.X, r.Direction.Y, r.Direction.Z}
	l := [3]float64{lo.X, lo.Y, lo.Z}
	h := [3]float64{hi.X, hi.Y, hi.Z}
	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < pickEpsilon {
			if o[i] < l[i] || o[i] > h[i] {
				return false
			}
			continue
		}
		t1 := (l[i] - o[i]) / d[i]
		t2 := (h[i] - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return false
		}
	}
	return true
}
