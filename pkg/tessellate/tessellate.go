// Package tessellate turns a scene into world-space triangle meshes for
// the renderer. One mesh is produced per visible scene mesh.
package tessellate

import (
	"fmt"

	"github.com/chazu/cleave/pkg/kernel"
	"github.com/chazu/cleave/pkg/scene"
	"github.com/samber/lo"
)

// Part is one renderable mesh and the scene material it is drawn with.
type Part struct {
	*kernel.Mesh
	Material string
}

// Tessellate returns the world-space geometry of every visible mesh in
// creation order. Local-frame tessellation is cached on each mesh, so a
// frame only pays for re-posing vertices. The scene is never mutated
// beyond that cache.
func Tessellate(sc *scene.Scene) ([]Part, error) {
	if sc == nil {
		return nil, nil
	}

	visible := lo.Filter(sc.Meshes(), func(m *scene.Mesh, _ int) bool {
		return m.Visible()
	})

	parts := make([]Part, 0, len(visible))
	for _, m := range visible {
		g, err := m.WorldGeometry()
		if err != nil {
			return nil, fmt.Errorf("tessellate: mesh %s: %w", m, err)
		}
		g.Name = m.Name()
		if g.Name == "" {
			g.Name = m.ID().Short()
		}
		parts = append(parts, Part{Mesh: g, Material: m.Material()})
	}
	return parts, nil
}

// Stats summarises a tessellated frame.
type Stats struct {
	Meshes    int
	Vertices  int
	Triangles int
}

// Summarize counts vertices and triangles across parts.
func Summarize(parts []Part) Stats {
	return Stats{
		Meshes:    len(parts),
		Vertices:  lo.SumBy(parts, func(p Part) int { return p.VertexCount() }),
		Triangles: lo.SumBy(parts, func(p Part) int { return p.TriangleCount() }),
	}
}
