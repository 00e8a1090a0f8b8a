package kernel

import (
	"math"

	"github.com/chazu/kerf/pkg/geom"
)

// Mesh is an indexed triangle mesh of a solid. Vertices and Normals hold
// three floats per vertex; Indices holds three vertex indices per
// triangle, counter-clockwise seen from outside.
type Mesh struct {
	Vertices []float32
	Normals  []float32
	Indices  []uint32
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Vertices) / 3 }

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// IsEmpty reports whether the mesh has no triangles.
func (m *Mesh) IsEmpty() bool { return len(m.Indices) == 0 }

func (m *Mesh) vertex(i uint32) geom.Vec3 {
	return geom.Vec3{
		X: float64(m.Vertices[3*i]),
		Y: float64(m.Vertices[3*i+1]),
		Z: float64(m.Vertices[3*i+2]),
	}
}

// Bounds returns the corners of the axis-aligned box around every vertex.
// An empty mesh has zero bounds.
func (m *Mesh) Bounds() (lo, hi geom.Vec3) {
	n := m.VertexCount()
	if n == 0 {
		return lo, hi
	}
	lo, hi = m.vertex(0), m.vertex(0)
	for i := 1; i < n; i++ {
		v := m.vertex(uint32(i))
		lo = geom.Vec3{X: math.Min(lo.X, v.X), Y: math.Min(lo.Y, v.Y), Z: math.Min(lo.Z, v.Z)}
		hi = geom.Vec3{X: math.Max(hi.X, v.X), Y: math.Max(hi.Y, v.Y), Z: math.Max(hi.Z, v.Z)}
	}
	return lo, hi
}

// Volume is the enclosed volume of a closed mesh, summed over the signed
// tetrahedra each triangle forms with the origin.
func (m *Mesh) Volume() float64 {
	var sum float64
	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := m.vertex(m.Indices[t]), m.vertex(m.Indices[t+1]), m.vertex(m.Indices[t+2])
		sum += a.X*(b.Y*c.Z-b.Z*c.Y) - a.Y*(b.X*c.Z-b.Z*c.X) + a.Z*(b.X*c.Y-b.Y*c.X)
	}
	return math.Abs(sum) / 6
}
