// Package sdfx is the kernel.Kernel used to check prepared models: stock
// and pockets become extruded signed distance fields from
// github.com/deadsy/sdfx, combined with its CSG operations.
package sdfx

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
)

var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells is the marching cubes resolution along the longest axis.
const DefaultMeshCells = 200

type sdfxSolid struct {
	s sdf.SDF3
}

func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// Distance is negative inside the solid.
func (s *sdfxSolid) Distance(p geom.Vec3) float64 {
	return s.s.Evaluate(v3.Vec{X: p.X, Y: p.Y, Z: p.Z})
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// New returns a new SdfxKernel meshing at DefaultMeshCells.
func New() *SdfxKernel {
	return &SdfxKernel{cells: DefaultMeshCells}
}

// NewWithResolution returns a kernel whose ToMesh uses the given number of
// marching cubes cells along the longest axis.
func NewWithResolution(cells int) *SdfxKernel {
	if cells <= 0 {
		cells = DefaultMeshCells
	}
	return &SdfxKernel{cells: cells}
}

func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// Prism extrudes outline from zMin to zMax. sdf.Extrude3D centres the
// extrusion on Z=0, so the result is shifted to the requested span.
func (k *SdfxKernel) Prism(outline geom.Polygon, zMin, zMax float64) (kernel.Solid, error) {
	h := zMax - zMin
	if h <= 0 {
		return nil, fmt.Errorf("prism height must be positive, got %g", h)
	}
	verts := make([]v2.Vec, len(outline))
	for i, p := range outline.Oriented(false) {
		verts[i] = v2.Vec{X: p.X, Y: p.Y}
	}
	profile, err := sdf.Polygon2D(verts)
	if err != nil {
		return nil, fmt.Errorf("sdfx.Polygon2D: %w", err)
	}
	s := sdf.Extrude3D(profile, h)
	m := sdf.Translate3d(v3.Vec{Z: zMin + h/2})
	return wrap(sdf.Transform3D(s, m)), nil
}

func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Union3D(unwrap(a), unwrap(b)))
}

// Difference removes b from a.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// ToMesh tessellates s with marching cubes. Coincident corners of
// neighbouring triangles are welded into one vertex whose normal is the
// average of the faces sharing it.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	triangles := render.ToTriangles(unwrap(s), render.NewMarchingCubesUniform(k.cells))
	if len(triangles) == 0 {
		return nil, fmt.Errorf("solid produced no triangles at %d cells", k.cells)
	}

	type key [3]float32
	index := make(map[key]uint32, len(triangles))
	var sums []v3.Vec
	m := &kernel.Mesh{Indices: make([]uint32, 0, len(triangles)*3)}

	for _, tri := range triangles {
		n := tri.Normal()
		for _, v := range tri {
			kv := key{float32(v.X), float32(v.Y), float32(v.Z)}
			i, ok := index[kv]
			if !ok {
				i = uint32(len(sums))
				index[kv] = i
				sums = append(sums, v3.Vec{})
				m.Vertices = append(m.Vertices, kv[0], kv[1], kv[2])
			}
			sums[i] = sums[i].Add(n)
			m.Indices = append(m.Indices, i)
		}
	}

	m.Normals = make([]float32, 0, len(m.Vertices))
	for _, n := range sums {
		if l := n.Length(); l > 0 {
			n = n.DivScalar(l)
		}
		m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
	}
	return m, nil
}
