package kernel

import (
	"math"
	"testing"

	"github.com/chazu/kerf/pkg/geom"
)

// cube is a closed 10x20x30 box from the origin, wound outward.
func cube() *Mesh {
	m := &Mesh{Vertices: []float32{
		0, 0, 0, 10, 0, 0, 10, 20, 0, 0, 20, 0,
		0, 0, 30, 10, 0, 30, 10, 20, 30, 0, 20, 30,
	}}
	m.Indices = []uint32{
		0, 2, 1, 0, 3, 2, // bottom
		4, 5, 6, 4, 6, 7, // top
		0, 1, 5, 0, 5, 4, // front
		2, 3, 7, 2, 7, 6, // back
		1, 2, 6, 1, 6, 5, // right
		3, 0, 4, 3, 4, 7, // left
	}
	return m
}

func TestMeshCounts(t *testing.T) {
	tests := []struct {
		name      string
		mesh      *Mesh
		vertices  int
		triangles int
		empty     bool
	}{
		{"empty", &Mesh{}, 0, 0, true},
		{"vertices only", &Mesh{Vertices: []float32{1, 2, 3}}, 1, 0, true},
		{"cube", cube(), 8, 12, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mesh.VertexCount(); got != tt.vertices {
				t.Errorf("VertexCount() = %d, want %d", got, tt.vertices)
			}
			if got := tt.mesh.TriangleCount(); got != tt.triangles {
				t.Errorf("TriangleCount() = %d, want %d", got, tt.triangles)
			}
			if got := tt.mesh.IsEmpty(); got != tt.empty {
				t.Errorf("IsEmpty() = %v, want %v", got, tt.empty)
			}
		})
	}
}

func TestMeshBoundsAndVolume(t *testing.T) {
	lo, hi := cube().Bounds()
	if lo != (geom.Vec3{}) || hi != (geom.Vec3{X: 10, Y: 20, Z: 30}) {
		t.Errorf("Bounds() = %v %v", lo, hi)
	}
	if v := cube().Volume(); math.Abs(v-6000) > 1e-6 {
		t.Errorf("Volume() = %v, want 6000", v)
	}

	lo, hi = (&Mesh{}).Bounds()
	if lo != (geom.Vec3{}) || hi != (geom.Vec3{}) {
		t.Errorf("empty Bounds() = %v %v", lo, hi)
	}
	if v := (&Mesh{}).Volume(); v != 0 {
		t.Errorf("empty Volume() = %v", v)
	}
}

// --- Face helpers ---

func TestFaceEdge(t *testing.T) {
	wall := Face{Kind: FaceWall, Outline: geom.Polygon{{X: 0, Y: 0}, {X: 10, Y: 0}}}
	e, ok := wall.Edge()
	if !ok {
		t.Fatal("Edge() not ok for wall face")
	}
	if e.Len() != 10 {
		t.Errorf("edge length = %v, want 10", e.Len())
	}

	floor := Face{Kind: FaceHorizontal, Outline: geom.Rect(0, 0, 5, 5)}
	if _, ok := floor.Edge(); ok {
		t.Error("Edge() should fail for horizontal faces")
	}
	if b := floor.Bounds(); b.Width() != 5 || b.Height() != 5 {
		t.Errorf("Bounds() = %v", b)
	}
}

// --- Compile-time interface check with a stub kernel ---

// stubSolid is an axis-aligned box.
type stubSolid struct {
	minBB, maxBB [3]float64
}

func (s *stubSolid) BoundingBox() (min, max [3]float64) {
	return s.minBB, s.maxBB
}

func (s *stubSolid) Distance(p geom.Vec3) float64 {
	d := math.Inf(-1)
	for i, v := range [3]float64{p.X, p.Y, p.Z} {
		d = math.Max(d, math.Max(s.minBB[i]-v, v-s.maxBB[i]))
	}
	return d
}

// stubKernel proves the interface is satisfiable with trivial results.
type stubKernel struct{}

func (k *stubKernel) Prism(outline geom.Polygon, zMin, zMax float64) (Solid, error) {
	b := outline.Bounds()
	return &stubSolid{
		minBB: [3]float64{b.Min.X, b.Min.Y, zMin},
		maxBB: [3]float64{b.Max.X, b.Max.Y, zMax},
	}, nil
}

func (k *stubKernel) Union(a, _ Solid) Solid      { return a }
func (k *stubKernel) Difference(a, _ Solid) Solid { return a }

func (k *stubKernel) ToMesh(_ Solid) (*Mesh, error) {
	return &Mesh{}, nil
}

// Compile-time checks that the stubs implement the interfaces.
var _ Solid = (*stubSolid)(nil)
var _ Kernel = (*stubKernel)(nil)

func TestStubKernelPrism(t *testing.T) {
	var k Kernel = &stubKernel{}
	s, err := k.Prism(geom.Rect(0, 0, 10, 20), 0, 30)
	if err != nil {
		t.Fatal(err)
	}
	min, max := s.BoundingBox()
	if min != [3]float64{0, 0, 0} {
		t.Errorf("Prism min = %v, want [0 0 0]", min)
	}
	if max != [3]float64{10, 20, 30} {
		t.Errorf("Prism max = %v, want [10 20 30]", max)
	}
	if d := s.Distance(geom.Vec3{X: 5, Y: 5, Z: 5}); d >= 0 {
		t.Errorf("Distance inside = %v, want negative", d)
	}
}

func TestStubKernelToMesh(t *testing.T) {
	var k Kernel = &stubKernel{}
	s, _ := k.Prism(geom.Rect(0, 0, 1, 1), 0, 1)
	m, err := k.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh() error = %v", err)
	}
	if m == nil {
		t.Fatal("ToMesh() returned nil mesh")
	}
	if !m.IsEmpty() {
		t.Error("stub ToMesh() should return empty mesh")
	}
}
