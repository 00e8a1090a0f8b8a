package sdfx

import (
	"math"
	"testing"

	"github.com/chazu/kerf/pkg/geom"
)

func TestPrismBoundingBox(t *testing.T) {
	k := New()
	p, err := k.Prism(geom.Rect(0, 0, 100, 50), 0, 25)
	if err != nil {
		t.Fatalf("Prism failed: %v", err)
	}
	min, max := p.BoundingBox()

	const tol = 0.01
	expectMin := [3]float64{0, 0, 0}
	expectMax := [3]float64{100, 50, 25}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, min[i], expectMin[i])
		}
		if math.Abs(max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, max[i], expectMax[i])
		}
	}
}

func TestPrismWindingIndependent(t *testing.T) {
	k := New()
	cw, err := k.Prism(geom.Rect(0, 0, 10, 10).Oriented(true), 0, 5)
	if err != nil {
		t.Fatalf("Prism failed: %v", err)
	}
	if d := cw.Distance(geom.Vec3{X: 5, Y: 5, Z: 2.5}); d >= 0 {
		t.Errorf("centre distance = %f, want negative", d)
	}
}

func TestPrismRejectsZeroHeight(t *testing.T) {
	if _, err := New().Prism(geom.Rect(0, 0, 1, 1), 3, 3); err == nil {
		t.Fatal("expected error for zero height")
	}
}

func TestDifferenceDistance(t *testing.T) {
	k := New()
	stock, err := k.Prism(geom.Rect(0, 0, 100, 100), 0, 45)
	if err != nil {
		t.Fatal(err)
	}
	pocket, err := k.Prism(geom.Rect(40, 40, 20, 20), 30, 46)
	if err != nil {
		t.Fatal(err)
	}
	cut := k.Difference(stock, pocket)

	tests := []struct {
		name   string
		p      geom.Vec3
		inside bool
	}{
		{"solid corner", geom.Vec3{X: 10, Y: 10, Z: 20}, true},
		{"inside pocket", geom.Vec3{X: 50, Y: 50, Z: 40}, false},
		{"under pocket floor", geom.Vec3{X: 50, Y: 50, Z: 20}, true},
		{"above stock", geom.Vec3{X: 10, Y: 10, Z: 50}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := cut.Distance(tt.p)
			if (d < 0) != tt.inside {
				t.Errorf("Distance(%v) = %f, inside=%v", tt.p, d, tt.inside)
			}
		})
	}
}

func TestToMesh(t *testing.T) {
	k := NewWithResolution(48)
	stock, err := k.Prism(geom.Rect(0, 0, 100, 60), 0, 20)
	if err != nil {
		t.Fatal(err)
	}
	plain, err := k.ToMesh(stock)
	if err != nil {
		t.Fatalf("ToMesh(stock) failed: %v", err)
	}
	if plain.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if len(plain.Vertices) != len(plain.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(plain.Vertices), len(plain.Normals))
	}
	if len(plain.Indices) != plain.TriangleCount()*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(plain.Indices), plain.TriangleCount()*3)
	}
	if plain.VertexCount() >= plain.TriangleCount()*3 {
		t.Errorf("expected shared corners to be welded: %d vertices for %d triangles", plain.VertexCount(), plain.TriangleCount())
	}
	if v := plain.Volume(); math.Abs(v-120000)/120000 > 0.05 {
		t.Errorf("stock volume = %.0f, want about 120000", v)
	}

	hole, err := k.Prism(geom.Circle(geom.Vec2{X: 50, Y: 30}, 12, 32), -1, 21)
	if err != nil {
		t.Fatal(err)
	}
	holed, err := k.ToMesh(k.Difference(stock, hole))
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	if holed.TriangleCount() <= plain.TriangleCount() {
		t.Fatalf("difference (%d triangles) should have more triangles than stock (%d)",
			holed.TriangleCount(), plain.TriangleCount())
	}
}

func TestUnion(t *testing.T) {
	k := New()
	a, _ := k.Prism(geom.Rect(0, 0, 50, 50), 0, 50)
	b, _ := k.Prism(geom.Rect(30, 0, 50, 50), 0, 50)

	u := k.Union(a, b)
	for _, x := range []float64{10, 40, 70} {
		if d := u.Distance(geom.Vec3{X: x, Y: 25, Z: 25}); d >= 0 {
			t.Errorf("union misses x=%v: %f", x, d)
		}
	}
	if d := u.Distance(geom.Vec3{X: 90, Y: 25, Z: 25}); d <= 0 {
		t.Errorf("union contains a point outside both: %f", d)
	}
}
