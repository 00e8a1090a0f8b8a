// Package kernel defines the geometry interfaces kerf consumes. Query is
// the narrow face lookup the feature catalog resolves base geometry
// through; Kernel is the solid modelling backend used to validate a
// prepared model. Implementations live in subpackages (brep for Query,
// sdfx for Kernel) so either can be swapped without touching planning.
package kernel

import (
	"fmt"

	"github.com/chazu/kerf/pkg/geom"
)

// FaceKind classifies a face by orientation.
type FaceKind int

const (
	FaceHorizontal FaceKind = iota // planar, normal parallel to Z
	FaceWall                       // vertical, spans a Z range
)

func (k FaceKind) String() string {
	switch k {
	case FaceHorizontal:
		return "horizontal"
	case FaceWall:
		return "wall"
	default:
		return fmt.Sprintf("FaceKind(%d)", int(k))
	}
}

// Face is a boundary face of the machined part.
//
// Horizontal faces carry their outer Outline and any Holes. Wall faces are
// vertical strips whose Outline is the two-point XY edge they stand on.
type Face struct {
	Ref     string         `json:"ref"` // stable reference, "Face1", "Face2", ...
	Kind    FaceKind       `json:"kind"`
	ZMin    float64        `json:"z_min"`
	ZMax    float64        `json:"z_max"`
	Outline geom.Polygon   `json:"outline"`
	Holes   []geom.Polygon `json:"holes,omitempty"`
	Owner   string         `json:"owner"` // feature that created the face
	Up      bool           `json:"up"`    // horizontal faces: material lies below
}

// Bounds returns the XY bounding box of the face.
func (f Face) Bounds() geom.Box2 { return f.Outline.Bounds() }

// Edge returns the XY segment of a wall face.
func (f Face) Edge() (geom.Segment2, bool) {
	if f.Kind != FaceWall || len(f.Outline) != 2 {
		return geom.Segment2{}, false
	}
	return geom.Segment2{A: f.Outline[0], B: f.Outline[1]}, true
}

// Query answers face lookups against a loaded model. Both methods are
// read-only and may return no faces.
type Query interface {
	// FacesAt returns horizontal faces at height z related to the feature
	// ref. An empty ref matches every face at that height.
	FacesAt(z float64, ref string) []Face

	// WallFacesOf returns the vertical faces created by the feature ref.
	WallFacesOf(ref string) []Face
}

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)

	// Distance is the signed distance from p to the surface, negative inside.
	Distance(p geom.Vec3) float64
}

// Kernel is the solid modelling backend.
type Kernel interface {
	// Prism extrudes a closed outline between two heights.
	Prism(outline geom.Polygon, zMin, zMax float64) (Solid, error)

	// Union joins two solids; Difference removes b from a.
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
