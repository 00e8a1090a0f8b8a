// Package brep builds an analytic boundary representation of a prepared
// model and answers kernel.Query lookups against it.
//
// Every feature of a kerf model is a vertical prism, so the boundary is
// made of horizontal faces (pad top and bottom, pocket floors and
// ceilings) and vertical wall strips, one per profile edge. Faces are
// numbered in a fixed order (features in declaration order; per feature
// the horizontal faces first, then the walls) so references are stable
// across runs.
package brep

import (
	"fmt"
	"math"

	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/model"
)

const (
	// ZTolerance is how far a face may sit from the queried height.
	ZTolerance = 0.5

	// FootprintTolerance grows a feature footprint when matching faces
	// that lie inside it.
	FootprintTolerance = 1.0
)

var _ kernel.Query = (*Shape)(nil)

// Shape is the boundary of a machined part.
type Shape struct {
	faces   []kernel.Face
	extents map[string]model.Extent
	stock   model.Extent
}

// Build computes the boundary of m. Every sketch must be resolved.
func Build(m *model.Model) (*Shape, error) {
	stock, err := m.Stock()
	if err != nil {
		return nil, err
	}
	s := &Shape{extents: make(map[string]model.Extent), stock: stock}

	for _, f := range m.Features {
		ext, err := m.Extent(f)
		if err != nil {
			return nil, err
		}
		ext.ZMin = math.Max(ext.ZMin, stock.ZMin)
		ext.ZMax = math.Min(ext.ZMax, stock.ZMax)
		s.extents[f.Name] = ext
		if ext.ZMax-ext.ZMin <= geom.Epsilon {
			continue
		}

		switch d := f.Data.(type) {
		case model.PadData:
			s.addHorizontal(f.Name, ext.ZMin, ext.Outline, false)
			s.addHorizontal(f.Name, ext.ZMax, ext.Outline, true)
		case model.PocketData:
			if d.Direction == model.CutUp {
				if ext.ZMax < stock.ZMax-geom.Epsilon {
					s.addHorizontal(f.Name, ext.ZMax, ext.Outline, false)
				}
			} else if ext.ZMin > stock.ZMin+geom.Epsilon {
				s.addHorizontal(f.Name, ext.ZMin, ext.Outline, true)
			}
		default:
			return nil, fmt.Errorf("feature %q: unsupported data %T", f.Name, f.Data)
		}
		for i := range ext.Outline {
			e := ext.Outline.Edge(i)
			s.faces = append(s.faces, kernel.Face{
				Kind:    kernel.FaceWall,
				ZMin:    ext.ZMin,
				ZMax:    ext.ZMax,
				Outline: geom.Polygon{e.A, e.B},
				Owner:   f.Name,
			})
		}
	}

	for i := range s.faces {
		s.faces[i].Ref = fmt.Sprintf("Face%d", i+1)
		if s.faces[i].Kind == kernel.FaceHorizontal {
			s.faces[i].Holes = s.holesIn(m, s.faces[i])
		}
	}
	return s, nil
}

func (s *Shape) addHorizontal(owner string, z float64, outline geom.Polygon, up bool) {
	s.faces = append(s.faces, kernel.Face{
		Kind:    kernel.FaceHorizontal,
		ZMin:    z,
		ZMax:    z,
		Outline: outline.Clone(),
		Owner:   owner,
		Up:      up,
	})
}

// holesIn returns the pocket footprints that open through face f.
func (s *Shape) holesIn(m *model.Model, f kernel.Face) []geom.Polygon {
	z := f.ZMin
	var holes []geom.Polygon
	for _, p := range m.Pockets() {
		if p.Name == f.Owner {
			continue
		}
		ext := s.extents[p.Name]
		var opens bool
		if f.Up {
			opens = ext.ZMax >= z-geom.Epsilon && ext.ZMin < z-geom.Epsilon
		} else {
			opens = ext.ZMin <= z+geom.Epsilon && ext.ZMax > z+geom.Epsilon
		}
		if !opens {
			continue
		}
		pt, ok := ext.Outline.InteriorPoint()
		if ok && f.Outline.Contains(pt) {
			holes = append(holes, ext.Outline.Clone())
		}
	}
	return holes
}

// Faces returns a copy of every face in reference order.
func (s *Shape) Faces() []kernel.Face {
	out := make([]kernel.Face, len(s.faces))
	for i, f := range s.faces {
		out[i] = cloneFace(f)
	}
	return out
}

// FacesAt implements kernel.Query. A face matches when it lies at z within
// ZTolerance and either belongs to ref, fits inside ref's footprint grown
// by FootprintTolerance, or covers the footprint; covering faces are
// returned trimmed to the footprint.
func (s *Shape) FacesAt(z float64, ref string) []kernel.Face {
	var fp geom.Polygon
	if ref != "" {
		ext, ok := s.extents[ref]
		if !ok {
			return nil
		}
		fp = ext.Outline
	}
	box := fp.Bounds().Grow(FootprintTolerance)
	inner, hasInner := fp.InteriorPoint()

	var out []kernel.Face
	for _, f := range s.faces {
		if f.Kind != kernel.FaceHorizontal || math.Abs(f.ZMin-z) >= ZTolerance {
			continue
		}
		switch {
		case ref == "" || f.Owner == ref:
			out = append(out, cloneFace(f))
		case box.ContainsBox(f.Bounds()):
			out = append(out, cloneFace(f))
		case hasInner && covers(f, inner):
			t := cloneFace(f)
			t.Outline = fp.Clone()
			t.Holes = nil
			out = append(out, t)
		}
	}
	return out
}

// WallFacesOf implements kernel.Query.
func (s *Shape) WallFacesOf(ref string) []kernel.Face {
	var out []kernel.Face
	for _, f := range s.faces {
		if f.Kind == kernel.FaceWall && f.Owner == ref {
			out = append(out, cloneFace(f))
		}
	}
	return out
}

func covers(f kernel.Face, p geom.Vec2) bool {
	if !f.Outline.Contains(p) {
		return false
	}
	for _, h := range f.Holes {
		if h.Contains(p) {
			return false
		}
	}
	return true
}

func cloneFace(f kernel.Face) kernel.Face {
	c := f
	c.Outline = f.Outline.Clone()
	if f.Holes != nil {
		c.Holes = make([]geom.Polygon, len(f.Holes))
		for i, h := range f.Holes {
			c.Holes[i] = h.Clone()
		}
	}
	return c
}
