// Package model defines the part description kerf plans toolpaths for: a
// padded stock body and the pockets cut into it, each built from a named
// planar sketch.
package model

import (
	"fmt"

	"github.com/chazu/kerf/pkg/geom"
)

// FaceSide selects a horizontal face of a feature for sketch attachment.
type FaceSide int

const (
	FaceTop FaceSide = iota
	FaceBottom
)

func (s FaceSide) String() string {
	switch s {
	case FaceTop:
		return "top"
	case FaceBottom:
		return "bottom"
	default:
		return fmt.Sprintf("FaceSide(%d)", int(s))
	}
}

// ParseFaceSide is the inverse of FaceSide.String. Empty means top.
func ParseFaceSide(s string) (FaceSide, error) {
	switch s {
	case "", "top":
		return FaceTop, nil
	case "bottom":
		return FaceBottom, nil
	}
	return 0, fmt.Errorf("unknown face %q", s)
}

// Attachment places a sketch plane. With Feature empty the sketch lies on
// the XY plane at Z = Offset; otherwise it lies Offset above the named
// face of Feature.
type Attachment struct {
	Feature string   `json:"feature,omitempty"`
	Face    FaceSide `json:"face"`
	Offset  float64  `json:"offset"`
}

// Resolved reports whether the attachment is an absolute XY plane.
func (a Attachment) Resolved() bool { return a.Feature == "" }

// Sketch is a closed planar profile.
type Sketch struct {
	Name    string       `json:"name"`
	Profile geom.Polygon `json:"profile"`
	Attach  Attachment   `json:"attach"`
}

// Z returns the absolute sketch plane height of a resolved sketch.
func (s *Sketch) Z() (float64, error) {
	if !s.Attach.Resolved() {
		return 0, fmt.Errorf("sketch %q is attached to %q and has not been resolved", s.Name, s.Attach.Feature)
	}
	return s.Attach.Offset, nil
}

// Feature is a single modelling step.
type Feature struct {
	Name string      `json:"name"`
	Kind FeatureKind `json:"kind"`
	Data FeatureData `json:"data"`
}

// SketchName returns the sketch the feature is built from.
func (f *Feature) SketchName() string {
	switch d := f.Data.(type) {
	case PadData:
		return d.Sketch
	case PocketData:
		return d.Sketch
	}
	return ""
}

// Length returns the extrusion length of the feature.
func (f *Feature) Length() float64 {
	switch d := f.Data.(type) {
	case PadData:
		return d.Length
	case PocketData:
		return d.Length
	}
	return 0
}

// Model is an ordered collection of sketches and features. Declaration
// order is significant: it is the order operations are planned and emitted.
type Model struct {
	Name     string
	Sketches []*Sketch
	Features []*Feature

	sketchIndex  map[string]int
	featureIndex map[string]int
}

// New creates an empty model.
func New(name string) *Model {
	return &Model{
		Name:         name,
		sketchIndex:  make(map[string]int),
		featureIndex: make(map[string]int),
	}
}

// AddSketch appends a sketch. Names must be unique.
func (m *Model) AddSketch(s *Sketch) error {
	if s.Name == "" {
		return fmt.Errorf("sketch has no name")
	}
	if _, dup := m.sketchIndex[s.Name]; dup {
		return fmt.Errorf("duplicate sketch name %q", s.Name)
	}
	m.sketchIndex[s.Name] = len(m.Sketches)
	m.Sketches = append(m.Sketches, s)
	return nil
}

// AddFeature appends a feature. Names must be unique.
func (m *Model) AddFeature(f *Feature) error {
	if f.Name == "" {
		return fmt.Errorf("%s feature has no name", f.Kind)
	}
	if _, dup := m.featureIndex[f.Name]; dup {
		return fmt.Errorf("duplicate feature name %q", f.Name)
	}
	m.featureIndex[f.Name] = len(m.Features)
	m.Features = append(m.Features, f)
	return nil
}

// Sketch returns the sketch with the given name, or nil.
func (m *Model) Sketch(name string) *Sketch {
	i, ok := m.sketchIndex[name]
	if !ok {
		return nil
	}
	return m.Sketches[i]
}

// Feature returns the feature with the given name, or nil.
func (m *Model) Feature(name string) *Feature {
	i, ok := m.featureIndex[name]
	if !ok {
		return nil
	}
	return m.Features[i]
}

// Index returns the declaration index of a feature, or -1.
func (m *Model) Index(name string) int {
	i, ok := m.featureIndex[name]
	if !ok {
		return -1
	}
	return i
}

// Pad returns the first pad feature, or nil.
func (m *Model) Pad() *Feature {
	for _, f := range m.Features {
		if f.Kind == FeaturePad {
			return f
		}
	}
	return nil
}

// Pockets returns the pocket features in declaration order.
func (m *Model) Pockets() []*Feature {
	var out []*Feature
	for _, f := range m.Features {
		if f.Kind == FeaturePocket {
			out = append(out, f)
		}
	}
	return out
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	c := New(m.Name)
	for _, s := range m.Sketches {
		cp := *s
		cp.Profile = s.Profile.Clone()
		_ = c.AddSketch(&cp)
	}
	for _, f := range m.Features {
		cp := *f
		_ = c.AddFeature(&cp)
	}
	return c
}

// Extent is the vertical span and footprint of a resolved feature.
type Extent struct {
	ZMin, ZMax float64
	Outline    geom.Polygon
}

// Extent computes where a feature sits once its sketch has been resolved.
// Pockets with CutAuto are treated as cutting down.
func (m *Model) Extent(f *Feature) (Extent, error) {
	s := m.Sketch(f.SketchName())
	if s == nil {
		return Extent{}, fmt.Errorf("feature %q: sketch %q not found", f.Name, f.SketchName())
	}
	z, err := s.Z()
	if err != nil {
		return Extent{}, fmt.Errorf("feature %q: %w", f.Name, err)
	}
	l := f.Length()
	switch d := f.Data.(type) {
	case PadData:
		return Extent{ZMin: z, ZMax: z + l, Outline: s.Profile}, nil
	case PocketData:
		if d.Direction == CutUp {
			return Extent{ZMin: z, ZMax: z + l, Outline: s.Profile}, nil
		}
		return Extent{ZMin: z - l, ZMax: z, Outline: s.Profile}, nil
	}
	return Extent{}, fmt.Errorf("feature %q has no data", f.Name)
}

// Stock returns the extent of the pad, which defines the workpiece.
func (m *Model) Stock() (Extent, error) {
	pad := m.Pad()
	if pad == nil {
		return Extent{}, fmt.Errorf("model %q has no pad", m.Name)
	}
	return m.Extent(pad)
}
