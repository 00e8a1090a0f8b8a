// Package catalog enumerates the machinable features of a prepared model
// and resolves each configured operation into a cam.Feature: its depth
// range, its base geometry from a kernel.Query and the boundary the
// planner follows.
package catalog

import (
	"fmt"
	"math"
	"sort"

	"github.com/chazu/kerf/pkg/cam"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/model"
)

const (
	// ThroughCutThreshold: a floor closer than this to the stock bottom is
	// cut all the way through.
	ThroughCutThreshold = 0.5

	// TopTolerance: a sketch this close to the stock top starts at depth 0.
	TopTolerance = 1.0

	// WallZTolerance is how closely a wall must span the pocket depth.
	WallZTolerance = 0.5

	// MinWallSpan is the shortest wall accepted as pocket boundary.
	MinWallSpan = 1.0

	chainTolerance = 1e-6
)

// Entry is one enumerated model feature.
type Entry struct {
	Name       string
	Index      int
	Kind       model.FeatureKind
	BottomSide bool
	ThroughCut bool
	Extent     model.Extent
}

// Catalog resolves operations against a prepared model.
type Catalog struct {
	q     kernel.Query
	m     *model.Model
	stock model.Extent
	tools map[int]cam.Tool
}

// New creates a catalog. Every sketch in m must be resolved.
func New(q kernel.Query, m *model.Model, tools []cam.Tool) (*Catalog, error) {
	stock, err := m.Stock()
	if err != nil {
		return nil, err
	}
	c := &Catalog{q: q, m: m, stock: stock, tools: make(map[int]cam.Tool)}
	for _, t := range tools {
		c.tools[t.Number] = t
	}
	return c, nil
}

// TopZ is the height of the stock top.
func (c *Catalog) TopZ() float64 { return c.stock.ZMax }

// Enumerate lists the model features in declaration order.
func (c *Catalog) Enumerate() ([]Entry, error) {
	out := make([]Entry, 0, len(c.m.Features))
	for i, f := range c.m.Features {
		ext, err := c.m.Extent(f)
		if err != nil {
			return nil, err
		}
		e := Entry{Name: f.Name, Index: i, Kind: f.Kind, Extent: ext}
		if d, ok := f.Data.(model.PocketData); ok {
			e.BottomSide = d.Direction == model.CutUp
			e.ThroughCut = !e.BottomSide && ext.ZMin-c.stock.ZMin < ThroughCutThreshold
		}
		out = append(out, e)
	}
	return out, nil
}

// Resolve builds the Feature for op on the feature named ref; an empty ref
// is the whole-model perimeter.
//
// A *cam.FaceDetectionFailure or *cam.DegenerateGeometry is returned
// together with a usable Feature that has no base geometry, so the caller
// can plan it as an empty toolpath. Any other error is fatal.
func (c *Catalog) Resolve(ref string, op cam.Operation) (*cam.Feature, error) {
	if probs := op.Validate(); len(probs) > 0 {
		return nil, &cam.ConfigurationError{Problems: probs}
	}
	tool, ok := c.tools[op.Tool]
	if !ok {
		return nil, &cam.ConfigurationError{Problems: []string{
			fmt.Sprintf("operation %q: unknown tool number %d", op.Name, op.Tool),
		}}
	}

	f := c.m.Pad()
	if ref != "" {
		f = c.m.Feature(ref)
		if f == nil {
			return nil, &cam.InvalidFeatureReference{Operation: op.Name, Ref: ref}
		}
	}
	if f == nil {
		return nil, fmt.Errorf("model %q has no pad to profile", c.m.Name)
	}

	feat := &cam.Feature{
		ID:        f.Name,
		Name:      f.Name,
		Index:     c.m.Index(f.Name),
		TopZ:      c.stock.ZMax,
		Operation: op,
		Tool:      tool,
	}

	switch d := f.Data.(type) {
	case model.PadData:
		if op.Kind != cam.Profile {
			return nil, &cam.ConfigurationError{Problems: []string{
				fmt.Sprintf("operation %q: %s operations cannot target pad %q", op.Name, op.Kind, f.Name),
			}}
		}
		return c.resolvePerimeter(feat, ref == "")
	case model.PocketData:
		ext, err := c.m.Extent(f)
		if err != nil {
			return nil, err
		}
		resolve := c.resolvePocket
		if d.Direction == model.CutUp {
			resolve = c.resolveBottomSide
		}
		feat, err = resolve(feat, ext)
		if feat != nil && op.Kind == cam.Profile {
			feat = asProfile(feat)
		}
		return feat, err
	}
	return nil, fmt.Errorf("feature %q: unsupported data %T", f.Name, f.Data)
}

// resolvePerimeter profiles the full stock outline through its whole
// thickness.
func (c *Catalog) resolvePerimeter(feat *cam.Feature, fullOutline bool) (*cam.Feature, error) {
	feat.Data = cam.ProfileData{FullOutline: fullOutline}
	feat.DepthStart = 0
	feat.DepthEnd = c.stock.ZMax - c.stock.ZMin

	faces := c.q.FacesAt(c.stock.ZMax, feat.Name)
	if len(faces) == 0 {
		return feat, &cam.FaceDetectionFailure{FeatureID: feat.ID, Z: c.stock.ZMax}
	}
	feat.BaseGeometry = faces
	feat.Boundary = c.stock.Outline.Clone()
	return feat, nil
}

// resolvePocket handles pockets machined from the top: floor faces first,
// wall faces for through-cuts whose floor no longer exists.
func (c *Catalog) resolvePocket(feat *cam.Feature, ext model.Extent) (*cam.Feature, error) {
	top := c.stock.ZMax
	start := math.Min(ext.ZMax, top)
	if top-start < TopTolerance {
		start = top
	}
	floor := math.Max(ext.ZMin, c.stock.ZMin)
	through := floor-c.stock.ZMin < ThroughCutThreshold
	if feat.Operation.ThroughCut && !through {
		return nil, &cam.ConfigurationError{Problems: []string{
			fmt.Sprintf("operation %q: through_cut is set but pocket %q stops at Z=%g, above the stock bottom at Z=%g",
				feat.Operation.Name, feat.Name, floor, c.stock.ZMin),
		}}
	}
	if through {
		floor = c.stock.ZMin
	}
	feat.Operation.ThroughCut = through
	feat.Data = cam.PocketData{FloorZ: floor, ThroughCut: through}
	feat.DepthStart = top - start
	feat.DepthEnd = top - floor
	if feat.DepthEnd <= feat.DepthStart {
		return feat, &cam.DegenerateGeometry{FeatureID: feat.ID, Reason: "pocket removes no material from the stock"}
	}

	if faces := c.q.FacesAt(floor, feat.Name); len(faces) > 0 {
		feat.BaseGeometry = faces
		feat.Boundary = largestOutline(faces)
		return feat, nil
	}
	if !through {
		return feat, &cam.FaceDetectionFailure{FeatureID: feat.ID, Z: floor}
	}

	walls := c.pocketWalls(feat.Name, start, floor)
	if len(walls) == 0 {
		return feat, &cam.FaceDetectionFailure{FeatureID: feat.ID, Z: floor, Fallback: true}
	}
	feat.BaseGeometry = walls
	edges := make([]geom.Segment2, 0, len(walls))
	for _, w := range walls {
		if e, ok := w.Edge(); ok {
			edges = append(edges, e)
		}
	}
	// An outline that does not close is left empty; the planner reports it.
	if b, err := geom.ChainEdges(edges, chainTolerance); err == nil {
		feat.Boundary = b
	}
	return feat, nil
}

// pocketWalls returns wall faces spanning from the floor up to the start
// height.
func (c *Catalog) pocketWalls(ref string, start, floor float64) []kernel.Face {
	var out []kernel.Face
	for _, w := range c.q.WallFacesOf(ref) {
		if math.Abs(w.ZMax-start) < WallZTolerance &&
			math.Abs(w.ZMin-floor) < WallZTolerance &&
			w.ZMax-w.ZMin > MinWallSpan {
			out = append(out, w)
		}
	}
	return out
}

// resolveBottomSide handles pockets cut up from the bottom face. They are
// machined from the top as an inside slot, stopping Margin above the
// stock bottom.
func (c *Catalog) resolveBottomSide(feat *cam.Feature, ext model.Extent) (*cam.Feature, error) {
	top := c.stock.ZMax
	height := top - c.stock.ZMin
	margin := feat.Operation.Margin
	if margin >= height {
		return nil, &cam.ConfigurationError{Problems: []string{
			fmt.Sprintf("operation %q: margin %g must be less than the stock height %g", feat.Operation.Name, margin, height),
		}}
	}
	feat.Operation.ContourMode = cam.Inside
	feat.Operation.BottomSide = true
	floor := c.stock.ZMin + margin
	feat.Data = cam.PocketData{FloorZ: floor, BottomSide: true}
	feat.DepthStart = 0
	feat.DepthEnd = height - margin

	faces := c.q.FacesAt(top, feat.Name)
	if len(faces) == 0 {
		return feat, &cam.FaceDetectionFailure{FeatureID: feat.ID, Z: top}
	}
	feat.BaseGeometry = faces
	feat.Boundary = largestOutline(faces)
	return feat, nil
}

// asProfile turns a resolved pocket into a single contour around its
// outline. The cutter stays inside the pocket.
func asProfile(feat *cam.Feature) *cam.Feature {
	feat.Data = cam.ProfileData{}
	feat.Operation.ContourMode = cam.Inside
	return feat
}

// largestOutline picks the outline of the face with the greatest area;
// ties keep the earlier face.
func largestOutline(faces []kernel.Face) geom.Polygon {
	idx := make([]int, len(faces))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return faces[idx[a]].Outline.Area() > faces[idx[b]].Outline.Area()
	})
	return faces[idx[0]].Outline.Clone()
}
