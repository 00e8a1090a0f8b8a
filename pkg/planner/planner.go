// Package planner turns resolved features into toolpaths: Z passes from
// the depth range, a contour per pass for profiles, and concentric offset
// rings for pockets.
package planner

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/kerf/pkg/cam"
	"github.com/chazu/kerf/pkg/geom"
)

// depthTolerance keeps exact multiples of the stepdown from gaining a
// sliver pass.
const depthTolerance = 1e-9

// maxRings bounds pocket clearing for pathological stepovers.
const maxRings = 10000

// PassDepths splits [start, end] into passes no deeper than step apart.
// The last depth is exactly end.
func PassDepths(start, end, step float64) []float64 {
	if step <= 0 || end <= start {
		return nil
	}
	total := end - start
	n := int(math.Ceil(total/step - depthTolerance))
	if n < 1 {
		n = 1
	}
	out := make([]float64, n)
	for k := 1; k <= n; k++ {
		out[k-1] = start + math.Min(float64(k)*step, total)
	}
	out[n-1] = end
	return out
}

// Planner plans features against fixed retract heights.
type Planner struct {
	heights cam.Heights
}

// New creates a planner.
func New(h cam.Heights) *Planner {
	return &Planner{heights: h}
}

// Plan builds the toolpath for f. Problems that leave the feature unmachined
// are returned as warnings alongside a toolpath with no passes; f is never
// modified.
func (p *Planner) Plan(f *cam.Feature) (*cam.Toolpath, []cam.Warning) {
	tp := &cam.Toolpath{
		Feature:   f.Name,
		Index:     f.Index,
		Operation: f.Operation,
		Tool:      f.Tool.Number,
	}
	if len(f.BaseGeometry) == 0 {
		return tp, []cam.Warning{{
			Kind:    cam.WarnEmptyToolpath,
			Feature: f.Name,
			Message: "no toolpath computed: no base geometry",
		}}
	}

	rings, partial, err := p.contours(f)
	if err != nil {
		dg := &cam.DegenerateGeometry{FeatureID: f.ID, Reason: err.Error()}
		return tp, []cam.Warning{{
			Kind:    cam.WarnDegenerateGeometry,
			Feature: f.Name,
			Message: dg.Error(),
			Err:     dg,
		}}
	}

	depths := PassDepths(f.DepthStart, f.DepthEnd, f.Operation.StepDown)
	if len(depths) == 0 {
		dg := &cam.DegenerateGeometry{FeatureID: f.ID,
			Reason: fmt.Sprintf("empty depth range [%g, %g]", f.DepthStart, f.DepthEnd)}
		return tp, []cam.Warning{{Kind: cam.WarnDegenerateGeometry, Feature: f.Name, Message: dg.Error(), Err: dg}}
	}

	start := rings[0][0]
	pos := start.At(p.heights.Clearance)
	tp.Entry = []cam.Segment{{Kind: cam.Line, Feed: cam.Rapid, From: pos, To: pos}}
	for _, d := range depths {
		var pass cam.Pass
		pass, pos = p.pass(f, d, rings, pos)
		tp.Passes = append(tp.Passes, pass)
	}
	tp.Exit = []cam.Segment{{Kind: cam.Line, Feed: cam.Rapid, From: pos, To: pos.XY().At(p.heights.Clearance)}}
	if partial {
		return tp, []cam.Warning{{
			Kind:    cam.WarnPartialClearing,
			Feature: f.Name,
			Message: "pocket narrows into separate regions; the area inside the last ring is not cleared",
		}}
	}
	return tp, nil
}

// pass emits one Z level: travel at safe height, plunge, cut every ring in
// order, retract.
func (p *Planner) pass(f *cam.Feature, depth float64, rings []geom.Polygon, pos geom.Vec3) (cam.Pass, geom.Vec3) {
	z := f.ZAt(depth)
	out := cam.Pass{Depth: depth, Z: z}
	add := func(feed cam.Feed, to geom.Vec3) {
		out.Segments = append(out.Segments, cam.Segment{Kind: cam.Line, Feed: feed, From: pos, To: to})
		pos = to
	}

	add(cam.Rapid, rings[0][0].At(p.heights.Safe))
	add(cam.Plunge, rings[0][0].At(z))
	for i, r := range rings {
		if i > 0 {
			add(cam.Cut, r[0].At(z))
		}
		for j := 1; j < len(r); j++ {
			add(cam.Cut, r[j].At(z))
		}
		add(cam.Cut, r[0].At(z))
	}
	add(cam.Rapid, pos.XY().At(p.heights.Safe))
	return out, pos
}

// contours returns the closed paths cut at every pass, in cutting order,
// each oriented for the operation direction. partial is set when pocket
// rings stop before the clearable area is used up.
func (p *Planner) contours(f *cam.Feature) (rings []geom.Polygon, partial bool, err error) {
	boundary := f.Boundary.Clean(geom.Epsilon)
	if err := boundary.Validate(); err != nil {
		return nil, false, err
	}
	op := f.Operation
	cw := op.Direction == cam.CW

	if f.Kind() == cam.Profile {
		c := boundary
		if op.ContourMode == cam.Inside && op.Margin > 0 {
			if c, err = boundary.Inset(op.Margin); err != nil {
				return nil, false, fmt.Errorf("margin %g leaves no contour: %w", op.Margin, err)
			}
		}
		return []geom.Polygon{c.Oriented(cw)}, false, nil
	}

	rings, partial, err = pocketRings(boundary, op.Margin, op.StepOverFraction*f.Tool.Diameter)
	if err != nil {
		return nil, false, err
	}
	if op.BottomSide {
		for i, j := 0, len(rings)-1; i < j; i, j = i+1, j-1 {
			rings[i], rings[j] = rings[j], rings[i]
		}
	}
	for i := range rings {
		rings[i] = rings[i].Oriented(cw)
	}
	return rings, partial, nil
}

// pocketRings insets boundary by margin, then by step at a time until no
// area is left. Rings are outermost first. partial reports that the next
// ring would split into separate pieces, leaving uncleared area inside
// the last ring.
func pocketRings(boundary geom.Polygon, margin, step float64) (rings []geom.Polygon, partial bool, err error) {
	if step <= 0 {
		return nil, false, fmt.Errorf("stepover %g must be positive", step)
	}
	for k := 0; k < maxRings; k++ {
		r, err := boundary.Inset(margin + float64(k)*step)
		if errors.Is(err, geom.ErrSplit) {
			partial = true
			break
		}
		if errors.Is(err, geom.ErrCollapsed) {
			break
		}
		if err != nil {
			return nil, false, err
		}
		rings = append(rings, r)
	}
	if len(rings) == 0 && partial {
		return nil, false, fmt.Errorf("margin %g splits the pocket", margin)
	}
	if len(rings) == 0 {
		return nil, false, fmt.Errorf("margin %g leaves nothing to clear", margin)
	}
	return rings, partial, nil
}
