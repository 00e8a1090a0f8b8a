// Package prepare turns an authored model into a plannable one. Sketch
// attachments are resolved to absolute XY planes in dependency order, cut
// directions are made explicit, and every feature is checked against a
// solid built with the geometry kernel.
//
// Preparing an already prepared model returns an identical model.
package prepare

import (
	"errors"
	"fmt"
	"math"

	"github.com/dominikbraun/graph"

	"github.com/chazu/kerf/pkg/kernel"
	"github.com/chazu/kerf/pkg/model"
)

var (
	// ErrInvalid is returned when validation finds errors.
	ErrInvalid = errors.New("model has validation errors")

	// ErrAttachmentCycle is returned when sketches are attached in a loop.
	ErrAttachmentCycle = errors.New("sketch attachments form a cycle")
)

// surfaceTolerance is how far outside the stock a pocket vertex may sit
// before it is reported.
const surfaceTolerance = 1e-3

// Options configure Prepare.
type Options struct {
	// Kernel builds the solid used for material checks. Nil skips them.
	Kernel kernel.Kernel
	// Mesh tessellates the finished part and records its size.
	Mesh bool
}

// MeshStats summarises the tessellated part.
type MeshStats struct {
	Vertices  int
	Triangles int
	Volume    float64 // mm³ of material left after every pocket
}

// Result is a prepared model and everything found while preparing it.
type Result struct {
	Model    *model.Model
	Order    []string // feature names in attachment order
	Findings []model.ValidationError
	Mesh     *MeshStats
}

// Prepare resolves and validates a copy of m; m itself is not modified.
// The returned Result carries the findings even when err is ErrInvalid.
func Prepare(m *model.Model, opts Options) (*Result, error) {
	res := &Result{Model: m.Clone()}
	res.Findings = model.Validate(res.Model)
	if model.HasErrors(res.Findings) {
		return res, fmt.Errorf("%w: %s", ErrInvalid, firstError(res.Findings))
	}

	order, err := attachmentOrder(res.Model)
	if err != nil {
		return res, err
	}
	faces := make(map[string]model.FaceSide)
	for _, v := range order {
		kind, name := splitVertex(v)
		if kind == sketchVertex {
			s := res.Model.Sketch(name)
			if !s.Attach.Resolved() {
				faces[name] = s.Attach.Face
			}
			if err := resolveSketch(res.Model, s); err != nil {
				return res, err
			}
			continue
		}
		if err := resolveDirection(res.Model, res.Model.Feature(name), faces); err != nil {
			return res, err
		}
		res.Order = append(res.Order, name)
	}

	if opts.Kernel != nil {
		findings, mesh, err := checkSolid(res.Model, opts.Kernel, opts.Mesh)
		if err != nil {
			return res, err
		}
		res.Findings = append(res.Findings, findings...)
		res.Mesh = mesh
		if model.HasErrors(findings) {
			return res, fmt.Errorf("%w: %s", ErrInvalid, firstError(findings))
		}
	}
	return res, nil
}

const (
	sketchVertex  = "sketch/"
	featureVertex = "feature/"
)

func splitVertex(v string) (kind, name string) {
	if len(v) > len(sketchVertex) && v[:len(sketchVertex)] == sketchVertex {
		return sketchVertex, v[len(sketchVertex):]
	}
	return featureVertex, v[len(featureVertex):]
}

// attachmentOrder sorts sketches and features so that every sketch comes
// after the feature it is attached to and before the features built on
// it. Ties keep declaration order.
func attachmentOrder(m *model.Model) ([]string, error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	rank := make(map[string]int)
	for i, s := range m.Sketches {
		v := sketchVertex + s.Name
		rank[v] = i
		if err := g.AddVertex(v); err != nil {
			return nil, err
		}
	}
	for i, f := range m.Features {
		v := featureVertex + f.Name
		rank[v] = len(m.Sketches) + i
		if err := g.AddVertex(v); err != nil {
			return nil, err
		}
	}
	for _, f := range m.Features {
		if err := g.AddEdge(sketchVertex+f.SketchName(), featureVertex+f.Name); err != nil {
			return nil, fmt.Errorf("feature %q: %w", f.Name, err)
		}
	}
	for _, s := range m.Sketches {
		if s.Attach.Resolved() {
			continue
		}
		err := g.AddEdge(featureVertex+s.Attach.Feature, sketchVertex+s.Name)
		if errors.Is(err, graph.ErrEdgeCreatesCycle) {
			return nil, fmt.Errorf("%w: sketch %q on feature %q", ErrAttachmentCycle, s.Name, s.Attach.Feature)
		}
		if err != nil {
			return nil, fmt.Errorf("sketch %q: %w", s.Name, err)
		}
	}
	return graph.StableTopologicalSort(g, func(a, b string) bool { return rank[a] < rank[b] })
}

// resolveSketch rewrites an attached sketch as an XY plane at the height
// of the face it was attached to.
func resolveSketch(m *model.Model, s *model.Sketch) error {
	if s.Attach.Resolved() {
		return nil
	}
	host := m.Feature(s.Attach.Feature)
	ext, err := m.Extent(host)
	if err != nil {
		return fmt.Errorf("sketch %q: %w", s.Name, err)
	}
	z := ext.ZMax
	if s.Attach.Face == model.FaceBottom {
		z = ext.ZMin
	}
	s.Attach = model.Attachment{Offset: z + s.Attach.Offset}
	return nil
}

// resolveDirection replaces CutAuto once the feature's sketch is resolved:
// pockets sketched on a bottom face, or on the stock bottom plane, cut up;
// all others cut down.
func resolveDirection(m *model.Model, f *model.Feature, faces map[string]model.FaceSide) error {
	d, ok := f.Data.(model.PocketData)
	if !ok || d.Direction != model.CutAuto {
		return nil
	}
	d.Direction = model.CutDown
	if side, attached := faces[d.Sketch]; attached {
		if side == model.FaceBottom {
			d.Direction = model.CutUp
		}
	} else if stock, err := m.Stock(); err == nil {
		z, err := m.Sketch(d.Sketch).Z()
		if err != nil {
			return err
		}
		if math.Abs(z-stock.ZMin) < surfaceTolerance {
			d.Direction = model.CutUp
		}
	}
	f.Data = d
	return nil
}

// checkSolid collects every pocket cutter in declaration order and reports
// pockets that remove nothing or reach outside the stock. The part is the
// stock minus the union of the cutters.
func checkSolid(m *model.Model, k kernel.Kernel, mesh bool) ([]model.ValidationError, *MeshStats, error) {
	stock, err := m.Stock()
	if err != nil {
		return nil, nil, err
	}
	stockSolid, err := k.Prism(stock.Outline, stock.ZMin, stock.ZMax)
	if err != nil {
		return nil, nil, fmt.Errorf("stock: %w", err)
	}
	var removed kernel.Solid

	var findings []model.ValidationError
	for _, f := range m.Pockets() {
		ext, err := m.Extent(f)
		if err != nil {
			return nil, nil, err
		}
		lo, hi := math.Max(ext.ZMin, stock.ZMin), math.Min(ext.ZMax, stock.ZMax)
		if hi-lo <= surfaceTolerance {
			findings = append(findings, model.ValidationError{
				Subject:  f.Name,
				Message:  fmt.Sprintf("pocket spans Z %g..%g, outside the stock %g..%g", ext.ZMin, ext.ZMax, stock.ZMin, stock.ZMax),
				Severity: model.SeverityError,
			})
			continue
		}
		mid := (lo + hi) / 2
		p, ok := ext.Outline.InteriorPoint()
		if !ok || stockSolid.Distance(p.At(mid)) >= 0 {
			findings = append(findings, model.ValidationError{
				Subject:  f.Name,
				Message:  "pocket lies outside the stock outline and removes no material",
				Severity: model.SeverityError,
			})
			continue
		}
		if removed != nil && removed.Distance(p.At(mid)) < 0 {
			findings = append(findings, model.ValidationError{
				Subject:  f.Name,
				Message:  "pocket only removes material already cut by earlier pockets",
				Severity: model.SeverityWarning,
			})
		}
		for _, v := range ext.Outline {
			if stockSolid.Distance(v.At(mid)) > surfaceTolerance {
				findings = append(findings, model.ValidationError{
					Subject:  f.Name,
					Message:  fmt.Sprintf("pocket outline leaves the stock at %s", v),
					Severity: model.SeverityWarning,
				})
				break
			}
		}

		cut, err := k.Prism(ext.Outline, lo, hi)
		if err != nil {
			return nil, nil, fmt.Errorf("pocket %q: %w", f.Name, err)
		}
		if removed == nil {
			removed = cut
		} else {
			removed = k.Union(removed, cut)
		}
	}

	if !mesh {
		return findings, nil, nil
	}
	body := stockSolid
	if removed != nil {
		body = k.Difference(stockSolid, removed)
	}
	msh, err := k.ToMesh(body)
	if err != nil {
		return findings, nil, fmt.Errorf("tessellate: %w", err)
	}
	return findings, &MeshStats{
		Vertices:  msh.VertexCount(),
		Triangles: msh.TriangleCount(),
		Volume:    msh.Volume(),
	}, nil
}

func firstError(findings []model.ValidationError) string {
	n := 0
	var first model.ValidationError
	for _, f := range findings {
		if f.Severity == model.SeverityError {
			if n == 0 {
				first = f
			}
			n++
		}
	}
	if n > 1 {
		return fmt.Sprintf("%s (and %d more)", first.Error(), n-1)
	}
	return first.Error()
}
