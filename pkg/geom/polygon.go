package geom

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrCollapsed is returned by Offset when the offset outline no longer
// encloses any area or folds over itself.
var ErrCollapsed = errors.New("offset collapses polygon")

// ErrSplit is returned by Inset when the outline pinches into more than
// one piece.
var ErrSplit = errors.New("offset splits polygon")

// Polygon is a simple closed outline.
type Polygon []Vec2

// Rect returns the counter-clockwise rectangle with corner (x, y).
func Rect(x, y, w, h float64) Polygon {
	return Polygon{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}
}

// Circle approximates a circle with n counter-clockwise vertices.
func Circle(c Vec2, r float64, n int) Polygon {
	if n < 3 {
		n = 3
	}
	p := make(Polygon, n)
	for i := range p {
		a := 2 * math.Pi * float64(i) / float64(n)
		p[i] = Vec2{c.X + r*math.Cos(a), c.Y + r*math.Sin(a)}
	}
	return p
}

// Clone returns an independent copy.
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// SignedArea is positive for counter-clockwise polygons.
func (p Polygon) SignedArea() float64 {
	var a float64
	for i := range p {
		j := (i + 1) % len(p)
		a += p[i].Cross(p[j])
	}
	return a / 2
}

// Area is the unsigned enclosed area.
func (p Polygon) Area() float64 { return math.Abs(p.SignedArea()) }

// Perimeter is the closed outline length.
func (p Polygon) Perimeter() float64 {
	var l float64
	for i := range p {
		l += p[i].Dist(p[(i+1)%len(p)])
	}
	return l
}

// IsClockwise reports clockwise vertex order viewed from +Z.
func (p Polygon) IsClockwise() bool { return p.SignedArea() < 0 }

// Reversed returns the polygon with the opposite winding, keeping the
// first vertex in place.
func (p Polygon) Reversed() Polygon {
	out := make(Polygon, len(p))
	if len(p) == 0 {
		return out
	}
	out[0] = p[0]
	for i := 1; i < len(p); i++ {
		out[i] = p[len(p)-i]
	}
	return out
}

// Oriented returns a copy wound clockwise when cw is set and
// counter-clockwise otherwise.
func (p Polygon) Oriented(cw bool) Polygon {
	if p.IsClockwise() == cw {
		return p.Clone()
	}
	return p.Reversed()
}

// Bounds returns the bounding box of the vertices.
func (p Polygon) Bounds() Box2 {
	b := EmptyBox()
	for _, v := range p {
		b = b.Extend(v)
	}
	return b
}

// Translate shifts every vertex by d.
func (p Polygon) Translate(d Vec2) Polygon {
	out := make(Polygon, len(p))
	for i, v := range p {
		out[i] = v.Add(d)
	}
	return out
}

// Edge returns the i-th edge as a segment.
func (p Polygon) Edge(i int) Segment2 {
	return Segment2{A: p[i], B: p[(i+1)%len(p)]}
}

// Contains reports whether pt lies strictly inside the polygon
// (even-odd rule).
func (p Polygon) Contains(pt Vec2) bool {
	in := false
	for i, j := 0, len(p)-1; i < len(p); j, i = i, i+1 {
		a, b := p[i], p[j]
		if (a.Y > pt.Y) != (b.Y > pt.Y) {
			x := (b.X-a.X)*(pt.Y-a.Y)/(b.Y-a.Y) + a.X
			if pt.X < x {
				in = !in
			}
		}
	}
	return in
}

// InteriorPoint returns a point strictly inside the polygon. The centroid
// of the bounding box is used when it is inside; otherwise a horizontal
// scanline through the box centre is intersected with the outline and the
// midpoint of the widest inside span is returned.
func (p Polygon) InteriorPoint() (Vec2, bool) {
	if len(p) < 3 {
		return Vec2{}, false
	}
	b := p.Bounds()
	c := b.Center()
	if p.Contains(c) {
		return c, true
	}
	y := c.Y + b.Height()*1e-3
	var xs []float64
	for i := range p {
		e := p.Edge(i)
		if (e.A.Y > y) != (e.B.Y > y) {
			xs = append(xs, e.A.X+(y-e.A.Y)*(e.B.X-e.A.X)/(e.B.Y-e.A.Y))
		}
	}
	sort.Float64s(xs)
	best, found := 0.0, false
	var pt Vec2
	for i := 0; i+1 < len(xs); i += 2 {
		if w := xs[i+1] - xs[i]; w > best {
			best, found = w, true
			pt = Vec2{(xs[i] + xs[i+1]) / 2, y}
		}
	}
	return pt, found
}

// Clean removes repeated and collinear vertices.
func (p Polygon) Clean(tol float64) Polygon {
	out := make(Polygon, 0, len(p))
	for _, v := range p {
		if len(out) > 0 && out[len(out)-1].Equal(v, tol) {
			continue
		}
		out = append(out, v)
	}
	if len(out) > 1 && out[0].Equal(out[len(out)-1], tol) {
		out = out[:len(out)-1]
	}
	for changed := true; changed && len(out) >= 3; {
		changed = false
		for i := range out {
			prev := out[(i+len(out)-1)%len(out)]
			next := out[(i+1)%len(out)]
			d1, d2 := out[i].Sub(prev), next.Sub(out[i])
			if math.Abs(d1.Cross(d2)) <= tol*math.Max(d1.Len(), d2.Len()) && d1.Dot(d2) > 0 {
				out = append(out[:i], out[i+1:]...)
				changed = true
				break
			}
		}
	}
	return out
}

// SelfIntersects reports whether two non-adjacent edges cross.
func (p Polygon) SelfIntersects() bool {
	n := len(p)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue
			}
			if p.Edge(i).Intersects(p.Edge(j)) {
				return true
			}
		}
	}
	return false
}

// Validate checks that the polygon can be followed as a contour.
func (p Polygon) Validate() error {
	switch {
	case len(p) < 3:
		return fmt.Errorf("outline has %d vertices, need at least 3", len(p))
	case p.Perimeter() < Epsilon:
		return errors.New("outline has zero length")
	case p.Area() < Epsilon:
		return errors.New("outline encloses no area")
	case p.SelfIntersects():
		return errors.New("outline intersects itself")
	}
	return nil
}

// Offset moves every edge of the polygon by d along its outward normal:
// positive d grows the outline, negative d shrinks it (see Inset). Corners
// are mitred so edges stay parallel to the originals at exactly |d|. The
// winding of the result matches the input.
func (p Polygon) Offset(d float64) (Polygon, error) {
	if len(p) < 3 {
		return nil, ErrCollapsed
	}
	if d < 0 {
		return p.Inset(-d)
	}
	if d == 0 {
		return p.Clone(), nil
	}
	out := p.moved(p.miters(), d)
	if out.Area() < Epsilon || out.IsClockwise() != p.IsClockwise() || out.SelfIntersects() {
		return nil, ErrCollapsed
	}
	return out, nil
}

// Inset shrinks the outline by s. Edges that shorten to nothing on the
// way are dropped and the remaining outline keeps moving, so short edges
// such as chamfers do not end the inset early. ErrCollapsed means no area
// is left; ErrSplit means the outline would pinch into separate pieces.
func (p Polygon) Inset(s float64) (Polygon, error) {
	cur := p.Clean(Epsilon)
	// Every event removes at least one vertex.
	for events := 0; events <= len(p) && len(cur) >= 3 && cur.Area() >= Epsilon; events++ {
		if s <= Epsilon {
			if cur.SelfIntersects() {
				return nil, ErrSplit
			}
			return cur, nil
		}
		m := cur.miters()
		step := s
		for i := range cur {
			j := (i + 1) % len(cur)
			e := cur[j].Sub(cur[i])
			l := e.Len()
			if rate := m[j].Sub(m[i]).Dot(e.Scale(1 / l)); rate > Epsilon && l/rate < step {
				step = l / rate
			}
		}
		cur = cur.moved(m, -step).Clean(eventTolerance)
		s -= step
		if len(cur) >= 3 && cur.IsClockwise() != p.IsClockwise() {
			return nil, ErrCollapsed
		}
	}
	return nil, ErrCollapsed
}

// eventTolerance merges the endpoints of an edge that an inset step has
// shrunk to nothing.
const eventTolerance = 1e-7

// miters returns, per vertex, the displacement for a unit outward offset
// of both adjacent edges.
func (p Polygon) miters() []Vec2 {
	sign := 1.0
	if p.IsClockwise() {
		sign = -1
	}
	n := len(p)
	normals := make([]Vec2, n)
	for i := range p {
		e := p[(i+1)%n].Sub(p[i]).Normalize()
		normals[i] = Vec2{e.Y, -e.X}.Scale(sign)
	}
	out := make([]Vec2, n)
	for i := range p {
		n1, n2 := normals[(i+n-1)%n], normals[i]
		c := n1.Dot(n2)
		if 1+c < 1e-6 {
			out[i] = n1
			continue
		}
		out[i] = n1.Add(n2).Scale(1 / (1 + c))
	}
	return out
}

func (p Polygon) moved(m []Vec2, d float64) Polygon {
	out := make(Polygon, len(p))
	for i := range p {
		out[i] = p[i].Add(m[i].Scale(d))
	}
	return out
}

// Segment2 is a straight planar segment.
type Segment2 struct {
	A Vec2 `yaml:"a" json:"a"`
	B Vec2 `yaml:"b" json:"b"`
}

// Len is the segment length.
func (s Segment2) Len() float64 { return s.A.Dist(s.B) }

// Intersects reports whether the two segments share a point.
func (s Segment2) Intersects(o Segment2) bool {
	d1 := orient(o.A, o.B, s.A)
	d2 := orient(o.A, o.B, s.B)
	d3 := orient(s.A, s.B, o.A)
	d4 := orient(s.A, s.B, o.B)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(o, s.A)) || (d2 == 0 && onSegment(o, s.B)) ||
		(d3 == 0 && onSegment(s, o.A)) || (d4 == 0 && onSegment(s, o.B))
}

func orient(a, b, c Vec2) float64 {
	v := b.Sub(a).Cross(c.Sub(a))
	if math.Abs(v) < Epsilon {
		return 0
	}
	return v
}

func onSegment(s Segment2, p Vec2) bool {
	return p.X >= math.Min(s.A.X, s.B.X)-Epsilon && p.X <= math.Max(s.A.X, s.B.X)+Epsilon &&
		p.Y >= math.Min(s.A.Y, s.B.Y)-Epsilon && p.Y <= math.Max(s.A.Y, s.B.Y)+Epsilon
}

// ChainEdges joins unordered edges end to end into a closed polygon. Each
// edge may be used in either direction; endpoints match within tol.
func ChainEdges(edges []Segment2, tol float64) (Polygon, error) {
	if len(edges) < 3 {
		return nil, fmt.Errorf("need at least 3 edges to close an outline, have %d", len(edges))
	}
	used := make([]bool, len(edges))
	used[0] = true
	out := Polygon{edges[0].A}
	cur := edges[0].B
	for k := 1; k < len(edges); k++ {
		next := -1
		for i, e := range edges {
			if used[i] {
				continue
			}
			if e.A.Equal(cur, tol) {
				next = i
				out = append(out, e.A)
				cur = e.B
				break
			}
			if e.B.Equal(cur, tol) {
				next = i
				out = append(out, e.B)
				cur = e.A
				break
			}
		}
		if next < 0 {
			return nil, fmt.Errorf("outline is open at %s", cur)
		}
		used[next] = true
	}
	if !cur.Equal(out[0], tol) {
		return nil, fmt.Errorf("outline does not close: %s != %s", cur, out[0])
	}
	return out, nil
}
