// Package preview draws a top view of planned toolpaths to a PNG so a job
// can be checked before it goes to the machine.
package preview

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/gogpu/gg"

	"github.com/chazu/kerf/pkg/cam"
	"github.com/chazu/kerf/pkg/geom"
)

// Options size the image. Zero values take the defaults.
type Options struct {
	Size    int     // longest side in pixels
	Padding float64 // blank border in pixels
}

const (
	defaultSize    = 1200
	defaultPadding = 24
)

// ErrNothingToDraw is returned when there is no outline and no motion.
var ErrNothingToDraw = errors.New("preview: nothing to draw")

// view maps model XY to image pixels, flipping Y.
type view struct {
	bounds  geom.Box2
	scale   float64
	padding float64
	height  float64
}

func (v view) pt(p geom.Vec2) (float64, float64) {
	x := v.padding + (p.X-v.bounds.Min.X)*v.scale
	y := v.height - v.padding - (p.Y-v.bounds.Min.Y)*v.scale
	return x, y
}

// Render writes a PNG of the stock outline and every toolpath. Cuts are
// shaded from light to dark with depth, rapids are dashed and plunges are
// marked with a dot.
func Render(w io.Writer, outline geom.Polygon, toolpaths []*cam.Toolpath, opts Options) error {
	if opts.Size <= 0 {
		opts.Size = defaultSize
	}
	if opts.Padding <= 0 {
		opts.Padding = defaultPadding
	}

	bounds := outline.Bounds()
	maxDepth := 0.0
	for _, tp := range toolpaths {
		for _, p := range tp.Passes {
			maxDepth = math.Max(maxDepth, p.Depth)
			bounds = bounds.Union(passBounds(p))
		}
	}
	if bounds.IsEmpty() {
		return ErrNothingToDraw
	}

	span := math.Max(bounds.Width(), bounds.Height())
	if span < geom.Epsilon {
		span = 1
	}
	inner := float64(opts.Size) - 2*opts.Padding
	if inner <= 0 {
		return fmt.Errorf("preview: padding %g leaves no room in %dpx", opts.Padding, opts.Size)
	}
	scale := inner / span
	width := int(math.Ceil(bounds.Width()*scale + 2*opts.Padding))
	height := int(math.Ceil(bounds.Height()*scale + 2*opts.Padding))
	v := view{bounds: bounds, scale: scale, padding: opts.Padding, height: float64(height)}

	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.ClearWithColor(gg.White)

	if len(outline) > 0 {
		dc.SetHexColor("#888888")
		dc.SetLineWidth(2)
		x, y := v.pt(outline[0])
		dc.MoveTo(x, y)
		for _, p := range outline[1:] {
			dc.LineTo(v.pt(p))
		}
		dc.ClosePath()
		if err := dc.Stroke(); err != nil {
			return fmt.Errorf("preview: outline: %w", err)
		}
	}

	for _, tp := range toolpaths {
		for _, p := range tp.Passes {
			if err := drawPass(dc, v, p, maxDepth); err != nil {
				return fmt.Errorf("preview: %s: %w", tp.Operation.Name, err)
			}
		}
	}
	return dc.EncodePNG(w)
}

func drawPass(dc *gg.Context, v view, p cam.Pass, maxDepth float64) error {
	t := 1.0
	if maxDepth > 0 {
		t = p.Depth / maxDepth
	}
	for _, s := range p.Segments {
		x1, y1 := v.pt(s.From.XY())
		x2, y2 := v.pt(s.To.XY())
		switch s.Feed {
		case cam.Plunge:
			dc.SetRGB(0.8, 0.1, 0.1)
			dc.DrawCircle(x2, y2, 2.5)
			if err := dc.Fill(); err != nil {
				return err
			}
			continue
		case cam.Rapid:
			if s.From.XY().Equal(s.To.XY(), geom.Epsilon) {
				continue
			}
			dc.SetRGBA(0.9, 0.3, 0.3, 0.6)
			dc.SetLineWidth(1)
			dc.SetDash(6, 4)
		default:
			dc.SetRGB(0.55-0.45*t, 0.75-0.55*t, 1-0.35*t)
			dc.SetLineWidth(1.5)
			dc.ClearDash()
		}
		dc.DrawLine(x1, y1, x2, y2)
		if err := dc.Stroke(); err != nil {
			return err
		}
	}
	dc.ClearDash()
	return nil
}

func passBounds(p cam.Pass) geom.Box2 {
	b := geom.EmptyBox()
	for _, s := range p.Segments {
		b = b.Extend(s.From.XY()).Extend(s.To.XY())
	}
	return b
}
