// Package gcode renders toolpaths as RS-274 G-code for GRBL-style
// controllers: metric, absolute, XY plane.
package gcode

import (
	"fmt"
	"strings"

	"github.com/chazu/kerf/pkg/cam"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/post"
)

type Dialect struct {
	// ToolChanges emits T/M6. GRBL rejects M6, so it is off by default.
	ToolChanges bool
}

func New() Dialect { return Dialect{} }

func (Dialect) Name() string      { return "gcode" }
func (Dialect) Extension() string { return ".nc" }

func (d Dialect) Header(program string) []string {
	var out []string
	if program != "" {
		out = append(out, d.Comment("program: "+program))
	}
	return append(out, "G21", "G90", "G17")
}

// Comment drops characters that would end a parenthesised comment early.
func (Dialect) Comment(text string) string {
	r := strings.NewReplacer("(", "", ")", "", "\n", " ", "\r", " ")
	return "(" + r.Replace(text) + ")"
}

func (d Dialect) ToolChange(t cam.Tool) []string {
	if !d.ToolChanges {
		return nil
	}
	return []string{fmt.Sprintf("T%d M6", t.Number)}
}

func (Dialect) SpindleOn(rpm float64) []string {
	return []string{"M3 S" + post.Num(rpm)}
}

func (Dialect) SpindleOff() []string { return []string{"M5"} }

// Feed returns nothing: every feed move carries its own F word.
func (Dialect) Feed(cam.Tool) []string { return nil }

func (Dialect) Rapid(to geom.Vec3) string {
	return "G0 " + xyz(to)
}

func (Dialect) RapidZ(z float64) string {
	return "G0 Z" + post.Num(z)
}

func (Dialect) Linear(to geom.Vec3, feed float64) string {
	return "G1 " + xyz(to) + " F" + post.Num(feed)
}

func (Dialect) Plunge(to geom.Vec3, feed float64) string {
	return "G1 Z" + post.Num(to.Z) + " F" + post.Num(feed)
}

func (Dialect) Arc(s cam.Segment, feed float64) string {
	code := "G2"
	if s.Kind == cam.ArcCCW {
		code = "G3"
	}
	off := s.Center.Sub(s.From.XY())
	return fmt.Sprintf("%s %s I%s J%s F%s", code, xyz(s.To), post.Num(off.X), post.Num(off.Y), post.Num(feed))
}

func (Dialect) Footer() []string { return []string{"M30"} }

func xyz(v geom.Vec3) string {
	return "X" + post.Num(v.X) + " Y" + post.Num(v.Y) + " Z" + post.Num(v.Z)
}
