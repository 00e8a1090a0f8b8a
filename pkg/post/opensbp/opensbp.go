// Package opensbp renders toolpaths as ShopBot OpenSBP part files.
package opensbp

import (
	"fmt"
	"strings"

	"github.com/chazu/kerf/pkg/cam"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/post"
)

// Dialect is the OpenSBP command set. Speeds are given in mm/s.
type Dialect struct{}

// New returns the OpenSBP dialect.
func New() Dialect { return Dialect{} }

func (Dialect) Name() string      { return "opensbp" }
func (Dialect) Extension() string { return ".sbp" }

func (d Dialect) Header(program string) []string {
	out := []string{}
	if program != "" {
		out = append(out, d.Comment("program: "+program))
	}
	return append(out, "SA")
}

// Comment strips line breaks; an OpenSBP comment runs to end of line.
func (Dialect) Comment(text string) string {
	return "'" + strings.NewReplacer("\r", " ", "\n", " ").Replace(text)
}

func (d Dialect) ToolChange(t cam.Tool) []string {
	return []string{fmt.Sprintf("&Tool=%d", t.Number), "C9"}
}

func (Dialect) SpindleOn(rpm float64) []string {
	return []string{"TR," + post.Num(rpm), "C6", "PAUSE 2"}
}

func (Dialect) SpindleOff() []string { return []string{"C7"} }

func (Dialect) Feed(t cam.Tool) []string {
	return []string{"MS," + post.Num(t.HorizFeed/60) + "," + post.Num(t.VertFeed/60)}
}

func (Dialect) Rapid(to geom.Vec3) string {
	return "J3," + xyz(to)
}

func (Dialect) RapidZ(z float64) string {
	return "JZ," + post.Num(z)
}

// Linear and Plunge ignore feed: MS has set both speeds already.
func (Dialect) Linear(to geom.Vec3, _ float64) string {
	return "M3," + xyz(to)
}

func (Dialect) Plunge(to geom.Vec3, _ float64) string {
	return "MZ," + post.Num(to.Z)
}

// Arc uses CG with center offsets relative to the start point.
func (Dialect) Arc(s cam.Segment, _ float64) string {
	dir := "1"
	if s.Kind == cam.ArcCCW {
		dir = "-1"
	}
	off := s.Center.Sub(s.From.XY())
	return fmt.Sprintf("CG,,%s,%s,%s,%s,T,%s", post.Num(s.To.X), post.Num(s.To.Y), post.Num(off.X), post.Num(off.Y), dir)
}

func (Dialect) Footer() []string { return []string{"END"} }

func xyz(v geom.Vec3) string {
	return post.Num(v.X) + "," + post.Num(v.Y) + "," + post.Num(v.Z)
}
