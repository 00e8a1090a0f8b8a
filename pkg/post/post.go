// Package post serializes planned toolpaths into a controller command
// stream. The machine language is supplied by a Dialect; Emit owns the
// ordering of tool changes, spindle control and motion.
package post

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chazu/kerf/pkg/cam"
	"github.com/chazu/kerf/pkg/geom"
)

// DefaultDialect is used when a job does not name one.
const DefaultDialect = "opensbp"

// Dialect renders individual commands. Methods returning a slice may
// return nil when the controller has no equivalent command.
type Dialect interface {
	Name() string
	Extension() string

	Header(program string) []string
	Comment(text string) string
	ToolChange(t cam.Tool) []string
	SpindleOn(rpm float64) []string
	SpindleOff() []string
	Feed(t cam.Tool) []string

	Rapid(to geom.Vec3) string
	RapidZ(z float64) string
	Linear(to geom.Vec3, feed float64) string
	Plunge(to geom.Vec3, feed float64) string
	Arc(s cam.Segment, feed float64) string

	Footer() []string
}

// Options control emission.
type Options struct {
	Program  string // name written into the header
	Comments bool   // annotate operations and passes
}

// Num formats a coordinate or rate with fixed precision.
func Num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	if s == "-0.0000" {
		return "0.0000"
	}
	return s
}

// Emit writes toolpaths in order. Empty toolpaths produce no motion. The
// toolpaths are not modified.
//
// The machine position is unknown at program start and after a tool
// change, so the first move there is a Z-only rapid to the toolpath's
// entry height.
func Emit(w io.Writer, d Dialect, toolpaths []*cam.Toolpath, tools []cam.Tool, opts Options) error {
	byNumber := make(map[int]cam.Tool, len(tools))
	for _, t := range tools {
		byNumber[t.Number] = t
	}

	e := &emitter{w: bufio.NewWriter(w), d: d, comments: opts.Comments}
	e.lines(d.Header(opts.Program)...)

	current := -1
	for _, tp := range toolpaths {
		if tp.IsEmpty() {
			e.comment(fmt.Sprintf("%s: no toolpath computed", tp.Operation.Name))
			continue
		}
		tool, ok := byNumber[tp.Tool]
		if !ok {
			return fmt.Errorf("toolpath %q: unknown tool %d", tp.Operation.Name, tp.Tool)
		}
		if tool.Number != current {
			if current >= 0 {
				e.lines(d.SpindleOff()...)
			}
			e.comment(fmt.Sprintf("tool %d: %s, %s mm", tool.Number, tool.Name, Num(tool.Diameter)))
			e.lines(d.ToolChange(tool)...)
			e.lines(d.Feed(tool)...)
			e.lines(d.SpindleOn(tool.SpindleSpeed)...)
			current = tool.Number
			if len(tp.Entry) > 0 {
				e.lines(d.RapidZ(tp.Entry[0].To.Z))
			}
		}
		e.comment(fmt.Sprintf("%s: %s %s on %q, %d passes", tp.Operation.Name, tp.Operation.Kind, tp.Operation.ContourMode, tp.Feature, len(tp.Passes)))
		e.segments(tp.Entry, tool)
		for _, p := range tp.Passes {
			e.comment(fmt.Sprintf("pass depth %s Z %s", Num(p.Depth), Num(p.Z)))
			e.segments(p.Segments, tool)
		}
		e.segments(tp.Exit, tool)
	}
	if current >= 0 {
		e.lines(d.SpindleOff()...)
	}
	e.lines(d.Footer()...)

	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

type emitter struct {
	w        *bufio.Writer
	d        Dialect
	comments bool
	err      error
}

func (e *emitter) lines(ls ...string) {
	for _, l := range ls {
		if e.err != nil {
			return
		}
		_, e.err = e.w.WriteString(l + "\n")
	}
}

func (e *emitter) comment(text string) {
	if e.comments {
		e.lines(e.d.Comment(text))
	}
}

func (e *emitter) segments(segs []cam.Segment, t cam.Tool) {
	for _, s := range segs {
		switch {
		case s.Kind != cam.Line:
			e.lines(e.d.Arc(s, t.HorizFeed))
		case s.Feed == cam.Rapid:
			e.lines(e.d.Rapid(s.To))
		case s.Feed == cam.Plunge:
			e.lines(e.d.Plunge(s.To, t.VertFeed))
		default:
			e.lines(e.d.Linear(s.To, t.HorizFeed))
		}
	}
}

// Registry maps dialect names to implementations.
type Registry struct {
	dialects map[string]Dialect
}

// NewRegistry registers ds under their names.
func NewRegistry(ds ...Dialect) *Registry {
	r := &Registry{dialects: make(map[string]Dialect, len(ds))}
	for _, d := range ds {
		r.dialects[d.Name()] = d
	}
	return r
}

// Lookup finds a dialect by name, case-insensitively.
func (r *Registry) Lookup(name string) (Dialect, error) {
	if d, ok := r.dialects[strings.ToLower(name)]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("unknown dialect %q (available: %s)", name, strings.Join(r.Names(), ", "))
}

// Names lists the registered dialects in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.dialects))
	for n := range r.dialects {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
