package post_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/kerf/pkg/cam"
	"github.com/chazu/kerf/pkg/geom"
	"github.com/chazu/kerf/pkg/post"
	"github.com/chazu/kerf/pkg/post/gcode"
	"github.com/chazu/kerf/pkg/post/opensbp"
)

var tools = []cam.Tool{
	{Number: 1, Name: "12.7mm end mill", Diameter: 12.7, SpindleSpeed: 18000, HorizFeed: 1500, VertFeed: 500},
	{Number: 2, Name: "6mm end mill", Diameter: 6, SpindleSpeed: 18000, HorizFeed: 1200, VertFeed: 400},
}

func v(x, y, z float64) geom.Vec3 { return geom.Vec3{X: x, Y: y, Z: z} }

// line builds a one-pass toolpath cutting from (0,0) to (10,0) at Z 39.
func line(name string, tool int) *cam.Toolpath {
	return &cam.Toolpath{
		Feature:   name,
		Operation: cam.Operation{Name: name, Kind: cam.Profile},
		Tool:      tool,
		Entry:     []cam.Segment{{Feed: cam.Rapid, From: v(0, 0, 55), To: v(0, 0, 55)}},
		Passes: []cam.Pass{{Depth: 6, Z: 39, Segments: []cam.Segment{
			{Feed: cam.Rapid, From: v(0, 0, 55), To: v(0, 0, 50)},
			{Feed: cam.Plunge, From: v(0, 0, 50), To: v(0, 0, 39)},
			{Feed: cam.Cut, From: v(0, 0, 39), To: v(10, 0, 39)},
			{Feed: cam.Rapid, From: v(10, 0, 39), To: v(10, 0, 50)},
		}}},
		Exit: []cam.Segment{{Feed: cam.Rapid, From: v(10, 0, 50), To: v(10, 0, 55)}},
	}
}

func emit(t *testing.T, d post.Dialect, tps []*cam.Toolpath, opts post.Options) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, post.Emit(&buf, d, tps, tools, opts))
	return buf.String()
}

func TestNum(t *testing.T) {
	assert.Equal(t, "1.2346", post.Num(1.23456))
	assert.Equal(t, "0.0000", post.Num(-0.00001))
	assert.Equal(t, "-3.5000", post.Num(-3.5))
	assert.Equal(t, "8.3333", post.Num(500.0/60))
}

func TestEmitOpenSBP(t *testing.T) {
	got := emit(t, opensbp.New(), []*cam.Toolpath{line("perimeter", 1)}, post.Options{})
	want := strings.Join([]string{
		"SA",
		"&Tool=1",
		"C9",
		"MS,25.0000,8.3333",
		"TR,18000.0000",
		"C6",
		"PAUSE 2",
		"JZ,55.0000",
		"J3,0.0000,0.0000,55.0000",
		"J3,0.0000,0.0000,50.0000",
		"MZ,39.0000",
		"M3,10.0000,0.0000,39.0000",
		"J3,10.0000,0.0000,50.0000",
		"J3,10.0000,0.0000,55.0000",
		"C7",
		"END",
	}, "\n") + "\n"
	assert.Equal(t, want, got)
}

func TestEmitGCode(t *testing.T) {
	got := emit(t, gcode.New(), []*cam.Toolpath{line("perimeter", 1)}, post.Options{Program: "body"})
	want := strings.Join([]string{
		"(program: body)",
		"G21",
		"G90",
		"G17",
		"M3 S18000.0000",
		"G0 Z55.0000",
		"G0 X0.0000 Y0.0000 Z55.0000",
		"G0 X0.0000 Y0.0000 Z50.0000",
		"G1 Z39.0000 F500.0000",
		"G1 X10.0000 Y0.0000 Z39.0000 F1500.0000",
		"G0 X10.0000 Y0.0000 Z50.0000",
		"G0 X10.0000 Y0.0000 Z55.0000",
		"M5",
		"M30",
	}, "\n") + "\n"
	assert.Equal(t, want, got)

	withChange := emit(t, gcode.Dialect{ToolChanges: true}, []*cam.Toolpath{line("perimeter", 2)}, post.Options{})
	assert.Contains(t, withChange, "T2 M6\n")
}

func TestEmitToolChanges(t *testing.T) {
	tps := []*cam.Toolpath{line("a", 1), line("b", 1), line("c", 2), line("d", 2)}
	got := emit(t, opensbp.New(), tps, post.Options{})

	assert.Equal(t, 2, strings.Count(got, "\nC9\n"))
	assert.Equal(t, 2, strings.Count(got, "\nC6\n"))
	assert.Equal(t, 2, strings.Count(got, "\nC7\n"))
	assert.Contains(t, got, "&Tool=2\n")
	assert.Contains(t, got, "MS,20.0000,6.6667\n")
	assert.Equal(t, 2, strings.Count(got, "\nJZ,55.0000\n"), "retract once per tool, not per toolpath")
	assert.Contains(t, got, "C9\nMS,20.0000,6.6667\nTR,18000.0000\nC6\nPAUSE 2\nJZ,55.0000\nJ3,0.0000,0.0000,55.0000\n",
		"Z clears before the first XY move after a tool change")
	assert.True(t, strings.HasSuffix(got, "C7\nEND\n"))
}

func TestEmitEmptyToolpath(t *testing.T) {
	empty := &cam.Toolpath{Feature: "neck", Operation: cam.Operation{Name: "neck"}, Tool: 1}
	got := emit(t, opensbp.New(), []*cam.Toolpath{empty}, post.Options{Comments: true})

	assert.Contains(t, got, "'neck: no toolpath computed\n")
	assert.NotContains(t, got, "C6")
	assert.NotContains(t, got, "M3,")
	assert.NotContains(t, got, "C7")
}

func TestEmitComments(t *testing.T) {
	got := emit(t, opensbp.New(), []*cam.Toolpath{line("perimeter", 1)}, post.Options{Program: "strat", Comments: true})
	assert.True(t, strings.HasPrefix(got, "'program: strat\nSA\n"))
	assert.Contains(t, got, "'tool 1: 12.7mm end mill, 12.7000 mm\n")
	assert.Contains(t, got, "'pass depth 6.0000 Z 39.0000\n")

	quiet := emit(t, opensbp.New(), []*cam.Toolpath{line("perimeter", 1)}, post.Options{})
	assert.NotContains(t, quiet, "'")
}

func TestEmitArcs(t *testing.T) {
	tp := line("arc", 1)
	tp.Passes[0].Segments[2] = cam.Segment{Kind: cam.ArcCCW, Feed: cam.Cut,
		From: v(0, 0, 39), To: v(10, 0, 39), Center: geom.V2(5, 0)}

	sbp := emit(t, opensbp.New(), []*cam.Toolpath{tp}, post.Options{})
	assert.Contains(t, sbp, "CG,,10.0000,0.0000,5.0000,0.0000,T,-1\n")

	nc := emit(t, gcode.New(), []*cam.Toolpath{tp}, post.Options{})
	assert.Contains(t, nc, "G3 X10.0000 Y0.0000 Z39.0000 I5.0000 J0.0000 F1500.0000\n")
}

func TestEmitUnknownTool(t *testing.T) {
	var buf bytes.Buffer
	err := post.Emit(&buf, opensbp.New(), []*cam.Toolpath{line("a", 9)}, tools, post.Options{})
	assert.ErrorContains(t, err, "unknown tool 9")
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestEmitWriteError(t *testing.T) {
	err := post.Emit(brokenWriter{}, opensbp.New(), []*cam.Toolpath{line("a", 1)}, tools, post.Options{})
	assert.ErrorContains(t, err, "disk full")
}

func TestEmitDeterministicAndReadOnly(t *testing.T) {
	tps := []*cam.Toolpath{line("a", 1), line("b", 2)}
	before := []*cam.Toolpath{line("a", 1), line("b", 2)}

	first := emit(t, opensbp.New(), tps, post.Options{Comments: true})
	second := emit(t, opensbp.New(), tps, post.Options{Comments: true})
	assert.Equal(t, first, second)
	assert.Equal(t, before, tps)
}

func TestGCodeCommentSanitised(t *testing.T) {
	assert.Equal(t, "(pocket neck 2)", gcode.New().Comment("pocket (neck)\n2"))
}

func TestRegistry(t *testing.T) {
	r := post.NewRegistry(opensbp.New(), gcode.New())
	assert.Equal(t, []string{"gcode", "opensbp"}, r.Names())

	d, err := r.Lookup("OpenSBP")
	require.NoError(t, err)
	assert.Equal(t, ".sbp", d.Extension())

	d, err = r.Lookup(post.DefaultDialect)
	require.NoError(t, err)
	assert.Equal(t, "opensbp", d.Name())

	_, err = r.Lookup("heidenhain")
	assert.ErrorContains(t, err, "gcode, opensbp")
}
